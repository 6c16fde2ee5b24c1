package sso

import (
	"context"
	"net/http"
)

// Account is what a successful exchange yields
type Account struct {
	Login string // Becomes the session principal
	Token string // Forwarded upstream as X-Auth-Token
}

// Exchanger is one identity provider flavour
type Exchanger interface {
	// AuthURL is where an anonymous browser is sent. state must come back on the callback.
	AuthURL(state, nonce string) (string, error)
	// Exchange turns the callback request into a verified account. It runs on the request
	// goroutine under ctx, which carries the exchange timeout.
	Exchange(ctx context.Context, callback *http.Request, nonce string) (*Account, error)
}
