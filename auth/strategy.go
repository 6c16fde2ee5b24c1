package auth

import (
	"net/http"
)

// Kind tags the authentication mechanism a strategy implements
type Kind string

const (
	KindSSO    Kind = "sso"
	KindBearer Kind = "bearer"
)

// Strategy authenticates requests for the routes bound to it.
//
// Authenticate returns:
//   - (identity, nil): the request proved itself
//   - (nil, ErrNoCredentials): nothing this strategy understands was supplied
//   - (nil, error wrapping ErrAuthenticationFailed): credentials were supplied and rejected
//   - (nil, error wrapping ErrCSRF): authenticated, but the anti-forgery check failed
//
// The ResponseWriter is only touched by strategies that maintain cookies.
type Strategy interface {
	Name() string
	Kind() Kind
	Authenticate(w http.ResponseWriter, r *http.Request) (*Identity, error)
	// Unauthorized writes this strategy's response for a request without valid credentials
	Unauthorized(w http.ResponseWriter, r *http.Request)
}

// Observer receives authentication outcomes, typically for metrics
type Observer interface {
	AuthAttempt(strategy string, outcome string)
}

// Outcomes reported to Observer
const (
	OutcomeSuccess       = "success"
	OutcomeNoCredentials = "no_credentials"
	OutcomeRejected      = "rejected"
	OutcomeCSRF          = "csrf"
)
