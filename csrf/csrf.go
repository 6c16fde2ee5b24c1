// Package csrf guards state-changing requests made under the session strategy.
//
// The token is minted once per session and delivered in a cookie that client script can
// read. Clients echo it in a request header; a request is accepted only when the header,
// the cookie and the session's own copy are identical.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	gwerrors "github.com/jrsteele09/go-cloud-gateway/internal/errors"
)

const (
	DefaultCookieName = "crumb"
	DefaultHeaderName = "X-CSRF-Token"
	tokenBytes        = 32
)

// Options configures the token cookie
type Options struct {
	CookieName string
	HeaderName string
	Domain     string
	Secure     bool
	TTL        time.Duration
}

// Guard issues and checks anti-forgery tokens
type Guard struct {
	opts Options
}

// New creates a guard, filling in default names
func New(opts Options) *Guard {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.HeaderName == "" {
		opts.HeaderName = DefaultHeaderName
	}
	return &Guard{opts: opts}
}

// HeaderName is the request header clients must echo the token in
func (g *Guard) HeaderName() string { return g.opts.HeaderName }

// CookieName is the cookie carrying the token
func (g *Guard) CookieName() string { return g.opts.CookieName }

// NewToken returns a fresh random token
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate csrf token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// StateChanging reports whether method must carry a token
func StateChanging(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// SetCookie delivers token to the client. The cookie is deliberately readable by script.
func (g *Guard) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.opts.CookieName,
		Value:    token,
		Path:     "/",
		Domain:   g.opts.Domain,
		MaxAge:   int(g.opts.TTL.Seconds()),
		HttpOnly: false,
		Secure:   g.opts.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearCookie removes the token cookie
func (g *Guard) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.opts.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   g.opts.Domain,
		MaxAge:   -1,
		Secure:   g.opts.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// HasCookie reports whether the request still carries a token cookie
func (g *Guard) HasCookie(r *http.Request) bool {
	c, err := r.Cookie(g.opts.CookieName)
	return err == nil && c.Value != ""
}

// Verify checks a request against the session's token. Safe methods always pass.
func (g *Guard) Verify(r *http.Request, sessionToken string) error {
	if !StateChanging(r.Method) {
		return nil
	}
	header := r.Header.Get(g.opts.HeaderName)
	c, err := r.Cookie(g.opts.CookieName)
	if err != nil || header == "" || c.Value == "" || sessionToken == "" {
		return fmt.Errorf("%w: token missing", gwerrors.ErrCSRF)
	}
	if !equal(header, c.Value) || !equal(header, sessionToken) {
		return fmt.Errorf("%w: token mismatch", gwerrors.ErrCSRF)
	}
	return nil
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
