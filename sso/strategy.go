// Package sso implements the browser session strategy: a redirect based login through an
// external identity provider, followed by a stateless encrypted session cookie.
package sso

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-cloud-gateway/auth"
	"github.com/jrsteele09/go-cloud-gateway/csrf"
	gwerrors "github.com/jrsteele09/go-cloud-gateway/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultName            = "sso"
	DefaultCookieName      = "sid"
	DefaultStateCookieName = "sso_state"
	DefaultTTL             = 4 * time.Hour
	DefaultExchangeTimeout = 10 * time.Second
)

// Options configures the session strategy
type Options struct {
	Name            string
	Password        string // Cookie password, at least MinPasswordLength characters
	CookieName      string
	StateCookieName string
	Domain          string
	Secure          bool
	HTTPOnly        bool
	TTL             time.Duration
	KeepAlive       bool // Re-issue the cookie with a fresh IssuedAt on every authenticated request
	StateTTL        time.Duration
	ExchangeTimeout time.Duration
}

// Strategy is the sso auth.Strategy
type Strategy struct {
	opts      Options
	sealer    *Sealer
	states    *StateCodec
	exchanger Exchanger
	csrf      *csrf.Guard
	now       func() time.Time
}

// New creates the strategy. The CSRF guard is owned by this strategy only.
func New(exchanger Exchanger, guard *csrf.Guard, opts Options) (*Strategy, error) {
	if exchanger == nil || guard == nil {
		return nil, gwerrors.Configurationf("sso strategy requires an exchanger and a csrf guard")
	}
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.StateCookieName == "" {
		opts.StateCookieName = DefaultStateCookieName
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.ExchangeTimeout <= 0 {
		opts.ExchangeTimeout = DefaultExchangeTimeout
	}
	sealer, err := NewSealer(opts.Password)
	if err != nil {
		return nil, err
	}
	states, err := NewStateCodec(opts.Password, opts.StateTTL)
	if err != nil {
		return nil, err
	}
	return &Strategy{
		opts:      opts,
		sealer:    sealer,
		states:    states,
		exchanger: exchanger,
		csrf:      guard,
		now:       time.Now,
	}, nil
}

// WithClock overrides the time source, used by tests
func (s *Strategy) WithClock(now func() time.Time) *Strategy {
	s.now = now
	s.states.WithClock(now)
	return s
}

func (s *Strategy) Name() string { return s.opts.Name }

func (s *Strategy) Kind() auth.Kind { return auth.KindSSO }

// Authenticate resolves the session cookie. A missing, tampered or expired cookie is
// reported as no credentials so the client cannot tell them apart.
func (s *Strategy) Authenticate(w http.ResponseWriter, r *http.Request) (*auth.Identity, error) {
	cookie, err := r.Cookie(s.opts.CookieName)
	if err != nil || cookie.Value == "" {
		return nil, gwerrors.ErrNoCredentials
	}
	session, err := s.sealer.Open(cookie.Value)
	if err != nil {
		log.Debug().Err(err).Msg("discarding unreadable session cookie")
		return nil, gwerrors.ErrNoCredentials
	}
	now := s.now()
	if session.Expired(now, s.opts.TTL) {
		return nil, gwerrors.ErrNoCredentials
	}

	if csrf.StateChanging(r.Method) {
		if err := s.csrf.Verify(r, session.CSRF); err != nil {
			return nil, err
		}
	} else if !s.csrf.HasCookie(r) {
		s.csrf.SetCookie(w, session.CSRF)
	}

	if s.opts.KeepAlive {
		refreshed := *session
		refreshed.IssuedAt = now
		if err := s.setSessionCookie(w, &refreshed); err != nil {
			log.Warn().Err(err).Msg("failed to refresh session cookie")
		}
	}

	return &auth.Identity{
		Principal: session.Principal,
		Mechanism: auth.MechanismSSO,
		SessionID: session.ID,
		CSRFToken: session.CSRF,
		Token:     session.Token,
	}, nil
}

// Unauthorized sends browsers navigating to a protected page to the identity provider.
// Anything else gets the uniform 401.
func (s *Strategy) Unauthorized(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		auth.WriteUnauthorized(w)
		return
	}
	if err := s.Begin(w, r, r.URL.RequestURI()); err != nil {
		log.Err(err).Msg("failed to start sso login")
		auth.WriteUnauthorized(w)
	}
}

// Begin starts a login: it stores the login state in a short-lived cookie and redirects
// to the identity provider.
func (s *Strategy) Begin(w http.ResponseWriter, r *http.Request, returnTo string) error {
	state := State{ID: randomString(), Nonce: randomString(), ReturnTo: SafeReturnTo(returnTo)}
	token, err := s.states.Issue(state)
	if err != nil {
		return err
	}
	authURL, err := s.exchanger.AuthURL(state.ID, state.Nonce)
	if err != nil {
		return fmt.Errorf("failed to build login url: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.StateCookieName,
		Value:    token,
		Path:     "/",
		Domain:   s.opts.Domain,
		MaxAge:   int(s.states.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode, // Must survive the top level redirect back from the provider
	})
	http.Redirect(w, r, authURL, http.StatusFound)
	return nil
}

// Complete handles the provider callback. On success the session and CSRF cookies are
// set and the path to send the browser back to is returned.
func (s *Strategy) Complete(w http.ResponseWriter, r *http.Request) (string, error) {
	cookie, err := r.Cookie(s.opts.StateCookieName)
	if err != nil {
		return "", fmt.Errorf("%w: no state cookie", gwerrors.ErrStateInvalid)
	}
	s.clearCookie(w, s.opts.StateCookieName, true)

	state, err := s.states.Parse(cookie.Value)
	if err != nil {
		return "", err
	}
	if subtle.ConstantTimeCompare([]byte(state.ID), []byte(r.URL.Query().Get("state"))) != 1 {
		return "", fmt.Errorf("%w: state mismatch", gwerrors.ErrStateInvalid)
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.ExchangeTimeout)
	defer cancel()
	account, err := s.exchanger.Exchange(ctx, r, state.Nonce)
	if err != nil {
		if gwerrors.Is(ctx.Err(), context.DeadlineExceeded) && !gwerrors.Is(err, gwerrors.ErrUpstreamTimeout) {
			err = fmt.Errorf("%w: %v", gwerrors.ErrUpstreamTimeout, err)
		}
		return "", err
	}

	csrfToken, err := csrf.NewToken()
	if err != nil {
		return "", err
	}
	session := &Session{
		ID:        uuid.NewString(),
		Principal: account.Login,
		Token:     account.Token,
		CSRF:      csrfToken,
		IssuedAt:  s.now(),
		TTL:       s.opts.TTL,
	}
	if err := s.setSessionCookie(w, session); err != nil {
		return "", err
	}
	s.csrf.SetCookie(w, session.CSRF)

	log.Info().Str("principal", session.Principal).Str("session_id", session.ID).Msg("sso login complete")
	return SafeReturnTo(state.ReturnTo), nil
}

// Logout clears the session and its CSRF cookie
func (s *Strategy) Logout(w http.ResponseWriter) {
	s.clearCookie(w, s.opts.CookieName, s.opts.HTTPOnly)
	s.csrf.ClearCookie(w)
}

func (s *Strategy) setSessionCookie(w http.ResponseWriter, session *Session) error {
	value, err := s.sealer.Seal(session)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    value,
		Path:     "/",
		Domain:   s.opts.Domain,
		MaxAge:   int(session.TTL.Seconds()),
		HttpOnly: s.opts.HTTPOnly,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *Strategy) clearCookie(w http.ResponseWriter, name string, httpOnly bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   s.opts.Domain,
		MaxAge:   -1,
		HttpOnly: httpOnly,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SafeReturnTo keeps post-login redirects on this site
func SafeReturnTo(p string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.ContainsAny(p, "\\\r\n") {
		return "/"
	}
	return p
}

func randomString() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
