package auth

import (
	"fmt"
	"net/http"

	gwerrors "github.com/jrsteele09/go-cloud-gateway/internal/errors"
	"github.com/rs/zerolog/log"
)

// Binding states which strategy guards a route
type Binding struct {
	strategy string
	disabled bool
}

// Default binds a route to the process-wide default strategy
func Default() Binding { return Binding{} }

// Named binds a route to an alternate strategy
func Named(name string) Binding { return Binding{strategy: name} }

// Disabled marks a route as deliberately unauthenticated
func Disabled() Binding { return Binding{disabled: true} }

func (b Binding) String() string {
	switch {
	case b.disabled:
		return "auth:disabled"
	case b.strategy == "":
		return "auth:default"
	default:
		return "auth:" + b.strategy
	}
}

// Registry owns the configured strategies. Exactly one is the default.
type Registry struct {
	defaultStrategy Strategy
	strategies      map[string]Strategy
	observer        Observer
}

// NewRegistry creates a registry with a default and any number of named alternates
func NewRegistry(defaultStrategy Strategy, alternates ...Strategy) (*Registry, error) {
	if defaultStrategy == nil {
		return nil, gwerrors.Configurationf("a default strategy is required")
	}
	r := &Registry{
		defaultStrategy: defaultStrategy,
		strategies:      make(map[string]Strategy, len(alternates)+1),
	}
	for _, s := range append([]Strategy{defaultStrategy}, alternates...) {
		if _, dup := r.strategies[s.Name()]; dup {
			return nil, fmt.Errorf("%w: %s", gwerrors.ErrDuplicateStrategy, s.Name())
		}
		r.strategies[s.Name()] = s
	}
	return r, nil
}

// WithObserver reports every authentication outcome to o
func (r *Registry) WithObserver(o Observer) *Registry {
	r.observer = o
	return r
}

// DefaultStrategy returns the process-wide default
func (r *Registry) DefaultStrategy() Strategy {
	return r.defaultStrategy
}

// Resolve returns the strategy for a binding; nil for Disabled
func (r *Registry) Resolve(b Binding) (Strategy, error) {
	if b.disabled {
		return nil, nil
	}
	if b.strategy == "" {
		return r.defaultStrategy, nil
	}
	s, ok := r.strategies[b.strategy]
	if !ok {
		return nil, fmt.Errorf("%w: %s", gwerrors.ErrUnknownStrategy, b.strategy)
	}
	return s, nil
}

// Middleware returns the authentication middleware for a route. It is resolved once at
// route registration, so a route is only ever evaluated against one strategy.
func (r *Registry) Middleware(b Binding) (func(http.HandlerFunc) http.HandlerFunc, error) {
	s, err := r.Resolve(b)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }, nil
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			id, err := s.Authenticate(w, req)
			switch {
			case err == nil && id != nil:
				r.observe(s, OutcomeSuccess)
				next(w, req.WithContext(WithIdentity(req.Context(), id)))
			case gwerrors.Is(err, gwerrors.ErrCSRF):
				r.observe(s, OutcomeCSRF)
				log.Debug().Str("strategy", s.Name()).Str("path", req.URL.Path).Msg("csrf check failed")
				WriteForbidden(w)
			case err == nil || gwerrors.Is(err, gwerrors.ErrNoCredentials):
				r.observe(s, OutcomeNoCredentials)
				s.Unauthorized(w, req)
			default:
				r.observe(s, OutcomeRejected)
				log.Debug().Err(err).Str("strategy", s.Name()).Str("path", req.URL.Path).Msg("authentication rejected")
				s.Unauthorized(w, req)
			}
		}
	}, nil
}

func (r *Registry) observe(s Strategy, outcome string) {
	if r.observer != nil {
		r.observer.AuthAttempt(s.Name(), outcome)
	}
}
