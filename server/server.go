package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-cloud-gateway/auth"
	"github.com/jrsteele09/go-cloud-gateway/internal/config"
	"github.com/jrsteele09/go-cloud-gateway/metrics"
	"github.com/jrsteele09/go-cloud-gateway/sso"
	"github.com/jrsteele09/go-cloud-gateway/upstream"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// Deps are the collaborators the server is built from. Everything is constructed by the
// caller, there are no package level registries.
type Deps struct {
	Registry  *auth.Registry
	SSO       *sso.Strategy
	Upstreams *upstream.Set
	Metrics   *metrics.Metrics
}

type Server struct {
	production bool
	namespace  string
	mux        *http.ServeMux
	routes     []string
	handler    http.Handler
	security   http.Header
	config     config.Config
	registry   *auth.Registry
	sso        *sso.Strategy
	upstreams  *upstream.Set
	metrics    *metrics.Metrics
}

func New(cfg config.Config, deps Deps) (*Server, error) {
	if deps.Registry == nil || deps.SSO == nil || deps.Upstreams == nil {
		return nil, fmt.Errorf("[Server New] registry, sso strategy and upstreams are required")
	}

	s := &Server{
		production: cfg.IsProduction(),
		namespace:  "/" + cfg.GetNamespace(),
		mux:        http.NewServeMux(),
		security:   SecurityHeaders(cfg),
		config:     cfg,
		registry:   deps.Registry,
		sso:        deps.SSO,
		upstreams:  deps.Upstreams,
		metrics:    deps.Metrics,
	}

	if err := s.initRoutes(); err != nil {
		return nil, fmt.Errorf("[Server New] failed to register routes: %w", err)
	}
	s.handler = s.accessLog(s.mux)
	s.logRoutes()

	return s, nil
}

// ServeHTTP stamps the security headers before anything else runs, so every response
// carries them whatever the outcome.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.applySecurityHeaders(w.Header())
	s.handler.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// accessLog wraps h with the hlog request logger
func (s *Server) accessLog(h http.Handler) http.Handler {
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		event := hlog.FromRequest(r).Info()
		if status >= http.StatusInternalServerError {
			event = hlog.FromRequest(r).Warn()
		}
		event.
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})(h)
	h = hlog.RequestIDHandler("req_id", "X-Request-Id")(h)
	h = hlog.RemoteAddrHandler("ip")(h)
	return hlog.NewHandler(log.Logger)(h)
}

func (s *Server) logRoutes() {
	if s.production {
		return // Skip logging in production
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	log.Debug().Msgf("[%s%s%s] %s", color, paddedMethod, ResetColor, path)
}
