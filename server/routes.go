package server

import (
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-cloud-gateway/auth"
)

type route struct {
	pattern string
	binding auth.Binding
	handler http.HandlerFunc
}

func (s *Server) initRoutes() error {
	routes := []route{
		{"GET " + s.path(RouteVersions), auth.Disabled(), s.VersionsHandler()},

		// SSO
		{"GET " + s.path(RouteLogin), auth.Disabled(), s.LoginHandler()},
		{"GET " + s.path(RouteCallback), auth.Disabled(), s.CallbackHandler()},
		{"GET " + s.path(RouteLogout), auth.Disabled(), s.LogoutHandler()},

		// Signed upstream proxy, every method
		{s.path(RouteAPIProxy), auth.Default(), s.ProxyHandler()},
	}
	if s.metrics != nil {
		routes = append(routes, route{"GET " + s.path(RouteMetrics), auth.Named(StrategyBearer), s.metrics.Handler().ServeHTTP})
	}

	for _, rt := range routes {
		authenticate, err := s.registry.Middleware(rt.binding)
		if err != nil {
			return fmt.Errorf("route %s: %w", rt.pattern, err)
		}
		s.RegisterRouteHandler(rt.pattern, ChainMiddleware(rt.handler, s.GatewayMiddleware(authenticate)...))
	}
	return nil
}

func (s *Server) path(route string) string {
	return s.namespace + route
}
