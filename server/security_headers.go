package server

import (
	"net/http"
	"strconv"

	"github.com/jrsteele09/go-cloud-gateway/internal/config"
)

// SecurityHeaders builds the static header set sent on every response. It is a pure
// function of configuration.
func SecurityHeaders(cfg config.SecurityConfig) http.Header {
	h := http.Header{}
	if csp := cfg.GetContentSecurityPolicy(); csp != "" {
		h.Set("Content-Security-Policy", csp)
	}
	if maxAge := cfg.GetHSTSMaxAge(); maxAge > 0 {
		h.Set("Strict-Transport-Security", "max-age="+strconv.Itoa(maxAge))
	}
	if v := cfg.GetFrameOptions(); v != "" {
		h.Set("X-Frame-Options", v)
	}
	if v := cfg.GetXSSProtection(); v != "" {
		h.Set("X-XSS-Protection", v)
	}
	if cfg.GetNoOpen() {
		h.Set("X-Download-Options", "noopen")
	}
	if cfg.GetNoSniff() {
		h.Set("X-Content-Type-Options", "nosniff")
	}
	return h
}

func (s *Server) applySecurityHeaders(h http.Header) {
	for name, values := range s.security {
		h[name] = append([]string(nil), values...)
	}
}
