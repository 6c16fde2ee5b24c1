package server_test

import (
	"net/http"
	"testing"

	"github.com/jrsteele09/go-cloud-gateway/internal/config"
	"github.com/jrsteele09/go-cloud-gateway/server"
	"github.com/stretchr/testify/require"
)

func TestSecurityHeaders(t *testing.T) {
	defaults := config.Security{
		CSPDefaultSrc: "'self'",
		CSPImgSrc:     "* data:",
		CSPScriptSrc:  "'self' 'unsafe-inline'",
		CSPStyleSrc:   "'self' 'unsafe-inline'",
		HSTSMaxAge:    15768000,
		FrameOptions:  "DENY",
		XSSProtection: "1; mode=block",
		NoOpen:        true,
	}

	t.Run("defaults", func(t *testing.T) {
		h := server.SecurityHeaders(defaults)
		for name, value := range expectedSecurityHeaders {
			require.Equal(t, value, h.Get(name), name)
		}
		require.Empty(t, h.Get("X-Content-Type-Options"))
	})

	t.Run("nosniff toggle", func(t *testing.T) {
		cfg := defaults
		cfg.NoSniff = true
		require.Equal(t, "nosniff", server.SecurityHeaders(cfg).Get("X-Content-Type-Options"))
	})

	t.Run("disabled headers are omitted", func(t *testing.T) {
		h := server.SecurityHeaders(config.Security{})
		require.Equal(t, http.Header{}, h)
	})
}
