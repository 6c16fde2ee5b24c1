package config

import (
	"fmt"
	"strings"
)

type SecurityConfig interface {
	GetContentSecurityPolicy() string
	GetHSTSMaxAge() int
	GetFrameOptions() string
	GetXSSProtection() string
	GetNoOpen() bool
	GetNoSniff() bool
}

// Security holds the static response headers sent on every response
type Security struct {
	CSPDefaultSrc string `env:"CSP_DEFAULT_SRC,default='self'"`
	CSPImgSrc     string `env:"CSP_IMG_SRC,default=* data:"`
	CSPScriptSrc  string `env:"CSP_SCRIPT_SRC,default='self' 'unsafe-inline'"`
	CSPStyleSrc   string `env:"CSP_STYLE_SRC,default='self' 'unsafe-inline'"`
	HSTSMaxAge    int    `env:"HSTS_MAX_AGE,default=15768000"`
	FrameOptions  string `env:"FRAME_OPTIONS,default=DENY"`
	XSSProtection string `env:"XSS_PROTECTION,default=1; mode=block"`
	NoOpen        bool   `env:"NO_OPEN,default=true"`
	NoSniff       bool   `env:"NO_SNIFF,default=false"`
}

var _ SecurityConfig = Security{}

// GetContentSecurityPolicy joins the configured source lists. Empty lists are left out.
func (s Security) GetContentSecurityPolicy() string {
	directives := []struct{ name, sources string }{
		{"default-src", s.CSPDefaultSrc},
		{"img-src", s.CSPImgSrc},
		{"script-src", s.CSPScriptSrc},
		{"style-src", s.CSPStyleSrc},
	}
	parts := make([]string, 0, len(directives))
	for _, d := range directives {
		if d.sources = strings.TrimSpace(d.sources); d.sources != "" {
			parts = append(parts, fmt.Sprintf("%s %s", d.name, d.sources))
		}
	}
	return strings.Join(parts, "; ")
}

func (s Security) GetHSTSMaxAge() int { return s.HSTSMaxAge }
func (s Security) GetFrameOptions() string { return s.FrameOptions }
func (s Security) GetXSSProtection() string { return s.XSSProtection }
func (s Security) GetNoOpen() bool { return s.NoOpen }
func (s Security) GetNoSniff() bool { return s.NoSniff }
