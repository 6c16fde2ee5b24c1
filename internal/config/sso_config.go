package config

import (
	"time"

	gwerrors "github.com/jrsteele09/go-cloud-gateway/internal/errors"
)

const (
	SSOProviderTriton = "triton"
	SSOProviderOIDC   = "oidc"
)

type SSOConfig interface {
	GetSSOProvider() string
	GetSSOURL() string
	GetOIDCIssuer() string
	GetOIDCClientID() string
	GetOIDCClientSecret() string
	GetExchangeTimeout() time.Duration
}

type SSO struct {
	Provider         string        `env:"SSO_PROVIDER,default=triton"`
	URL              string        `env:"SSO_URL"`
	OIDCIssuer       string        `env:"OIDC_ISSUER"`
	OIDCClientID     string        `env:"OIDC_CLIENT_ID"`
	OIDCClientSecret string        `env:"OIDC_CLIENT_SECRET"`
	ExchangeTimeout  time.Duration `env:"EXCHANGE_TIMEOUT,default=10s"`
}

var _ SSOConfig = SSO{}

func (s SSO) GetSSOProvider() string { return s.Provider }
func (s SSO) GetSSOURL() string { return s.URL }
func (s SSO) GetOIDCIssuer() string { return s.OIDCIssuer }
func (s SSO) GetOIDCClientID() string { return s.OIDCClientID }
func (s SSO) GetOIDCClientSecret() string { return s.OIDCClientSecret }
func (s SSO) GetExchangeTimeout() time.Duration { return s.ExchangeTimeout }

func (s SSO) validate() error {
	switch s.Provider {
	case SSOProviderTriton:
		if s.URL == "" {
			return gwerrors.Configurationf("SSO_URL is required for the triton provider")
		}
	case SSOProviderOIDC:
		if s.OIDCIssuer == "" || s.OIDCClientID == "" {
			return gwerrors.Configurationf("OIDC_ISSUER and OIDC_CLIENT_ID are required for the oidc provider")
		}
	default:
		return gwerrors.Configurationf("unknown SSO_PROVIDER %q", s.Provider)
	}
	if s.ExchangeTimeout <= 0 {
		return gwerrors.Configurationf("EXCHANGE_TIMEOUT must be positive")
	}
	return nil
}
