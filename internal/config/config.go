package config

import (
	"errors"
	"net/url"
	"strings"

	gwerrors "github.com/jrsteele09/go-cloud-gateway/internal/errors"
	"github.com/joeshaw/envdecode"
)

type Config interface {
	EnvConfig
	CookieConfig
	KeysConfig
	SSOConfig
	UpstreamConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	IsProduction() bool
	GetBaseURL() string
	GetNamespace() string
}

type mainConfig struct {
	EnvVars
	Cookie
	Keys
	SSO
	Upstreams
	Security
}

var _ Config = mainConfig{}

// Load decodes the environment and validates it. Any problem is an ErrConfiguration.
func Load() (Config, error) {
	var cfg mainConfig
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, gwerrors.Configurationf("%v", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c mainConfig) validate() error {
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return gwerrors.Configurationf("ENV must be %s or %s, got %q", EnvDevelopment, EnvProduction, c.Env)
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return gwerrors.Configurationf("BASE_URL must be an absolute url, got %q", c.BaseURL)
	}
	if c.Namespace == "" || strings.Contains(strings.Trim(c.Namespace, "/"), "/") {
		return gwerrors.Configurationf("NAMESPACE must be a single path segment, got %q", c.Namespace)
	}
	if err := c.Cookie.validate(c.IsProduction()); err != nil {
		return err
	}
	if err := c.Keys.validate(); err != nil {
		return err
	}
	if err := c.Upstreams.validate(); err != nil {
		return err
	}
	return c.SSO.validate()
}
