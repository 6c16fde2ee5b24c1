package config

import (
	"time"

	gwerrors "github.com/jrsteele09/go-cloud-gateway/internal/errors"
)

const minCookiePasswordLength = 32

type CookieConfig interface {
	GetCookiePassword() string
	GetCookieDomain() string
	GetCookieSecure() bool
	GetCookieHTTPOnly() bool
	GetSessionTTL() time.Duration
	GetSessionKeepAlive() bool
}

type Cookie struct {
	Password  string        `env:"COOKIE_PASSWORD"`
	Domain    string        `env:"COOKIE_DOMAIN"`
	Secure    bool          `env:"COOKIE_SECURE,default=true"`
	HTTPOnly  bool          `env:"COOKIE_HTTP_ONLY,default=true"`
	TTL       time.Duration `env:"SESSION_TTL,default=4h"`
	KeepAlive bool          `env:"SESSION_KEEP_ALIVE,default=false"`
}

var _ CookieConfig = Cookie{}

func (c Cookie) GetCookiePassword() string { return c.Password }
func (c Cookie) GetCookieDomain() string { return c.Domain }
func (c Cookie) GetCookieSecure() bool { return c.Secure }
func (c Cookie) GetCookieHTTPOnly() bool { return c.HTTPOnly }
func (c Cookie) GetSessionTTL() time.Duration { return c.TTL }
func (c Cookie) GetSessionKeepAlive() bool { return c.KeepAlive }

func (c Cookie) validate(production bool) error {
	if len(c.Password) < minCookiePasswordLength {
		return gwerrors.Configurationf("COOKIE_PASSWORD must be at least %d characters", minCookiePasswordLength)
	}
	if production && !c.Secure {
		return gwerrors.Configurationf("COOKIE_SECURE can only be disabled outside production")
	}
	if c.TTL <= 0 {
		return gwerrors.Configurationf("SESSION_TTL must be positive")
	}
	return nil
}
