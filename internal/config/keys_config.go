package config

import (
	"time"

	gwerrors "github.com/jrsteele09/go-cloud-gateway/internal/errors"
)

type KeysConfig interface {
	GetSDCKeyPath() string
	GetSDCAccount() string
	GetSDCKeyID() string
	GetClockSkew() time.Duration
	GetTenantsFile() string
}

// Keys is the operator key used to sign every outbound call, and where inbound bearer
// tenants come from
type Keys struct {
	KeyPath     string        `env:"SDC_KEY_PATH"`
	Account     string        `env:"SDC_ACCOUNT"`
	KeyID       string        `env:"SDC_KEY_ID"` // Defaults to the key's MD5 fingerprint
	ClockSkew   time.Duration `env:"CLOCK_SKEW,default=5m"`
	TenantsFile string        `env:"TENANTS_FILE"` // When empty the operator account is the only tenant
}

var _ KeysConfig = Keys{}

func (k Keys) GetSDCKeyPath() string { return k.KeyPath }
func (k Keys) GetSDCAccount() string { return k.Account }
func (k Keys) GetSDCKeyID() string { return k.KeyID }
func (k Keys) GetClockSkew() time.Duration { return k.ClockSkew }
func (k Keys) GetTenantsFile() string { return k.TenantsFile }

func (k Keys) validate() error {
	if k.KeyPath == "" || k.Account == "" {
		return gwerrors.Configurationf("SDC_KEY_PATH and SDC_ACCOUNT are required")
	}
	if k.ClockSkew <= 0 || k.ClockSkew > 15*time.Minute {
		return gwerrors.Configurationf("CLOCK_SKEW must be between 0 and 15m, got %s", k.ClockSkew)
	}
	return nil
}
