package config

import (
	"time"

	gwerrors "github.com/jrsteele09/go-cloud-gateway/internal/errors"
)

// Upstream names used in routes and metrics
const (
	UpstreamCloudAPI = "cloudapi"
	UpstreamTSG      = "tsg"
	UpstreamMetrics  = "metrics"
)

type UpstreamConfig interface {
	GetSDCURL() string
	GetTSGURL() string
	GetMetricsURL() string
	GetUpstreamTimeout() time.Duration
	// GetUpstreamURLs maps upstream name to base url for every configured upstream
	GetUpstreamURLs() map[string]string
}

type Upstreams struct {
	SDCURL     string        `env:"SDC_URL"`
	TSGURL     string        `env:"TSG_URL"`
	MetricsURL string        `env:"METRICS_URL"`
	Timeout    time.Duration `env:"UPSTREAM_TIMEOUT,default=30s"`
}

var _ UpstreamConfig = Upstreams{}

func (u Upstreams) GetSDCURL() string { return u.SDCURL }
func (u Upstreams) GetTSGURL() string { return u.TSGURL }
func (u Upstreams) GetMetricsURL() string { return u.MetricsURL }
func (u Upstreams) GetUpstreamTimeout() time.Duration { return u.Timeout }

func (u Upstreams) GetUpstreamURLs() map[string]string {
	urls := map[string]string{UpstreamCloudAPI: u.SDCURL}
	if u.TSGURL != "" {
		urls[UpstreamTSG] = u.TSGURL
	}
	if u.MetricsURL != "" {
		urls[UpstreamMetrics] = u.MetricsURL
	}
	return urls
}

func (u Upstreams) validate() error {
	if u.SDCURL == "" {
		return gwerrors.Configurationf("SDC_URL is required")
	}
	if u.Timeout <= 0 {
		return gwerrors.Configurationf("UPSTREAM_TIMEOUT must be positive")
	}
	return nil
}
