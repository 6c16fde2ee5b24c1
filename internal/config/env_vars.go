package config

import (
	"fmt"
	"strings"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type EnvVars struct {
	Port      string `env:"PORT,default=8083"`
	Env       string `env:"ENV,default=development"`
	AppName   string `env:"APP_NAME,default=Cloud Gateway"`
	BaseURL   string `env:"BASE_URL,default=http://localhost:8083"`
	Namespace string `env:"NAMESPACE,default=tsg"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.Port
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	return e.Env
}

// IsProduction affects default security flags and log verbosity only
func (e EnvVars) IsProduction() bool {
	return e.Env == EnvProduction
}

// GetBaseURL returns the public URL of the gateway (e.g., "https://gateway.example.com")
// This is used to build the sso callback url
func (e EnvVars) GetBaseURL() string {
	return strings.TrimSuffix(e.BaseURL, "/")
}

// GetNamespace is the route prefix without slashes
func (e EnvVars) GetNamespace() string {
	return strings.Trim(e.Namespace, "/")
}
