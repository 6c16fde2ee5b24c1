package errors

import (
	"errors"
	"fmt"
)

// Common error types for the gateway
var (
	// Startup errors
	ErrConfiguration = errors.New("configuration error")
	ErrInvalidKey    = errors.New("invalid key material")

	// Authentication errors
	ErrNoCredentials            = errors.New("no credentials supplied")
	ErrAuthenticationFailed     = errors.New("authentication failed")
	ErrMalformedSignatureHeader = errors.New("malformed signature header")
	ErrSignatureInvalid         = errors.New("signature invalid")
	ErrAlgorithmMismatch        = errors.New("algorithm mismatch")
	ErrUnsupportedAlgorithm     = errors.New("unsupported algorithm")
	ErrClockSkew                = errors.New("date outside allowed clock skew")
	ErrTenantNotFound           = errors.New("tenant not found")
	ErrUnknownStrategy          = errors.New("unknown authentication strategy")
	ErrDuplicateStrategy        = errors.New("duplicate authentication strategy")

	// Session errors
	ErrSessionInvalid = errors.New("session invalid")
	ErrStateInvalid   = errors.New("sso state invalid")

	// CSRF errors
	ErrCSRF = errors.New("csrf token missing or mismatched")

	// Upstream errors
	ErrUpstreamTimeout     = errors.New("upstream timeout")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrUnknownUpstream     = errors.New("unknown upstream")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Configurationf builds an ErrConfiguration with a formatted reason
func Configurationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrConfiguration}, args...)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
