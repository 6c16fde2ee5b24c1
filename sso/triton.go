package sso

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-cloud-gateway/auth"
	gwerrors "github.com/jrsteele09/go-cloud-gateway/internal/errors"
	"github.com/jrsteele09/go-cloud-gateway/upstream"
)

// DefaultPermissions is requested from the SSO service on every login
var DefaultPermissions = map[string][]string{"cloudapi": {"/my/*"}}

// TritonOptions configures the Triton SSO exchanger
type TritonOptions struct {
	SSOURL      string // e.g. https://sso.example.com
	CallbackURL string // Absolute URL of the gateway's callback route
	Permissions map[string][]string
}

// TritonExchanger logs in through the Triton SSO service. The login URL is signed with
// the operator key; the token handed back is checked against cloudapi's /my.
type TritonExchanger struct {
	opts     TritonOptions
	cloudapi *upstream.Client
	now      func() time.Time
}

// NewTritonExchanger creates the exchanger. cloudapi signs both the login URL and the
// account lookup.
func NewTritonExchanger(cloudapi *upstream.Client, opts TritonOptions) (*TritonExchanger, error) {
	if cloudapi == nil {
		return nil, gwerrors.Configurationf("triton sso requires a cloudapi upstream")
	}
	if _, err := url.ParseRequestURI(opts.SSOURL); err != nil {
		return nil, gwerrors.Configurationf("invalid sso url %q", opts.SSOURL)
	}
	if _, err := url.ParseRequestURI(opts.CallbackURL); err != nil {
		return nil, gwerrors.Configurationf("invalid sso callback url %q", opts.CallbackURL)
	}
	if opts.Permissions == nil {
		opts.Permissions = DefaultPermissions
	}
	return &TritonExchanger{opts: opts, cloudapi: cloudapi, now: time.Now}, nil
}

// WithClock overrides the time source, used by tests
func (e *TritonExchanger) WithClock(now func() time.Time) *TritonExchanger {
	e.now = now
	return e
}

// AuthURL builds <sso>/login?keyid&nonce&now&permissions&returnto&sig
func (e *TritonExchanger) AuthURL(state, nonce string) (string, error) {
	permissions, err := json.Marshal(e.opts.Permissions)
	if err != nil {
		return "", fmt.Errorf("failed to encode permissions: %w", err)
	}
	returnTo, err := url.Parse(e.opts.CallbackURL)
	if err != nil {
		return "", err
	}
	q := returnTo.Query()
	q.Set("state", state)
	returnTo.RawQuery = q.Encode()

	params := url.Values{}
	params.Set("keyid", e.cloudapi.Signer().KeyID())
	params.Set("nonce", nonce)
	params.Set("now", e.now().UTC().Format(http.TimeFormat))
	params.Set("permissions", string(permissions))
	params.Set("returnto", returnTo.String())

	loginURL := strings.TrimSuffix(e.opts.SSOURL, "/") + "/login?" + params.Encode()
	sig, err := e.cloudapi.Signer().SignString(loginURL)
	if err != nil {
		return "", fmt.Errorf("failed to sign login url: %w", err)
	}
	return loginURL + "&sig=" + url.QueryEscape(sig), nil
}

// Exchange resolves the callback token to the account login through GET /my
func (e *TritonExchanger) Exchange(ctx context.Context, callback *http.Request, _ string) (*Account, error) {
	token := callback.URL.Query().Get("token")
	if token == "" {
		return nil, fmt.Errorf("%w: callback without token", gwerrors.ErrAuthenticationFailed)
	}

	req, err := e.cloudapi.NewRequest(ctx, http.MethodGet, "/my", nil, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := e.cloudapi.Do(req, &auth.Identity{Mechanism: auth.MechanismSSO, Token: token})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: sso token rejected by %s", gwerrors.ErrAuthenticationFailed, e.cloudapi.Name())
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: %s returned %d", gwerrors.ErrUpstreamUnavailable, e.cloudapi.Name(), resp.StatusCode)
	}

	var account struct {
		Login string `json:"login"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&account); err != nil {
		return nil, fmt.Errorf("%w: failed to decode account: %v", gwerrors.ErrUpstreamUnavailable, err)
	}
	if account.Login == "" {
		return nil, fmt.Errorf("%w: account without login", gwerrors.ErrAuthenticationFailed)
	}
	return &Account{Login: account.Login, Token: token}, nil
}
