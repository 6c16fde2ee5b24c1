package sso

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	gwerrors "github.com/jrsteele09/go-cloud-gateway/internal/errors"
	"golang.org/x/oauth2"
)

// OIDCOptions configures the OpenID Connect exchanger
type OIDCOptions struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string
	HTTPClient   *http.Client // Used for discovery, token and key requests
}

// OIDCExchanger logs in through any OpenID Connect provider with the authorization code flow
type OIDCExchanger struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
	client   *http.Client
}

// NewOIDCExchanger runs provider discovery. It is called once at startup.
func NewOIDCExchanger(ctx context.Context, opts OIDCOptions) (*OIDCExchanger, error) {
	if opts.Issuer == "" || opts.ClientID == "" {
		return nil, gwerrors.Configurationf("oidc sso requires an issuer and client id")
	}
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, client), opts.Issuer)
	if err != nil {
		return nil, gwerrors.Configurationf("failed to create OIDC provider: %v", err)
	}
	scopes := opts.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}
	return &OIDCExchanger{
		oauth: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  opts.CallbackURL,
			Scopes:       scopes,
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: opts.ClientID}),
		client:   client,
	}, nil
}

func (e *OIDCExchanger) AuthURL(state, nonce string) (string, error) {
	return e.oauth.AuthCodeURL(state, oidc.Nonce(nonce)), nil
}

// Exchange redeems the authorization code and verifies the ID token and its nonce
func (e *OIDCExchanger) Exchange(ctx context.Context, callback *http.Request, nonce string) (*Account, error) {
	q := callback.URL.Query()
	if errParam := q.Get("error"); errParam != "" {
		return nil, fmt.Errorf("%w: provider returned %s", gwerrors.ErrAuthenticationFailed, errParam)
	}
	code := q.Get("code")
	if code == "" {
		return nil, fmt.Errorf("%w: callback without code", gwerrors.ErrAuthenticationFailed)
	}

	ctx = oidc.ClientContext(ctx, e.client)
	token, err := e.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, classifyExchangeError(ctx, err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("%w: no id token in response", gwerrors.ErrAuthenticationFailed)
	}
	idToken, err := e.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: id token verification failed: %v", gwerrors.ErrAuthenticationFailed, err)
	}

	var claims struct {
		Nonce             string `json:"nonce"`
		Subject           string `json:"sub"`
		PreferredUsername string `json:"preferred_username"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: failed to extract claims: %v", gwerrors.ErrAuthenticationFailed, err)
	}
	if claims.Nonce != nonce {
		return nil, fmt.Errorf("%w: nonce mismatch", gwerrors.ErrAuthenticationFailed)
	}

	login := claims.PreferredUsername
	if login == "" {
		login = claims.Subject
	}
	return &Account{Login: login, Token: token.AccessToken}, nil
}

func classifyExchangeError(ctx context.Context, err error) error {
	var retrieveErr *oauth2.RetrieveError
	switch {
	case errors.As(err, &retrieveErr):
		return fmt.Errorf("%w: token endpoint rejected code: %v", gwerrors.ErrAuthenticationFailed, err)
	case ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: oidc token exchange: %v", gwerrors.ErrUpstreamTimeout, err)
	default:
		return fmt.Errorf("%w: oidc token exchange: %v", gwerrors.ErrUpstreamUnavailable, err)
	}
}
