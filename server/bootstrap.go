package server

import (
	"context"
	"crypto"
	"fmt"
	"io/fs"
	"net/http"
	"os"

	"github.com/jrsteele09/go-cloud-gateway/auth"
	"github.com/jrsteele09/go-cloud-gateway/csrf"
	"github.com/jrsteele09/go-cloud-gateway/internal/config"
	gwerrors "github.com/jrsteele09/go-cloud-gateway/internal/errors"
	"github.com/jrsteele09/go-cloud-gateway/metrics"
	"github.com/jrsteele09/go-cloud-gateway/signature"
	"github.com/jrsteele09/go-cloud-gateway/sso"
	"github.com/jrsteele09/go-cloud-gateway/tenants"
	"github.com/jrsteele09/go-cloud-gateway/upstream"
	"github.com/rs/zerolog/log"
)

// Bootstrap builds every collaborator from configuration and returns the server. Keys,
// tenants and upstream settings are loaded here once and never change afterwards; any
// problem is a configuration error that should stop the process.
func Bootstrap(ctx context.Context, cfg config.Config) (*Server, error) {
	s, err := bootstrap(ctx, cfg)
	if err != nil && !gwerrors.Is(err, gwerrors.ErrConfiguration) {
		return nil, fmt.Errorf("%w: %w", gwerrors.ErrConfiguration, err)
	}
	return s, err
}

func bootstrap(ctx context.Context, cfg config.Config) (*Server, error) {
	m := metrics.New()

	signer, err := signature.LoadSigner(cfg.GetSDCKeyPath())
	if err != nil {
		return nil, err
	}
	keyID := cfg.GetSDCKeyID()
	if keyID == "" {
		if keyID, err = signature.Fingerprint(signer.Public()); err != nil {
			return nil, gwerrors.Configurationf("operator key fingerprint: %v", err)
		}
	}
	accountKeyID := signature.AccountKeyID(cfg.GetSDCAccount(), keyID)
	log.Info().Str("key_id", accountKeyID).Msg("operator key loaded")

	operatorKey, err := operatorPublicKey(cfg.GetSDCKeyPath(), signer)
	if err != nil {
		return nil, err
	}
	bearer, err := bootstrapBearer(cfg, operatorKey, accountKeyID)
	if err != nil {
		return nil, err
	}

	upstreams, err := bootstrapUpstreams(cfg, accountKeyID, m)
	if err != nil {
		return nil, err
	}

	exchanger, err := bootstrapExchanger(ctx, cfg, upstreams)
	if err != nil {
		return nil, err
	}

	guard := csrf.New(csrf.Options{
		Domain: cfg.GetCookieDomain(),
		Secure: cfg.GetCookieSecure(),
		TTL:    cfg.GetSessionTTL(),
	})
	strategy, err := sso.New(exchanger, guard, sso.Options{
		Password:        cfg.GetCookiePassword(),
		Domain:          cfg.GetCookieDomain(),
		Secure:          cfg.GetCookieSecure(),
		HTTPOnly:        cfg.GetCookieHTTPOnly(),
		TTL:             cfg.GetSessionTTL(),
		KeepAlive:       cfg.GetSessionKeepAlive(),
		ExchangeTimeout: cfg.GetExchangeTimeout(),
	})
	if err != nil {
		return nil, err
	}

	registry, err := auth.NewRegistry(strategy, bearer)
	if err != nil {
		return nil, err
	}

	return New(cfg, Deps{
		Registry:  registry.WithObserver(m),
		SSO:       strategy,
		Upstreams: upstreams,
		Metrics:   m,
	})
}

// operatorPublicKey reads "<key>.pub" when present and insists it belongs to the private key
func operatorPublicKey(keyPath string, signer crypto.Signer) (crypto.PublicKey, error) {
	pubPath := keyPath + ".pub"
	if _, err := os.Stat(pubPath); gwerrors.Is(err, fs.ErrNotExist) {
		return signer.Public(), nil
	}
	pub, err := signature.LoadPublicKey(pubPath)
	if err != nil {
		return nil, err
	}
	if k, ok := pub.(interface{ Equal(crypto.PublicKey) bool }); !ok || !k.Equal(signer.Public()) {
		return nil, gwerrors.Configurationf("%s does not match %s", pubPath, keyPath)
	}
	return pub, nil
}

// bootstrapBearer registers the operator account as a tenant, plus any tenants file
func bootstrapBearer(cfg config.Config, operatorKey crypto.PublicKey, accountKeyID string) (*auth.Bearer, error) {
	operator, err := tenants.New(cfg.GetSDCAccount(), operatorKey, signature.SHA256, signature.Base64)
	if err != nil {
		return nil, gwerrors.Configurationf("operator tenant: %v", err)
	}
	operator.KeyID = accountKeyID
	all := []*tenants.Tenant{operator}

	if path := cfg.GetTenantsFile(); path != "" {
		extra, err := tenants.LoadFile(path)
		if err != nil {
			return nil, err
		}
		all = append(all, extra...)
	}
	store, err := tenants.NewStore(all...)
	if err != nil {
		return nil, err
	}
	log.Info().Int("tenants", len(store.List())).Msg("bearer tenants loaded")

	return auth.NewBearer(store, auth.BearerOptions{
		Name:      StrategyBearer,
		ClockSkew: cfg.GetClockSkew(),
	})
}

func bootstrapUpstreams(cfg config.Config, accountKeyID string, observer upstream.Observer) (*upstream.Set, error) {
	var contexts []upstream.SigningContext
	for name, baseURL := range cfg.GetUpstreamURLs() {
		contexts = append(contexts, upstream.SigningContext{
			Name:    name,
			KeyID:   accountKeyID,
			KeyPath: cfg.GetSDCKeyPath(),
			BaseURL: baseURL,
		})
	}
	return upstream.NewSet(contexts, upstream.Options{
		Timeout:   cfg.GetUpstreamTimeout(),
		Algorithm: signature.SHA256,
		Observer:  observer,
	})
}

func bootstrapExchanger(ctx context.Context, cfg config.Config, upstreams *upstream.Set) (sso.Exchanger, error) {
	callbackURL := cfg.GetBaseURL() + "/" + cfg.GetNamespace() + RouteCallback

	switch cfg.GetSSOProvider() {
	case config.SSOProviderOIDC:
		discoveryCtx, cancel := context.WithTimeout(ctx, cfg.GetExchangeTimeout())
		defer cancel()
		return sso.NewOIDCExchanger(discoveryCtx, sso.OIDCOptions{
			Issuer:       cfg.GetOIDCIssuer(),
			ClientID:     cfg.GetOIDCClientID(),
			ClientSecret: cfg.GetOIDCClientSecret(),
			CallbackURL:  callbackURL,
			HTTPClient:   &http.Client{Timeout: cfg.GetExchangeTimeout()},
		})
	case config.SSOProviderTriton:
		cloudapi, ok := upstreams.Get(config.UpstreamCloudAPI)
		if !ok {
			return nil, gwerrors.Configurationf("triton sso requires the %s upstream", config.UpstreamCloudAPI)
		}
		return sso.NewTritonExchanger(cloudapi, sso.TritonOptions{
			SSOURL:      cfg.GetSSOURL(),
			CallbackURL: callbackURL,
		})
	default:
		return nil, fmt.Errorf("%w: unknown sso provider %q", gwerrors.ErrConfiguration, cfg.GetSSOProvider())
	}
}
