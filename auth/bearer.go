package auth

import (
	"crypto"
	"fmt"
	"net/http"
	"strings"
	"time"

	gwerrors "github.com/jrsteele09/go-cloud-gateway/internal/errors"
	"github.com/jrsteele09/go-cloud-gateway/signature"
	"github.com/jrsteele09/go-cloud-gateway/tenants"
)

// DefaultClockSkew bounds how far a signed Date may drift from the gateway clock
const DefaultClockSkew = 5 * time.Minute

// BearerOptions configures the signature strategy
type BearerOptions struct {
	Name            string        // Strategy name routes bind to (default "bearer")
	Realm           string        // WWW-Authenticate realm
	ClockSkew       time.Duration // Allowed Date drift (default DefaultClockSkew)
	RequiredHeaders []string      // Headers every signature must cover
}

// Bearer authenticates service callers by HTTP signature against the tenant store.
// It is stateless per request and never reads or writes cookies.
type Bearer struct {
	opts    BearerOptions
	tenants tenants.Repo
	decoy   *tenants.Tenant
	now     func() time.Time
	verify  verifyFunc
}

type verifyFunc func(pub crypto.PublicKey, keyType signature.KeyType, alg signature.Algorithm, data, sig []byte) error

var _ Strategy = (*Bearer)(nil)

// NewBearer creates the strategy over a tenant store
func NewBearer(repo tenants.Repo, opts BearerOptions) (*Bearer, error) {
	if repo == nil || len(repo.List()) == 0 {
		return nil, gwerrors.Configurationf("bearer strategy needs at least one tenant")
	}
	if opts.Name == "" {
		opts.Name = string(KindBearer)
	}
	if opts.Realm == "" {
		opts.Realm = "gateway"
	}
	if opts.ClockSkew <= 0 {
		opts.ClockSkew = DefaultClockSkew
	}
	if len(opts.RequiredHeaders) == 0 {
		opts.RequiredHeaders = signature.DefaultHeaders
	}
	return &Bearer{
		opts:    opts,
		tenants: repo,
		decoy:   repo.List()[0],
		now:     time.Now,
		verify:  signature.Verify,
	}, nil
}

// WithClock overrides the time source, used by tests
func (b *Bearer) WithClock(now func() time.Time) *Bearer {
	b.now = now
	return b
}

func (b *Bearer) Name() string { return b.opts.Name }

func (b *Bearer) Kind() Kind { return KindBearer }

// Authenticate walks NoHeader -> Parsed -> Verified | Rejected
func (b *Bearer) Authenticate(_ http.ResponseWriter, r *http.Request) (*Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, gwerrors.ErrNoCredentials
	}
	scheme, params, err := signature.ParseAuthorization(header)
	if err != nil {
		return nil, rejected(err)
	}
	if scheme == "" {
		return nil, gwerrors.ErrNoCredentials
	}

	for _, h := range b.opts.RequiredHeaders {
		if !params.Covers(h) {
			return nil, rejected(fmt.Errorf("%w: signature must cover %s", gwerrors.ErrMalformedSignatureHeader, h))
		}
	}
	if err := b.checkDate(r); err != nil {
		return nil, rejected(err)
	}
	keyType, alg, err := signature.ParseAlgorithm(params.Algorithm)
	if err != nil {
		return nil, rejected(err)
	}
	signingString, err := signature.SigningString(r, params.Headers)
	if err != nil {
		return nil, rejected(err)
	}

	tenant, known := b.tenants.Find(params.KeyID)
	candidate := tenant
	if !known {
		candidate = b.decoy
	}
	sig, decodeErr := signature.Decode(params.Signature, candidate.Encoding)
	if decodeErr != nil {
		sig = []byte(params.Signature)
	}
	// Every outcome from here on pays for exactly one verification, so a known key id
	// cannot be told apart from an unknown one by timing
	verifyErr := b.verify(candidate.PublicKey, keyType, alg, []byte(signingString), sig)

	switch {
	case !known:
		return nil, rejected(gwerrors.ErrTenantNotFound)
	case alg != tenant.Algorithm:
		return nil, rejected(fmt.Errorf("%w: tenant requires %s, signature states %s", gwerrors.ErrAlgorithmMismatch, tenant.Algorithm, alg))
	case decodeErr != nil:
		return nil, rejected(decodeErr)
	case verifyErr != nil:
		return nil, rejected(verifyErr)
	}

	return &Identity{Principal: tenant.Identity, Mechanism: MechanismBearer}, nil
}

// Unauthorized writes the uniform 401 with a Signature challenge
func (b *Bearer) Unauthorized(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Signature realm="%s",headers="%s"`,
		b.opts.Realm, strings.Join(b.opts.RequiredHeaders, " ")))
	WriteUnauthorized(w)
}

func (b *Bearer) checkDate(r *http.Request) error {
	value := r.Header.Get("Date")
	if value == "" {
		return fmt.Errorf("%w: missing date header", gwerrors.ErrMalformedSignatureHeader)
	}
	date, err := http.ParseTime(value)
	if err != nil {
		return fmt.Errorf("%w: %v", gwerrors.ErrMalformedSignatureHeader, err)
	}
	drift := b.now().Sub(date)
	if drift < 0 {
		drift = -drift
	}
	if drift > b.opts.ClockSkew {
		return fmt.Errorf("%w: %s", gwerrors.ErrClockSkew, drift)
	}
	return nil
}

func rejected(err error) error {
	return fmt.Errorf("%w: %w", gwerrors.ErrAuthenticationFailed, err)
}
