package sso

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	gwerrors "github.com/jrsteele09/go-cloud-gateway/internal/errors"
)

// DefaultStateTTL bounds how long a login round trip through the identity provider may take
const DefaultStateTTL = 10 * time.Minute

// State is the transient record of one login attempt
type State struct {
	ID       string // Echoed back by the identity provider
	Nonce    string
	ReturnTo string
}

type stateClaims struct {
	Nonce    string `json:"nonce"`
	ReturnTo string `json:"rt"`
	jwtlib.RegisteredClaims
}

// StateCodec signs login state into a short-lived HS256 token kept in a cookie
type StateCodec struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewStateCodec derives the state signing key from the cookie password
func NewStateCodec(password string, ttl time.Duration) (*StateCodec, error) {
	key, err := deriveKey(password, stateKeyInfo)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateCodec{key: key, ttl: ttl, now: time.Now}, nil
}

// WithClock overrides the time source, used by tests
func (c *StateCodec) WithClock(now func() time.Time) *StateCodec {
	c.now = now
	return c
}

// TTL is the lifetime of issued state tokens
func (c *StateCodec) TTL() time.Duration { return c.ttl }

// Issue signs st
func (c *StateCodec) Issue(st State) (string, error) {
	now := c.now()
	claims := stateClaims{
		Nonce:    st.Nonce,
		ReturnTo: st.ReturnTo,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        st.ID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(c.ttl)),
		},
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	return signed, nil
}

// Parse verifies a state token. Every failure is ErrStateInvalid.
func (c *StateCodec) Parse(token string) (*State, error) {
	var claims stateClaims
	_, err := jwtlib.ParseWithClaims(token, &claims, func(*jwtlib.Token) (interface{}, error) {
		return c.key, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gwerrors.ErrStateInvalid, err)
	}
	if claims.ID == "" || claims.Nonce == "" {
		return nil, fmt.Errorf("%w: incomplete state", gwerrors.ErrStateInvalid)
	}
	return &State{ID: claims.ID, Nonce: claims.Nonce, ReturnTo: claims.ReturnTo}, nil
}
