package sso

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	gwerrors "github.com/jrsteele09/go-cloud-gateway/internal/errors"
	"golang.org/x/crypto/hkdf"
)

// MinPasswordLength is the shortest cookie password accepted
const MinPasswordLength = 32

var (
	sessionKeyInfo = []byte("gateway.session.v1")
	stateKeyInfo   = []byte("gateway.sso-state.v1")
)

// Session is the whole session record. It only ever exists inside the sealed cookie.
type Session struct {
	ID        string        `json:"sid"`
	Principal string        `json:"sub"`
	Token     string        `json:"tok,omitempty"`
	CSRF      string        `json:"csrf"`
	IssuedAt  time.Time     `json:"iat"`
	TTL       time.Duration `json:"ttl"`
}

// Expired reports whether now is outside [IssuedAt, IssuedAt+TTL). A positive limit caps
// the lifetime, so lowering the configured TTL also shortens sessions already issued.
func (s *Session) Expired(now time.Time, limit time.Duration) bool {
	ttl := s.TTL
	if limit > 0 && limit < ttl {
		ttl = limit
	}
	return !now.Before(s.IssuedAt.Add(ttl))
}

// Sealer encrypts sessions into opaque cookie values (JWE, dir + A256GCM)
type Sealer struct {
	key []byte
}

// NewSealer derives the sealing key from the cookie password
func NewSealer(password string) (*Sealer, error) {
	key, err := deriveKey(password, sessionKeyInfo)
	if err != nil {
		return nil, err
	}
	return &Sealer{key: key}, nil
}

// Seal encrypts s. The result is safe to use as a cookie value.
func (k *Sealer) Seal(s *Session) (string, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}
	enc, err := jose.NewEncrypter(jose.A256GCM, jose.Recipient{Algorithm: jose.DIRECT, Key: k.key}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create encrypter: %w", err)
	}
	obj, err := enc.Encrypt(payload)
	if err != nil {
		return "", fmt.Errorf("failed to seal session: %w", err)
	}
	return obj.CompactSerialize()
}

// Open decrypts and authenticates a cookie value. Every failure is ErrSessionInvalid.
func (k *Sealer) Open(value string) (*Session, error) {
	obj, err := jose.ParseEncrypted(value, []jose.KeyAlgorithm{jose.DIRECT}, []jose.ContentEncryption{jose.A256GCM})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gwerrors.ErrSessionInvalid, err)
	}
	payload, err := obj.Decrypt(k.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gwerrors.ErrSessionInvalid, err)
	}
	var s Session
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", gwerrors.ErrSessionInvalid, err)
	}
	if s.ID == "" || s.Principal == "" || s.TTL <= 0 {
		return nil, fmt.Errorf("%w: incomplete session", gwerrors.ErrSessionInvalid)
	}
	return &s, nil
}

func deriveKey(password string, info []byte) ([]byte, error) {
	if len(password) < MinPasswordLength {
		return nil, gwerrors.Configurationf("cookie password must be at least %d characters", MinPasswordLength)
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(password), nil, info), key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}
