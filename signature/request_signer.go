package signature

import (
	"net/http"
	"time"
)

// RequestSigner signs outbound requests with the operator key
type RequestSigner struct {
	keyPair *KeyPair
	headers []string
	now     func() time.Time
}

// NewRequestSigner creates a signer covering DefaultHeaders
func NewRequestSigner(keyPair *KeyPair) *RequestSigner {
	return &RequestSigner{
		keyPair: keyPair,
		headers: DefaultHeaders,
		now:     time.Now,
	}
}

// WithClock overrides the time source, used by tests
func (s *RequestSigner) WithClock(now func() time.Time) *RequestSigner {
	s.now = now
	return s
}

// KeyID returns the key id written into signatures
func (s *RequestSigner) KeyID() string {
	return s.keyPair.KeyID
}

// SignRequest stamps a fresh Date header and sets Authorization. It is safe to call again
// on a retried request: every call produces a new timestamp and signature.
func (s *RequestSigner) SignRequest(r *http.Request) error {
	r.Header.Set("Date", s.now().UTC().Format(http.TimeFormat))
	signingString, err := SigningString(r, s.headers)
	if err != nil {
		return err
	}
	sig, err := s.keyPair.Sign([]byte(signingString))
	if err != nil {
		return err
	}
	value, err := Encode(sig, Base64)
	if err != nil {
		return err
	}
	params := Parameters{
		KeyID:     s.keyPair.KeyID,
		Algorithm: s.keyPair.HeaderAlgorithm(),
		Headers:   s.headers,
		Signature: value,
	}
	r.Header.Set("Authorization", SchemeSignature+" "+params.String())
	return nil
}

// SignString signs an arbitrary string and returns it base64 encoded
func (s *RequestSigner) SignString(value string) (string, error) {
	sig, err := s.keyPair.Sign([]byte(value))
	if err != nil {
		return "", err
	}
	return Encode(sig, Base64)
}
