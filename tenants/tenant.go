package tenants

import (
	"crypto"

	"github.com/jrsteele09/go-cloud-gateway/signature"
)

// Tenant is a service caller allowed to authenticate with an HTTP signature.
// Each tenant binds one public key to the identity it authenticates as.
type Tenant struct {
	KeyID       string              // Key id as written by the caller (e.g. "/account/keys/aa:bb:...")
	Fingerprint string              // Legacy MD5 fingerprint of PublicKey
	PublicKey   crypto.PublicKey    // Verification key
	Algorithm   signature.Algorithm // Digest the caller must state
	Encoding    signature.Encoding  // How the caller encodes signature bytes
	Identity    string              // Principal the tenant authenticates as
}

// New builds a tenant, deriving the fingerprint and defaulting the key id to it
func New(identity string, pub crypto.PublicKey, alg signature.Algorithm, enc signature.Encoding) (*Tenant, error) {
	if _, err := signature.KeyTypeOf(pub); err != nil {
		return nil, err
	}
	if _, err := alg.Hash(); err != nil {
		return nil, err
	}
	if _, err := signature.ParseEncoding(string(enc)); err != nil {
		return nil, err
	}
	fp, err := signature.Fingerprint(pub)
	if err != nil {
		return nil, err
	}
	return &Tenant{
		KeyID:       signature.AccountKeyID(identity, fp),
		Fingerprint: fp,
		PublicKey:   pub,
		Algorithm:   alg,
		Encoding:    enc,
		Identity:    identity,
	}, nil
}

// Matches reports whether keyID names this tenant, either verbatim or by fingerprint
func (t *Tenant) Matches(keyID string) bool {
	if keyID == t.KeyID {
		return true
	}
	return keyID == t.Fingerprint || keyID == signature.AccountKeyID(t.Identity, t.Fingerprint)
}
