package auth

import (
	"crypto"

	"github.com/jrsteele09/go-cloud-gateway/signature"
)

// CountVerifications wraps the strategy's verifier and returns a pointer to the call count
func (b *Bearer) CountVerifications() *int {
	calls := new(int)
	inner := b.verify
	b.verify = func(pub crypto.PublicKey, keyType signature.KeyType, alg signature.Algorithm, data, sig []byte) error {
		*calls++
		return inner(pub, keyType, alg, data, sig)
	}
	return calls
}
