package signature

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"fmt"
	"strings"

	gwerrors "github.com/jrsteele09/go-cloud-gateway/internal/errors"
)

// Algorithm is the digest half of an http-signature algorithm (e.g. "sha256").
// It is always stated explicitly by configuration or by the signer, never inferred.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	SHA384 Algorithm = "sha384"
	SHA512 Algorithm = "sha512"
)

// KeyType is the key half of an http-signature algorithm (e.g. "rsa").
type KeyType string

const (
	KeyTypeRSA   KeyType = "rsa"
	KeyTypeECDSA KeyType = "ecdsa"
)

// Encoding is how signature bytes travel in a header.
type Encoding string

const (
	Base64 Encoding = "base64"
	Hex    Encoding = "hex"
)

// Hash returns the crypto.Hash for the algorithm
func (a Algorithm) Hash() (crypto.Hash, error) {
	switch a {
	case SHA256:
		return crypto.SHA256, nil
	case SHA384:
		return crypto.SHA384, nil
	case SHA512:
		return crypto.SHA512, nil
	default:
		return 0, fmt.Errorf("%w: %q", gwerrors.ErrUnsupportedAlgorithm, string(a))
	}
}

// ParseAlgorithm splits a header algorithm such as "rsa-sha256" into its key type and digest.
func ParseAlgorithm(value string) (KeyType, Algorithm, error) {
	keyType, digest, ok := strings.Cut(strings.ToLower(strings.TrimSpace(value)), "-")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", gwerrors.ErrUnsupportedAlgorithm, value)
	}
	kt := KeyType(keyType)
	if kt != KeyTypeRSA && kt != KeyTypeECDSA {
		return "", "", fmt.Errorf("%w: key type %q", gwerrors.ErrUnsupportedAlgorithm, keyType)
	}
	alg := Algorithm(digest)
	if _, err := alg.Hash(); err != nil {
		return "", "", err
	}
	return kt, alg, nil
}

// FormatAlgorithm is the inverse of ParseAlgorithm
func FormatAlgorithm(kt KeyType, alg Algorithm) string {
	return string(kt) + "-" + string(alg)
}

// KeyTypeOf reports the key type of a public key
func KeyTypeOf(pub crypto.PublicKey) (KeyType, error) {
	switch pub.(type) {
	case *rsa.PublicKey:
		return KeyTypeRSA, nil
	case *ecdsa.PublicKey:
		return KeyTypeECDSA, nil
	default:
		return "", fmt.Errorf("%w: unsupported public key type %T", gwerrors.ErrInvalidKey, pub)
	}
}

// ParseEncoding validates an encoding name from configuration
func ParseEncoding(value string) (Encoding, error) {
	switch e := Encoding(strings.ToLower(value)); e {
	case Base64, Hex:
		return e, nil
	default:
		return "", fmt.Errorf("%w: unsupported signature encoding %q", gwerrors.ErrConfiguration, value)
	}
}
