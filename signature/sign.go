package signature

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	gwerrors "github.com/jrsteele09/go-cloud-gateway/internal/errors"
)

// Sign produces a signature over data. RSA keys sign PKCS#1 v1.5, ECDSA keys produce ASN.1 DER.
func Sign(key crypto.Signer, alg Algorithm, data []byte) ([]byte, error) {
	h, err := alg.Hash()
	if err != nil {
		return nil, err
	}
	if _, err := KeyTypeOf(key.Public()); err != nil {
		return nil, err
	}
	digest := h.New()
	digest.Write(data)
	sig, err := key.Sign(rand.Reader, digest.Sum(nil), h)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	return sig, nil
}

// Verify checks sig over data. keyType and alg are what the signer claimed; a key of a
// different type or an unsupported digest is rejected rather than tried another way.
func Verify(pub crypto.PublicKey, keyType KeyType, alg Algorithm, data, sig []byte) error {
	h, err := alg.Hash()
	if err != nil {
		return err
	}
	actual, err := KeyTypeOf(pub)
	if err != nil {
		return err
	}
	if actual != keyType {
		return fmt.Errorf("%w: key is %s, signature claims %s", gwerrors.ErrAlgorithmMismatch, actual, keyType)
	}

	digest := h.New()
	digest.Write(data)
	sum := digest.Sum(nil)

	switch k := pub.(type) {
	case *rsa.PublicKey:
		if err := rsa.VerifyPKCS1v15(k, h, sum, sig); err != nil {
			return gwerrors.ErrSignatureInvalid
		}
	case *ecdsa.PublicKey:
		if !ecdsa.VerifyASN1(k, sum, sig) {
			return gwerrors.ErrSignatureInvalid
		}
	}
	return nil
}

// Encode renders signature bytes for a header
func Encode(sig []byte, enc Encoding) (string, error) {
	switch enc {
	case Base64:
		return base64.StdEncoding.EncodeToString(sig), nil
	case Hex:
		return hex.EncodeToString(sig), nil
	default:
		return "", fmt.Errorf("%w: encoding %q", gwerrors.ErrUnsupportedAlgorithm, string(enc))
	}
}

// Decode parses signature bytes from a header
func Decode(value string, enc Encoding) ([]byte, error) {
	var (
		sig []byte
		err error
	)
	switch enc {
	case Base64:
		sig, err = base64.StdEncoding.DecodeString(value)
	case Hex:
		sig, err = hex.DecodeString(value)
	default:
		return nil, fmt.Errorf("%w: encoding %q", gwerrors.ErrUnsupportedAlgorithm, string(enc))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gwerrors.ErrMalformedSignatureHeader, err)
	}
	return sig, nil
}
