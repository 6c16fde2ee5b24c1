package signature

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	gwerrors "github.com/jrsteele09/go-cloud-gateway/internal/errors"
	"golang.org/x/crypto/ssh"
)

// KeyPair is the operator's private key together with the key id it is known by upstream
type KeyPair struct {
	KeyID      string
	PrivateKey crypto.Signer
	PublicKey  crypto.PublicKey
	KeyType    KeyType
	Algorithm  Algorithm
}

// LoadKeyPair reads a private key from disk. It is meant to be called once at startup:
// any failure is a configuration error.
func LoadKeyPair(keyID, path string, alg Algorithm) (*KeyPair, error) {
	signer, err := LoadSigner(path)
	if err != nil {
		return nil, err
	}
	return NewKeyPair(keyID, signer, alg)
}

// LoadSigner reads a private key from disk. Any failure is a configuration error.
func LoadSigner(path string) (crypto.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, gwerrors.Configurationf("failed to read private key %s: %v", path, err)
	}
	signer, err := ParsePrivateKey(data)
	if err != nil {
		return nil, gwerrors.Configurationf("failed to load private key %s: %v", path, err)
	}
	return signer, nil
}

// NewKeyPair wraps an already parsed private key
func NewKeyPair(keyID string, signer crypto.Signer, alg Algorithm) (*KeyPair, error) {
	kt, err := KeyTypeOf(signer.Public())
	if err != nil {
		return nil, err
	}
	if _, err := alg.Hash(); err != nil {
		return nil, err
	}
	if keyID == "" {
		return nil, gwerrors.Configurationf("key id is required")
	}
	return &KeyPair{
		KeyID:      keyID,
		PrivateKey: signer,
		PublicKey:  signer.Public(),
		KeyType:    kt,
		Algorithm:  alg,
	}, nil
}

// Sign signs data with the pair's key and algorithm
func (kp *KeyPair) Sign(data []byte) ([]byte, error) {
	return Sign(kp.PrivateKey, kp.Algorithm, data)
}

// HeaderAlgorithm returns the algorithm as written in a Signature header (e.g. "rsa-sha256")
func (kp *KeyPair) HeaderAlgorithm() string {
	return FormatAlgorithm(kp.KeyType, kp.Algorithm)
}

// ParsePrivateKey accepts PKCS#1, PKCS#8, SEC1 and OpenSSH encoded keys
func ParsePrivateKey(data []byte) (crypto.Signer, error) {
	raw, err := ssh.ParseRawPrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gwerrors.ErrInvalidKey, err)
	}
	signer, ok := raw.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported private key type %T", gwerrors.ErrInvalidKey, raw)
	}
	if _, err := KeyTypeOf(signer.Public()); err != nil {
		return nil, err
	}
	return signer, nil
}

// LoadPublicKey reads a public key file, typically the ".pub" next to the operator key
func LoadPublicKey(path string) (crypto.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, gwerrors.Configurationf("failed to read public key %s: %v", path, err)
	}
	pub, err := ParsePublicKey(data)
	if err != nil {
		return nil, gwerrors.Configurationf("failed to load public key %s: %v", path, err)
	}
	return pub, nil
}

// ParsePublicKey accepts an authorized_keys style line ("ssh-rsa AAAA... comment")
// or a PEM encoded PKIX / PKCS#1 public key.
func ParsePublicKey(data []byte) (crypto.PublicKey, error) {
	if !strings.HasPrefix(strings.TrimSpace(string(data)), "-----BEGIN") {
		sshKey, _, _, _, err := ssh.ParseAuthorizedKey(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", gwerrors.ErrInvalidKey, err)
		}
		cryptoKey, ok := sshKey.(ssh.CryptoPublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: ssh key type %s", gwerrors.ErrInvalidKey, sshKey.Type())
		}
		pub := cryptoKey.CryptoPublicKey()
		if _, err := KeyTypeOf(pub); err != nil {
			return nil, err
		}
		return pub, nil
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: failed to decode PEM block", gwerrors.ErrInvalidKey)
	}
	var (
		pub crypto.PublicKey
		err error
	)
	switch block.Type {
	case "RSA PUBLIC KEY":
		pub, err = x509.ParsePKCS1PublicKey(block.Bytes)
	default:
		pub, err = x509.ParsePKIXPublicKey(block.Bytes)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gwerrors.ErrInvalidKey, err)
	}
	if _, err := KeyTypeOf(pub); err != nil {
		return nil, err
	}
	return pub, nil
}

// Fingerprint returns the legacy MD5 fingerprint ("aa:bb:...") used in Triton key ids
func Fingerprint(pub crypto.PublicKey) (string, error) {
	sshKey, err := ssh.NewPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("%w: %v", gwerrors.ErrInvalidKey, err)
	}
	return ssh.FingerprintLegacyMD5(sshKey), nil
}

// AccountKeyID builds the "/<account>/keys/<id>" key id expected by cloudapi
func AccountKeyID(account, keyID string) string {
	return "/" + account + "/keys/" + keyID
}
