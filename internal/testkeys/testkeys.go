// Package testkeys writes throwaway operator keys for tests.
package testkeys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/ssh"
)

// Key is a generated key written to disk as "<Path>" and "<Path>.pub"
type Key struct {
	Path    string
	Private crypto.Signer
	Public  crypto.PublicKey
}

// RSA generates a 2048 bit RSA key in t.TempDir()
func RSA(t testing.TB) Key {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)}
	return write(t, "id_rsa", block, priv)
}

// ECDSA generates a P-256 key in t.TempDir()
func ECDSA(t testing.TB) Key {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate ecdsa key: %v", err)
	}
	der, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		t.Fatalf("marshal ecdsa key: %v", err)
	}
	return write(t, "id_ecdsa", &pem.Block{Type: "EC PRIVATE KEY", Bytes: der}, priv)
}

func write(t testing.TB, name string, block *pem.Block, priv crypto.Signer) Key {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatalf("write private key: %v", err)
	}
	sshPub, err := ssh.NewPublicKey(priv.Public())
	if err != nil {
		t.Fatalf("ssh public key: %v", err)
	}
	if err := os.WriteFile(path+".pub", ssh.MarshalAuthorizedKey(sshPub), 0o644); err != nil {
		t.Fatalf("write public key: %v", err)
	}
	return Key{Path: path, Private: priv, Public: priv.Public()}
}
