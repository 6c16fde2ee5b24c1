package tenants

import (
	"os"
	"path/filepath"

	gwerrors "github.com/jrsteele09/go-cloud-gateway/internal/errors"
	"github.com/jrsteele09/go-cloud-gateway/signature"
	"gopkg.in/yaml.v3"
)

// fileEntry is one tenant in a tenants YAML file:
//
//	tenants:
//	  - identity: ops-bot
//	    key_id: /ops-bot/keys/aa:bb:...   # optional, defaults to the fingerprint form
//	    public_key_path: keys/ops-bot.pub # relative to the file
//	    algorithm: sha256
//	    encoding: base64
type fileEntry struct {
	Identity      string `yaml:"identity"`
	KeyID         string `yaml:"key_id"`
	PublicKey     string `yaml:"public_key"`
	PublicKeyPath string `yaml:"public_key_path"`
	Algorithm     string `yaml:"algorithm"`
	Encoding      string `yaml:"encoding"`
}

type file struct {
	Tenants []fileEntry `yaml:"tenants"`
}

// LoadFile reads additional tenants from a YAML file
func LoadFile(path string) ([]*Tenant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, gwerrors.Configurationf("failed to read tenants file %s: %v", path, err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, gwerrors.Configurationf("failed to parse tenants file %s: %v", path, err)
	}

	result := make([]*Tenant, 0, len(f.Tenants))
	for i, e := range f.Tenants {
		t, err := e.toTenant(filepath.Dir(path))
		if err != nil {
			return nil, gwerrors.Configurationf("tenant %d in %s: %v", i, path, err)
		}
		result = append(result, t)
	}
	return result, nil
}

func (e fileEntry) toTenant(baseDir string) (*Tenant, error) {
	var keyData []byte
	switch {
	case e.PublicKey != "":
		keyData = []byte(e.PublicKey)
	case e.PublicKeyPath != "":
		path := e.PublicKeyPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		keyData = data
	default:
		return nil, gwerrors.Configurationf("public_key or public_key_path is required")
	}
	pub, err := signature.ParsePublicKey(keyData)
	if err != nil {
		return nil, err
	}

	alg := signature.SHA256
	if e.Algorithm != "" {
		alg = signature.Algorithm(e.Algorithm)
	}
	enc := signature.Base64
	if e.Encoding != "" {
		if enc, err = signature.ParseEncoding(e.Encoding); err != nil {
			return nil, err
		}
	}

	t, err := New(e.Identity, pub, alg, enc)
	if err != nil {
		return nil, err
	}
	if e.KeyID != "" {
		t.KeyID = e.KeyID
	}
	return t, nil
}
