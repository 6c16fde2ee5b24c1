package tenants_test

import (
	"os"
	"path/filepath"
	"testing"

	gwerrors "github.com/jrsteele09/go-cloud-gateway/internal/errors"
	"github.com/jrsteele09/go-cloud-gateway/internal/testkeys"
	"github.com/jrsteele09/go-cloud-gateway/signature"
	"github.com/jrsteele09/go-cloud-gateway/tenants"
	"github.com/stretchr/testify/require"
)

func TestStore_Find(t *testing.T) {
	alice, err := tenants.New("alice", testkeys.RSA(t).Public, signature.SHA256, signature.Base64)
	require.NoError(t, err)
	bob, err := tenants.New("bob", testkeys.ECDSA(t).Public, signature.SHA512, signature.Hex)
	require.NoError(t, err)

	store, err := tenants.NewStore(alice, bob)
	require.NoError(t, err)

	t.Run("by key id", func(t *testing.T) {
		found, ok := store.Find("/bob/keys/" + bob.Fingerprint)
		require.True(t, ok)
		require.Same(t, bob, found)
	})

	t.Run("by bare fingerprint", func(t *testing.T) {
		found, ok := store.Find(alice.Fingerprint)
		require.True(t, ok)
		require.Same(t, alice, found)
	})

	t.Run("fingerprint under another account does not match", func(t *testing.T) {
		_, ok := store.Find("/bob/keys/" + alice.Fingerprint)
		require.False(t, ok)
	})

	t.Run("unknown", func(t *testing.T) {
		found, ok := store.Find("/mallory/keys/00:11")
		require.False(t, ok)
		require.Nil(t, found)
	})

	require.Len(t, store.List(), 2)
}

func TestNewStore_Validation(t *testing.T) {
	_, err := tenants.NewStore()
	require.ErrorIs(t, err, gwerrors.ErrConfiguration)

	a, err := tenants.New("alice", testkeys.RSA(t).Public, signature.SHA256, signature.Base64)
	require.NoError(t, err)
	_, err = tenants.NewStore(a, a)
	require.ErrorIs(t, err, gwerrors.ErrConfiguration)
}

func TestNew_RejectsBadSettings(t *testing.T) {
	pub := testkeys.RSA(t).Public
	_, err := tenants.New("alice", pub, signature.Algorithm("md5"), signature.Base64)
	require.ErrorIs(t, err, gwerrors.ErrUnsupportedAlgorithm)
	_, err = tenants.New("alice", pub, signature.SHA256, signature.Encoding("base32"))
	require.ErrorIs(t, err, gwerrors.ErrConfiguration)
}

func TestLoadFile(t *testing.T) {
	key := testkeys.RSA(t)
	dir := t.TempDir()
	pubData, err := os.ReadFile(key.Path + ".pub")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bot.pub"), pubData, 0o644))

	yamlData := `tenants:
  - identity: ops-bot
    public_key_path: bot.pub
    algorithm: sha512
    encoding: hex
  - identity: ci
    key_id: ci-key
    public_key: "` + string(pubData[:len(pubData)-1]) + `"
`
	path := filepath.Join(dir, "tenants.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0o600))

	loaded, err := tenants.LoadFile(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.Equal(t, "ops-bot", loaded[0].Identity)
	require.Equal(t, signature.SHA512, loaded[0].Algorithm)
	require.Equal(t, signature.Hex, loaded[0].Encoding)
	require.Equal(t, "/ops-bot/keys/"+loaded[0].Fingerprint, loaded[0].KeyID)
	require.Equal(t, "ci-key", loaded[1].KeyID)
	require.Equal(t, signature.Base64, loaded[1].Encoding)

	t.Run("missing key", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("tenants:\n  - identity: x\n"), 0o600))
		_, err := tenants.LoadFile(bad)
		require.ErrorIs(t, err, gwerrors.ErrConfiguration)
	})
}
