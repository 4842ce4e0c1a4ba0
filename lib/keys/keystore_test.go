package keys

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadOrCreateIsStable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keys")

	first, err := LoadOrCreate(dir, "node")
	require.NoError(t, err)
	second, err := LoadOrCreate(dir, "node")
	require.NoError(t, err)

	assert.Equal(t, first.CryptDE().PublicKey(), second.CryptDE().PublicKey())
	assert.Equal(t, "node", second.KeyID())

	info, err := os.Stat(first.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	dirInfo, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir(), "absent")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestLoadRejectsMismatchedPublicKey(t *testing.T) {
	dir := t.TempDir()
	a, err := LoadOrCreate(dir, "a")
	require.NoError(t, err)
	b, err := LoadOrCreate(dir, "b")
	require.NoError(t, err)

	var fa, fb keyFile
	readKeyFile(t, a.Path(), &fa)
	readKeyFile(t, b.Path(), &fb)
	fa.PublicKey = fb.PublicKey
	writeKeyFile(t, a.Path(), fa)

	_, err = Load(dir, "a")
	assert.ErrorIs(t, err, ErrKeyMismatch)
}

func TestLoadRejectsUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	ks, err := LoadOrCreate(dir, "node")
	require.NoError(t, err)

	var kf keyFile
	readKeyFile(t, ks.Path(), &kf)

	bad := kf
	bad.Version = 2
	writeKeyFile(t, ks.Path(), bad)
	_, err = Load(dir, "node")
	assert.Error(t, err)

	bad = kf
	bad.Type = "ed25519"
	writeKeyFile(t, ks.Path(), bad)
	_, err = Load(dir, "node")
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(ks.Path(), []byte("{not yaml"), 0o600))
	_, err = Load(dir, "node")
	assert.Error(t, err)
}

func readKeyFile(t *testing.T, path string, kf *keyFile) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal(data, kf))
}

func writeKeyFile(t *testing.T, path string, kf keyFile) {
	t.Helper()
	data, err := yaml.Marshal(kf)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}
