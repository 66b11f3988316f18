package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penline/penline/internal/config"
)

func writeKey(t *testing.T, dir, kid, secret string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, KeyFileName(kid)), []byte(secret+"\n"), 0o600))
}

func TestLoadKeys(t *testing.T) {
	dir := t.TempDir()
	writeKey(t, dir, "2024", testSecret)
	writeKey(t, dir, "2025", "abcdefghijklmnopqrstuvwxyz012345")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "secret-dir.key"), 0o700))

	ks, err := LoadKeys(dir, "2025")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024", "2025"}, ks.KIDs())

	key, err := ks.GetActiveKey()
	require.NoError(t, err)
	kid, ok := key.KeyID()
	require.True(t, ok)
	assert.Equal(t, "2025", kid)
}

func TestLoadKeys_Errors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := LoadKeys(filepath.Join(t.TempDir(), "nope"), "x")
		var target *ErrKeysDirectoryNotAccessible
		assert.True(t, errors.As(err, &target))
	})

	t.Run("path is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := LoadKeys(file, "x")
		var target *ErrKeysPathNotDirectory
		assert.True(t, errors.As(err, &target))
	})

	t.Run("short key", func(t *testing.T) {
		dir := t.TempDir()
		writeKey(t, dir, "weak", "too-short")
		_, err := LoadKeys(dir, "weak")
		var target *ErrKeyTooShort
		require.True(t, errors.As(err, &target))
		assert.Equal(t, "weak", target.KID)
	})
}

func TestKeyStore_AddSecretReplaces(t *testing.T) {
	ks := newTestKeyStore(t)
	require.NoError(t, ks.AddSecret("test", []byte("abcdefghijklmnopqrstuvwxyz012345")))
	assert.Equal(t, 1, ks.KeySet.Len())
}

func TestWriteKeyFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keys")
	secret, err := GenerateSecret()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(secret), MinKeyLength)

	path, err := WriteKeyFile(dir, "k1", secret)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "secret-k1.key"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = WriteKeyFile(dir, "k1", secret)
	assert.Error(t, err, "existing key files are never overwritten")

	_, err = WriteKeyFile(dir, "../evil", secret)
	assert.Error(t, err)

	ks, err := LoadKeys(dir, "k1")
	require.NoError(t, err)
	_, err = ks.GetActiveKey()
	assert.NoError(t, err)
}

func TestBuildKeyStore(t *testing.T) {
	dev := &config.Environment{Environment: config.EnvironmentDevelopment}
	prod := &config.Environment{Environment: config.EnvironmentProduction}

	t.Run("development without keys generates one", func(t *testing.T) {
		ks, err := BuildKeyStore(&config.AuthConfig{}, dev)
		require.NoError(t, err)
		assert.Equal(t, DevKID, ks.ActiveKid)
	})

	t.Run("production without keys fails", func(t *testing.T) {
		_, err := BuildKeyStore(&config.AuthConfig{}, prod)
		assert.ErrorIs(t, err, ErrNoSigningKeys)
	})

	t.Run("env secret", func(t *testing.T) {
		ks, err := BuildKeyStore(&config.AuthConfig{}, &config.Environment{
			Environment: config.EnvironmentProduction,
			JWTSecret:   testSecret,
		})
		require.NoError(t, err)
		assert.Equal(t, EnvKID, ks.ActiveKid)
	})

	t.Run("short env secret fails", func(t *testing.T) {
		_, err := BuildKeyStore(&config.AuthConfig{}, &config.Environment{JWTSecret: "short"})
		var target *ErrKeyTooShort
		assert.True(t, errors.As(err, &target))
	})

	t.Run("missing keys directory tolerated in development", func(t *testing.T) {
		cfg := &config.AuthConfig{KeysPath: filepath.Join(t.TempDir(), "missing")}
		_, err := BuildKeyStore(cfg, dev)
		assert.NoError(t, err)

		_, err = BuildKeyStore(cfg, prod)
		assert.Error(t, err)
	})

	t.Run("several keys need an active kid", func(t *testing.T) {
		dir := t.TempDir()
		writeKey(t, dir, "a", testSecret)
		writeKey(t, dir, "b", testSecret)

		_, err := BuildKeyStore(&config.AuthConfig{KeysPath: dir}, prod)
		assert.Error(t, err)

		ks, err := BuildKeyStore(&config.AuthConfig{KeysPath: dir, ActiveKID: "b"}, prod)
		require.NoError(t, err)
		assert.Equal(t, "b", ks.ActiveKid)
	})

	t.Run("unknown active kid fails", func(t *testing.T) {
		dir := t.TempDir()
		writeKey(t, dir, "a", testSecret)
		_, err := BuildKeyStore(&config.AuthConfig{KeysPath: dir, ActiveKID: "z"}, prod)
		assert.ErrorIs(t, err, ErrUnknownKey)
	})
}
