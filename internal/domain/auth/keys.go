package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"

	"github.com/penline/penline/internal/config"
)

const (
	keyFilePrefix = "secret-"
	keyFileExt    = ".key"

	// EnvKID is the kid given to the secret taken from JWT_SECRET
	EnvKID = "env"
	// DevKID is the kid of the random secret generated in development when nothing else is configured
	DevKID = "dev"
)

// KeyStore holds the symmetric signing keys and which of them signs new tokens.
// Every key in the set verifies; only the active one signs.
type KeyStore struct {
	ActiveKid string
	KeySet    jwk.Set
}

// NewKeyStore creates an empty key store
func NewKeyStore(activeKid string) *KeyStore {
	return &KeyStore{
		ActiveKid: activeKid,
		KeySet:    jwk.NewSet(),
	}
}

// KeyFileName returns the file name used for kid under a keys directory
func KeyFileName(kid string) string {
	return keyFilePrefix + kid + keyFileExt
}

// LoadKeys reads every secret-<kid>.key file in path into a new key store
func LoadKeys(path, activeKid string) (*KeyStore, error) {
	ks := NewKeyStore(activeKid)
	if err := ks.LoadDir(path); err != nil {
		return nil, err
	}
	return ks, nil
}

// LoadDir adds every secret-<kid>.key file in path
func (ks *KeyStore) LoadDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &ErrKeysDirectoryNotAccessible{Path: path, Err: err}
	}
	if !info.IsDir() {
		return &ErrKeysPathNotDirectory{Path: path}
	}

	files, err := os.ReadDir(path)
	if err != nil {
		return &ErrKeysDirectoryNotAccessible{Path: path, Err: err}
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		fileName := file.Name()
		if !strings.HasPrefix(fileName, keyFilePrefix) || filepath.Ext(fileName) != keyFileExt {
			continue
		}

		kid := strings.TrimSuffix(strings.TrimPrefix(fileName, keyFilePrefix), keyFileExt)
		if kid == "" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(path, fileName))
		if err != nil {
			return &ErrFailedToReadKeyFile{FileName: fileName, Err: err}
		}

		if err := ks.AddSecret(kid, []byte(strings.TrimSpace(string(data)))); err != nil {
			return err
		}
	}

	return nil
}

// AddSecret adds an HS256 secret under kid, replacing any key with the same kid
func (ks *KeyStore) AddSecret(kid string, secret []byte) error {
	if len(secret) < MinKeyLength {
		return &ErrKeyTooShort{KID: kid, Length: len(secret)}
	}

	key, err := jwk.Import(secret)
	if err != nil {
		return fmt.Errorf("failed to convert secret to JWK: %w", err)
	}

	if err := key.Set(jwk.KeyIDKey, kid); err != nil {
		return fmt.Errorf("failed to set key ID: %w", err)
	}

	if err := key.Set(jwk.AlgorithmKey, jwa.HS256()); err != nil {
		return fmt.Errorf("failed to set algorithm: %w", err)
	}

	if existing, ok := ks.KeySet.LookupKeyID(kid); ok {
		if err := ks.KeySet.RemoveKey(existing); err != nil {
			return fmt.Errorf("failed to replace key %q: %w", kid, err)
		}
	}

	if err := ks.KeySet.AddKey(key); err != nil {
		return fmt.Errorf("failed to add key to set: %w", err)
	}

	return nil
}

// GetActiveKey returns the key that signs new tokens
func (ks *KeyStore) GetActiveKey() (jwk.Key, error) {
	key, ok := ks.KeySet.LookupKeyID(ks.ActiveKid)
	if !ok {
		return nil, ErrUnknownKey
	}
	return key, nil
}

// KIDs returns the sorted key ids in the store
func (ks *KeyStore) KIDs() []string {
	kids := make([]string, 0, ks.KeySet.Len())
	for i := 0; i < ks.KeySet.Len(); i++ {
		key, ok := ks.KeySet.Key(i)
		if !ok {
			continue
		}
		if kid, ok := key.KeyID(); ok {
			kids = append(kids, kid)
		}
	}
	sort.Strings(kids)
	return kids
}

// GenerateSecret returns a random URL-safe secret suitable for AddSecret
func GenerateSecret() ([]byte, error) {
	raw := make([]byte, 48)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate secret: %w", err)
	}
	return []byte(base64.RawURLEncoding.EncodeToString(raw)), nil
}

// WriteKeyFile stores secret as dir/secret-<kid>.key with owner-only permissions.
// An existing file is never overwritten.
func WriteKeyFile(dir, kid string, secret []byte) (string, error) {
	if kid == "" || strings.ContainsAny(kid, `/\`) {
		return "", fmt.Errorf("invalid kid %q", kid)
	}
	if len(secret) < MinKeyLength {
		return "", &ErrKeyTooShort{KID: kid, Length: len(secret)}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create keys directory: %w", err)
	}

	path := filepath.Join(dir, KeyFileName(kid))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create key file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(secret, '\n')); err != nil {
		return "", fmt.Errorf("failed to write key file: %w", err)
	}
	return path, nil
}

// BuildKeyStore assembles the key store from the keys directory and JWT_SECRET.
// In development a random key is generated when neither source yields one; tokens signed
// with it do not survive a restart.
func BuildKeyStore(cfg *config.AuthConfig, env *config.Environment) (*KeyStore, error) {
	ks := NewKeyStore(strings.TrimSpace(cfg.ActiveKID))

	if cfg.KeysPath != "" {
		if err := ks.LoadDir(cfg.KeysPath); err != nil {
			if env.Environment.IsProduction() || !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
			slog.Warn("Keys directory not found, skipping", "path", cfg.KeysPath)
		}
	}

	if env.JWTSecret != "" {
		if err := ks.AddSecret(EnvKID, []byte(env.JWTSecret)); err != nil {
			return nil, err
		}
	}

	if ks.KeySet.Len() == 0 {
		if env.Environment.IsProduction() {
			return nil, ErrNoSigningKeys
		}
		secret, err := GenerateSecret()
		if err != nil {
			return nil, err
		}
		if err := ks.AddSecret(DevKID, secret); err != nil {
			return nil, err
		}
		slog.Warn("No signing keys configured, using a random development key")
	}

	if ks.ActiveKid == "" {
		kids := ks.KIDs()
		switch {
		case len(kids) == 1:
			ks.ActiveKid = kids[0]
		case slices.Contains(kids, EnvKID):
			ks.ActiveKid = EnvKID
		default:
			return nil, fmt.Errorf("auth.active_kid is required when several keys are loaded: %s", strings.Join(kids, ", "))
		}
	}

	if _, err := ks.GetActiveKey(); err != nil {
		return nil, fmt.Errorf("active kid %q: %w", ks.ActiveKid, err)
	}

	slog.Info("Signing keys loaded", "active_kid", ks.ActiveKid, "count", ks.KeySet.Len())
	return ks, nil
}
