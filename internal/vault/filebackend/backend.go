// Package filebackend is the vault's fallback backend for platforms or
// deployments without an OS keyring: secrets are stored in a single
// NaCl secretbox-encrypted file, keyed by a passphrase stretched with
// scrypt. Grounded on SPEC_FULL.md §3's wiring of
// golang.org/x/crypto/nacl/secretbox as the "encrypted-file fallback
// backend" for the Credential Vault; no teacher file implements this, so
// the on-disk layout follows the package's own conventional envelope
// (scrypt params + salt + nonce + ciphertext, JSON inside).
package filebackend

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"

	"github.com/nexuscore/agentcore/internal/vault"
)

func readRandom(buf []byte) (int, error) {
	return io.ReadFull(rand.Reader, buf)
}

const (
	saltLen  = 24
	scryptN  = 1 << 15
	scryptR  = 8
	scryptP  = 1
	keyLen   = 32
	filePerm = 0o600
	dirPerm  = 0o700
)

// envelope is the on-disk format: scrypt salt plus the secretbox nonce and
// sealed ciphertext of a JSON-encoded name->value map.
type envelope struct {
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Backend implements vault.Backend over a single encrypted file.
type Backend struct {
	mu         sync.Mutex
	path       string
	passphrase []byte
}

// Open prepares a file-backed Backend at path, creating its parent
// directory if needed. The file itself is created lazily on first Put.
func Open(path string, passphrase []byte) (*Backend, error) {
	if len(passphrase) == 0 {
		return nil, errors.New("filebackend: passphrase must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("filebackend: create data dir: %w", err)
	}
	return &Backend{path: path, passphrase: passphrase}, nil
}

func (b *Backend) Put(name, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	secrets, err := b.load()
	if err != nil {
		return err
	}
	secrets[name] = value
	return b.save(secrets)
}

func (b *Backend) Get(name string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	secrets, err := b.load()
	if err != nil {
		return "", err
	}
	value, ok := secrets[name]
	if !ok {
		return "", vault.ErrNotFound
	}
	return value, nil
}

func (b *Backend) Delete(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	secrets, err := b.load()
	if err != nil {
		return err
	}
	delete(secrets, name)
	return b.save(secrets)
}

func (b *Backend) ListNames() ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	secrets, err := b.load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(secrets))
	for name := range secrets {
		names = append(names, name)
	}
	return names, nil
}

func (b *Backend) load() (map[string]string, error) {
	raw, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("filebackend: read %s: %w", b.path, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("filebackend: decode envelope: %w", err)
	}

	key, err := deriveKey(b.passphrase, env.Salt)
	if err != nil {
		return nil, err
	}

	var nonce [24]byte
	copy(nonce[:], env.Nonce)
	plaintext, ok := secretbox.Open(nil, env.Ciphertext, &nonce, &key)
	if !ok {
		return nil, errors.New("filebackend: decryption failed, wrong passphrase or corrupted file")
	}

	secrets := map[string]string{}
	if len(plaintext) > 0 {
		if err := json.Unmarshal(plaintext, &secrets); err != nil {
			return nil, fmt.Errorf("filebackend: decode secrets: %w", err)
		}
	}
	return secrets, nil
}

func (b *Backend) save(secrets map[string]string) error {
	plaintext, err := json.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("filebackend: encode secrets: %w", err)
	}

	salt := make([]byte, saltLen)
	if _, err := readRandom(salt); err != nil {
		return fmt.Errorf("filebackend: generate salt: %w", err)
	}
	key, err := deriveKey(b.passphrase, salt)
	if err != nil {
		return err
	}

	var nonce [24]byte
	if _, err := readRandom(nonce[:]); err != nil {
		return fmt.Errorf("filebackend: generate nonce: %w", err)
	}

	ciphertext := secretbox.Seal(nil, plaintext, &nonce, &key)
	env := envelope{Salt: salt, Nonce: nonce[:], Ciphertext: ciphertext}

	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("filebackend: encode envelope: %w", err)
	}
	if err := os.WriteFile(b.path, raw, filePerm); err != nil {
		return fmt.Errorf("filebackend: write %s: %w", b.path, err)
	}
	return nil
}

func deriveKey(passphrase, salt []byte) ([keyLen]byte, error) {
	var key [keyLen]byte
	derived, err := scrypt.Key(passphrase, salt, scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return key, fmt.Errorf("filebackend: derive key: %w", err)
	}
	copy(key[:], derived)
	return key, nil
}
