package vault

import (
	"fmt"
	"os"

	"github.com/nexuscore/agentcore/internal/config"
	"github.com/nexuscore/agentcore/internal/vault/filebackend"
	"github.com/nexuscore/agentcore/internal/vault/keyringbackend"
)

// BackendProber lets Open verify the OS keyring actually works (some CI/
// container environments have no Secret Service / Keychain reachable) before
// committing to it, so the keyring-preferred/file-fallback choice in
// spec.md §4.6 is made once at startup rather than failing on first use.
type BackendProber interface {
	Put(name, value string) error
	Delete(name string) error
}

// Open builds a Vault per cfg: OS keyring preferred, falling back to the
// encrypted file backend if the keyring is unavailable. passphrase
// supplies the fallback backend's encryption key material and is ignored
// if the keyring is reachable.
func Open(cfg config.VaultConfig, passphrase []byte) (*Vault, error) {
	kb := keyringbackend.New(cfg.ServiceName)
	if probeKeyring(kb) {
		return New(kb), nil
	}

	path := cfg.FallbackFilePath
	if path == "" {
		path = fallbackPathFromEnv()
	}
	fb, err := filebackend.Open(path, passphrase)
	if err != nil {
		return nil, fmt.Errorf("vault: open fallback backend: %w", err)
	}
	return New(fb), nil
}

// probeKeyring does a throwaway put+delete to confirm the OS keyring is
// actually reachable in this environment.
func probeKeyring(kb BackendProber) bool {
	const probeName = "__vault_probe__"
	if err := kb.Put(probeName, "probe"); err != nil {
		return false
	}
	kb.Delete(probeName)
	return true
}

func fallbackPathFromEnv() string {
	dir, err := os.UserHomeDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return dir + "/.agentcore/vault.enc"
}
