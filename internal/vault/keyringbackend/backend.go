// Package keyringbackend is the vault's preferred backend: secrets held in
// the operating system's native credential store via
// github.com/zalando/go-keyring (macOS Keychain, Windows Credential
// Manager, Secret Service on Linux). Grounded on SPEC_FULL.md §3's
// domain-stack wiring of go-keyring as "the OS-keyring concern
// haasonsaas-nexus never implements" — there is no teacher file to adapt
// here, only the interface shape from internal/identity/store.go.
package keyringbackend

import (
	"encoding/json"
	"errors"
	"sort"

	"github.com/zalando/go-keyring"

	"github.com/nexuscore/agentcore/internal/vault"
)

// indexAccount is the reserved keyring account name under which the set of
// stored secret names is tracked, since the OS keyring APIs have no native
// "list all accounts for this service" call.
const indexAccount = "__vault_index__"

// Backend implements vault.Backend over the OS keyring, scoped to a single
// service name so multiple agentcore instances on one machine don't collide.
type Backend struct {
	service string
}

// New constructs a keyring-backed Backend under serviceName.
func New(serviceName string) *Backend {
	return &Backend{service: serviceName}
}

func (b *Backend) Put(name, value string) error {
	if err := keyring.Set(b.service, name, value); err != nil {
		return err
	}
	return b.addToIndex(name)
}

func (b *Backend) Get(name string) (string, error) {
	value, err := keyring.Get(b.service, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", vault.ErrNotFound
	}
	return value, err
}

func (b *Backend) Delete(name string) error {
	err := keyring.Delete(b.service, name)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return b.removeFromIndex(name)
}

func (b *Backend) ListNames() ([]string, error) {
	names, err := b.readIndex()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (b *Backend) readIndex() ([]string, error) {
	raw, err := keyring.Get(b.service, indexAccount)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, err
	}
	return names, nil
}

func (b *Backend) writeIndex(names []string) error {
	raw, err := json.Marshal(names)
	if err != nil {
		return err
	}
	return keyring.Set(b.service, indexAccount, string(raw))
}

func (b *Backend) addToIndex(name string) error {
	names, err := b.readIndex()
	if err != nil {
		return err
	}
	for _, n := range names {
		if n == name {
			return nil
		}
	}
	return b.writeIndex(append(names, name))
}

func (b *Backend) removeFromIndex(name string) error {
	names, err := b.readIndex()
	if err != nil {
		return err
	}
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return b.writeIndex(out)
}
