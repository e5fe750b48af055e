package vault

import (
	"context"
	"testing"
)

type memBackend struct {
	values map[string]string
}

func newMemBackend() *memBackend { return &memBackend{values: map[string]string{}} }

func (m *memBackend) Put(name, value string) error {
	m.values[name] = value
	return nil
}

func (m *memBackend) Get(name string) (string, error) {
	v, ok := m.values[name]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *memBackend) Delete(name string) error {
	delete(m.values, name)
	return nil
}

func (m *memBackend) ListNames() ([]string, error) {
	names := make([]string, 0, len(m.values))
	for n := range m.values {
		names = append(names, n)
	}
	return names, nil
}

func TestVaultPutGet(t *testing.T) {
	v := New(newMemBackend())
	ctx := context.Background()

	if err := v.Put(ctx, "api-key", "secret-value"); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := v.Get(ctx, "api-key")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "secret-value" {
		t.Fatalf("expected secret-value, got %q", got)
	}
}

func TestVaultGetMissing(t *testing.T) {
	v := New(newMemBackend())
	_, err := v.Get(context.Background(), "nope")
	if err == nil {
		t.Fatal("expected error for missing name")
	}
}

func TestVaultPutEmptyName(t *testing.T) {
	v := New(newMemBackend())
	if err := v.Put(context.Background(), "", "value"); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestVaultDeleteThenList(t *testing.T) {
	v := New(newMemBackend())
	ctx := context.Background()
	v.Put(ctx, "a", "1")
	v.Put(ctx, "b", "2")

	if err := v.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	names, err := v.ListNames(ctx)
	if err != nil {
		t.Fatalf("list names: %v", err)
	}
	if len(names) != 1 || names[0] != "b" {
		t.Fatalf("expected [b], got %v", names)
	}
}

func TestVaultDeleteAbsentNameNotError(t *testing.T) {
	v := New(newMemBackend())
	if err := v.Delete(context.Background(), "never-existed"); err != nil {
		t.Fatalf("expected no error deleting absent name, got %v", err)
	}
}

func TestVaultListNamesSorted(t *testing.T) {
	v := New(newMemBackend())
	ctx := context.Background()
	v.Put(ctx, "zebra", "1")
	v.Put(ctx, "apple", "2")

	names, err := v.ListNames(ctx)
	if err != nil {
		t.Fatalf("list names: %v", err)
	}
	if len(names) != 2 || names[0] != "apple" || names[1] != "zebra" {
		t.Fatalf("expected sorted [apple zebra], got %v", names)
	}
}
