package credstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "keys.bundle"), filepath.Join(dir, "keys"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestStoreSetAndLoadAPIKey(t *testing.T) {
	store := newTestStore(t)

	if err := store.SetAPIKey("sk-test-abc123"); err != nil {
		t.Fatalf("set: %v", err)
	}
	key, err := store.APIKey()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if key != "sk-test-abc123" {
		t.Fatalf("key: %q", key)
	}

	// The on-disk file must not contain the key in the clear.
	data, err := os.ReadFile(filepath.Join(store.keyDir, keyFile))
	if err != nil {
		t.Fatalf("read enc file: %v", err)
	}
	if string(data) == "sk-test-abc123" {
		t.Fatalf("api key stored in plaintext")
	}
	info, err := os.Stat(filepath.Join(store.keyDir, keyFile))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode: %v", info.Mode().Perm())
	}
}

func TestStoreOverwriteRotatesKey(t *testing.T) {
	store := newTestStore(t)
	if err := store.SetAPIKey("sk-old"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.SetAPIKey("sk-new"); err != nil {
		t.Fatalf("set again: %v", err)
	}
	key, err := store.APIKey()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if key != "sk-new" {
		t.Fatalf("key: %q", key)
	}
}

func TestStoreMissingKey(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.APIKey(); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestStoreRemove(t *testing.T) {
	store := newTestStore(t)
	if err := store.SetAPIKey("sk-gone"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Remove(); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := store.APIKey(); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist after remove, got %v", err)
	}
	if err := store.Remove(); err != nil {
		t.Fatalf("remove again: %v", err)
	}
}

func TestStoreRejectsEmptyKey(t *testing.T) {
	store := newTestStore(t)
	if err := store.SetAPIKey("   "); err == nil {
		t.Fatalf("expected error")
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	bundle := filepath.Join(dir, "keys.bundle")
	keys := filepath.Join(dir, "keys")
	store, err := NewStore(bundle, keys)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.SetAPIKey("sk-persisted"); err != nil {
		t.Fatalf("set: %v", err)
	}

	reopened, err := NewStore(bundle, keys)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	key, err := reopened.APIKey()
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if key != "sk-persisted" {
		t.Fatalf("key: %q", key)
	}
}
