// Package testutil provides shared test helpers for setting up stores and vaults.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/ideacards/internal/dictionary"
	"github.com/starford/ideacards/internal/store"
)

// TestStore creates a temporary SQLite idea store that is automatically cleaned up.
func TestStore(t *testing.T) *store.Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "ideacards-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	s, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestVault creates a temporary dictionary vault.
func TestVault(t *testing.T) *dictionary.Vault {
	t.Helper()
	v, err := dictionary.NewVault(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return v
}
