// Package testutil provides shared test helpers for setting up data
// directories.
package testutil

import (
	"testing"

	"github.com/wildfrostsss/Blood-pressure/internal/storage"
)

// TestDataDir creates a temporary data directory with a storage.Provider.
func TestDataDir(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}
