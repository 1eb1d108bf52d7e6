package testutil

import (
	"testing"

	"sari-go/internal/database"
	"sari-go/internal/inventory"
)

// TestEnv bundles a Service with the stores behind it.
type TestEnv struct {
	Service  *inventory.Service
	Database *database.SQLiteDatabase
	Images   *FaultyImageStore
}

// NewTestEnv wires a Service over an in-memory database, an in-memory image
// store and sequential image IDs.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	db := NewTestDatabase(t)
	store := NewFaultyImageStore()
	svc := inventory.NewService(db, store, inventory.NewNopLogger(), NewStubIDGenerator())

	return &TestEnv{Service: svc, Database: db, Images: store}
}
