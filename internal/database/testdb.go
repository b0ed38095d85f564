package database

import (
	"context"
	"testing"
)

// NewTestDB crea una base SQLite en memoria con el esquema aplicado
func NewTestDB(t testing.TB) *Store {
	t.Helper()

	store, err := NewSQLiteDB(":memory:", nil)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	if err := EnsureSchema(context.Background(), store); err != nil {
		store.Close()
		t.Fatalf("creating test database schema: %v", err)
	}

	t.Cleanup(func() { store.Close() })

	return store
}
