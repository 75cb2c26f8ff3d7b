// Package storetest provides a seeded in-memory SQLite store for tests.
package storetest

import (
	"context"
	_ "embed"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MaastrichtU-BISS/linkextractor/pkg/store"
)

//go:embed testdata/fixture.yaml
var fixtureYAML []byte

// Fixture returns the parsed test fixture.
func Fixture(t testing.TB) *store.Fixture {
	t.Helper()
	f, err := store.ParseFixture(fixtureYAML)
	require.NoError(t, err)
	return f
}

// Open returns an in-memory SQLite store with the schema created and the
// fixture loaded. The store is closed when the test ends.
func Open(t testing.TB) *store.SQLiteStore {
	t.Helper()
	ctx := context.Background()

	s, err := store.OpenSQLite(ctx, store.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.InitSchema(ctx))
	require.NoError(t, s.Seed(ctx, Fixture(t)))
	return s
}
