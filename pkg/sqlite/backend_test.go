package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthurljones/sqlite-diff/pkg/types"
)

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.db")
	store := NewSnapshotStore(types.Config{Table: "items", PrimaryKey: "id", BatchSize: 10})

	schema := types.Schema{{Name: "id", Type: "INTEGER"}, {Name: "name", Type: "TEXT"}}
	rows := []types.Row{
		{"id": int64(1), "name": "a"},
		{"id": int64(2), "name": "b"},
	}
	require.NoError(t, store.WriteTable(t.Context(), path, schema, rows))

	got, err := ReadSnapshot(t.Context(), path, "items")
	require.NoError(t, err)
	assert.ElementsMatch(t, rows, got)
}

func TestReadSnapshotMissing(t *testing.T) {
	_, err := ReadSnapshot(t.Context(), filepath.Join(t.TempDir(), "none.db"), "items")
	assert.ErrorIs(t, err, types.ErrNotFound)
}
