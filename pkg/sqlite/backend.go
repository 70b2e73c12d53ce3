// Package sqlite provides the public API for reading and writing sqlite-diff
// snapshot files. It exposes factory functions for the snapshot store while
// keeping the implementation internal.
package sqlite

import (
	"context"

	"github.com/arthurljones/sqlite-diff/internal/sqlite"
	"github.com/arthurljones/sqlite-diff/pkg/types"
)

// NewSnapshotStore creates a store for the table named in cfg.
//
// Example:
//
//	store := sqlite.NewSnapshotStore(types.Config{
//	    Table:      "items",
//	    PrimaryKey: "id",
//	    BatchSize:  500,
//	})
//	rows, err := store.ReadAll(ctx, "data-20240501T120000.db")
func NewSnapshotStore(cfg types.Config) types.SnapshotStore {
	return sqlite.NewStoreFromConfig(cfg)
}

// ReadSnapshot reads every row of table from an uncompressed snapshot file.
func ReadSnapshot(ctx context.Context, path, table string) ([]types.Row, error) {
	return sqlite.NewStore(table, "", nil, 0).ReadAll(ctx, path)
}
