package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arthurljones/sqlite-diff/internal/compress"
	"github.com/arthurljones/sqlite-diff/pkg/types"
)

// BuildSnapshot writes reconciled into a new single-table database at path,
// compresses it to path plus the compressor extension and removes the
// uncompressed file. Rows are written in key order so equal inputs give
// equal files. On failure no partial file is left behind.
func BuildSnapshot(ctx context.Context, store types.SnapshotStore, comp types.Compressor,
	path string, schema types.Schema, reconciled map[types.Key]types.Row) (types.Artifact, error) {
	// A stale file from an earlier attempt would otherwise be reused.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return types.Artifact{}, fmt.Errorf("removing stale snapshot: %w", err)
	}
	defer os.Remove(path)

	keys := types.SortedKeys(reconciled)
	rows := make([]types.Row, len(keys))
	for i, k := range keys {
		rows[i] = reconciled[k]
	}

	if err := store.WriteTable(ctx, path, schema, rows); err != nil {
		return types.Artifact{}, fmt.Errorf("writing snapshot table: %w", err)
	}

	packed := path + comp.Extension()
	if err := compress.File(comp, path, packed); err != nil {
		return types.Artifact{}, fmt.Errorf("compressing snapshot: %w", err)
	}
	return describe(packed)
}

// describe checksums a finished artifact file.
func describe(path string) (types.Artifact, error) {
	sum, size, err := Checksum(path)
	if err != nil {
		os.Remove(path)
		return types.Artifact{}, err
	}
	return types.Artifact{
		Path:     path,
		Name:     filepath.Base(path),
		Checksum: sum,
		Size:     size,
	}, nil
}
