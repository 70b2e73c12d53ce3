package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthurljones/sqlite-diff/internal/compress"
	"github.com/arthurljones/sqlite-diff/internal/sqlite"
	"github.com/arthurljones/sqlite-diff/pkg/types"
)

var stamp = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func TestNames(t *testing.T) {
	assert.Equal(t, "items_data-20240309T140507.db", SnapshotName("items_", stamp))
	assert.Equal(t, "items_diff-20240309T140507.json", ChangesetName("items_", stamp))
	assert.Equal(t, "data-20240309T140507.db", SnapshotName("", stamp.In(time.FixedZone("X", 3600))))
}

func TestTimestampFromName(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"items_data-20240309T140507.db.gz", true},
		{"remote/dir/data-20240309T140507.db", true},
		{"diff-20240309T140507.json.lzma", true},
		{"manifest.json.gz", false},
		{"data-2024030T140507.db", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TimestampFromName(tt.name)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, got.Equal(stamp))
			}
		})
	}
}

func TestIsSnapshotName(t *testing.T) {
	assert.True(t, IsSnapshotName("x_data-20240309T140507.db.gz"))
	assert.True(t, IsSnapshotName("data-20240309T140507.db"))
	assert.False(t, IsSnapshotName("diff-20240309T140507.json.gz"))
	assert.False(t, IsSnapshotName("data-20240309T140507.db.gz.0"))
	assert.False(t, IsSnapshotName("manifest.json.gz"))
}

func TestLatestSnapshot(t *testing.T) {
	m := types.Manifest{
		{File: "a_data-20240101T000000.db.gz"},
		{File: "a_diff-20250101T000000.json.gz"},
		{File: "a_data-20240309T140507.db.gz"},
		{File: "b_data-20240309T140507.db.gz"},
		{File: "readme.html"},
	}
	e, ok := LatestSnapshot(m)
	require.True(t, ok)
	assert.Equal(t, "b_data-20240309T140507.db.gz", e.File)

	_, ok = LatestSnapshot(types.Manifest{{File: "a_diff-20250101T000000.json.gz"}})
	assert.False(t, ok)
}

func TestChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	sum, size, err := Checksum(path)
	require.NoError(t, err)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", sum)
	assert.Equal(t, int64(5), size)
	assert.Equal(t, sum, ChecksumBytes([]byte("hello")))
}

func TestBuildSnapshot(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	schema := types.Schema{{Name: "id", Type: "INTEGER"}, {Name: "val", Type: "text"}}
	store := sqlite.NewStore("items", "id", nil, 2)
	reconciled := map[types.Key]types.Row{
		int64(3): {"id": int64(3), "val": "c"},
		int64(1): {"id": int64(1), "val": "a"},
		int64(2): {"id": int64(2), "val": "b"},
	}

	path := filepath.Join(dir, SnapshotName("", stamp))
	art, err := BuildSnapshot(ctx, store, compress.Gzip{}, path, schema, reconciled)
	require.NoError(t, err)

	assert.Equal(t, path+".gz", art.Path)
	assert.Equal(t, "data-20240309T140507.db.gz", art.Name)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "uncompressed file must be removed")

	sum, size, err := Checksum(art.Path)
	require.NoError(t, err)
	assert.Equal(t, sum, art.Checksum)
	assert.Equal(t, size, art.Size)

	restored := filepath.Join(dir, "restored.db")
	require.NoError(t, compress.UnFile(compress.Gzip{}, art.Path, restored))
	rows, err := store.ReadAll(ctx, restored)
	require.NoError(t, err)
	assert.Equal(t, []types.Row{
		{"id": int64(1), "val": "a"},
		{"id": int64(2), "val": "b"},
		{"id": int64(3), "val": "c"},
	}, rows)
}

type failingStore struct{ types.SnapshotStore }

func (failingStore) WriteTable(_ context.Context, path string, _ types.Schema, _ []types.Row) error {
	if err := os.WriteFile(path, []byte("partial"), 0o644); err != nil {
		return err
	}
	return assert.AnError
}

func TestBuildSnapshotCleansUpOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.db")

	_, err := BuildSnapshot(context.Background(), failingStore{}, compress.Gzip{}, path, nil, nil)
	require.ErrorIs(t, err, assert.AnError)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestChangesetRoundTrip(t *testing.T) {
	for _, comp := range []types.Compressor{compress.Gzip{}, compress.LZMA{}} {
		t.Run(comp.Name(), func(t *testing.T) {
			cs := types.NewChangeset([]string{"id", "val"})
			cs.Added = []types.Row{{"id": int64(3), "val": "c"}}
			cs.Modified[int64(1)] = types.Delta{"val": "z"}
			cs.Deleted = []types.Key{int64(2)}

			path := filepath.Join(t.TempDir(), ChangesetName("", stamp))
			art, err := WriteChangeset(comp, path, cs)
			require.NoError(t, err)
			assert.Equal(t, "diff-20240309T140507.json"+comp.Extension(), art.Name)

			got, err := ReadChangeset(comp, art.Path, nil, "id")
			require.NoError(t, err)
			assert.Equal(t, cs.Columns, got.Columns)
			assert.Equal(t, cs.Added, got.Added)
			assert.Equal(t, cs.Modified, got.Modified)
			assert.Equal(t, cs.Deleted, got.Deleted)
		})
	}
}

func TestChangesetTextKeysRoundTrip(t *testing.T) {
	schema := types.Schema{{Name: "sku", Type: "varchar(32)"}, {Name: "val", Type: "text"}}
	cs := types.NewChangeset(schema.Names())
	cs.Modified["42"] = types.Delta{"val": "z"}
	cs.Modified["007"] = types.Delta{"val": "y"}
	cs.Deleted = []types.Key{"13"}

	art, err := WriteChangeset(compress.Gzip{}, filepath.Join(t.TempDir(), "diff.json"), cs)
	require.NoError(t, err)

	got, err := ReadChangeset(compress.Gzip{}, art.Path, schema, "sku")
	require.NoError(t, err)
	assert.Equal(t, cs.Modified, got.Modified)
	assert.Equal(t, cs.Deleted, got.Deleted)

	numeric, err := ReadChangeset(compress.Gzip{}, art.Path, types.Schema{{Name: "sku", Type: "int"}}, "sku")
	require.NoError(t, err)
	assert.Contains(t, numeric.Modified, types.Key(int64(42)))
}

func TestChangesetEncodedForm(t *testing.T) {
	cs := types.NewChangeset([]string{"id", "val"})
	cs.Added = []types.Row{{"id": int64(3), "val": "c"}}
	cs.Modified[int64(1)] = types.Delta{"val": "z"}
	cs.Deleted = []types.Key{int64(2)}

	art, err := WriteChangeset(compress.Gzip{}, filepath.Join(t.TempDir(), "diff.json"), cs)
	require.NoError(t, err)

	packed, err := os.ReadFile(art.Path)
	require.NoError(t, err)
	raw, err := compress.UnBytes(compress.Gzip{}, packed)
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":["id","val"],"modified":{"1":{"val":"z"}},"added":[[3,"c"]],"deleted":[2]}`, string(raw))
}
