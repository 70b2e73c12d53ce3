package publish

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthurljones/sqlite-diff/internal/artifact"
	"github.com/arthurljones/sqlite-diff/internal/remote"
	"github.com/arthurljones/sqlite-diff/pkg/types"
)

func TestPublishDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	files := map[string]string{
		"export.csv":       "a,b\n1,2\n",
		"export.md5":       "d41d8cd98f00b204e9800998ecf8427e",
		"index.html":       "<html></html>",
		"already.json.gz":  "packed",
		"manifest.json.gz": "stale",
		".hidden":          "x",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	store := remote.NewMemoryStore()
	s := openSession(t, store, 1)

	m, err := s.PublishDir(ctx, dir, types.Manifest{{File: "old.db.gz", Checksum: "x", Size: 1}})
	require.NoError(t, err)

	assert.Equal(t, []string{"old.db.gz", "export.csv.gz", "export.md5", "index.html"}, m.Names())
	assert.Equal(t, []string{
		"export.csv.gz", "export.md5", "index.html", "manifest.json.gz", "manifest.md5",
	}, listed(t, store))

	html, _ := m.Find("index.html")
	assert.Equal(t, artifact.ChecksumBytes([]byte("<html></html>")), html.Checksum)
	assert.Equal(t, int64(len("<html></html>")), html.Size)

	packed, ok := store.Contents("export.csv.gz")
	require.True(t, ok)
	csv, _ := m.Find("export.csv.gz")
	assert.Equal(t, artifact.ChecksumBytes(packed), csv.Checksum)

	published, err := openSession(t, store, 1).FetchManifest(ctx)
	require.NoError(t, err)
	assert.Equal(t, m, published)

	s.Cleanup()
	work, err := os.ReadDir(s.opts.WorkDir)
	require.NoError(t, err)
	assert.Empty(t, work)
}

func TestPublishDirMissing(t *testing.T) {
	s := openSession(t, remote.NewMemoryStore(), 1)
	_, err := s.PublishDir(context.Background(), filepath.Join(t.TempDir(), "nope"), nil)
	assert.Error(t, err)
}
