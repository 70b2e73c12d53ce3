// End-to-end tests for the sqlite-diff binary against a SQLite source and a
// directory remote.
package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthurljones/sqlite-diff/internal/artifact"
	"github.com/arthurljones/sqlite-diff/internal/compress"
	"github.com/arthurljones/sqlite-diff/internal/sqlite"
	"github.com/arthurljones/sqlite-diff/pkg/types"
)

// TestMain builds the sqlite-diff binary once before running tests.
func TestMain(m *testing.M) {
	projectRoot, err := FindProjectRoot()
	if err != nil {
		buildErr = err
		os.Exit(1)
	}

	tmpDir, err := os.MkdirTemp("", "sqlite-diff-test-*")
	if err != nil {
		buildErr = err
		os.Exit(1)
	}
	binPath = filepath.Join(tmpDir, "sqlite-diff")

	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/sqlite-diff")
	cmd.Dir = projectRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		buildErr = &BuildError{Err: err, Output: string(output)}
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

// nextSecond waits until artifact timestamps of the next run differ.
func nextSecond() {
	time.Sleep(1100 * time.Millisecond)
}

func TestInitCreatesConfig(t *testing.T) {
	env := NewTestEnv(t)
	configDir := filepath.Join(env.TempDir, "fresh")

	res := env.MustRun("--config-dir", configDir, "init")
	assert.Contains(t, res.Stdout, "Wrote")
	assert.FileExists(t, filepath.Join(configDir, "config.yaml"))
}

func TestRunPublishLifecycle(t *testing.T) {
	env := NewTestEnv(t)
	env.Exec(`INSERT INTO items (id, name) VALUES (1, 'a'), (2, 'b'), (3, 'c')`)

	first := ParseJSON[map[string]any](t, env.MustRun("--json", "run").Stdout)
	summary := first["summary"].(map[string]any)
	assert.EqualValues(t, 3, summary["added"])

	files := env.RemoteFiles()
	assert.Contains(t, files, "manifest.json.gz")
	assert.Contains(t, files, "manifest.md5")
	assert.NotContains(t, files, "sqlite-diff.lock")

	res := env.MustRun("run")
	assert.Contains(t, res.Stdout, "No changes")

	nextSecond()
	env.Exec(`UPDATE items SET name = 'B' WHERE id = 2`, `DELETE FROM items WHERE id = 3`, `INSERT INTO items (id, name) VALUES (4, 'd')`)
	res = env.MustRun("run")
	assert.Contains(t, res.Stdout, "1 added, 1 modified, 1 deleted")

	manifest := ParseJSON[types.Manifest](t, env.MustRun("--json", "manifest").Stdout)
	require.Len(t, manifest, 4)

	latest, ok := artifact.LatestSnapshot(manifest)
	require.True(t, ok)
	rows := readSnapshot(t, filepath.Join(env.RemoteDir, latest.File))
	assert.Len(t, rows, 3)

	sum, size, err := artifact.Checksum(filepath.Join(env.RemoteDir, latest.File))
	require.NoError(t, err)
	assert.Equal(t, latest.Checksum, sum)
	assert.Equal(t, latest.Size, size)
}

func TestRunRotationIsBounded(t *testing.T) {
	env := NewTestEnv(t)
	for i := range 5 {
		if i > 0 {
			nextSecond()
		}
		env.Exec(`INSERT INTO items (name) VALUES ('row')`)
		env.MustRun("run")
	}

	files := env.RemoteFiles()
	var generations []string
	for _, f := range files {
		if strings.HasPrefix(f, "manifest.json.gz.") {
			generations = append(generations, f)
		}
	}
	slices.Sort(generations)
	assert.Equal(t, []string{"manifest.json.gz.0", "manifest.json.gz.1", "manifest.json.gz.2"}, generations)
}

func TestRunRefusesForeignLock(t *testing.T) {
	env := NewTestEnv(t)
	require.NoError(t, os.MkdirAll(env.RemoteDir, 0o755))
	lock := filepath.Join(env.RemoteDir, "sqlite-diff.lock")
	require.NoError(t, os.WriteFile(lock, []byte("other-host"), 0o644))

	res := env.Run("run")
	assert.Equal(t, 2, res.ExitCode)
	assert.Contains(t, res.Stderr, "other-host")

	data, err := os.ReadFile(lock)
	require.NoError(t, err)
	assert.Equal(t, "other-host", string(data))
}

func TestRunRefusesEmptiedTable(t *testing.T) {
	env := NewTestEnv(t)
	env.WriteConfig("refuse_emptied: true")
	env.Exec(`INSERT INTO items (id, name) VALUES (1, 'a')`)
	env.MustRun("run")

	nextSecond()
	env.Exec(`DELETE FROM items`)
	res := env.Run("run")
	assert.Equal(t, 2, res.ExitCode)
	assert.Contains(t, res.Stdout, "WARNING")

	manifest := ParseJSON[types.Manifest](t, env.MustRun("--json", "manifest").Stdout)
	assert.Len(t, manifest, 2)
}

func TestMissingConfigValues(t *testing.T) {
	env := NewTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.ConfigDir, "config.yaml"), []byte("table: items\n"), 0o644))

	res := env.Run("run")
	assert.Equal(t, 1, res.ExitCode)
	assert.Contains(t, res.Stderr, "dsn")
}

// readSnapshot decompresses a published snapshot and reads its rows.
func readSnapshot(t *testing.T, path string) []types.Row {
	t.Helper()
	comp, err := compress.New(types.CompressionGzip)
	require.NoError(t, err)
	local := filepath.Join(t.TempDir(), "snapshot.db")
	require.NoError(t, compress.UnFile(comp, path, local))

	rows, err := sqlite.NewStore("items", "id", nil, 0).ReadAll(t.Context(), local)
	require.NoError(t, err)
	return rows
}
