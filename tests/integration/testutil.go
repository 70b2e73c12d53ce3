// Package integration provides end-to-end tests for the sqlite-diff binary.
package integration

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

var (
	// binPath is the path to the built sqlite-diff binary.
	binPath string
	// buildErr captures any build error.
	buildErr error
)

// BuildError wraps a build error with output.
type BuildError struct {
	Err    error
	Output string
}

func (e *BuildError) Error() string {
	return e.Err.Error() + ": " + e.Output
}

// FindProjectRoot finds the project root by walking up and looking for go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// TestEnv provides an isolated source database, remote directory, config
// and work directory.
type TestEnv struct {
	t         *testing.T
	TempDir   string
	ConfigDir string
	WorkDir   string
	RemoteDir string
	DBPath    string
	DB        *sql.DB
}

// NewTestEnv creates a new isolated test environment with an items table.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	if buildErr != nil {
		t.Fatalf("failed to build sqlite-diff: %v", buildErr)
	}
	if binPath == "" {
		t.Fatal("sqlite-diff binary not built")
	}

	tempDir := t.TempDir()
	e := &TestEnv{
		t:         t,
		TempDir:   tempDir,
		ConfigDir: filepath.Join(tempDir, "config"),
		WorkDir:   filepath.Join(tempDir, "work"),
		RemoteDir: filepath.Join(tempDir, "remote"),
		DBPath:    filepath.Join(tempDir, "source.db"),
	}

	db, err := sql.Open("sqlite", e.DBPath)
	if err != nil {
		t.Fatalf("open source: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	e.DB = db
	e.Exec(`CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT, modified DATETIME)`)

	e.WriteConfig("")
	return e
}

// WriteConfig writes config.yaml pointing at the env's source and remote,
// followed by extra YAML lines.
func (e *TestEnv) WriteConfig(extra string) {
	e.t.Helper()
	if err := os.MkdirAll(e.ConfigDir, 0o755); err != nil {
		e.t.Fatalf("failed to create config dir: %v", err)
	}
	content := strings.Join([]string{
		"table: items",
		"primary_key: id",
		"max_previous_versions: 2",
		"batch_size: 2",
		"source:",
		"  driver: sqlite",
		"  dsn: " + e.DBPath,
		"remote:",
		"  url: file://" + e.RemoteDir,
		"  lock: true",
		extra,
	}, "\n")
	if err := os.WriteFile(filepath.Join(e.ConfigDir, "config.yaml"), []byte(content), 0o644); err != nil {
		e.t.Fatalf("failed to write config: %v", err)
	}
}

// Exec runs SQL statements against the source database.
func (e *TestEnv) Exec(stmts ...string) {
	e.t.Helper()
	for _, s := range stmts {
		if _, err := e.DB.Exec(s); err != nil {
			e.t.Fatalf("exec %q: %v", s, err)
		}
	}
}

// RemoteFiles lists the file names in the remote directory.
func (e *TestEnv) RemoteFiles() []string {
	e.t.Helper()
	entries, err := os.ReadDir(e.RemoteDir)
	if err != nil {
		e.t.Fatalf("read remote dir: %v", err)
	}
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

// CmdResult holds the result of a command execution.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes the binary with the env's config and work directories.
func (e *TestEnv) Run(args ...string) CmdResult {
	e.t.Helper()

	allArgs := append([]string{"--config-dir", e.ConfigDir, "--work-dir", e.WorkDir}, args...)
	cmd := exec.Command(binPath, allArgs...)
	cmd.Env = cleanEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			e.t.Fatalf("failed to run sqlite-diff: %v", err)
		}
	}

	return CmdResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}
}

// MustRun executes the binary and fails the test if it returns non-zero.
func (e *TestEnv) MustRun(args ...string) CmdResult {
	e.t.Helper()
	result := e.Run(args...)
	if result.ExitCode != 0 {
		e.t.Fatalf("sqlite-diff %v failed with exit code %d:\nstdout: %s\nstderr: %s",
			args, result.ExitCode, result.Stdout, result.Stderr)
	}
	return result
}

// cleanEnv returns os.Environ() without SQLITE_DIFF_* variables.
func cleanEnv() []string {
	var env []string
	for _, v := range os.Environ() {
		if strings.HasPrefix(v, "SQLITE_DIFF_") {
			continue
		}
		env = append(env, v)
	}
	return env
}

// ParseJSON parses JSON output into the target type.
func ParseJSON[T any](t *testing.T, jsonStr string) T {
	t.Helper()
	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		t.Fatalf("failed to parse JSON %q: %v", jsonStr, err)
	}
	return result
}
