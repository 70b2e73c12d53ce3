// Package paths resolves the configuration and work directory locations.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// appName names the per-user directories.
const appName = "sqlite-diff"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "SQLITE_DIFF_CONFIG_DIR"
	EnvWorkDir   = "SQLITE_DIFF_WORK_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	userCacheDir  func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	userCacheDir:  os.UserCacheDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/sqlite-diff (fallback ~/.config/sqlite-diff)
// macOS:   ~/Library/Application Support/sqlite-diff
// Windows: %APPDATA%/sqlite-diff
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", appName), nil
	default:
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appName), nil
	}
}

// DefaultWorkDir returns the platform-specific default directory for
// downloads and intermediate files.
//
// Linux:   $XDG_CACHE_HOME/sqlite-diff (fallback ~/.cache/sqlite-diff)
// macOS:   ~/Library/Caches/sqlite-diff
// Windows: %LocalAppData%/sqlite-diff
func DefaultWorkDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".cache", appName), nil
	default:
		dir, err := platformDir.userCacheDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appName), nil
	}
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > SQLITE_DIFF_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveWorkDir returns the work directory following the precedence chain:
// flag > configYAMLValue > SQLITE_DIFF_WORK_DIR env > DefaultWorkDir().
func ResolveWorkDir(flag, configYAMLValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configYAMLValue != "" {
		return filepath.Abs(configYAMLValue)
	}
	if env := os.Getenv(EnvWorkDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultWorkDir()
}
