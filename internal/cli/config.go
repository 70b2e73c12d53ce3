package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/arthurljones/sqlite-diff/internal/paths"
	"github.com/arthurljones/sqlite-diff/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "SQLITE_DIFF"
)

// defaults are applied before config.yaml and the environment. Every key is
// listed so SQLITE_DIFF_* variables can override it.
var defaults = map[string]any{
	"table":                  "",
	"primary_key":            "id",
	"columns":                []string{},
	"output_prefix":          "",
	"max_previous_versions":  types.DefaultMaxPreviousVersions,
	"batch_size":             types.DefaultBatchSize,
	"compression":            types.DefaultCompression,
	"work_dir":               "",
	"refuse_emptied":         false,
	"source.driver":          types.DriverMySQL,
	"source.dsn":             "",
	"source.modified_column": "",
	"remote.url":             "",
	"remote.username":        "",
	"remote.password":        "",
	"remote.timeout":         types.DefaultRemoteTimeout,
	"remote.rate_limit":      0.0,
	"remote.lock":            true,
	"manifest.name":          types.DefaultManifestName,
	"manifest.checksum_name": types.DefaultChecksumName,
}

// loadConfig reads and validates the configuration.
func loadConfig() (types.Config, error) {
	cfg, err := readConfig()
	if err != nil {
		return types.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// readConfig reads config.yaml from the resolved config directory using
// Viper, applies SQLITE_DIFF_* environment overrides and resolves the work
// directory. A missing config.yaml is not an error.
func readConfig() (types.Config, error) {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve config dir: %w", err)
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.WorkDir, err = paths.ResolveWorkDir(flags.workDir, cfg.WorkDir)
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve work dir: %w", err)
	}

	return cfg, nil
}

// defaultConfig is written by init.
func defaultConfig() types.Config {
	return types.Config{
		Table:               "items",
		PrimaryKey:          "id",
		MaxPreviousVersions: types.DefaultMaxPreviousVersions,
		BatchSize:           types.DefaultBatchSize,
		Compression:         types.DefaultCompression,
		Source: types.SourceConfig{
			Driver: types.DriverMySQL,
			DSN:    "user:password@tcp(localhost:3306)/database",
		},
		Remote: types.RemoteConfig{
			URL:     "ftp://ftp.example.com/exports",
			Timeout: types.DefaultRemoteTimeout,
			Lock:    true,
		},
		Manifest: types.ManifestConfig{
			Name:         types.DefaultManifestName,
			ChecksumName: types.DefaultChecksumName,
		},
	}
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. If it already exists, the function returns nil (idempotent).
func writeConfigIfMissing(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	cfg := defaultConfig()
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	header := "# sqlite-diff configuration\n# Every key can be overridden with SQLITE_DIFF_<KEY>, e.g. SQLITE_DIFF_SOURCE_DSN.\n\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0o600); err != nil {
		return false, err
	}
	return true, nil
}

func configPath(configDir string) string {
	return filepath.Join(configDir, configFileExt)
}
