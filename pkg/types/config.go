package types

import (
	"errors"
	"slices"
	"time"
)

// Config holds everything a run needs. It is built once at startup and
// passed to each component; nothing reads configuration from elsewhere.
type Config struct {
	Table        string   `mapstructure:"table" yaml:"table"`
	PrimaryKey   string   `mapstructure:"primary_key" yaml:"primary_key"`
	Columns      []string `mapstructure:"columns" yaml:"columns,omitempty"`
	OutputPrefix string   `mapstructure:"output_prefix" yaml:"output_prefix,omitempty"`

	// MaxPreviousVersions bounds the generations kept when a remote file is
	// overwritten (F.0 .. F.N).
	MaxPreviousVersions int    `mapstructure:"max_previous_versions" yaml:"max_previous_versions"`
	BatchSize           int    `mapstructure:"batch_size" yaml:"batch_size"`
	Compression         string `mapstructure:"compression" yaml:"compression"`
	WorkDir             string `mapstructure:"work_dir" yaml:"work_dir,omitempty"`

	// RefuseEmptied aborts a run that would delete every row.
	RefuseEmptied bool `mapstructure:"refuse_emptied" yaml:"refuse_emptied"`

	Source   SourceConfig   `mapstructure:"source" yaml:"source"`
	Remote   RemoteConfig   `mapstructure:"remote" yaml:"remote"`
	Manifest ManifestConfig `mapstructure:"manifest" yaml:"manifest"`
}

// SourceConfig selects the source database.
type SourceConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`

	// ModifiedColumn enables incremental reads: only rows whose column value
	// is later than the previous snapshot's timestamp are fetched.
	ModifiedColumn string `mapstructure:"modified_column" yaml:"modified_column,omitempty"`
}

// RemoteConfig selects the remote file store.
type RemoteConfig struct {
	URL      string        `mapstructure:"url" yaml:"url"`
	Username string        `mapstructure:"username" yaml:"username,omitempty"`
	Password string        `mapstructure:"password" yaml:"password,omitempty"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"`

	// RateLimit caps remote operations per second; zero disables it.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit,omitempty"`
	Lock      bool    `mapstructure:"lock" yaml:"lock"`
}

// ManifestConfig names the manifest and its checksum side file.
type ManifestConfig struct {
	Name         string `mapstructure:"name" yaml:"name"`
	ChecksumName string `mapstructure:"checksum_name" yaml:"checksum_name"`
}

// Supported compressors and source drivers.
const (
	CompressionGzip = "gzip"
	CompressionLZMA = "lzma"

	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Defaults applied by the configuration loader.
const (
	DefaultMaxPreviousVersions = 5
	DefaultBatchSize           = 500
	DefaultCompression         = CompressionGzip
	DefaultManifestName        = "manifest.json"
	DefaultChecksumName        = "manifest.md5"
	DefaultRemoteTimeout       = 30 * time.Second
)

// Config validation errors.
var (
	ErrTableEmpty          = errors.New("table must not be empty")
	ErrPrimaryKeyEmpty     = errors.New("primary key must not be empty")
	ErrBatchSizeInvalid    = errors.New("batch size must be positive")
	ErrMaxVersionsInvalid  = errors.New("max previous versions must not be negative")
	ErrCompressionUnknown  = errors.New("unknown compression")
	ErrSourceDriverUnknown = errors.New("unknown source driver")
	ErrSourceDSNEmpty      = errors.New("source dsn must not be empty")
	ErrRemoteEmpty         = errors.New("remote url must not be empty")
	ErrPrimaryKeyColumn    = errors.New("primary key must be one of the columns")
)

var knownCompressions = map[string]bool{
	CompressionGzip: true,
	CompressionLZMA: true,
}

var knownDrivers = map[string]bool{
	DriverMySQL:  true,
	DriverSQLite: true,
}

// Validate checks the fields every command needs. Remote settings are
// checked separately by ValidateRemote because local diffs do not use them.
func (c Config) Validate() error {
	if c.Table == "" {
		return ErrTableEmpty
	}
	if c.PrimaryKey == "" {
		return ErrPrimaryKeyEmpty
	}
	if len(c.Columns) > 0 && !slices.Contains(c.Columns, c.PrimaryKey) {
		return ErrPrimaryKeyColumn
	}
	if c.BatchSize <= 0 {
		return ErrBatchSizeInvalid
	}
	if c.MaxPreviousVersions < 0 {
		return ErrMaxVersionsInvalid
	}
	if !knownCompressions[c.Compression] {
		return ErrCompressionUnknown
	}
	if !knownDrivers[c.Source.Driver] {
		return ErrSourceDriverUnknown
	}
	if c.Source.DSN == "" {
		return ErrSourceDSNEmpty
	}
	return nil
}

// ValidateRemote checks the remote settings.
func (c Config) ValidateRemote() error {
	if c.Remote.URL == "" {
		return ErrRemoteEmpty
	}
	return nil
}
