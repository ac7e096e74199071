package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".qrscan"

// ErrConfigNotFound is returned when the configuration file does not
// exist. Callers decide whether that matters based on whether the path
// was explicitly specified.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the YAML configuration file shape. All fields are optional;
// zero values mean "use the default". Field names follow the option names
// in the documentation.
type File struct {
	// ReputationAPIKey is the reputation service credential.
	ReputationAPIKey string `yaml:"reputation_api_key"`

	// CacheTTLSeconds overrides the verdict cache TTL.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`

	// CacheCapacity overrides the verdict cache capacity.
	CacheCapacity int `yaml:"cache_capacity"`

	// PageConcurrency overrides the page worker pool size.
	PageConcurrency int `yaml:"page_concurrency"`

	// ClassificationConcurrency overrides the classification pool size.
	ClassificationConcurrency int `yaml:"classification_concurrency"`

	// ScanTimeoutSeconds overrides the per-document scan deadline.
	ScanTimeoutSeconds int `yaml:"scan_timeout_seconds"`

	// DatabaseDir overrides the results database directory.
	DatabaseDir string `yaml:"database_dir"`
}

// LoadConfigFile loads options from a YAML file. A missing file returns
// ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	return &cf, nil
}

// Apply copies the file's non-zero options onto the config. CLI flags are
// applied after this, so flags win over the file.
func (f *File) Apply(cfg *Config) {
	if f.ReputationAPIKey != "" {
		cfg.APIKey = f.ReputationAPIKey
	}
	if f.CacheTTLSeconds > 0 {
		cfg.CacheTTL = time.Duration(f.CacheTTLSeconds) * time.Second
	}
	if f.CacheCapacity > 0 {
		cfg.CacheCapacity = f.CacheCapacity
	}
	if f.PageConcurrency > 0 {
		cfg.PageConcurrency = f.PageConcurrency
	}
	if f.ClassificationConcurrency > 0 {
		cfg.ClassifyConcurrency = f.ClassificationConcurrency
	}
	if f.ScanTimeoutSeconds > 0 {
		cfg.ScanTimeout = time.Duration(f.ScanTimeoutSeconds) * time.Second
	}
	if f.DatabaseDir != "" {
		cfg.DBDir = f.DatabaseDir
	}
}

// FindConfigFile searches for the configuration file:
//  1. the explicit path, if given
//  2. .qrscan in the current directory
//  3. .qrscan in the user's home directory
//
// Returns the path found, or empty string.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}
