package config

import (
	"path/filepath"
	"regexp"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultCacheTTL is one day. URL reputations change slowly enough
	// that a day-old verdict is still meaningful, and the free reputation
	// tier is rate-limited enough that refreshing more often hurts.
	DefaultCacheTTL = 24 * time.Hour

	// DefaultCacheCapacity bounds the number of distinct cached URLs.
	DefaultCacheCapacity = 4096

	// DefaultPageConcurrency is the rasterize/decode worker pool size.
	// Page work is CPU-bound, so a small pool saturates typical machines
	// without ballooning memory on image-heavy documents.
	DefaultPageConcurrency = 4

	// DefaultClassifyConcurrency bounds concurrent URL classifications.
	// Classification blocks on reputation lookups, so it gets more slots
	// than page work, but stays bounded to respect service rate limits.
	DefaultClassifyConcurrency = 8

	// DefaultScanTimeout bounds one whole document scan. When it expires,
	// unfinished pages and URLs are recorded with timeout errors and the
	// partial result is still returned.
	DefaultScanTimeout = 5 * time.Minute

	// AppName is the application name used for XDG directory paths.
	AppName = "qrscan"

	// APIKeyEnvVar is the environment variable consulted for the
	// reputation API key when no flag or config file provides one.
	APIKeyEnvVar = "QRSCAN_API_KEY"
)

// apiKeyPattern is the shape of a VirusTotal API key: 64 hex characters.
// Validating the format up front turns a typo into a startup error
// instead of a silent all-lookups-fail scan.
var apiKeyPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Config holds all scanner options. It is populated from defaults, then
// the configuration file, then CLI flags, and passed through the
// application by dependency injection rather than global state.
type Config struct {
	// APIKey is the reputation service credential. When empty, no live
	// lookups happen and every verdict is heuristic-only.
	APIKey string

	// CacheTTL is the maximum age before a cached verdict must be
	// refreshed by a live lookup.
	CacheTTL time.Duration

	// CacheCapacity is the maximum number of distinct cached URLs before
	// least-recently-used eviction starts.
	CacheCapacity int

	// PageConcurrency bounds the page rasterize/decode worker pool.
	PageConcurrency int

	// ClassifyConcurrency bounds concurrent URL classifications.
	ClassifyConcurrency int

	// ScanTimeout is the whole-scan deadline per document.
	ScanTimeout time.Duration

	// Verbose enables debug-level log output.
	Verbose bool

	// JSONReport selects JSON report output. Mutually exclusive with
	// MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown report output. Mutually exclusive
	// with JSONReport.
	MarkdownReport bool

	// ReportFile is the output path for the report. Empty means stdout.
	ReportFile string

	// DBDir is the directory for the results database. Empty disables
	// persistence.
	DBDir string

	// SaveToDB indicates whether scan results are stored in the database.
	SaveToDB bool

	// BatchSize is the number of documents scanned concurrently when
	// several are given.
	BatchSize int

	// ConfigFilePath is an explicit configuration file path. Empty means
	// search the standard locations.
	ConfigFilePath string

	// Targets is the list of PDF paths to scan.
	Targets []string
}

// NewConfig creates a Config with defaults. Many defaults are non-zero,
// so relying on zero values would be wrong; this constructor also
// documents what the defaults are.
func NewConfig() *Config {
	return &Config{
		CacheTTL:            DefaultCacheTTL,
		CacheCapacity:       DefaultCacheCapacity,
		PageConcurrency:     DefaultPageConcurrency,
		ClassifyConcurrency: DefaultClassifyConcurrency,
		ScanTimeout:         DefaultScanTimeout,
		BatchSize:           1,
	}
}

// XDGDataDir returns the XDG data directory for qrscan, the default home
// of the results database.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for qrscan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
// It is called once after flag and file parsing, before any scanning, so
// configuration errors fail fast with a clear message.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	if c.APIKey != "" && !apiKeyPattern.MatchString(c.APIKey) {
		return ErrMalformedAPIKey
	}

	if c.CacheTTL <= 0 {
		return ErrInvalidCacheTTL
	}

	if c.CacheCapacity <= 0 {
		return ErrInvalidCacheCapacity
	}

	if c.PageConcurrency <= 0 || c.ClassifyConcurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.ScanTimeout <= 0 {
		return ErrInvalidScanTimeout
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	return nil
}
