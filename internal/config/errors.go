package config

import "errors"

// Configuration validation errors. Package-level sentinel errors let
// callers use errors.Is for programmatic handling while keeping
// human-readable messages.
var (
	// ErrNoTarget is returned when no PDF path was given.
	ErrNoTarget = errors.New("no target specified: provide one or more PDF paths")

	// ErrMalformedAPIKey is returned when the reputation API key does not
	// look like a valid credential (64 hex characters). A malformed key
	// would make every lookup fail at scan time; failing at startup is
	// kinder.
	ErrMalformedAPIKey = errors.New("malformed reputation API key: expected 64 hex characters")

	// ErrInvalidCacheTTL is returned when the cache TTL is not positive.
	ErrInvalidCacheTTL = errors.New("invalid cache TTL: must be positive")

	// ErrInvalidCacheCapacity is returned when the cache capacity is not
	// positive.
	ErrInvalidCacheCapacity = errors.New("invalid cache capacity: must be positive")

	// ErrInvalidConcurrency is returned when a worker pool bound is not
	// positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: worker pool bounds must be positive")

	// ErrInvalidScanTimeout is returned when the scan timeout is not
	// positive.
	ErrInvalidScanTimeout = errors.New("invalid scan timeout: must be positive")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")
)
