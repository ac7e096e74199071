package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/docvet/qrscan/internal/model"
)

// ScanDB provides SQLite storage for scan results.
//
// Design decision: One database file holds all documents' results rather
// than one file per document. The (document_id, ...) keys make cross-
// document queries trivial and there is only one file to back up.
type ScanDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures ScanDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent
	// performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a ScanDB in the given directory.
func Open(dbDir string, opts Options) (*ScanDB, error) {
	dbPath := filepath.Join(dbDir, "qrscan.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports only one writer; multiple idle connections buy
	// nothing here.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &ScanDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := sdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return sdb, nil
}

// Close closes the database connection.
func (sdb *ScanDB) Close() error {
	return sdb.db.Close()
}

// createTables creates the schema if it doesn't exist.
func (sdb *ScanDB) createTables() error {
	schema := `
	-- Scan-level metadata, one row per scan invocation. The full result
	-- JSON is kept alongside the tabular rows for history rendering.
	CREATE TABLE IF NOT EXISTS scans (
		scan_id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		duration_ms INTEGER NOT NULL,
		page_count INTEGER NOT NULL,
		code_count INTEGER NOT NULL,
		url_count INTEGER NOT NULL,
		degraded_count INTEGER NOT NULL,
		timed_out INTEGER NOT NULL DEFAULT 0,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scans_document ON scans(document_id);
	CREATE INDEX IF NOT EXISTS idx_scans_started ON scans(started_at);

	-- Per-page status, keyed by (document_id, page_index). Re-scanning a
	-- document replaces its rows.
	CREATE TABLE IF NOT EXISTS scan_pages (
		document_id TEXT NOT NULL,
		page_index INTEGER NOT NULL,
		status TEXT NOT NULL,
		code_count INTEGER NOT NULL,
		error_detail TEXT,
		code_errors TEXT,
		UNIQUE(document_id, page_index)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_document ON scan_pages(document_id);

	-- Per-URL verdicts, keyed by (document_id, normalized_url).
	CREATE TABLE IF NOT EXISTS scan_urls (
		document_id TEXT NOT NULL,
		normalized_url TEXT NOT NULL,
		category TEXT NOT NULL,
		confidence REAL NOT NULL,
		source TEXT NOT NULL,
		evaluated_at DATETIME NOT NULL,
		provenance TEXT NOT NULL,
		UNIQUE(document_id, normalized_url)
	);

	CREATE INDEX IF NOT EXISTS idx_urls_document ON scan_urls(document_id);
	CREATE INDEX IF NOT EXISTS idx_urls_category ON scan_urls(category);
	`

	_, err := sdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveScanResult persists a complete scan result in one transaction:
// the scans row, the per-page rows, and the per-URL rows. Existing rows
// for the same document are replaced, so the tables always reflect each
// document's latest scan.
func (sdb *ScanDB) SaveScanResult(ctx context.Context, result *model.ScanResult) error {
	reportJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to serialize scan result: %w", err)
	}

	tx, err := sdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	_, err = tx.ExecContext(ctx, `
	INSERT INTO scans (scan_id, document_id, started_at, duration_ms, page_count, code_count, url_count, degraded_count, timed_out, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		result.ScanID,
		result.DocumentID,
		result.Metadata.StartedAt.UTC().Format(time.RFC3339Nano),
		result.Metadata.DurationMS,
		result.Metadata.PageCount,
		result.Metadata.CodeCount,
		result.Metadata.URLCount,
		result.Metadata.DegradedCount,
		boolToInt(result.Metadata.TimedOut),
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan: %w", err)
	}

	for _, page := range result.Pages {
		codeErrors, err := json.Marshal(page.CodeErrors)
		if err != nil {
			return fmt.Errorf("failed to serialize code errors: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
		INSERT INTO scan_pages (document_id, page_index, status, code_count, error_detail, code_errors)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id, page_index) DO UPDATE SET
			status = excluded.status,
			code_count = excluded.code_count,
			error_detail = excluded.error_detail,
			code_errors = excluded.code_errors
		`,
			result.DocumentID,
			page.Index,
			string(page.Status),
			page.CodeCount,
			page.ErrorDetail,
			string(codeErrors),
		)
		if err != nil {
			return fmt.Errorf("failed to insert page %d: %w", page.Index, err)
		}
	}

	for url, verdict := range result.URLs {
		provenance, err := json.Marshal(verdict.Sources)
		if err != nil {
			return fmt.Errorf("failed to serialize provenance: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
		INSERT INTO scan_urls (document_id, normalized_url, category, confidence, source, evaluated_at, provenance)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id, normalized_url) DO UPDATE SET
			category = excluded.category,
			confidence = excluded.confidence,
			source = excluded.source,
			evaluated_at = excluded.evaluated_at,
			provenance = excluded.provenance
		`,
			result.DocumentID,
			url,
			string(verdict.Category),
			verdict.Confidence,
			string(verdict.Source),
			verdict.EvaluatedAt.UTC().Format(time.RFC3339Nano),
			string(provenance),
		)
		if err != nil {
			return fmt.Errorf("failed to insert url verdict: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scan result: %w", err)
	}

	return nil
}

// LoadScanResult reconstructs a document's latest scan result from the
// tabular rows alone, without touching the stored report JSON. Returns
// nil without error when the document has never been scanned.
func (sdb *ScanDB) LoadScanResult(ctx context.Context, documentID string) (*model.ScanResult, error) {
	result := &model.ScanResult{
		DocumentID: documentID,
		Pages:      make([]model.PageOutcome, 0),
		URLs:       make(map[string]model.URLVerdict),
	}

	var startedAt string
	err := sdb.db.QueryRowContext(ctx, `
	SELECT scan_id, started_at, duration_ms, page_count, code_count, url_count, degraded_count, timed_out
	FROM scans WHERE document_id = ?
	ORDER BY started_at DESC LIMIT 1
	`, documentID).Scan(
		&result.ScanID,
		&startedAt,
		&result.Metadata.DurationMS,
		&result.Metadata.PageCount,
		&result.Metadata.CodeCount,
		&result.Metadata.URLCount,
		&result.Metadata.DegradedCount,
		&result.Metadata.TimedOut,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scan: %w", err)
	}
	result.Metadata.StartedAt = parseTimestamp(startedAt)

	rows, err := sdb.db.QueryContext(ctx, `
	SELECT page_index, status, code_count, error_detail, code_errors
	FROM scan_pages WHERE document_id = ?
	ORDER BY page_index
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var page model.PageOutcome
		var status string
		var errorDetail sql.NullString
		var codeErrors sql.NullString

		if err := rows.Scan(&page.Index, &status, &page.CodeCount, &errorDetail, &codeErrors); err != nil {
			return nil, fmt.Errorf("failed to scan page row: %w", err)
		}
		page.Status = model.PageStatus(status)
		page.ErrorDetail = errorDetail.String
		if codeErrors.Valid && codeErrors.String != "" && codeErrors.String != "null" {
			if err := json.Unmarshal([]byte(codeErrors.String), &page.CodeErrors); err != nil {
				return nil, fmt.Errorf("failed to parse code errors: %w", err)
			}
		}
		result.Pages = append(result.Pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pages: %w", err)
	}

	urlRows, err := sdb.db.QueryContext(ctx, `
	SELECT normalized_url, category, confidence, source, evaluated_at, provenance
	FROM scan_urls WHERE document_id = ?
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load urls: %w", err)
	}
	defer urlRows.Close()

	for urlRows.Next() {
		var url, category, source, evaluatedAt, provenance string
		var verdict model.URLVerdict

		if err := urlRows.Scan(&url, &category, &verdict.Confidence, &source, &evaluatedAt, &provenance); err != nil {
			return nil, fmt.Errorf("failed to scan url row: %w", err)
		}

		verdict.Category, err = model.ParseCategory(category)
		if err != nil {
			return nil, fmt.Errorf("corrupt url row for %s: %w", url, err)
		}
		verdict.Source = model.Source(source)
		verdict.EvaluatedAt = parseTimestamp(evaluatedAt)
		if err := json.Unmarshal([]byte(provenance), &verdict.Sources); err != nil {
			return nil, fmt.Errorf("failed to parse provenance: %w", err)
		}

		result.URLs[url] = verdict
	}
	if err := urlRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate urls: %w", err)
	}

	return result, nil
}

// ScanSummary is one row of scan history.
type ScanSummary struct {
	ScanID     string
	DocumentID string
	StartedAt  time.Time
	DurationMS int64
	PageCount  int
	URLCount   int
	Degraded   int
	TimedOut   bool
}

// ListScans returns scan history, newest first. When documentID is
// non-empty only that document's scans are listed.
func (sdb *ScanDB) ListScans(ctx context.Context, documentID string, limit int) ([]ScanSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
	SELECT scan_id, document_id, started_at, duration_ms, page_count, url_count, degraded_count, timed_out
	FROM scans
	`
	args := make([]interface{}, 0, 2)
	if documentID != "" {
		query += " WHERE document_id = ?"
		args = append(args, documentID)
	}
	query += " ORDER BY started_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := sdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	var summaries []ScanSummary
	for rows.Next() {
		var s ScanSummary
		var startedAt string

		if err := rows.Scan(&s.ScanID, &s.DocumentID, &startedAt, &s.DurationMS, &s.PageCount, &s.URLCount, &s.Degraded, &s.TimedOut); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		s.StartedAt = parseTimestamp(startedAt)
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

// parseTimestamp handles the timestamp formats SQLite may return.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// boolToInt stores booleans as SQLite integers.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
