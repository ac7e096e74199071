// Package database provides SQLite-backed persistence for scan results.
// It stores the tabular relational form of each result: one table keyed
// by (document_id, normalized_url) for verdicts and one keyed by
// (document_id, page_index) for page status, plus a scans table with
// scan-level metadata. Both forms are reconstructable without loss.
package database
