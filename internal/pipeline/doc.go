// Package pipeline orchestrates a document scan as an explicit sequence
// of stages: loading, rasterizing, decoding, extracting, classifying,
// aggregating. The pipeline owns worker concurrency and the
// error-isolation policy: after loading, no single page or URL failure
// can fail the whole scan, and cancellation never discards completed
// work.
package pipeline
