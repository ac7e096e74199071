// Package extract turns raw decoded QR payloads into normalized,
// deduplicated URL candidates with provenance. Extraction is a pure
// function over the decoded codes: it performs no I/O and non-URL
// payloads are silently ignored.
package extract
