// Package report renders scan results for humans and tools.
//
// Three formats are supported: plain text for terminal display, JSON for
// programmatic consumption, and Markdown for documentation and sharing.
// All writers implement the same Writer interface so callers can compose
// output destinations with MultiWriter.
package report
