// Package main provides the entry point for the qrscan CLI.
//
// qrscan inspects PDF documents for QR codes, extracts the URLs they
// encode, and assesses each URL's risk using reputation data and
// heuristic analysis.
//
// Usage:
//
//	qrscan scan <document.pdf>
//	qrscan scan --json invoice.pdf statement.pdf
//
// See --help for all available options.
package main

// main is the entry point for qrscan.
func main() {
	Execute()
}
