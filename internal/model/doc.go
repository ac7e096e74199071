// Package model defines the core data types shared across the scanner:
// documents and pages, decoded QR codes, URL candidates with provenance,
// reputation verdicts, and the final scan result.
//
// Types in this package are plain data with small helper methods. All
// orchestration logic lives in the pipeline package; all I/O lives in the
// rasterize, qr, reputation, report, and database packages.
package model
