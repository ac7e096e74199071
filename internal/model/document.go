package model

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/blake2b"
)

// Document identifies one PDF under scan. It is immutable once loaded.
//
// Design decision: The ID combines the file's base name with a content-hash
// prefix rather than using the raw path. Paths are machine-specific and
// unstable across copies of the same file, while the content hash keeps the
// identity stable for the idempotence guarantees of repeated scans and for
// the (document_id, ...) keys in the database.
type Document struct {
	// ID is the stable document identifier, e.g. "invoice.pdf#5f3a9c01b2d4".
	ID string `json:"id"`

	// Path is the filesystem path the document was loaded from.
	Path string `json:"path"`

	// PageCount is the number of pages in the document.
	PageCount int `json:"page_count"`
}

// documentIDHashLen is the number of hash bytes kept in the document ID.
// Six bytes (12 hex characters) is enough to make collisions between
// same-named files practically impossible.
const documentIDHashLen = 6

// DocumentID computes the stable identifier for the file at path.
// It hashes the full file content with BLAKE2b-256 and combines the base
// name with a short hash prefix.
func DocumentID(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided document path is intentional
	if err != nil {
		return "", fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", fmt.Errorf("failed to initialize hash: %w", err)
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash document: %w", err)
	}

	sum := h.Sum(nil)
	return fmt.Sprintf("%s#%s", filepath.Base(path), hex.EncodeToString(sum[:documentIDHashLen])), nil
}
