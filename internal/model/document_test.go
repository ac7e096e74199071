package model

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

func TestDocumentID(t *testing.T) {
	t.Parallel()

	writeFile := func(t *testing.T, dir, name, content string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		return path
	}

	t.Run("format is name and short hash", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, t.TempDir(), "invoice.pdf", "%PDF-1.7 content")
		id, err := DocumentID(path)
		if err != nil {
			t.Fatalf("DocumentID() error = %v", err)
		}

		if !regexp.MustCompile(`^invoice\.pdf#[0-9a-f]{12}$`).MatchString(id) {
			t.Errorf("DocumentID() = %q, want invoice.pdf#<12 hex>", id)
		}
	})

	t.Run("stable across paths for same content", func(t *testing.T) {
		t.Parallel()

		a := writeFile(t, t.TempDir(), "invoice.pdf", "identical bytes")
		b := writeFile(t, t.TempDir(), "invoice.pdf", "identical bytes")

		idA, err := DocumentID(a)
		if err != nil {
			t.Fatal(err)
		}
		idB, err := DocumentID(b)
		if err != nil {
			t.Fatal(err)
		}
		if idA != idB {
			t.Errorf("same name and content produced different IDs: %q vs %q", idA, idB)
		}
	})

	t.Run("content change changes the hash", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		a := writeFile(t, dir, "v1.pdf", "original")
		idA, err := DocumentID(a)
		if err != nil {
			t.Fatal(err)
		}

		if err := os.WriteFile(a, []byte("revised"), 0o600); err != nil {
			t.Fatal(err)
		}
		idB, err := DocumentID(a)
		if err != nil {
			t.Fatal(err)
		}
		if idA == idB {
			t.Error("different content produced the same ID")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		if _, err := DocumentID(filepath.Join(t.TempDir(), "nope.pdf")); err == nil {
			t.Error("DocumentID() error = nil, want error for missing file")
		}
	})
}
