package main

import (
	"strings"
	"testing"
)

// TestNewHistoryCmd tests the history command creation.
func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "history [document-id]" {
			t.Errorf("expected use 'history [document-id]', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	t.Run("has show flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("show")
		if flag == nil {
			t.Fatal("expected show flag")
		}
		if flag.Shorthand != "s" {
			t.Errorf("expected shorthand 's', got %q", flag.Shorthand)
		}
	})

	t.Run("has limit flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("limit")
		if flag == nil {
			t.Fatal("expected limit flag")
		}
		if flag.DefValue != "50" {
			t.Errorf("expected default '50', got %q", flag.DefValue)
		}
	})

	t.Run("has json flag", func(t *testing.T) {
		t.Parallel()
		if cmd.Flags().Lookup("json") == nil {
			t.Error("expected json flag")
		}
	})
}

func TestTruncateDocumentID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		id   string
		want string
	}{
		{
			name: "short id unchanged",
			id:   "invoice.pdf#3a1b9cde0f12",
			want: "invoice.pdf#3a1b9cde0f12",
		},
		{
			name: "long name keeps hash",
			id:   strings.Repeat("x", 60) + "#3a1b9cde0f12",
			want: strings.Repeat("x", 28) + "..." + "#3a1b9cde0f12",
		},
		{
			name: "long id without hash truncated",
			id:   strings.Repeat("y", 60),
			want: strings.Repeat("y", 41) + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := truncateDocumentID(tt.id)
			if got != tt.want {
				t.Errorf("truncateDocumentID(%q) = %q, want %q", tt.id, got, tt.want)
			}
			if len(got) > 44 {
				t.Errorf("truncated id too long: %d chars", len(got))
			}
		})
	}
}
