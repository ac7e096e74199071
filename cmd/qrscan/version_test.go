package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionGetters(t *testing.T) {
	t.Parallel()

	// Whatever the build environment, every getter must resolve to a
	// non-empty value through one of its fallbacks.
	if got := getVersion(); got == "" {
		t.Error("getVersion() returned empty string")
	}
	if got := getCommit(); got == "" {
		t.Error("getCommit() returned empty string")
	}
	if got := getDate(); got == "" {
		t.Error("getDate() returned empty string")
	}
}

func TestBuildSetting(t *testing.T) {
	t.Parallel()

	if value, ok := buildSetting("no.such.setting"); ok {
		t.Errorf("buildSetting() = (%q, true) for an unknown key", value)
	}
}

func TestNewVersionCmd(t *testing.T) {
	t.Parallel()

	cmd := NewVersionCmd()
	if cmd.Use != "version" {
		t.Errorf("Use = %q, want %q", cmd.Use, "version")
	}
	if cmd.Short == "" {
		t.Error("Short is empty")
	}

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{"qrscan version", "commit", "built"} {
		if !strings.Contains(output, want) {
			t.Errorf("output %q missing %q", output, want)
		}
	}
}
