package transform_test

import (
	"context"
	"testing"

	"github.com/jeffreyurban/uniqseq/internal/transform"
)

func Test_Identity_ReturnsInputUnchanged(t *testing.T) {
	t.Parallel()

	xform := transform.Identity()

	out, err := xform.Apply([]byte("hello"))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if string(out) != "hello" {
		t.Fatalf("Apply(%q) = %q, want unchanged", "hello", out)
	}

	if err := xform.Close(); err != nil {
		t.Fatalf("Close on a nil Transform: %v", err)
	}
}

func Test_Start_RunsLineOrientedSubprocess(t *testing.T) {
	t.Parallel()

	// Each input line runs through its own tr, which exits (and so
	// flushes) per line; a single tr buffers its output on a pipe.
	xform, err := transform.Start(context.Background(), `while IFS= read -r l; do printf '%s\n' "$l" | tr a-z A-Z; done`)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer xform.Close() //nolint:errcheck

	out, err := xform.Apply([]byte("hello"))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if string(out) != "HELLO" {
		t.Fatalf("Apply(%q) = %q, want %q", "hello", out, "HELLO")
	}

	out2, err := xform.Apply([]byte("world"))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if string(out2) != "WORLD" {
		t.Fatalf("second Apply(%q) = %q, want %q", "world", out2, "WORLD")
	}
}

func Test_Close_WaitsForSubprocessExit(t *testing.T) {
	t.Parallel()

	xform, err := transform.Start(context.Background(), "cat")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := xform.Apply([]byte("line")); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if err := xform.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
