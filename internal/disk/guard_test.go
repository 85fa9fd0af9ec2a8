package disk

import (
	"math"
	"testing"
)

func TestGuard_FreeSpace(t *testing.T) {
	g := New(t.TempDir(), 0)

	free, err := g.FreeSpace()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if free == 0 {
		t.Error("expected non-zero free space on temp dir")
	}
	if got := g.LastFree(); got != free {
		t.Errorf("LastFree: expected %d, got %d", free, got)
	}
}

func TestGuard_Authorize(t *testing.T) {
	// Zero threshold always authorizes.
	g := New(t.TempDir(), 0)
	ok, err := g.Authorize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected authorization with zero threshold")
	}

	// An impossible threshold always refuses.
	g = New(t.TempDir(), math.MaxUint64)
	ok, err = g.Authorize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected refusal with max threshold")
	}
}

func TestGuard_MissingPath(t *testing.T) {
	g := New("/nonexistent/path/for/guard", 0)

	if _, err := g.FreeSpace(); err == nil {
		t.Error("expected error for missing path")
	}
	ok, err := g.Authorize()
	if err == nil {
		t.Error("expected error for missing path")
	}
	if ok {
		t.Error("statfs failure must refuse authorization")
	}
}

func TestBytesFromGB(t *testing.T) {
	tests := []struct {
		gb   float64
		want uint64
	}{
		{0, 0},
		{-1, 0},
		{1, 1 << 30},
		{0.5, 1 << 29},
		{50, 50 << 30},
	}

	for _, tt := range tests {
		if got := BytesFromGB(tt.gb); got != tt.want {
			t.Errorf("BytesFromGB(%v): expected %d, got %d", tt.gb, tt.want, got)
		}
	}
}
