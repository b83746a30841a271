package xmodem

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestBuildBatchHeader(t *testing.T) {
	h, err := BuildBatchHeader("A.TXT", 5)
	if err != nil {
		t.Fatalf("BuildBatchHeader: %v", err)
	}
	if len(h) != BlockSize {
		t.Fatalf("header length %d, want %d", len(h), BlockSize)
	}
	want := []byte("A.TXT\x005 \x00")
	if !bytes.Equal(h[:len(want)], want) {
		t.Fatalf("header starts %q, want %q", h[:len(want)], want)
	}
	if !bytes.Equal(h[len(want):], make([]byte, BlockSize-len(want))) {
		t.Fatal("header not zero filled")
	}
}

func TestBuildBatchHeaderTooLong(t *testing.T) {
	_, err := BuildBatchHeader(strings.Repeat("n", BlockSize), 1)
	if !IsInvalidFilename(err) {
		t.Fatalf("err = %v, want invalid filename", err)
	}
}

func TestParseBatchHeader(t *testing.T) {
	payload, err := BuildBatchHeader("A.TXT", 5)
	if err != nil {
		t.Fatalf("BuildBatchHeader: %v", err)
	}
	h, err := ParseBatchHeader(payload)
	if err != nil {
		t.Fatalf("ParseBatchHeader: %v", err)
	}
	if h.Name != "A.TXT" || h.Size != 5 {
		t.Fatalf("got %+v", h)
	}
	if !h.ModTime.IsZero() || h.Mode != 0 {
		t.Fatalf("unexpected optional fields %+v", h)
	}
}

func TestParseBatchHeaderLrzszFields(t *testing.T) {
	payload := make([]byte, BlockSize)
	copy(payload, "report.bin\x001234 13764257700 100644 0 1 1234\x00")

	h, err := ParseBatchHeader(payload)
	if err != nil {
		t.Fatalf("ParseBatchHeader: %v", err)
	}
	if h.Name != "report.bin" || h.Size != 1234 {
		t.Fatalf("got %+v", h)
	}
	if want := time.Unix(0o13764257700, 0); !h.ModTime.Equal(want) {
		t.Fatalf("mtime %v, want %v", h.ModTime, want)
	}
	if h.Mode != 0o100644 {
		t.Fatalf("mode %o", h.Mode)
	}
}

func TestParseBatchHeaderBadSize(t *testing.T) {
	payload := make([]byte, BlockSize)
	copy(payload, "A.TXT\x00five\x00")
	if _, err := ParseBatchHeader(payload); err == nil {
		t.Fatal("bad size accepted")
	}
}

func TestParseBatchHeaderNameOnly(t *testing.T) {
	payload := make([]byte, BlockSize)
	copy(payload, "A.TXT")
	h, err := ParseBatchHeader(payload)
	if err != nil {
		t.Fatalf("ParseBatchHeader: %v", err)
	}
	if h.Name != "A.TXT" || h.Size != 0 {
		t.Fatalf("got %+v", h)
	}
}

func TestIsBatchEnd(t *testing.T) {
	if !IsBatchEnd(make([]byte, BlockSize)) {
		t.Fatal("zero block not recognized as terminator")
	}
	h, _ := BuildBatchHeader("A.TXT", 5)
	if IsBatchEnd(h) {
		t.Fatal("file header recognized as terminator")
	}
	if _, err := ParseBatchHeader(make([]byte, BlockSize)); err == nil {
		t.Fatal("terminator parsed as a file header")
	}
}

func TestValidFilename(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"A.TXT", true},
		{"readme.md", true},
		{"firmware_v2.bin", true},
		{"a.b", true},
		{"noext", false},
		{"two.dots.txt", false},
		{"long.text", false},
		{"has space.txt", false},
		{"dir/a.txt", false},
		{".txt", false},
		{strings.Repeat("x", 51) + ".txt", false},
		{strings.Repeat("x", 50) + ".txt", true},
	}
	for _, tt := range tests {
		if got := ValidFilename(tt.name); got != tt.ok {
			t.Errorf("ValidFilename(%q) = %v, want %v", tt.name, got, tt.ok)
		}
	}
}
