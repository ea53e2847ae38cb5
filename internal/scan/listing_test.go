package scan_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"bbdrop/internal/naturalsort"
	"bbdrop/internal/scan"
)

func writeFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, bytes.Repeat([]byte{0xAB}, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestListImagesNaturalOrderAndPositions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b2.jpg", 10)
	writeFile(t, dir, "a10.jpg", 20)
	writeFile(t, dir, "a2.jpg", 30)
	writeFile(t, dir, "notes.txt", 5)
	if err := os.Mkdir(filepath.Join(dir, "thumbs"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	listing, err := scan.ListImages(dir, scan.Options{Comparator: naturalsort.NewChunked()})
	if err != nil {
		t.Fatalf("ListImages returned error: %v", err)
	}

	wantOrder := []string{"a2.jpg", "a10.jpg", "b2.jpg"}
	if len(listing.All) != len(wantOrder) {
		t.Fatalf("expected %d files, got %d", len(wantOrder), len(listing.All))
	}
	for i, want := range wantOrder {
		if listing.All[i].Name != want {
			t.Fatalf("position %d = %q, want %q", i, listing.All[i].Name, want)
		}
		if listing.All[i].Position != i {
			t.Fatalf("position index for %q = %d, want %d", want, listing.All[i].Position, i)
		}
	}
	for i, want := range wantOrder {
		if got := listing.Positions[want]; got != i {
			t.Fatalf("Positions[%q] = %d, want %d", want, got, i)
		}
	}
	if listing.TotalBytes != 60 {
		t.Fatalf("TotalBytes = %d, want 60", listing.TotalBytes)
	}
	if len(listing.Work) != 3 || listing.WorkBytes != 60 {
		t.Fatalf("expected all files in work list, got %d files / %d bytes", len(listing.Work), listing.WorkBytes)
	}
}

func TestListImagesCaseSiblingsKeepDistinctSlots(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "A1.jpg", 10)
	writeFile(t, dir, "a1.jpg", 10)

	listing, err := scan.ListImages(dir, scan.Options{Comparator: naturalsort.NewChunked()})
	if err != nil {
		t.Fatalf("ListImages returned error: %v", err)
	}

	if len(listing.All) != 2 {
		t.Fatalf("expected both case siblings listed, got %d files", len(listing.All))
	}
	if len(listing.Positions) != 2 {
		t.Fatalf("expected distinct position slots, got %v", listing.Positions)
	}
	upper, upperOK := listing.Positions["A1.jpg"]
	lower, lowerOK := listing.Positions["a1.jpg"]
	if !upperOK || !lowerOK || upper == lower {
		t.Fatalf("expected exact-name keys with distinct slots, got %v", listing.Positions)
	}
}

func TestListImagesPartitions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "01.jpg", 100)
	writeFile(t, dir, "02.jpg", 100)
	writeFile(t, dir, "03.png", 100)
	writeFile(t, dir, "huge.gif", 2*1024*1024)

	listing, err := scan.ListImages(dir, scan.Options{
		MaxFileSizeMB: 1,
		Exclude:       []string{"03.png"},
		Uploaded:      []string{"01.JPG"},
		Comparator:    naturalsort.NewChunked(),
	})
	if err != nil {
		t.Fatalf("ListImages returned error: %v", err)
	}

	if len(listing.All) != 4 {
		t.Fatalf("expected 4 files in full listing, got %d", len(listing.All))
	}
	if len(listing.Work) != 1 || listing.Work[0].Name != "02.jpg" {
		t.Fatalf("unexpected work list: %+v", listing.Work)
	}
	if len(listing.Resumed) != 1 || listing.Resumed[0].Name != "01.jpg" {
		t.Fatalf("expected 01.jpg resumed (case-insensitive), got %+v", listing.Resumed)
	}
	if len(listing.Excluded) != 1 || listing.Excluded[0].Name != "03.png" {
		t.Fatalf("expected 03.png excluded, got %+v", listing.Excluded)
	}
	if len(listing.Oversized) != 1 || listing.Oversized[0].Name != "huge.gif" {
		t.Fatalf("expected huge.gif oversized, got %+v", listing.Oversized)
	}
	if listing.WorkBytes != 100 {
		t.Fatalf("WorkBytes = %d, want 100", listing.WorkBytes)
	}
	// Resumed files keep their canonical position for later re-sorting.
	if listing.Resumed[0].Position != 0 {
		t.Fatalf("resumed position = %d, want 0", listing.Resumed[0].Position)
	}
}

func TestListImagesNoSizeLimit(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "big.jpg", 3*1024*1024)

	listing, err := scan.ListImages(dir, scan.Options{Comparator: naturalsort.NewChunked()})
	if err != nil {
		t.Fatalf("ListImages returned error: %v", err)
	}
	if len(listing.Oversized) != 0 || len(listing.Work) != 1 {
		t.Fatalf("expected no oversized skips without a limit, got %+v", listing)
	}
}

func TestListImagesMissingFolder(t *testing.T) {
	_, err := scan.ListImages(filepath.Join(t.TempDir(), "absent"), scan.Options{})
	if err == nil {
		t.Fatal("expected error for missing folder")
	}
}
