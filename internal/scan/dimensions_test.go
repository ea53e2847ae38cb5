package scan_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"bbdrop/internal/scan"
	"bbdrop/internal/testsupport"
)

func writePNG(t *testing.T, dir, name string, width, height int) scan.FileInfo {
	t.Helper()
	path := testsupport.WritePNG(t, dir, name, width, height)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", name, err)
	}
	return scan.FileInfo{Name: name, Path: path, Size: info.Size()}
}

func TestScanDimensionsSummary(t *testing.T) {
	dir := t.TempDir()
	files := []scan.FileInfo{
		writePNG(t, dir, "01.png", 800, 600),
		writePNG(t, dir, "02.png", 800, 600),
		writePNG(t, dir, "03.png", 1024, 768),
	}

	summary, err := scan.ScanDimensions(context.Background(), files, 2)
	if err != nil {
		t.Fatalf("ScanDimensions returned error: %v", err)
	}
	if summary.Scanned != 3 {
		t.Fatalf("Scanned = %d, want 3", summary.Scanned)
	}
	if summary.Width != 800 || summary.Height != 600 {
		t.Fatalf("mode dimensions = %dx%d, want 800x600", summary.Width, summary.Height)
	}
	if summary.LongestEdge != 1024 {
		t.Fatalf("LongestEdge = %d, want 1024", summary.LongestEdge)
	}
}

func TestScanDimensionsSkipsUndecodableFiles(t *testing.T) {
	dir := t.TempDir()
	files := []scan.FileInfo{
		writePNG(t, dir, "ok.png", 640, 480),
	}
	badPath := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(badPath, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write bad file: %v", err)
	}
	files = append(files, scan.FileInfo{Name: "bad.png", Path: badPath})

	summary, err := scan.ScanDimensions(context.Background(), files, 4)
	if err != nil {
		t.Fatalf("ScanDimensions returned error: %v", err)
	}
	if summary.Scanned != 1 {
		t.Fatalf("Scanned = %d, want 1", summary.Scanned)
	}
	if summary.Width != 640 || summary.Height != 480 {
		t.Fatalf("mode dimensions = %dx%d, want 640x480", summary.Width, summary.Height)
	}
}

func TestScanDimensionsEmptyInput(t *testing.T) {
	summary, err := scan.ScanDimensions(context.Background(), nil, 4)
	if err != nil {
		t.Fatalf("ScanDimensions returned error: %v", err)
	}
	if summary.Scanned != 0 || summary.Width != 0 || summary.LongestEdge != 0 {
		t.Fatalf("expected zero summary, got %+v", summary)
	}
}

func TestFreeSpaceReportsNonzero(t *testing.T) {
	free, err := scan.FreeSpace(t.TempDir())
	if err != nil {
		t.Fatalf("FreeSpace returned error: %v", err)
	}
	if free == 0 {
		t.Fatal("expected nonzero free space on temp filesystem")
	}
}
