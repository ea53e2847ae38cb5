package rename_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"bbdrop/internal/rename"
	"bbdrop/internal/services"
)

func openTestLedger(t *testing.T) *rename.Ledger {
	t.Helper()
	ledger, err := rename.OpenLedger(filepath.Join(t.TempDir(), "renames.db"))
	if err != nil {
		t.Fatalf("OpenLedger: %v", err)
	}
	t.Cleanup(func() { ledger.Close() })
	return ledger
}

func mustPending(t *testing.T, ledger *rename.Ledger) []rename.Entry {
	t.Helper()
	entries, err := ledger.Pending()
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	return entries
}

func TestLedgerPutAndPending(t *testing.T) {
	ledger := openTestLedger(t)

	first := rename.Entry{
		Host:        "imx",
		GalleryID:   "abc123",
		GalleryName: "Summer Trip",
		QueuedAt:    time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
	second := rename.Entry{
		Host:        "turbo",
		GalleryID:   "987654",
		GalleryName: "Winter Trip",
		QueuedAt:    time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC),
		Attempts:    2,
		LastError:   "session expired",
	}
	if err := ledger.Put(second); err != nil {
		t.Fatalf("Put second: %v", err)
	}
	if err := ledger.Put(first); err != nil {
		t.Fatalf("Put first: %v", err)
	}

	entries := mustPending(t, ledger)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].GalleryID != "abc123" || entries[1].GalleryID != "987654" {
		t.Fatalf("expected queue-time order, got %q then %q", entries[0].GalleryID, entries[1].GalleryID)
	}
	if entries[1].Attempts != 2 || entries[1].LastError != "session expired" {
		t.Fatalf("entry fields did not round-trip: %+v", entries[1])
	}
}

func TestLedgerPutReplacesExisting(t *testing.T) {
	ledger := openTestLedger(t)

	entry := rename.Entry{Host: "imx", GalleryID: "abc123", GalleryName: "First Name"}
	if err := ledger.Put(entry); err != nil {
		t.Fatalf("Put: %v", err)
	}
	entry.GalleryName = "Second Name"
	entry.Attempts = 1
	if err := ledger.Put(entry); err != nil {
		t.Fatalf("Put replacement: %v", err)
	}

	entries := mustPending(t, ledger)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after replacement, got %d", len(entries))
	}
	if entries[0].GalleryName != "Second Name" || entries[0].Attempts != 1 {
		t.Fatalf("expected replacement to win, got %+v", entries[0])
	}
}

func TestLedgerPutStampsQueueTime(t *testing.T) {
	ledger := openTestLedger(t)

	before := time.Now().UTC()
	if err := ledger.Put(rename.Entry{Host: "imx", GalleryID: "abc123", GalleryName: "Trip"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	entries := mustPending(t, ledger)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].QueuedAt.Before(before.Add(-time.Second)) {
		t.Fatalf("expected Put to stamp QueuedAt, got %v", entries[0].QueuedAt)
	}
}

func TestLedgerRemove(t *testing.T) {
	ledger := openTestLedger(t)

	if err := ledger.Put(rename.Entry{Host: "imx", GalleryID: "abc123", GalleryName: "Trip"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := ledger.Remove("imx", "abc123"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if entries := mustPending(t, ledger); len(entries) != 0 {
		t.Fatalf("expected empty ledger, got %d entries", len(entries))
	}
	if err := ledger.Remove("imx", "missing"); err != nil {
		t.Fatalf("Remove of absent entry: %v", err)
	}
}

func TestLedgerPutValidation(t *testing.T) {
	ledger := openTestLedger(t)

	if err := ledger.Put(rename.Entry{Host: "imx", GalleryName: "Trip"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty gallery id, got %v", err)
	}
	if err := ledger.Put(rename.Entry{Host: "imx", GalleryID: "abc123"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty gallery name, got %v", err)
	}
}

func TestLedgerSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "renames.db")
	ledger, err := rename.OpenLedger(path)
	if err != nil {
		t.Fatalf("OpenLedger: %v", err)
	}
	if err := ledger.Put(rename.Entry{Host: "imx", GalleryID: "abc123", GalleryName: "Trip"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := ledger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := rename.OpenLedger(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	entries := mustPending(t, reopened)
	if len(entries) != 1 || entries[0].GalleryID != "abc123" {
		t.Fatalf("expected entry to survive reopen, got %+v", entries)
	}
}

func TestOpenLedgerCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data", "renames.db")
	ledger, err := rename.OpenLedger(path)
	if err != nil {
		t.Fatalf("OpenLedger: %v", err)
	}
	ledger.Close()
}

func TestOpenLedgerRejectsEmptyPath(t *testing.T) {
	if _, err := rename.OpenLedger("  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
