package main

import (
	"strings"
	"testing"

	"bbdrop/internal/testsupport"
)

func TestQueueAddListRemove(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	folder := t.TempDir()
	testsupport.WriteImages(t, folder, "001.jpg", "002.jpg")

	out, err := runCLI(t, configPath, "queue", "add", folder, "--name", "Test Gallery")
	if err != nil {
		t.Fatalf("queue add: %v", err)
	}
	requireContains(t, out, "Queued")
	requireContains(t, out, "item 1")

	// Re-adding the same folder is a no-op, not an error.
	out, err = runCLI(t, configPath, "queue", "add", folder)
	if err != nil {
		t.Fatalf("queue add duplicate: %v", err)
	}
	requireContains(t, out, "Skipped")

	out, err = runCLI(t, configPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Test Gallery")
	requireContains(t, out, "pending")

	out, err = runCLI(t, configPath, "queue", "list", "--status", "completed")
	if err != nil {
		t.Fatalf("queue list filtered: %v", err)
	}
	requireContains(t, out, "Queue is empty")

	out, err = runCLI(t, configPath, "queue", "remove", "1")
	if err != nil {
		t.Fatalf("queue remove: %v", err)
	}
	requireContains(t, out, "Removed item 1")

	out, err = runCLI(t, configPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list after remove: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}

func TestQueueListRejectsUnknownStatus(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	_, err := runCLI(t, configPath, "queue", "list", "--status", "bogus")
	if err == nil || !strings.Contains(err.Error(), "unknown status") {
		t.Fatalf("expected unknown status error, got %v", err)
	}
}

func TestQueueRetryRequiresTarget(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	_, err := runCLI(t, configPath, "queue", "retry")
	if err == nil {
		t.Fatal("expected error when neither ids nor --all-failed given")
	}
}

func TestQueueClearFlagsMutuallyExclusive(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	_, err := runCLI(t, configPath, "queue", "clear", "--completed", "--all")
	if err == nil {
		t.Fatal("expected error for --completed with --all")
	}
}

func TestQueueStatsEmpty(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	out, err := runCLI(t, configPath, "queue", "stats")
	if err != nil {
		t.Fatalf("queue stats: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}
