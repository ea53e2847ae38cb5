package main

import "testing"

func TestStatusReportsDaemonAndQueue(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	out, err := runCLI(t, configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Daemon:  not running")
	requireContains(t, out, "Queue is empty")
}
