package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitWritesSample(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := runCLI(t, configPath, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	_, err = runCLI(t, configPath, "config", "init", "--path", target)
	if err == nil {
		t.Fatal("expected error when config already exists without --overwrite")
	}

	if _, err := runCLI(t, configPath, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	configPath, cfg := writeTestConfig(t)
	cfg.Hosts.IMX.SessionCookie = "super-secret"
	rewriteConfig(t, configPath, cfg)

	out, err := runCLI(t, configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[redacted]")
	if strings.Contains(out, "super-secret") {
		t.Fatalf("secret leaked into output: %q", out)
	}
}

func TestConfigPathPrintsResolvedLocation(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	out, err := runCLI(t, configPath, "config", "path")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	requireContains(t, out, configPath)
}
