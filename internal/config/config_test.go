package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"bbdrop/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "bbdrop")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.ArtifactDir != filepath.Join(wantData, "artifacts") {
		t.Fatalf("unexpected artifact dir: %q", cfg.Paths.ArtifactDir)
	}
	if cfg.Upload.ParallelBatchSize != 4 {
		t.Fatalf("unexpected batch size: %d", cfg.Upload.ParallelBatchSize)
	}
	if cfg.Upload.MaxRetries != 3 {
		t.Fatalf("unexpected max retries: %d", cfg.Upload.MaxRetries)
	}
	if !cfg.Upload.AutoRename {
		t.Fatal("expected auto_rename enabled by default")
	}
	if cfg.Upload.DefaultHost != "imx" {
		t.Fatalf("unexpected default host: %q", cfg.Upload.DefaultHost)
	}
	if !cfg.Hosts.IMX.Enabled || cfg.Hosts.Turbo.Enabled {
		t.Fatalf("unexpected host enablement: imx=%v turbo=%v", cfg.Hosts.IMX.Enabled, cfg.Hosts.Turbo.Enabled)
	}
	if cfg.QueueDBPath() != filepath.Join(wantData, "queue.db") {
		t.Fatalf("unexpected queue db path: %q", cfg.QueueDBPath())
	}
	if cfg.RenameLedgerPath() != filepath.Join(wantData, "renames.db") {
		t.Fatalf("unexpected ledger path: %q", cfg.RenameLedgerPath())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.ArtifactDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "bbdrop.toml")

	type payload struct {
		Upload struct {
			ParallelBatchSize int    `toml:"parallel_batch_size"`
			DefaultHost       string `toml:"default_host"`
		} `toml:"upload"`
		Hosts struct {
			Turbo struct {
				Enabled bool   `toml:"enabled"`
				BaseURL string `toml:"base_url"`
			} `toml:"turbo"`
		} `toml:"hosts"`
	}
	custom := payload{}
	custom.Upload.ParallelBatchSize = 8
	custom.Upload.DefaultHost = "turbo"
	custom.Hosts.Turbo.Enabled = true
	custom.Hosts.Turbo.BaseURL = "https://turbo.example.com/"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Upload.ParallelBatchSize != 8 {
		t.Fatalf("expected batch size 8, got %d", cfg.Upload.ParallelBatchSize)
	}
	if cfg.Upload.DefaultHost != "turbo" {
		t.Fatalf("expected default host turbo, got %q", cfg.Upload.DefaultHost)
	}
	if cfg.Hosts.Turbo.BaseURL != "https://turbo.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Hosts.Turbo.BaseURL)
	}
}

func TestEnvVarOverridesSessionCookie(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "bbdrop.toml")

	body := "[hosts.imx]\nenabled = true\nsession_cookie = \"file-cookie\"\n"
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	t.Setenv("IMX_SESSION_COOKIE", "env-cookie")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Hosts.IMX.SessionCookie != "env-cookie" {
		t.Fatalf("expected session cookie from env, got %q", cfg.Hosts.IMX.SessionCookie)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "parallel_batch_size") {
		t.Fatalf("sample config missing upload settings: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Hosts.IMX.BaseURL != "https://imx.to" {
		t.Fatalf("unexpected imx base url in sample: %q", cfg.Hosts.IMX.BaseURL)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Upload.ParallelBatchSize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero batch size")
	}

	cfg = config.Default()
	cfg.Upload.ParallelBatchSize = 26
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for oversized batch size")
	}

	cfg = config.Default()
	cfg.Upload.MaxRetries = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative retries")
	}

	cfg = config.Default()
	cfg.Hosts.IMX.Enabled = false
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when no host is enabled")
	}

	cfg = config.Default()
	cfg.Upload.DefaultHost = "turbo"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when default host is disabled")
	}

	cfg = config.Default()
	cfg.Logging.Format = "yaml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown log format")
	}

	cfg = config.Default()
	cfg.Notifications.NtfyTopic = "not-a-url"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for bare ntfy topic")
	}
}
