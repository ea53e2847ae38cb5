package testsupport

import (
	"path/filepath"
	"testing"

	"bbdrop/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Both hosts start disabled so no test reaches the network by accident;
// everything else carries the repository defaults.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.ArtifactDir = filepath.Join(base, "artifacts")
	cfg.Paths.TemplatesDir = filepath.Join(base, "templates")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Hosts.IMX.Enabled = false
	cfg.Hosts.Turbo.Enabled = false

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithDefaultHost overrides the default upload host on the test config.
func WithDefaultHost(id string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Upload.DefaultHost = id
	}
}

// WithHostEnabled switches on the named host with a placeholder session
// cookie so registry construction succeeds.
func WithHostEnabled(id string) ConfigOption {
	return func(cfg *config.Config) {
		switch id {
		case "imx":
			cfg.Hosts.IMX.Enabled = true
			cfg.Hosts.IMX.SessionCookie = "test-session"
		case "turbo":
			cfg.Hosts.Turbo.Enabled = true
			cfg.Hosts.Turbo.SessionCookie = "test-session"
		}
	}
}

// WithNtfyTopic points notifications at the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
