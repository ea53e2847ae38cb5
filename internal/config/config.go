package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir      string `toml:"data_dir"`
	ArtifactDir  string `toml:"artifact_dir"`
	TemplatesDir string `toml:"templates_dir"`
	LogDir       string `toml:"log_dir"`
}

// Upload contains the engine defaults applied when a queue item or CLI flag
// does not override them.
type Upload struct {
	ParallelBatchSize int    `toml:"parallel_batch_size"`
	MaxRetries        int    `toml:"max_retries"`
	ThumbnailSize     int    `toml:"thumbnail_size"`
	ThumbnailFormat   int    `toml:"thumbnail_format"`
	AutoRename        bool   `toml:"auto_rename"`
	SkipOversized     bool   `toml:"skip_oversized"`
	DefaultHost       string `toml:"default_host"`
	DefaultTemplate   string `toml:"default_template"`
}

// Host contains per-image-host connection settings. SessionCookie and APIKey
// are passed through to the host client verbatim; bbdrop performs no web login.
type Host struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	APIBaseURL     string `toml:"api_base_url"`
	MaxFileSizeMB  int    `toml:"max_file_size_mb"`
	ConnectTimeout int    `toml:"connect_timeout"`
	ReadTimeout    int    `toml:"read_timeout"`
	SessionCookie  string `toml:"session_cookie"`
	APIKey         string `toml:"api_key"`
}

// Hosts groups the supported image hosts.
type Hosts struct {
	IMX   Host `toml:"imx"`
	Turbo Host `toml:"turbo"`
}

// Daemon contains configuration for bbdropd timing and preflight checks.
type Daemon struct {
	QueuePollInterval int `toml:"queue_poll_interval"`
	HeartbeatInterval int `toml:"heartbeat_interval"`
	MinFreeSpaceMB    int `toml:"min_free_space_mb"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Uploads        bool   `toml:"uploads"`
	Errors         bool   `toml:"errors"`
	QueueEmpty     bool   `toml:"queue_empty"`
}

// Config encapsulates all configuration values for bbdrop.
//
// Configuration sections by subsystem:
//   - Paths: data, artifact, template, and log directories
//   - Upload: engine concurrency/retry/thumbnail defaults
//   - Hosts: per-host connection settings (imx, turbo)
//   - Daemon: bbdropd polling and preflight settings
//   - Logging: log format, level, and retention
//   - Notifications: ntfy push notification settings
type Config struct {
	Paths         Paths         `toml:"paths"`
	Upload        Upload        `toml:"upload"`
	Hosts         Hosts         `toml:"hosts"`
	Daemon        Daemon        `toml:"daemon"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/bbdrop/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/bbdrop/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("bbdrop.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories bbdrop writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.ArtifactDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.TemplatesDir) != "" {
		// Best-effort; template dir may live on storage that is offline.
		_ = os.MkdirAll(c.Paths.TemplatesDir, 0o755)
	}
	return nil
}

// QueueDBPath returns the sqlite database location for the gallery queue.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.DataDir, "queue.db")
}

// RenameLedgerPath returns the bbolt database location for pending renames.
func (c *Config) RenameLedgerPath() string {
	return filepath.Join(c.Paths.DataDir, "renames.db")
}

// LockFilePath returns the daemon instance lock location.
func (c *Config) LockFilePath() string {
	return filepath.Join(c.Paths.DataDir, "bbdropd.lock")
}

// HostConfig returns the settings for the named host.
func (c *Config) HostConfig(id string) (Host, bool) {
	switch strings.ToLower(strings.TrimSpace(id)) {
	case "imx":
		return c.Hosts.IMX, true
	case "turbo":
		return c.Hosts.Turbo, true
	default:
		return Host{}, false
	}
}

// EnabledHosts returns the identifiers of all enabled hosts in stable order.
func (c *Config) EnabledHosts() []string {
	ids := make([]string, 0, 2)
	if c.Hosts.IMX.Enabled {
		ids = append(ids, "imx")
	}
	if c.Hosts.Turbo.Enabled {
		ids = append(ids, "turbo")
	}
	return ids
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
