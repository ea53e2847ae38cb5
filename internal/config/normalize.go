package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeUpload()
	c.normalizeHosts()
	c.normalizeDaemon()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ArtifactDir) == "" {
		c.Paths.ArtifactDir = defaultArtifactDir
	}
	if c.Paths.ArtifactDir, err = expandPath(c.Paths.ArtifactDir); err != nil {
		return fmt.Errorf("paths.artifact_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TemplatesDir) == "" {
		c.Paths.TemplatesDir = defaultTemplatesDir
	}
	if c.Paths.TemplatesDir, err = expandPath(c.Paths.TemplatesDir); err != nil {
		return fmt.Errorf("paths.templates_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeUpload() {
	c.Upload.DefaultHost = strings.ToLower(strings.TrimSpace(c.Upload.DefaultHost))
	if c.Upload.DefaultHost == "" {
		c.Upload.DefaultHost = defaultHost
	}
	c.Upload.DefaultTemplate = strings.TrimSpace(c.Upload.DefaultTemplate)
	if c.Upload.DefaultTemplate == "" {
		c.Upload.DefaultTemplate = defaultTemplate
	}
	if c.Upload.ParallelBatchSize == 0 {
		c.Upload.ParallelBatchSize = defaultParallelBatchSize
	}
	if c.Upload.ThumbnailSize == 0 {
		c.Upload.ThumbnailSize = defaultThumbnailSize
	}
	if c.Upload.ThumbnailFormat == 0 {
		c.Upload.ThumbnailFormat = defaultThumbnailFormat
	}
}

func (c *Config) normalizeHosts() {
	normalizeHost(&c.Hosts.IMX, defaultIMXBaseURL)
	normalizeHost(&c.Hosts.Turbo, defaultTurboBaseURL)
	if c.Hosts.IMX.APIBaseURL == "" {
		c.Hosts.IMX.APIBaseURL = defaultIMXAPIBaseURL
	}
	// Environment wins over file values so credentials can stay out of the
	// config on shared machines.
	if value, ok := os.LookupEnv("IMX_SESSION_COOKIE"); ok && strings.TrimSpace(value) != "" {
		c.Hosts.IMX.SessionCookie = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("IMX_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.Hosts.IMX.APIKey = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("TURBO_SESSION_COOKIE"); ok && strings.TrimSpace(value) != "" {
		c.Hosts.Turbo.SessionCookie = strings.TrimSpace(value)
	}
}

func normalizeHost(h *Host, baseURL string) {
	h.BaseURL = strings.TrimRight(strings.TrimSpace(h.BaseURL), "/")
	if h.BaseURL == "" {
		h.BaseURL = baseURL
	}
	h.APIBaseURL = strings.TrimRight(strings.TrimSpace(h.APIBaseURL), "/")
	if h.ConnectTimeout <= 0 {
		h.ConnectTimeout = defaultConnectTimeout
	}
	if h.ReadTimeout <= 0 {
		h.ReadTimeout = defaultReadTimeout
	}
	if h.MaxFileSizeMB < 0 {
		h.MaxFileSizeMB = 0
	}
	h.SessionCookie = strings.TrimSpace(h.SessionCookie)
	h.APIKey = strings.TrimSpace(h.APIKey)
}

func (c *Config) normalizeDaemon() {
	if c.Daemon.QueuePollInterval <= 0 {
		c.Daemon.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Daemon.HeartbeatInterval <= 0 {
		c.Daemon.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Daemon.MinFreeSpaceMB < 0 {
		c.Daemon.MinFreeSpaceMB = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays <= 0 {
		c.Logging.RetentionDays = defaultLogRetentionDays
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}
