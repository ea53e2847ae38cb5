package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateHosts(); err != nil {
		return err
	}
	if err := c.validateDaemon(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateUpload() error {
	if c.Upload.ParallelBatchSize < 1 || c.Upload.ParallelBatchSize > 25 {
		return fmt.Errorf("upload.parallel_batch_size must be between 1 and 25, got %d", c.Upload.ParallelBatchSize)
	}
	if c.Upload.MaxRetries < 0 {
		return errors.New("upload.max_retries must be >= 0")
	}
	if c.Upload.ThumbnailSize < 1 || c.Upload.ThumbnailSize > 6 {
		return fmt.Errorf("upload.thumbnail_size must be between 1 and 6, got %d", c.Upload.ThumbnailSize)
	}
	if c.Upload.ThumbnailFormat < 1 || c.Upload.ThumbnailFormat > 3 {
		return fmt.Errorf("upload.thumbnail_format must be between 1 and 3, got %d", c.Upload.ThumbnailFormat)
	}
	if _, ok := c.HostConfig(c.Upload.DefaultHost); !ok {
		return fmt.Errorf("upload.default_host %q is not a known host", c.Upload.DefaultHost)
	}
	return nil
}

func (c *Config) validateHosts() error {
	if len(c.EnabledHosts()) == 0 {
		return errors.New("at least one host must be enabled under [hosts]")
	}
	if host, _ := c.HostConfig(c.Upload.DefaultHost); !host.Enabled {
		return fmt.Errorf("upload.default_host %q is not enabled", c.Upload.DefaultHost)
	}
	for _, id := range []string{"imx", "turbo"} {
		host, _ := c.HostConfig(id)
		if !host.Enabled {
			continue
		}
		if strings.TrimSpace(host.BaseURL) == "" {
			return fmt.Errorf("hosts.%s.base_url must be set", id)
		}
		if !strings.HasPrefix(host.BaseURL, "http://") && !strings.HasPrefix(host.BaseURL, "https://") {
			return fmt.Errorf("hosts.%s.base_url must be an http(s) URL, got %q", id, host.BaseURL)
		}
	}
	return nil
}

func (c *Config) validateDaemon() error {
	if c.Daemon.QueuePollInterval <= 0 {
		return errors.New("daemon.queue_poll_interval must be positive (seconds)")
	}
	if c.Daemon.HeartbeatInterval <= 0 {
		return errors.New("daemon.heartbeat_interval must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto, console, or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
	}
	if topic := c.Notifications.NtfyTopic; topic != "" {
		if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
			return fmt.Errorf("notifications.ntfy_topic must be a full topic URL, got %q", topic)
		}
	}
	return nil
}
