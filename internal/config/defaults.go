package config

const (
	defaultDataDir      = "~/.local/share/bbdrop"
	defaultArtifactDir  = "~/.local/share/bbdrop/artifacts"
	defaultTemplatesDir = "~/.config/bbdrop/templates"
	defaultLogDir       = "~/.local/share/bbdrop/logs"

	defaultParallelBatchSize = 4
	defaultMaxRetries        = 3
	defaultThumbnailSize     = 3
	defaultThumbnailFormat   = 2
	defaultHost              = "imx"
	defaultTemplate          = "default"

	defaultIMXBaseURL    = "https://imx.to"
	defaultIMXAPIBaseURL = "https://api.imx.to/v1"
	defaultTurboBaseURL  = "https://www.turboimagehost.com"

	defaultConnectTimeout = 30
	defaultReadTimeout    = 120

	defaultQueuePollInterval = 5
	defaultHeartbeatInterval = 15
	defaultMinFreeSpaceMB    = 512

	defaultLogFormat        = "auto"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 60

	defaultNotifyTimeout = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:      defaultDataDir,
			ArtifactDir:  defaultArtifactDir,
			TemplatesDir: defaultTemplatesDir,
			LogDir:       defaultLogDir,
		},
		Upload: Upload{
			ParallelBatchSize: defaultParallelBatchSize,
			MaxRetries:        defaultMaxRetries,
			ThumbnailSize:     defaultThumbnailSize,
			ThumbnailFormat:   defaultThumbnailFormat,
			AutoRename:        true,
			SkipOversized:     true,
			DefaultHost:       defaultHost,
			DefaultTemplate:   defaultTemplate,
		},
		Hosts: Hosts{
			IMX: Host{
				Enabled:        true,
				BaseURL:        defaultIMXBaseURL,
				APIBaseURL:     defaultIMXAPIBaseURL,
				ConnectTimeout: defaultConnectTimeout,
				ReadTimeout:    defaultReadTimeout,
			},
			Turbo: Host{
				Enabled:        false,
				BaseURL:        defaultTurboBaseURL,
				ConnectTimeout: defaultConnectTimeout,
				ReadTimeout:    defaultReadTimeout,
			},
		},
		Daemon: Daemon{
			QueuePollInterval: defaultQueuePollInterval,
			HeartbeatInterval: defaultHeartbeatInterval,
			MinFreeSpaceMB:    defaultMinFreeSpaceMB,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Uploads:        true,
			Errors:         true,
			QueueEmpty:     false,
		},
	}
}
