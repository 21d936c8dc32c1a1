package config

const (
	defaultConfigPath     = "~/.config/orsi/config.toml"
	defaultBaseURL        = "http://localhost:5000"
	defaultRequestTimeout = 30
	defaultUploadTimeout  = 600
	defaultRateLimit      = 20.0
	defaultRateBurst      = 20
	defaultUserAgent      = "orsi/0.1"
	defaultPollInterval   = 3
	minPollInterval       = 1
	maxPollInterval       = 60
	defaultMaxConcurrent  = 4
	defaultStateDir       = "~/.local/share/orsi"
	defaultLogDir         = "~/.local/share/orsi/logs"
	defaultDownloadDir    = "~/Videos/orsi"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultNotifyTimeout  = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			RequestTimeout: defaultRequestTimeout,
			UploadTimeout:  defaultUploadTimeout,
			RateLimit:      defaultRateLimit,
			RateBurst:      defaultRateBurst,
			UserAgent:      defaultUserAgent,
		},
		Polling: Polling{
			Interval:      defaultPollInterval,
			MaxConcurrent: defaultMaxConcurrent,
		},
		Paths: Paths{
			StateDir:    defaultStateDir,
			LogDir:      defaultLogDir,
			DownloadDir: defaultDownloadDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Journal: Journal{
			Enabled: true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			NotifyFailures: true,
		},
	}
}
