package config

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables consulted for the backend URL when the file sets none.
const (
	envAPIURL       = "ORSI_API_URL"
	envLegacyAPIURL = "REACT_APP_API_URL"
)

func (c *Config) normalize() error {
	c.normalizeAPI()
	c.normalizePolling()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePlayer()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.BaseURL = strings.TrimSpace(c.API.BaseURL)
	if c.API.BaseURL == "" {
		if value, ok := lookupEnv(envAPIURL); ok {
			c.API.BaseURL = value
		} else if value, ok := lookupEnv(envLegacyAPIURL); ok {
			c.API.BaseURL = value
		}
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaultBaseURL
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.RequestTimeout == 0 {
		c.API.RequestTimeout = defaultRequestTimeout
	}
	if c.API.UploadTimeout == 0 {
		c.API.UploadTimeout = defaultUploadTimeout
	}
	if c.API.RateLimit == 0 {
		c.API.RateLimit = defaultRateLimit
	}
	if c.API.RateBurst == 0 {
		c.API.RateBurst = defaultRateBurst
	}
	c.API.UserAgent = strings.TrimSpace(c.API.UserAgent)
	if c.API.UserAgent == "" {
		c.API.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizePolling() {
	if c.Polling.Interval == 0 {
		c.Polling.Interval = defaultPollInterval
	}
	if c.Polling.MaxConcurrent == 0 {
		c.Polling.MaxConcurrent = defaultMaxConcurrent
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		c.Paths.DownloadDir = defaultDownloadDir
	}
	if c.Paths.DownloadDir, err = expandPath(strings.TrimSpace(c.Paths.DownloadDir)); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePlayer() {
	c.Player.Command = strings.TrimSpace(c.Player.Command)
	args := make([]string, 0, len(c.Player.Args))
	for _, arg := range c.Player.Args {
		if arg = strings.TrimSpace(arg); arg != "" {
			args = append(args, arg)
		}
	}
	c.Player.Args = args
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
