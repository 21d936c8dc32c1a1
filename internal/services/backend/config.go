package backend

import (
	"golang.org/x/time/rate"

	"orsi/internal/config"
	"orsi/internal/services"
)

// NewFromConfig builds a client from the [api] section.
func NewFromConfig(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "backend", "", "configuration is required", ErrUnavailable)
	}
	return NewClient(cfg.API.BaseURL, Options{
		Timeout:       cfg.RequestTimeout(),
		UploadTimeout: cfg.UploadTimeout(),
		RateLimit:     rate.Limit(cfg.API.RateLimit),
		RateBurst:     cfg.API.RateBurst,
		UserAgent:     cfg.API.UserAgent,
	})
}
