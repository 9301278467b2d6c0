package tmdb

import "time"

const (
	DefaultBaseURL      = "https://api.themoviedb.org/3"
	DefaultImageBaseURL = "https://image.tmdb.org/t/p/w500"
)

// Config configures the TMDB client. An empty APIKey disables lookups.
type Config struct {
	APIKey       string        `yaml:"api_key" envconfig:"TMDB_API_KEY"`
	BaseURL      string        `yaml:"base_url" envconfig:"TMDB_BASE_URL"`
	ImageBaseURL string        `yaml:"image_base_url"`
	Limit        int           `yaml:"limit" envconfig:"TMDB_REQUEST_DISAMBIGUATION_LIMIT"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Normalize fills defaults.
func (c *Config) Normalize() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.ImageBaseURL == "" {
		c.ImageBaseURL = DefaultImageBaseURL
	}
	if c.Limit <= 0 {
		c.Limit = 3
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}
