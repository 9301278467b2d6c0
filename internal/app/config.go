// Package app assembles telecopter from its configuration: database,
// conversation state backend, services and the Telegram runtime.
package app

import (
	"fmt"
	"time"

	coreconfig "github.com/m3rciful/telecopter/core/config"
	coredatabase "github.com/m3rciful/telecopter/core/database"
	"github.com/m3rciful/telecopter/internal/domain"
	"github.com/m3rciful/telecopter/internal/tmdb"
)

const defaultNotifyTimeout = 10 * time.Second

// LimitsConfig tunes paging and delivery.
type LimitsConfig struct {
	PageSize      int           `yaml:"page_size" envconfig:"PAGE_SIZE"`
	NotifyTimeout time.Duration `yaml:"notify_timeout" envconfig:"NOTIFY_TIMEOUT"`
}

// Config is the full application configuration. The core sections live at
// the top level of the YAML document.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	TMDB     tmdb.Config         `yaml:"tmdb"`
	Limits   LimitsConfig        `yaml:"limits"`
}

// CoreConfig exposes the embedded runtime configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads path, overlays the environment and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.LoadInto(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if err := c.Database.Normalize(); err != nil {
		return err
	}
	c.TMDB.Normalize()
	if c.Limits.PageSize < 0 {
		return fmt.Errorf("limits.page_size must be >= 0")
	}
	if c.Limits.PageSize == 0 {
		c.Limits.PageSize = domain.DefaultPageSize
	}
	if c.Limits.NotifyTimeout <= 0 {
		c.Limits.NotifyTimeout = defaultNotifyTimeout
	}
	return nil
}
