package datasync

import (
	"time"

	"session-handlers/internal/common/config"
	"session-handlers/internal/handlers/base"
)

type Config struct {
	base.Config
}

// DefaultConfig allows for full scans of both KV collections.
func DefaultConfig() *Config {
	return &Config{Config: base.Config{Enabled: true, Timeout: 10 * time.Minute}}
}

func ConfigFromApp(cfg *config.Config) *Config {
	if cfg == nil {
		return DefaultConfig()
	}
	if _, ok := cfg.Handlers[HandlerName]; !ok {
		return DefaultConfig()
	}
	return &Config{Config: base.FromApp(cfg, HandlerName)}
}
