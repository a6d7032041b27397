package userlogout

import (
	"session-handlers/internal/common/config"
	"session-handlers/internal/handlers/base"
)

type Config struct {
	base.Config
}

func DefaultConfig() *Config {
	return &Config{Config: base.DefaultConfig()}
}

func ConfigFromApp(cfg *config.Config) *Config {
	return &Config{Config: base.FromApp(cfg, HandlerName)}
}
