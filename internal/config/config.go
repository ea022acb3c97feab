// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads the component test runner configuration from
// REQRESP_* environment variables.
//
// Environment Variables:
//   - REQRESP_REFRESH_INTERVAL, REQRESP_MAX_CLIENTS, REQRESP_MAX_ACTIVE_REQUESTS
//   - REQRESP_LOG_LEVEL, REQRESP_LOG_DEV
//   - REQRESP_METRICS_ADDR
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"code.hybscloud.com/reqresp"
	"code.hybscloud.com/reqresp/internal/logging"
)

// Prefix is the environment variable prefix.
const Prefix = "reqresp"

// Config holds the runner configuration.
type Config struct {
	RefreshInterval   time.Duration `envconfig:"REFRESH_INTERVAL" default:"100ms"`
	MaxClients        int           `envconfig:"MAX_CLIENTS" default:"8"`
	MaxActiveRequests int           `envconfig:"MAX_ACTIVE_REQUESTS" default:"4"`
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"info"`
	LogDevelopment    bool          `envconfig:"LOG_DEV" default:"false"`
	MetricsAddress    string        `envconfig:"METRICS_ADDR"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		RefreshInterval:   reqresp.DefaultRefreshInterval,
		MaxClients:        reqresp.DefaultMaxClients,
		MaxActiveRequests: reqresp.DefaultMaxActiveRequests,
		LogLevel:          "info",
	}
}

// ServiceOptions returns the service options the configuration selects.
func (c *Config) ServiceOptions() []reqresp.ServiceOption {
	return []reqresp.ServiceOption{
		reqresp.WithMaxClients(c.MaxClients),
		reqresp.WithMaxActiveRequests(c.MaxActiveRequests),
	}
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	if c.LogDevelopment {
		cfg = logging.DevelopmentConfig()
	}
	cfg.Level = c.LogLevel
	return cfg
}

// Usage prints the supported environment variables.
func Usage() error {
	var cfg Config
	return envconfig.Usage(Prefix, &cfg)
}
