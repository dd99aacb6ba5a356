package main

import (
	"time"

	"github.com/tinytelemetry/usetrack/internal/model"
)

const (
	defaultBindHost       = "127.0.0.1"
	defaultAPIPort        = 3000
	defaultTCPPort        = 4000
	defaultTickInterval   = model.DefaultTickInterval
	defaultUpdateInterval = model.DefaultUpdateInterval
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	TestMode       bool          `mapstructure:"test-mode"`
	Host           string        `mapstructure:"host"`
	APIEnabled     bool          `mapstructure:"api-enabled"`
	APIPort        int           `mapstructure:"api-port"`
	APIAddr        string        `mapstructure:"api-addr"`
	MetricsEnabled bool          `mapstructure:"metrics-enabled"`
	TCPEnabled     bool          `mapstructure:"tcp-enabled"`
	TCPPort        int           `mapstructure:"tcp-port"`
	TCPAddr        string        `mapstructure:"tcp-addr"`
	SocketPath     string        `mapstructure:"socket-path"`
	TickInterval   time.Duration `mapstructure:"tick-interval"`
	UpdateInterval time.Duration `mapstructure:"update-interval"`
	ConfigPath     string        `mapstructure:"-"` // not from config file
}
