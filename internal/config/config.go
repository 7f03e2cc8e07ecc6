// Package config builds the runtime configuration for the recordwire
// binaries from defaults, a TOML file, RECORDWIRE_* environment variables
// and command line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/Zereker/recordwire"
)

// Defaults.
const (
	DefaultPort         uint16 = 8080
	DefaultBacklog      uint16 = 5
	DefaultReadTimeout         = 5 * time.Second
	DefaultWriteTimeout        = 5 * time.Second
	DefaultDialTimeout         = 5 * time.Second
	DefaultWorkers             = 1
)

// Config holds the settings shared by recordd and recordctl.
type Config struct {
	Host    string
	Port    uint16
	Backlog uint16

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DialTimeout  time.Duration

	Workers int

	LogLevel  string
	LogFormat string
}

// DefaultConfig returns a Config with default values. Host has no default.
func DefaultConfig() Config {
	return Config{
		Port:         DefaultPort,
		Backlog:      DefaultBacklog,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
		DialTimeout:  DefaultDialTimeout,
		Workers:      DefaultWorkers,
		LogLevel:     "info",
		LogFormat:    "auto",
	}
}

// ValidateServer checks the settings needed to start listening.
func (c *Config) ValidateServer() error {
	if c.Port == 0 {
		return &recordwire.ConfigError{Field: "port", Reason: "must be between 1 and 65535"}
	}
	if c.Backlog == 0 {
		return &recordwire.ConfigError{Field: "backlog", Reason: "must be positive"}
	}
	if c.ReadTimeout < 0 {
		return &recordwire.ConfigError{Field: "read_timeout_ms", Reason: "must not be negative"}
	}
	if c.WriteTimeout < 0 {
		return &recordwire.ConfigError{Field: "write_timeout_ms", Reason: "must not be negative"}
	}
	if c.Workers < 1 {
		return &recordwire.ConfigError{Field: "workers", Reason: "must be at least 1"}
	}
	return nil
}

// ValidateClient checks the settings needed to reach a server.
func (c *Config) ValidateClient() error {
	if c.Host == "" {
		return &recordwire.ConfigError{Field: "host", Reason: "is required"}
	}
	if c.Port == 0 {
		return &recordwire.ConfigError{Field: "port", Reason: "must be between 1 and 65535"}
	}
	if c.DialTimeout < 0 {
		return &recordwire.ConfigError{Field: "dial_timeout_ms", Reason: "must not be negative"}
	}
	if c.WriteTimeout < 0 {
		return &recordwire.ConfigError{Field: "write_timeout_ms", Reason: "must not be negative"}
	}
	return nil
}

// ListenAddr is the address recordd binds, on all interfaces.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort("", strconv.Itoa(int(c.Port)))
}

// ServerAddr is the address recordctl dials.
func (c *Config) ServerAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(int(c.Port)))
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setUint16 range-checks value and sets dst if present and flag not changed.
func (s *configSetter) setUint16(flag string, value *int64, dst *uint16) error {
	if value == nil || s.changed[flag] {
		return nil
	}
	if *value < 0 || *value > 65535 {
		return &recordwire.ConfigError{Field: flag, Reason: fmt.Sprintf("%d out of range 0-65535", *value)}
	}
	*dst = uint16(*value)
	return nil
}

func (s *configSetter) setInt(flag string, value *int64, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = int(*value)
}

// setMillis sets a duration from a millisecond count.
func (s *configSetter) setMillis(flag string, value *int64, dst *time.Duration) error {
	if value == nil || s.changed[flag] {
		return nil
	}
	if *value < 0 || *value > 1<<32-1 {
		return &recordwire.ConfigError{Field: flag, Reason: fmt.Sprintf("%d out of range 0-4294967295", *value)}
	}
	*dst = time.Duration(*value) * time.Millisecond
	return nil
}

// parseInt parses an environment value; empty means unset.
func parseInt(flag, value string) (*int64, error) {
	if value == "" {
		return nil, nil
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, &recordwire.ConfigError{Field: flag, Reason: fmt.Sprintf("parse %q: %v", value, err)}
	}
	return &i, nil
}
