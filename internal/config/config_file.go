package config

import (
	"os"

	"github.com/pkg/errors"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig is the TOML form of Config. Integer fields are pointers so an
// explicit zero can be told apart from an absent key.
type FileConfig struct {
	Host           string `toml:"host"`
	Port           *int64 `toml:"port"`
	Backlog        *int64 `toml:"backlog"`
	ReadTimeoutMS  *int64 `toml:"read_timeout_ms"`
	WriteTimeoutMS *int64 `toml:"write_timeout_ms"`
	DialTimeoutMS  *int64 `toml:"dial_timeout_ms"`
	Workers        *int64 `toml:"workers"`
	LogLevel       string `toml:"log_level"`
	LogFormat      string `toml:"log_format"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, errors.Wrap(err, "read config")
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, errors.Wrapf(err, "parse %s", path)
	}
	return fc, nil
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("host", fc.Host, &cfg.Host)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)

	if err := s.setUint16("port", fc.Port, &cfg.Port); err != nil {
		return err
	}
	if err := s.setUint16("backlog", fc.Backlog, &cfg.Backlog); err != nil {
		return err
	}
	if err := s.setMillis("read-timeout", fc.ReadTimeoutMS, &cfg.ReadTimeout); err != nil {
		return err
	}
	if err := s.setMillis("write-timeout", fc.WriteTimeoutMS, &cfg.WriteTimeout); err != nil {
		return err
	}
	if err := s.setMillis("dial-timeout", fc.DialTimeoutMS, &cfg.DialTimeout); err != nil {
		return err
	}
	s.setInt("workers", fc.Workers, &cfg.Workers)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// Resolve layers the config file at path (if any) and the environment onto
// cfg. An explicitly named file that does not exist is an error.
func Resolve(cfg *Config, path string, changed map[string]bool) error {
	if path != "" {
		if !FileExists(path) {
			return errors.Errorf("config file %s does not exist", path)
		}
		fc, err := LoadFileConfig(path)
		if err != nil {
			return err
		}
		if err := ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}

	return ApplyEnvConfig(cfg, changed)
}
