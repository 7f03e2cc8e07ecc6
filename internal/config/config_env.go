package config

import "os"

// Environment variable prefix.
const envPrefix = "RECORDWIRE_"

// ApplyEnvConfig applies RECORDWIRE_* environment variables.
// It respects flags that have been explicitly set (changed map).
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("host", os.Getenv(envPrefix+"HOST"), &cfg.Host)
	s.setString("log-level", os.Getenv(envPrefix+"LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv(envPrefix+"LOG_FORMAT"), &cfg.LogFormat)

	ints := []struct {
		flag  string
		env   string
		apply func(flag string, v *int64) error
	}{
		{"port", "PORT", func(f string, v *int64) error { return s.setUint16(f, v, &cfg.Port) }},
		{"backlog", "BACKLOG", func(f string, v *int64) error { return s.setUint16(f, v, &cfg.Backlog) }},
		{"read-timeout", "READ_TIMEOUT_MS", func(f string, v *int64) error { return s.setMillis(f, v, &cfg.ReadTimeout) }},
		{"write-timeout", "WRITE_TIMEOUT_MS", func(f string, v *int64) error { return s.setMillis(f, v, &cfg.WriteTimeout) }},
		{"dial-timeout", "DIAL_TIMEOUT_MS", func(f string, v *int64) error { return s.setMillis(f, v, &cfg.DialTimeout) }},
		{"workers", "WORKERS", func(f string, v *int64) error { s.setInt(f, v, &cfg.Workers); return nil }},
	}

	for _, e := range ints {
		v, err := parseInt(e.flag, os.Getenv(envPrefix+e.env))
		if err != nil {
			return err
		}
		if err := e.apply(e.flag, v); err != nil {
			return err
		}
	}

	return nil
}
