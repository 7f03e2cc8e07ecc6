package config

import (
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/Zereker/recordwire"
)

func TestApplyEnvConfig(t *testing.T) {
	t.Setenv("RECORDWIRE_HOST", "env-host")
	t.Setenv("RECORDWIRE_PORT", "12345")
	t.Setenv("RECORDWIRE_READ_TIMEOUT_MS", "750")
	t.Setenv("RECORDWIRE_WORKERS", "3")
	t.Setenv("RECORDWIRE_LOG_FORMAT", "json")

	cfg := DefaultConfig()
	if err := ApplyEnvConfig(&cfg, map[string]bool{}); err != nil {
		t.Fatalf("ApplyEnvConfig: %v", err)
	}

	if cfg.Host != "env-host" {
		t.Errorf("Host = %q", cfg.Host)
	}
	if cfg.Port != 12345 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.ReadTimeout != 750*time.Millisecond {
		t.Errorf("ReadTimeout = %v", cfg.ReadTimeout)
	}
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d", cfg.Workers)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q", cfg.LogFormat)
	}
	if cfg.Backlog != DefaultBacklog {
		t.Errorf("Backlog = %d, want default", cfg.Backlog)
	}
}

func TestApplyEnvConfig_FlagsWin(t *testing.T) {
	t.Setenv("RECORDWIRE_PORT", "12345")

	cfg := DefaultConfig()
	cfg.Port = 9999
	if err := ApplyEnvConfig(&cfg, map[string]bool{"port": true}); err != nil {
		t.Fatalf("ApplyEnvConfig: %v", err)
	}
	if cfg.Port != 9999 {
		t.Errorf("Port = %d, want flag value 9999", cfg.Port)
	}
}

func TestApplyEnvConfig_Invalid(t *testing.T) {
	tests := []struct {
		env   string
		value string
	}{
		{env: "RECORDWIRE_PORT", value: "eighty"},
		{env: "RECORDWIRE_PORT", value: "65536"},
		{env: "RECORDWIRE_BACKLOG", value: "-5"},
		{env: "RECORDWIRE_READ_TIMEOUT_MS", value: "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.env+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)

			cfg := DefaultConfig()
			err := ApplyEnvConfig(&cfg, map[string]bool{})

			var cfgErr *recordwire.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error = %v, want *recordwire.ConfigError", err)
			}
		})
	}
}
