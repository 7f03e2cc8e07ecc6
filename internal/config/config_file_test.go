package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/Zereker/recordwire"
)

func i64(v int64) *int64 { return &v }

func TestApplyFileConfig(t *testing.T) {
	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				Host:           "db.example",
				Port:           i64(12345),
				Backlog:        i64(16),
				ReadTimeoutMS:  i64(250),
				WriteTimeoutMS: i64(500),
				DialTimeoutMS:  i64(1000),
				Workers:        i64(4),
				LogLevel:       "debug",
				LogFormat:      "json",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Host:         "db.example",
				Port:         12345,
				Backlog:      16,
				ReadTimeout:  250 * time.Millisecond,
				WriteTimeout: 500 * time.Millisecond,
				DialTimeout:  time.Second,
				Workers:      4,
				LogLevel:     "debug",
				LogFormat:    "json",
			},
		},
		{
			name:       "respects changed flags",
			fileConfig: FileConfig{Host: "file-host", Port: i64(9000)},
			changed:    map[string]bool{"port": true},
			initial:    Config{Port: 8081},
			expected:   Config{Host: "file-host", Port: 8081},
		},
		{
			name:       "explicit zero timeout disables deadline",
			fileConfig: FileConfig{ReadTimeoutMS: i64(0)},
			changed:    map[string]bool{},
			initial:    Config{ReadTimeout: time.Second},
			expected:   Config{ReadTimeout: 0},
		},
		{
			name:       "absent keys keep current values",
			fileConfig: FileConfig{},
			changed:    map[string]bool{},
			initial:    Config{Port: 8080, Backlog: 5},
			expected:   Config{Port: 8080, Backlog: 5},
		},
		{
			name:       "port out of range",
			fileConfig: FileConfig{Port: i64(70000)},
			changed:    map[string]bool{},
			wantErr:    true,
		},
		{
			name:       "negative backlog",
			fileConfig: FileConfig{Backlog: i64(-1)},
			changed:    map[string]bool{},
			wantErr:    true,
		},
		{
			name:       "timeout beyond uint32",
			fileConfig: FileConfig{ReadTimeoutMS: i64(1 << 33)},
			changed:    map[string]bool{},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)

			if tt.wantErr {
				var cfgErr *recordwire.ConfigError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("error = %v, want *recordwire.ConfigError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg != tt.expected {
				t.Errorf("got %+v\nwant %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recordwire.toml")
	content := `
host = "127.0.0.1"
port = 12345
backlog = 5
read_timeout_ms = 1500
log_level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig: %v", err)
	}

	if fc.Host != "127.0.0.1" {
		t.Errorf("Host = %q", fc.Host)
	}
	if fc.Port == nil || *fc.Port != 12345 {
		t.Errorf("Port = %v", fc.Port)
	}
	if fc.ReadTimeoutMS == nil || *fc.ReadTimeoutMS != 1500 {
		t.Errorf("ReadTimeoutMS = %v", fc.ReadTimeoutMS)
	}
	if fc.WriteTimeoutMS != nil {
		t.Errorf("WriteTimeoutMS = %v, want absent", *fc.WriteTimeoutMS)
	}
	if fc.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", fc.LogLevel)
	}
}

func TestLoadFileConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFileConfig(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("port = = 1"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFileConfig(bad); err == nil {
		t.Error("expected error for malformed file")
	}
}

func TestResolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recordwire.toml")
	if err := os.WriteFile(path, []byte("port = 9000\nbacklog = 10\nhost = \"file\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("RECORDWIRE_BACKLOG", "20")

	cfg := DefaultConfig()
	if err := Resolve(&cfg, path, map[string]bool{}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000 from file", cfg.Port)
	}
	if cfg.Backlog != 20 {
		t.Errorf("Backlog = %d, want 20 from env", cfg.Backlog)
	}
	if cfg.Host != "file" {
		t.Errorf("Host = %q, want file", cfg.Host)
	}
}

func TestResolve_MissingFile(t *testing.T) {
	cfg := DefaultConfig()
	if err := Resolve(&cfg, filepath.Join(t.TempDir(), "nope.toml"), nil); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	if !FileExists(dir) {
		t.Error("FileExists(dir) = false")
	}
	if FileExists(filepath.Join(dir, "missing")) {
		t.Error("FileExists(missing) = true")
	}
}
