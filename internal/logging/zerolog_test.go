package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Zereker/recordwire"
)

func TestZerologAdapter_Interface(t *testing.T) {
	var _ recordwire.Logger = &ZerologAdapter{}
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("output is not a JSON line: %v: %q", err, buf.String())
	}
	return m
}

func TestNew_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "debug", FormatJSON)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	remote := &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 8080}
	log.Info("record received",
		"id", int32(42),
		"text", "test data",
		"remote_addr", remote,
		"timeout", 2*time.Second,
		"error", errors.New("boom"),
	)

	m := decodeLine(t, &buf)
	if m["message"] != "record received" {
		t.Errorf("message = %v", m["message"])
	}
	if m["level"] != "info" {
		t.Errorf("level = %v", m["level"])
	}
	if m["id"] != float64(42) {
		t.Errorf("id = %v", m["id"])
	}
	if m["text"] != "test data" {
		t.Errorf("text = %v", m["text"])
	}
	if m["remote_addr"] != "127.0.0.1:8080" {
		t.Errorf("remote_addr = %v", m["remote_addr"])
	}
	if m["error"] != "boom" {
		t.Errorf("error = %v", m["error"])
	}
	if _, ok := m["timeout"]; !ok {
		t.Error("timeout field missing")
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "warn", FormatJSON)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.Debug("hidden")
	log.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected no output below warn, got %q", buf.String())
	}

	log.Warn("shown", "k", "v")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn not written: %q", buf.String())
	}
}

func TestNew_BadKey(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "info", FormatJSON)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.Error("odd args", "lonely")

	m := decodeLine(t, &buf)
	if m["!BADKEY"] != "lonely" {
		t.Errorf("!BADKEY = %v", m["!BADKEY"])
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "info", FormatConsole)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.Info("hello", "id", 1)
	out := buf.String()
	if !strings.Contains(out, "hello") || !strings.Contains(out, "id=") {
		t.Errorf("console output = %q", out)
	}
}

func TestNew_AutoOnNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.Info("auto")
	decodeLine(t, &buf) // a buffer is not a terminal, so JSON is used
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "loud", FormatJSON); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New(&bytes.Buffer{}, "info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"":      zerolog.InfoLevel,
		"debug": zerolog.DebugLevel,
		"WARN":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewZerologAdapterWithLogger(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewZerologAdapterWithLogger(zerolog.New(&buf))

	adapter.Warn("wrapped")
	if !strings.Contains(buf.String(), "wrapped") {
		t.Errorf("output = %q", buf.String())
	}
}
