package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestConfigFor(t *testing.T) {
	tests := []struct {
		level, format string
		wantLevel     string
		wantPretty    bool
	}{
		{"", "", "info", true},
		{"debug", "console", "debug", true},
		{"warn", "json", "warn", false},
	}
	for _, tt := range tests {
		cfg := ConfigFor(tt.level, tt.format)
		if cfg.Level != tt.wantLevel || cfg.Pretty != tt.wantPretty {
			t.Errorf("ConfigFor(%q, %q) = %+v", tt.level, tt.format, cfg)
		}
	}
}

func TestForModelJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	log := ForModel("mart_revenue", "marts")
	log.Info().Int64("rows", 12).Msg("Model built")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["model"] != "mart_revenue" || entry["layer"] != "marts" {
		t.Errorf("Missing model fields: %v", entry)
	}
	if entry["rows"] != float64(12) {
		t.Errorf("Expected rows 12, got %v", entry["rows"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Msg("hidden")
	Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("Info message logged at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("Warn message not logged")
	}
}

func TestInvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "loud", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Debug().Msg("debug")
	Info().Msg("info")

	if strings.Contains(buf.String(), `"message":"debug"`) || !strings.Contains(buf.String(), `"message":"info"`) {
		t.Errorf("Unexpected output %q", buf.String())
	}
}
