package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func newJSONLogger(t *testing.T, level string) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: level, Format: FormatJSON}, "voicecap", &buf)
	return l, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid json line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestNewWithWriter_JSONFields(t *testing.T) {
	l, buf := newJSONLogger(t, "debug")
	l.WithComponent("capture").Info("session started", Fields(FieldSessionID, "abc", "sample_rate", 44100))

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	got := lines[0]
	if got["message"] != "session started" {
		t.Errorf("unexpected message %v", got["message"])
	}
	if got[FieldComponent] != "capture" {
		t.Errorf("expected component=capture, got %v", got[FieldComponent])
	}
	if got[FieldService] != "voicecap" {
		t.Errorf("expected service=voicecap, got %v", got[FieldService])
	}
	if got[FieldSessionID] != "abc" {
		t.Errorf("expected session_id=abc, got %v", got[FieldSessionID])
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newJSONLogger(t, "warn")
	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown")

	if n := len(decodeLines(t, buf)); n != 2 {
		t.Errorf("expected 2 lines at warn level, got %d", n)
	}
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	l, buf := newJSONLogger(t, "loud")
	l.Debug("hidden")
	l.Info("shown")
	if n := len(decodeLines(t, buf)); n != 1 {
		t.Errorf("expected 1 line, got %d", n)
	}
}

func TestWithFieldsAndError(t *testing.T) {
	l, buf := newJSONLogger(t, "info")
	l.WithFields(Fields(FieldEntryID, "j-1")).WithError(errTest("boom")).Error("trigger failed")

	got := decodeLines(t, buf)[0]
	if got[FieldEntryID] != "j-1" {
		t.Errorf("expected entry_id, got %v", got)
	}
	if got["error"] != "boom" {
		t.Errorf("expected error=boom, got %v", got["error"])
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: FormatConsole, NoColor: true}, "voicecap", &buf)
	l.Info("ready", Fields("port", 8081))
	out := buf.String()
	if !strings.Contains(out, "[VOI][INF]") {
		t.Errorf("expected service and level tag, got %q", out)
	}
	if !strings.Contains(out, "port:") {
		t.Errorf("expected field name, got %q", out)
	}
}

func TestNopDiscards(t *testing.T) {
	l := Nop()
	l.Info("nothing")
	l.WithComponent("x").Error("nothing")
}

func TestFields_OddCount(t *testing.T) {
	m := Fields("a", 1, "b")
	if len(m) != 1 || m["a"] != 1 {
		t.Errorf("unexpected fields %v", m)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"json", Config{Format: FormatJSON, Level: "debug"}, false},
		{"bad level", Config{Level: "verbose"}, true},
		{"bad format", Config{Format: "xml"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.ApplyDefaults()
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(prev) })

	SetGlobalLogger(NewWithWriter(&Config{Format: FormatJSON}, "voicecap", &buf))
	WithComponent("schedule").Info("tick")
	if !strings.Contains(buf.String(), `"component":"schedule"`) {
		t.Errorf("expected global logger output, got %q", buf.String())
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
