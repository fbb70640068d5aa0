package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: HumanFormat, Level: WarnLevel, Output: &buf})

	logger.Debug("dropped", nil)
	logger.Info("dropped", nil)
	logger.Warn("kept", nil)
	logger.Error("kept too", nil)

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("below-threshold messages leaked: %s", out)
	}
	if !strings.Contains(out, "kept") || !strings.Contains(out, "kept too") {
		t.Errorf("warn/error messages missing: %s", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: JSONFormat, Level: InfoLevel, Output: &buf})

	logger.Info("Analysis complete", map[string]interface{}{
		"root":    "/proj",
		"targets": 3,
	})

	var entry struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if entry.Level != "info" || entry.Message != "Analysis complete" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if entry.Fields["root"] != "/proj" {
		t.Errorf("fields not preserved: %v", entry.Fields)
	}
}

func TestHumanFormatSortsFieldKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: HumanFormat, Level: InfoLevel, Output: &buf})

	logger.Info("msg", map[string]interface{}{
		"zeta":  1,
		"alpha": 2,
		"mid":   3,
	})

	out := buf.String()
	a := strings.Index(out, "alpha=")
	m := strings.Index(out, "mid=")
	z := strings.Index(out, "zeta=")
	if a < 0 || m < 0 || z < 0 || !(a < m && m < z) {
		t.Errorf("field keys not sorted: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != DebugLevel {
		t.Error("debug must parse")
	}
	if ParseLevel("verbose") != InfoLevel {
		t.Error("unknown level must default to info")
	}
	if ParseLevel("") != InfoLevel {
		t.Error("empty level must default to info")
	}
}

func TestDiscardProducesNoOutput(t *testing.T) {
	// Discard is wired with io.Discard; just make sure nothing panics.
	logger := Discard()
	logger.Error("ignored", map[string]interface{}{"k": "v"})
}
