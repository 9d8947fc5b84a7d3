package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "JSON", false)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	Component(log, "timeline").Info("placements rebuilt")
	log.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if entry["component"] != "timeline" || entry["msg"] != "placements rebuilt" {
		t.Fatalf("entry = %v", entry)
	}
}

func TestNew_Verbose(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "", true)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if log.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %v", log.GetLevel())
	}
	log.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("debug line missing: %q", buf.String())
	}
}

func TestNew_UnknownFormat(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "xml", false); err == nil {
		t.Fatalf("expected error")
	}
}

func TestComponent_NilLogger(t *testing.T) {
	Component(nil, "x").Info("dropped")
}
