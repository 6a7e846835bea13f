package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNewLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{
		Level:      LevelDebug,
		Component:  "test",
		JSONFormat: true,
		Output:     &buf,
	})

	log.Info("session started", F("topic", "onboarding"), F("entries", 3))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry["component"] != "test" {
		t.Errorf("component = %v, want test", entry["component"])
	}
	if entry["topic"] != "onboarding" {
		t.Errorf("topic = %v, want onboarding", entry["topic"])
	}
	if entry["entries"] != float64(3) {
		t.Errorf("entries = %v, want 3", entry["entries"])
	}
	if entry["message"] != "session started" {
		t.Errorf("message = %v, want 'session started'", entry["message"])
	}
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{
		Level:      LevelInfo,
		Component:  "test",
		JSONFormat: true,
		Output:     &buf,
	})

	child := log.With(F("phase", 2))
	child.Info("advanced")

	if !strings.Contains(buf.String(), `"phase":2`) {
		t.Errorf("expected attached field in output, got %s", buf.String())
	}
}

func TestLoggerWithContext(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{
		Level:      LevelInfo,
		Component:  "test",
		JSONFormat: true,
		Output:     &buf,
	})

	ctx := context.WithValue(context.Background(), SessionIDKey, "sess-42")
	log.WithContext(ctx).Info("recovered")

	if !strings.Contains(buf.String(), `"session_id":"sess-42"`) {
		t.Errorf("expected session_id in output, got %s", buf.String())
	}
}

func TestErrField(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{
		Level:      LevelError,
		Component:  "test",
		JSONFormat: true,
		Output:     &buf,
	})

	log.Error("snapshot write failed", Err(errors.New("redis unavailable")))

	if !strings.Contains(buf.String(), "redis unavailable") {
		t.Errorf("expected error message in output, got %s", buf.String())
	}
}

func TestNopLogger(t *testing.T) {
	log := NewNopLogger()
	// Must not panic and must chain.
	log.With(F("k", "v")).WithContext(context.Background()).Info("ignored")
}
