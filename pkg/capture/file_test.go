package capture

import (
	"context"
	"strings"
	"testing"
	"time"
)

func collect(t *testing.T, s *FileSource, want int) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(5 * time.Second)
	for len(events) < want {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("timed out after %d events", len(events))
		}
	}
	return events
}

func TestFileSourceReplaysPlainLines(t *testing.T) {
	src := NewFileSource(strings.NewReader("first line\n\nsecond line\n"), WithInterval(time.Millisecond))
	if !src.IsSupported() {
		t.Fatal("file source must report supported")
	}
	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	events := collect(t, src, 2)
	if events[0].Text != "first line" || events[1].Text != "second line" {
		t.Errorf("events = %+v", events)
	}
	for _, ev := range events {
		if ev.Kind != KindFinal {
			t.Errorf("kind = %q, want final", ev.Kind)
		}
	}
	if err := src.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if src.IsListening() {
		t.Error("still listening after Stop")
	}
}

func TestFileSourceStripsTimedPrefix(t *testing.T) {
	input := "0:01 : Dana : welcome everyone\n0:02 : Sarah : thanks\n"
	src := NewFileSource(strings.NewReader(input), WithInterval(time.Millisecond), WithSpeedup(1000))
	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer src.Stop()

	events := collect(t, src, 2)
	if events[0].Text != "welcome everyone" {
		t.Errorf("text = %q, want speaker prefix stripped", events[0].Text)
	}
	if events[1].Text != "thanks" {
		t.Errorf("text = %q", events[1].Text)
	}
}

func TestFileSourceStop(t *testing.T) {
	lines := strings.Repeat("line\n", 1000)
	src := NewFileSource(strings.NewReader(lines), WithInterval(10*time.Millisecond))
	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	<-src.Events()
	if err := src.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	// Channel drains and closes after Stop.
	for range src.Events() {
	}
}

func TestNopSource(t *testing.T) {
	src := NewNopSource()
	if src.IsSupported() {
		t.Error("nop source must report unsupported")
	}
	if err := src.Start(context.Background()); err == nil {
		t.Error("nop source Start must fail")
	}
	if src.IsListening() {
		t.Error("nop source must not listen")
	}
	if err := src.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
}
