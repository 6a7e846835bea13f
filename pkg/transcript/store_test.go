package transcript

import (
	"testing"
	"time"

	"github.com/otherjamesbrown/roundtable/pkg/attribution"
)

// stubClassifier returns a fixed decision and records what it saw.
type stubClassifier struct {
	decision attribution.Decision
	texts    []string
}

func (c *stubClassifier) Classify(text string) attribution.Decision {
	c.texts = append(c.texts, text)
	return c.decision
}

func participantStub() *stubClassifier {
	return &stubClassifier{decision: attribution.Decision{
		Speaker: attribution.SpeakerParticipant,
		Tier:    attribution.TierMedium,
	}}
}

func TestAppendClassifiesUnlabeledEntries(t *testing.T) {
	c := participantStub()
	now := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)
	s := NewStore(c, WithClock(func() time.Time { return now }))

	e := s.Append(Entry{Text: "we ship every two weeks"})

	if e.ID == "" {
		t.Error("id not assigned")
	}
	if !e.Timestamp.Equal(now) {
		t.Errorf("timestamp = %v, want %v", e.Timestamp, now)
	}
	if e.Speaker != attribution.SpeakerParticipant {
		t.Errorf("speaker = %q, want Participant", e.Speaker)
	}
	if e.Confidence != attribution.TierMedium.Confidence() {
		t.Errorf("confidence = %v, want %v", e.Confidence, attribution.TierMedium.Confidence())
	}
	if !e.IsAutoDetected {
		t.Error("auto-classified entry not flagged IsAutoDetected")
	}
	if len(c.texts) != 1 {
		t.Errorf("classifier called %d times, want 1", len(c.texts))
	}
}

func TestAppendKeepsManualSpeaker(t *testing.T) {
	c := participantStub()
	s := NewStore(c)

	e := s.Append(Entry{Speaker: "Sarah Chen", Text: "we ship every two weeks"})

	if e.Speaker != "Sarah Chen" {
		t.Errorf("speaker = %q, want manual label kept", e.Speaker)
	}
	if e.IsAutoDetected {
		t.Error("manual entry flagged IsAutoDetected")
	}
	if len(c.texts) != 0 {
		t.Error("classifier called for a manually labeled entry")
	}
}

func TestAppendPreservesOrderAndAssignsUniqueIDs(t *testing.T) {
	s := NewStore(participantStub())

	texts := []string{"one", "two", "three", "four"}
	seen := make(map[string]bool)
	for _, text := range texts {
		e := s.Append(Entry{Speaker: "X", Text: text})
		if seen[e.ID] {
			t.Fatalf("duplicate id %q", e.ID)
		}
		seen[e.ID] = true
	}

	entries := s.Entries()
	if len(entries) != len(texts) {
		t.Fatalf("len = %d, want %d", len(entries), len(texts))
	}
	for i, e := range entries {
		if e.Text != texts[i] {
			t.Errorf("entry %d text = %q, want %q", i, e.Text, texts[i])
		}
	}
}

func TestSlices(t *testing.T) {
	s := NewStore(participantStub())
	for _, text := range []string{"a", "b", "c", "d", "e"} {
		s.Append(Entry{Speaker: "X", Text: text})
	}

	tests := []struct {
		name string
		got  []Entry
		want []string
	}{
		{"since 2", s.SliceSince(2), []string{"c", "d", "e"}},
		{"since 0", s.SliceSince(0), []string{"a", "b", "c", "d", "e"}},
		{"since negative", s.SliceSince(-1), []string{"a", "b", "c", "d", "e"}},
		{"since past end", s.SliceSince(9), nil},
		{"last 2", s.SliceLast(2), []string{"d", "e"}},
		{"last oversized", s.SliceLast(10), []string{"a", "b", "c", "d", "e"}},
		{"last zero", s.SliceLast(0), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(tt.got), len(tt.want))
			}
			for i, e := range tt.got {
				if e.Text != tt.want[i] {
					t.Errorf("entry %d text = %q, want %q", i, e.Text, tt.want[i])
				}
			}
		})
	}
}

func TestSlicesAreCopies(t *testing.T) {
	s := NewStore(participantStub())
	s.Append(Entry{Speaker: "X", Text: "a"})

	view := s.SliceSince(0)
	view[0].Speaker = "mutated"

	if s.Entries()[0].Speaker != "X" {
		t.Error("mutating a slice view changed the store")
	}
}

func TestApplyCorrections(t *testing.T) {
	s := NewStore(participantStub())
	first := s.Append(Entry{Text: "we ship every two weeks"})
	second := s.Append(Entry{Speaker: "Dana", Text: "tell me more"})

	n := s.ApplyCorrections(map[string]string{
		first.ID:  "Sarah Chen",
		"no-such": "Nobody",
		second.ID: "",
	})
	if n != 1 {
		t.Errorf("corrected %d entries, want 1", n)
	}

	entries := s.Entries()
	if entries[0].Speaker != "Sarah Chen" {
		t.Errorf("speaker = %q, want corrected", entries[0].Speaker)
	}
	if entries[0].IsAutoDetected {
		t.Error("corrected entry still flagged IsAutoDetected")
	}
	if entries[0].Text != "we ship every two weeks" || entries[0].ID != first.ID {
		t.Error("correction touched fields other than speaker")
	}
	if entries[1].Speaker != "Dana" {
		t.Errorf("unmatched entry speaker = %q, want untouched", entries[1].Speaker)
	}
}

func TestRender(t *testing.T) {
	entries := []Entry{
		{Speaker: "Facilitator", Text: "welcome"},
		{Speaker: "Sarah", Text: "thanks"},
	}
	want := "Facilitator: welcome\nSarah: thanks"
	if got := Render(entries); got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestSpeakers(t *testing.T) {
	entries := []Entry{
		{Speaker: "Facilitator", Text: "a"},
		{Speaker: "Sarah", Text: "b"},
		{Speaker: "Facilitator", Text: "c"},
		{Speaker: UnknownSpeaker, Text: "d"},
		{Speaker: "", Text: "e"},
	}
	got := Speakers(entries)
	want := []string{"Facilitator", "Sarah"}
	if len(got) != len(want) {
		t.Fatalf("speakers = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("speakers[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
