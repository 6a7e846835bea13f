package transcript

import (
	"strings"
	"testing"
	"time"

	"github.com/otherjamesbrown/roundtable/pkg/attribution"
)

func TestImportBulk(t *testing.T) {
	c := &stubClassifier{decision: attribution.Decision{
		Speaker: attribution.SpeakerFacilitator,
		Tier:    attribution.TierMedium,
	}}
	s := NewStore(c)

	raw := "Dana: welcome everyone\n\nauto: let's get started\nno speaker marker here\nSarah Chen: thanks for having me\n"
	added := s.ImportBulk(raw)

	if len(added) != 4 {
		t.Fatalf("imported %d entries, want 4", len(added))
	}

	if added[0].Speaker != "Dana" || added[0].Text != "welcome everyone" || added[0].IsAutoDetected {
		t.Errorf("entry 0 = %+v, want manual Dana entry", added[0])
	}
	if added[1].Speaker != attribution.SpeakerFacilitator || !added[1].IsAutoDetected {
		t.Errorf("entry 1 = %+v, want re-classified auto entry", added[1])
	}
	if added[1].Text != "let's get started" {
		t.Errorf("entry 1 text = %q, auto token leaked into text", added[1].Text)
	}
	if added[2].Speaker != UnknownSpeaker {
		t.Errorf("entry 2 speaker = %q, want %q", added[2].Speaker, UnknownSpeaker)
	}
	if added[2].Text != "no speaker marker here" {
		t.Errorf("entry 2 text = %q", added[2].Text)
	}
	if added[3].Speaker != "Sarah Chen" {
		t.Errorf("entry 3 speaker = %q", added[3].Speaker)
	}

	if len(c.texts) != 1 {
		t.Errorf("classifier called %d times, want 1 (auto line only)", len(c.texts))
	}
	if s.Len() != 4 {
		t.Errorf("store length = %d, want 4", s.Len())
	}
}

func TestImportBulkPreservesLineOrder(t *testing.T) {
	s := NewStore(participantStub())
	added := s.ImportBulk("A: one\nB: two\nC: three")

	wantTexts := []string{"one", "two", "three"}
	for i, e := range added {
		if e.Text != wantTexts[i] {
			t.Errorf("entry %d text = %q, want %q", i, e.Text, wantTexts[i])
		}
	}
}

func TestImportTimed(t *testing.T) {
	s := NewStore(participantStub())
	start := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)

	input := `0:05 : dana torres : Welcome everyone, let's begin.
0:42 : SARAH CHEN : Thanks, happy to be here.

not a transcript line
12:03 : Sarah Chen : We rolled it out last quarter.
`
	added, err := s.ImportTimed(strings.NewReader(input), start)
	if err != nil {
		t.Fatalf("ImportTimed: %v", err)
	}
	if len(added) != 3 {
		t.Fatalf("imported %d entries, want 3", len(added))
	}

	if added[0].Speaker != "Dana Torres" {
		t.Errorf("entry 0 speaker = %q, want title-cased", added[0].Speaker)
	}
	if !added[0].Timestamp.Equal(start.Add(5 * time.Second)) {
		t.Errorf("entry 0 timestamp = %v, want start+5s", added[0].Timestamp)
	}
	if added[1].Speaker != "Sarah Chen" {
		t.Errorf("entry 1 speaker = %q, want normalized Sarah Chen", added[1].Speaker)
	}
	if !added[2].Timestamp.Equal(start.Add(12*time.Minute + 3*time.Second)) {
		t.Errorf("entry 2 timestamp = %v, want start+12m3s", added[2].Timestamp)
	}
	if added[2].Speaker != "Sarah Chen" {
		t.Errorf("entry 2 speaker = %q", added[2].Speaker)
	}
}

func TestNormalizeSpeaker(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"sarah chen", "Sarah Chen"},
		{"SARAH  CHEN", "Sarah Chen"},
		{"Sarah Chen", "Sarah Chen"},
		{"McDonald", "McDonald"},
		{"  dana   torres  ", "Dana Torres"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeSpeaker(tt.in); got != tt.want {
			t.Errorf("NormalizeSpeaker(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
