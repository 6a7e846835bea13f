package attribution

import (
	"testing"
	"time"
)

func newTestEngine(clock func() time.Time, opts ...Option) *Engine {
	base := []Option{
		WithFacilitator("Dana Torres", "Acme Research"),
		WithGuideQuestions([]string{
			"What does your org look like in three years?",
			"What is blocking you today?",
		}),
		WithClock(clock),
	}
	return NewEngine(append(base, opts...)...)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestTierConfidence(t *testing.T) {
	tests := []struct {
		tier Tier
		want float64
	}{
		{TierHigh, 0.9},
		{TierMedium, 0.7},
		{TierLow, 0.4},
		{Tier("bogus"), 0.4},
	}
	for _, tt := range tests {
		if got := tt.tier.Confidence(); got != tt.want {
			t.Errorf("Confidence(%q) = %v, want %v", tt.tier, got, tt.want)
		}
	}
}

func TestSessionOpeningSequence(t *testing.T) {
	now := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)
	e := newTestEngine(func() time.Time { return now })

	steps := []struct {
		text        string
		wantSpeaker string
		wantTier    Tier
	}{
		{"Hi everyone, welcome to today's session", SpeakerFacilitator, TierHigh},
		{"At our company, we handle onboarding differently", SpeakerParticipant, TierMedium},
		{"What does your org look like in three years?", SpeakerFacilitator, TierHigh},
	}

	for i, step := range steps {
		d := e.Classify(step.text)
		if d.Speaker != step.wantSpeaker || d.Tier != step.wantTier {
			t.Errorf("step %d %q = (%s, %s), want (%s, %s) [rule %s]",
				i, step.text, d.Speaker, d.Tier, step.wantSpeaker, step.wantTier, d.DetectedVia)
		}
		now = now.Add(5 * time.Second)
	}
}

func TestClassificationDeterminism(t *testing.T) {
	now := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)

	texts := []string{
		"Hi, my name is Sarah and I lead platform engineering",
		"Let's move on to our next topic",
		"We've been piloting this for six months",
		"So what changed?",
	}
	for _, text := range texts {
		first := newTestEngine(fixedClock(now)).Classify(text)
		second := newTestEngine(fixedClock(now)).Classify(text)
		if first != second {
			t.Errorf("classification of %q not deterministic: %+v vs %+v", text, first, second)
		}
	}
}

func TestContinuityCarryForward(t *testing.T) {
	now := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)
	e := newTestEngine(func() time.Time { return now })

	d := e.Classify("At our company, onboarding is owned by operations")
	if d.Speaker != SpeakerParticipant || d.Tier != TierMedium {
		t.Fatalf("opener = (%s, %s), want (Participant, medium)", d.Speaker, d.Tier)
	}

	// Within the window and no break phrase: label carries at medium.
	now = now.Add(10 * time.Second)
	d = e.Classify("Mostly we struggle with handoffs between teams")
	if d.Speaker != SpeakerParticipant || d.Tier != TierMedium || d.DetectedVia != "continuity" {
		t.Errorf("carry = (%s, %s, %s), want (Participant, medium, continuity)", d.Speaker, d.Tier, d.DetectedVia)
	}

	// The carry refreshes the window.
	now = now.Add(25 * time.Second)
	d = e.Classify("And the tooling never kept up")
	if d.Speaker != SpeakerParticipant || d.DetectedVia != "continuity" {
		t.Errorf("refreshed carry = (%s, %s), want continuity Participant", d.Speaker, d.DetectedVia)
	}
}

func TestContinuityWindowExpiry(t *testing.T) {
	now := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)
	e := newTestEngine(func() time.Time { return now })

	e.Classify("At our company, onboarding is owned by operations")

	now = now.Add(31 * time.Second)
	d := e.Classify("Mostly we struggle with handoffs between teams")
	if d.DetectedVia == "continuity" {
		t.Errorf("continuity applied after window elapsed: %+v", d)
	}
	if d.Speaker != SpeakerParticipant || d.Tier != TierLow {
		t.Errorf("expired = (%s, %s), want default (Participant, low)", d.Speaker, d.Tier)
	}
}

func TestContinuityDisabled(t *testing.T) {
	now := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)
	e := newTestEngine(fixedClock(now), WithContinuityWindow(0))

	e.Classify("At our company, onboarding is owned by operations")
	d := e.Classify("Mostly we struggle with handoffs")
	if d.DetectedVia == "continuity" {
		t.Errorf("continuity applied while disabled: %+v", d)
	}
}

func TestStrongSignalOverridesContinuity(t *testing.T) {
	now := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)
	e := newTestEngine(func() time.Time { return now })

	e.Classify("At our company, onboarding is owned by operations")

	now = now.Add(5 * time.Second)
	d := e.Classify("Thanks Sarah. I'm Dana, and I'll be facilitating today")
	if d.Speaker != SpeakerFacilitator || d.Tier != TierHigh {
		t.Errorf("facilitator intro = (%s, %s), want (Facilitator, high) [rule %s]",
			d.Speaker, d.Tier, d.DetectedVia)
	}
}

func TestBreakPhraseKeepsLabelDropsMemory(t *testing.T) {
	now := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)
	e := newTestEngine(func() time.Time { return now })

	e.Classify("Great, thank you for walking us through that")

	// Direct question to the audience: still the facilitator, but the
	// memory is dropped.
	now = now.Add(5 * time.Second)
	d := e.Classify("What do you think is the biggest obstacle?")
	if d.Speaker != SpeakerFacilitator || d.Tier != TierMedium || d.DetectedVia != "continuity_break" {
		t.Fatalf("break = (%s, %s, %s), want (Facilitator, medium, continuity_break)",
			d.Speaker, d.Tier, d.DetectedVia)
	}

	// The answer that follows is re-evaluated from the weak rules, not
	// carried forward as Facilitator.
	now = now.Add(5 * time.Second)
	d = e.Classify("In my experience it's always staffing")
	if d.Speaker != SpeakerParticipant {
		t.Errorf("post-break = (%s, %s, %s), want Participant", d.Speaker, d.Tier, d.DetectedVia)
	}
}

func TestParticipantBreakPhrase(t *testing.T) {
	now := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)
	e := newTestEngine(func() time.Time { return now })

	e.Classify("At our company, onboarding is owned by operations")

	now = now.Add(5 * time.Second)
	d := e.Classify("Sorry, can you clarify what you mean by onboarding?")
	if d.Speaker != SpeakerParticipant || d.DetectedVia != "continuity_break" {
		t.Errorf("clarification = (%s, %s), want (Participant, continuity_break)", d.Speaker, d.DetectedVia)
	}
}

func TestStrongRules(t *testing.T) {
	now := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		text        string
		wantSpeaker string
		wantRule    string
	}{
		{
			name:        "participant self intro by name",
			text:        "Hello, my name is Sarah Chen",
			wantSpeaker: SpeakerParticipant,
			wantRule:    "participant_self_intro",
		},
		{
			name:        "participant intro by employer",
			text:        "I work at Globex on the data platform",
			wantSpeaker: SpeakerParticipant,
			wantRule:    "participant_self_intro",
		},
		{
			name:        "facilitator intro by name",
			text:        "I'm Dana, thanks for making the time",
			wantSpeaker: SpeakerFacilitator,
			wantRule:    "facilitator_self_identification",
		},
		{
			name:        "facilitator self identification",
			text:        "I'll be facilitating our conversation",
			wantSpeaker: SpeakerFacilitator,
			wantRule:    "facilitator_self_identification",
		},
		{
			name:        "first person org reference",
			text:        "Here at Acme Research we run these sessions monthly",
			wantSpeaker: SpeakerFacilitator,
			wantRule:    "facilitator_org_reference",
		},
		{
			name:        "topic introduction",
			text:        "Let's move on to the second theme",
			wantSpeaker: SpeakerFacilitator,
			wantRule:    "facilitator_topic_intro",
		},
		{
			name:        "guide question verbatim",
			text:        "What is blocking you today?",
			wantSpeaker: SpeakerFacilitator,
			wantRule:    "facilitator_guide_question",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(fixedClock(now))
			d := e.Classify(tt.text)
			if d.Speaker != tt.wantSpeaker || d.Tier != TierHigh {
				t.Errorf("Classify(%q) = (%s, %s), want (%s, high)", tt.text, d.Speaker, d.Tier, tt.wantSpeaker)
			}
			if d.DetectedVia != tt.wantRule {
				t.Errorf("rule = %s, want %s", d.DetectedVia, tt.wantRule)
			}
		})
	}
}

func TestAskingAboutOrgIsNotFacilitator(t *testing.T) {
	now := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)
	e := newTestEngine(fixedClock(now))

	d := e.Classify("How does Acme Research handle this internally?")
	if d.Speaker == SpeakerFacilitator && d.Tier == TierHigh {
		t.Errorf("asking about the org classified as strong facilitator: %+v", d)
	}
}

func TestWeakRulesAndDefault(t *testing.T) {
	now := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		text        string
		wantSpeaker string
		wantTier    Tier
		wantRule    string
	}{
		{
			name:        "acknowledgment phrase",
			text:        "Great, thank you for that detail",
			wantSpeaker: SpeakerFacilitator,
			wantTier:    TierMedium,
			wantRule:    "facilitator_phrase",
		},
		{
			name:        "short transition question",
			text:        "So, what changed after the rollout?",
			wantSpeaker: SpeakerFacilitator,
			wantTier:    TierMedium,
			wantRule:    "facilitator_short_question",
		},
		{
			name:        "long question is not a facilitator signal",
			text:        "So given everything that happened with the migration and the reorganization afterwards, what would you say actually changed?",
			wantSpeaker: SpeakerParticipant,
			wantTier:    TierLow,
			wantRule:    "default",
		},
		{
			name:        "first hand org language",
			text:        "At our company, the review cycle takes two weeks",
			wantSpeaker: SpeakerParticipant,
			wantTier:    TierMedium,
			wantRule:    "participant_org_language",
		},
		{
			name:        "no signal at all",
			text:        "The weather was terrible on the drive in",
			wantSpeaker: SpeakerParticipant,
			wantTier:    TierLow,
			wantRule:    "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(fixedClock(now))
			d := e.Classify(tt.text)
			if d.Speaker != tt.wantSpeaker || d.Tier != tt.wantTier || d.DetectedVia != tt.wantRule {
				t.Errorf("Classify(%q) = (%s, %s, %s), want (%s, %s, %s)",
					tt.text, d.Speaker, d.Tier, d.DetectedVia, tt.wantSpeaker, tt.wantTier, tt.wantRule)
			}
		})
	}
}

func TestReset(t *testing.T) {
	now := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)
	e := newTestEngine(func() time.Time { return now })

	e.Classify("At our company, onboarding is owned by operations")
	e.Reset()

	now = now.Add(5 * time.Second)
	d := e.Classify("Mostly we struggle with handoffs")
	if d.DetectedVia == "continuity" {
		t.Errorf("continuity survived Reset: %+v", d)
	}
}
