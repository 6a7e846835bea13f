// Package attribution classifies transcript entries by speaker role.
//
// The engine is a deterministic text classifier: it labels each utterance as
// Facilitator or Participant using an ordered rule cascade plus a short-term
// continuity memory. It performs no audio diarization; roles come from text
// heuristics alone.
package attribution

import (
	"strings"
	"time"
	"unicode"
)

// Speaker labels produced by the engine.
const (
	SpeakerFacilitator = "Facilitator"
	SpeakerParticipant = "Participant"
)

// Tier is the coarse certainty attached to an attribution decision.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// Confidence maps a tier to a numeric confidence in [0,1].
func (t Tier) Confidence() float64 {
	switch t {
	case TierHigh:
		return 0.9
	case TierMedium:
		return 0.7
	default:
		return 0.4
	}
}

// Decision is the outcome of classifying one utterance.
type Decision struct {
	Speaker     string
	Tier        Tier
	DetectedVia string
	Reason      string
}

// ContinuityState tracks who was last heard speaking. It is process-local
// and never persisted; it expires implicitly when the continuity window
// elapses.
type ContinuityState struct {
	Speaker string
	At      time.Time
	Tier    Tier
}

// Engine classifies utterances. It is stateful (continuity memory) and not
// safe for concurrent use; callers serialize access.
type Engine struct {
	facilitatorName string
	organization    string
	guideQuestions  []string
	window          time.Duration
	clock           func() time.Time

	continuity *ContinuityState
}

// Option configures the engine.
type Option func(*Engine)

// WithFacilitator sets the known facilitator identity.
func WithFacilitator(name, organization string) Option {
	return func(e *Engine) {
		e.facilitatorName = strings.ToLower(strings.TrimSpace(name))
		e.organization = strings.ToLower(strings.TrimSpace(organization))
	}
}

// WithGuideQuestions sets the session's pre-scripted guide questions.
// A line matching one of these is a strong facilitator signal.
func WithGuideQuestions(questions []string) Option {
	return func(e *Engine) {
		e.guideQuestions = e.guideQuestions[:0]
		for _, q := range questions {
			if n := normalizeQuestion(q); n != "" {
				e.guideQuestions = append(e.guideQuestions, n)
			}
		}
	}
}

// WithContinuityWindow sets how long the previous speaker label carries
// forward. Zero disables continuity entirely.
func WithContinuityWindow(d time.Duration) Option {
	return func(e *Engine) {
		e.window = d
	}
}

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// DefaultContinuityWindow is the span during which the previous speaker is
// assumed to still be speaking absent contrary signals.
const DefaultContinuityWindow = 30 * time.Second

// NewEngine creates an attribution engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		window: DefaultContinuityWindow,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reset clears the continuity memory. Called when a session resets.
func (e *Engine) Reset() {
	e.continuity = nil
}

// Classify resolves one utterance to exactly one (speaker, tier) pair.
// Rule precedence is fixed and total:
//
//  1. strong participant self-introduction (overrides continuity)
//  2. strong facilitator signal (overrides continuity)
//  3. continuity carry-forward, when the window has not elapsed
//  4. weak facilitator signals
//  5. weak participant signals
//  6. default: participant, low confidence
//
// Strong signals clear the continuity memory so the utterance after an
// introduction or a scripted question is re-evaluated from scratch; every
// other outcome records the decided speaker as the new continuity state.
func (e *Engine) Classify(text string) Decision {
	now := e.clock()
	u := analyzeUtterance(text)

	// Strong rules run unconditionally.
	for _, rule := range strongRules {
		if rule.matches(u, e) {
			e.continuity = nil
			return Decision{
				Speaker:     rule.speaker,
				Tier:        TierHigh,
				DetectedVia: rule.name,
				Reason:      rule.reason,
			}
		}
	}

	// Continuity carry-forward: the dominant branch during normal
	// back-and-forth dialogue.
	if d, ok := e.carryForward(u, now); ok {
		return d
	}

	for _, rule := range weakRules {
		if rule.matches(u, e) {
			e.continuity = &ContinuityState{Speaker: rule.speaker, At: now, Tier: TierMedium}
			return Decision{
				Speaker:     rule.speaker,
				Tier:        TierMedium,
				DetectedVia: rule.name,
				Reason:      rule.reason,
			}
		}
	}

	e.continuity = &ContinuityState{Speaker: SpeakerParticipant, At: now, Tier: TierLow}
	return Decision{
		Speaker:     SpeakerParticipant,
		Tier:        TierLow,
		DetectedVia: "default",
		Reason:      "No signal matched; participant assumed",
	}
}

// carryForward applies rule 3. A break phrase keeps the current label for
// this utterance but drops the memory, so the next utterance is re-evaluated
// from the weak rules.
func (e *Engine) carryForward(u *utterance, now time.Time) (Decision, bool) {
	c := e.continuity
	if c == nil || e.window <= 0 || now.Sub(c.At) > e.window {
		return Decision{}, false
	}

	if breaksContinuity(u, c.Speaker) {
		d := Decision{
			Speaker:     c.Speaker,
			Tier:        TierMedium,
			DetectedVia: "continuity_break",
			Reason:      "Break phrase detected; label kept, memory dropped",
		}
		e.continuity = nil
		return d, true
	}

	e.continuity = &ContinuityState{Speaker: c.Speaker, At: now, Tier: TierMedium}
	return Decision{
		Speaker:     c.Speaker,
		Tier:        TierMedium,
		DetectedVia: "continuity",
		Reason:      "Previous speaker within continuity window",
	}, true
}

// utterance holds derived features of one input text, extracted once so the
// rule predicates stay cheap.
type utterance struct {
	raw       string
	trimmed   string
	lower     string
	wordCount int
	question  bool
}

func analyzeUtterance(text string) *utterance {
	trimmed := strings.TrimSpace(text)
	return &utterance{
		raw:       text,
		trimmed:   trimmed,
		lower:     strings.ToLower(trimmed),
		wordCount: len(strings.Fields(trimmed)),
		question:  strings.HasSuffix(trimmed, "?"),
	}
}

// normalizeQuestion lowers, trims, and strips punctuation so that a spoken
// rendition of a scripted question still matches it.
func normalizeQuestion(q string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(q)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
