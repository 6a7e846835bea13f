package attribution

import (
	"regexp"
	"strings"
)

// attributionRule defines one cascade rule. Rules are evaluated in slice
// order; the first match wins.
type attributionRule struct {
	name    string
	speaker string
	reason  string
	matches func(*utterance, *Engine) bool
}

// selfIntroPatterns capture the introduced name. The capture group must be
// capitalized in the raw text so "I'm Sarah" matches but "I'm excited" does
// not.
var selfIntroPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmy name is\s+([A-Z][\w'-]*)`),
	regexp.MustCompile(`\bI'?m\s+([A-Z][\w'-]*)`),
	regexp.MustCompile(`\bI am\s+([A-Z][\w'-]*)`),
}

// workAtPattern captures the organization in "I work at X" phrasings. The
// capture is capped at three words so trailing clauses do not leak in.
var workAtPattern = regexp.MustCompile(`(?i)\b(?:i work|i'm)\s+(?:at|for|with)\s+([A-Za-z][\w'&.-]*(?:\s+[A-Za-z][\w'&.-]*){0,2})`)

// facilitatorSelfPhrases are first-person facilitation statements.
var facilitatorSelfPhrases = []string{
	"i'm your facilitator",
	"i am your facilitator",
	"i'll be facilitating",
	"i'll be your host",
	"i'm moderating",
	"i'll be moderating",
	"i'll be guiding",
}

// topicIntroPhrases open a session or introduce an agenda topic.
var topicIntroPhrases = []string{
	"welcome to",
	"thanks for joining",
	"thank you for joining",
	"let's get started",
	"let's begin",
	"let's kick off",
	"let's dive in",
	"let's move on to",
	"moving on to",
	"our next topic",
	"our first topic",
	"next question",
	"the next question",
	"today we'll",
	"today we're",
	"today we are",
	"let's talk about",
	"i'd like us to discuss",
	"on the agenda",
}

// orgAskPhrases mark a participant asking ABOUT the facilitator's
// organization, which must not count as a first-person org reference.
var orgAskPhrases = []string{
	"what does",
	"what is",
	"what's",
	"how does",
	"how do you",
	"does",
	"do you",
	"tell me about",
	"tell us about",
	"question about",
	"curious about",
	"asking about",
	"can you tell",
	"could you tell",
}

// weakFacilitatorPhrases are generic facilitation moves: transitions,
// acknowledgments, time management.
var weakFacilitatorPhrases = []string{
	"great, thank you",
	"thanks for sharing",
	"thank you for sharing",
	"good point",
	"that's a good point",
	"that's helpful",
	"that's interesting",
	"interesting perspective",
	"appreciate that",
	"let's keep moving",
	"in the interest of time",
	"we have about",
	"we're running short",
	"a few minutes left",
	"let's hear from",
	"anyone else want",
	"let's go around",
	"to summarize",
	"to recap",
	"wrapping up",
}

// questionTransitionWords lead short facilitator-style questions.
var questionTransitionWords = []string{
	"so", "and", "now", "okay", "ok", "alright", "well", "next",
}

// weakParticipantPhrases are first-hand organizational language.
var weakParticipantPhrases = []string{
	"at our company",
	"at our organization",
	"in our company",
	"in our organization",
	"our team",
	"my team",
	"in my experience",
	"from our perspective",
	"from my perspective",
	"we've been",
	"we currently",
	"we recently",
	"on our side",
	"for us,",
	"in my role",
}

// facilitatorBreakPhrases are direct questions to the audience. They end the
// facilitator's continuity context without changing the current label.
var facilitatorBreakPhrases = []string{
	"what do you think",
	"what do you all think",
	"what about you",
	"how about you",
	"anyone else",
	"does anyone",
	"would anyone",
	"your thoughts",
	"any thoughts",
	"who wants to",
	"who would like",
}

// participantBreakPhrases are clarification requests aimed back at the
// facilitator.
var participantBreakPhrases = []string{
	"what do you mean",
	"can you clarify",
	"could you clarify",
	"can you explain",
	"could you explain",
	"can you repeat",
	"could you repeat",
	"sorry, what",
	"i didn't catch",
	"not sure i follow",
}

// strongRules override continuity. Evaluated unconditionally, in order.
var strongRules = []attributionRule{
	{
		name:    "participant_self_intro",
		speaker: SpeakerParticipant,
		reason:  "Self-introduction with a non-facilitator identity",
		matches: func(u *utterance, e *Engine) bool {
			for _, p := range selfIntroPatterns {
				m := p.FindStringSubmatch(u.raw)
				if len(m) < 2 {
					continue
				}
				name := strings.ToLower(m[1])
				if e.facilitatorName != "" && strings.HasPrefix(e.facilitatorName, name) {
					continue
				}
				return true
			}
			if m := workAtPattern.FindStringSubmatch(u.raw); len(m) >= 2 {
				org := strings.ToLower(strings.TrimSpace(m[1]))
				if e.organization == "" || !strings.Contains(org, e.organization) {
					return true
				}
			}
			return false
		},
	},
	{
		name:    "facilitator_self_identification",
		speaker: SpeakerFacilitator,
		reason:  "Facilitator self-identification",
		matches: func(u *utterance, e *Engine) bool {
			for _, phrase := range facilitatorSelfPhrases {
				if strings.Contains(u.lower, phrase) {
					return true
				}
			}
			if e.facilitatorName == "" {
				return false
			}
			for _, p := range selfIntroPatterns {
				m := p.FindStringSubmatch(u.raw)
				if len(m) >= 2 && strings.HasPrefix(e.facilitatorName, strings.ToLower(m[1])) {
					return true
				}
			}
			return false
		},
	},
	{
		name:    "facilitator_org_reference",
		speaker: SpeakerFacilitator,
		reason:  "First-person reference to the facilitator's organization",
		matches: func(u *utterance, e *Engine) bool {
			if e.organization == "" || !strings.Contains(u.lower, e.organization) {
				return false
			}
			// A participant asking about the organization is not the
			// facilitator speaking for it.
			idx := strings.Index(u.lower, e.organization)
			before := u.lower[:idx]
			for _, ask := range orgAskPhrases {
				if strings.Contains(before, ask) {
					return false
				}
			}
			return strings.Contains(u.lower, "we at "+e.organization) ||
				strings.Contains(u.lower, "at "+e.organization+" we") ||
				strings.Contains(u.lower, "here at "+e.organization) ||
				strings.Contains(u.lower, "at "+e.organization+",") ||
				strings.Contains(u.lower, "work at "+e.organization)
		},
	},
	{
		name:    "facilitator_topic_intro",
		speaker: SpeakerFacilitator,
		reason:  "Explicit session opening or agenda-topic introduction",
		matches: func(u *utterance, _ *Engine) bool {
			for _, phrase := range topicIntroPhrases {
				if strings.Contains(u.lower, phrase) {
					return true
				}
			}
			return false
		},
	},
	{
		name:    "facilitator_guide_question",
		speaker: SpeakerFacilitator,
		reason:  "Line matches a pre-scripted guide question",
		matches: func(u *utterance, e *Engine) bool {
			norm := normalizeQuestion(u.trimmed)
			if norm == "" {
				return false
			}
			for _, q := range e.guideQuestions {
				if norm == q || strings.Contains(norm, q) {
					return true
				}
			}
			return false
		},
	},
}

// weakRules run only when neither a strong rule nor continuity applied.
var weakRules = []attributionRule{
	{
		name:    "facilitator_phrase",
		speaker: SpeakerFacilitator,
		reason:  "Generic facilitation phrase",
		matches: func(u *utterance, _ *Engine) bool {
			for _, phrase := range weakFacilitatorPhrases {
				if strings.Contains(u.lower, phrase) {
					return true
				}
			}
			return false
		},
	},
	{
		name:    "facilitator_short_question",
		speaker: SpeakerFacilitator,
		reason:  "Short question led by a transition word",
		matches: func(u *utterance, _ *Engine) bool {
			if !u.question || u.wordCount > 12 {
				return false
			}
			first := u.lower
			if i := strings.IndexAny(first, " ,"); i > 0 {
				first = first[:i]
			}
			first = strings.TrimRight(first, ",")
			for _, w := range questionTransitionWords {
				if first == w {
					return true
				}
			}
			return false
		},
	},
	{
		name:    "participant_org_language",
		speaker: SpeakerParticipant,
		reason:  "First-hand organizational language",
		matches: func(u *utterance, _ *Engine) bool {
			for _, phrase := range weakParticipantPhrases {
				if strings.Contains(u.lower, phrase) {
					return true
				}
			}
			return false
		},
	},
}

// breaksContinuity reports whether the text contains a continuity-break
// phrase appropriate to the current speaker.
func breaksContinuity(u *utterance, currentSpeaker string) bool {
	var phrases []string
	switch currentSpeaker {
	case SpeakerFacilitator:
		phrases = facilitatorBreakPhrases
	case SpeakerParticipant:
		phrases = participantBreakPhrases
	default:
		return false
	}
	for _, phrase := range phrases {
		if strings.Contains(u.lower, phrase) {
			return true
		}
	}
	return false
}
