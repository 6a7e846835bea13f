// Package session owns the session lifecycle state machine and the
// aggregate context that the transcript, insight, and snapshot components
// operate on.
package session

import (
	"time"

	"github.com/otherjamesbrown/roundtable/pkg/insight"
	"github.com/otherjamesbrown/roundtable/pkg/transcript"
)

// State is one lifecycle state of a facilitated session.
type State string

const (
	StateIdle       State = "idle"
	StateIntro      State = "intro"
	StateDiscussion State = "discussion"
	StateSummary    State = "summary"
	StateCompleted  State = "completed"
)

// Phase advance directions.
const (
	DirForward  = 1
	DirBackward = -1
)

// QuestionProgress records how one agenda phase went.
type QuestionProgress struct {
	Completed    bool          `json:"completed"`
	TimeSpent    time.Duration `json:"timeSpent"`
	InsightCount int           `json:"insightCount"`
}

// Context is the aggregate root for one session: lifecycle state, agenda
// position, transcript, and insights. One instance exists per active
// session; it is destroyed and replaced on reset.
type Context struct {
	ID                   string                      `json:"id"`
	State                State                       `json:"state"`
	Facilitator          string                      `json:"facilitator"`
	Topic                string                      `json:"topic"`
	StartTime            time.Time                   `json:"startTime"`
	Duration             time.Duration               `json:"duration"`
	LiveTranscript       []transcript.Entry          `json:"liveTranscript"`
	AIInsights           []insight.Insight           `json:"aiInsights"`
	CurrentQuestionIndex int                         `json:"currentQuestionIndex"`
	QuestionStartTime    time.Time                   `json:"questionStartTime"`
	AgendaProgress       map[string]QuestionProgress `json:"agendaProgress"`
	KeyThemes            []string                    `json:"keyThemes"`
}

// Clone returns a deep copy safe to hand to a persister while the original
// keeps mutating.
func (c *Context) Clone() *Context {
	out := *c
	out.LiveTranscript = make([]transcript.Entry, len(c.LiveTranscript))
	copy(out.LiveTranscript, c.LiveTranscript)
	out.AIInsights = make([]insight.Insight, len(c.AIInsights))
	copy(out.AIInsights, c.AIInsights)
	out.AgendaProgress = make(map[string]QuestionProgress, len(c.AgendaProgress))
	for k, v := range c.AgendaProgress {
		out.AgendaProgress[k] = v
	}
	out.KeyThemes = append([]string(nil), c.KeyThemes...)
	return &out
}
