// Package snapshot flattens a session context into a persistable form and
// rehydrates it, tolerating older snapshot schemas.
package snapshot

import (
	"time"

	"github.com/otherjamesbrown/roundtable/pkg/insight"
	"github.com/otherjamesbrown/roundtable/pkg/session"
	"github.com/otherjamesbrown/roundtable/pkg/transcript"
)

// DefaultFacilitator is supplied when an older snapshot predates the
// facilitator field.
const DefaultFacilitator = "facilitator"

// Snapshot is the flat, JSON-serializable form of a session. All times are
// epoch milliseconds; zero means unset. ParticipantCount is derived from
// the transcript and recomputed on every encode.
type Snapshot struct {
	SessionID            string                      `json:"sessionId"`
	State                string                      `json:"state"`
	Facilitator          string                      `json:"facilitator,omitempty"`
	Topic                string                      `json:"topic"`
	StartTime            int64                       `json:"startTime"`
	DurationMs           int64                       `json:"durationMs"`
	CurrentQuestionIndex int                         `json:"currentQuestionIndex"`
	QuestionStartTime    int64                       `json:"questionStartTime"`
	ParticipantCount     int                         `json:"participantCount"`
	LiveTranscript       []EntrySnapshot             `json:"liveTranscript"`
	AIInsights           []InsightSnapshot           `json:"aiInsights"`
	AgendaProgress       map[string]ProgressSnapshot `json:"agendaProgress,omitempty"`
	KeyThemes            []string                    `json:"keyThemes,omitempty"`
	SavedAt              int64                       `json:"savedAt"`
}

// EntrySnapshot is the flat form of one transcript entry.
type EntrySnapshot struct {
	ID             string  `json:"id"`
	Timestamp      int64   `json:"timestamp"`
	Speaker        string  `json:"speaker"`
	Text           string  `json:"text"`
	Confidence     float64 `json:"confidence,omitempty"`
	IsAutoDetected bool    `json:"isAutoDetected"`
}

// InsightSnapshot is the flat form of one insight. Loading placeholders are
// never encoded.
type InsightSnapshot struct {
	ID                   string         `json:"id"`
	Type                 string         `json:"type"`
	Content              string         `json:"content"`
	Timestamp            int64          `json:"timestamp"`
	Confidence           float64        `json:"confidence"`
	Suggestions          []string       `json:"suggestions,omitempty"`
	Metadata             map[string]any `json:"metadata,omitempty"`
	IsLegacy             bool           `json:"isLegacy,omitempty"`
	IsError              bool           `json:"isError,omitempty"`
	TranscriptEntryCount int            `json:"transcriptEntryCount,omitempty"`
}

// ProgressSnapshot is the flat form of one phase's progress record.
type ProgressSnapshot struct {
	Completed    bool  `json:"completed"`
	TimeSpentMs  int64 `json:"timeSpentMs"`
	InsightCount int   `json:"insightCount"`
}

func toEpochMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromEpochMs(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// ToSnapshot flattens sess. Loading placeholders are dropped; they must
// never be persisted. ParticipantCount is recomputed from the transcript.
func ToSnapshot(sess *session.Context) *Snapshot {
	snap := &Snapshot{
		SessionID:            sess.ID,
		State:                string(sess.State),
		Facilitator:          sess.Facilitator,
		Topic:                sess.Topic,
		StartTime:            toEpochMs(sess.StartTime),
		DurationMs:           sess.Duration.Milliseconds(),
		CurrentQuestionIndex: sess.CurrentQuestionIndex,
		QuestionStartTime:    toEpochMs(sess.QuestionStartTime),
		ParticipantCount:     len(transcript.Speakers(sess.LiveTranscript)),
		LiveTranscript:       make([]EntrySnapshot, 0, len(sess.LiveTranscript)),
		AIInsights:           make([]InsightSnapshot, 0, len(sess.AIInsights)),
		AgendaProgress:       make(map[string]ProgressSnapshot, len(sess.AgendaProgress)),
		KeyThemes:            append([]string{}, sess.KeyThemes...),
		SavedAt:              time.Now().UnixMilli(),
	}

	for _, e := range sess.LiveTranscript {
		snap.LiveTranscript = append(snap.LiveTranscript, EntrySnapshot{
			ID:             e.ID,
			Timestamp:      toEpochMs(e.Timestamp),
			Speaker:        e.Speaker,
			Text:           e.Text,
			Confidence:     e.Confidence,
			IsAutoDetected: e.IsAutoDetected,
		})
	}

	for _, in := range sess.AIInsights {
		if in.IsLoading {
			continue
		}
		snap.AIInsights = append(snap.AIInsights, InsightSnapshot{
			ID:                   in.ID,
			Type:                 string(in.Type),
			Content:              in.Content,
			Timestamp:            toEpochMs(in.Timestamp),
			Confidence:           in.Confidence,
			Suggestions:          in.Suggestions,
			Metadata:             in.Metadata,
			IsLegacy:             in.IsLegacy,
			IsError:              in.IsError,
			TranscriptEntryCount: in.TranscriptEntryCount,
		})
	}

	for k, p := range sess.AgendaProgress {
		snap.AgendaProgress[k] = ProgressSnapshot{
			Completed:    p.Completed,
			TimeSpentMs:  p.TimeSpent.Milliseconds(),
			InsightCount: p.InsightCount,
		}
	}

	return snap
}

// FromSnapshot rehydrates a session context, supplying defaults for fields
// absent from older snapshot schemas so old persisted sessions stay
// loadable.
func FromSnapshot(snap *Snapshot) *session.Context {
	sess := &session.Context{
		ID:                   snap.SessionID,
		State:                session.State(snap.State),
		Facilitator:          snap.Facilitator,
		Topic:                snap.Topic,
		StartTime:            fromEpochMs(snap.StartTime),
		Duration:             time.Duration(snap.DurationMs) * time.Millisecond,
		CurrentQuestionIndex: snap.CurrentQuestionIndex,
		QuestionStartTime:    fromEpochMs(snap.QuestionStartTime),
		LiveTranscript:       make([]transcript.Entry, 0, len(snap.LiveTranscript)),
		AIInsights:           make([]insight.Insight, 0, len(snap.AIInsights)),
		AgendaProgress:       make(map[string]session.QuestionProgress, len(snap.AgendaProgress)),
		KeyThemes:            snap.KeyThemes,
	}

	// Legacy defaults.
	if sess.Facilitator == "" {
		sess.Facilitator = DefaultFacilitator
	}
	if sess.State == "" {
		sess.State = session.StateIntro
	}
	if sess.KeyThemes == nil {
		sess.KeyThemes = []string{}
	}

	for _, e := range snap.LiveTranscript {
		sess.LiveTranscript = append(sess.LiveTranscript, transcript.Entry{
			ID:             e.ID,
			Timestamp:      fromEpochMs(e.Timestamp),
			Speaker:        e.Speaker,
			Text:           e.Text,
			Confidence:     e.Confidence,
			IsAutoDetected: e.IsAutoDetected,
		})
	}

	for _, in := range snap.AIInsights {
		sess.AIInsights = append(sess.AIInsights, insight.Insight{
			ID:                   in.ID,
			Type:                 insight.Type(in.Type),
			Content:              in.Content,
			Timestamp:            fromEpochMs(in.Timestamp),
			Confidence:           in.Confidence,
			Suggestions:          in.Suggestions,
			Metadata:             in.Metadata,
			IsLegacy:             in.IsLegacy,
			IsError:              in.IsError,
			TranscriptEntryCount: in.TranscriptEntryCount,
		})
	}

	for k, p := range snap.AgendaProgress {
		sess.AgendaProgress[k] = session.QuestionProgress{
			Completed:    p.Completed,
			TimeSpent:    time.Duration(p.TimeSpentMs) * time.Millisecond,
			InsightCount: p.InsightCount,
		}
	}

	return sess
}
