// Package insight turns accumulated transcript text into AI-generated
// insights through an unreliable external analysis service, with
// correctness guarantees around loading state, deduplication, and request
// cadence.
package insight

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type identifies what kind of analysis an insight carries.
type Type string

const (
	TypeInsights  Type = "insights"
	TypeFollowup  Type = "followup"
	TypeSynthesis Type = "synthesis"
	TypeExecutive Type = "executive"
	TypeError     Type = "error"
	TypeInfo      Type = "info"
)

// Valid reports whether t is a requestable analysis type.
func (t Type) Valid() bool {
	switch t {
	case TypeInsights, TypeFollowup, TypeSynthesis, TypeExecutive:
		return true
	}
	return false
}

// Insight is one AI-generated analysis artifact. IsLoading entries are
// transient placeholders that are always replaced or removed before the
// session is persisted.
type Insight struct {
	ID                   string         `json:"id"`
	Type                 Type           `json:"type"`
	Content              string         `json:"content"`
	Timestamp            time.Time      `json:"timestamp"`
	Confidence           float64        `json:"confidence"`
	Suggestions          []string       `json:"suggestions,omitempty"`
	Metadata             map[string]any `json:"metadata,omitempty"`
	IsLegacy             bool           `json:"isLegacy,omitempty"`
	IsError              bool           `json:"isError,omitempty"`
	IsLoading            bool           `json:"isLoading,omitempty"`
	TranscriptEntryCount int            `json:"transcriptEntryCount,omitempty"`
}

// dedupePrefixLen is how much leading content two insights must share to be
// considered near-duplicates.
const dedupePrefixLen = 100

// contentPrefix returns the leading dedupe window of content, normalized.
func contentPrefix(content string) string {
	s := strings.TrimSpace(content)
	if len(s) > dedupePrefixLen {
		s = s[:dedupePrefixLen]
	}
	return s
}

// isNearDuplicate reports whether content shares its leading prefix with an
// existing non-error, non-loading insight of the same type.
func isNearDuplicate(existing []Insight, typ Type, content string) bool {
	prefix := contentPrefix(content)
	if prefix == "" {
		return false
	}
	for _, in := range existing {
		if in.Type != typ || in.IsError || in.IsLoading {
			continue
		}
		if contentPrefix(in.Content) == prefix {
			return true
		}
	}
	return false
}

// highestRecordedCount returns the largest TranscriptEntryCount recorded on
// any non-error insight of the given type. Incremental "insights" requests
// only send entries past this mark.
func highestRecordedCount(existing []Insight, typ Type) int {
	max := 0
	for _, in := range existing {
		if in.Type != typ || in.IsError || in.IsLoading {
			continue
		}
		if in.TranscriptEntryCount > max {
			max = in.TranscriptEntryCount
		}
	}
	return max
}

// newPlaceholder builds the transient loading record inserted before a
// network call is issued.
func newPlaceholder(typ Type, at time.Time) Insight {
	return Insight{
		ID:        uuid.NewString(),
		Type:      typ,
		Content:   "Analyzing discussion...",
		Timestamp: at,
		IsLoading: true,
	}
}
