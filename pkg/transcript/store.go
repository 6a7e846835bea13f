// Package transcript provides the append-only ordered log of spoken-text
// entries for a session.
package transcript

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/otherjamesbrown/roundtable/pkg/attribution"
)

// UnknownSpeaker is the fallback label for lines that carry no usable
// speaker information.
const UnknownSpeaker = "Unknown Speaker"

// Entry is one attributed unit of captured speech or manual text.
// Entries are immutable once appended; only Speaker may be rewritten by a
// correction pass. Confidence 0 means "not reported".
type Entry struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Speaker        string    `json:"speaker"`
	Text           string    `json:"text"`
	Confidence     float64   `json:"confidence,omitempty"`
	IsAutoDetected bool      `json:"isAutoDetected"`
}

// Classifier labels unattributed text with a speaker role.
type Classifier interface {
	Classify(text string) attribution.Decision
}

// Store is the append-only transcript log. Ordering is insertion order,
// which equals chronological order; ids are unique per session. The store
// is not safe for concurrent use; the session runtime serializes access.
type Store struct {
	entries    []Entry
	classifier Classifier
	clock      func() time.Time
}

// Option configures the store.
type Option func(*Store)

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// NewStore creates a transcript store. The classifier labels entries that
// arrive without a speaker.
func NewStore(classifier Classifier, opts ...Option) *Store {
	s := &Store{
		classifier: classifier,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append assigns an id and timestamp to the partial entry, classifies the
// speaker when none was supplied, and appends it to the end of the log.
// Entries are never reordered or removed.
func (s *Store) Append(partial Entry) Entry {
	e := partial
	e.ID = uuid.NewString()
	if e.Timestamp.IsZero() {
		e.Timestamp = s.clock()
	}
	e.Text = strings.TrimSpace(e.Text)

	if e.Speaker == "" {
		if s.classifier != nil {
			d := s.classifier.Classify(e.Text)
			e.Speaker = d.Speaker
			e.Confidence = d.Tier.Confidence()
		} else {
			e.Speaker = UnknownSpeaker
		}
		e.IsAutoDetected = true
	}

	s.entries = append(s.entries, e)
	return e
}

// Len returns the number of entries in the log.
func (s *Store) Len() int {
	return len(s.entries)
}

// Entries returns a copy of the full log.
func (s *Store) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// SliceSince returns a copy of the entries at index n and later.
func (s *Store) SliceSince(n int) []Entry {
	if n < 0 {
		n = 0
	}
	if n >= len(s.entries) {
		return nil
	}
	out := make([]Entry, len(s.entries)-n)
	copy(out, s.entries[n:])
	return out
}

// SliceLast returns a copy of the last k entries.
func (s *Store) SliceLast(k int) []Entry {
	if k <= 0 {
		return nil
	}
	if k > len(s.entries) {
		k = len(s.entries)
	}
	return s.SliceSince(len(s.entries) - k)
}

// ApplyCorrections rewrites the Speaker field of entries named in the
// mapping. All other fields and the ordering are untouched. Returns the
// number of entries rewritten.
func (s *Store) ApplyCorrections(corrections map[string]string) int {
	if len(corrections) == 0 {
		return 0
	}
	n := 0
	for i := range s.entries {
		speaker, ok := corrections[s.entries[i].ID]
		if !ok || speaker == "" {
			continue
		}
		s.entries[i].Speaker = speaker
		s.entries[i].IsAutoDetected = false
		n++
	}
	return n
}

// Restore replaces the log wholesale. Used when rehydrating a persisted
// session; never called on a live log.
func (s *Store) Restore(entries []Entry) {
	s.entries = make([]Entry, len(entries))
	copy(s.entries, entries)
}

// Render formats entries as "Speaker: text" lines, the shape the analysis
// endpoints expect.
func Render(entries []Entry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(e.Speaker)
		b.WriteString(": ")
		b.WriteString(e.Text)
	}
	return b.String()
}

// Speakers returns the distinct non-empty, non-placeholder speaker labels
// in first-seen order.
func Speakers(entries []Entry) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range entries {
		if e.Speaker == "" || e.Speaker == UnknownSpeaker {
			continue
		}
		if !seen[e.Speaker] {
			seen[e.Speaker] = true
			out = append(out, e.Speaker)
		}
	}
	return out
}
