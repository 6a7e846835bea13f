package session

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/otherjamesbrown/roundtable/pkg/attribution"
	"github.com/otherjamesbrown/roundtable/pkg/capture"
	rterrors "github.com/otherjamesbrown/roundtable/pkg/errors"
	"github.com/otherjamesbrown/roundtable/pkg/insight"
	"github.com/otherjamesbrown/roundtable/pkg/logging"
	"github.com/otherjamesbrown/roundtable/pkg/transcript"
)

// Persister saves a session context after state-affecting mutations.
// Writes are best-effort; failures are logged and never block the session.
type Persister interface {
	Persist(ctx context.Context, sess *Context) error
}

// Trigger receives change notifications the insight auto-trigger policy
// reacts to.
type Trigger interface {
	OnEntryAppended(total int)
	OnPhaseAdvanced()
}

const persistTimeout = 3 * time.Second

// Runtime owns the session aggregate. All mutations go through it; a single
// mutex serializes them, which is what gives the append-only and
// one-placeholder-per-type invariants their meaning under concurrent
// background dispatches.
type Runtime struct {
	mu     sync.Mutex
	sess   *Context
	store  *transcript.Store
	engine *attribution.Engine
	agenda []string

	source    capture.Source
	persister Persister
	trigger   Trigger
	logger    logging.Logger
	metrics   *Metrics
	clock     func() time.Time
}

// RuntimeOption configures the runtime.
type RuntimeOption func(*Runtime)

// WithCapture sets the speech-capture source.
func WithCapture(source capture.Source) RuntimeOption {
	return func(r *Runtime) { r.source = source }
}

// WithPersister sets the snapshot persister.
func WithPersister(p Persister) RuntimeOption {
	return func(r *Runtime) { r.persister = p }
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) RuntimeOption {
	return func(r *Runtime) { r.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) RuntimeOption {
	return func(r *Runtime) { r.metrics = m }
}

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) RuntimeOption {
	return func(r *Runtime) { r.clock = clock }
}

// NewRuntime creates a runtime for a fresh idle session.
func NewRuntime(engine *attribution.Engine, facilitator, topic string, agenda []string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		engine: engine,
		agenda: agenda,
		source: capture.NewNopSource(),
		logger: logging.NewNopLogger(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.store = transcript.NewStore(
		meteredClassifier{engine: engine, metrics: r.metrics},
		transcript.WithClock(r.clock),
	)
	r.sess = r.freshContext(StateIdle, facilitator, topic)
	return r
}

// SetTrigger wires the insight auto-trigger policy. Set once during
// startup, before events flow.
func (r *Runtime) SetTrigger(t Trigger) {
	r.trigger = t
}

func (r *Runtime) freshContext(state State, facilitator, topic string) *Context {
	return &Context{
		ID:             uuid.NewString(),
		State:          state,
		Facilitator:    facilitator,
		Topic:          topic,
		AgendaProgress: make(map[string]QuestionProgress),
		KeyThemes:      []string{},
	}
}

// meteredClassifier records attribution decisions as they happen.
type meteredClassifier struct {
	engine  *attribution.Engine
	metrics *Metrics
}

func (c meteredClassifier) Classify(text string) attribution.Decision {
	d := c.engine.Classify(text)
	c.metrics.recordAttribution(d)
	return d
}

// Start moves idle/intro to discussion and signals the capture collaborator
// to begin. Capture failure does not block the transition; the session
// degrades to manual-entry-only mode.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.sess.State != StateIdle && r.sess.State != StateIntro {
		state := r.sess.State
		r.mu.Unlock()
		return fmt.Errorf("%w: cannot start from %s", rterrors.ErrInvalidState, state)
	}
	from := r.sess.State
	now := r.clock()
	r.sess.State = StateDiscussion
	r.sess.StartTime = now
	r.sess.QuestionStartTime = now
	r.metrics.recordTransition(from, StateDiscussion)
	r.mu.Unlock()

	if r.source.IsSupported() {
		if err := r.source.Start(ctx); err != nil {
			r.logger.Warn("speech capture unavailable, continuing in manual-entry mode", logging.Err(err))
		}
	} else {
		r.logger.Info("speech capture not supported, manual-entry mode")
	}

	r.persist()
	return nil
}

// AdvancePhase moves the agenda position by dir (DirForward or
// DirBackward), bounded by the agenda. Out-of-bounds advances are a no-op.
// A forward advance records the finished phase's progress and, with at
// least three transcript entries, schedules a debounced synthesis request.
func (r *Runtime) AdvancePhase(dir int) error {
	r.mu.Lock()
	if r.sess.State != StateDiscussion {
		state := r.sess.State
		r.mu.Unlock()
		return fmt.Errorf("%w: cannot change phase during %s", rterrors.ErrInvalidState, state)
	}

	next := r.sess.CurrentQuestionIndex + dir
	if next < 0 || next >= len(r.agenda) {
		r.mu.Unlock()
		return nil
	}

	now := r.clock()
	forward := dir > 0
	if forward {
		r.recordPhaseProgressLocked(now)
	}
	r.sess.CurrentQuestionIndex = next
	r.sess.QuestionStartTime = now

	scheduleSynthesis := forward && r.store.Len() >= 3
	r.mu.Unlock()

	r.persist()
	if scheduleSynthesis && r.trigger != nil {
		r.trigger.OnPhaseAdvanced()
	}
	return nil
}

// recordPhaseProgressLocked closes out the current phase: completed, time
// spent, and insights generated since the phase began.
func (r *Runtime) recordPhaseProgressLocked(now time.Time) {
	spent := now.Sub(r.sess.QuestionStartTime)
	if spent < 0 {
		spent = 0
	}
	count := 0
	for _, in := range r.sess.AIInsights {
		if !in.IsLoading && !in.IsError && !in.Timestamp.Before(r.sess.QuestionStartTime) {
			count++
		}
	}
	key := fmt.Sprintf("q%d", r.sess.CurrentQuestionIndex)
	r.sess.AgendaProgress[key] = QuestionProgress{
		Completed:    true,
		TimeSpent:    spent,
		InsightCount: count,
	}
}

// End moves discussion to summary, stops capture, and fixes the duration.
func (r *Runtime) End() error {
	r.mu.Lock()
	if r.sess.State != StateDiscussion {
		state := r.sess.State
		r.mu.Unlock()
		return fmt.Errorf("%w: cannot end from %s", rterrors.ErrInvalidState, state)
	}
	r.sess.State = StateSummary
	r.sess.Duration = r.clock().Sub(r.sess.StartTime)
	r.metrics.recordTransition(StateDiscussion, StateSummary)
	r.mu.Unlock()

	if err := r.source.Stop(); err != nil {
		r.logger.Warn("stopping speech capture", logging.Err(err))
	}
	r.persist()
	return nil
}

// Complete moves summary to the terminal completed state.
func (r *Runtime) Complete() error {
	r.mu.Lock()
	if r.sess.State != StateSummary {
		state := r.sess.State
		r.mu.Unlock()
		return fmt.Errorf("%w: cannot complete from %s", rterrors.ErrInvalidState, state)
	}
	r.sess.State = StateCompleted
	r.metrics.recordTransition(StateSummary, StateCompleted)
	r.mu.Unlock()

	r.persist()
	return nil
}

// Reset replaces a completed session with a fresh intro context: empty
// transcript, empty insights, cleared continuity memory.
func (r *Runtime) Reset() error {
	r.mu.Lock()
	if r.sess.State != StateCompleted {
		state := r.sess.State
		r.mu.Unlock()
		return fmt.Errorf("%w: cannot reset from %s", rterrors.ErrInvalidState, state)
	}
	facilitator, topic := r.sess.Facilitator, r.sess.Topic
	r.sess = r.freshContext(StateIntro, facilitator, topic)
	r.store.Restore(nil)
	r.engine.Reset()
	r.metrics.recordTransition(StateCompleted, StateIntro)
	r.mu.Unlock()

	r.persist()
	return nil
}

// AppendText ingests one auto-detected utterance; the attribution engine
// labels it.
func (r *Runtime) AppendText(text string) transcript.Entry {
	return r.append(transcript.Entry{Text: text}, "auto")
}

// AppendManual ingests one manually labeled entry.
func (r *Runtime) AppendManual(speaker, text string) transcript.Entry {
	return r.append(transcript.Entry{Speaker: speaker, Text: text}, "manual")
}

func (r *Runtime) append(partial transcript.Entry, source string) transcript.Entry {
	r.mu.Lock()
	entry := r.store.Append(partial)
	total := r.store.Len()
	r.mu.Unlock()

	r.metrics.recordEntry(source)
	r.persist()
	if r.trigger != nil {
		r.trigger.OnEntryAppended(total)
	}
	return entry
}

// ImportBulk splits raw text into entries (see transcript.Store.ImportBulk)
// and runs the cadence triggers for each appended entry.
func (r *Runtime) ImportBulk(rawText string) []transcript.Entry {
	r.mu.Lock()
	added := r.store.ImportBulk(rawText)
	total := r.store.Len()
	r.mu.Unlock()

	for range added {
		r.metrics.recordEntry("import")
	}
	r.persist()
	if r.trigger != nil {
		for i := len(added); i > 0; i-- {
			r.trigger.OnEntryAppended(total - i + 1)
		}
	}
	return added
}

// ImportTimed ingests a "m:ss : Speaker : text" transcript file.
func (r *Runtime) ImportTimed(src io.Reader, start time.Time) ([]transcript.Entry, error) {
	r.mu.Lock()
	added, err := r.store.ImportTimed(src, start)
	total := r.store.Len()
	r.mu.Unlock()

	for range added {
		r.metrics.recordEntry("import")
	}
	r.persist()
	if r.trigger != nil {
		for i := len(added); i > 0; i-- {
			r.trigger.OnEntryAppended(total - i + 1)
		}
	}
	return added, err
}

// ApplyCorrections rewrites speaker labels by entry id.
func (r *Runtime) ApplyCorrections(corrections map[string]string) int {
	r.mu.Lock()
	n := r.store.ApplyCorrections(corrections)
	r.mu.Unlock()

	if n > 0 {
		r.persist()
	}
	return n
}

// ConsumeEvents ingests capture events until the stream closes or ctx is
// cancelled. Partial hypotheses are skipped; only final utterances reach
// the transcript.
func (r *Runtime) ConsumeEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-r.source.Events():
			if !ok {
				return
			}
			switch ev.Kind {
			case capture.KindFinal:
				r.append(transcript.Entry{Text: ev.Text, Timestamp: ev.Timestamp, Confidence: ev.Confidence}, "auto")
			case capture.KindError:
				r.logger.Warn("capture error", logging.F("code", ev.Code))
			}
		}
	}
}

// Snapshot returns a deep copy of the aggregate, transcript included.
func (r *Runtime) Snapshot() *Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Runtime) snapshotLocked() *Context {
	view := r.sess.Clone()
	view.LiveTranscript = r.store.Entries()
	return view
}

// Restore rehydrates the runtime from a persisted context.
func (r *Runtime) Restore(sess *Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	restored := sess.Clone()
	r.store.Restore(restored.LiveTranscript)
	restored.LiveTranscript = nil
	r.sess = restored
}

// State returns the current lifecycle state.
func (r *Runtime) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sess.State
}

// CurrentQuestion returns the agenda question under discussion.
func (r *Runtime) CurrentQuestion() (int, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.sess.CurrentQuestionIndex
	if idx < 0 || idx >= len(r.agenda) {
		return idx, ""
	}
	return idx, r.agenda[idx]
}

// persist writes a snapshot, best-effort.
func (r *Runtime) persist() {
	if r.persister == nil {
		return
	}
	view := r.Snapshot()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := r.persister.Persist(ctx, view); err != nil {
		r.logger.Warn("snapshot write failed, session continues in memory", logging.Err(err))
	}
}

// Journal implementation: the orchestrator's view of this session.

// TranscriptEntries returns the current transcript log.
func (r *Runtime) TranscriptEntries() []transcript.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Entries()
}

// Insights returns a copy of the insight list.
func (r *Runtime) Insights() []insight.Insight {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]insight.Insight, len(r.sess.AIInsights))
	copy(out, r.sess.AIInsights)
	return out
}

// AddInsight appends an insight to the session.
func (r *Runtime) AddInsight(in insight.Insight) {
	r.mu.Lock()
	r.sess.AIInsights = append(r.sess.AIInsights, in)
	loading := in.IsLoading
	r.mu.Unlock()

	// Placeholders are transient; only settled insights are persisted.
	if !loading {
		r.persist()
	}
}

// RemoveInsight deletes the insight with the given id.
func (r *Runtime) RemoveInsight(id string) bool {
	r.mu.Lock()
	removed := false
	for i, in := range r.sess.AIInsights {
		if in.ID == id {
			r.sess.AIInsights = append(r.sess.AIInsights[:i], r.sess.AIInsights[i+1:]...)
			removed = true
			break
		}
	}
	r.mu.Unlock()

	if removed {
		r.persist()
	}
	return removed
}

// ReplaceInsight swaps the insight with the given id for final.
func (r *Runtime) ReplaceInsight(id string, final insight.Insight) bool {
	r.mu.Lock()
	replaced := false
	for i, in := range r.sess.AIInsights {
		if in.ID == id {
			r.sess.AIInsights[i] = final
			replaced = true
			break
		}
	}
	r.mu.Unlock()

	if replaced {
		r.persist()
	}
	return replaced
}

// Topic returns the session topic.
func (r *Runtime) Topic() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sess.Topic
}

// SessionMeta returns the phase metadata sent with analysis requests.
func (r *Runtime) SessionMeta() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta := map[string]any{
		"sessionId":   r.sess.ID,
		"state":       string(r.sess.State),
		"phaseIndex":  r.sess.CurrentQuestionIndex,
		"facilitator": r.sess.Facilitator,
	}
	if idx := r.sess.CurrentQuestionIndex; idx >= 0 && idx < len(r.agenda) {
		meta["currentQuestion"] = r.agenda[idx]
	}
	return meta
}

var _ insight.Journal = (*Runtime)(nil)
