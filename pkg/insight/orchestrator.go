package insight

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	rterrors "github.com/otherjamesbrown/roundtable/pkg/errors"
	"github.com/otherjamesbrown/roundtable/pkg/logging"
	"github.com/otherjamesbrown/roundtable/pkg/transcript"
)

// Journal is the orchestrator's view of the session it reads from and
// writes into. The implementation serializes its own mutations.
type Journal interface {
	// TranscriptEntries returns the current transcript log.
	TranscriptEntries() []transcript.Entry

	// Insights returns the current insight list.
	Insights() []Insight

	// AddInsight appends an insight.
	AddInsight(in Insight)

	// RemoveInsight deletes the insight with the given id.
	RemoveInsight(id string) bool

	// ReplaceInsight swaps the insight with the given id for final.
	ReplaceInsight(id string, final Insight) bool

	// Topic returns the session topic.
	Topic() string

	// SessionMeta returns phase/session metadata sent with each request.
	SessionMeta() map[string]any
}

// ErrorInsightMessage is the fixed user-facing content of an error insight.
const ErrorInsightMessage = "Analysis is temporarily unavailable. The session continues; retry the request when ready."

// Defaults for the dispatch policy.
const (
	DefaultPrimaryConfidence  = 0.85
	DefaultFallbackConfidence = 0.75
	DefaultMinContentLength   = 20
	DefaultCooldown           = 2*time.Minute + 30*time.Second
	DefaultInsightCadence     = 5
	DefaultFollowupCadence    = 8
	DefaultSynthesisDelay     = 2 * time.Second
)

// pendingRequest tracks one in-flight dispatch.
type pendingRequest struct {
	placeholderID string
	generation    uint64
	cancel        context.CancelFunc
}

// Orchestrator issues analysis requests against a primary and fallback
// endpoint and writes results back into the journal. It guarantees at most
// one in-flight request per type, synchronous placeholder insertion, and
// that superseded requests never apply stale responses.
type Orchestrator struct {
	journal  Journal
	primary  Provider
	fallback Provider
	clientID string

	cooldown         time.Duration
	insightCadence   int
	followupCadence  int
	synthesisDelay   time.Duration
	minContentLength int

	clock   func() time.Time
	logger  logging.Logger
	metrics *Metrics
	tracer  *Tracer

	mu             sync.Mutex
	inflight       map[Type]*pendingRequest
	generation     map[Type]uint64
	synthesisTimer *time.Timer
	wg             sync.WaitGroup
}

// OrchestratorOption configures the orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithCooldown sets the auto-trigger suppression window.
func WithCooldown(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.cooldown = d }
}

// WithCadences sets how many new entries schedule insights and followup
// requests.
func WithCadences(insightEvery, followupEvery int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.insightCadence = insightEvery
		o.followupCadence = followupEvery
	}
}

// WithSynthesisDelay sets the debounce delay for phase-advance synthesis.
func WithSynthesisDelay(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.synthesisDelay = d }
}

// WithMinContentLength sets the shortest acceptable insight content.
func WithMinContentLength(n int) OrchestratorOption {
	return func(o *Orchestrator) { o.minContentLength = n }
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithOrchestratorClock overrides the time source, for tests.
func WithOrchestratorClock(clock func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.clock = clock }
}

// NewOrchestrator creates an orchestrator writing into journal.
func NewOrchestrator(journal Journal, primary, fallback Provider, clientID string, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		journal:          journal,
		primary:          primary,
		fallback:         fallback,
		clientID:         clientID,
		cooldown:         DefaultCooldown,
		insightCadence:   DefaultInsightCadence,
		followupCadence:  DefaultFollowupCadence,
		synthesisDelay:   DefaultSynthesisDelay,
		minContentLength: DefaultMinContentLength,
		clock:            time.Now,
		logger:           logging.NewNopLogger(),
		tracer:           NewTracer(),
		inflight:         make(map[Type]*pendingRequest),
		generation:       make(map[Type]uint64),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Request dispatches one analysis request synchronously and returns the
// stored insight. It fails fast with ErrInFlight when a request of the same
// type is already pending.
func (o *Orchestrator) Request(ctx context.Context, typ Type) (*Insight, error) {
	return o.request(ctx, typ, "manual")
}

func (o *Orchestrator) request(ctx context.Context, typ Type, triggeredBy string) (*Insight, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: unknown analysis type %q", rterrors.ErrValidation, typ)
	}

	ctx, span := o.tracer.StartDispatch(ctx, typ, len(o.journal.TranscriptEntries()), triggeredBy)

	placeholder, gen, reqCtx, err := o.begin(ctx, typ)
	if err != nil {
		o.metrics.recordRequest(typ, outcomeInFlight)
		EndWithError(span, err)
		return nil, err
	}

	in, err := o.dispatch(reqCtx, typ, placeholder, gen)
	o.finish(typ, gen)
	EndWithError(span, err)
	return in, err
}

// begin atomically enforces at-most-one-in-flight and inserts the loading
// placeholder so the journal never reflects a request without a pending
// record.
func (o *Orchestrator) begin(ctx context.Context, typ Type) (Insight, uint64, context.Context, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.inflight[typ]; exists {
		return Insight{}, 0, nil, fmt.Errorf("%w: %s request pending", rterrors.ErrInFlight, typ)
	}
	for _, in := range o.journal.Insights() {
		if in.Type == typ && in.IsLoading {
			return Insight{}, 0, nil, fmt.Errorf("%w: %s placeholder present", rterrors.ErrInFlight, typ)
		}
	}

	o.generation[typ]++
	gen := o.generation[typ]

	placeholder := newPlaceholder(typ, o.clock())
	o.journal.AddInsight(placeholder)

	reqCtx, cancel := context.WithCancel(ctx)
	o.inflight[typ] = &pendingRequest{
		placeholderID: placeholder.ID,
		generation:    gen,
		cancel:        cancel,
	}
	return placeholder, gen, reqCtx, nil
}

// finish clears the in-flight slot if it still belongs to this generation.
func (o *Orchestrator) finish(typ Type, gen uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if p, ok := o.inflight[typ]; ok && p.generation == gen {
		p.cancel()
		delete(o.inflight, typ)
	}
}

// dispatch runs the primary → fallback → error-insight pipeline.
func (o *Orchestrator) dispatch(ctx context.Context, typ Type, placeholder Insight, gen uint64) (*Insight, error) {
	req := o.buildRequest(typ)
	log := o.logger.With(logging.F("type", string(typ)))

	callCtx, span := o.tracer.StartCall(ctx, o.primary.Name())
	start := o.clock()
	resp, err := o.primary.Analyze(callCtx, req)
	o.metrics.recordLatency(typ, o.primary.Name(), o.clock().Sub(start).Seconds())
	EndWithError(span, err)

	if err == nil {
		in, applyErr := o.applyPrimary(ctx, typ, placeholder, gen, resp)
		if applyErr == nil {
			o.metrics.recordRequest(typ, outcomePrimary)
			o.metrics.recordConfidence(typ, in.Confidence)
			return in, nil
		}
		return nil, applyErr
	}

	log.Warn("primary analysis failed, falling back", logging.Err(err))
	if !o.resolvePlaceholder(typ, placeholder.ID, gen, nil) {
		return nil, rterrors.ErrSuperseded
	}

	callCtx, span = o.tracer.StartCall(ctx, o.fallback.Name())
	start = o.clock()
	resp, fbErr := o.fallback.Analyze(callCtx, req)
	o.metrics.recordLatency(typ, o.fallback.Name(), o.clock().Sub(start).Seconds())
	EndWithError(span, fbErr)

	if fbErr == nil {
		in := Insight{
			Type:                 typ,
			Content:              resp.Content,
			Confidence:           DefaultFallbackConfidence,
			IsLegacy:             true,
			TranscriptEntryCount: len(o.journal.TranscriptEntries()),
		}
		if applied, ok := o.appendResolved(typ, gen, in); ok {
			o.metrics.recordRequest(typ, outcomeFallback)
			o.metrics.recordConfidence(typ, applied.Confidence)
			return applied, nil
		}
		return nil, rterrors.ErrSuperseded
	}

	log.Error("both analysis endpoints failed", logging.Err(fbErr))
	errInsight := Insight{
		Type:    typ,
		Content: ErrorInsightMessage,
		IsError: true,
	}
	if applied, ok := o.appendResolved(typ, gen, errInsight); ok {
		o.metrics.recordRequest(typ, outcomeError)
		return applied, fmt.Errorf("%s analysis failed: %w", typ, fbErr)
	}
	return nil, rterrors.ErrSuperseded
}

// applyPrimary validates the primary response and swaps the placeholder for
// the final insight. Validation failures remove the placeholder and store
// nothing.
func (o *Orchestrator) applyPrimary(ctx context.Context, typ Type, placeholder Insight, gen uint64, resp *Response) (*Insight, error) {
	content := strings.TrimSpace(resp.Content)
	if len(content) < o.minContentLength {
		o.resolvePlaceholder(typ, placeholder.ID, gen, nil)
		o.metrics.recordRequest(typ, outcomeRejected)
		return nil, fmt.Errorf("%w: content too short (%d chars)", rterrors.ErrValidation, len(content))
	}
	if isNearDuplicate(o.journal.Insights(), typ, content) {
		o.resolvePlaceholder(typ, placeholder.ID, gen, nil)
		o.metrics.recordRequest(typ, outcomeDuplicate)
		return nil, fmt.Errorf("%w: %s content repeats an earlier insight", rterrors.ErrDuplicate, typ)
	}

	confidence := resp.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = DefaultPrimaryConfidence
	}
	final := Insight{
		ID:                   placeholder.ID,
		Type:                 typ,
		Content:              content,
		Timestamp:            o.clock(),
		Confidence:           confidence,
		Suggestions:          resp.Suggestions,
		Metadata:             resp.Metadata,
		TranscriptEntryCount: len(o.journal.TranscriptEntries()),
	}

	if ctx.Err() != nil || !o.resolvePlaceholder(typ, placeholder.ID, gen, &final) {
		o.metrics.recordRequest(typ, outcomeSuperseded)
		return nil, fmt.Errorf("%w: %s response discarded", rterrors.ErrSuperseded, typ)
	}
	return &final, nil
}

// resolvePlaceholder replaces (final != nil) or removes (final == nil) the
// placeholder, but only while this request is still the current generation.
// A superseded request must not touch the journal.
func (o *Orchestrator) resolvePlaceholder(typ Type, placeholderID string, gen uint64, final *Insight) bool {
	o.mu.Lock()
	current := o.generation[typ] == gen
	o.mu.Unlock()
	if !current {
		return false
	}

	if final != nil {
		return o.journal.ReplaceInsight(placeholderID, *final)
	}
	o.journal.RemoveInsight(placeholderID)
	return true
}

// appendResolved appends a fallback or error insight with a fresh id,
// unless the request has been superseded.
func (o *Orchestrator) appendResolved(typ Type, gen uint64, in Insight) (*Insight, bool) {
	o.mu.Lock()
	current := o.generation[typ] == gen
	o.mu.Unlock()
	if !current {
		return nil, false
	}

	in.ID = uuid.NewString()
	in.Timestamp = o.clock()
	o.journal.AddInsight(in)
	return &in, true
}

// buildRequest assembles the payload: incremental slice for the insights
// type, full cumulative transcript for all others.
func (o *Orchestrator) buildRequest(typ Type) Request {
	entries := o.journal.TranscriptEntries()
	slice := entries
	if typ == TypeInsights {
		if since := highestRecordedCount(o.journal.Insights(), typ); since > 0 && since < len(entries) {
			slice = entries[since:]
		}
	}

	return Request{
		Topic:            o.journal.Topic(),
		Transcript:       transcript.Render(slice),
		Type:             typ,
		ParticipantCount: len(transcript.Speakers(entries)),
		SessionContext:   o.journal.SessionMeta(),
		ClientID:         o.clientID,
	}
}

// Cancel aborts the in-flight request of the given type, if any. The
// aborted request removes its own placeholder and never applies its
// response.
func (o *Orchestrator) Cancel(typ Type) {
	o.mu.Lock()
	p, ok := o.inflight[typ]
	if ok {
		o.generation[typ]++
		delete(o.inflight, typ)
	}
	o.mu.Unlock()

	if ok {
		p.cancel()
		o.journal.RemoveInsight(p.placeholderID)
	}
}

// OnEntryAppended implements the cadence policy: every insightCadence new
// entries schedule an insights request, every followupCadence a followup.
// Call it after each transcript append, outside any journal lock.
func (o *Orchestrator) OnEntryAppended(total int) {
	if o.insightCadence > 0 && total > 0 && total%o.insightCadence == 0 {
		o.autoTrigger(TypeInsights)
	}
	if o.followupCadence > 0 && total > 0 && total%o.followupCadence == 0 {
		o.autoTrigger(TypeFollowup)
	}
}

// OnPhaseAdvanced schedules a debounced synthesis request summarizing
// progress so far. Rapid consecutive advances collapse into one request.
func (o *Orchestrator) OnPhaseAdvanced() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.synthesisTimer != nil {
		o.synthesisTimer.Stop()
	}
	o.synthesisTimer = time.AfterFunc(o.synthesisDelay, func() {
		o.autoTrigger(TypeSynthesis)
	})
}

// autoTrigger dispatches a background request unless the cooldown since the
// most recent insight of any type has not elapsed. The cooldown prevents
// request storms during rapid dictation.
func (o *Orchestrator) autoTrigger(typ Type) {
	if o.inCooldown() {
		o.metrics.recordAutoTrigger(typ, actionSuppressed)
		o.logger.Debug("auto-trigger suppressed by cooldown", logging.F("type", string(typ)))
		return
	}
	o.metrics.recordAutoTrigger(typ, actionDispatched)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if _, err := o.request(context.Background(), typ, "auto"); err != nil && !rterrors.IsInFlight(err) {
			o.logger.Debug("auto-triggered request failed",
				logging.F("type", string(typ)), logging.Err(err))
		}
	}()
}

// inCooldown reports whether any insight landed within the cooldown window.
func (o *Orchestrator) inCooldown() bool {
	if o.cooldown <= 0 {
		return false
	}
	now := o.clock()
	for _, in := range o.journal.Insights() {
		if in.IsLoading {
			continue
		}
		if now.Sub(in.Timestamp) < o.cooldown {
			return true
		}
	}
	return false
}

// Close stops the synthesis timer, aborts in-flight requests, and waits for
// background dispatches to settle.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.synthesisTimer != nil {
		o.synthesisTimer.Stop()
		o.synthesisTimer = nil
	}
	pendings := make([]*pendingRequest, 0, len(o.inflight))
	for typ, p := range o.inflight {
		o.generation[typ]++
		pendings = append(pendings, p)
	}
	o.inflight = make(map[Type]*pendingRequest)
	o.mu.Unlock()

	for _, p := range pendings {
		p.cancel()
	}
	o.wg.Wait()
}
