// Package cmd provides CLI commands for the roundtable tool.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/roundtable/config"
	"github.com/otherjamesbrown/roundtable/credentials"
	"github.com/otherjamesbrown/roundtable/pkg/attribution"
	"github.com/otherjamesbrown/roundtable/pkg/insight"
	"github.com/otherjamesbrown/roundtable/pkg/logging"
	"github.com/otherjamesbrown/roundtable/pkg/session"
	"github.com/otherjamesbrown/roundtable/pkg/snapshot"
)

// SnapshotStore is the slice of the snapshot store the commands need.
// Narrowed to an interface so tests can substitute an in-memory store.
type SnapshotStore interface {
	Save(ctx context.Context, snap *snapshot.Snapshot) error
	Load(ctx context.Context, sessionID string) (*snapshot.Snapshot, error)
	LoadLatest(ctx context.Context) (*snapshot.Snapshot, error)
	Delete(ctx context.Context, sessionID string) error
}

// Deps holds the shared dependencies for all commands. Function fields can
// be overridden in tests.
type Deps struct {
	LoadConfig    func() (*config.Config, error)
	NewLogger     func(cfg *config.Config) logging.Logger
	OpenSnapshots func(cfg *config.Config, logger logging.Logger) (SnapshotStore, error)

	// Out receives command output; defaults to the cobra command's stdout.
	Out io.Writer
}

// DefaultDeps returns the production dependency set.
func DefaultDeps() *Deps {
	return &Deps{
		LoadConfig:    config.LoadConfig,
		NewLogger:     newLoggerFromConfig,
		OpenSnapshots: openSnapshotStore,
	}
}

func newLoggerFromConfig(cfg *config.Config) logging.Logger {
	level := logging.LevelInfo
	if cfg.Logging.Level != "" {
		level = logging.Level(cfg.Logging.Level)
	}
	if cfg.Debug {
		level = logging.LevelDebug
	}
	return logging.NewLogger(&logging.Config{
		Level:      level,
		Component:  "roundtable",
		JSONFormat: cfg.Logging.JSON,
	})
}

// openSnapshotStore connects to Redis per the config. Returns an error when
// persistence is not configured; stateful commands cannot work without it.
func openSnapshotStore(cfg *config.Config, logger logging.Logger) (SnapshotStore, error) {
	if cfg.Snapshot.RedisAddr == "" {
		return nil, fmt.Errorf("snapshot persistence not configured: set snapshot.redis_addr or ROUNDTABLE_REDIS_ADDR")
	}
	return snapshot.NewStoreFromConfig(snapshot.StoreConfig{
		Addr:   cfg.Snapshot.RedisAddr,
		DB:     cfg.Snapshot.RedisDB,
		Prefix: cfg.Snapshot.KeyPrefix,
	}, logger)
}

// storePersister adapts a SnapshotStore to the runtime's persistence hook.
type storePersister struct {
	store SnapshotStore
}

func (p storePersister) Persist(ctx context.Context, sess *session.Context) error {
	return p.store.Save(ctx, snapshot.ToSnapshot(sess))
}

// newRuntime builds the attribution engine and session runtime from config.
func newRuntime(cfg *config.Config, logger logging.Logger, store SnapshotStore, opts ...session.RuntimeOption) *session.Runtime {
	engine := attribution.NewEngine(
		attribution.WithFacilitator(cfg.Facilitator.Name, cfg.Facilitator.Organization),
		attribution.WithGuideQuestions(cfg.Agenda),
		attribution.WithContinuityWindow(cfg.Attribution.ContinuityWindow),
	)

	all := []session.RuntimeOption{session.WithLogger(logger)}
	if store != nil {
		all = append(all, session.WithPersister(storePersister{store: store}))
	}
	all = append(all, opts...)

	return session.NewRuntime(engine, cfg.Facilitator.Name, topicFromAgenda(cfg), cfg.Agenda, all...)
}

func topicFromAgenda(cfg *config.Config) string {
	if len(cfg.Agenda) > 0 {
		return cfg.Agenda[0]
	}
	return "open discussion"
}

// newOrchestrator wires the analysis clients and trigger policy onto rt.
func newOrchestrator(cfg *config.Config, logger logging.Logger, rt *session.Runtime, clientID string) *insight.Orchestrator {
	apiKey, err := credentials.DefaultStore().APIKey()
	if err != nil {
		apiKey = ""
		logger.Debug("no analysis API key configured", logging.Err(err))
	}

	primary := insight.NewPrimaryClient(insight.ClientConfig{
		Endpoint: cfg.Endpoints.Primary,
		APIKey:   apiKey,
		Timeout:  cfg.Endpoints.Timeout,
	})
	fallback := insight.NewFallbackClient(insight.ClientConfig{
		Endpoint: cfg.Endpoints.Fallback,
		APIKey:   apiKey,
		Timeout:  cfg.Endpoints.Timeout,
	})

	orch := insight.NewOrchestrator(rt, primary, fallback, clientID,
		insight.WithCooldown(cfg.Insights.Cooldown),
		insight.WithCadences(cfg.Insights.InsightCadence, cfg.Insights.FollowupCadence),
		insight.WithSynthesisDelay(cfg.Insights.SynthesisDelay),
		insight.WithLogger(logger),
	)
	rt.SetTrigger(orch)
	return orch
}

// loadEnvironment loads config and builds the logger.
func loadEnvironment(deps *Deps) (*config.Config, logging.Logger, error) {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, deps.NewLogger(cfg), nil
}

// outWriter picks the command output writer, honoring the test override.
func outWriter(cmd *cobra.Command, deps *Deps) io.Writer {
	if deps.Out != nil {
		return deps.Out
	}
	return cmd.OutOrStdout()
}

// restoreSession loads the named session (or the latest) into a runtime.
func restoreSession(ctx context.Context, deps *Deps, cfg *config.Config, logger logging.Logger, sessionID string) (*session.Runtime, SnapshotStore, error) {
	store, err := deps.OpenSnapshots(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	var snap *snapshot.Snapshot
	if sessionID != "" {
		snap, err = store.Load(ctx, sessionID)
	} else {
		snap, err = store.LoadLatest(ctx)
	}
	if err != nil {
		return nil, nil, err
	}

	rt := newRuntime(cfg, logger, store)
	rt.Restore(snapshot.FromSnapshot(snap))
	return rt, store, nil
}

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printSession renders a session summary in human-readable form.
func printSession(w io.Writer, sess *session.Context, agenda []string) {
	fmt.Fprintf(w, "Session: %s\n", sess.ID)
	fmt.Fprintf(w, "  State:        %s\n", sess.State)
	fmt.Fprintf(w, "  Topic:        %s\n", sess.Topic)
	fmt.Fprintf(w, "  Facilitator:  %s\n", sess.Facilitator)
	if !sess.StartTime.IsZero() {
		fmt.Fprintf(w, "  Started:      %s\n", sess.StartTime.Format(time.RFC3339))
	}
	if sess.Duration > 0 {
		fmt.Fprintf(w, "  Duration:     %s\n", sess.Duration.Round(time.Second))
	}

	if len(agenda) > 0 {
		q := "(past end of agenda)"
		if sess.CurrentQuestionIndex >= 0 && sess.CurrentQuestionIndex < len(agenda) {
			q = agenda[sess.CurrentQuestionIndex]
		}
		fmt.Fprintf(w, "  Phase:        %d/%d: %s\n", sess.CurrentQuestionIndex+1, len(agenda), q)
	}

	fmt.Fprintf(w, "  Entries:      %d\n", len(sess.LiveTranscript))
	fmt.Fprintf(w, "  Insights:     %d\n", countSettledInsights(sess.AIInsights))
	if len(sess.KeyThemes) > 0 {
		fmt.Fprintf(w, "  Key themes:   %s\n", strings.Join(sess.KeyThemes, ", "))
	}

	if len(sess.AgendaProgress) > 0 {
		fmt.Fprintln(w, "  Progress:")
		for i := range agenda {
			key := fmt.Sprintf("q%d", i)
			p, ok := sess.AgendaProgress[key]
			if !ok {
				continue
			}
			fmt.Fprintf(w, "    q%d: completed in %s, %d insights\n",
				i, p.TimeSpent.Round(time.Second), p.InsightCount)
		}
	}
}

func countSettledInsights(insights []insight.Insight) int {
	n := 0
	for _, in := range insights {
		if !in.IsLoading && !in.IsError {
			n++
		}
	}
	return n
}

// maskKey hides all but the first and last few characters of a key.
func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
