package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/roundtable/config"
	"github.com/otherjamesbrown/roundtable/pkg/archive"
	"github.com/otherjamesbrown/roundtable/pkg/capture"
	"github.com/otherjamesbrown/roundtable/pkg/session"
	"github.com/otherjamesbrown/roundtable/pkg/snapshot"
)

// Session command flags.
var (
	sessionID       string
	sessionOutput   string
	sessionReplay   string
	sessionInterval time.Duration
	sessionSpeedup  int
)

// NewSessionCommand creates the session command group.
func NewSessionCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage the live facilitation session",
		Long: `Manage the live facilitation session lifecycle.

A session moves through intro, discussion, summary, and completed states.
During discussion the agenda position can be advanced or moved back, and
transcript entries flow in from speech capture, replay, or manual entry.

Session state is persisted to Redis after every mutation, so each command
invocation picks up where the last one left off.

Examples:
  roundtable session start
  roundtable session status
  roundtable session advance
  roundtable session end
  roundtable session complete
  roundtable session run --replay meeting.txt`,
	}

	cmd.PersistentFlags().StringVar(&sessionID, "session", "", "session id (defaults to the most recent session)")
	cmd.PersistentFlags().StringVarP(&sessionOutput, "output", "o", "", "output format: text, json")

	cmd.AddCommand(newSessionStartCommand(deps))
	cmd.AddCommand(newSessionStatusCommand(deps))
	cmd.AddCommand(newSessionAdvanceCommand(deps))
	cmd.AddCommand(newSessionBackCommand(deps))
	cmd.AddCommand(newSessionEndCommand(deps))
	cmd.AddCommand(newSessionCompleteCommand(deps))
	cmd.AddCommand(newSessionResetCommand(deps))
	cmd.AddCommand(newSessionRunCommand(deps))

	return cmd
}

func newSessionStartCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a new session",
		Long: `Start a new facilitation session in the discussion state.

The facilitator identity and agenda come from the configuration file.
The new session becomes the "latest" session for subsequent commands.

Examples:
  roundtable session start
  roundtable session start --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnvironment(deps)
			if err != nil {
				return err
			}

			store, err := deps.OpenSnapshots(cfg, logger)
			if err != nil {
				return err
			}

			rt := newRuntime(cfg, logger, store)
			if err := rt.Start(cmd.Context()); err != nil {
				return err
			}

			return reportSession(cmd, deps, cfg, rt.Snapshot())
		},
	}
}

func newSessionStatusCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session state",
		Long: `Show the persisted state of a session: lifecycle state, agenda
position, transcript and insight counts, and per-phase progress.

Examples:
  roundtable session status
  roundtable session status --session <id>
  roundtable session status --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnvironment(deps)
			if err != nil {
				return err
			}

			rt, _, err := restoreSession(cmd.Context(), deps, cfg, logger, sessionID)
			if err != nil {
				return err
			}
			return reportSession(cmd, deps, cfg, rt.Snapshot())
		},
	}
}

func newSessionAdvanceCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "advance",
		Short: "Advance to the next agenda question",
		Long: `Advance the discussion to the next agenda question.

The finished question's progress (time spent, insights generated) is
recorded. Advancing past the last question is a no-op.

Examples:
  roundtable session advance`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPhaseChange(cmd, deps, session.DirForward)
		},
	}
}

func newSessionBackCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "back",
		Short: "Return to the previous agenda question",
		Long: `Move the discussion back to the previous agenda question.

Backward moves do not record progress. Moving before the first question
is a no-op.

Examples:
  roundtable session back`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPhaseChange(cmd, deps, session.DirBackward)
		},
	}
}

func runPhaseChange(cmd *cobra.Command, deps *Deps, dir int) error {
	cfg, logger, err := loadEnvironment(deps)
	if err != nil {
		return err
	}

	rt, _, err := restoreSession(cmd.Context(), deps, cfg, logger, sessionID)
	if err != nil {
		return err
	}
	if err := rt.AdvancePhase(dir); err != nil {
		return err
	}

	idx, question := rt.CurrentQuestion()
	out := outWriter(cmd, deps)
	if question == "" {
		fmt.Fprintf(out, "Phase %d (no agenda question)\n", idx+1)
	} else {
		fmt.Fprintf(out, "Phase %d/%d: %s\n", idx+1, len(cfg.Agenda), question)
	}
	return nil
}

func newSessionEndCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "end",
		Short: "End the discussion",
		Long: `End the discussion and move the session to the summary state.
Speech capture stops and the session duration is fixed.

Examples:
  roundtable session end`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnvironment(deps)
			if err != nil {
				return err
			}

			rt, _, err := restoreSession(cmd.Context(), deps, cfg, logger, sessionID)
			if err != nil {
				return err
			}
			if err := rt.End(); err != nil {
				return err
			}
			return reportSession(cmd, deps, cfg, rt.Snapshot())
		},
	}
}

func newSessionCompleteCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "complete",
		Short: "Complete the session",
		Long: `Mark the session as completed.

When an archive database is configured, the completed session is written
to long-term storage.

Examples:
  roundtable session complete`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnvironment(deps)
			if err != nil {
				return err
			}

			rt, _, err := restoreSession(cmd.Context(), deps, cfg, logger, sessionID)
			if err != nil {
				return err
			}
			if err := rt.Complete(); err != nil {
				return err
			}

			view := rt.Snapshot()
			if cfg.Archive.DSN != "" {
				if err := archiveSession(cmd.Context(), cfg, view); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: archiving session: %v\n", err)
				} else {
					fmt.Fprintf(outWriter(cmd, deps), "Session archived.\n")
				}
			}
			return reportSession(cmd, deps, cfg, view)
		},
	}
}

// archiveSession writes the completed session to the Postgres archive.
func archiveSession(ctx context.Context, cfg *config.Config, sess *session.Context) error {
	pool, err := archive.Connect(ctx, cfg.Archive.DSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := archive.NewRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}
	return repo.SaveCompleted(ctx, snapshot.ToSnapshot(sess))
}

func newSessionResetCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset a completed session",
		Long: `Replace a completed session with a fresh one in the intro state.
The transcript, insights, and speaker-continuity memory are cleared; the
facilitator and topic carry over.

Examples:
  roundtable session reset`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnvironment(deps)
			if err != nil {
				return err
			}

			rt, _, err := restoreSession(cmd.Context(), deps, cfg, logger, sessionID)
			if err != nil {
				return err
			}
			if err := rt.Reset(); err != nil {
				return err
			}
			return reportSession(cmd, deps, cfg, rt.Snapshot())
		},
	}
}

func newSessionRunCommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a full session from a replay file",
		Long: `Run a complete session end to end, replaying a transcript file as
if it were live speech.

Each line of the replay file becomes one captured utterance. Lines may
carry a "m:ss : Speaker :" prefix; the speaker label is dropped so the
attribution engine does the labeling. Insight auto-triggers fire on the
usual cadence as entries arrive.

Examples:
  roundtable session run --replay meeting.txt
  roundtable session run --replay meeting.txt --speedup 10
  roundtable session run --replay meeting.txt --interval 500ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sessionReplay == "" {
				return fmt.Errorf("--replay is required")
			}

			cfg, logger, err := loadEnvironment(deps)
			if err != nil {
				return err
			}

			store, err := deps.OpenSnapshots(cfg, logger)
			if err != nil {
				return err
			}

			f, err := os.Open(sessionReplay)
			if err != nil {
				return fmt.Errorf("opening replay file: %w", err)
			}
			defer f.Close()

			source := capture.NewFileSource(f,
				capture.WithInterval(sessionInterval),
				capture.WithSpeedup(sessionSpeedup),
			)

			rt := newRuntime(cfg, logger, store, session.WithCapture(source))
			orch := newOrchestrator(cfg, logger, rt, "roundtable-cli")
			defer orch.Close()

			if err := rt.Start(cmd.Context()); err != nil {
				return err
			}

			out := outWriter(cmd, deps)
			fmt.Fprintf(out, "Replaying %s...\n", sessionReplay)
			rt.ConsumeEvents(cmd.Context())

			if err := rt.End(); err != nil {
				return err
			}
			return reportSession(cmd, deps, cfg, rt.Snapshot())
		},
	}

	cmd.Flags().StringVar(&sessionReplay, "replay", "", "transcript file to replay as live capture")
	cmd.Flags().DurationVar(&sessionInterval, "interval", time.Second, "delay between replayed utterances")
	cmd.Flags().IntVar(&sessionSpeedup, "speedup", 1, "replay speed multiplier")

	return cmd
}

// reportSession renders the session in the selected output format.
func reportSession(cmd *cobra.Command, deps *Deps, cfg *config.Config, sess *session.Context) error {
	out := outWriter(cmd, deps)
	format := cfg.OutputFormat
	if sessionOutput != "" {
		format = config.OutputFormat(sessionOutput)
	}
	if format == config.OutputFormatJSON {
		return outputJSON(out, snapshot.ToSnapshot(sess))
	}
	printSession(out, sess, cfg.Agenda)
	return nil
}

