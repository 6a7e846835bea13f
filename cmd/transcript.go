package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/roundtable/config"
	"github.com/otherjamesbrown/roundtable/pkg/transcript"
)

// Transcript command flags.
var (
	transcriptTimed   bool
	transcriptSpeaker string
	transcriptOutput  string
	transcriptLast    int
)

// NewTranscriptCommand creates the transcript command group.
func NewTranscriptCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "Manage the session transcript",
		Long: `Inspect and modify the live transcript of the current session.

Entries appended without an explicit speaker are labeled by the
attribution engine. Labels can be corrected afterwards by entry id.

Examples:
  roundtable transcript append "Let's move on to the next topic"
  roundtable transcript append --speaker "Sarah Chen" "We tried that last year"
  roundtable transcript import meeting.txt
  roundtable transcript import --timed meeting.txt
  roundtable transcript show --last 10
  roundtable transcript correct <entry-id>=Facilitator`,
	}

	cmd.PersistentFlags().StringVar(&sessionID, "session", "", "session id (defaults to the most recent session)")

	cmd.AddCommand(newTranscriptAppendCommand(deps))
	cmd.AddCommand(newTranscriptImportCommand(deps))
	cmd.AddCommand(newTranscriptShowCommand(deps))
	cmd.AddCommand(newTranscriptCorrectCommand(deps))

	return cmd
}

func newTranscriptAppendCommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "append <text>",
		Short: "Append one utterance to the transcript",
		Long: `Append a single utterance to the transcript.

Without --speaker, the attribution engine labels the entry and records
its confidence. With --speaker, the label is taken as given.

Examples:
  roundtable transcript append "What does your org look like in three years?"
  roundtable transcript append --speaker "Marcus" "We are mid-reorg right now"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnvironment(deps)
			if err != nil {
				return err
			}

			rt, _, err := restoreSession(cmd.Context(), deps, cfg, logger, sessionID)
			if err != nil {
				return err
			}

			var entry transcript.Entry
			if transcriptSpeaker != "" {
				entry = rt.AppendManual(transcriptSpeaker, args[0])
			} else {
				entry = rt.AppendText(args[0])
			}

			out := outWriter(cmd, deps)
			fmt.Fprintf(out, "%s  %s: %s\n", entry.ID, entry.Speaker, entry.Text)
			if entry.IsAutoDetected {
				fmt.Fprintf(out, "  (auto-detected, confidence %.2f)\n", entry.Confidence)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&transcriptSpeaker, "speaker", "", "explicit speaker label (skips attribution)")
	return cmd
}

func newTranscriptImportCommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import a transcript file",
		Long: `Import a transcript file into the current session.

The default format is "Speaker: text", one entry per line; a speaker of
"auto" hands the line to the attribution engine. With --timed, lines are
"m:ss : Speaker : text" and timestamps are offset from the session start.

Use "-" to read from stdin.

Examples:
  roundtable transcript import notes.txt
  roundtable transcript import --timed meeting.txt
  cat notes.txt | roundtable transcript import -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnvironment(deps)
			if err != nil {
				return err
			}

			rt, _, err := restoreSession(cmd.Context(), deps, cfg, logger, sessionID)
			if err != nil {
				return err
			}

			var src io.Reader
			if args[0] == "-" {
				src = cmd.InOrStdin()
			} else {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("opening transcript file: %w", err)
				}
				defer f.Close()
				src = f
			}

			var added int
			if transcriptTimed {
				entries, err := rt.ImportTimed(src, rt.Snapshot().StartTime)
				if err != nil {
					return err
				}
				added = len(entries)
			} else {
				raw, err := io.ReadAll(src)
				if err != nil {
					return fmt.Errorf("reading transcript: %w", err)
				}
				added = len(rt.ImportBulk(string(raw)))
			}

			fmt.Fprintf(outWriter(cmd, deps), "Imported %d entries.\n", added)
			return nil
		},
	}

	cmd.Flags().BoolVar(&transcriptTimed, "timed", false, "parse \"m:ss : Speaker : text\" lines")
	return cmd
}

func newTranscriptShowCommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show transcript entries",
		Long: `Show the transcript of the current session.

Examples:
  roundtable transcript show
  roundtable transcript show --last 10
  roundtable transcript show --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnvironment(deps)
			if err != nil {
				return err
			}

			rt, _, err := restoreSession(cmd.Context(), deps, cfg, logger, sessionID)
			if err != nil {
				return err
			}

			entries := rt.TranscriptEntries()
			if transcriptLast > 0 && transcriptLast < len(entries) {
				entries = entries[len(entries)-transcriptLast:]
			}

			out := outWriter(cmd, deps)
			format := cfg.OutputFormat
			if transcriptOutput != "" {
				format = config.OutputFormat(transcriptOutput)
			}
			if format == config.OutputFormatJSON {
				return outputJSON(out, entries)
			}

			for _, e := range entries {
				marker := " "
				if e.IsAutoDetected {
					marker = "~"
				}
				fmt.Fprintf(out, "%s [%s]%s %s: %s\n",
					e.Timestamp.Format(time.TimeOnly), shortID(e.ID), marker, e.Speaker, e.Text)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&transcriptLast, "last", 0, "show only the last N entries")
	cmd.Flags().StringVarP(&transcriptOutput, "output", "o", "", "output format: text, json")
	return cmd
}

func newTranscriptCorrectCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "correct <entry-id>=<speaker> [...]",
		Short: "Correct speaker labels",
		Long: `Rewrite the speaker label of one or more transcript entries.
Corrected entries lose their auto-detected flag.

Examples:
  roundtable transcript correct 7f3a9c=Facilitator
  roundtable transcript correct 7f3a9c="Sarah Chen" 91b2e0=Facilitator`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnvironment(deps)
			if err != nil {
				return err
			}

			rt, _, err := restoreSession(cmd.Context(), deps, cfg, logger, sessionID)
			if err != nil {
				return err
			}

			corrections := make(map[string]string, len(args))
			for _, arg := range args {
				id, speaker, ok := strings.Cut(arg, "=")
				if !ok || id == "" || speaker == "" {
					return fmt.Errorf("invalid correction %q: expected <entry-id>=<speaker>", arg)
				}
				corrections[resolveEntryID(rt.TranscriptEntries(), id)] = speaker
			}

			n := rt.ApplyCorrections(corrections)
			fmt.Fprintf(outWriter(cmd, deps), "Corrected %d entries.\n", n)
			return nil
		},
	}
}

// shortID abbreviates a uuid for display.
func shortID(id string) string {
	if len(id) > 6 {
		return id[:6]
	}
	return id
}

// resolveEntryID expands an abbreviated entry id to the full uuid when the
// prefix matches exactly one entry.
func resolveEntryID(entries []transcript.Entry, prefix string) string {
	var match string
	for _, e := range entries {
		if strings.HasPrefix(e.ID, prefix) {
			if match != "" {
				return prefix
			}
			match = e.ID
		}
	}
	if match != "" {
		return match
	}
	return prefix
}
