package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/roundtable/config"
	"github.com/otherjamesbrown/roundtable/pkg/archive"
)

// Archive command flags.
var (
	archiveOutput string
	archiveLimit  int
	archiveOffset int
)

// NewArchiveCommand creates the archive command group.
func NewArchiveCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Browse archived sessions",
		Long: `Browse completed sessions stored in the long-term archive.

Requires an archive database: set archive.dsn in the config file or the
ROUNDTABLE_ARCHIVE_DSN environment variable.

Examples:
  roundtable archive list
  roundtable archive show <session-id>`,
	}

	cmd.PersistentFlags().StringVarP(&archiveOutput, "output", "o", "", "output format: text, json")

	cmd.AddCommand(newArchiveListCommand(deps))
	cmd.AddCommand(newArchiveShowCommand(deps))

	return cmd
}

// openArchive connects an archive repository from config.
func openArchive(cmd *cobra.Command, cfg *config.Config) (*archive.Repository, func(), error) {
	if cfg.Archive.DSN == "" {
		return nil, nil, fmt.Errorf("archive not configured: set archive.dsn or ROUNDTABLE_ARCHIVE_DSN")
	}
	pool, err := archive.Connect(cmd.Context(), cfg.Archive.DSN)
	if err != nil {
		return nil, nil, err
	}
	return archive.NewRepository(pool), pool.Close, nil
}

func newArchiveListCommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived sessions",
		Long: `List archived sessions, newest first.

Examples:
  roundtable archive list
  roundtable archive list --limit 5
  roundtable archive list --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadEnvironment(deps)
			if err != nil {
				return err
			}

			repo, closeFn, err := openArchive(cmd, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			records, err := repo.List(cmd.Context(), archiveLimit, archiveOffset)
			if err != nil {
				return err
			}

			out := outWriter(cmd, deps)
			format := cfg.OutputFormat
			if archiveOutput != "" {
				format = config.OutputFormat(archiveOutput)
			}
			if format == config.OutputFormatJSON {
				return outputJSON(out, records)
			}

			if len(records) == 0 {
				fmt.Fprintln(out, "No archived sessions.")
				return nil
			}
			fmt.Fprintf(out, "%-38s %-22s %-10s %-8s %-8s %s\n",
				"SESSION", "TOPIC", "DURATION", "ENTRIES", "INSIGHTS", "ARCHIVED")
			for _, rec := range records {
				topic := rec.Topic
				if len(topic) > 20 {
					topic = topic[:20] + ".."
				}
				fmt.Fprintf(out, "%-38s %-22s %-10s %-8d %-8d %s\n",
					rec.SessionID,
					topic,
					(time.Duration(rec.DurationMs) * time.Millisecond).Round(time.Second),
					rec.EntryCount,
					rec.InsightCount,
					rec.ArchivedAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&archiveLimit, "limit", 20, "maximum sessions to list")
	cmd.Flags().IntVar(&archiveOffset, "offset", 0, "skip this many sessions")
	return cmd
}

func newArchiveShowCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one archived session",
		Long: `Show the full snapshot of one archived session.

Examples:
  roundtable archive show 4f8e21aa-...
  roundtable archive show 4f8e21aa-... --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadEnvironment(deps)
			if err != nil {
				return err
			}

			repo, closeFn, err := openArchive(cmd, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			snap, err := repo.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := outWriter(cmd, deps)
			format := cfg.OutputFormat
			if archiveOutput != "" {
				format = config.OutputFormat(archiveOutput)
			}
			if format == config.OutputFormatJSON {
				return outputJSON(out, snap)
			}

			fmt.Fprintf(out, "Session %s (%s)\n", snap.SessionID, snap.Topic)
			fmt.Fprintf(out, "  Facilitator: %s\n", snap.Facilitator)
			fmt.Fprintf(out, "  Entries:     %d\n", len(snap.LiveTranscript))
			fmt.Fprintf(out, "  Insights:    %d\n", len(snap.AIInsights))
			for _, in := range snap.AIInsights {
				fmt.Fprintf(out, "\n[%s]\n  %s\n", in.Type, in.Content)
			}
			return nil
		},
	}
}
