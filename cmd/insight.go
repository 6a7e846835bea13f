package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/roundtable/config"
	"github.com/otherjamesbrown/roundtable/pkg/insight"
)

// Insight command flags.
var (
	insightOutput string
	insightType   string
)

// NewInsightCommand creates the insight command group.
func NewInsightCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "insight",
		Short: "Request and inspect AI analysis of the discussion",
		Long: `Request AI analysis of the current session's transcript and inspect
the results.

Analysis types:
  insights   observations about the discussion so far (incremental)
  followup   suggested follow-up questions
  synthesis  a summary of the discussion across agenda questions
  executive  an executive-level summary

Requests go to the primary analysis endpoint; on failure, the legacy
endpoint is tried once. At most one request per type runs at a time.

Examples:
  roundtable insight request insights
  roundtable insight request synthesis
  roundtable insight list
  roundtable insight list --type followup`,
	}

	cmd.PersistentFlags().StringVar(&sessionID, "session", "", "session id (defaults to the most recent session)")
	cmd.PersistentFlags().StringVarP(&insightOutput, "output", "o", "", "output format: text, json")

	cmd.AddCommand(newInsightRequestCommand(deps))
	cmd.AddCommand(newInsightListCommand(deps))

	return cmd
}

func newInsightRequestCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "request <type>",
		Short: "Request one analysis of the transcript",
		Long: `Dispatch one analysis request and wait for the result.

Manual requests bypass the auto-trigger cooldown. A request fails fast
if one of the same type is already pending.

Examples:
  roundtable insight request insights
  roundtable insight request followup
  roundtable insight request synthesis --output json`,
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

			orch := newOrchestrator(cfg, logger, rt, "roundtable-cli")
			defer orch.Close()

			in, err := orch.Request(cmd.Context(), insight.Type(args[0]))
			if err != nil {
				return err
			}

			out := outWriter(cmd, deps)
			format := cfg.OutputFormat
			if insightOutput != "" {
				format = config.OutputFormat(insightOutput)
			}
			if format == config.OutputFormatJSON {
				return outputJSON(out, in)
			}
			printInsight(out, *in)
			return nil
		},
	}
}

func newInsightListCommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the session's insights",
		Long: `List the insights generated for the current session, oldest first.

Examples:
  roundtable insight list
  roundtable insight list --type insights
  roundtable insight list --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnvironment(deps)
			if err != nil {
				return err
			}

			rt, _, err := restoreSession(cmd.Context(), deps, cfg, logger, sessionID)
			if err != nil {
				return err
			}

			insights := rt.Insights()
			if insightType != "" {
				filtered := insights[:0]
				for _, in := range insights {
					if in.Type == insight.Type(insightType) {
						filtered = append(filtered, in)
					}
				}
				insights = filtered
			}

			out := outWriter(cmd, deps)
			format := cfg.OutputFormat
			if insightOutput != "" {
				format = config.OutputFormat(insightOutput)
			}
			if format == config.OutputFormatJSON {
				return outputJSON(out, insights)
			}

			if len(insights) == 0 {
				fmt.Fprintln(out, "No insights yet.")
				return nil
			}
			for _, in := range insights {
				printInsight(out, in)
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&insightType, "type", "", "filter by analysis type")
	return cmd
}

// printInsight renders one insight in human-readable form.
func printInsight(w io.Writer, in insight.Insight) {
	label := string(in.Type)
	switch {
	case in.IsError:
		label += " (failed)"
	case in.IsLegacy:
		label += " (legacy endpoint)"
	}

	fmt.Fprintf(w, "[%s] %s", in.Timestamp.Format(time.TimeOnly), label)
	if in.Confidence > 0 {
		fmt.Fprintf(w, "  confidence %.2f", in.Confidence)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(in.Content, "\n", "\n  "))
	for _, s := range in.Suggestions {
		fmt.Fprintf(w, "  - %s\n", s)
	}
}
