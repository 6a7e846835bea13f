package cmd

import (
	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/roundtable/config"
	"github.com/otherjamesbrown/roundtable/pkg/snapshot"
)

var recoverOutput string

// NewRecoverCommand creates the recover command.
func NewRecoverCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "recover [session-id]",
		Short: "Recover a persisted session",
		Long: `Load a persisted session snapshot and show its state.

Without an argument, the most recently saved session is recovered.
Snapshots from older schema versions load with defaults for the fields
they lack.

Examples:
  roundtable recover
  roundtable recover 4f8e21aa-...
  roundtable recover --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnvironment(deps)
			if err != nil {
				return err
			}

			store, err := deps.OpenSnapshots(cfg, logger)
			if err != nil {
				return err
			}

			var snap *snapshot.Snapshot
			if len(args) == 1 {
				snap, err = store.Load(cmd.Context(), args[0])
			} else {
				snap, err = store.LoadLatest(cmd.Context())
			}
			if err != nil {
				return err
			}

			out := outWriter(cmd, deps)
			format := cfg.OutputFormat
			if recoverOutput != "" {
				format = config.OutputFormat(recoverOutput)
			}
			if format == config.OutputFormatJSON {
				return outputJSON(out, snap)
			}
			printSession(out, snapshot.FromSnapshot(snap), cfg.Agenda)
			return nil
		},
	}

	cmd.Flags().StringVarP(&recoverOutput, "output", "o", "", "output format: text, json")
	return cmd
}
