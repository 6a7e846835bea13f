// Package main provides the roundtable CLI entry point.
// roundtable is the command-line interface for running facilitated
// discussion sessions with live transcription and AI analysis.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/roundtable/cmd"
	"github.com/otherjamesbrown/roundtable/config"
	"github.com/otherjamesbrown/roundtable/pkg/buildinfo"
)

// Global flags.
var (
	outputFormat string
	debug        bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "roundtable",
	Short: "Roundtable CLI - live facilitation sessions with AI insight",
	Long: `roundtable runs facilitated discussion sessions from the command line.

A session follows a pre-scripted agenda of guide questions. Utterances
flow in from speech capture, transcript replay, or manual entry; a
rule-based attribution engine labels each one as facilitator or
participant. AI analysis of the discussion is requested automatically on
a cadence and on demand.

Session state persists in Redis between invocations; completed sessions
can be archived to PostgreSQL.

COMMON WORKFLOWS:
  Run a session:     roundtable session start  →  transcript append ...  →
                     session advance  →  session end  →  session complete
  Replay a meeting:  roundtable session run --replay meeting.txt
  Ask for analysis:  roundtable insight request insights
  Pick up after a crash:  roundtable recover

DISCOVERY:
  roundtable <command> --help   Subcommands, flags, and examples`,
	PersistentPreRunE: func(c *cobra.Command, args []string) error {
		if c.Name() == "version" || c.Name() == "help" || c.Name() == "completion" {
			return nil
		}
		// Flags overlay the config through the environment, which the
		// config loader already honors.
		if outputFormat != "" {
			os.Setenv("ROUNDTABLE_OUTPUT_FORMAT", outputFormat)
		}
		if debug {
			os.Setenv("ROUNDTABLE_DEBUG", "1")
		}
		return nil
	},
}

// Version command flags.
var versionOutputJSON bool

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the version, commit hash, and build time of the roundtable CLI.

Examples:
  roundtable version
  roundtable version --output-json`,
	RunE: func(c *cobra.Command, args []string) error {
		info := buildinfo.Get("roundtable-cli")
		if versionOutputJSON {
			enc := json.NewEncoder(c.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}
		out := c.OutOrStdout()
		fmt.Fprintf(out, "roundtable version %s\n", info.Version)
		fmt.Fprintf(out, "  commit:  %s\n", info.Commit)
		fmt.Fprintf(out, "  built:   %s\n", info.BuildTime)
		fmt.Fprintf(out, "  go:      %s\n", info.GoVersion)
		return nil
	},
}

// configCmd manages CLI configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long:  `View and initialize the roundtable configuration file.`,
}

// configShowCmd displays current configuration.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(c *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		configPath, _ := config.ConfigPath()

		out := c.OutOrStdout()
		fmt.Fprintln(out, "Current configuration:")
		fmt.Fprintf(out, "  Config file:       %s\n", configPath)
		fmt.Fprintf(out, "  Primary endpoint:  %s\n", cfg.Endpoints.Primary)
		fmt.Fprintf(out, "  Fallback endpoint: %s\n", cfg.Endpoints.Fallback)
		fmt.Fprintf(out, "  Request timeout:   %s\n", cfg.Endpoints.Timeout)
		fmt.Fprintf(out, "  Facilitator:       %s\n", cfg.Facilitator.Name)
		if cfg.Facilitator.Organization != "" {
			fmt.Fprintf(out, "  Organization:      %s\n", cfg.Facilitator.Organization)
		}
		fmt.Fprintf(out, "  Agenda questions:  %d\n", len(cfg.Agenda))
		fmt.Fprintf(out, "  Redis:             %s\n", valueOrDefault(cfg.Snapshot.RedisAddr, "(not configured)"))
		fmt.Fprintf(out, "  Archive:           %s\n", archiveStatus(cfg.Archive.DSN))
		fmt.Fprintf(out, "  Output format:     %s\n", cfg.OutputFormat)
		fmt.Fprintf(out, "  Debug:             %t\n", cfg.Debug)
		return nil
	},
}

// configInitCmd initializes configuration.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long:  `Create a new configuration file with default values if one doesn't exist.`,
	RunE: func(c *cobra.Command, args []string) error {
		configPath, err := config.ConfigPath()
		if err != nil {
			return fmt.Errorf("getting config path: %w", err)
		}

		if _, err := os.Stat(configPath); err == nil {
			fmt.Printf("Configuration file already exists: %s\n", configPath)
			fmt.Println("Use 'roundtable config show' to view current settings.")
			return nil
		}

		if err := config.DefaultConfig().Save(); err != nil {
			return fmt.Errorf("saving configuration: %w", err)
		}
		fmt.Printf("Created configuration file: %s\n", configPath)
		fmt.Println("\nEdit it to set the facilitator name, agenda questions, and Redis address.")
		return nil
	},
}

// completionCmd generates shell completion scripts.
var completionCmd = &cobra.Command{
	Use:                   "completion [bash|zsh|fish|powershell]",
	Short:                 "Generate shell completion scripts",
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(c *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		}
		return nil
	},
}

func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

func archiveStatus(dsn string) string {
	if dsn == "" {
		return "(not configured)"
	}
	return "configured"
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "", "output format: text, json")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddGroup(
		&cobra.Group{ID: "session", Title: "Sessions:"},
		&cobra.Group{ID: "analysis", Title: "Analysis:"},
		&cobra.Group{ID: "setup", Title: "Setup:"},
	)

	sessionCmd := cmd.NewSessionCommand(nil)
	sessionCmd.GroupID = "session"
	rootCmd.AddCommand(sessionCmd)

	transcriptCmd := cmd.NewTranscriptCommand(nil)
	transcriptCmd.GroupID = "session"
	rootCmd.AddCommand(transcriptCmd)

	recoverCmd := cmd.NewRecoverCommand(nil)
	recoverCmd.GroupID = "session"
	rootCmd.AddCommand(recoverCmd)

	insightCmd := cmd.NewInsightCommand(nil)
	insightCmd.GroupID = "analysis"
	rootCmd.AddCommand(insightCmd)

	archiveCmd := cmd.NewArchiveCommand(nil)
	archiveCmd.GroupID = "analysis"
	rootCmd.AddCommand(archiveCmd)

	authCmd := cmd.NewAuthCommand(nil)
	authCmd.GroupID = "setup"
	rootCmd.AddCommand(authCmd)

	configCmd.GroupID = "setup"
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)

	completionCmd.GroupID = "setup"
	rootCmd.AddCommand(completionCmd)

	versionCmd.GroupID = "setup"
	versionCmd.Flags().BoolVar(&versionOutputJSON, "output-json", false, "Output as JSON")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
