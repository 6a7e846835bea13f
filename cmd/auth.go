package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/otherjamesbrown/roundtable/credentials"
)

var authAPIKey string

// NewAuthCommand creates the auth command group.
func NewAuthCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the analysis API key",
		Long: `Manage the API key used to authenticate analysis requests.

The key is stored in the system keyring. The ROUNDTABLE_API_KEY
environment variable, when set, takes precedence over the keyring.

Examples:
  roundtable auth set-key
  roundtable auth set-key --api-key rt-abc123...
  roundtable auth status`,
	}

	cmd.AddCommand(newAuthSetKeyCommand(deps))
	cmd.AddCommand(newAuthStatusCommand(deps))

	return cmd
}

func newAuthSetKeyCommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-key",
		Short: "Store the analysis API key",
		Long: `Store the analysis API key in the system keyring.

Without --api-key, the key is read from an interactive hidden prompt.

Examples:
  roundtable auth set-key
  roundtable auth set-key --api-key rt-abc123...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(authAPIKey)
			if key == "" {
				prompted, err := promptForAPIKey()
				if err != nil {
					return fmt.Errorf("reading API key: %w", err)
				}
				key = prompted
			}
			if key == "" {
				return fmt.Errorf("no API key provided")
			}

			store := credentials.NewKeyringStore()
			if err := store.SetAPIKey(key); err != nil {
				return fmt.Errorf("storing API key: %w", err)
			}

			out := outWriter(cmd, deps)
			fmt.Fprintln(out, "API key stored.")
			fmt.Fprintf(out, "  Key:   %s\n", maskKey(key))
			fmt.Fprintf(out, "  Store: %s\n", store.Description())
			return nil
		},
	}

	cmd.Flags().StringVar(&authAPIKey, "api-key", "", "API key (omit to be prompted)")
	return cmd
}

// promptForAPIKey reads the key from a hidden terminal prompt, falling back
// to plain stdin when no terminal is attached.
func promptForAPIKey() (string, error) {
	fmt.Print("Analysis API key: ")
	keyBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err == nil {
		return strings.TrimSpace(string(keyBytes)), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func newAuthStatusCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show API key status",
		Long: `Show where the analysis API key comes from and its masked value.

Examples:
  roundtable auth status`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outWriter(cmd, deps)
			store := credentials.DefaultStore()

			key, err := store.APIKey()
			if errors.Is(err, credentials.ErrNoAPIKey) {
				fmt.Fprintln(out, "No API key configured.")
				fmt.Fprintln(out, "Run 'roundtable auth set-key' to store one.")
				return nil
			}
			if err != nil {
				return fmt.Errorf("reading API key: %w", err)
			}

			fmt.Fprintf(out, "API key: %s\n", maskKey(key))
			fmt.Fprintf(out, "Source:  %s\n", store.Description())
			return nil
		},
	}
}
