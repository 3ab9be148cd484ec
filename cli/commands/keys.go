package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/petal-labs/conduit/cli/config"
)

func (a *App) newKeysCommand() *cobra.Command {
	keys := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
		Long: `Manage API keys in the encrypted keystore (~/.conduit/keys.enc).

A value may hold several comma-separated keys; requests rotate across them
when a backend rate limits. Use the name "` + config.SearchCredential + `" for the search tools.`,
	}
	keys.AddCommand(&cobra.Command{
		Use:   "set <provider>",
		Short: "Store the API key(s) for a provider",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runKeysSet,
	})
	keys.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored key names (never values)",
		Args:  cobra.NoArgs,
		RunE:  a.runKeysList,
	})
	keys.AddCommand(&cobra.Command{
		Use:   "delete <provider>",
		Short: "Delete the stored key(s) for a provider",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runKeysDelete,
	})
	return keys
}

// readSecret reads one line from stdin without echo when it is a terminal.
func (a *App) readSecret(prompt string) (string, error) {
	fmt.Fprint(a.stderr, prompt)
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *App) runKeysSet(cmd *cobra.Command, args []string) error {
	name := args[0]
	value, err := a.readSecret(fmt.Sprintf("Enter API key(s) for %s: ", name))
	if err != nil {
		return fmt.Errorf("failed to read key: %w", err)
	}
	if value == "" {
		return fmt.Errorf("API key cannot be empty")
	}

	ks, err := a.newKeystore()
	if err != nil {
		return fmt.Errorf("failed to open keystore: %w", err)
	}
	if err := ks.Set(name, value); err != nil {
		return fmt.Errorf("failed to store key: %w", err)
	}

	n := len(strings.Split(value, ","))
	fmt.Fprintf(a.stdout, "Stored %d key(s) for %s.\n", n, name)
	return nil
}

func (a *App) runKeysList(cmd *cobra.Command, args []string) error {
	ks, err := a.newKeystore()
	if err != nil {
		return fmt.Errorf("failed to open keystore: %w", err)
	}
	names, err := ks.List()
	if err != nil {
		return fmt.Errorf("failed to list keys: %w", err)
	}

	if a.jsonOutput {
		if names == nil {
			names = []string{}
		}
		return a.writeJSON(a.stdout, map[string]any{"keys": names})
	}
	if len(names) == 0 {
		fmt.Fprintln(a.stdout, "No API keys stored.")
		return nil
	}
	fmt.Fprintln(a.stdout, "Stored keys:")
	for _, name := range names {
		fmt.Fprintf(a.stdout, "  - %s\n", name)
	}
	return nil
}

func (a *App) runKeysDelete(cmd *cobra.Command, args []string) error {
	ks, err := a.newKeystore()
	if err != nil {
		return fmt.Errorf("failed to open keystore: %w", err)
	}
	if err := ks.Delete(args[0]); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	fmt.Fprintf(a.stdout, "Deleted key for %s.\n", args[0])
	return nil
}
