package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/petal-labs/conduit/cli/config"
)

type initFlags struct {
	provider string
	force    bool
}

func (a *App) newInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config and .env file",
		Long: `Write a starter config.yaml (default ~/.conduit/config.yaml) and a
.env template beside it.

Example:
  conduit init
  conduit init --provider groq
  conduit init --config ./conduit.yaml --force`,
		Args: cobra.NoArgs,
		// A broken config must not stop init from replacing it.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE:              a.runInit,
	}
	cmd.Flags().StringVar(&a.init.provider, "provider", "gemini", "provider whose model becomes the default")
	cmd.Flags().BoolVar(&a.init.force, "force", false, "overwrite existing files")
	return cmd
}

func (a *App) runInit(cmd *cobra.Command, args []string) error {
	names := a.providerNames()
	if !contains(names, a.init.provider) {
		return fmt.Errorf("unknown provider %q (available: %s)", a.init.provider, strings.Join(names, ", "))
	}

	cfgPath := a.configPath()
	envPath := filepath.Join(filepath.Dir(cfgPath), ".env")
	if !a.init.force {
		for _, p := range []string{cfgPath, envPath} {
			if _, err := os.Stat(p); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", p)
			}
		}
	}
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data := templateData{Provider: a.init.provider, Providers: names}
	if err := generateFile(cfgPath, configTemplate, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", cfgPath, err)
	}
	if err := generateFile(envPath, envTemplate, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", envPath, err)
	}

	fmt.Fprintf(a.stdout, "Wrote %s\nWrote %s\n\n", cfgPath, envPath)
	fmt.Fprintln(a.stdout, "Next steps:")
	fmt.Fprintf(a.stdout, "  add keys to %s (or run 'conduit keys set %s')\n", envPath, a.init.provider)
	fmt.Fprintln(a.stdout, `  conduit chat "Hello"`)
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type templateData struct {
	Provider  string
	Providers []string
}

var templateFuncs = template.FuncMap{
	"envVar":       config.EnvVar,
	"defaultModel": defaultModel,
}

func generateFile(path, tmplContent string, data templateData, perm os.FileMode) error {
	tmpl, err := template.New(filepath.Base(path)).Funcs(templateFuncs).Parse(tmplContent)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer f.Close()

	return tmpl.Execute(f, data)
}

func defaultModel(provider string) string {
	switch provider {
	case "gemini":
		return "gemini-2.5-flash"
	case "groq":
		return "llama-3.3-70b-versatile"
	case "openrouter":
		return "openai/gpt-4o-mini"
	case "cerebras":
		return "llama-3.3-70b"
	default:
		return ""
	}
}

// Templates

var configTemplate = `# conduit configuration
default_model: {{.Provider | defaultModel}}

# Keys are read from api_keys, then <PROVIDER>_API_KEYS, then the keystore.
providers:
{{- range .Providers}}
  {{.}}: {}
{{- end}}

# Pin a model to one provider when several serve it.
# aliases:
#   openai/gpt-oss-120b: groq

engine:
  max_iterations: 5
  tool_timeout: 15s

tools:
  enabled: false
  search_mode: auto
  rate_limit: 5
  cache_ttl: 10m
`

var envTemplate = `# Comma-separated lists rotate when a backend rate limits.
{{- range .Providers}}
{{envVar .}}=
{{- end}}
{{envVar "search"}}=
`
