// Package commands implements the conduit CLI with Cobra.
package commands

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/petal-labs/conduit/cli/config"
	"github.com/petal-labs/conduit/cli/keystore"
	"github.com/petal-labs/conduit/core"
	"github.com/petal-labs/conduit/providers"
)

// ConfigLoader reads the YAML config at path.
type ConfigLoader func(path string) (*config.Config, error)

// ProviderFactory builds a backend by registry name.
type ProviderFactory func(name string, s providers.Settings) (core.Provider, error)

// KeystoreFactory opens the keystore.
type KeystoreFactory func() (keystore.Keystore, error)

// AppOption swaps one of App's collaborators, mostly for tests. Nil
// arguments keep the default.
type AppOption func(*App)

// App wires cobra commands to config, credentials and the engine.
type App struct {
	root *cobra.Command

	loadConfig     ConfigLoader
	createProvider ProviderFactory
	providerNames  func() []string
	newKeystore    KeystoreFactory
	getenv         func(string) string
	stdin          io.Reader
	stdout         io.Writer
	stderr         io.Writer
	logger         *slog.Logger

	// global flags
	cfgFile    string
	envFile    string
	model      string
	jsonOutput bool
	verbose    bool

	cfg  *config.Config
	chat chatFlags
	init initFlags
}

func set[T any](dst *T, v T, ok bool) {
	if ok {
		*dst = v
	}
}

func WithConfigLoader(loader ConfigLoader) AppOption {
	return func(a *App) { set(&a.loadConfig, loader, loader != nil) }
}

// WithProviders replaces the provider registry with names built by factory.
func WithProviders(names []string, factory ProviderFactory) AppOption {
	return func(a *App) {
		set(&a.createProvider, factory, factory != nil)
		set(&a.providerNames, func() []string { return names }, factory != nil)
	}
}

func WithKeystoreFactory(factory KeystoreFactory) AppOption {
	return func(a *App) { set(&a.newKeystore, factory, factory != nil) }
}

// WithEnv replaces os.Getenv for credential lookup.
func WithEnv(getenv func(string) string) AppOption {
	return func(a *App) { set(&a.getenv, getenv, getenv != nil) }
}

func WithIO(stdin io.Reader, stdout, stderr io.Writer) AppOption {
	return func(a *App) {
		set(&a.stdin, stdin, stdin != nil)
		set(&a.stdout, stdout, stdout != nil)
		set(&a.stderr, stderr, stderr != nil)
	}
}

// NewApp builds the command tree over the real registry, keystore and
// process streams, adjusted by opts.
func NewApp(opts ...AppOption) *App {
	a := &App{
		loadConfig:     config.LoadConfig,
		createProvider: providers.Create,
		providerNames:  providers.List,
		newKeystore:    keystore.NewKeystore,
		getenv:         os.Getenv,
		stdin:          os.Stdin,
		stdout:         os.Stdout,
		stderr:         os.Stderr,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.root = a.newRootCommand()
	return a
}

func (a *App) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "conduit",
		Short: "Stream chat turns through hosted LLM backends",
		Long: `conduit drives one chat request through gemini, groq, openrouter or cerebras,
streaming reasoning, text and tool calls as they happen.

Keys come from the config file, <PROVIDER>_API_KEYS, a .env file or the keystore.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ~/.conduit/config.yaml)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file with <PROVIDER>_API_KEYS variables")
	root.PersistentFlags().StringVar(&a.model, "model", "", "model ID (e.g. gemini-2.5-flash)")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "emit JSON output")
	root.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "enable debug logging")

	root.AddCommand(
		a.newChatCommand(),
		a.newKeysCommand(),
		a.newModelsCommand(),
		a.newInitCommand(),
		a.newVersionCommand(),
	)
	return root
}

// Execute runs the root command.
func (a *App) Execute() error {
	return a.root.Execute()
}

func (a *App) configPath() string {
	if a.cfgFile != "" {
		return a.cfgFile
	}
	return config.DefaultConfigPath()
}

func (a *App) initConfig() error {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))

	// The working directory's .env first, then the one beside the config.
	envFiles := []string{filepath.Join(filepath.Dir(a.configPath()), ".env")}
	if a.envFile != "" {
		envFiles = append([]string{a.envFile}, envFiles...)
	}
	if err := config.LoadEnv(envFiles...); err != nil {
		return err
	}

	cfg, err := a.loadConfig(a.configPath())
	if err != nil {
		return err
	}
	a.cfg = cfg
	if a.model == "" && cfg.DefaultModel != "" {
		a.model = cfg.DefaultModel
	}
	return nil
}

// Execute runs a default app.
func Execute() error {
	return NewApp().Execute()
}
