package commands

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/petal-labs/conduit/cli/config"
	"github.com/petal-labs/conduit/core"
	"github.com/petal-labs/conduit/providers"
	_ "github.com/petal-labs/conduit/providers/cerebras"
	_ "github.com/petal-labs/conduit/providers/gemini"
	_ "github.com/petal-labs/conduit/providers/groq"
	_ "github.com/petal-labs/conduit/providers/openrouter"
	"github.com/petal-labs/conduit/telemetry/otel"
	"github.com/petal-labs/conduit/tools"
	"github.com/petal-labs/conduit/tools/search"
)

// credentials returns the credential resolver for the loaded config. A
// keystore that cannot be opened only disables the keystore lookup.
func (a *App) credentials() config.Resolver {
	r := config.Resolver{Config: a.cfg, Getenv: a.getenv}
	if ks, err := a.newKeystore(); err == nil {
		r.Store = ks
	} else if a.logger != nil {
		a.logger.Debug("keystore unavailable", "error", err)
	}
	return r
}

func (a *App) log() *slog.Logger {
	if a.logger == nil {
		return slog.Default()
	}
	return a.logger
}

// buildRouter creates every registered provider that has credentials.
// Providers without keys are skipped; the returned list names them.
func (a *App) buildRouter(creds config.Resolver) (*providers.Router, []string, error) {
	router := providers.NewRouter()
	var missing []string
	for _, name := range a.providerNames() {
		keys, err := creds.Keys(name)
		if err != nil {
			return nil, nil, fmt.Errorf("credentials for %s: %w", name, err)
		}
		if len(keys) == 0 {
			missing = append(missing, name)
			continue
		}
		s := providers.Settings{
			Keys:       keys,
			HTTPClient: http.DefaultClient,
			Logger:     a.log().With("provider", name),
		}
		if a.cfg != nil {
			if pc := a.cfg.GetProvider(name); pc != nil {
				s.BaseURL = pc.BaseURL
			}
		}
		p, err := a.createProvider(name, s)
		if err != nil {
			return nil, nil, fmt.Errorf("create %s: %w", name, err)
		}
		router.Add(p)
	}
	if a.cfg != nil {
		for model, provider := range a.cfg.Aliases {
			router.Alias(core.ModelID(model), provider)
		}
	}
	return router, missing, nil
}

// buildTools assembles the search tool registry. It returns nil when the
// search credential is missing.
func (a *App) buildTools(creds config.Resolver, hook *otel.Hook) (*tools.Registry, error) {
	keys, err := creds.Keys(config.SearchCredential)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	var tc config.ToolsConfig
	if a.cfg != nil {
		tc = a.cfg.Tools
	}
	opts := []search.Option{search.WithLogger(a.log().With("component", "search"))}
	if tc.BaseURL != "" {
		opts = append(opts, search.WithBaseURL(tc.BaseURL))
	}
	client, err := search.New(keys, opts...)
	if err != nil {
		return nil, err
	}

	// Outermost first: metrics see every call, the cache answers before
	// the breaker and the limiter are consulted.
	mws := []tools.Middleware{
		tools.WithMetrics(hook),
		tools.WithLogging(a.log()),
	}
	if tc.CacheTTL > 0 {
		mws = append(mws, tools.WithCache(tools.NewMemoryCache(0), tc.CacheTTL))
	}
	mws = append(mws, tools.WithCircuitBreaker(tools.DefaultCircuitBreakerConfig()))
	if tc.RateLimit > 0 {
		mws = append(mws, tools.WithRateLimit(tc.RateLimit))
	}
	mws = append(mws, tools.WithRetry(tools.DefaultRetryConfig()))

	registry := tools.NewRegistry(tools.WithRegistryMiddleware(mws...))
	if err := search.Register(registry, client); err != nil {
		return nil, err
	}
	return registry, nil
}

// buildEngine wires providers, tools and telemetry into an engine.
func (a *App) buildEngine(withTools bool) (*core.Engine, *providers.Router, error) {
	creds := a.credentials()
	router, missing, err := a.buildRouter(creds)
	if err != nil {
		return nil, nil, err
	}
	if len(router.Providers()) == 0 {
		return nil, nil, fmt.Errorf("%w: set one of %s", core.ErrNoCredentials, envVars(missing))
	}

	hook := otel.NewHook()
	opts := []core.EngineOption{
		core.WithLogger(a.log()),
		core.WithTelemetry(hook),
	}
	if a.cfg != nil {
		if n := a.cfg.Engine.MaxIterations; n > 0 {
			opts = append(opts, core.WithMaxIterations(n))
		}
		if d := a.cfg.Engine.ToolTimeout; d > 0 {
			opts = append(opts, core.WithToolTimeout(d))
		}
	}

	var executor core.ToolExecutor
	if withTools {
		registry, err := a.buildTools(creds, hook)
		if err != nil {
			return nil, nil, fmt.Errorf("search tools: %w", err)
		}
		if registry == nil {
			a.log().Warn("tools requested but no search key found", "env", config.EnvVar(config.SearchCredential))
		} else {
			executor = registry
		}
	}
	return core.NewEngine(router, executor, opts...), router, nil
}

func envVars(names []string) string {
	if len(names) == 0 {
		return "a provider key"
	}
	vars := make([]string, len(names))
	for i, n := range names {
		vars[i] = config.EnvVar(n)
	}
	return strings.Join(vars, ", ")
}
