package providers

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/petal-labs/conduit/core"
)

// Settings is the backend-independent configuration handed to a factory.
// Zero values mean "use the backend default".
type Settings struct {
	Keys       []string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
	Retry      *core.RetryPolicy
}

// ProviderFactory builds a backend from settings.
type ProviderFactory func(s Settings) (core.Provider, error)

// factories maps backend names to constructors. Backends add themselves
// from init, so a blank import is enough to make one available:
//
//	import _ "github.com/petal-labs/conduit/providers/groq"
var factories = struct {
	sync.RWMutex
	byName map[string]ProviderFactory
}{byName: map[string]ProviderFactory{}}

// Register makes a backend available under name, replacing any earlier
// registration.
func Register(name string, factory ProviderFactory) {
	factories.Lock()
	factories.byName[name] = factory
	factories.Unlock()
}

// Get returns the factory for name, or nil.
func Get(name string) ProviderFactory {
	factories.RLock()
	defer factories.RUnlock()
	return factories.byName[name]
}

// IsRegistered reports whether a backend named name is available.
func IsRegistered(name string) bool {
	return Get(name) != nil
}

// Create builds the named backend. Blank keys are dropped before the
// factory sees them.
func Create(name string, s Settings) (core.Provider, error) {
	factory := Get(name)
	if factory == nil {
		return nil, fmt.Errorf("unknown provider %q (available: %s)", name, strings.Join(List(), ", "))
	}
	s.Keys = slices.DeleteFunc(slices.Clone(s.Keys), func(k string) bool {
		return strings.TrimSpace(k) == ""
	})
	return factory(s)
}

// List returns registered backend names, sorted.
func List() []string {
	factories.RLock()
	names := make([]string, 0, len(factories.byName))
	for name := range factories.byName {
		names = append(names, name)
	}
	factories.RUnlock()
	slices.Sort(names)
	return names
}
