package config

import (
	"errors"
	"os"
	"strings"
)

// SecretStore is the part of the keystore credential lookup needs.
type SecretStore interface {
	Get(name string) (string, error)
}

// Resolver finds the credentials of a provider.
type Resolver struct {
	Config *Config
	Store  SecretStore         // may be nil
	Getenv func(string) string // defaults to os.Getenv
}

// EnvVar returns the variable holding a provider's key list, e.g.
// GEMINI_API_KEYS.
func EnvVar(provider string) string {
	name := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(provider))
	return name + "_API_KEYS"
}

// Keys returns the credentials of provider, looked up in order in the config
// file, in <PROVIDER>_API_KEYS (or the singular <PROVIDER>_API_KEY), and in
// the keystore. Lists are comma separated. An empty result is not an error.
func (r Resolver) Keys(provider string) ([]string, error) {
	var pc *ProviderConfig
	if r.Config != nil {
		pc = r.Config.GetProvider(provider)
	}
	if pc != nil {
		if keys := splitKeys(strings.Join(pc.APIKeys, ",")); len(keys) > 0 {
			return keys, nil
		}
	}

	getenv := r.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	plural := EnvVar(provider)
	if keys := splitKeys(getenv(plural)); len(keys) > 0 {
		return keys, nil
	}
	if keys := splitKeys(getenv(strings.TrimSuffix(plural, "S"))); len(keys) > 0 {
		return keys, nil
	}

	if r.Store == nil {
		return nil, nil
	}
	ref := provider
	if pc != nil && pc.APIKeyRef != "" {
		ref = pc.APIKeyRef
	}
	v, err := r.Store.Get(ref)
	if err != nil {
		var nf interface{ NotFound() bool }
		if errors.As(err, &nf) && nf.NotFound() {
			return nil, nil
		}
		return nil, err
	}
	return splitKeys(v), nil
}

func splitKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
