package cerebras

import (
	"github.com/petal-labs/conduit/core"
	"github.com/petal-labs/conduit/providers"
)

func init() {
	providers.Register("cerebras", func(s providers.Settings) (core.Provider, error) {
		return New(s.Keys, optionsFrom(s)...)
	})
}
