package providers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/petal-labs/conduit/core"
)

// mockProvider implements core.Provider for testing.
type mockProvider struct {
	id     string
	models []core.ModelID
	prefix string
}

func (m *mockProvider) ID() string { return m.id }
func (m *mockProvider) Models() []core.ModelInfo {
	out := make([]core.ModelInfo, len(m.models))
	for i, id := range m.models {
		out[i] = core.ModelInfo{ID: id}
	}
	return out
}
func (m *mockProvider) Supports(core.Feature) bool        { return false }
func (m *mockProvider) CompactPolicy() core.CompactPolicy { return core.CompactPolicy{} }
func (m *mockProvider) StreamTurn(context.Context, *core.TurnRequest, core.Emit) (*core.TurnResult, error) {
	return &core.TurnResult{}, nil
}

// prefixProvider also claims IDs by prefix.
type prefixProvider struct{ mockProvider }

func (p *prefixProvider) Handles(model core.ModelID) bool {
	return strings.HasPrefix(string(model), p.prefix)
}

func TestRegister(t *testing.T) {
	Register("test-provider", func(Settings) (core.Provider, error) {
		return &mockProvider{id: "test-provider"}, nil
	})

	if !IsRegistered("test-provider") {
		t.Error("expected test-provider to be registered")
	}
	if IsRegistered("nonexistent") {
		t.Error("expected nonexistent to not be registered")
	}
}

func TestGet(t *testing.T) {
	var got Settings
	Register("get-test", func(s Settings) (core.Provider, error) {
		got = s
		return &mockProvider{id: "get-test"}, nil
	})

	factory := Get("get-test")
	if factory == nil {
		t.Fatal("expected factory to not be nil")
	}
	provider, err := factory(Settings{Keys: []string{"a", "b"}})
	if err != nil {
		t.Fatal(err)
	}
	if provider.ID() != "get-test" || len(got.Keys) != 2 {
		t.Errorf("provider = %q, keys = %v", provider.ID(), got.Keys)
	}

	if Get("nonexistent") != nil {
		t.Error("expected nil for nonexistent provider")
	}
}

func TestCreate(t *testing.T) {
	Register("create-fails", func(Settings) (core.Provider, error) {
		return nil, core.ErrNoCredentials
	})

	if _, err := Create("create-fails", Settings{}); !errors.Is(err, core.ErrNoCredentials) {
		t.Errorf("Create() error = %v", err)
	}
	if _, err := Create("missing", Settings{}); err == nil || !strings.Contains(err.Error(), "unknown provider") {
		t.Errorf("Create(missing) error = %v", err)
	}
}

func TestList(t *testing.T) {
	Register("zzz-list", func(Settings) (core.Provider, error) { return &mockProvider{id: "zzz-list"}, nil })
	Register("aaa-list", func(Settings) (core.Provider, error) { return &mockProvider{id: "aaa-list"}, nil })

	names := List()
	ia, iz := -1, -1
	for i, n := range names {
		switch n {
		case "aaa-list":
			ia = i
		case "zzz-list":
			iz = i
		}
	}
	if ia < 0 || iz < 0 || ia > iz {
		t.Errorf("List() = %v, want sorted and containing both", names)
	}
}

func TestCreateDropsBlankKeys(t *testing.T) {
	var got []string
	Register("blank-keys", func(s Settings) (core.Provider, error) {
		got = s.Keys
		return &mockProvider{id: "blank-keys"}, nil
	})

	keys := []string{"a", " ", "", "b"}
	if _, err := Create("blank-keys", Settings{Keys: keys}); err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, ",") != "a,b" {
		t.Errorf("keys = %q", got)
	}
	if len(keys) != 4 {
		t.Error("caller's slice was modified")
	}
}
