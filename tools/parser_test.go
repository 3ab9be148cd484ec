package tools_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/petal-labs/conduit/core"
	"github.com/petal-labs/conduit/tools"
)

type searchArgs struct {
	Query      string   `json:"query"`
	NumResults int      `json:"num_results"`
	Domains    []string `json:"domains"`
}

func TestParseArgsSuccess(t *testing.T) {
	args, err := tools.ParseArgs[searchArgs](json.RawMessage(`{"query": "go iterators", "num_results": 3, "domains": ["go.dev"]}`))
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}
	if args.Query != "go iterators" || args.NumResults != 3 || len(args.Domains) != 1 {
		t.Errorf("args = %+v", args)
	}
}

func TestParseArgsEmptyAndNull(t *testing.T) {
	for _, raw := range []string{"", "null", "  "} {
		args, err := tools.ParseArgs[searchArgs](json.RawMessage(raw))
		if err != nil {
			t.Fatalf("ParseArgs(%q) error = %v", raw, err)
		}
		if args.Query != "" {
			t.Errorf("ParseArgs(%q) = %+v, want zero value", raw, args)
		}
	}
}

func TestParseArgsErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"invalid json", `{invalid}`},
		{"type mismatch", `{"num_results": "three"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tools.ParseArgs[searchArgs](json.RawMessage(tt.raw))
			if !errors.Is(err, core.ErrParse) {
				t.Errorf("error = %v, want ErrParse", err)
			}
		})
	}
}

func TestParseArgsExtraFields(t *testing.T) {
	args, err := tools.ParseArgs[searchArgs](json.RawMessage(`{"query": "x", "unknown": true}`))
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}
	if args.Query != "x" {
		t.Errorf("Query = %q", args.Query)
	}
}
