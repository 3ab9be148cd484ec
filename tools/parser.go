package tools

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/petal-labs/conduit/core"
)

// ParseArgs decodes a tool's JSON arguments into T. Empty or null arguments
// yield the zero value. Decode failures match core.ErrParse.
//
// Example:
//
//	type searchArgs struct {
//	    Query string `json:"query"`
//	}
//
//	args, err := tools.ParseArgs[searchArgs](raw)
func ParseArgs[T any](args json.RawMessage) (*T, error) {
	var result T
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return &result, nil
	}
	if err := json.Unmarshal(trimmed, &result); err != nil {
		return nil, fmt.Errorf("%w: tool arguments: %v", core.ErrParse, err)
	}
	return &result, nil
}
