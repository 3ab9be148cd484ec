package sse

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/petal-labs/conduit/core"
)

// SyntheticConfig shapes the pseudo-stream produced from a complete response.
type SyntheticConfig struct {
	ChunkSize int           // runes per chunk (default: 12)
	Delay     time.Duration // pause between chunks (default: 15ms, negative disables)
}

func (c SyntheticConfig) withDefaults() SyntheticConfig {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 12
	}
	if c.Delay < 0 {
		c.Delay = 0
	} else if c.Delay == 0 {
		c.Delay = 15 * time.Millisecond
	}
	return c
}

// Synthesize replays text in fixed-size rune slices with a delay between
// them, for backends that only answer in one piece. Slices never split a
// rune, and their concatenation is exactly text, invalid bytes included.
func Synthesize(ctx context.Context, text string, cfg SyntheticConfig, fn func(chunk string) error) error {
	cfg = cfg.withDefaults()
	for start := 0; start < len(text); {
		if start > 0 && cfg.Delay > 0 {
			t := time.NewTimer(cfg.Delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return abort(ctx.Err())
			case <-t.C:
			}
		}
		if err := ctx.Err(); err != nil {
			return abort(err)
		}
		end := start
		for n := 0; n < cfg.ChunkSize && end < len(text); n++ {
			_, size := utf8.DecodeRuneInString(text[end:])
			end += size
		}
		if err := fn(text[start:end]); err != nil {
			return err
		}
		start = end
	}
	return nil
}

func abort(err error) error {
	return core.Abort(err)
}
