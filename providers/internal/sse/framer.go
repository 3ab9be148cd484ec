// Package sse frames server-sent event streams into JSON payloads.
//
// Backends deliver "data:" lines split at arbitrary byte boundaries. The
// Framer buffers the trailing partial line across reads so every payload is
// parsed exactly once, skips lines that are not complete JSON, and ignores
// the [DONE] end-of-stream sentinel.
package sse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
)

const (
	// DataPrefix marks lines that carry a payload.
	DataPrefix = "data:"
	// DoneSentinel is the payload some backends send after the last chunk.
	DoneSentinel = "[DONE]"

	readSize = 32 * 1024
)

// Handler receives one JSON payload. Returning an error stops the stream.
type Handler func(payload json.RawMessage) error

// Framer splits a byte stream into data payloads.
type Framer struct {
	buf     []byte
	skipped int
}

// NewFramer returns an empty framer.
func NewFramer() *Framer {
	return &Framer{}
}

// Push appends chunk and hands every completed payload to fn, in order.
// The bytes after the last newline stay buffered for the next Push.
func (f *Framer) Push(chunk []byte, fn Handler) error {
	f.buf = append(f.buf, chunk...)
	for {
		i := bytes.IndexByte(f.buf, '\n')
		if i < 0 {
			return nil
		}
		line := f.buf[:i]
		f.buf = f.buf[i+1:]
		if err := f.line(line, fn); err != nil {
			return err
		}
	}
}

// Flush processes a final unterminated line, if any.
func (f *Framer) Flush(fn Handler) error {
	if len(f.buf) == 0 {
		return nil
	}
	line := f.buf
	f.buf = nil
	return f.line(line, fn)
}

// Skipped reports how many data lines were dropped as malformed.
func (f *Framer) Skipped() int {
	return f.skipped
}

func (f *Framer) line(line []byte, fn Handler) error {
	line = bytes.TrimSpace(line)
	if !bytes.HasPrefix(line, []byte(DataPrefix)) {
		return nil
	}
	payload := bytes.TrimSpace(line[len(DataPrefix):])
	if len(payload) == 0 || string(payload) == DoneSentinel {
		return nil
	}
	if !json.Valid(payload) {
		f.skipped++
		return nil
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return fn(out)
}

// Stream reads body to the end and frames it. Cancellation of ctx surfaces as
// an abort; other read failures are returned as they are.
func Stream(ctx context.Context, body io.Reader, fn Handler) (*Framer, error) {
	f := NewFramer()
	buf := make([]byte, readSize)
	for {
		if err := ctx.Err(); err != nil {
			return f, abort(err)
		}
		n, err := body.Read(buf)
		if n > 0 {
			if perr := f.Push(buf[:n], fn); perr != nil {
				return f, perr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return f, f.Flush(fn)
			}
			if ctx.Err() != nil {
				return f, abort(ctx.Err())
			}
			return f, err
		}
	}
}
