// Package thinking separates inline reasoning blocks from visible text.
//
// Some backends interleave reasoning with the answer, wrapped in marker tags
// such as <think>…</think>. Markers can be split across deltas, so the
// Segmenter holds back the few trailing bytes that could be the start of a
// marker until the next delta settles them.
package thinking

import (
	"strings"
	"unicode/utf8"
)

// Kind classifies a Segment.
type Kind int

const (
	KindText Kind = iota
	KindThinking
	KindThinkingDone
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindThinking:
		return "thinking"
	case KindThinkingDone:
		return "thinking_done"
	}
	return "unknown"
}

// Segment is one classified span of output.
type Segment struct {
	Kind    Kind
	Content string
}

// Markers delimit a reasoning block.
type Markers struct {
	Open  string
	Close string
}

var (
	ThinkTags    = Markers{Open: "<think>", Close: "</think>"}
	ThinkingTags = Markers{Open: "<thinking>", Close: "</thinking>"}
)

// Segmenter is a two-state machine over a stream of text deltas.
// It is not safe for concurrent use; each stream owns one.
type Segmenter struct {
	m       Markers
	inside  bool
	pending string

	sawThinking bool
	doneSent    bool
}

// New returns a segmenter for m.
func New(m Markers) *Segmenter {
	return &Segmenter{m: m}
}

// Inside reports whether the segmenter is within a reasoning block.
func (s *Segmenter) Inside() bool {
	return s.inside
}

// Push consumes one delta and returns the segments it settles.
func (s *Segmenter) Push(delta string) []Segment {
	s.pending += delta
	var out []Segment
	for {
		if !s.inside {
			i := strings.Index(s.pending, s.m.Open)
			if i < 0 {
				return s.release(out, KindText, len(s.m.Open))
			}
			out = s.appendContent(out, KindText, s.pending[:i])
			s.pending = s.pending[i+len(s.m.Open):]
			s.inside = true
			continue
		}
		i := strings.Index(s.pending, s.m.Close)
		if i < 0 {
			return s.release(out, KindThinking, len(s.m.Close))
		}
		out = s.appendContent(out, KindThinking, s.pending[:i])
		s.pending = s.pending[i+len(s.m.Close):]
		s.inside = false
		out = s.appendDone(out)
	}
}

// Settle releases held-back visible text, for when something other than
// text (a tool call) arrives mid-stream. Inside a reasoning block it does
// nothing: the block stays open and its pending bytes stay pending.
func (s *Segmenter) Settle() []Segment {
	if s.inside {
		return nil
	}
	out := s.appendContent(nil, KindText, s.pending)
	s.pending = ""
	return out
}

// Flush emits whatever is still held back. If the stream ended inside a
// reasoning block, the block is closed with a forced thinking_done.
func (s *Segmenter) Flush() []Segment {
	var out []Segment
	kind := KindText
	if s.inside {
		kind = KindThinking
	}
	out = s.appendContent(out, kind, s.pending)
	s.pending = ""
	if s.inside {
		s.inside = false
		out = s.appendDone(out)
	}
	return out
}

// release emits all but the last markerLen-1 bytes of pending, which could
// be the beginning of a marker. The cut never splits a rune.
func (s *Segmenter) release(out []Segment, kind Kind, markerLen int) []Segment {
	cut := len(s.pending) - (markerLen - 1)
	if cut <= 0 {
		return out
	}
	for cut > 0 && !utf8.RuneStart(s.pending[cut]) {
		cut--
	}
	out = s.appendContent(out, kind, s.pending[:cut])
	s.pending = s.pending[cut:]
	return out
}

func (s *Segmenter) appendContent(out []Segment, kind Kind, content string) []Segment {
	if content == "" {
		return out
	}
	if kind == KindThinking {
		s.sawThinking = true
	}
	return append(out, Segment{Kind: kind, Content: content})
}

// appendDone emits thinking_done at most once per stream, and only after
// some reasoning content was seen.
func (s *Segmenter) appendDone(out []Segment) []Segment {
	if s.doneSent || !s.sawThinking {
		return out
	}
	s.doneSent = true
	return append(out, Segment{Kind: KindThinkingDone})
}
