package core

import "log/slog"

const redacted = "[REDACTED]"

// Secret holds an API key. Every formatting path (fmt, JSON, YAML, slog)
// prints a placeholder; Expose is the single way to the raw value and belongs
// next to the request header it fills.
//
//	key := NewSecret("gsk_abc123")
//	fmt.Println(key) // [REDACTED]
//	key.Hint()       // "…c123"
type Secret struct {
	value string
}

func NewSecret(value string) Secret { return Secret{value: value} }

func (s Secret) String() string { return redacted }
func (s Secret) GoString() string { return "core.Secret{" + redacted + "}" }
func (s Secret) MarshalJSON() ([]byte, error) { return []byte(`"` + redacted + `"`), nil }
func (s Secret) MarshalText() ([]byte, error) { return []byte(redacted), nil }
func (s Secret) LogValue() slog.Value { return slog.StringValue(redacted) }
func (s Secret) Expose() string { return s.value }
func (s Secret) IsEmpty() bool { return s.value == "" }

// Hint returns the last four characters of the credential, enough to tell
// rotated keys apart in logs. Short secrets yield only the ellipsis.
func (s Secret) Hint() string {
	r := []rune(s.value)
	if len(r) <= 8 {
		return "…"
	}
	return "…" + string(r[len(r)-4:])
}
