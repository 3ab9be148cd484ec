package core

import (
	"strings"
	"sync/atomic"
)

// KeyRotator hands out credentials round-robin. It is safe for concurrent use.
type KeyRotator struct {
	keys   []Secret
	cursor atomic.Uint64
}

// NewKeyRotator builds a rotator over keys, ignoring blank entries.
// It returns ErrNoCredentials when nothing usable remains.
func NewKeyRotator(keys ...string) (*KeyRotator, error) {
	r := &KeyRotator{}
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			r.keys = append(r.keys, NewSecret(k))
		}
	}
	if len(r.keys) == 0 {
		return nil, ErrNoCredentials
	}
	return r, nil
}

// Len returns the number of credentials.
func (r *KeyRotator) Len() int {
	return len(r.keys)
}

// Next returns the next credential in rotation, wrapping around.
func (r *KeyRotator) Next() Secret {
	return r.keys[r.advance()]
}

// advance reserves a rotation slot and returns its index.
func (r *KeyRotator) advance() int {
	n := r.cursor.Add(1) - 1
	return int(n % uint64(len(r.keys)))
}

// at returns the credential offset positions after start.
func (r *KeyRotator) at(start, offset int) Secret {
	return r.keys[(start+offset)%len(r.keys)]
}
