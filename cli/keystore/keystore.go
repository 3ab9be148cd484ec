// Package keystore provides encrypted storage for API keys.
package keystore

import (
	"path/filepath"

	"github.com/petal-labs/conduit/cli/config"
)

// Keystore maps credential names ("groq", "search", ...) to stored values.
// A value may hold several comma-separated keys for rotation. Get reports
// a missing name with *ErrKeyNotFound; List is sorted.
type Keystore interface {
	Set(name, value string) error
	Get(name string) (string, error)
	Delete(name string) error
	List() ([]string, error)
}

// ErrKeyNotFound is returned when a requested key does not exist.
type ErrKeyNotFound struct {
	Name string
}

func (e *ErrKeyNotFound) Error() string {
	return "key not found: " + e.Name
}

// NotFound lets callers outside this package recognize the error.
func (e *ErrKeyNotFound) NotFound() bool { return true }

// DefaultKeystorePath returns ~/.conduit/keys.enc.
func DefaultKeystorePath() string {
	return filepath.Join(config.Dir(), "keys.enc")
}

// NewKeystore opens the default keystore with the default master key source.
func NewKeystore() (Keystore, error) {
	return NewFileKeystore(DefaultKeystorePath(), DefaultMasterKeySource())
}
