package keystore

import (
	"crypto/sha256"
	"errors"
	"os"
)

// MasterKeyEnv holds the passphrase the keystore is encrypted with.
const MasterKeyEnv = "CONDUIT_MASTER_KEY"

// MasterKeySource supplies the secret the file encryption key is derived from.
type MasterKeySource interface {
	MasterKey() ([]byte, error)
}

// EnvMasterKey reads the master key from an environment variable, falling
// back to Fallback when it is unset.
type EnvMasterKey struct {
	Var      string
	Fallback MasterKeySource
}

// MasterKey implements MasterKeySource.
func (s EnvMasterKey) MasterKey() ([]byte, error) {
	if v := os.Getenv(s.Var); v != "" {
		return []byte(v), nil
	}
	if s.Fallback != nil {
		return s.Fallback.MasterKey()
	}
	return nil, errors.New("keystore: " + s.Var + " is not set")
}

// MachineMasterKey derives a key from the host and user names. It keeps keys
// off disk in plain text but is predictable; set CONDUIT_MASTER_KEY for real
// protection.
type MachineMasterKey struct{}

// MasterKey implements MasterKeySource.
func (MachineMasterKey) MasterKey() ([]byte, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME")
	}
	sum := sha256.Sum256([]byte(hostname + ":" + username + ":conduit-keystore"))
	return sum[:], nil
}

// StaticMasterKey is a fixed master key.
type StaticMasterKey []byte

// MasterKey implements MasterKeySource.
func (s StaticMasterKey) MasterKey() ([]byte, error) {
	if len(s) == 0 {
		return nil, errors.New("keystore: empty master key")
	}
	return s, nil
}

// DefaultMasterKeySource uses CONDUIT_MASTER_KEY, or the machine key when it
// is unset.
func DefaultMasterKeySource() MasterKeySource {
	return EnvMasterKey{Var: MasterKeyEnv, Fallback: MachineMasterKey{}}
}
