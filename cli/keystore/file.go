package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"golang.org/x/crypto/argon2"
)

// File layout: [magic (4)] [version (1)] [salt (16)] [nonce (12)] [ciphertext].
// The header is authenticated as additional data.
const (
	magicHeader   = "CNDT"
	formatVersion = byte(0x01)
	saltLength    = 16
	nonceLength   = 12
	headerLength  = len(magicHeader) + 1 + saltLength + nonceLength
)

// kdfParams are the Argon2id cost parameters.
type kdfParams struct {
	time    uint32
	memory  uint32
	threads uint8
}

// OWASP recommended Argon2id parameters.
var defaultKDF = kdfParams{time: 3, memory: 64 * 1024, threads: 4}

// ErrCorrupt is returned when the file is not a keystore or cannot be
// decrypted with the current master key.
var ErrCorrupt = errors.New("keystore: unreadable file (wrong master key or corrupt data)")

// FileKeystore implements Keystore as a JSON map encrypted with AES-256-GCM
// under a key derived from the master key with Argon2id.
type FileKeystore struct {
	path      string
	masterKey []byte
	kdf       kdfParams
	mu        sync.RWMutex
}

// NewFileKeystore creates a file-based keystore at path.
func NewFileKeystore(path string, source MasterKeySource) (*FileKeystore, error) {
	masterKey, err := source.MasterKey()
	if err != nil {
		return nil, err
	}
	return &FileKeystore{
		path:      path,
		masterKey: masterKey,
		kdf:       defaultKDF,
	}, nil
}

// Set stores value under name, replacing any earlier value.
func (f *FileKeystore) Set(name, value string) error {
	return f.update(func(m map[string]string) error {
		m[name] = value
		return nil
	})
}

// Get returns the value stored under name.
func (f *FileKeystore) Get(name string) (value string, err error) {
	err = f.view(func(m map[string]string) error {
		var ok bool
		if value, ok = m[name]; !ok {
			return &ErrKeyNotFound{Name: name}
		}
		return nil
	})
	return value, err
}

// Delete removes name. Deleting a missing name is an error.
func (f *FileKeystore) Delete(name string) error {
	return f.update(func(m map[string]string) error {
		if _, ok := m[name]; !ok {
			return &ErrKeyNotFound{Name: name}
		}
		delete(m, name)
		return nil
	})
}

// List returns the stored names, sorted.
func (f *FileKeystore) List() (names []string, err error) {
	err = f.view(func(m map[string]string) error {
		names = slices.Sorted(maps.Keys(m))
		return nil
	})
	return names, err
}

func (f *FileKeystore) view(fn func(map[string]string) error) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	m, err := f.load()
	if err != nil {
		return err
	}
	return fn(m)
}

// update applies fn and writes the result back only when fn succeeds.
func (f *FileKeystore) update(fn func(map[string]string) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.load()
	if err != nil {
		return err
	}
	if err := fn(m); err != nil {
		return err
	}
	return f.store(m)
}

// load reads and decrypts the file. A missing or empty file is an empty
// keystore.
func (f *FileKeystore) load() (map[string]string, error) {
	m := map[string]string{}
	raw, err := os.ReadFile(f.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return m, nil
	case err != nil:
		return nil, err
	case len(raw) == 0:
		return m, nil
	}

	plaintext, err := f.decrypt(raw)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(plaintext, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return m, nil
}

// store encrypts m and replaces the file, readable by the user only.
func (f *FileKeystore) store(m map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return err
	}
	plaintext, err := json.Marshal(m)
	if err != nil {
		return err
	}
	ciphertext, err := f.encrypt(plaintext)
	if err != nil {
		return err
	}

	// Write then rename so a crash never leaves a truncated keystore.
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, ciphertext, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *FileKeystore) gcm(salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(f.masterKey, salt, f.kdf.time, f.kdf.memory, f.kdf.threads, 32)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (f *FileKeystore) encrypt(plaintext []byte) ([]byte, error) {
	header := make([]byte, 0, headerLength)
	header = append(header, magicHeader...)
	header = append(header, formatVersion)

	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	header = append(header, salt...)
	header = append(header, nonce...)

	aead, err := f.gcm(salt)
	if err != nil {
		return nil, err
	}
	return append(header, aead.Seal(nil, nonce, plaintext, header)...), nil
}

func (f *FileKeystore) decrypt(raw []byte) ([]byte, error) {
	if len(raw) < headerLength || string(raw[:len(magicHeader)]) != magicHeader {
		return nil, ErrCorrupt
	}
	if v := raw[len(magicHeader)]; v != formatVersion {
		return nil, fmt.Errorf("keystore: unsupported format version %d", v)
	}
	offset := len(magicHeader) + 1
	salt := raw[offset : offset+saltLength]
	offset += saltLength
	nonce := raw[offset : offset+nonceLength]
	header := raw[:headerLength]

	aead, err := f.gcm(salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, raw[headerLength:], header)
	if err != nil {
		return nil, ErrCorrupt
	}
	return plaintext, nil
}

var _ Keystore = (*FileKeystore)(nil)
