package credential

import (
	"errors"
	"fmt"
	"sync"

	"github.com/99designs/keyring"
)

const serviceName = "inbox-sweeper"

// ErrNotFound is returned when no credential is stored under a key
var ErrNotFound = errors.New("credential not found")

// Store keeps API keys in the operating system keyring
type Store struct {
	ring keyring.Keyring
}

// Open returns a Store backed by the first available system keyring.
// fileDir is used by the encrypted file fallback.
func Open(fileDir string) (*Store, error) {
	if fileDir == "" {
		fileDir = "~/.inbox-sweeper/credentials"
	}
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt("inbox-sweeper-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &Store{ring: ring}, nil
}

// NewStore wraps an existing keyring
func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// APIKeyName is the keyring key holding the API key of an LLM provider
func APIKeyName(provider string) string {
	return provider + "_api_key"
}

// Get retrieves a credential value by key
func (s *Store) Get(key string) (string, error) {
	item, err := s.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", fmt.Errorf("%w: %q", ErrNotFound, key)
		}
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores a credential value by key
func (s *Store) Set(key string, value string) error {
	err := s.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: serviceName + " " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes a credential by key
func (s *Store) Delete(key string) error {
	if err := s.ring.Remove(key); err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return fmt.Errorf("%w: %q", ErrNotFound, key)
		}
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}

// Lazy opens the keyring on first use, so commands that never need a
// stored key never touch the system keyring.
type Lazy struct {
	open  func() (*Store, error)
	once  sync.Once
	store *Store
	err   error
}

// NewLazy returns a Lazy that opens the keyring with Open(fileDir)
func NewLazy(fileDir string) *Lazy {
	return &Lazy{open: func() (*Store, error) { return Open(fileDir) }}
}

// Get opens the keyring if needed and retrieves key
func (l *Lazy) Get(key string) (string, error) {
	l.once.Do(func() { l.store, l.err = l.open() })
	if l.err != nil {
		return "", l.err
	}
	return l.store.Get(key)
}
