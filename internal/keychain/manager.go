// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain keeps assistbridge secrets in the OS credential store.
//
// The only secret today is the optional catalog API token. On macOS the native
// `security` command is preferred; elsewhere the 99designs/keyring backends for
// the platform are used. Operations are safe for concurrent use.
package keychain

import (
	stderrors "errors"
	"runtime"
	"strings"
	"sync"

	"github.com/99designs/keyring"

	"assistbridge/cli/internal/errors"
)

// Global keychain manager instance
var (
	globalManager *Manager
	mu            sync.Mutex
)

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "assistbridge"

// KeyCatalogToken is the keychain entry holding the catalog API token.
const KeyCatalogToken = "catalog_api_token"

// ErrNotFound is returned by backends when a key has no entry.
var ErrNotFound = stderrors.New("key not found")

// keychainBackend defines the interface for keychain operations.
type keychainBackend interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// Manager provides thread-safe operations on the OS keychain.
type Manager struct {
	mu      sync.RWMutex
	backend keychainBackend
}

// NewManager opens the platform credential store.
func NewManager() (*Manager, error) {
	// Try native security backend first on macOS
	if runtime.GOOS == "darwin" {
		if backend, err := newSecurityBackend(); err == nil {
			return &Manager{backend: backend}, nil
		}
	}

	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return NewWithKeyring(ring), nil
}

// NewWithKeyring wraps an already opened keyring, e.g. keyring.NewArrayKeyring in tests.
func NewWithKeyring(ring keyring.Keyring) *Manager {
	return &Manager{backend: ringBackend{ring: ring}}
}

// GetManager returns the global keychain manager instance, creating it on first
// use. A failed initialization is retried on the next call.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalManager != nil {
		return globalManager, nil
	}
	m, err := NewManager()
	if err != nil {
		return nil, err
	}
	globalManager = m
	return globalManager, nil
}

// openRing opens the OS keyring using native platform backends only. There is no
// encrypted-file fallback: without a credential store the token is simply not kept.
func openRing() (keyring.Keyring, error) {
	var allowed []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		// Pass requires 'pass' utility installed: brew install pass
		allowed = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		allowed = []keyring.BackendType{keyring.WinCredBackend}
	default:
		allowed = []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
	}

	cfg := keyring.Config{
		ServiceName:     ServiceName,
		AllowedBackends: allowed,
		PassPrefix:      ServiceName,
		WinCredPrefix:   ServiceName,
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		return nil, errors.Wrap(errors.IO, "no OS credential store available (install a Secret Service provider or 'pass')", err)
	}
	return ring, nil
}

// SaveCatalogToken stores the catalog API token.
func (m *Manager) SaveCatalogToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New(errors.InvalidInput, "catalog token is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.backend.Set(KeyCatalogToken, token); err != nil {
		return errors.Wrap(errors.IO, "store catalog token", err)
	}
	return nil
}

// CatalogToken returns the stored token, or "" when none is stored.
func (m *Manager) CatalogToken() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tok, err := m.backend.Get(KeyCatalogToken)
	if stderrors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(errors.IO, "read catalog token", err)
	}
	return tok, nil
}

// HasCatalogToken reports whether a non-empty token is stored.
func (m *Manager) HasCatalogToken() bool {
	tok, err := m.CatalogToken()
	return err == nil && tok != ""
}

// ClearCatalogToken removes the token. Removing a missing token is not an error.
func (m *Manager) ClearCatalogToken() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.backend.Delete(KeyCatalogToken); err != nil && !stderrors.Is(err, ErrNotFound) {
		return errors.Wrap(errors.IO, "remove catalog token", err)
	}
	return nil
}

// TokenSource reads the catalog token from the global manager on every request,
// so a token set while the server runs is picked up without a restart.
type TokenSource struct{}

func (TokenSource) CatalogToken() (string, error) {
	m, err := GetManager()
	if err != nil {
		return "", err
	}
	return m.CatalogToken()
}

// ringBackend adapts a keyring.Keyring to keychainBackend.
type ringBackend struct {
	ring keyring.Keyring
}

func (r ringBackend) Set(key, value string) error {
	return r.ring.Set(keyring.Item{Key: key, Data: []byte(value), Label: ServiceName + " " + key})
}

func (r ringBackend) Get(key string) (string, error) {
	it, err := r.ring.Get(key)
	if stderrors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(it.Data), nil
}

func (r ringBackend) Delete(key string) error {
	err := r.ring.Remove(key)
	if stderrors.Is(err, keyring.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}
