package auth

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/zalando/go-keyring"
)

const service = "bankctl"

// ErrNotAuthenticated is returned when no token is stored for an API
var ErrNotAuthenticated = errors.New("not authenticated. Please run 'bankctl login' first")

// TokenStore holds the access token of a single API
type TokenStore interface {
	Save(token string) error
	Load() (string, error)
	Delete() error
}

// StoreOpener returns the token store of the API at baseURL
type StoreOpener func(baseURL string) TokenStore

// OpenKeyring is the StoreOpener backed by the OS keychain
func OpenKeyring(baseURL string) TokenStore {
	return NewKeyring(baseURL)
}

// Keyring keeps one API's token in the OS keychain/credential manager.
// Entries are keyed by API host, so switching servers never sends one
// server's credential to another.
type Keyring struct {
	key string
}

// NewKeyring returns the keyring entry for the API at baseURL
func NewKeyring(baseURL string) *Keyring {
	host := baseURL
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return &Keyring{key: "token-" + host}
}

// Key is the keychain account name of the entry
func (k *Keyring) Key() string {
	return k.key
}

// Save replaces the stored token
func (k *Keyring) Save(token string) error {
	if err := keyring.Set(service, k.key, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Load returns the stored token, or ErrNotAuthenticated if there is none
func (k *Keyring) Load() (string, error) {
	token, err := keyring.Get(service, k.key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotAuthenticated
	}
	if err != nil {
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	return token, nil
}

// Delete removes the stored token. A missing entry is not an error.
func (k *Keyring) Delete() error {
	err := keyring.Delete(service, k.key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
