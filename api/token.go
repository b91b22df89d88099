package api

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// The key the token is stored under, matching what the web client keeps
// in browser storage.
const tokenKey = "access-token"

// TokenStore persists the viewer's bearer token in a small JSON file.
type TokenStore struct {
	mu   sync.Mutex
	path string
}

func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// AccessToken reads the stored token. A missing file means no token yet,
// not an error: requests simply go out unauthenticated.
func (t *TokenStore) AccessToken() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("error reading token file: %w", err)
	}

	var tokens map[string]string
	if err := json.Unmarshal(data, &tokens); err != nil {
		return "", fmt.Errorf("error parsing token file: %w", err)
	}

	return tokens[tokenKey], nil
}

// Save writes the token, replacing any previous one.
func (t *TokenStore) Save(token string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := json.Marshal(map[string]string{tokenKey: token})
	if err != nil {
		return err
	}

	if err := os.WriteFile(t.path, data, 0600); err != nil {
		return fmt.Errorf("error writing token file: %w", err)
	}
	return nil
}

// Clear removes the stored token.
func (t *TokenStore) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("error removing token file: %w", err)
	}
	return nil
}
