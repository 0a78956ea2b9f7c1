// Package secrets keeps the GitLab access token in the operating system keychain,
// away from the plain key-value store.
package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	// Service is the keychain service name.
	Service = "gitlab-registry-explorer"
	// Account is the keychain entry holding the access token.
	Account = "access-token"
)

// Keyring reads and writes the access token.
type Keyring struct {
	service string
	account string
}

// NewKeyring creates a new Keyring for the default service and account.
func NewKeyring() *Keyring {
	return &Keyring{service: Service, account: Account}
}

// Token returns the stored token, or "" when none is stored.
func (k *Keyring) Token(ctx context.Context) (string, error) {
	token, err := keyring.Get(k.service, k.account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token from keychain: %w", err)
	}
	return token, nil
}

// Store saves token, replacing any previous one.
func (k *Keyring) Store(ctx context.Context, token string) error {
	if err := keyring.Set(k.service, k.account, token); err != nil {
		return fmt.Errorf("failed to store token in keychain: %w", err)
	}
	return nil
}
