package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"openstays_catalog/internal/domain"
)

// Authenticator verifies the X-API-Key and Bearer credentials. An API key
// takes precedence when both are sent.
type Authenticator struct {
	store  domain.CredentialStore
	prefix string
	now    func() time.Time
}

func NewAuthenticator(s domain.CredentialStore, apiKeyPrefix string) *Authenticator {
	return &Authenticator{store: s, prefix: apiKeyPrefix, now: time.Now}
}

// Authenticate returns nil, nil for anonymous callers.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey, bearer string) (*domain.Credential, error) {
	if apiKey != "" {
		return a.apiKey(ctx, apiKey)
	}
	if bearer != "" {
		return a.token(ctx, bearer)
	}
	return nil, nil
}

func (a *Authenticator) apiKey(ctx context.Context, key string) (*domain.Credential, error) {
	if !strings.HasPrefix(key, a.prefix) {
		return nil, domain.ErrInvalidAPIKey
	}
	c, err := a.store.LookupAPIKey(ctx, HashAPIKey(key))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidAPIKey
	}
	if err != nil {
		return nil, fmt.Errorf("lookup api key: %w", err)
	}
	if c.ExpiresAt != nil && !c.ExpiresAt.After(a.now()) {
		return nil, domain.ErrInvalidAPIKey
	}
	c.Kind = domain.IdentityAPIKey
	return &c, nil
}

func (a *Authenticator) token(ctx context.Context, token string) (*domain.Credential, error) {
	c, err := a.store.LookupOAuthToken(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("lookup oauth token: %w", err)
	}
	if c.ExpiresAt != nil && c.ExpiresAt.Before(a.now()) {
		return nil, domain.ErrTokenExpired
	}
	c.Kind = domain.IdentityOAuth
	return &c, nil
}

// HashAPIKey is the lookup form stored in api_keys.key_hash.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
