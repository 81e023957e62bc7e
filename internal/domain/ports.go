package domain

import (
	"context"
	"time"
)

type CatalogStore interface {
	// Fetch runs spec as a single query and returns at most spec.Limit
	// records, already ordered, child collections grouped per record.
	Fetch(ctx context.Context, spec FetchSpec) ([]PropertyRecord, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
}

// CounterState is the result of one atomic increment. Override is 0 when no
// caller-specific limit is stored.
type CounterState struct {
	Count    int64
	TTL      time.Duration
	Override int64
}

type CounterStore interface {
	// Increment bumps key and refreshes its expiry to window in one atomic
	// step, reading overrideKey in the same round trip.
	Increment(ctx context.Context, key string, window time.Duration, overrideKey string) (CounterState, error)
	Decrement(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
	// SetOverride stores a caller-specific limit; limit <= 0 removes it.
	SetOverride(ctx context.Context, overrideKey string, limit int64) error
}

type CredentialStore interface {
	// Both return ErrNotFound for unknown (or inactive) credentials.
	LookupAPIKey(ctx context.Context, keyHash string) (Credential, error)
	LookupOAuthToken(ctx context.Context, token string) (Credential, error)
}

type IdentityKind string

const (
	IdentityAPIKey IdentityKind = "api_key"
	IdentityOAuth  IdentityKind = "oauth"
	IdentityIP     IdentityKind = "ip"
)

// Credential is a verified caller. ID is the api key id or the oauth client id.
type Credential struct {
	Kind      IdentityKind
	ID        string
	Scopes    []string
	ExpiresAt *time.Time
}

func (c Credential) HasScopes(required ...string) bool {
	for _, r := range required {
		found := false
		for _, s := range c.Scopes {
			if s == r {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Identity is the single string a request is counted under.
type Identity struct {
	Kind  IdentityKind
	Value string
}

func (i Identity) String() string { return string(i.Kind) + ":" + i.Value }
