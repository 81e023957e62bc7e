// Package fixture reads the JSON catalog snapshot used to seed the in-memory
// backend and the MySQL seeder.
package fixture

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"openstays_catalog/internal/domain"
)

type APIKey struct {
	ID        string     `json:"id"`
	KeyHash   string     `json:"key_hash"`
	Scopes    []string   `json:"scopes"`
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type OAuthToken struct {
	Token     string    `json:"token"`
	ClientID  string    `json:"client_id"`
	Scopes    []string  `json:"scopes"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Fixture struct {
	Properties  []domain.PropertyRecord `json:"properties"`
	APIKeys     []APIKey                `json:"api_keys"`
	OAuthTokens []OAuthToken            `json:"oauth_tokens"`
}

func Read(path string) (Fixture, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(b, &f); err != nil {
		return Fixture{}, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	return f, nil
}
