// Package memory evaluates catalog fetches against records held in the
// process. It follows the same predicate and ordering rules as the MySQL
// store and backs tests and fixture-driven local runs.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"openstays_catalog/internal/domain"
	"openstays_catalog/internal/storage/fixture"
)

// Store is read-only after construction, so concurrent fetches need no locking.
type Store struct {
	records []domain.PropertyRecord
	byID    map[string]int
	keys    map[string]fixture.APIKey
	tokens  map[string]fixture.OAuthToken
}

func New(f fixture.Fixture) *Store {
	s := &Store{
		records: slices.Clone(f.Properties),
		byID:    make(map[string]int, len(f.Properties)),
		keys:    make(map[string]fixture.APIKey, len(f.APIKeys)),
		tokens:  make(map[string]fixture.OAuthToken, len(f.OAuthTokens)),
	}
	for i, r := range s.records {
		s.byID[r.ID] = i
	}
	for _, k := range f.APIKeys {
		s.keys[k.KeyHash] = k
	}
	for _, t := range f.OAuthTokens {
		s.tokens[t.Token] = t
	}
	return s
}

// Load reads a JSON fixture file.
func Load(path string) (*Store, error) {
	f, err := fixture.Read(path)
	if err != nil {
		return nil, err
	}
	return New(f), nil
}

func (s *Store) Fetch(ctx context.Context, spec domain.FetchSpec) ([]domain.PropertyRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	less := comparator(spec.Order)

	var after *domain.PropertyRecord
	for _, p := range spec.Predicates {
		if k, ok := p.(domain.KeysetAfter); ok {
			i, found := s.byID[k.ID]
			if !found {
				// same as the SQL join against a missing cursor row
				return []domain.PropertyRecord{}, nil
			}
			after = &s.records[i]
		}
	}

	out := make([]domain.PropertyRecord, 0)
	for _, r := range s.records {
		ok, err := matchAll(r, spec.Predicates)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if after != nil && less(r, *after) <= 0 {
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, less)
	if spec.Limit > 0 && len(out) > spec.Limit {
		out = out[:spec.Limit]
	}
	return out, nil
}

func matchAll(r domain.PropertyRecord, preds []domain.Predicate) (bool, error) {
	for _, p := range preds {
		ok, err := match(r, p)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func match(r domain.PropertyRecord, p domain.Predicate) (bool, error) {
	switch p := p.(type) {
	case domain.StatusIs:
		return r.Status == p.Status, nil
	case domain.IDEquals:
		return r.ID == p.ID, nil
	case domain.RegionEquals:
		return r.RegionID == p.RegionID, nil
	case domain.MinOccupancy:
		return r.MaxOccupancy >= p.Guests, nil
	case domain.PetsAllowedIs:
		return r.PetsAllowed == p.Allowed, nil
	case domain.MinPets:
		return r.MaxPets != nil && *r.MaxPets >= p.Pets, nil
	case domain.InstantBookIs:
		return r.InstantBook == p.Enabled, nil
	case domain.CancellationTierIs:
		return r.CancellationTier != nil && *r.CancellationTier == p.Tier, nil
	case domain.WithinBounds:
		return p.Bound.Contains(point(r)), nil
	case domain.WithinRadius:
		return geo.DistanceHaversine(p.Center, point(r)) <= p.Meters, nil
	case domain.HasAllAmenities:
		return containsAll(r.Amenities, p.Amenities), nil
	case domain.HasAllAccessibility:
		return containsAll(r.Accessibility, p.Features), nil
	case domain.HasBedTypes:
		types := make([]string, 0, len(r.BedConfigs))
		for _, b := range r.BedConfigs {
			types = append(types, b.BedType)
		}
		return containsAll(types, p.Types), nil
	case domain.KeysetAfter:
		return true, nil // applied against the cursor row in Fetch
	default:
		return false, fmt.Errorf("memory: unsupported predicate %T", p)
	}
}

func containsAll(have, want []string) bool {
	for _, w := range want {
		if !slices.Contains(have, w) {
			return false
		}
	}
	return true
}

func point(r domain.PropertyRecord) orb.Point { return orb.Point{r.Lon, r.Lat} }

// comparator returns the total order of o; every mode ends on id.
func comparator(o domain.Order) func(a, b domain.PropertyRecord) int {
	byID := func(a, b domain.PropertyRecord) int { return strings.Compare(a.ID, b.ID) }
	switch o.Mode {
	case domain.SortPriceAsc:
		return byID
	case domain.SortPriceDesc:
		return func(a, b domain.PropertyRecord) int { return byID(b, a) }
	case domain.SortRatingDesc:
		return func(a, b domain.PropertyRecord) int {
			switch {
			case a.RatingAverage == nil && b.RatingAverage == nil:
				return byID(a, b)
			case a.RatingAverage == nil:
				return 1
			case b.RatingAverage == nil:
				return -1
			}
			if c := cmp.Compare(*b.RatingAverage, *a.RatingAverage); c != 0 {
				return c
			}
			return byID(a, b)
		}
	case domain.SortDistanceAsc:
		if o.Near != nil {
			center := *o.Near
			return func(a, b domain.PropertyRecord) int {
				da := geo.DistanceHaversine(center, point(a))
				db := geo.DistanceHaversine(center, point(b))
				if c := cmp.Compare(da, db); c != 0 {
					return c
				}
				return byID(a, b)
			}
		}
	case domain.SortRandom:
		return func(a, b domain.PropertyRecord) int {
			ka, kb := domain.RandomKey(a.ID, o.Seed), domain.RandomKey(b.ID, o.Seed)
			if c := strings.Compare(ka, kb); c != 0 {
				return c
			}
			return byID(a, b)
		}
	}
	return func(a, b domain.PropertyRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return byID(a, b)
	}
}

func (s *Store) LookupAPIKey(ctx context.Context, keyHash string) (domain.Credential, error) {
	k, ok := s.keys[keyHash]
	if !ok || !k.Active {
		return domain.Credential{}, domain.ErrNotFound
	}
	return domain.Credential{Kind: domain.IdentityAPIKey, ID: k.ID, Scopes: k.Scopes, ExpiresAt: k.ExpiresAt}, nil
}

func (s *Store) LookupOAuthToken(ctx context.Context, token string) (domain.Credential, error) {
	t, ok := s.tokens[token]
	if !ok {
		return domain.Credential{}, domain.ErrNotFound
	}
	exp := t.ExpiresAt
	return domain.Credential{Kind: domain.IdentityOAuth, ID: t.ClientID, Scopes: t.Scopes, ExpiresAt: &exp}, nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }
