package app

import (
	"context"
	"fmt"
	"time"

	"openstays_catalog/internal/domain"
)

type CatalogService struct {
	store    domain.CatalogStore
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewCatalogService(s domain.CatalogStore, c domain.Cache, ttl time.Duration) *CatalogService {
	return &CatalogService{store: s, cache: c, cacheTTL: ttl}
}

// List runs one page of the catalog query. next_cursor is set only when the
// store returned more rows than the page size.
func (s *CatalogService) List(ctx context.Context, f domain.FilterSet) (domain.PropertyPage, error) {
	spec := Compose(f)
	recs, err := s.store.Fetch(ctx, spec)
	if err != nil {
		return domain.PropertyPage{}, fmt.Errorf("fetch properties: %w", err)
	}

	hasMore := len(recs) > f.Limit
	if hasMore {
		recs = recs[:f.Limit]
	}

	opt := ProjectOptions{AddressMasking: f.AddressMasking, MaskPrecision: f.MaskPrecision}
	out := domain.PropertyPage{Data: make([]domain.Property, 0, len(recs))}
	for _, r := range recs {
		out.Data = append(out.Data, Project(r, opt))
	}

	if hasMore {
		c := domain.Cursor{ID: recs[len(recs)-1].ID}
		if spec.Order.Mode == domain.SortRandom {
			seed := spec.Order.Seed
			c.Seed = &seed
		}
		next := c.Encode()
		out.NextCursor = &next
	}
	return out, nil
}

// Get returns one active property. The raw record is cached so that masking
// stays a per-request choice.
func (s *CatalogService) Get(ctx context.Context, id string, opt ProjectOptions) (domain.Property, error) {
	key := "property:" + id
	var rec domain.PropertyRecord
	if ok, _ := s.cache.Get(ctx, key, &rec); ok {
		return Project(rec, opt), nil
	}

	recs, err := s.store.Fetch(ctx, GetSpec(id))
	if err != nil {
		return domain.Property{}, fmt.Errorf("fetch property %s: %w", id, err)
	}
	if len(recs) == 0 {
		return domain.Property{}, domain.ErrNotFound
	}
	rec = recs[0]
	_ = s.cache.Set(ctx, key, rec, int(s.cacheTTL.Seconds()))
	return Project(rec, opt), nil
}
