package app_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"openstays_catalog/internal/app"
	"openstays_catalog/internal/domain"
	"openstays_catalog/internal/storage/fixture"
	"openstays_catalog/internal/storage/memory"
)

// ---- fakes ----

type fakeCache struct {
	store map[string]any
	sets  int
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	*dst.(*domain.PropertyRecord) = v.(domain.PropertyRecord)
	return true, nil
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	c.sets++
	return nil
}

type failingStore struct{}

func (failingStore) Fetch(ctx context.Context, spec domain.FetchSpec) ([]domain.PropertyRecord, error) {
	return nil, errors.New("connection refused")
}

// ---- helpers ----

func pfloat(f float64) *float64 { return &f }

// catalog builds n active listings spread around Auckland plus one inactive.
func catalog(n int) *memory.Store {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var recs []domain.PropertyRecord
	for i := 0; i < n; i++ {
		r := domain.PropertyRecord{
			ID:           fmt.Sprintf("p-%03d", i),
			Status:       domain.StatusActive,
			Title:        fmt.Sprintf("Listing %d", i),
			RegionID:     "nz-auckland",
			MaxOccupancy: 2 + i%5,
			Lat:          -36.5 + float64(i%7)*0.01,
			Lon:          174.5 + float64(i%11)*0.01,
			// every third listing shares a timestamp to exercise the id tie-break
			CreatedAt: base.Add(time.Duration(i/3) * time.Hour),
		}
		if i%4 != 0 {
			r.RatingAverage = pfloat(float64(i%5) + 0.5)
		}
		recs = append(recs, r)
	}
	recs = append(recs, domain.PropertyRecord{ID: "p-inactive", Status: domain.StatusInactive, Lat: -36.5, Lon: 174.5})
	return memory.New(fixture.Fixture{Properties: recs})
}

func service(s domain.CatalogStore) *app.CatalogService {
	return app.NewCatalogService(s, &fakeCache{}, time.Minute)
}

func parse(t *testing.T, q url.Values) domain.FilterSet {
	t.Helper()
	f, err := app.ParseFilters(q)
	if err != nil {
		t.Fatalf("parse %v: %v", q, err)
	}
	return f
}

// walk follows next_cursor until the last page and returns every id seen.
func walk(t *testing.T, svc *app.CatalogService, q url.Values) []string {
	t.Helper()
	var out []string
	for pages := 0; ; pages++ {
		if pages > 100 {
			t.Fatal("pagination did not terminate")
		}
		page, err := svc.List(context.Background(), parse(t, q))
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		for _, p := range page.Data {
			out = append(out, p.ID)
		}
		if page.NextCursor == nil {
			return out
		}
		q.Set("cursor", *page.NextCursor)
	}
}

// ---- tests ----

func TestList_OnlyActive(t *testing.T) {
	page, err := service(catalog(5)).List(context.Background(), parse(t, url.Values{}))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Data) != 5 || page.NextCursor != nil {
		t.Fatalf("page: %d %v", len(page.Data), page.NextCursor)
	}
	for _, p := range page.Data {
		if p.Status != domain.StatusActive {
			t.Fatalf("non-active listing returned: %s", p.ID)
		}
	}
}

func TestList_BBox(t *testing.T) {
	s := memory.New(fixture.Fixture{Properties: []domain.PropertyRecord{
		{ID: "inside", Status: domain.StatusActive, Lat: -36.5, Lon: 174.5},
		{ID: "outside", Status: domain.StatusActive, Lat: -36.5, Lon: 176.0},
	}})
	page, err := service(s).List(context.Background(), parse(t, url.Values{"bbox": {"174.0,-37.0,175.0,-36.0"}}))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Data) != 1 || page.Data[0].ID != "inside" {
		t.Fatalf("bbox page: %+v", page.Data)
	}
}

func TestList_EmptyResultIsEmptyArray(t *testing.T) {
	page, err := service(catalog(3)).List(context.Background(), parse(t, url.Values{"region_id": {"nowhere"}}))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Data == nil || len(page.Data) != 0 || page.NextCursor != nil {
		t.Fatalf("expected empty page, got %+v", page)
	}
}

func TestList_PaginationDisjointAndComplete(t *testing.T) {
	const n = 23
	svc := service(catalog(n))
	for _, sort := range []string{"", "price_asc", "price_desc", "rating_desc", "distance_asc", "random"} {
		t.Run("sort="+sort, func(t *testing.T) {
			q := url.Values{"limit": {"4"}, "sort": {sort}}
			if sort == "distance_asc" {
				q.Set("near", "-36.47,174.55,100000")
			}
			got := walk(t, svc, q)
			if len(got) != n {
				t.Fatalf("expected %d listings, got %d: %v", n, len(got), got)
			}
			seen := map[string]bool{}
			for _, id := range got {
				if seen[id] {
					t.Fatalf("duplicate %s across pages: %v", id, got)
				}
				seen[id] = true
			}
		})
	}
}

func TestList_RandomIsStablePerSeed(t *testing.T) {
	svc := service(catalog(12))
	a := walk(t, svc, url.Values{"sort": {"random"}, "seed": {"11"}, "limit": {"5"}})
	b := walk(t, svc, url.Values{"sort": {"random"}, "seed": {"11"}, "limit": {"5"}})
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed, different order:\n%v\n%v", a, b)
		}
	}
}

func TestList_NextCursorOnlyWhenMore(t *testing.T) {
	svc := service(catalog(4))
	page, err := svc.List(context.Background(), parse(t, url.Values{"limit": {"4"}}))
	if err != nil || page.NextCursor != nil {
		t.Fatalf("exact page should have no cursor: %v %v", page.NextCursor, err)
	}
	page, err = svc.List(context.Background(), parse(t, url.Values{"limit": {"3"}}))
	if err != nil || page.NextCursor == nil || len(page.Data) != 3 {
		t.Fatalf("expected a cursor: %v %v", page.NextCursor, err)
	}
	c, err := domain.DecodeCursor(*page.NextCursor)
	if err != nil || c.ID != page.Data[2].ID || c.Seed != nil {
		t.Fatalf("cursor should carry the last id: %+v %v", c, err)
	}
}

func TestList_Idempotent(t *testing.T) {
	svc := service(catalog(9))
	q := url.Values{"sort": {"rating_desc"}, "limit": {"3"}}
	a, _ := svc.List(context.Background(), parse(t, q))
	b, _ := svc.List(context.Background(), parse(t, q))
	for i := range a.Data {
		if a.Data[i].ID != b.Data[i].ID {
			t.Fatalf("repeat differs at %d", i)
		}
	}
	if *a.NextCursor != *b.NextCursor {
		t.Fatal("cursor differs between identical calls")
	}
}

func TestList_StoreErrorIsWrapped(t *testing.T) {
	_, err := service(failingStore{}).List(context.Background(), parse(t, url.Values{}))
	if err == nil || err.Error() != "fetch properties: connection refused" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGet_CacheMissThenHit(t *testing.T) {
	cache := &fakeCache{}
	svc := app.NewCatalogService(catalog(3), cache, 10*time.Minute)

	p, err := svc.Get(context.Background(), "p-001", app.ProjectOptions{})
	if err != nil || p.ID != "p-001" || p.Coordinates == nil {
		t.Fatalf("miss: %+v %v", p, err)
	}
	if cache.sets != 1 {
		t.Fatalf("expected one cache set, got %d", cache.sets)
	}

	// masking is applied per request even when served from cache
	p, err = svc.Get(context.Background(), "p-001", app.ProjectOptions{AddressMasking: true, MaskPrecision: 1})
	if err != nil || p.PublicCoordinates == nil || p.Coordinates != nil {
		t.Fatalf("hit: %+v %v", p, err)
	}
	if cache.sets != 1 {
		t.Fatalf("hit should not write the cache again, sets=%d", cache.sets)
	}
}

func TestGet_NotFoundAndInactive(t *testing.T) {
	svc := service(catalog(2))
	for _, id := range []string{"missing", "p-inactive"} {
		if _, err := svc.Get(context.Background(), id, app.ProjectOptions{}); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("%s: expected ErrNotFound, got %v", id, err)
		}
	}
}
