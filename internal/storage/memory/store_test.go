package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/paulmach/orb"

	"openstays_catalog/internal/domain"
	"openstays_catalog/internal/storage/memory"
)

func loadFixture(t *testing.T) *memory.Store {
	t.Helper()
	s, err := memory.Load("../../../fixtures/catalog.json")
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	return s
}

func ids(recs []domain.PropertyRecord) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func active(extra ...domain.Predicate) []domain.Predicate {
	return append([]domain.Predicate{domain.StatusIs{Status: domain.StatusActive}}, extra...)
}

func TestFetch_DefaultOrderNewestFirst(t *testing.T) {
	s := loadFixture(t)
	recs, err := s.Fetch(context.Background(), domain.FetchSpec{Predicates: active(), Limit: 10})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	want := []string{"p-qtn-001", "p-akl-002", "p-akl-001", "p-wlg-001"}
	if got := ids(recs); !equal(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if len(recs[2].BedConfigs) != 3 || len(recs[2].Photos) != 2 {
		t.Fatalf("child collections not loaded: %+v", recs[2])
	}
}

func TestFetch_BoundsAndRadius(t *testing.T) {
	s := loadFixture(t)
	ctx := context.Background()

	bound := orb.Bound{Min: orb.Point{174.0, -37.0}, Max: orb.Point{175.0, -36.0}}
	recs, err := s.Fetch(ctx, domain.FetchSpec{Predicates: active(domain.WithinBounds{Bound: bound}), Limit: 10})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got := ids(recs); !equal(got, []string{"p-akl-002", "p-akl-001"}) {
		t.Fatalf("bbox: got %v", got)
	}

	// ~1.2km between the two Auckland listings
	near := domain.WithinRadius{Center: orb.Point{174.74515, -36.84853}, Meters: 500}
	recs, err = s.Fetch(ctx, domain.FetchSpec{Predicates: active(near), Limit: 10})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got := ids(recs); !equal(got, []string{"p-akl-001"}) {
		t.Fatalf("radius: got %v", got)
	}
}

func TestFetch_ScalarPredicates(t *testing.T) {
	s := loadFixture(t)
	cases := []struct {
		name string
		pred domain.Predicate
		want []string
	}{
		{"region", domain.RegionEquals{RegionID: "nz-wellington"}, []string{"p-wlg-001"}},
		{"guests", domain.MinOccupancy{Guests: 7}, []string{"p-qtn-001"}},
		{"pets", domain.MinPets{Pets: 2}, []string{"p-akl-001"}},
		{"no pets", domain.PetsAllowedIs{Allowed: false}, []string{"p-akl-002", "p-wlg-001"}},
		{"instant", domain.InstantBookIs{Enabled: true}, []string{"p-akl-001", "p-wlg-001"}},
		{"tier", domain.CancellationTierIs{Tier: "strict"}, []string{"p-akl-002"}},
		{"id of inactive", domain.IDEquals{ID: "p-akl-003"}, []string{}},
		{"amenity", domain.HasAllAmenities{Amenities: []string{"wifi"}}, []string{"p-akl-002", "p-akl-001"}},
		{"all amenities", domain.HasAllAmenities{Amenities: []string{"wifi", "parking"}}, []string{"p-akl-001"}},
		{"missing amenity", domain.HasAllAmenities{Amenities: []string{"wifi", "pool"}}, []string{}},
		{"accessibility", domain.HasAllAccessibility{Features: []string{"step_free_entry"}}, []string{"p-akl-001"}},
		{"bed types", domain.HasBedTypes{Types: []string{"king", "sofa_bed"}}, []string{"p-akl-001"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recs, err := s.Fetch(context.Background(), domain.FetchSpec{Predicates: active(tc.pred), Limit: 10})
			if err != nil {
				t.Fatalf("fetch: %v", err)
			}
			if got := ids(recs); !equal(got, tc.want) {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestFetch_RatingDescPutsUnratedLast(t *testing.T) {
	s := loadFixture(t)
	recs, err := s.Fetch(context.Background(), domain.FetchSpec{
		Predicates: active(),
		Order:      domain.Order{Mode: domain.SortRatingDesc},
		Limit:      10,
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	want := []string{"p-qtn-001", "p-akl-001", "p-akl-002", "p-wlg-001"}
	if got := ids(recs); !equal(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestFetch_DistanceOrder(t *testing.T) {
	s := loadFixture(t)
	wellington := orb.Point{174.7762, -41.2865}
	recs, err := s.Fetch(context.Background(), domain.FetchSpec{
		Predicates: active(),
		Order:      domain.Order{Mode: domain.SortDistanceAsc, Near: &wellington},
		Limit:      10,
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if recs[0].ID != "p-wlg-001" || recs[len(recs)-1].ID != "p-qtn-001" {
		t.Fatalf("unexpected order: %v", ids(recs))
	}
}

func TestFetch_KeysetAfterCursorRow(t *testing.T) {
	s := loadFixture(t)
	ctx := context.Background()
	spec := domain.FetchSpec{
		Predicates: active(domain.KeysetAfter{ID: "p-akl-002"}),
		Order:      domain.Order{Mode: domain.SortPriceDesc},
		Limit:      10,
	}
	recs, err := s.Fetch(ctx, spec)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got := ids(recs); !equal(got, []string{"p-akl-001"}) {
		t.Fatalf("got %v", got)
	}

	spec.Predicates = active(domain.KeysetAfter{ID: "gone"})
	recs, err = s.Fetch(ctx, spec)
	if err != nil || len(recs) != 0 {
		t.Fatalf("missing cursor row: %v %v", ids(recs), err)
	}
}

func TestFetch_HonoursLimitAndContext(t *testing.T) {
	s := loadFixture(t)
	recs, err := s.Fetch(context.Background(), domain.FetchSpec{Predicates: active(), Limit: 2})
	if err != nil || len(recs) != 2 {
		t.Fatalf("limit: %d %v", len(recs), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Fetch(ctx, domain.FetchSpec{Limit: 1}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCredentials(t *testing.T) {
	s := loadFixture(t)
	ctx := context.Background()

	c, err := s.LookupAPIKey(ctx, "1260312d1f3602aa1360c7befcc3deb5606171a845d6a51783e50b9cf3bc9668")
	if err != nil || c.ID != "key-admin" || !c.HasScopes("admin:rate_limits") {
		t.Fatalf("admin key: %+v %v", c, err)
	}
	if _, err := s.LookupAPIKey(ctx, "60828a5351b094adeb6d22534310f4a8462878977a0e620da9261f6fe743e919"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("inactive key should be not found, got %v", err)
	}

	c, err = s.LookupOAuthToken(ctx, "tok-partner-valid")
	if err != nil || c.ID != "partner-app" || c.ExpiresAt == nil {
		t.Fatalf("token: %+v %v", c, err)
	}
	if _, err := s.LookupOAuthToken(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown token: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := memory.Load("testdata/does-not-exist.json"); err == nil {
		t.Fatal("expected error")
	}
}
