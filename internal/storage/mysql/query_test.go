package mysql

import (
	"reflect"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"openstays_catalog/internal/domain"
)

func TestBuildFetch_StatusOnly(t *testing.T) {
	q, args, err := buildFetch(domain.FetchSpec{
		Predicates: []domain.Predicate{domain.StatusIs{Status: domain.StatusActive}},
		Limit:      51,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(q, "WHERE p.status = ?") || !strings.HasSuffix(q, "ORDER BY p.created_at DESC, p.id ASC\nLIMIT ?") {
		t.Fatalf("unexpected sql:\n%s", q)
	}
	if strings.Contains(q, "JOIN") {
		t.Fatalf("no cursor, no join:\n%s", q)
	}
	if want := []any{"active", 51}; !reflect.DeepEqual(args, want) {
		t.Fatalf("args: %#v", args)
	}
}

func TestBuildFetch_ArgsFollowClauseOrder(t *testing.T) {
	center := orb.Point{174.7, -36.8}
	q, args, err := buildFetch(domain.FetchSpec{
		Predicates: []domain.Predicate{
			domain.StatusIs{Status: domain.StatusActive},
			domain.RegionEquals{RegionID: "nz-auckland"},
			domain.WithinBounds{Bound: orb.Bound{Min: orb.Point{174, -37}, Max: orb.Point{175, -36}}},
			domain.WithinRadius{Center: center, Meters: 2500},
			domain.KeysetAfter{ID: "p-9"},
		},
		Order: domain.Order{Mode: domain.SortDistanceAsc, Near: &center},
		Limit: 11,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := []any{
		// join
		"p-9",
		// where
		"active", "nz-auckland",
		174.0, 175.0, -37.0, -36.0,
		174.7, -36.8, 2500.0,
		174.7, -36.8, 174.7, -36.8, 174.7, -36.8, 174.7, -36.8,
		// order by, limit
		174.7, -36.8,
		11,
	}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("args:\n got %#v\nwant %#v", args, want)
	}
	if n := strings.Count(q, "?"); n != len(args) {
		t.Fatalf("placeholders %d, args %d:\n%s", n, len(args), q)
	}
	if !strings.Contains(q, "JOIN properties c ON c.id = ?") || !strings.Contains(q, "6378137") {
		t.Fatalf("unexpected sql:\n%s", q)
	}
}

func TestBuildFetch_KeysetPerOrder(t *testing.T) {
	cases := []struct {
		order domain.Order
		where string
		by    string
	}{
		{domain.Order{}, "p.created_at < c.created_at", "p.created_at DESC, p.id ASC"},
		{domain.Order{Mode: domain.SortPriceAsc}, "p.id > c.id", "p.id ASC"},
		{domain.Order{Mode: domain.SortPriceDesc}, "p.id < c.id", "p.id DESC"},
		{domain.Order{Mode: domain.SortRatingDesc}, "c.rating_average IS NULL AND p.rating_average IS NULL", "p.rating_average IS NULL ASC, p.rating_average DESC, p.id ASC"},
		{domain.Order{Mode: domain.SortRandom, Seed: 42}, "MD5(CONCAT(p.id, ?)) > MD5(CONCAT(c.id, ?))", "MD5(CONCAT(p.id, ?)) ASC, p.id ASC"},
		// distance without a centre degrades to the default order
		{domain.Order{Mode: domain.SortDistanceAsc}, "p.created_at < c.created_at", "p.created_at DESC, p.id ASC"},
	}
	for _, c := range cases {
		q, args, err := buildFetch(domain.FetchSpec{
			Predicates: []domain.Predicate{domain.StatusIs{Status: domain.StatusActive}, domain.KeysetAfter{ID: "x"}},
			Order:      c.order,
			Limit:      5,
		})
		if err != nil {
			t.Fatalf("%q: %v", c.order.Mode, err)
		}
		if !strings.Contains(q, c.where) || !strings.Contains(q, "ORDER BY "+c.by) {
			t.Fatalf("%q: unexpected sql:\n%s", c.order.Mode, q)
		}
		if n := strings.Count(q, "?"); n != len(args) {
			t.Fatalf("%q: placeholders %d, args %d", c.order.Mode, n, len(args))
		}
	}
}

func TestBuildFetch_RandomSeedArgs(t *testing.T) {
	_, args, _ := buildFetch(domain.FetchSpec{
		Predicates: []domain.Predicate{domain.StatusIs{Status: domain.StatusActive}},
		Order:      domain.Order{Mode: domain.SortRandom, Seed: 7},
		Limit:      3,
	})
	if want := []any{"active", int64(7), 3}; !reflect.DeepEqual(args, want) {
		t.Fatalf("args: %#v", args)
	}
}

func TestInClause(t *testing.T) {
	where, args := inClause([]string{"a", "b", "c"})
	if where != " WHERE property_id IN (?, ?, ?)" || !reflect.DeepEqual(args, []any{"a", "b", "c"}) {
		t.Fatalf("in clause: %q %#v", where, args)
	}
}

func TestBuildFetch_CollectionPredicates(t *testing.T) {
	q, args, err := buildFetch(domain.FetchSpec{
		Predicates: []domain.Predicate{
			domain.StatusIs{Status: domain.StatusActive},
			domain.HasAllAmenities{Amenities: []string{"wifi", "parking"}},
			domain.HasAllAccessibility{Features: []string{"step_free_entry"}},
			domain.HasBedTypes{Types: []string{"king"}},
		},
		Limit: 6,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, frag := range []string{
		"(SELECT COUNT(DISTINCT x.amenity) FROM property_amenities x WHERE x.property_id = p.id AND x.amenity IN (?, ?)) = ?",
		"(SELECT COUNT(DISTINCT x.feature) FROM property_accessibility x WHERE x.property_id = p.id AND x.feature IN (?)) = ?",
		"(SELECT COUNT(DISTINCT x.bed_type) FROM property_bed_configs x WHERE x.property_id = p.id AND x.bed_type IN (?)) = ?",
	} {
		if !strings.Contains(q, frag) {
			t.Fatalf("missing %q in:\n%s", frag, q)
		}
	}
	want := []any{"active", "wifi", "parking", 2, "step_free_entry", 1, "king", 1, 6}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("args: %#v", args)
	}
}
