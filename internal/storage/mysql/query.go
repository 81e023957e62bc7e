package mysql

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"

	"openstays_catalog/internal/domain"
)

// distanceExpr measures great-circle metres from alias's coordinates to a
// bound point, on the same sphere as the in-memory store.
func distanceExpr(alias string) string {
	return fmt.Sprintf("ST_Distance_Sphere(POINT(%s.lon, %s.lat), POINT(?, ?), %.0f)", alias, alias, orb.EarthRadius)
}

func randomExpr(alias string) string {
	return fmt.Sprintf("MD5(CONCAT(%s.id, ?))", alias)
}

// builder accumulates SQL fragments with their positional args. Args are
// appended in clause order: join, where, order by, limit.
type builder struct {
	joins  []string
	where  []string
	order  []string
	args   []any
	jargs  []any
	oargs  []any
	cursor string
}

func (b *builder) cond(sql string, args ...any) {
	b.where = append(b.where, sql)
	b.args = append(b.args, args...)
}

// buildFetch renders spec as a single SELECT over properties p. A keyset
// bound joins the cursor row as c so every order compares against that
// row's own sort keys; a missing cursor row yields no rows.
func buildFetch(spec domain.FetchSpec) (string, []any, error) {
	b := &builder{}
	for _, p := range spec.Predicates {
		if err := b.predicate(p); err != nil {
			return "", nil, err
		}
	}
	if b.cursor != "" {
		b.joins = append(b.joins, "JOIN properties c ON c.id = ?")
		b.jargs = append(b.jargs, b.cursor)
		b.keyset(spec.Order)
	}
	b.orderBy(spec.Order)

	var sb strings.Builder
	sb.WriteString("SELECT")
	sb.WriteString(propertyColumns)
	sb.WriteString("\nFROM properties p")
	for _, j := range b.joins {
		sb.WriteString("\n")
		sb.WriteString(j)
	}
	if len(b.where) > 0 {
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(b.where, "\n  AND "))
	}
	sb.WriteString("\nORDER BY ")
	sb.WriteString(strings.Join(b.order, ", "))
	sb.WriteString("\nLIMIT ?")

	args := make([]any, 0, len(b.jargs)+len(b.args)+len(b.oargs)+1)
	args = append(args, b.jargs...)
	args = append(args, b.args...)
	args = append(args, b.oargs...)
	args = append(args, spec.Limit)
	return sb.String(), args, nil
}

func (b *builder) predicate(p domain.Predicate) error {
	switch p := p.(type) {
	case domain.StatusIs:
		b.cond("p.status = ?", string(p.Status))
	case domain.IDEquals:
		b.cond("p.id = ?", p.ID)
	case domain.RegionEquals:
		b.cond("p.region_id = ?", p.RegionID)
	case domain.MinOccupancy:
		b.cond("p.max_occupancy >= ?", p.Guests)
	case domain.PetsAllowedIs:
		b.cond("p.pets_allowed = ?", p.Allowed)
	case domain.MinPets:
		b.cond("p.max_pets >= ?", p.Pets)
	case domain.InstantBookIs:
		b.cond("p.instant_book = ?", p.Enabled)
	case domain.CancellationTierIs:
		b.cond("p.cancellation_tier = ?", p.Tier)
	case domain.WithinBounds:
		b.cond("p.lon BETWEEN ? AND ? AND p.lat BETWEEN ? AND ?",
			p.Bound.Min.Lon(), p.Bound.Max.Lon(), p.Bound.Min.Lat(), p.Bound.Max.Lat())
	case domain.WithinRadius:
		b.cond(distanceExpr("p")+" <= ?", p.Center.Lon(), p.Center.Lat(), p.Meters)
	case domain.HasAllAmenities:
		b.hasAll("property_amenities", "amenity", p.Amenities)
	case domain.HasAllAccessibility:
		b.hasAll("property_accessibility", "feature", p.Features)
	case domain.HasBedTypes:
		b.hasAll("property_bed_configs", "bed_type", p.Types)
	case domain.KeysetAfter:
		b.cursor = p.ID
	default:
		return fmt.Errorf("mysql: unsupported predicate %T", p)
	}
	return nil
}

// hasAll requires p to have a child row in table for every value.
func (b *builder) hasAll(table, col string, values []string) {
	ph, args := placeholders(values)
	args = append(args, len(values))
	b.cond(fmt.Sprintf("(SELECT COUNT(DISTINCT x.%s) FROM %s x WHERE x.property_id = p.id AND x.%s IN (%s)) = ?",
		col, table, col, ph), args...)
}

// keyset keeps rows strictly after c under o. Each branch mirrors the
// ORDER BY of orderBy for the same mode.
func (b *builder) keyset(o domain.Order) {
	switch mode(o) {
	case domain.SortPriceAsc:
		b.cond("p.id > c.id")
	case domain.SortPriceDesc:
		b.cond("p.id < c.id")
	case domain.SortRatingDesc:
		b.cond(`((c.rating_average IS NULL AND p.rating_average IS NULL AND p.id > c.id)
    OR (c.rating_average IS NOT NULL AND (p.rating_average IS NULL
      OR p.rating_average < c.rating_average
      OR (p.rating_average = c.rating_average AND p.id > c.id))))`)
	case domain.SortDistanceAsc:
		dp, dc := distanceExpr("p"), distanceExpr("c")
		lon, lat := o.Near.Lon(), o.Near.Lat()
		b.cond(fmt.Sprintf("(%s > %s OR (%s = %s AND p.id > c.id))", dp, dc, dp, dc),
			lon, lat, lon, lat, lon, lat, lon, lat)
	case domain.SortRandom:
		rp, rc := randomExpr("p"), randomExpr("c")
		b.cond(fmt.Sprintf("(%s > %s OR (%s = %s AND p.id > c.id))", rp, rc, rp, rc),
			o.Seed, o.Seed, o.Seed, o.Seed)
	default:
		b.cond("(p.created_at < c.created_at OR (p.created_at = c.created_at AND p.id > c.id))")
	}
}

func (b *builder) orderBy(o domain.Order) {
	switch mode(o) {
	case domain.SortPriceAsc:
		b.order = []string{"p.id ASC"}
	case domain.SortPriceDesc:
		b.order = []string{"p.id DESC"}
	case domain.SortRatingDesc:
		b.order = []string{"p.rating_average IS NULL ASC", "p.rating_average DESC", "p.id ASC"}
	case domain.SortDistanceAsc:
		b.order = []string{distanceExpr("p") + " ASC", "p.id ASC"}
		b.oargs = append(b.oargs, o.Near.Lon(), o.Near.Lat())
	case domain.SortRandom:
		b.order = []string{randomExpr("p") + " ASC", "p.id ASC"}
		b.oargs = append(b.oargs, o.Seed)
	default:
		b.order = []string{"p.created_at DESC", "p.id ASC"}
	}
}

// mode degrades a distance order without a centre to the default order.
func mode(o domain.Order) domain.SortMode {
	if o.Mode == domain.SortDistanceAsc && o.Near == nil {
		return domain.SortDefault
	}
	return o.Mode
}

// inClause returns " WHERE property_id IN (?, ?, ...)" and its args.
func inClause(ids []string) (string, []any) {
	ph, args := placeholders(ids)
	return " WHERE property_id IN (" + ph + ")", args
}

func placeholders(values []string) (string, []any) {
	ph := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		ph[i] = "?"
		args[i] = v
	}
	return strings.Join(ph, ", "), args
}
