package app

import "openstays_catalog/internal/domain"

// Compose turns a normalized filter set into a single fetch. Absent filters
// add no predicate; the status predicate is always first. The limit is one
// more than the page size so the caller can tell whether another page exists.
func Compose(f domain.FilterSet) domain.FetchSpec {
	preds := []domain.Predicate{domain.StatusIs{Status: domain.StatusActive}}

	if f.RegionID != nil {
		preds = append(preds, domain.RegionEquals{RegionID: *f.RegionID})
	}
	if f.Guests != nil {
		preds = append(preds, domain.MinOccupancy{Guests: *f.Guests})
	}
	if f.PetsAllowed != nil {
		preds = append(preds, domain.PetsAllowedIs{Allowed: *f.PetsAllowed})
	}
	if f.MaxPets != nil {
		preds = append(preds, domain.MinPets{Pets: *f.MaxPets})
	}
	if f.InstantBook != nil {
		preds = append(preds, domain.InstantBookIs{Enabled: *f.InstantBook})
	}
	if f.CancellationTier != nil {
		preds = append(preds, domain.CancellationTierIs{Tier: *f.CancellationTier})
	}
	if len(f.Amenities) > 0 {
		preds = append(preds, domain.HasAllAmenities{Amenities: f.Amenities})
	}
	if len(f.Accessibility) > 0 {
		preds = append(preds, domain.HasAllAccessibility{Features: f.Accessibility})
	}
	if len(f.BedTypes) > 0 {
		preds = append(preds, domain.HasBedTypes{Types: f.BedTypes})
	}
	// bbox and near are independent conjuncts when both are given
	if f.BBox != nil {
		preds = append(preds, domain.WithinBounds{Bound: *f.BBox})
	}
	if f.Near != nil {
		preds = append(preds, domain.WithinRadius{Center: f.Near.Center, Meters: f.Near.RadiusMeters})
	}
	if f.Cursor != nil {
		preds = append(preds, domain.KeysetAfter{ID: f.Cursor.ID})
	}

	return domain.FetchSpec{
		Predicates: preds,
		Order:      resolveOrder(f),
		Limit:      f.Limit + 1,
	}
}

func resolveOrder(f domain.FilterSet) domain.Order {
	switch f.Sort {
	case domain.SortDistanceAsc:
		if f.Near == nil {
			return domain.Order{Mode: domain.SortDefault}
		}
		c := f.Near.Center
		return domain.Order{Mode: domain.SortDistanceAsc, Near: &c}
	case domain.SortRandom:
		o := domain.Order{Mode: domain.SortRandom}
		if f.Seed != nil {
			o.Seed = *f.Seed
		}
		return o
	case domain.SortPriceAsc, domain.SortPriceDesc, domain.SortRatingDesc:
		return domain.Order{Mode: f.Sort}
	default:
		return domain.Order{Mode: domain.SortDefault}
	}
}

// GetSpec fetches one active record by identity.
func GetSpec(id string) domain.FetchSpec {
	return domain.FetchSpec{
		Predicates: []domain.Predicate{
			domain.StatusIs{Status: domain.StatusActive},
			domain.IDEquals{ID: id},
		},
		Order: domain.Order{Mode: domain.SortDefault},
		Limit: 1,
	}
}
