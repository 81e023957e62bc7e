package app

import (
	"math"

	"openstays_catalog/internal/domain"
)

const (
	DefaultCurrency  = "USD"
	DefaultRoomLabel = "Bedroom"
)

type ProjectOptions struct {
	AddressMasking bool
	MaskPrecision  int
}

// Project maps a record to the public shape. Masked output carries only
// public_address/public_coordinates; unmasked only address/coordinates.
func Project(r domain.PropertyRecord, opt ProjectOptions) domain.Property {
	p := domain.Property{
		ID:            r.ID,
		Status:        r.Status,
		Title:         r.Title,
		Summary:       r.Summary,
		Description:   r.Description,
		RegionID:      r.RegionID,
		Type:          r.Type,
		MaxOccupancy:  r.MaxOccupancy,
		Bedrooms:      r.Bedrooms,
		Bathrooms:     r.Bathrooms,
		Amenities:     nonNil(r.Amenities),
		Accessibility: nonNil(r.Accessibility),
		Tags:          nonNil(r.Tags),
		Photos:        r.Photos,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if p.Photos == nil {
		p.Photos = []domain.Photo{}
	}

	if opt.AddressMasking {
		p.PublicAddress = &domain.PublicAddress{
			City:       r.City,
			Region:     r.Region,
			Country:    r.Country,
			PostalCode: r.PostalCode,
		}
		p.PublicCoordinates = &domain.Coordinates{
			Lat: RoundCoordinate(r.Lat, opt.MaskPrecision),
			Lon: RoundCoordinate(r.Lon, opt.MaskPrecision),
		}
	} else {
		p.Address = &domain.Address{
			Line1:      r.AddressLine1,
			Line2:      r.AddressLine2,
			City:       r.City,
			Region:     r.Region,
			Country:    r.Country,
			PostalCode: r.PostalCode,
		}
		p.Coordinates = &domain.Coordinates{Lat: r.Lat, Lon: r.Lon}
	}

	if len(r.BedConfigs) > 0 {
		p.BedConfig = GroupBedConfigs(r.BedConfigs)
	}

	p.PetPolicy = domain.PetPolicy{
		Allowed: r.PetsAllowed,
		MaxPets: r.MaxPets,
		FeeType: r.PetFeeType,
		Fee:     money(r.PetFeeAmount, r.PetFeeCurrency),
	}

	minStay := 1
	if r.MinStayNights != nil {
		minStay = *r.MinStayNights
	}
	p.BookingPolicy = domain.BookingPolicy{
		InstantBook:      r.InstantBook,
		MinStayNights:    minStay,
		MaxStayNights:    r.MaxStayNights,
		BufferDaysBefore: r.BufferDaysBefore,
		BufferDaysAfter:  r.BufferDaysAfter,
		CancellationTier: r.CancellationTier,
	}

	p.Fees = domain.Fees{
		CleaningFee:     money(r.CleaningFee, r.CleaningFeeCurrency),
		SecurityDeposit: money(r.SecurityDeposit, r.SecurityDepositCurrency),
	}
	if r.AdditionalGuestAfter != nil && r.AdditionalGuestFee != nil {
		p.Fees.AdditionalGuestFee = &domain.AdditionalGuestFee{
			AppliesAfterGuests: *r.AdditionalGuestAfter,
			PerGuestPerNight:   *money(r.AdditionalGuestFee, r.AdditionalGuestFeeCurrency),
		}
	}

	p.TaxInfo = domain.TaxInfo{GSTRegistered: r.GSTRegistered, GSTNumber: r.GSTNumber}

	if r.RatingAverage != nil {
		p.Rating = &domain.Rating{Average: *r.RatingAverage, Count: r.RatingCount}
	}
	return p
}

// RoundCoordinate reduces v to precision decimals, halves away from zero.
func RoundCoordinate(v float64, precision int) float64 {
	m := math.Pow(10, float64(precision))
	return math.Round(v*m) / m
}

// GroupBedConfigs folds rows into one entry per room label, rooms in
// first-seen order and beds in row order.
func GroupBedConfigs(rows []domain.BedConfigRow) []domain.BedConfig {
	out := make([]domain.BedConfig, 0, len(rows))
	idx := make(map[string]int, len(rows))
	for _, row := range rows {
		label := row.RoomLabel
		if label == "" {
			label = DefaultRoomLabel
		}
		i, ok := idx[label]
		if !ok {
			i = len(out)
			idx[label] = i
			out = append(out, domain.BedConfig{RoomLabel: label, Beds: []domain.Bed{}})
		}
		out[i].Beds = append(out[i].Beds, domain.Bed{Type: row.BedType, Count: row.BedCount})
	}
	return out
}

func money(amount *float64, currency *string) *domain.Money {
	if amount == nil {
		return nil
	}
	cur := DefaultCurrency
	if currency != nil && *currency != "" {
		cur = *currency
	}
	return &domain.Money{Amount: *amount, Currency: cur}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
