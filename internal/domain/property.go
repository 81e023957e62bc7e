package domain

import "time"

type PropertyStatus string

const (
	StatusActive    PropertyStatus = "active"
	StatusInactive  PropertyStatus = "inactive"
	StatusSuspended PropertyStatus = "suspended"
	StatusDraft     PropertyStatus = "draft"
)

// PropertyRecord is the store-resident listing with its child collections
// already grouped under the parent.
type PropertyRecord struct {
	ID           string         `json:"id"`
	Status       PropertyStatus `json:"status"`
	Title        string         `json:"title"`
	Summary      *string        `json:"summary,omitempty"`
	Description  *string        `json:"description,omitempty"`
	RegionID     string         `json:"region_id"`
	Type         string         `json:"property_type"`
	MaxOccupancy int            `json:"max_occupancy"`
	Bedrooms     *int           `json:"bedrooms,omitempty"`
	Bathrooms    *float64       `json:"bathrooms,omitempty"`

	AddressLine1 string  `json:"address_line1"`
	AddressLine2 *string `json:"address_line2,omitempty"`
	City         string  `json:"city"`
	Region       string  `json:"region"`
	Country      string  `json:"country"`
	PostalCode   string  `json:"postal_code"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`

	PetsAllowed    bool     `json:"pets_allowed"`
	MaxPets        *int     `json:"max_pets,omitempty"`
	PetFeeType     *string  `json:"pet_fee_type,omitempty"`
	PetFeeAmount   *float64 `json:"pet_fee_amount,omitempty"`
	PetFeeCurrency *string  `json:"pet_fee_currency,omitempty"`

	InstantBook      bool    `json:"instant_book"`
	MinStayNights    *int    `json:"min_stay_nights,omitempty"`
	MaxStayNights    *int    `json:"max_stay_nights,omitempty"`
	BufferDaysBefore *int    `json:"buffer_days_before,omitempty"`
	BufferDaysAfter  *int    `json:"buffer_days_after,omitempty"`
	CancellationTier *string `json:"cancellation_tier,omitempty"`

	CleaningFee                *float64 `json:"cleaning_fee,omitempty"`
	CleaningFeeCurrency        *string  `json:"cleaning_fee_currency,omitempty"`
	SecurityDeposit            *float64 `json:"security_deposit,omitempty"`
	SecurityDepositCurrency    *string  `json:"security_deposit_currency,omitempty"`
	AdditionalGuestAfter       *int     `json:"additional_guest_after,omitempty"`
	AdditionalGuestFee         *float64 `json:"additional_guest_fee,omitempty"`
	AdditionalGuestFeeCurrency *string  `json:"additional_guest_fee_currency,omitempty"`

	GSTRegistered bool    `json:"gst_registered"`
	GSTNumber     *string `json:"gst_number,omitempty"`

	RatingAverage *float64 `json:"rating_average,omitempty"`
	RatingCount   int      `json:"rating_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Photos        []Photo        `json:"photos,omitempty"`
	Amenities     []string       `json:"amenities,omitempty"`
	Accessibility []string       `json:"accessibility,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
	BedConfigs    []BedConfigRow `json:"bed_configs,omitempty"`
}

type Photo struct {
	URL     string  `json:"url"`
	Caption *string `json:"caption,omitempty"`
	Width   *int    `json:"width,omitempty"`
	Height  *int    `json:"height,omitempty"`
	Order   *int    `json:"order,omitempty"`
}

// BedConfigRow is one child row; RoomLabel is empty when the store has none.
type BedConfigRow struct {
	RoomLabel string `json:"room_label,omitempty"`
	BedType   string `json:"bed_type"`
	BedCount  int    `json:"bed_count"`
}

// ---- public read model ----

type Property struct {
	ID                string         `json:"id"`
	Status            PropertyStatus `json:"status"`
	Title             string         `json:"title"`
	Summary           *string        `json:"summary,omitempty"`
	Description       *string        `json:"description,omitempty"`
	Address           *Address       `json:"address,omitempty"`
	PublicAddress     *PublicAddress `json:"public_address,omitempty"`
	Coordinates       *Coordinates   `json:"coordinates,omitempty"`
	PublicCoordinates *Coordinates   `json:"public_coordinates,omitempty"`
	RegionID          string         `json:"region_id"`
	Type              string         `json:"type"`
	MaxOccupancy      int            `json:"max_occupancy"`
	Bedrooms          *int           `json:"bedrooms,omitempty"`
	Bathrooms         *float64       `json:"bathrooms,omitempty"`
	BedConfig         []BedConfig    `json:"bed_config,omitempty"`
	Amenities         []string       `json:"amenities"`
	Accessibility     []string       `json:"accessibility"`
	Photos            []Photo        `json:"photos"`
	PetPolicy         PetPolicy      `json:"pet_policy"`
	BookingPolicy     BookingPolicy  `json:"booking_policy"`
	Fees              Fees           `json:"fees"`
	TaxInfo           TaxInfo        `json:"tax_info"`
	Rating            *Rating        `json:"rating,omitempty"`
	Tags              []string       `json:"tags"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

type Address struct {
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	Region     string  `json:"region"`
	Country    string  `json:"country"`
	PostalCode string  `json:"postal_code"`
}

type PublicAddress struct {
	City       string `json:"city"`
	Region     string `json:"region"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type Bed struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type BedConfig struct {
	RoomLabel string `json:"room_label"`
	Beds      []Bed  `json:"beds"`
}

type PetPolicy struct {
	Allowed bool    `json:"allowed"`
	MaxPets *int    `json:"max_pets,omitempty"`
	FeeType *string `json:"fee_type,omitempty"`
	Fee     *Money  `json:"fee,omitempty"`
}

type BookingPolicy struct {
	InstantBook      bool    `json:"instant_book"`
	MinStayNights    int     `json:"min_stay_nights"`
	MaxStayNights    *int    `json:"max_stay_nights,omitempty"`
	BufferDaysBefore *int    `json:"buffer_days_before,omitempty"`
	BufferDaysAfter  *int    `json:"buffer_days_after,omitempty"`
	CancellationTier *string `json:"cancellation_tier,omitempty"`
}

type AdditionalGuestFee struct {
	AppliesAfterGuests int   `json:"applies_after_guests"`
	PerGuestPerNight   Money `json:"per_guest_per_night"`
}

type Fees struct {
	CleaningFee        *Money              `json:"cleaning_fee,omitempty"`
	AdditionalGuestFee *AdditionalGuestFee `json:"additional_guest_fee,omitempty"`
	SecurityDeposit    *Money              `json:"security_deposit,omitempty"`
}

type TaxInfo struct {
	GSTRegistered bool    `json:"gst_registered"`
	GSTNumber     *string `json:"gst_number,omitempty"`
}

type Rating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// PropertyPage is the list response; NextCursor marshals to null when absent.
type PropertyPage struct {
	Data       []Property `json:"data"`
	NextCursor *string    `json:"next_cursor"`
}
