package domain

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

type SortMode string

const (
	SortDefault     SortMode = ""
	SortPriceAsc    SortMode = "price_asc"
	SortPriceDesc   SortMode = "price_desc"
	SortRatingDesc  SortMode = "rating_desc"
	SortDistanceAsc SortMode = "distance_asc"
	SortRandom      SortMode = "random"
)

// Near is a proximity filter: Center is {lon, lat}.
type Near struct {
	Center       orb.Point
	RadiusMeters float64
}

// FilterSet is the normalized form of the list query. Nil pointers mean
// "no constraint". BBox and Near may both be set; both are applied.
type FilterSet struct {
	RegionID         *string
	BBox             *orb.Bound
	Near             *Near
	Guests           *int
	PetsAllowed      *bool
	MaxPets          *int
	InstantBook      *bool
	CancellationTier *string
	Amenities        []string
	Accessibility    []string
	BedTypes         []string
	Sort             SortMode
	Seed             *int64
	Cursor           *Cursor
	Limit            int
	AddressMasking   bool
	MaskPrecision    int
}

// Order is a resolved sort: Mode is never SortDistanceAsc without Near.
type Order struct {
	Mode SortMode
	Near *orb.Point
	Seed int64
}

// Predicate is one typed conjunct of a fetch. The set is closed; stores
// switch on the concrete type.
type Predicate interface{ isPredicate() }

type StatusIs struct{ Status PropertyStatus }
type IDEquals struct{ ID string }
type RegionEquals struct{ RegionID string }
type MinOccupancy struct{ Guests int }
type PetsAllowedIs struct{ Allowed bool }
type MinPets struct{ Pets int }
type InstantBookIs struct{ Enabled bool }
type CancellationTierIs struct{ Tier string }
type WithinBounds struct{ Bound orb.Bound }
type WithinRadius struct {
	Center orb.Point
	Meters float64
}

// The Has* predicates require every listed value (all-of). Values are
// distinct and non-empty.
type HasAllAmenities struct{ Amenities []string }
type HasAllAccessibility struct{ Features []string }
type HasBedTypes struct{ Types []string }

// KeysetAfter keeps rows strictly after the row with ID under the fetch's Order.
type KeysetAfter struct{ ID string }

func (StatusIs) isPredicate()            {}
func (IDEquals) isPredicate()            {}
func (RegionEquals) isPredicate()        {}
func (MinOccupancy) isPredicate()        {}
func (PetsAllowedIs) isPredicate()       {}
func (MinPets) isPredicate()             {}
func (InstantBookIs) isPredicate()       {}
func (CancellationTierIs) isPredicate()  {}
func (WithinBounds) isPredicate()        {}
func (WithinRadius) isPredicate()        {}
func (HasAllAmenities) isPredicate()     {}
func (HasAllAccessibility) isPredicate() {}
func (HasBedTypes) isPredicate()         {}
func (KeysetAfter) isPredicate()         {}

// FetchSpec is what a CatalogStore executes as one query: an AND of
// Predicates, sorted by Order, at most Limit rows.
type FetchSpec struct {
	Predicates []Predicate
	Order      Order
	Limit      int
}

// RandomKey is the per-row sort key of the random order. Stores must agree on
// it: the SQL equivalent is MD5(CONCAT(id, seed)).
func RandomKey(id string, seed int64) string {
	sum := md5.Sum([]byte(id + strconv.FormatInt(seed, 10)))
	return hex.EncodeToString(sum[:])
}

// ---- cursor ----

// cursorSeedSep separates the identity from the random-order seed.
const cursorSeedSep = "\x1f"

var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor is the last-seen identity; Seed is set only for random order.
type Cursor struct {
	ID   string
	Seed *int64
}

func (c Cursor) Encode() string {
	payload := c.ID
	if c.Seed != nil {
		payload += cursorSeedSep + strconv.FormatInt(*c.Seed, 10)
	}
	return base64.StdEncoding.EncodeToString([]byte(payload))
}

// cursorEncodings are tried in order; clients often re-encode the cursor
// with the URL-safe alphabet, with or without padding.
var cursorEncodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
	base64.RawStdEncoding,
}

func DecodeCursor(s string) (Cursor, error) {
	var (
		raw []byte
		err error
	)
	for _, enc := range cursorEncodings {
		if raw, err = enc.DecodeString(s); err == nil {
			break
		}
	}
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	id, seedStr, hasSeed := strings.Cut(string(raw), cursorSeedSep)
	if id == "" {
		return Cursor{}, ErrInvalidCursor
	}
	c := Cursor{ID: id}
	if hasSeed {
		seed, err := strconv.ParseInt(seedStr, 10, 64)
		if err != nil {
			return Cursor{}, ErrInvalidCursor
		}
		c.Seed = &seed
	}
	return c, nil
}
