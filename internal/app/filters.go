package app

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/paulmach/orb"

	"openstays_catalog/internal/domain"
)

const (
	DefaultLimit         = 50
	MaxLimit             = 200
	DefaultMaskPrecision = 2
)

// newSeed picks the random-order seed when neither the cursor nor the caller
// supplied one.
var newSeed = func() int64 { return rand.Int63n(1 << 53) }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("param"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

type listParams struct {
	Limit            int      `param:"limit" validate:"min=1,max=200"`
	MaskPrecision    int      `param:"mask_precision" validate:"min=0,max=5"`
	Guests           *int     `param:"guests" validate:"omitempty,min=1"`
	MaxPets          *int     `param:"max_pets" validate:"omitempty,min=0"`
	CancellationTier string   `param:"cancellation_tier" validate:"omitempty,oneof=flexible moderate strict super_strict"`
	Amenities        []string `param:"amenities" validate:"max=20,dive,max=64"`
	Accessibility    []string `param:"accessibility" validate:"max=20,dive,max=64"`
	BedTypes         []string `param:"bed_types" validate:"max=10,dive,max=32"`
}

type bboxParams struct {
	MinLon float64 `param:"bbox.min_lon" validate:"longitude"`
	MinLat float64 `param:"bbox.min_lat" validate:"latitude"`
	MaxLon float64 `param:"bbox.max_lon" validate:"longitude,gtefield=MinLon"`
	MaxLat float64 `param:"bbox.max_lat" validate:"latitude,gtefield=MinLat"`
}

type nearParams struct {
	Lat    float64 `param:"near.lat" validate:"latitude"`
	Lon    float64 `param:"near.lon" validate:"longitude"`
	Radius float64 `param:"near.radius" validate:"gte=0"`
}

type projectionParams struct {
	MaskPrecision int `param:"mask_precision" validate:"min=0,max=5"`
}

// ParseFilters normalizes the list query. Every malformed parameter is
// reported in one *domain.ValidationError.
func ParseFilters(q url.Values) (domain.FilterSet, error) {
	verr := &domain.ValidationError{}
	p := listParams{
		Limit:         intParam(q, "limit", DefaultLimit, verr),
		MaskPrecision: intParam(q, "mask_precision", DefaultMaskPrecision, verr),
		Guests:        optIntParam(q, "guests", verr),
		MaxPets:       optIntParam(q, "max_pets", verr),
	}
	p.CancellationTier = strings.TrimSpace(q.Get("cancellation_tier"))
	p.Amenities = listParam(q, "amenities")
	p.Accessibility = listParam(q, "accessibility")
	p.BedTypes = listParam(q, "bed_types")
	collect(verr, validate.Struct(p))

	f := domain.FilterSet{
		Limit:          p.Limit,
		MaskPrecision:  p.MaskPrecision,
		Guests:         p.Guests,
		MaxPets:        p.MaxPets,
		Amenities:      p.Amenities,
		Accessibility:  p.Accessibility,
		BedTypes:       p.BedTypes,
		PetsAllowed:    optBoolParam(q, "pets_allowed", verr),
		InstantBook:    optBoolParam(q, "instant_book", verr),
		AddressMasking: boolParam(q, "address_masking", verr),
		Sort:           parseSort(q.Get("sort")),
	}
	if v := strings.TrimSpace(q.Get("region_id")); v != "" {
		f.RegionID = &v
	}
	if p.CancellationTier != "" {
		tier := p.CancellationTier
		f.CancellationTier = &tier
	}
	if v := q.Get("bbox"); v != "" {
		f.BBox = parseBBox(v, verr)
	}
	if v := q.Get("near"); v != "" {
		f.Near = parseNear(v, verr)
	}
	if v := q.Get("cursor"); v != "" {
		c, err := domain.DecodeCursor(v)
		if err != nil {
			verr.Add("cursor", "cursor is not a valid pagination token")
		} else {
			f.Cursor = &c
		}
	}
	f.Seed = optInt64Param(q, "seed", verr)

	if err := verr.Err(); err != nil {
		return domain.FilterSet{}, err
	}

	if f.Sort == domain.SortDistanceAsc && f.Near == nil {
		f.Sort = domain.SortDefault
	}
	if f.Sort == domain.SortRandom {
		// a seed carried by the cursor wins so later pages keep the same order
		switch {
		case f.Cursor != nil && f.Cursor.Seed != nil:
			seed := *f.Cursor.Seed
			f.Seed = &seed
		case f.Seed == nil:
			seed := newSeed()
			f.Seed = &seed
		}
	}
	return f, nil
}

// ParseProjection reads the masking parameters of the single-property route.
func ParseProjection(q url.Values) (ProjectOptions, error) {
	verr := &domain.ValidationError{}
	p := projectionParams{MaskPrecision: intParam(q, "mask_precision", DefaultMaskPrecision, verr)}
	opt := ProjectOptions{AddressMasking: boolParam(q, "address_masking", verr)}
	collect(verr, validate.Struct(p))
	if err := verr.Err(); err != nil {
		return ProjectOptions{}, err
	}
	opt.MaskPrecision = p.MaskPrecision
	return opt, nil
}

// parseSort maps unknown values (and "relevance") to the default order.
func parseSort(s string) domain.SortMode {
	switch m := domain.SortMode(strings.TrimSpace(s)); m {
	case domain.SortPriceAsc, domain.SortPriceDesc, domain.SortRatingDesc,
		domain.SortDistanceAsc, domain.SortRandom:
		return m
	default:
		return domain.SortDefault
	}
}

func parseBBox(s string, verr *domain.ValidationError) *orb.Bound {
	v, ok := parseFloats(s, 4)
	if !ok {
		verr.Add("bbox", "bbox must be four numbers: minLon,minLat,maxLon,maxLat")
		return nil
	}
	p := bboxParams{MinLon: v[0], MinLat: v[1], MaxLon: v[2], MaxLat: v[3]}
	if err := validate.Struct(p); err != nil {
		collect(verr, err)
		return nil
	}
	return &orb.Bound{Min: orb.Point{p.MinLon, p.MinLat}, Max: orb.Point{p.MaxLon, p.MaxLat}}
}

func parseNear(s string, verr *domain.ValidationError) *domain.Near {
	v, ok := parseFloats(s, 3)
	if !ok {
		verr.Add("near", "near must be three numbers: lat,lon,radiusMeters")
		return nil
	}
	p := nearParams{Lat: v[0], Lon: v[1], Radius: v[2]}
	if err := validate.Struct(p); err != nil {
		collect(verr, err)
		return nil
	}
	return &domain.Near{Center: orb.Point{p.Lon, p.Lat}, RadiusMeters: p.Radius}
}

func parseFloats(s string, n int) ([]float64, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, false
	}
	out := make([]float64, n)
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

// listParam reads a comma-separated value list, lower-cased and without
// blanks or repeats. Absent or empty yields nil.
func listParam(q url.Values, key string) []string {
	var out []string
	seen := map[string]bool{}
	for _, part := range strings.Split(q.Get(key), ",") {
		v := strings.ToLower(strings.TrimSpace(part))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func intParam(q url.Values, key string, def int, verr *domain.ValidationError) int {
	if p := optIntParam(q, key, verr); p != nil {
		return *p
	}
	return def
}

func optIntParam(q url.Values, key string, verr *domain.ValidationError) *int {
	s := strings.TrimSpace(q.Get(key))
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		verr.Add(key, key+" must be an integer")
		return nil
	}
	return &n
}

func optInt64Param(q url.Values, key string, verr *domain.ValidationError) *int64 {
	s := strings.TrimSpace(q.Get(key))
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		verr.Add(key, key+" must be an integer")
		return nil
	}
	return &n
}

func boolParam(q url.Values, key string, verr *domain.ValidationError) bool {
	if p := optBoolParam(q, key, verr); p != nil {
		return *p
	}
	return false
}

// optBoolParam is tri-state: absent means no constraint, not false.
func optBoolParam(q url.Values, key string, verr *domain.ValidationError) *bool {
	s := strings.ToLower(strings.TrimSpace(q.Get(key)))
	if s == "" {
		return nil
	}
	var b bool
	switch s {
	case "true", "1":
		b = true
	case "false", "0":
		b = false
	default:
		verr.Add(key, key+" must be true or false")
		return nil
	}
	return &b
}

var messageTemplates = map[string]string{
	"latitude":  "%s must be a valid latitude (-90 to 90)",
	"longitude": "%s must be a valid longitude (-180 to 180)",
}

var messageWithParam = map[string]string{
	"oneof":    "%s must be one of: %s",
	"min":      "%s must be at least %s",
	"max":      "%s must be at most %s",
	"gte":      "%s must be greater than or equal to %s",
	"gtefield": "%s must not be less than %s",
}

// collect translates validator errors into field errors.
func collect(verr *domain.ValidationError, err error) {
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add("unknown", err.Error())
		return
	}
	for _, fe := range fieldErrs {
		field := fe.Field()
		var msg string
		if t, ok := messageTemplates[fe.Tag()]; ok {
			msg = fmt.Sprintf(t, field)
		} else if t, ok := messageWithParam[fe.Tag()]; ok {
			msg = fmt.Sprintf(t, field, fe.Param())
		} else {
			msg = fmt.Sprintf("%s failed %s validation", field, fe.Tag())
		}
		verr.Add(field, msg)
	}
}
