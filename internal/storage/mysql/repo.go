package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"openstays_catalog/internal/adapters/observability"
	"openstays_catalog/internal/domain"
)

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

// Fetch runs the parent query, then loads the child collections of the
// returned page with one IN query per collection.
func (r *Repo) Fetch(ctx context.Context, spec domain.FetchSpec) (out []domain.PropertyRecord, err error) {
	start := time.Now()
	defer func() { observability.ObserveStore("mysql", "fetch", err, time.Since(start)) }()

	q, args, err := buildFetch(spec)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out = make([]domain.PropertyRecord, 0, spec.Limit)
	for rows.Next() {
		rec, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}
	if err := r.loadChildren(ctx, out); err != nil {
		return nil, fmt.Errorf("load children: %w", err)
	}
	return out, nil
}

func scanProperty(rows *sql.Rows) (domain.PropertyRecord, error) {
	var rec domain.PropertyRecord
	var (
		status                                   string
		summary, description, addressLine2       sql.NullString
		bedrooms, maxPets, minStay, maxStay      sql.NullInt64
		bufBefore, bufAfter, guestAfter          sql.NullInt64
		bathrooms, petFee, cleaning, deposit     sql.NullFloat64
		guestFee, rating                         sql.NullFloat64
		petFeeType, petFeeCur, tier, cleaningCur sql.NullString
		depositCur, guestFeeCur, gstNumber       sql.NullString
	)
	if err := rows.Scan(
		&rec.ID, &status, &rec.Title, &summary, &description, &rec.RegionID,
		&rec.Type, &rec.MaxOccupancy, &bedrooms, &bathrooms,
		&rec.AddressLine1, &addressLine2, &rec.City, &rec.Region, &rec.Country, &rec.PostalCode,
		&rec.Lat, &rec.Lon,
		&rec.PetsAllowed, &maxPets, &petFeeType, &petFee, &petFeeCur,
		&rec.InstantBook, &minStay, &maxStay,
		&bufBefore, &bufAfter, &tier,
		&cleaning, &cleaningCur,
		&deposit, &depositCur,
		&guestAfter, &guestFee, &guestFeeCur,
		&rec.GSTRegistered, &gstNumber,
		&rating, &rec.RatingCount,
		&rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return domain.PropertyRecord{}, err
	}
	rec.Status = domain.PropertyStatus(status)
	rec.Summary = nullStr(summary)
	rec.Description = nullStr(description)
	rec.AddressLine2 = nullStr(addressLine2)
	rec.Bedrooms = nullInt(bedrooms)
	rec.Bathrooms = nullF64(bathrooms)
	rec.MaxPets = nullInt(maxPets)
	rec.PetFeeType = nullStr(petFeeType)
	rec.PetFeeAmount = nullF64(petFee)
	rec.PetFeeCurrency = nullStr(petFeeCur)
	rec.MinStayNights = nullInt(minStay)
	rec.MaxStayNights = nullInt(maxStay)
	rec.BufferDaysBefore = nullInt(bufBefore)
	rec.BufferDaysAfter = nullInt(bufAfter)
	rec.CancellationTier = nullStr(tier)
	rec.CleaningFee = nullF64(cleaning)
	rec.CleaningFeeCurrency = nullStr(cleaningCur)
	rec.SecurityDeposit = nullF64(deposit)
	rec.SecurityDepositCurrency = nullStr(depositCur)
	rec.AdditionalGuestAfter = nullInt(guestAfter)
	rec.AdditionalGuestFee = nullF64(guestFee)
	rec.AdditionalGuestFeeCurrency = nullStr(guestFeeCur)
	rec.GSTNumber = nullStr(gstNumber)
	rec.RatingAverage = nullF64(rating)
	return rec, nil
}

// children holds one collection per property id; each loader goroutine owns
// exactly one map so no locking is needed.
type children struct {
	photos        map[string][]domain.Photo
	amenities     map[string][]string
	accessibility map[string][]string
	tags          map[string][]string
	beds          map[string][]domain.BedConfigRow
}

func (r *Repo) loadChildren(ctx context.Context, recs []domain.PropertyRecord) error {
	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID
	}
	where, args := inClause(ids)

	var c children
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		c.photos, err = r.photos(gctx, selectPhotosSQL+where+photosOrder, args)
		return err
	})
	g.Go(func() (err error) {
		c.amenities, err = r.labels(gctx, selectAmenitiesSQL+where+amenitiesOrder, args)
		return err
	})
	g.Go(func() (err error) {
		c.accessibility, err = r.labels(gctx, selectAccessibilitySQL+where+accessibilityOrder, args)
		return err
	})
	g.Go(func() (err error) {
		c.tags, err = r.labels(gctx, selectTagsSQL+where+tagsOrder, args)
		return err
	})
	g.Go(func() (err error) {
		c.beds, err = r.beds(gctx, selectBedConfigsSQL+where+bedConfigsOrder, args)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range recs {
		id := recs[i].ID
		recs[i].Photos = c.photos[id]
		recs[i].Amenities = c.amenities[id]
		recs[i].Accessibility = c.accessibility[id]
		recs[i].Tags = c.tags[id]
		recs[i].BedConfigs = c.beds[id]
	}
	return nil
}

func (r *Repo) labels(ctx context.Context, q string, args []any) (map[string][]string, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]string{}
	for rows.Next() {
		var id, v string
		if err := rows.Scan(&id, &v); err != nil {
			return nil, err
		}
		out[id] = append(out[id], v)
	}
	return out, rows.Err()
}

func (r *Repo) photos(ctx context.Context, q string, args []any) (map[string][]domain.Photo, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]domain.Photo{}
	for rows.Next() {
		var id string
		var ph domain.Photo
		var caption sql.NullString
		var width, height, order sql.NullInt64
		if err := rows.Scan(&id, &ph.URL, &caption, &width, &height, &order); err != nil {
			return nil, err
		}
		ph.Caption = nullStr(caption)
		ph.Width = nullInt(width)
		ph.Height = nullInt(height)
		ph.Order = nullInt(order)
		out[id] = append(out[id], ph)
	}
	return out, rows.Err()
}

func (r *Repo) beds(ctx context.Context, q string, args []any) (map[string][]domain.BedConfigRow, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]domain.BedConfigRow{}
	for rows.Next() {
		var id string
		var b domain.BedConfigRow
		var label sql.NullString
		if err := rows.Scan(&id, &label, &b.BedType, &b.BedCount); err != nil {
			return nil, err
		}
		b.RoomLabel = label.String
		out[id] = append(out[id], b)
	}
	return out, rows.Err()
}

func (r *Repo) LookupAPIKey(ctx context.Context, keyHash string) (c domain.Credential, err error) {
	start := time.Now()
	defer func() { observability.ObserveStore("mysql", "api_key", err, time.Since(start)) }()

	var scopes []byte
	var expires sql.NullTime
	err = r.db.QueryRowContext(ctx, getAPIKeySQL, keyHash).Scan(&c.ID, &scopes, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Credential{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Credential{}, err
	}
	if err := json.Unmarshal(scopes, &c.Scopes); err != nil {
		return domain.Credential{}, fmt.Errorf("api key %s scopes: %w", c.ID, err)
	}
	if expires.Valid {
		t := expires.Time
		c.ExpiresAt = &t
	}
	c.Kind = domain.IdentityAPIKey
	return c, nil
}

func (r *Repo) LookupOAuthToken(ctx context.Context, token string) (c domain.Credential, err error) {
	start := time.Now()
	defer func() { observability.ObserveStore("mysql", "oauth_token", err, time.Since(start)) }()

	var scopes []byte
	var expires time.Time
	err = r.db.QueryRowContext(ctx, getOAuthTokenSQL, token).Scan(&c.ID, &scopes, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Credential{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Credential{}, err
	}
	if err := json.Unmarshal(scopes, &c.Scopes); err != nil {
		return domain.Credential{}, fmt.Errorf("oauth client %s scopes: %w", c.ID, err)
	}
	c.ExpiresAt = &expires
	c.Kind = domain.IdentityOAuth
	return c, nil
}

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullF64(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
