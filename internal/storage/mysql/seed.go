package mysql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"openstays_catalog/internal/domain"
	"openstays_catalog/internal/storage/fixture"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

// UpsertProperty writes one listing and replaces its child rows in a single
// transaction.
func (r *Repo) UpsertProperty(ctx context.Context, p domain.PropertyRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, upsertPropertySQL,
		p.ID, string(p.Status), p.Title, valStr(p.Summary), valStr(p.Description), p.RegionID,
		p.Type, p.MaxOccupancy, valInt(p.Bedrooms), valF64(p.Bathrooms),
		p.AddressLine1, valStr(p.AddressLine2), p.City, p.Region, p.Country, p.PostalCode,
		p.Lat, p.Lon,
		p.PetsAllowed, valInt(p.MaxPets), valStr(p.PetFeeType), valF64(p.PetFeeAmount), valStr(p.PetFeeCurrency),
		p.InstantBook, valInt(p.MinStayNights), valInt(p.MaxStayNights),
		valInt(p.BufferDaysBefore), valInt(p.BufferDaysAfter), valStr(p.CancellationTier),
		valF64(p.CleaningFee), valStr(p.CleaningFeeCurrency),
		valF64(p.SecurityDeposit), valStr(p.SecurityDepositCurrency),
		valInt(p.AdditionalGuestAfter), valF64(p.AdditionalGuestFee), valStr(p.AdditionalGuestFeeCurrency),
		p.GSTRegistered, valStr(p.GSTNumber),
		valF64(p.RatingAverage), p.RatingCount,
		p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("upsert property %s: %w", p.ID, err)
	}

	for _, q := range deleteChildrenSQL {
		if _, err := tx.ExecContext(ctx, q, p.ID); err != nil {
			return err
		}
	}
	for _, ph := range p.Photos {
		if _, err := tx.ExecContext(ctx, insertPhotoSQL, p.ID, ph.URL, valStr(ph.Caption), valInt(ph.Width), valInt(ph.Height), valInt(ph.Order)); err != nil {
			return err
		}
	}
	for _, set := range []struct {
		q    string
		vals []string
	}{
		{insertAmenitySQL, p.Amenities},
		{insertAccessibilitySQL, p.Accessibility},
		{insertTagSQL, p.Tags},
	} {
		for _, v := range set.vals {
			if _, err := tx.ExecContext(ctx, set.q, p.ID, v); err != nil {
				return err
			}
		}
	}
	for _, b := range p.BedConfigs {
		var label any
		if b.RoomLabel != "" {
			label = b.RoomLabel
		}
		if _, err := tx.ExecContext(ctx, insertBedConfigSQL, p.ID, label, b.BedType, b.BedCount); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *Repo) UpsertAPIKey(ctx context.Context, k fixture.APIKey) error {
	scopes, err := json.Marshal(nonNil(k.Scopes))
	if err != nil {
		return err
	}
	var expires any
	if k.ExpiresAt != nil {
		expires = k.ExpiresAt.UTC()
	}
	_, err = r.db.ExecContext(ctx, upsertAPIKeySQL, k.ID, k.KeyHash, string(scopes), k.Active, expires)
	return err
}

func (r *Repo) UpsertOAuthToken(ctx context.Context, t fixture.OAuthToken) error {
	scopes, err := json.Marshal(nonNil(t.Scopes))
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, upsertOAuthTokenSQL, t.Token, t.ClientID, string(scopes), t.ExpiresAt.UTC())
	return err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Seed loads a fixture with up to workers listings written concurrently.
// Credentials are written after the listings.
func (r *Repo) Seed(ctx context.Context, f fixture.Fixture, workers int) error {
	if workers < 1 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, p := range f.Properties {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return err
		}
		wg.Add(1)
		go func(p domain.PropertyRecord) {
			defer wg.Done()
			defer sem.Release(1)

			if err := r.UpsertProperty(ctx, p); err != nil {
				log.Warn().Str("id", p.ID).Err(err).Msg("seed property failed")
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return
			}
			log.Debug().Str("id", p.ID).Msg("seed property ok")
		}(p)
	}
	wg.Wait()

	for _, k := range f.APIKeys {
		if err := r.UpsertAPIKey(ctx, k); err != nil {
			errs = append(errs, fmt.Errorf("api key %s: %w", k.ID, err))
		}
	}
	for _, t := range f.OAuthTokens {
		if err := r.UpsertOAuthToken(ctx, t); err != nil {
			errs = append(errs, fmt.Errorf("oauth client %s: %w", t.ClientID, err))
		}
	}
	return errors.Join(errs...)
}
