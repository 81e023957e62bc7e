package mysql

// propertyColumns is the projection of every fetch; scanProperty reads it in
// this order.
const propertyColumns = `
  p.id, p.status, p.title, p.summary, p.description, p.region_id,
  p.property_type, p.max_occupancy, p.bedrooms, p.bathrooms,
  p.address_line1, p.address_line2, p.city, p.region, p.country, p.postal_code,
  p.lat, p.lon,
  p.pets_allowed, p.max_pets, p.pet_fee_type, p.pet_fee_amount, p.pet_fee_currency,
  p.instant_book, p.min_stay_nights, p.max_stay_nights,
  p.buffer_days_before, p.buffer_days_after, p.cancellation_tier,
  p.cleaning_fee, p.cleaning_fee_currency,
  p.security_deposit, p.security_deposit_currency,
  p.additional_guest_after, p.additional_guest_fee, p.additional_guest_fee_currency,
  p.gst_registered, p.gst_number,
  p.rating_average, p.rating_count,
  p.created_at, p.updated_at`

// Child collections; each gets " WHERE property_id IN (...)" plus its order.
const (
	selectPhotosSQL        = `SELECT property_id, url, caption, width, height, sort_order FROM property_photos`
	photosOrder            = ` ORDER BY property_id, sort_order IS NULL, sort_order, id`
	selectAmenitiesSQL     = `SELECT property_id, amenity FROM property_amenities`
	amenitiesOrder         = ` ORDER BY property_id, amenity`
	selectAccessibilitySQL = `SELECT property_id, feature FROM property_accessibility`
	accessibilityOrder     = ` ORDER BY property_id, feature`
	selectTagsSQL          = `SELECT property_id, tag FROM property_tags`
	tagsOrder              = ` ORDER BY property_id, tag`
	selectBedConfigsSQL    = `SELECT property_id, room_label, bed_type, bed_count FROM property_bed_configs`
	bedConfigsOrder        = ` ORDER BY property_id, id`
)

const getAPIKeySQL = `
SELECT id, scopes, expires_at
FROM api_keys
WHERE key_hash = ? AND active = 1
`

const getOAuthTokenSQL = `
SELECT client_id, scopes, expires_at
FROM oauth_tokens
WHERE token = ?
`

// -----------------------------------------------------------------------------
// SEED WRITES
// -----------------------------------------------------------------------------

const upsertPropertySQL = `
INSERT INTO properties
  (id, status, title, summary, description, region_id, property_type, max_occupancy,
   bedrooms, bathrooms, address_line1, address_line2, city, region, country, postal_code,
   lat, lon, pets_allowed, max_pets, pet_fee_type, pet_fee_amount, pet_fee_currency,
   instant_book, min_stay_nights, max_stay_nights, buffer_days_before, buffer_days_after,
   cancellation_tier, cleaning_fee, cleaning_fee_currency, security_deposit,
   security_deposit_currency, additional_guest_after, additional_guest_fee,
   additional_guest_fee_currency, gst_registered, gst_number, rating_average,
   rating_count, created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
   ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  status = VALUES(status), title = VALUES(title), summary = VALUES(summary),
  description = VALUES(description), region_id = VALUES(region_id),
  property_type = VALUES(property_type), max_occupancy = VALUES(max_occupancy),
  bedrooms = VALUES(bedrooms), bathrooms = VALUES(bathrooms),
  address_line1 = VALUES(address_line1), address_line2 = VALUES(address_line2),
  city = VALUES(city), region = VALUES(region), country = VALUES(country),
  postal_code = VALUES(postal_code), lat = VALUES(lat), lon = VALUES(lon),
  pets_allowed = VALUES(pets_allowed), max_pets = VALUES(max_pets),
  pet_fee_type = VALUES(pet_fee_type), pet_fee_amount = VALUES(pet_fee_amount),
  pet_fee_currency = VALUES(pet_fee_currency), instant_book = VALUES(instant_book),
  min_stay_nights = VALUES(min_stay_nights), max_stay_nights = VALUES(max_stay_nights),
  buffer_days_before = VALUES(buffer_days_before), buffer_days_after = VALUES(buffer_days_after),
  cancellation_tier = VALUES(cancellation_tier), cleaning_fee = VALUES(cleaning_fee),
  cleaning_fee_currency = VALUES(cleaning_fee_currency),
  security_deposit = VALUES(security_deposit),
  security_deposit_currency = VALUES(security_deposit_currency),
  additional_guest_after = VALUES(additional_guest_after),
  additional_guest_fee = VALUES(additional_guest_fee),
  additional_guest_fee_currency = VALUES(additional_guest_fee_currency),
  gst_registered = VALUES(gst_registered), gst_number = VALUES(gst_number),
  rating_average = VALUES(rating_average), rating_count = VALUES(rating_count),
  updated_at = VALUES(updated_at)
`

// Children are replaced wholesale on every seed.
var deleteChildrenSQL = []string{
	`DELETE FROM property_photos WHERE property_id = ?`,
	`DELETE FROM property_amenities WHERE property_id = ?`,
	`DELETE FROM property_accessibility WHERE property_id = ?`,
	`DELETE FROM property_tags WHERE property_id = ?`,
	`DELETE FROM property_bed_configs WHERE property_id = ?`,
}

const (
	insertPhotoSQL         = `INSERT INTO property_photos (property_id, url, caption, width, height, sort_order) VALUES (?, ?, ?, ?, ?, ?)`
	insertAmenitySQL       = `INSERT IGNORE INTO property_amenities (property_id, amenity) VALUES (?, ?)`
	insertAccessibilitySQL = `INSERT IGNORE INTO property_accessibility (property_id, feature) VALUES (?, ?)`
	insertTagSQL           = `INSERT IGNORE INTO property_tags (property_id, tag) VALUES (?, ?)`
	insertBedConfigSQL     = `INSERT INTO property_bed_configs (property_id, room_label, bed_type, bed_count) VALUES (?, ?, ?, ?)`
)

const upsertAPIKeySQL = `
INSERT INTO api_keys (id, key_hash, scopes, active, expires_at)
VALUES (?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  key_hash = VALUES(key_hash), scopes = VALUES(scopes),
  active = VALUES(active), expires_at = VALUES(expires_at)
`

const upsertOAuthTokenSQL = `
INSERT INTO oauth_tokens (token, client_id, scopes, expires_at)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  client_id = VALUES(client_id), scopes = VALUES(scopes), expires_at = VALUES(expires_at)
`
