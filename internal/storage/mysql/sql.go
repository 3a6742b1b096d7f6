package mysql

const upsertPropertySQL = `
INSERT INTO properties
  (id, name, city, country, address, lat, lon, base_price, currency, raw)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  name       = VALUES(name),
  city       = VALUES(city),
  country    = VALUES(country),
  address    = VALUES(address),
  lat        = VALUES(lat),
  lon        = VALUES(lon),
  base_price = VALUES(base_price),
  currency   = VALUES(currency),
  raw        = VALUES(raw),
  updated_at = CURRENT_TIMESTAMP
`

const upsertRoomTypeSQL = `
INSERT INTO room_types
  (id, property_id, name, number_of_rooms, max_guests, base_price, raw)
VALUES
  (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  property_id     = VALUES(property_id),
  name            = VALUES(name),
  number_of_rooms = VALUES(number_of_rooms),
  max_guests      = VALUES(max_guests),
  base_price      = VALUES(base_price),
  raw             = VALUES(raw)
`

// created_at keeps the store's value when present; COALESCE falls back to now.
const upsertBookingSQL = `
INSERT INTO bookings
  (id, property_id, room_id, room_type_id, guest_name, guest_email,
   check_in, check_out, status, source, amount, raw, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP(3)))
ON DUPLICATE KEY UPDATE
  property_id  = VALUES(property_id),
  room_id      = VALUES(room_id),
  room_type_id = VALUES(room_type_id),
  guest_name   = VALUES(guest_name),
  guest_email  = VALUES(guest_email),
  check_in     = VALUES(check_in),
  check_out    = VALUES(check_out),
  status       = VALUES(status),
  source       = VALUES(source),
  amount       = VALUES(amount),
  raw          = VALUES(raw),
  created_at   = VALUES(created_at)
`

const insertBookingSQL = `
INSERT INTO bookings
  (id, property_id, room_id, room_type_id, guest_name, guest_email,
   check_in, check_out, status, source, amount, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updateBookingStatusSQL = `UPDATE bookings SET status = ? WHERE id = ?`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const selectPropertyCols = `
SELECT id, name, city, country, address, lat, lon, base_price, currency
FROM properties
`

const selectRoomTypeCols = `
SELECT id, property_id, name, number_of_rooms, max_guests, base_price
FROM room_types
`

// Bookings come back joined with the owning property's name for display.
const selectBookingCols = `
SELECT
  b.id,
  b.property_id,
  COALESCE(p.name, ''),
  b.room_id,
  b.room_type_id,
  b.guest_name,
  b.guest_email,
  b.check_in,
  b.check_out,
  b.status,
  b.source,
  b.amount,
  b.created_at
FROM bookings b
LEFT JOIN properties p ON p.id = b.property_id
`
