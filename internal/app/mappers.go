package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"hotel_pms/internal/core"
	"hotel_pms/internal/domain"
)

/********** alias registries (single source of truth) **********/

var propertyAliases = map[string][]string{
	"id":       {"id", "property_id", "uuid"},
	"name":     {"name", "property_name", "title"},
	"city":     {"city", "address.city", "location.city", "locality"},
	"country":  {"country", "address.country", "country_code", "countryCode"},
	"address":  {"address", "address.line", "full_address", "street_address", "location.address"},
	"currency": {"currency", "currency_code", "pricing.currency"},
}

var roomTypeAliases = map[string][]string{
	"id":          {"id", "room_type_id", "uuid"},
	"property_id": {"property_id", "propertyId", "property.id"},
	"name":        {"name", "title", "room_type_name"},
}

var bookingAliases = map[string][]string{
	"id":            {"id", "booking_id", "reference"},
	"property_id":   {"property_id", "propertyId", "property.id"},
	"property_name": {"properties.name", "property.name", "property_name"},
	"room_id":       {"room_id", "roomId", "room.id"},
	"room_type_id":  {"room_type_id", "roomTypeId", "room_type.id"},
	"guest_name":    {"guest_name", "guestName", "guest.name", "customer_name"},
	"guest_first":   {"guest_first_name", "guest.first_name", "first_name"},
	"guest_last":    {"guest_last_name", "guest.last_name", "last_name"},
	"guest_email":   {"guest_email", "guest.email", "email"},
	"check_in":      {"check_in", "check_in_date", "checkIn", "start_date", "arrival"},
	"check_out":     {"check_out", "check_out_date", "checkOut", "end_date", "departure"},
	"status":        {"status", "booking_status", "state"},
	"source":        {"source", "channel", "booking_source", "origin"},
	"created_at":    {"created_at", "createdAt", "booked_at", "inserted_at"},
}

var (
	amountPaths    = []string{"total_amount", "amount", "total_price", "price", "pricing.total"}
	roomCountPaths = []string{"number_of_rooms", "numberOfRooms", "quantity", "total_rooms", "room_count"}
	maxGuestPaths  = []string{"max_guests", "max_occupancy", "capacity", "occupancy.max"}
	basePricePaths = []string{"base_price", "basePrice", "price", "pricing.base"}
)

var errMissingField = errors.New("missing required field")

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns the value at path as a string, or "". Numeric ids are
// rendered without a fraction.
func lookupStr(m map[string]any, path string) string {
	switch v := lookupAny(m, path).(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) *string {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" {
			return &s
		}
	}
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func joinNonEmpty(parts ...string) string {
	var out []string
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, " ")
}

// getFloatFlexible: number from several paths (float64/int/string like "8,0").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

func getIntFlexible(m map[string]any, paths ...string) *int {
	if f := getFloatFlexible(m, paths...); f != nil {
		n := int(*f)
		return &n
	}
	return nil
}

var dateLayouts = []string{
	dateLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999-07",
}

func parseTimeFlexible(s string) (time.Time, bool) {
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func firstTime(m map[string]any, aliases map[string][]string, key string) (time.Time, bool) {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" {
			if t, ok := parseTimeFlexible(s); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func rawJSON(row map[string]any, context string) []byte {
	raw, err := json.Marshal(row)
	if err != nil {
		log.Error().Err(err).Str("context", context).Msg("marshal row failed")
		return nil
	}
	return raw
}

/********** property mapper **********/

func mapProperty(p map[string]any) (domain.Property, error) {
	id := deref(firstNonEmptyAlias(p, propertyAliases, "id"))
	if id == "" {
		return domain.Property{}, fmt.Errorf("property id: %w", errMissingField)
	}

	out := domain.Property{
		ID:       id,
		Name:     deref(firstNonEmptyAlias(p, propertyAliases, "name")),
		City:     firstNonEmptyAlias(p, propertyAliases, "city"),
		Country:  firstNonEmptyAlias(p, propertyAliases, "country"),
		Address:  firstNonEmptyAlias(p, propertyAliases, "address"),
		Lat:      getFloatFlexible(p, "latitude", "lat", "location.lat"),
		Lon:      getFloatFlexible(p, "longitude", "lon", "lng", "location.lon", "location.lng"),
		Currency: strings.ToUpper(deref(firstNonEmptyAlias(p, propertyAliases, "currency"))),
		RawJSON:  rawJSON(p, "mapProperty"),
	}
	if f := getFloatFlexible(p, basePricePaths...); f != nil {
		out.BasePrice = *f
	}
	if out.Currency == "" {
		out.Currency = "USD"
	}
	return out, nil
}

/********** room type mapper **********/

func mapRoomType(r map[string]any) (domain.RoomType, error) {
	id := deref(firstNonEmptyAlias(r, roomTypeAliases, "id"))
	pid := deref(firstNonEmptyAlias(r, roomTypeAliases, "property_id"))
	if id == "" || pid == "" {
		return domain.RoomType{}, fmt.Errorf("room type id/property_id: %w", errMissingField)
	}

	out := domain.RoomType{
		ID:            id,
		PropertyID:    pid,
		Name:          deref(firstNonEmptyAlias(r, roomTypeAliases, "name")),
		NumberOfRooms: 1,
		MaxGuests:     getIntFlexible(r, maxGuestPaths...),
		RawJSON:       rawJSON(r, "mapRoomType"),
	}
	if n := getIntFlexible(r, roomCountPaths...); n != nil {
		out.NumberOfRooms = *n
	}
	if f := getFloatFlexible(r, basePricePaths...); f != nil {
		out.BasePrice = *f
	}
	return out, nil
}

/********** booking mapper **********/

func mapBooking(r map[string]any) (domain.Booking, error) {
	id := deref(firstNonEmptyAlias(r, bookingAliases, "id"))
	pid := deref(firstNonEmptyAlias(r, bookingAliases, "property_id"))
	if id == "" || pid == "" {
		return domain.Booking{}, fmt.Errorf("booking id/property_id: %w", errMissingField)
	}
	in, okIn := firstTime(r, bookingAliases, "check_in")
	out, okOut := firstTime(r, bookingAliases, "check_out")
	if !okIn || !okOut {
		return domain.Booking{}, fmt.Errorf("booking %s dates: %w", id, errMissingField)
	}

	b := domain.Booking{
		ID:           id,
		PropertyID:   pid,
		PropertyName: deref(firstNonEmptyAlias(r, bookingAliases, "property_name")),
		RoomID:       firstNonEmptyAlias(r, bookingAliases, "room_id"),
		RoomTypeID:   firstNonEmptyAlias(r, bookingAliases, "room_type_id"),
		GuestEmail:   firstNonEmptyAlias(r, bookingAliases, "guest_email"),
		CheckIn:      core.Day(in),
		CheckOut:     core.Day(out),
		Source:       domain.ParseSource(deref(firstNonEmptyAlias(r, bookingAliases, "source"))),
		RawJSON:      rawJSON(r, "mapBooking"),
	}

	// Guest → prefer single field; fallback to first + last.
	if s := firstNonEmptyAlias(r, bookingAliases, "guest_name"); s != nil {
		b.GuestName = s
	} else if full := joinNonEmpty(
		deref(firstNonEmptyAlias(r, bookingAliases, "guest_first")),
		deref(firstNonEmptyAlias(r, bookingAliases, "guest_last")),
	); full != "" {
		b.GuestName = &full
	}

	raw := deref(firstNonEmptyAlias(r, bookingAliases, "status"))
	if st, ok := domain.ParseStatus(raw); ok {
		b.Status = st
	} else {
		log.Warn().Str("booking_id", id).Str("status", raw).Msg("unknown booking status, treating as pending")
		b.Status = domain.StatusPending
	}

	// missing or malformed amounts count as zero
	if f := getFloatFlexible(r, amountPaths...); f != nil && !math.IsNaN(*f) && !math.IsInf(*f, 0) {
		b.Amount = *f
	}
	if t, ok := firstTime(r, bookingAliases, "created_at"); ok {
		b.CreatedAt = t.UTC()
	}
	return b, nil
}
