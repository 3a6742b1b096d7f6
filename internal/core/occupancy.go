package core

import (
	"math"
	"time"

	"hotel_pms/internal/domain"
)

// Occupancy returns the share of propertyID's rooms held by confirmed
// bookings on asOf, as an integer percentage in [0,100]. Each qualifying
// booking counts as one occupied room unit. A property without rooms is 0%.
func Occupancy(bookings []domain.Booking, propertyID string, totalRooms int, asOf time.Time) int {
	if totalRooms <= 0 {
		return 0
	}
	return Percent(OccupiedUnits(bookings, propertyID, asOf), totalRooms)
}

// OccupiedUnits counts confirmed bookings of propertyID whose stay
// [check_in, check_out) contains asOf.
func OccupiedUnits(bookings []domain.Booking, propertyID string, asOf time.Time) int {
	day := Day(asOf)
	n := 0
	for _, b := range bookings {
		if b.PropertyID == propertyID && occupies(b, day) {
			n++
		}
	}
	return n
}

// occupies is false for zero-night and inverted stays.
func occupies(b domain.Booking, day time.Time) bool {
	if b.Status != domain.StatusConfirmed {
		return false
	}
	return !Day(b.CheckIn).After(day) && day.Before(Day(b.CheckOut))
}

// Percent rounds occupied/total to a whole percentage clamped to [0,100].
func Percent(occupied, total int) int {
	if total <= 0 || occupied <= 0 {
		return 0
	}
	p := int(math.Round(float64(occupied) / float64(total) * 100))
	if p > 100 {
		return 100
	}
	return p
}
