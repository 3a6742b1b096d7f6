package core

import (
	"fmt"
	"sort"
	"time"

	"hotel_pms/internal/domain"
)

const dateLayout = "2006-01-02"

// InvalidRangeError reports a stay whose check-in is not before its
// check-out. BookingID is set when the offending range came from a stored
// booking rather than the candidate.
type InvalidRangeError struct {
	BookingID string
	CheckIn   time.Time
	CheckOut  time.Time
}

func (e *InvalidRangeError) Error() string {
	if e.BookingID != "" {
		return fmt.Sprintf("booking %s: check-in %s is not before check-out %s",
			e.BookingID, e.CheckIn.Format(dateLayout), e.CheckOut.Format(dateLayout))
	}
	return fmt.Sprintf("check-in %s is not before check-out %s",
		e.CheckIn.Format(dateLayout), e.CheckOut.Format(dateLayout))
}

// ValidateRange checks checkIn < checkOut at day granularity.
func ValidateRange(checkIn, checkOut time.Time) error {
	if !Day(checkIn).Before(Day(checkOut)) {
		return &InvalidRangeError{CheckIn: Day(checkIn), CheckOut: Day(checkOut)}
	}
	return nil
}

// Overlaps reports whether the half-open stays [a1,a2) and [b1,b2) share a
// night. A check-out and a check-in on the same day do not overlap.
func Overlaps(a1, a2, b1, b2 time.Time) bool {
	return Day(a1).Before(Day(b2)) && Day(b1).Before(Day(a2))
}

// HasOverlap reports whether any booking with a status in statuses overlaps
// the candidate stay. It stops at the first match.
func HasOverlap(existing []domain.Booking, checkIn, checkOut time.Time, statuses StatusSet) (bool, error) {
	found := false
	err := scanConflicts(existing, checkIn, checkOut, statuses, func(domain.Booking) bool {
		found = true
		return false
	})
	return found, err
}

// FindConflicts returns every considered booking that overlaps the
// candidate stay, in input order.
func FindConflicts(existing []domain.Booking, checkIn, checkOut time.Time, statuses StatusSet) ([]domain.Booking, error) {
	var out []domain.Booking
	err := scanConflicts(existing, checkIn, checkOut, statuses, func(b domain.Booking) bool {
		out = append(out, b)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PeakOccupied returns the highest number of considered bookings sharing a
// single night inside the candidate stay.
func PeakOccupied(existing []domain.Booking, checkIn, checkOut time.Time, statuses StatusSet) (int, error) {
	conflicts, err := FindConflicts(existing, checkIn, checkOut, statuses)
	if err != nil {
		return 0, err
	}
	if len(conflicts) == 0 {
		return 0, nil
	}

	type edge struct {
		at    time.Time
		delta int
	}
	lo, hi := Day(checkIn), Day(checkOut)
	edges := make([]edge, 0, 2*len(conflicts))
	for _, b := range conflicts {
		start, end := Day(b.CheckIn), Day(b.CheckOut)
		if start.Before(lo) {
			start = lo
		}
		if end.After(hi) {
			end = hi
		}
		edges = append(edges, edge{start, 1}, edge{end, -1})
	}
	// departures before arrivals on the same day
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].at.Equal(edges[j].at) {
			return edges[i].delta < edges[j].delta
		}
		return edges[i].at.Before(edges[j].at)
	})

	cur, peak := 0, 0
	for _, e := range edges {
		cur += e.delta
		if cur > peak {
			peak = cur
		}
	}
	return peak, nil
}

// scanConflicts calls yield for each overlapping booking until yield
// returns false.
func scanConflicts(existing []domain.Booking, checkIn, checkOut time.Time, statuses StatusSet, yield func(domain.Booking) bool) error {
	if err := ValidateRange(checkIn, checkOut); err != nil {
		return err
	}
	for _, b := range existing {
		if !statuses.Has(b.Status) {
			continue
		}
		if !Day(b.CheckIn).Before(Day(b.CheckOut)) {
			return &InvalidRangeError{BookingID: b.ID, CheckIn: Day(b.CheckIn), CheckOut: Day(b.CheckOut)}
		}
		if Overlaps(b.CheckIn, b.CheckOut, checkIn, checkOut) && !yield(b) {
			return nil
		}
	}
	return nil
}
