// Package core holds the pure booking computations: occupancy, overlap
// detection and dashboard aggregation. Nothing here performs I/O or reads
// the wall clock; callers pass a captured "now".
package core

import (
	"math"
	"time"

	"hotel_pms/internal/domain"
)

// Day truncates t to its calendar date, keyed at UTC midnight. Only the
// year/month/day fields of t are read, so a DATE column scanned at UTC
// midnight and a wall-clock "now" in the hotel's zone compare as the same
// day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func monthStart(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// within reports lo <= d <= hi.
func within(d, lo, hi time.Time) bool {
	return !d.Before(lo) && !d.After(hi)
}

// StatusSet selects which booking statuses a computation considers.
// The zero value means confirmed only.
type StatusSet map[domain.Status]struct{}

func Statuses(ss ...domain.Status) StatusSet {
	set := make(StatusSet, len(ss))
	for _, s := range ss {
		set[s] = struct{}{}
	}
	return set
}

func (s StatusSet) Has(st domain.Status) bool {
	if len(s) == 0 {
		return st == domain.StatusConfirmed
	}
	_, ok := s[st]
	return ok
}

// amountOf treats non-finite amounts as zero so sums stay defined.
func amountOf(b domain.Booking) float64 {
	if math.IsNaN(b.Amount) || math.IsInf(b.Amount, 0) {
		return 0
	}
	return b.Amount
}
