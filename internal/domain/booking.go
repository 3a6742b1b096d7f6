package domain

import (
	"strings"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// ParseStatus is lenient: unknown values come back with ok=false so callers
// can pick their own fallback.
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, true
	case StatusConfirmed:
		return StatusConfirmed, true
	case StatusCancelled, "canceled":
		return StatusCancelled, true
	case StatusCompleted:
		return StatusCompleted, true
	}
	return "", false
}

// CanTransition reports whether a booking may move from s to next.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusCompleted || next == StatusCancelled
	}
	return false
}

type Source string

const (
	SourceWebsite Source = "website"
	SourceAdmin   Source = "admin"
	SourcePhone   Source = "phone"
	SourceWalkIn  Source = "walk_in"
	SourceOTA     Source = "ota"
	SourceOther   Source = "other"
)

func ParseSource(s string) Source {
	switch v := Source(strings.ToLower(strings.TrimSpace(s))); v {
	case SourceWebsite, SourceAdmin, SourcePhone, SourceWalkIn, SourceOTA:
		return v
	case "walk-in", "walkin":
		return SourceWalkIn
	case "direct", "storefront", "web":
		return SourceWebsite
	}
	return SourceOther
}

// Booking is a snapshot row. CheckIn and CheckOut are calendar dates; only
// their year/month/day are meaningful and CheckOut is exclusive.
type Booking struct {
	ID           string    `json:"id"`
	PropertyID   string    `json:"property_id"`
	PropertyName string    `json:"property_name,omitempty"` // joined for display, may be empty
	RoomID       *string   `json:"room_id,omitempty"`
	RoomTypeID   *string   `json:"room_type_id,omitempty"`
	GuestName    *string   `json:"guest_name,omitempty"`
	GuestEmail   *string   `json:"guest_email,omitempty"`
	CheckIn      time.Time `json:"check_in"`
	CheckOut     time.Time `json:"check_out"`
	Status       Status    `json:"status"`
	Source       Source    `json:"source"`
	Amount       float64   `json:"amount"`
	CreatedAt    time.Time `json:"created_at"`
	RawJSON      []byte    `json:"-"`
}

// NewBooking is the write model accepted by the booking commands.
type NewBooking struct {
	PropertyID string
	RoomID     *string
	RoomTypeID *string
	GuestName  *string
	GuestEmail *string
	CheckIn    time.Time
	CheckOut   time.Time
	Source     Source
	Amount     float64
}

type BookingFilter struct {
	PropertyID *string
	RoomTypeID *string
	// From/To select bookings whose stay overlaps [From, To).
	From, To *time.Time
	Statuses []Status
	Limit    int
}
