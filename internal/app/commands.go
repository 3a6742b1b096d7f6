package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"hotel_pms/internal/core"
	"hotel_pms/internal/domain"
)

// blocking is the status set that holds inventory when a new booking is
// placed: an unconfirmed request still reserves its room.
var blocking = core.Statuses(domain.StatusPending, domain.StatusConfirmed)

const (
	// a crashed holder frees the property after lockTTL
	lockTTL      = 10 * time.Second
	lockWait     = 3 * time.Second
	lockInterval = 25 * time.Millisecond
)

type BookingService struct {
	props   domain.PropertyRepository
	books   domain.BookingRepository
	cache   domain.Cache
	idemTTL time.Duration
	now     func() time.Time
	newID   func() string

	// per-property mutexes; the cache lock covers other instances
	locks sync.Map
}

func NewBookingService(p domain.PropertyRepository, b domain.BookingRepository, c domain.Cache, idemTTL time.Duration) *BookingService {
	return &BookingService{
		props:   p,
		books:   b,
		cache:   c,
		idemTTL: idemTTL,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// WithClock replaces the wall clock, e.g. to pin the hotel's time zone.
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

// CreateBooking places a new pending booking after checking the stay fits
// the remaining capacity. A non-empty idempotencyKey is claimed first; a
// replay of the same key gets ErrDuplicateRequest.
func (s *BookingService) CreateBooking(ctx context.Context, nb domain.NewBooking, idempotencyKey string) (b domain.Booking, err error) {
	if err := core.ValidateRange(nb.CheckIn, nb.CheckOut); err != nil {
		return domain.Booking{}, err
	}

	if idempotencyKey != "" && s.cache != nil {
		key := idemKey(idempotencyKey)
		ok, cerr := s.cache.Claim(ctx, key, int(s.idemTTL.Seconds()))
		if cerr != nil {
			return domain.Booking{}, fmt.Errorf("claim idempotency key: %w", cerr)
		}
		if !ok {
			return domain.Booking{}, domain.ErrDuplicateRequest
		}
		// a failed attempt must not burn the key
		defer func() {
			if err != nil {
				_ = s.cache.Del(context.WithoutCancel(ctx), key)
			}
		}()
	}

	unlock, err := s.lockProperty(ctx, nb.PropertyID)
	if err != nil {
		return domain.Booking{}, err
	}
	defer unlock()

	in, out := core.Day(nb.CheckIn), core.Day(nb.CheckOut)
	if err := s.checkCapacity(ctx, nb, in, out); err != nil {
		return domain.Booking{}, err
	}

	now := s.now()
	b = domain.Booking{
		ID:         s.newID(),
		PropertyID: nb.PropertyID,
		RoomID:     nb.RoomID,
		RoomTypeID: nb.RoomTypeID,
		GuestName:  nb.GuestName,
		GuestEmail: nb.GuestEmail,
		CheckIn:    in,
		CheckOut:   out,
		Status:     domain.StatusPending,
		Source:     nb.Source,
		Amount:     nb.Amount,
		CreatedAt:  now.UTC(),
	}
	if b.Source == "" {
		b.Source = domain.SourceWebsite
	}
	if err := s.books.CreateBooking(ctx, b); err != nil {
		return domain.Booking{}, err
	}

	invalidateStay(ctx, s.cache, b, now)
	log.Info().
		Str("booking_id", b.ID).
		Str("property_id", b.PropertyID).
		Str("check_in", in.Format(dateLayout)).
		Str("check_out", out.Format(dateLayout)).
		Msg("booking created")
	return b, nil
}

// lockProperty serialises capacity check and insert for one property:
// in-process via a mutex, across instances via a claim in the cache.
func (s *BookingService) lockProperty(ctx context.Context, propertyID string) (func(), error) {
	m, _ := s.locks.LoadOrStore(propertyID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	if s.cache == nil {
		return mu.Unlock, nil
	}

	key := lockKey(propertyID)
	deadline := time.NewTimer(lockWait)
	defer deadline.Stop()
	tick := time.NewTicker(lockInterval)
	defer tick.Stop()
	for {
		ok, err := s.cache.Claim(ctx, key, int(lockTTL.Seconds()))
		if err != nil {
			mu.Unlock()
			return nil, fmt.Errorf("claim booking lock: %w", err)
		}
		if ok {
			return func() {
				// the caller's ctx may already be done
				_ = s.cache.Del(context.WithoutCancel(ctx), key)
				mu.Unlock()
			}, nil
		}
		select {
		case <-ctx.Done():
			mu.Unlock()
			return nil, ctx.Err()
		case <-deadline.C:
			mu.Unlock()
			return nil, fmt.Errorf("property %s is locked by another booking: %w", propertyID, domain.ErrConflict)
		case <-tick.C:
		}
	}
}

func (s *BookingService) checkCapacity(ctx context.Context, nb domain.NewBooking, in, out time.Time) error {
	p := nb.PropertyID
	if _, err := s.props.GetProperty(ctx, p); err != nil {
		return err
	}
	rts, err := s.props.ListRoomTypes(ctx, &p)
	if err != nil {
		return err
	}
	pv := domain.PropertyView{RoomTypes: rts, TotalRooms: domain.TotalRooms(rts, p)}
	capacity, err := capacityOf(pv, nb.RoomTypeID)
	if err != nil {
		return err
	}

	existing, err := s.books.ListBookings(ctx, domain.BookingFilter{
		PropertyID: &p,
		RoomTypeID: nb.RoomTypeID,
		From:       &in,
		To:         &out,
		Statuses:   statusList(blocking),
	})
	if err != nil {
		return err
	}

	if nb.RoomID != nil {
		var sameRoom []domain.Booking
		for _, e := range existing {
			if e.RoomID != nil && *e.RoomID == *nb.RoomID {
				sameRoom = append(sameRoom, e)
			}
		}
		taken, err := core.HasOverlap(sameRoom, in, out, blocking)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("room %s: %w", *nb.RoomID, domain.ErrConflict)
		}
	}

	peak, err := core.PeakOccupied(existing, in, out, blocking)
	if err != nil {
		return err
	}
	if peak >= capacity {
		return fmt.Errorf("property %s has %d of %d rooms taken: %w", p, peak, capacity, domain.ErrConflict)
	}
	return nil
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	return s.books.GetBooking(ctx, id)
}

// UpdateStatus moves a booking along its lifecycle.
func (s *BookingService) UpdateStatus(ctx context.Context, id string, next domain.Status) (domain.Booking, error) {
	b, err := s.books.GetBooking(ctx, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if !b.Status.CanTransition(next) {
		return domain.Booking{}, fmt.Errorf("%s -> %s: %w", b.Status, next, domain.ErrInvalidTransition)
	}
	if err := s.books.UpdateBookingStatus(ctx, id, next); err != nil {
		return domain.Booking{}, err
	}
	b.Status = next

	invalidateStay(ctx, s.cache, b, s.now())
	log.Info().
		Str("booking_id", id).
		Str("status", string(next)).
		Msg("booking status updated")
	return b, nil
}
