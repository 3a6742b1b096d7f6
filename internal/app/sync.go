package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"hotel_pms/internal/domain"
)

// SyncStats counts what one snapshot pull wrote.
type SyncStats struct {
	Properties int `json:"properties"`
	RoomTypes  int `json:"room_types"`
	Bookings   int `json:"bookings"`
	Skipped    int `json:"skipped"`
}

// SyncService copies properties, room types and bookings from the hosted
// store into the local database.
type SyncService struct {
	store   domain.StoreClient
	props   domain.PropertyRepository
	books   domain.BookingRepository
	cache   domain.Cache
	workers int64
	now     func() time.Time
}

func NewSyncService(sc domain.StoreClient, p domain.PropertyRepository, b domain.BookingRepository, c domain.Cache, workers int) *SyncService {
	if workers < 1 {
		workers = 1
	}
	return &SyncService{store: sc, props: p, books: b, cache: c, workers: int64(workers), now: time.Now}
}

func (s *SyncService) WithClock(now func() time.Time) *SyncService {
	s.now = now
	return s
}

// Run pulls one snapshot. With since set, only bookings updated at or after
// it are fetched. Properties are written before their room types and
// bookings so foreign keys hold.
func (s *SyncService) Run(ctx context.Context, since *time.Time) (SyncStats, error) {
	var st SyncStats
	today := s.now()

	props, err := s.store.ListProperties(ctx)
	if err != nil {
		return st, fmt.Errorf("list properties: %w", err)
	}
	known := make(map[string]struct{}, len(props))
	for _, row := range props {
		p, err := mapProperty(row)
		if err != nil {
			log.Warn().Err(err).Msg("skip property row")
			st.Skipped++
			continue
		}
		if err := s.props.UpsertProperty(ctx, p); err != nil {
			return st, fmt.Errorf("upsert property %s: %w", p.ID, err)
		}
		known[p.ID] = struct{}{}
		st.Properties++
		if s.cache != nil {
			_ = s.cache.Del(ctx, propertyKey(p.ID))
		}
	}

	rts, err := s.store.ListRoomTypes(ctx)
	if err != nil {
		return st, fmt.Errorf("list room types: %w", err)
	}
	for _, row := range rts {
		rt, err := mapRoomType(row)
		if err != nil {
			log.Warn().Err(err).Msg("skip room type row")
			st.Skipped++
			continue
		}
		if _, ok := known[rt.PropertyID]; !ok {
			log.Warn().Str("room_type_id", rt.ID).Str("property_id", rt.PropertyID).Msg("room type for unknown property")
			st.Skipped++
			continue
		}
		if err := s.props.UpsertRoomType(ctx, rt); err != nil {
			return st, fmt.Errorf("upsert room type %s: %w", rt.ID, err)
		}
		st.RoomTypes++
	}

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	sem := semaphore.NewWeighted(s.workers)

	for id := range known {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			break
		}
		wg.Add(1)
		go func(propertyID string) {
			defer wg.Done()
			defer sem.Release(1)

			n, skipped, err := s.syncBookings(ctx, propertyID, since, today)
			mu.Lock()
			defer mu.Unlock()
			st.Bookings += n
			st.Skipped += skipped
			if err != nil {
				log.Warn().Str("property_id", propertyID).Err(err).Msg("booking sync failed")
				errs = append(errs, fmt.Errorf("property %s: %w", propertyID, err))
				return
			}
			if s.cache != nil {
				invalidateDashboards(ctx, s.cache, propertyID, today)
				_ = s.cache.Del(ctx, propertyKey(propertyID))
			}
		}(id)
	}
	wg.Wait()

	return st, errors.Join(errs...)
}

func (s *SyncService) syncBookings(ctx context.Context, propertyID string, since *time.Time, today time.Time) (written, skipped int, err error) {
	rows, err := s.store.ListBookings(ctx, propertyID, since)
	if err != nil {
		return 0, 0, err
	}
	for _, row := range rows {
		b, err := mapBooking(row)
		if err != nil {
			log.Warn().Err(err).Str("property_id", propertyID).Msg("skip booking row")
			skipped++
			continue
		}
		if b.PropertyID != propertyID {
			skipped++
			continue
		}
		if err := s.books.UpsertBooking(ctx, b); err != nil {
			return written, skipped, fmt.Errorf("upsert booking %s: %w", b.ID, err)
		}
		invalidateStay(ctx, s.cache, b, today)
		written++
	}
	return written, skipped, nil
}
