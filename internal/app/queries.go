package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"hotel_pms/internal/core"
	"hotel_pms/internal/domain"
)

type QueryService struct {
	props        domain.PropertyRepository
	books        domain.BookingRepository
	cache        domain.Cache
	cacheTTL     time.Duration
	dashboardTTL time.Duration
}

func NewQueryService(p domain.PropertyRepository, b domain.BookingRepository, c domain.Cache, ttl, dashboardTTL time.Duration) *QueryService {
	return &QueryService{props: p, books: b, cache: c, cacheTTL: ttl, dashboardTTL: dashboardTTL}
}

type OccupancyReport struct {
	PropertyID string `json:"property_id"`
	Date       string `json:"date"`
	TotalRooms int    `json:"total_rooms"`
	Occupied   int    `json:"occupied"`
	Percent    int    `json:"percent"`
}

type AvailabilityQuery struct {
	PropertyID string
	RoomTypeID *string
	CheckIn    time.Time
	CheckOut   time.Time
	// Statuses that block the range; empty means confirmed only.
	Statuses []domain.Status
}

type AvailabilityReport struct {
	PropertyID   string           `json:"property_id"`
	RoomTypeID   *string          `json:"room_type_id,omitempty"`
	CheckIn      string           `json:"check_in"`
	CheckOut     string           `json:"check_out"`
	HasOverlap   bool             `json:"has_overlap"`
	Conflicts    []domain.Booking `json:"conflicts"`
	PeakOccupied int              `json:"peak_occupied"`
	TotalRooms   int              `json:"total_rooms"`
	RoomsLeft    int              `json:"rooms_left"`
	Available    bool             `json:"available"`
}

// propertyWithRooms loads the property row and its room types side by side.
func (s *QueryService) propertyWithRooms(ctx context.Context, id string) (domain.PropertyView, error) {
	var (
		p   domain.Property
		rts []domain.RoomType
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		p, err = s.props.GetProperty(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		rts, err = s.props.ListRoomTypes(gctx, &id)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.PropertyView{}, err
	}
	return domain.PropertyView{Property: p, RoomTypes: rts, TotalRooms: domain.TotalRooms(rts, id)}, nil
}

func (s *QueryService) GetProperty(ctx context.Context, id string) (domain.PropertyView, error) {
	key := propertyKey(id)
	var pv domain.PropertyView
	if ok, _ := s.cache.Get(ctx, key, &pv); ok {
		return pv, nil
	}
	pv, err := s.propertyWithRooms(ctx, id)
	if err != nil {
		return domain.PropertyView{}, err
	}
	_ = s.cache.Set(ctx, key, pv, int(s.cacheTTL.Seconds()))
	return pv, nil
}

func (s *QueryService) ListProperties(ctx context.Context) ([]domain.PropertyView, error) {
	var (
		ps  []domain.Property
		rts []domain.RoomType
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ps, err = s.props.ListProperties(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		rts, err = s.props.ListRoomTypes(gctx, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byProperty := make(map[string][]domain.RoomType, len(ps))
	for _, rt := range rts {
		byProperty[rt.PropertyID] = append(byProperty[rt.PropertyID], rt)
	}
	out := make([]domain.PropertyView, 0, len(ps))
	for _, p := range ps {
		own := byProperty[p.ID]
		out = append(out, domain.PropertyView{Property: p, RoomTypes: own, TotalRooms: domain.TotalRooms(own, p.ID)})
	}
	return out, nil
}

func (s *QueryService) Occupancy(ctx context.Context, propertyID string, asOf time.Time) (OccupancyReport, error) {
	day := core.Day(asOf)
	key := occupancyKey(propertyID, day)
	var rep OccupancyReport
	if ok, _ := s.cache.Get(ctx, key, &rep); ok {
		return rep, nil
	}

	var (
		pv       domain.PropertyView
		bookings []domain.Booking
	)
	next := day.AddDate(0, 0, 1)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pv, err = s.propertyWithRooms(gctx, propertyID)
		return err
	})
	g.Go(func() error {
		var err error
		bookings, err = s.books.ListBookings(gctx, domain.BookingFilter{
			PropertyID: &propertyID,
			From:       &day,
			To:         &next,
			Statuses:   []domain.Status{domain.StatusConfirmed},
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return OccupancyReport{}, err
	}

	rep = OccupancyReport{
		PropertyID: propertyID,
		Date:       day.Format(dateLayout),
		TotalRooms: pv.TotalRooms,
		Occupied:   core.OccupiedUnits(bookings, propertyID, day),
		Percent:    core.Occupancy(bookings, propertyID, pv.TotalRooms, day),
	}
	_ = s.cache.Set(ctx, key, rep, int(s.cacheTTL.Seconds()))
	return rep, nil
}

// Availability is not cached; it backs booking decisions.
func (s *QueryService) Availability(ctx context.Context, q AvailabilityQuery) (AvailabilityReport, error) {
	if err := core.ValidateRange(q.CheckIn, q.CheckOut); err != nil {
		return AvailabilityReport{}, err
	}
	in, out := core.Day(q.CheckIn), core.Day(q.CheckOut)
	statuses := core.Statuses(q.Statuses...)

	var (
		pv       domain.PropertyView
		existing []domain.Booking
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pv, err = s.propertyWithRooms(gctx, q.PropertyID)
		return err
	})
	g.Go(func() error {
		var err error
		existing, err = s.books.ListBookings(gctx, domain.BookingFilter{
			PropertyID: &q.PropertyID,
			RoomTypeID: q.RoomTypeID,
			From:       &in,
			To:         &out,
			Statuses:   statusList(statuses),
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return AvailabilityReport{}, err
	}

	capacity, err := capacityOf(pv, q.RoomTypeID)
	if err != nil {
		return AvailabilityReport{}, err
	}
	conflicts, err := core.FindConflicts(existing, in, out, statuses)
	if err != nil {
		return AvailabilityReport{}, err
	}
	peak, err := core.PeakOccupied(existing, in, out, statuses)
	if err != nil {
		return AvailabilityReport{}, err
	}
	if conflicts == nil {
		conflicts = []domain.Booking{}
	}

	return AvailabilityReport{
		PropertyID:   q.PropertyID,
		RoomTypeID:   q.RoomTypeID,
		CheckIn:      in.Format(dateLayout),
		CheckOut:     out.Format(dateLayout),
		HasOverlap:   len(conflicts) > 0,
		Conflicts:    conflicts,
		PeakOccupied: peak,
		TotalRooms:   capacity,
		RoomsLeft:    max(capacity-peak, 0),
		Available:    peak < capacity,
	}, nil
}

// Dashboard aggregates one property, or every property when propertyID is nil.
func (s *QueryService) Dashboard(ctx context.Context, propertyID *string, now time.Time) (core.DashboardMetrics, error) {
	key := dashboardKey(propertyID, now)
	var m core.DashboardMetrics
	if ok, _ := s.cache.Get(ctx, key, &m); ok {
		return m, nil
	}

	var (
		rts    []domain.RoomType
		window []domain.Booking
		recent []domain.Booking
	)
	since := core.DashboardSince(now)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if propertyID != nil {
			if _, err := s.props.GetProperty(gctx, *propertyID); err != nil {
				return err
			}
		}
		var err error
		rts, err = s.props.ListRoomTypes(gctx, propertyID)
		return err
	})
	g.Go(func() error {
		var err error
		window, err = s.books.ListBookings(gctx, domain.BookingFilter{PropertyID: propertyID, From: &since})
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = s.books.ListBookings(gctx, domain.BookingFilter{PropertyID: propertyID, Limit: core.RecentBookingsLimit})
		return err
	})
	if err := g.Wait(); err != nil {
		return core.DashboardMetrics{}, err
	}

	m = core.Dashboard(mergeBookings(window, recent), domain.SumRooms(rts), now)
	_ = s.cache.Set(ctx, key, m, int(s.dashboardTTL.Seconds()))
	return m, nil
}

// mergeBookings appends the rows of extra not already in base.
func mergeBookings(base, extra []domain.Booking) []domain.Booking {
	seen := make(map[string]struct{}, len(base))
	for _, b := range base {
		seen[b.ID] = struct{}{}
	}
	for _, b := range extra {
		if _, ok := seen[b.ID]; !ok {
			base = append(base, b)
		}
	}
	return base
}

func capacityOf(pv domain.PropertyView, roomTypeID *string) (int, error) {
	if roomTypeID == nil {
		return pv.TotalRooms, nil
	}
	for _, rt := range pv.RoomTypes {
		if rt.ID == *roomTypeID {
			return max(rt.NumberOfRooms, 0), nil
		}
	}
	return 0, fmt.Errorf("room type %s: %w", *roomTypeID, domain.ErrNotFound)
}

func statusList(set core.StatusSet) []domain.Status {
	if len(set) == 0 {
		return []domain.Status{domain.StatusConfirmed}
	}
	out := make([]domain.Status, 0, len(set))
	for _, st := range []domain.Status{domain.StatusPending, domain.StatusConfirmed, domain.StatusCancelled, domain.StatusCompleted} {
		if set.Has(st) {
			out = append(out, st)
		}
	}
	return out
}
