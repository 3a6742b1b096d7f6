package app_test

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"hotel_pms/internal/domain"
)

// ---- fakes ----

type fakeRepo struct {
	mu        sync.Mutex
	props     map[string]domain.Property
	roomTypes []domain.RoomType
	bookings  map[string]domain.Booking
	listCalls int
	failList  error
	// listDelay widens the gap between reading bookings and writing one
	listDelay time.Duration
	filters   []domain.BookingFilter
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{props: map[string]domain.Property{}, bookings: map[string]domain.Booking{}}
}

func (f *fakeRepo) UpsertProperty(ctx context.Context, p domain.Property) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.props[p.ID] = p
	return nil
}

func (f *fakeRepo) UpsertRoomType(ctx context.Context, rt domain.RoomType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.roomTypes {
		if f.roomTypes[i].ID == rt.ID {
			f.roomTypes[i] = rt
			return nil
		}
	}
	f.roomTypes = append(f.roomTypes, rt)
	return nil
}

func (f *fakeRepo) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.props[id]
	if !ok {
		return domain.Property{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) ListProperties(ctx context.Context) ([]domain.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Property
	for _, p := range f.props {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) ListRoomTypes(ctx context.Context, propertyID *string) ([]domain.RoomType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.RoomType
	for _, rt := range f.roomTypes {
		if propertyID == nil || rt.PropertyID == *propertyID {
			out = append(out, rt)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpsertBooking(ctx context.Context, b domain.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings[b.ID] = b
	return nil
}

func (f *fakeRepo) CreateBooking(ctx context.Context, b domain.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.bookings[b.ID]; ok {
		return domain.ErrDuplicateRequest
	}
	f.bookings[b.ID] = b
	return nil
}

func (f *fakeRepo) UpdateBookingStatus(ctx context.Context, id string, s domain.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return domain.ErrNotFound
	}
	b.Status = s
	f.bookings[id] = b
	return nil
}

func (f *fakeRepo) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, nil
}

// ListBookings mirrors the SQL filter: half-open range, status IN, newest first.
func (f *fakeRepo) ListBookings(ctx context.Context, flt domain.BookingFilter) ([]domain.Booking, error) {
	if f.listDelay > 0 {
		time.Sleep(f.listDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.filters = append(f.filters, flt)
	if f.failList != nil {
		return nil, f.failList
	}
	var out []domain.Booking
	for _, b := range f.bookings {
		if flt.PropertyID != nil && b.PropertyID != *flt.PropertyID {
			continue
		}
		if flt.RoomTypeID != nil && (b.RoomTypeID == nil || *b.RoomTypeID != *flt.RoomTypeID) {
			continue
		}
		if flt.To != nil && !b.CheckIn.Before(*flt.To) {
			continue
		}
		if flt.From != nil && !b.CheckOut.After(*flt.From) {
			continue
		}
		if len(flt.Statuses) > 0 && !hasStatus(flt.Statuses, b.Status) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if flt.Limit > 0 && len(out) > flt.Limit {
		out = out[:flt.Limit]
	}
	return out, nil
}

func hasStatus(ss []domain.Status, s domain.Status) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

func (f *fakeRepo) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

// fakeCache stores JSON like the Redis adapter, so any dst type round-trips.
type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
	dels  []string
}

func newFakeCache() *fakeCache { return &fakeCache{store: map[string][]byte{}} }

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		delete(c.store, key)
		return false, nil
	}
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	c.dels = append(c.dels, key)
	return nil
}

func (c *fakeCache) Claim(ctx context.Context, key string, ttlSec int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.store[key]; ok {
		return false, nil
	}
	c.store[key] = []byte("1")
	return true, nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.store[key]
	return ok
}

// ---- fixtures ----

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr[T any](v T) *T { return &v }

// seed: property p1 with 2 doubles (rt1) and 1 suite (rt2); property p2 with 1 room.
func seed() *fakeRepo {
	r := newFakeRepo()
	r.props["p1"] = domain.Property{ID: "p1", Name: "Seaside Inn", Currency: "EUR"}
	r.props["p2"] = domain.Property{ID: "p2", Name: "Hill Lodge", Currency: "EUR"}
	r.roomTypes = []domain.RoomType{
		{ID: "rt1", PropertyID: "p1", Name: "Double", NumberOfRooms: 2},
		{ID: "rt2", PropertyID: "p1", Name: "Suite", NumberOfRooms: 1},
		{ID: "rt3", PropertyID: "p2", Name: "Cabin", NumberOfRooms: 1},
	}
	return r
}

func stay(id, propertyID, in, out string, st domain.Status) domain.Booking {
	return domain.Booking{
		ID: id, PropertyID: propertyID, CheckIn: day(in), CheckOut: day(out),
		Status: st, Source: domain.SourceWebsite, CreatedAt: day(in).Add(-48 * time.Hour),
	}
}
