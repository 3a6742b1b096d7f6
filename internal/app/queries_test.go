package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"hotel_pms/internal/app"
	"hotel_pms/internal/core"
	"hotel_pms/internal/domain"
)

func TestOccupancy_CacheMissThenHit(t *testing.T) {
	repo := seed()
	repo.bookings["b1"] = stay("b1", "p1", "2024-05-14", "2024-05-16", domain.StatusConfirmed)
	repo.bookings["b2"] = stay("b2", "p1", "2024-05-15", "2024-05-17", domain.StatusPending)
	repo.bookings["b3"] = stay("b3", "p1", "2024-05-13", "2024-05-15", domain.StatusConfirmed)
	cache := newFakeCache()
	q := app.NewQueryService(repo, repo, cache, 10*time.Minute, time.Minute)

	rep, err := q.Occupancy(context.Background(), "p1", day("2024-05-15").Add(15*time.Hour))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	// only b1 is confirmed and in-house on the 15th; 1 of 3 rooms
	if rep.Occupied != 1 || rep.TotalRooms != 3 || rep.Percent != 33 || rep.Date != "2024-05-15" {
		t.Fatalf("unexpected report: %+v", rep)
	}

	// Mutate repo to ensure second read indeed comes from cache
	repo.bookings["b4"] = stay("b4", "p1", "2024-05-15", "2024-05-16", domain.StatusConfirmed)
	calls := repo.calls()
	rep2, err := q.Occupancy(context.Background(), "p1", day("2024-05-15"))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if rep2.Occupied != 1 || repo.calls() != calls {
		t.Fatalf("expected cached report, got %+v (calls %d -> %d)", rep2, calls, repo.calls())
	}
}

func TestOccupancy_UnknownProperty(t *testing.T) {
	q := app.NewQueryService(seed(), seed(), newFakeCache(), time.Minute, time.Minute)
	_, err := q.Occupancy(context.Background(), "nope", day("2024-05-15"))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestAvailability(t *testing.T) {
	repo := seed()
	rt1 := ptr("rt1")
	a := stay("a", "p1", "2024-06-01", "2024-06-04", domain.StatusConfirmed)
	a.RoomTypeID = rt1
	b := stay("b", "p1", "2024-06-03", "2024-06-05", domain.StatusConfirmed)
	b.RoomTypeID = rt1
	c := stay("c", "p1", "2024-06-02", "2024-06-03", domain.StatusPending)
	repo.bookings["a"], repo.bookings["b"], repo.bookings["c"] = a, b, c
	q := app.NewQueryService(repo, repo, newFakeCache(), time.Minute, time.Minute)
	ctx := context.Background()

	t.Run("whole property, confirmed only", func(t *testing.T) {
		rep, err := q.Availability(ctx, app.AvailabilityQuery{
			PropertyID: "p1", CheckIn: day("2024-06-01"), CheckOut: day("2024-06-05"),
		})
		if err != nil {
			t.Fatalf("err: %v", err)
		}
		if !rep.HasOverlap || len(rep.Conflicts) != 2 || rep.PeakOccupied != 2 || rep.TotalRooms != 3 || rep.RoomsLeft != 1 || !rep.Available {
			t.Fatalf("unexpected report: %+v", rep)
		}
	})

	t.Run("room type scoped is full on the 3rd", func(t *testing.T) {
		rep, err := q.Availability(ctx, app.AvailabilityQuery{
			PropertyID: "p1", RoomTypeID: rt1, CheckIn: day("2024-06-03"), CheckOut: day("2024-06-04"),
		})
		if err != nil {
			t.Fatalf("err: %v", err)
		}
		if rep.TotalRooms != 2 || rep.PeakOccupied != 2 || rep.Available || rep.RoomsLeft != 0 {
			t.Fatalf("unexpected report: %+v", rep)
		}
	})

	t.Run("pending counts when asked", func(t *testing.T) {
		rep, err := q.Availability(ctx, app.AvailabilityQuery{
			PropertyID: "p1", CheckIn: day("2024-06-02"), CheckOut: day("2024-06-03"),
			Statuses: []domain.Status{domain.StatusPending, domain.StatusConfirmed},
		})
		if err != nil {
			t.Fatalf("err: %v", err)
		}
		if rep.PeakOccupied != 2 || len(rep.Conflicts) != 2 {
			t.Fatalf("unexpected report: %+v", rep)
		}
	})

	t.Run("same-day turnover is free", func(t *testing.T) {
		rep, err := q.Availability(ctx, app.AvailabilityQuery{
			PropertyID: "p1", CheckIn: day("2024-06-05"), CheckOut: day("2024-06-07"),
		})
		if err != nil {
			t.Fatalf("err: %v", err)
		}
		if rep.HasOverlap || rep.Conflicts == nil || rep.PeakOccupied != 0 {
			t.Fatalf("unexpected report: %+v", rep)
		}
	})

	t.Run("inverted range", func(t *testing.T) {
		_, err := q.Availability(ctx, app.AvailabilityQuery{
			PropertyID: "p1", CheckIn: day("2024-06-05"), CheckOut: day("2024-06-05"),
		})
		var ire *core.InvalidRangeError
		if !errors.As(err, &ire) {
			t.Fatalf("want InvalidRangeError, got %v", err)
		}
	})

	t.Run("unknown room type", func(t *testing.T) {
		_, err := q.Availability(ctx, app.AvailabilityQuery{
			PropertyID: "p1", RoomTypeID: ptr("rt9"), CheckIn: day("2024-06-01"), CheckOut: day("2024-06-02"),
		})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("want ErrNotFound, got %v", err)
		}
	})
}

func TestDashboard_ScopedAndCachedPerDay(t *testing.T) {
	repo := seed()
	repo.bookings["b1"] = stay("b1", "p1", "2024-05-15", "2024-05-17", domain.StatusConfirmed)
	repo.bookings["b2"] = stay("b2", "p2", "2024-05-15", "2024-05-16", domain.StatusConfirmed)
	cache := newFakeCache()
	q := app.NewQueryService(repo, repo, cache, time.Minute, time.Minute)
	ctx := context.Background()
	now := time.Date(2024, 5, 15, 14, 30, 0, 0, time.UTC)

	all, err := q.Dashboard(ctx, nil, now)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if all.BookingsToday != 2 || all.TotalRooms != 4 || all.OccupiedRooms != 2 || all.OccupancyRate != 50 {
		t.Fatalf("unexpected global dashboard: %+v", all)
	}

	one, err := q.Dashboard(ctx, ptr("p1"), now)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if one.BookingsToday != 1 || one.TotalRooms != 3 || one.OccupancyRate != 33 {
		t.Fatalf("unexpected p1 dashboard: %+v", one)
	}

	calls := repo.calls()
	if _, err := q.Dashboard(ctx, ptr("p1"), now.Add(time.Hour)); err != nil {
		t.Fatalf("err: %v", err)
	}
	if repo.calls() != calls {
		t.Fatal("same day should be served from cache")
	}
	if _, err := q.Dashboard(ctx, ptr("p1"), now.Add(24*time.Hour)); err != nil {
		t.Fatalf("err: %v", err)
	}
	if repo.calls() == calls {
		t.Fatal("next day must recompute")
	}

	if _, err := q.Dashboard(ctx, ptr("nope"), now); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestDashboard_FetchErrorIsReturned(t *testing.T) {
	repo := seed()
	repo.failList = errors.New("db down")
	q := app.NewQueryService(repo, repo, newFakeCache(), time.Minute, time.Minute)
	if _, err := q.Dashboard(context.Background(), nil, time.Now()); err == nil {
		t.Fatal("expected error")
	}
}

func TestListProperties_TotalsPerProperty(t *testing.T) {
	repo := seed()
	q := app.NewQueryService(repo, repo, newFakeCache(), time.Minute, time.Minute)
	out, err := q.ListProperties(context.Background())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out) != 2 || out[0].ID != "p1" || out[0].TotalRooms != 3 || out[1].TotalRooms != 1 {
		t.Fatalf("unexpected list: %+v", out)
	}
	if len(out[0].RoomTypes) != 2 {
		t.Fatalf("room types not attached: %+v", out[0])
	}
}

func TestGetProperty_Cached(t *testing.T) {
	repo := seed()
	cache := newFakeCache()
	q := app.NewQueryService(repo, repo, cache, time.Minute, time.Minute)
	pv, err := q.GetProperty(context.Background(), "p2")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if pv.Name != "Hill Lodge" || pv.TotalRooms != 1 {
		t.Fatalf("unexpected view: %+v", pv)
	}
	if !cache.has("property:p2") {
		t.Fatal("expected property view to be cached")
	}
}

func TestDashboard_PropertyNamedAllHasItsOwnKey(t *testing.T) {
	repo := seed()
	repo.props["all"] = domain.Property{ID: "all", Name: "All Seasons"}
	repo.bookings["b1"] = stay("b1", "p1", "2024-05-15", "2024-05-17", domain.StatusConfirmed)
	q := app.NewQueryService(repo, repo, newFakeCache(), time.Minute, time.Minute)
	ctx := context.Background()
	now := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)

	if _, err := q.Dashboard(ctx, nil, now); err != nil {
		t.Fatalf("err: %v", err)
	}
	scoped, err := q.Dashboard(ctx, ptr("all"), now)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if scoped.BookingsToday != 0 || scoped.TotalRooms != 0 {
		t.Fatalf("property %q served the global dashboard: %+v", "all", scoped)
	}
}

func TestDashboard_BoundedQueries(t *testing.T) {
	repo := seed()
	old := stay("old", "p1", "2023-11-01", "2023-11-03", domain.StatusConfirmed)
	old.CreatedAt = time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC)
	repo.bookings["old"] = old
	repo.bookings["b1"] = stay("b1", "p1", "2024-05-15", "2024-05-17", domain.StatusConfirmed)
	q := app.NewQueryService(repo, repo, newFakeCache(), time.Minute, time.Minute)
	now := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)

	m, err := q.Dashboard(context.Background(), ptr("p1"), now)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	var bounded, limited bool
	for _, f := range repo.filters {
		if f.From != nil && f.From.Equal(day("2024-04-01")) && f.Limit == 0 {
			bounded = true
		}
		if f.From == nil && f.Limit == core.RecentBookingsLimit {
			limited = true
		}
		if f.From == nil && f.Limit == 0 {
			t.Fatalf("unbounded booking query: %+v", f)
		}
	}
	if !bounded || !limited {
		t.Fatalf("expected a windowed and a limited query, got %+v", repo.filters)
	}

	// an old stay booked recently still shows up in the recent list only
	if len(m.RecentBookings) != 2 || m.RecentBookings[0].ID != "old" {
		t.Fatalf("recent: %+v", m.RecentBookings)
	}
	if m.MonthlyRevenue != 0 || m.BookingsToday != 1 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
}

func TestOccupancy_CorruptCacheEntryIsRecomputed(t *testing.T) {
	repo := seed()
	repo.bookings["b1"] = stay("b1", "p2", "2024-05-14", "2024-05-16", domain.StatusConfirmed)
	cache := newFakeCache()
	cache.store["occupancy:p2:2024-05-15"] = []byte(`{"percent":`)
	q := app.NewQueryService(repo, repo, cache, time.Minute, time.Minute)

	rep, err := q.Occupancy(context.Background(), "p2", day("2024-05-15"))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if rep.Percent != 100 || rep.PropertyID != "p2" {
		t.Fatalf("unexpected report: %+v", rep)
	}
}
