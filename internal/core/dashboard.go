package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"hotel_pms/internal/domain"
)

const (
	RecentBookingsLimit   = 10
	UpcomingCheckInsLimit = 5
	UpcomingWindowDays    = 7

	DefaultGuestName    = "Guest"
	DefaultPropertyName = "Unknown Property"

	RevenueNewThisMonth = "new this month"
	RevenueNoChange     = "no change"
)

type DashboardMetrics struct {
	Today time.Time `json:"today"`

	// Activity counts arrivals and departures, regardless of status.
	BookingsToday       int    `json:"bookings_today"`
	BookingsYesterday   int    `json:"bookings_yesterday"`
	BookingsTodayDelta  int    `json:"bookings_today_delta"`
	BookingsTodayChange string `json:"bookings_today_change"`

	PendingCheckIns  int `json:"pending_check_ins"`
	PendingCheckOuts int `json:"pending_check_outs"`

	MonthlyRevenue       float64  `json:"monthly_revenue"`
	PreviousMonthRevenue float64  `json:"previous_month_revenue"`
	RevenueChangePct     *float64 `json:"revenue_change_pct,omitempty"`
	RevenueChange        string   `json:"revenue_change"`

	OccupiedRooms int `json:"occupied_rooms"`
	TotalRooms    int `json:"total_rooms"`
	OccupancyRate int `json:"occupancy_rate"`

	RecentBookings   []RecentBooking   `json:"recent_bookings"`
	UpcomingCheckIns []UpcomingCheckIn `json:"upcoming_check_ins"`
}

type RecentBooking struct {
	ID           string        `json:"id"`
	GuestName    string        `json:"guest_name"`
	PropertyName string        `json:"property_name"`
	CheckIn      string        `json:"check_in"`
	CheckOut     string        `json:"check_out"`
	Status       domain.Status `json:"status"`
	Source       domain.Source `json:"source"`
	Amount       float64       `json:"amount"`
	CreatedAt    time.Time     `json:"created_at"`
}

type UpcomingCheckIn struct {
	ID           string `json:"id"`
	GuestName    string `json:"guest_name"`
	PropertyName string `json:"property_name"`
	CheckIn      string `json:"check_in"`
	Label        string `json:"label"`
	Nights       int    `json:"nights"`
}

// Dashboard derives the admin metrics from a booking snapshot. totalRooms is
// the room inventory the snapshot covers and feeds OccupancyRate. Every
// bucket is computed from the single day derived from now.
// DashboardSince is the earliest check-out date a booking needs to count in
// any Dashboard bucket for now, apart from the recent-bookings list.
func DashboardSince(now time.Time) time.Time {
	return monthStart(Day(now)).AddDate(0, -1, 0)
}

func Dashboard(bookings []domain.Booking, totalRooms int, now time.Time) DashboardMetrics {
	today := Day(now)
	yesterday := today.AddDate(0, 0, -1)
	windowEnd := today.AddDate(0, 0, UpcomingWindowDays)
	thisMonth := monthStart(today)
	nextMonth := thisMonth.AddDate(0, 1, 0)
	prevMonth := thisMonth.AddDate(0, -1, 0)

	m := DashboardMetrics{Today: today, TotalRooms: max(totalRooms, 0)}
	var upcoming []domain.Booking

	for _, b := range bookings {
		in, out := Day(b.CheckIn), Day(b.CheckOut)

		if in.Equal(today) || out.Equal(today) {
			m.BookingsToday++
		}
		if in.Equal(yesterday) || out.Equal(yesterday) {
			m.BookingsYesterday++
		}

		if b.Status != domain.StatusConfirmed {
			continue
		}
		if within(in, today, windowEnd) {
			m.PendingCheckIns++
			upcoming = append(upcoming, b)
		}
		if within(out, today, windowEnd) {
			m.PendingCheckOuts++
		}
		switch {
		case !in.Before(thisMonth) && in.Before(nextMonth):
			m.MonthlyRevenue += amountOf(b)
		case !in.Before(prevMonth) && in.Before(thisMonth):
			m.PreviousMonthRevenue += amountOf(b)
		}
		if occupies(b, today) {
			m.OccupiedRooms++
		}
	}

	m.BookingsTodayDelta = m.BookingsToday - m.BookingsYesterday
	m.BookingsTodayChange = activityChange(m.BookingsToday, m.BookingsYesterday)
	m.RevenueChangePct, m.RevenueChange = revenueChange(m.MonthlyRevenue, m.PreviousMonthRevenue)
	m.OccupancyRate = Percent(m.OccupiedRooms, m.TotalRooms)
	m.RecentBookings = recentBookings(bookings)
	m.UpcomingCheckIns = upcomingCheckIns(upcoming, today)
	return m
}

// activityChange phrases today's activity against yesterday's. With no
// activity yesterday a percentage is undefined, so the absolute count is
// reported instead.
func activityChange(today, yesterday int) string {
	if yesterday == 0 {
		if today == 0 {
			return "no activity today or yesterday"
		}
		return fmt.Sprintf("%+d from yesterday", today)
	}
	pct := math.Round(float64(today-yesterday) / float64(yesterday) * 100)
	return fmt.Sprintf("%+d%% from yesterday", int(pct))
}

func revenueChange(current, previous float64) (*float64, string) {
	if previous == 0 {
		if current == 0 {
			return nil, RevenueNoChange
		}
		return nil, RevenueNewThisMonth
	}
	pct := math.Round((current-previous)/math.Abs(previous)*1000) / 10
	return &pct, fmt.Sprintf("%+.1f%%", pct)
}

func recentBookings(bookings []domain.Booking) []RecentBooking {
	sorted := make([]domain.Booking, len(bookings))
	copy(sorted, bookings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > RecentBookingsLimit {
		sorted = sorted[:RecentBookingsLimit]
	}

	out := make([]RecentBooking, 0, len(sorted))
	for _, b := range sorted {
		out = append(out, RecentBooking{
			ID:           b.ID,
			GuestName:    guestName(b),
			PropertyName: propertyName(b),
			CheckIn:      Day(b.CheckIn).Format(dateLayout),
			CheckOut:     Day(b.CheckOut).Format(dateLayout),
			Status:       b.Status,
			Source:       b.Source,
			Amount:       amountOf(b),
			CreatedAt:    b.CreatedAt,
		})
	}
	return out
}

func upcomingCheckIns(candidates []domain.Booking, today time.Time) []UpcomingCheckIn {
	sort.SliceStable(candidates, func(i, j int) bool {
		return Day(candidates[i].CheckIn).Before(Day(candidates[j].CheckIn))
	})
	if len(candidates) > UpcomingCheckInsLimit {
		candidates = candidates[:UpcomingCheckInsLimit]
	}

	out := make([]UpcomingCheckIn, 0, len(candidates))
	for _, b := range candidates {
		in := Day(b.CheckIn)
		out = append(out, UpcomingCheckIn{
			ID:           b.ID,
			GuestName:    guestName(b),
			PropertyName: propertyName(b),
			CheckIn:      in.Format(dateLayout),
			Label:        DayLabel(in, today),
			Nights:       Nights(b.CheckIn, b.CheckOut),
		})
	}
	return out
}

// DayLabel renders day relative to today: "Today", "Tomorrow", or a short date.
func DayLabel(day, today time.Time) string {
	d, t := Day(day), Day(today)
	switch {
	case d.Equal(t):
		return "Today"
	case d.Equal(t.AddDate(0, 0, 1)):
		return "Tomorrow"
	}
	return d.Format("Mon, Jan 2")
}

// Nights is the number of nights in [checkIn, checkOut), never negative.
func Nights(checkIn, checkOut time.Time) int {
	n := int(Day(checkOut).Sub(Day(checkIn)).Hours() / 24)
	return max(n, 0)
}

func guestName(b domain.Booking) string {
	if b.GuestName != nil && strings.TrimSpace(*b.GuestName) != "" {
		return strings.TrimSpace(*b.GuestName)
	}
	return DefaultGuestName
}

func propertyName(b domain.Booking) string {
	if n := strings.TrimSpace(b.PropertyName); n != "" {
		return n
	}
	return DefaultPropertyName
}
