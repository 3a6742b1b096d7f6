package app

import (
	"context"
	"fmt"
	"time"

	"hotel_pms/internal/core"
	"hotel_pms/internal/domain"
)

const (
	dateLayout = "2006-01-02"
	scopeAll   = "all"

	// stays longer than this only drop the first nights from cache; the
	// rest expire with the TTL.
	maxInvalidateNights = 62
)

func occupancyKey(propertyID string, day time.Time) string {
	return fmt.Sprintf("occupancy:%s:%s", propertyID, core.Day(day).Format(dateLayout))
}

func dashboardKey(propertyID *string, day time.Time) string {
	scope := scopeAll
	if propertyID != nil {
		scope = "p:" + *propertyID
	}
	return fmt.Sprintf("dashboard:%s:%s", scope, core.Day(day).Format(dateLayout))
}

func propertyKey(id string) string { return "property:" + id }

func idemKey(key string) string { return "idem:booking:" + key }

func lockKey(propertyID string) string { return "lock:booking:" + propertyID }

// invalidateStay drops cached views a booking can change: the nightly
// occupancy of its stay and today's dashboards (scoped and global).
func invalidateStay(ctx context.Context, c domain.Cache, b domain.Booking, today time.Time) {
	if c == nil {
		return
	}
	in, out := core.Day(b.CheckIn), core.Day(b.CheckOut)
	for d, n := in, 0; d.Before(out) && n < maxInvalidateNights; d, n = d.AddDate(0, 0, 1), n+1 {
		_ = c.Del(ctx, occupancyKey(b.PropertyID, d))
	}
	invalidateDashboards(ctx, c, b.PropertyID, today)
}

func invalidateDashboards(ctx context.Context, c domain.Cache, propertyID string, today time.Time) {
	if c == nil {
		return
	}
	_ = c.Del(ctx, dashboardKey(&propertyID, today))
	_ = c.Del(ctx, dashboardKey(nil, today))
}
