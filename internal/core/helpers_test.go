package core_test

import (
	"time"

	"hotel_pms/internal/domain"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func booking(id, in, out string, st domain.Status) domain.Booking {
	return domain.Booking{ID: id, PropertyID: "p1", CheckIn: day(in), CheckOut: day(out), Status: st}
}

func ptr[T any](v T) *T { return &v }
