package domain_test

import (
	"testing"

	"hotel_pms/internal/domain"
)

func TestStatus_CanTransition(t *testing.T) {
	cases := []struct {
		from, to domain.Status
		want     bool
	}{
		{domain.StatusPending, domain.StatusConfirmed, true},
		{domain.StatusPending, domain.StatusCancelled, true},
		{domain.StatusConfirmed, domain.StatusCompleted, true},
		{domain.StatusConfirmed, domain.StatusCancelled, true},
		{domain.StatusPending, domain.StatusCompleted, false},
		{domain.StatusCancelled, domain.StatusConfirmed, false},
		{domain.StatusCompleted, domain.StatusCancelled, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.want {
			t.Errorf("%s -> %s: got %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if s, ok := domain.ParseStatus(" Canceled "); !ok || s != domain.StatusCancelled {
		t.Fatalf("canceled alias: got %q %v", s, ok)
	}
	if _, ok := domain.ParseStatus("on-hold"); ok {
		t.Fatalf("expected unknown status to be rejected")
	}
}

func TestParseSource(t *testing.T) {
	if got := domain.ParseSource("Walk-In"); got != domain.SourceWalkIn {
		t.Errorf("walk-in: got %q", got)
	}
	if got := domain.ParseSource("telegram"); got != domain.SourceOther {
		t.Errorf("unknown: got %q", got)
	}
}

func TestTotalRooms(t *testing.T) {
	rts := []domain.RoomType{
		{PropertyID: "p1", NumberOfRooms: 4},
		{PropertyID: "p1", NumberOfRooms: 6},
		{PropertyID: "p2", NumberOfRooms: 9},
		{PropertyID: "p1", NumberOfRooms: -1},
	}
	if got := domain.TotalRooms(rts, "p1"); got != 10 {
		t.Errorf("TotalRooms: got %d, want 10", got)
	}
	if got := domain.TotalRooms(nil, "p1"); got != 0 {
		t.Errorf("TotalRooms(nil): got %d, want 0", got)
	}
	// across properties the same non-positive rule applies
	if got := domain.SumRooms(rts); got != 19 {
		t.Errorf("SumRooms: got %d, want 19", got)
	}
}
