package domain

import (
	"context"
	"time"
)

type PropertyRepository interface {
	// Write paths
	UpsertProperty(ctx context.Context, p Property) error
	UpsertRoomType(ctx context.Context, rt RoomType) error

	// Read paths
	GetProperty(ctx context.Context, id string) (Property, error)
	ListProperties(ctx context.Context) ([]Property, error)
	ListRoomTypes(ctx context.Context, propertyID *string) ([]RoomType, error)
}

type BookingRepository interface {
	// Write paths
	UpsertBooking(ctx context.Context, b Booking) error
	CreateBooking(ctx context.Context, b Booking) error
	UpdateBookingStatus(ctx context.Context, id string, s Status) error

	// Read paths
	GetBooking(ctx context.Context, id string) (Booking, error)
	ListBookings(ctx context.Context, f BookingFilter) ([]Booking, error)
}

// StoreClient reads raw rows from the hosted data store.
type StoreClient interface {
	ListProperties(ctx context.Context) ([]map[string]any, error)
	ListRoomTypes(ctx context.Context) ([]map[string]any, error)
	ListBookings(ctx context.Context, propertyID string, updatedSince *time.Time) ([]map[string]any, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
	// Claim sets key only if absent; false means someone already holds it.
	Claim(ctx context.Context, key string, ttlSec int) (bool, error)
}
