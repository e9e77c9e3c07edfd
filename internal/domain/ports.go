package domain

import "context"

type BookingRepository interface {
	// Write paths
	UpsertBookings(ctx context.Context, bs []Booking) error
	UpdateBookingStatus(ctx context.Context, id string, status BookingStatus) error

	// Read paths
	GetBooking(ctx context.Context, id string) (Booking, error)
	ListBookings(ctx context.Context, propertyID string) ([]Booking, error)
}

type CancellationRepository interface {
	CreateRequest(ctx context.Context, r CancellationRequest) error
	// UpdateRequest persists r only if the stored status still equals from.
	UpdateRequest(ctx context.Context, r CancellationRequest, from RequestStatus) error
	GetRequest(ctx context.Context, id string) (CancellationRequest, error)
	ListRequests(ctx context.Context, bookingID string) ([]CancellationRequest, error)
}

// BookingSource is the upstream booking backend.
type BookingSource interface {
	ListPropertyBookings(ctx context.Context, propertyID string) ([]map[string]any, error)
	CancelBooking(ctx context.Context, bookingID string) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
