package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"safari_booking/internal/domain"
)

// SyncService copies a property's bookings from the upstream booking
// backend into the local repository.
type SyncService struct {
	source       domain.BookingSource
	repo         domain.BookingRepository
	availability *AvailabilityService
}

func NewSyncService(src domain.BookingSource, r domain.BookingRepository, a *AvailabilityService) *SyncService {
	return &SyncService{source: src, repo: r, availability: a}
}

// SyncProperty returns the number of bookings stored.
func (s *SyncService) SyncProperty(ctx context.Context, propertyID string) (int, error) {
	raw, err := s.source.ListPropertyBookings(ctx, propertyID)
	if err != nil {
		// unknown upstream property: nothing to store, but drop any stale occupancy
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn().Str("property", propertyID).Msg("property not found upstream")
			s.invalidate(ctx, propertyID)
			return 0, nil
		}
		return 0, fmt.Errorf("fetch bookings for %s: %w", propertyID, err)
	}

	bookings := mapBookings(propertyID, raw)
	if len(bookings) > 0 {
		if err := s.repo.UpsertBookings(ctx, bookings); err != nil {
			return 0, fmt.Errorf("upsert bookings for %s: %w", propertyID, err)
		}
	}
	// upserted statuses may have freed or taken nights
	s.invalidate(ctx, propertyID)
	return len(bookings), nil
}

func (s *SyncService) invalidate(ctx context.Context, propertyID string) {
	if s.availability != nil {
		s.availability.Invalidate(ctx, propertyID)
	}
}
