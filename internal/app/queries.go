package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"safari_booking/internal/adapters/observability"
	"safari_booking/internal/availability"
	"safari_booking/internal/domain"
)

func occupiedKey(propertyID string) string { return "occupied:" + propertyID }

// AvailabilityService answers calendar questions for one property at a time.
// The occupied-date list is cached; anything that changes a booking's
// status must call Invalidate.
type AvailabilityService struct {
	repo     domain.BookingRepository
	cache    domain.Cache
	cacheTTL time.Duration
	scanDays int
}

func NewAvailabilityService(r domain.BookingRepository, c domain.Cache, ttl time.Duration, scanDays int) *AvailabilityService {
	if scanDays <= 0 {
		scanDays = availability.DefaultScanDays
	}
	return &AvailabilityService{repo: r, cache: c, cacheTTL: ttl, scanDays: scanDays}
}

func (s *AvailabilityService) OccupiedDates(ctx context.Context, propertyID string) ([]domain.Date, error) {
	key := occupiedKey(propertyID)
	var dates []domain.Date
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &dates); ok {
			return dates, nil
		}
	}

	bookings, err := s.repo.ListBookings(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("list bookings for %s: %w", propertyID, err)
	}
	dates = availability.SortedDates(availability.OccupiedDates(bookings))

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, dates, int(s.cacheTTL.Seconds())); err != nil {
			log.Warn().Str("property", propertyID).Err(err).Msg("occupancy cache set failed")
		}
	}
	return dates, nil
}

func (s *AvailabilityService) engine(ctx context.Context, propertyID string) (*availability.Engine, error) {
	dates, err := s.OccupiedDates(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	return availability.FromOccupied(propertyID, dates, availability.WithScanDays(s.scanDays)), nil
}

func (s *AvailabilityService) IsRangeAvailable(ctx context.Context, propertyID string, checkIn, checkOut domain.Date) (bool, error) {
	rng := domain.DateRange{Start: checkIn, End: checkOut}
	if err := rng.Validate(); err != nil {
		observability.ObserveAvailability("invalid")
		return false, err
	}
	if rng.Nights() > s.scanDays {
		observability.ObserveAvailability("invalid")
		return false, fmt.Errorf("stay of %d nights exceeds %d: %w", rng.Nights(), s.scanDays, domain.ErrInvalidRange)
	}
	e, err := s.engine(ctx, propertyID)
	if err != nil {
		return false, err
	}
	ok, err := e.IsRangeAvailable(propertyID, checkIn, checkOut)
	if err != nil {
		return false, err
	}
	if ok {
		observability.ObserveAvailability("available")
	} else {
		observability.ObserveAvailability("conflict")
	}
	return ok, nil
}

func (s *AvailabilityService) NextAvailableDate(ctx context.Context, propertyID string, from domain.Date) (domain.Date, error) {
	e, err := s.engine(ctx, propertyID)
	if err != nil {
		return domain.Date{}, err
	}
	d, err := e.NextAvailableDate(propertyID, from)
	if errors.Is(err, domain.ErrNoAvailabilityFound) {
		observability.ObserveNextAvailable("exhausted", s.scanDays)
		log.Warn().Str("property", propertyID).Stringer("from", from).Int("scan_days", s.scanDays).
			Msg("no free date in scan window")
		return domain.Date{}, err
	}
	if err != nil {
		return domain.Date{}, err
	}
	observability.ObserveNextAvailable("found", from.DaysUntil(d))
	return d, nil
}

func (s *AvailabilityService) Invalidate(ctx context.Context, propertyID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, occupiedKey(propertyID)); err != nil {
		log.Warn().Str("property", propertyID).Err(err).Msg("occupancy cache invalidation failed")
	}
}
