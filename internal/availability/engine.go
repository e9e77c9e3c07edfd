// Package availability resolves requested stays against the nights already
// held by bookings. Everything here is a pure function of the bookings the
// caller passes in.
package availability

import (
	"sort"

	"safari_booking/internal/domain"
)

// DefaultScanDays bounds NextAvailableDate's forward search (two years).
const DefaultScanDays = 730

// OccupiedDates expands every non-cancelled booking into the nights it holds.
func OccupiedDates(bookings []domain.Booking) map[domain.Date]struct{} {
	out := make(map[domain.Date]struct{})
	for _, b := range bookings {
		if !b.Occupies() {
			continue
		}
		for _, d := range b.Range().Days() {
			out[d] = struct{}{}
		}
	}
	return out
}

// SortedDates flattens an occupancy set into ascending order.
func SortedDates(set map[domain.Date]struct{}) []domain.Date {
	out := make([]domain.Date, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

type Option func(*Engine)

func WithScanDays(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.scanDays = n
		}
	}
}

type Engine struct {
	occupied map[string]map[domain.Date]struct{}
	scanDays int
}

// New indexes bookings by property.
func New(bookings []domain.Booking, opts ...Option) *Engine {
	byProperty := make(map[string][]domain.Booking)
	for _, b := range bookings {
		byProperty[b.PropertyID] = append(byProperty[b.PropertyID], b)
	}
	e := &Engine{
		occupied: make(map[string]map[domain.Date]struct{}, len(byProperty)),
		scanDays: DefaultScanDays,
	}
	for id, bs := range byProperty {
		e.occupied[id] = OccupiedDates(bs)
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// FromOccupied builds an engine for one property from a precomputed date list.
func FromOccupied(propertyID string, dates []domain.Date, opts ...Option) *Engine {
	set := make(map[domain.Date]struct{}, len(dates))
	for _, d := range dates {
		set[d] = struct{}{}
	}
	e := &Engine{
		occupied: map[string]map[domain.Date]struct{}{propertyID: set},
		scanDays: DefaultScanDays,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) IsOccupied(propertyID string, d domain.Date) bool {
	_, ok := e.occupied[propertyID][d]
	return ok
}

func (e *Engine) OccupiedDates(propertyID string) []domain.Date {
	return SortedDates(e.occupied[propertyID])
}

// IsRangeAvailable reports whether no night in [checkIn, checkOut) is held.
func (e *Engine) IsRangeAvailable(propertyID string, checkIn, checkOut domain.Date) (bool, error) {
	r, err := domain.NewDateRange(checkIn, checkOut)
	if err != nil {
		return false, err
	}
	set := e.occupied[propertyID]
	// walk whichever side is shorter
	if len(set) < r.Nights() {
		for d := range set {
			if r.Contains(d) {
				return false, nil
			}
		}
		return true, nil
	}
	for d := r.Start; d.Before(r.End); d = d.AddDays(1) {
		if _, ok := set[d]; ok {
			return false, nil
		}
	}
	return true, nil
}

// NextAvailableDate returns the first free date on or after from.
func (e *Engine) NextAvailableDate(propertyID string, from domain.Date) (domain.Date, error) {
	d := from
	for i := 0; i <= e.scanDays; i++ {
		if !e.IsOccupied(propertyID, d) {
			return d, nil
		}
		d = d.AddDays(1)
	}
	return domain.Date{}, domain.ErrNoAvailabilityFound
}
