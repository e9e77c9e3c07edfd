package app_test

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"safari_booking/internal/domain"
)

// ---- fakes ----

type fakeBookings struct {
	mu       sync.Mutex
	items    map[string]domain.Booking
	listHits int
}

func newFakeBookings(bs ...domain.Booking) *fakeBookings {
	f := &fakeBookings{items: map[string]domain.Booking{}}
	for _, b := range bs {
		// a local cancellation survives later syncs
		if cur, ok := f.items[b.ID]; ok && cur.Status == domain.StatusCancelled {
			b.Status = cur.Status
		}
		f.items[b.ID] = b
	}
	return f
}

func (f *fakeBookings) UpsertBookings(ctx context.Context, bs []domain.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range bs {
		// a local cancellation survives later syncs
		if cur, ok := f.items[b.ID]; ok && cur.Status == domain.StatusCancelled {
			b.Status = cur.Status
		}
		f.items[b.ID] = b
	}
	return nil
}

func (f *fakeBookings) UpdateBookingStatus(ctx context.Context, id string, st domain.BookingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	b.Status = st
	f.items[id] = b
	return nil
}

func (f *fakeBookings) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.items[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, nil
}

func (f *fakeBookings) ListBookings(ctx context.Context, propertyID string) ([]domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listHits++
	var out []domain.Booking
	for _, b := range f.items {
		if b.PropertyID == propertyID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeRequests struct {
	mu    sync.Mutex
	items map[string]domain.CancellationRequest
}

func newFakeRequests() *fakeRequests {
	return &fakeRequests{items: map[string]domain.CancellationRequest{}}
}

func (f *fakeRequests) CreateRequest(ctx context.Context, r domain.CancellationRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[r.ID] = r
	return nil
}

func (f *fakeRequests) UpdateRequest(ctx context.Context, r domain.CancellationRequest, from domain.RequestStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.items[r.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Status != from {
		return domain.ErrInvalidRequestState
	}
	f.items[r.ID] = r
	return nil
}

func (f *fakeRequests) GetRequest(ctx context.Context, id string) (domain.CancellationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.items[id]
	if !ok {
		return domain.CancellationRequest{}, domain.ErrNotFound
	}
	return r, nil
}

func (f *fakeRequests) ListRequests(ctx context.Context, bookingID string) ([]domain.CancellationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CancellationRequest
	for _, r := range f.items {
		if r.BookingID == bookingID {
			out = append(out, r)
		}
	}
	return out, nil
}

// fakeCache round-trips through JSON like the real one does.
type fakeCache struct {
	store map[string][]byte
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(v, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.dels = append(c.dels, key)
	delete(c.store, key)
	return nil
}

type fakeSource struct {
	payloads  map[string][]map[string]any
	err       error
	cancelErr error
	cancelled []string
}

func (s *fakeSource) ListPropertyBookings(ctx context.Context, propertyID string) ([]map[string]any, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.payloads[propertyID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (s *fakeSource) CancelBooking(ctx context.Context, bookingID string) error {
	if s.cancelErr != nil {
		return s.cancelErr
	}
	s.cancelled = append(s.cancelled, bookingID)
	return nil
}
