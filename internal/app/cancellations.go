package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"safari_booking/internal/adapters/observability"
	"safari_booking/internal/cancellation"
	"safari_booking/internal/domain"
)

// CancellationService runs the quote, request, review and process flow.
// Every method takes the as-of time explicitly.
type CancellationService struct {
	bookings     domain.BookingRepository
	requests     domain.CancellationRepository
	availability *AvailabilityService
	upstream     domain.BookingSource
	policies     []domain.CancellationPolicy
	newID        func() string
}

func NewCancellationService(
	b domain.BookingRepository,
	r domain.CancellationRepository,
	a *AvailabilityService,
	policies []domain.CancellationPolicy,
) *CancellationService {
	if len(policies) == 0 {
		policies = domain.DefaultPolicies()
	}
	return &CancellationService{
		bookings:     b,
		requests:     r,
		availability: a,
		policies:     policies,
		newID:        func() string { return uuid.NewString() },
	}
}

// WithUpstream makes Process report cancellations to the booking backend.
func (s *CancellationService) WithUpstream(src domain.BookingSource) *CancellationService {
	s.upstream = src
	return s
}

func (s *CancellationService) Policies() []domain.CancellationPolicy {
	out := make([]domain.CancellationPolicy, len(s.policies))
	copy(out, s.policies)
	return out
}

func (s *CancellationService) Quote(ctx context.Context, bookingID string, at time.Time) (domain.RefundQuote, error) {
	b, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return domain.RefundQuote{}, err
	}
	q, err := cancellation.CalculateRefund(b, s.policies, at)
	if err != nil {
		return domain.RefundQuote{}, fmt.Errorf("quote booking %s: %w", bookingID, err)
	}
	observability.ObserveRefundQuote(q.AppliedPolicy.ID)
	return q, nil
}

func (s *CancellationService) CanCancel(ctx context.Context, bookingID string, at time.Time) (bool, error) {
	b, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return false, err
	}
	return cancellation.CanCancel(b, at), nil
}

// Request files a pending cancellation with the quote frozen at `at`.
func (s *CancellationService) Request(ctx context.Context, bookingID, reason string, at time.Time) (domain.CancellationRequest, error) {
	b, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return domain.CancellationRequest{}, err
	}
	if !cancellation.CanCancel(b, at) {
		return domain.CancellationRequest{}, fmt.Errorf("booking %s: %w", bookingID, domain.ErrNotCancellable)
	}
	existing, err := s.requests.ListRequests(ctx, b.ID)
	if err != nil {
		return domain.CancellationRequest{}, fmt.Errorf("list requests for %s: %w", b.ID, err)
	}
	for _, r := range existing {
		if r.Status == domain.RequestPending || r.Status == domain.RequestApproved {
			return domain.CancellationRequest{}, fmt.Errorf("booking %s has open request %s (%s): %w",
				b.ID, r.ID, r.Status, domain.ErrInvalidRequestState)
		}
	}
	q, err := cancellation.CalculateRefund(b, s.policies, at)
	if err != nil {
		return domain.CancellationRequest{}, fmt.Errorf("quote booking %s: %w", bookingID, err)
	}
	observability.ObserveRefundQuote(q.AppliedPolicy.ID)

	req := domain.CancellationRequest{
		ID:          s.newID(),
		BookingID:   b.ID,
		PropertyID:  b.PropertyID,
		Reason:      reason,
		Status:      domain.RequestPending,
		Quote:       q,
		RequestedAt: at.UTC(),
	}
	if err := s.requests.CreateRequest(ctx, req); err != nil {
		return domain.CancellationRequest{}, fmt.Errorf("store cancellation request: %w", err)
	}
	observability.ObserveTransition(string(domain.RequestPending))
	log.Info().Str("request", req.ID).Str("booking", b.ID).Str("policy", q.AppliedPolicy.ID).
		Float64("total_refund", q.TotalRefund).Msg("cancellation requested")
	return req, nil
}

func (s *CancellationService) Get(ctx context.Context, id string) (domain.CancellationRequest, error) {
	return s.requests.GetRequest(ctx, id)
}

func (s *CancellationService) ListForBooking(ctx context.Context, bookingID string) ([]domain.CancellationRequest, error) {
	return s.requests.ListRequests(ctx, bookingID)
}

func (s *CancellationService) Approve(ctx context.Context, id, notes string, at time.Time) (domain.CancellationRequest, error) {
	return s.transition(ctx, id, func(r *domain.CancellationRequest) error { return r.Approve(notes, at) })
}

func (s *CancellationService) Reject(ctx context.Context, id, notes string, at time.Time) (domain.CancellationRequest, error) {
	return s.transition(ctx, id, func(r *domain.CancellationRequest) error { return r.Reject(notes, at) })
}

// Process completes an approved request: the backend is told first, then the
// booking flips to cancelled and its nights are released. A failed upstream
// call leaves the request approved so Process can be retried.
func (s *CancellationService) Process(ctx context.Context, id string, at time.Time) (domain.CancellationRequest, error) {
	req, err := s.requests.GetRequest(ctx, id)
	if err != nil {
		return domain.CancellationRequest{}, err
	}
	if req.Status != domain.RequestApproved {
		return domain.CancellationRequest{}, fmt.Errorf("process %s (%s): %w", id, req.Status, domain.ErrInvalidRequestState)
	}
	if s.upstream != nil {
		if err := s.upstream.CancelBooking(ctx, req.BookingID); err != nil {
			return domain.CancellationRequest{}, err
		}
	}
	if err := s.bookings.UpdateBookingStatus(ctx, req.BookingID, domain.StatusCancelled); err != nil {
		return domain.CancellationRequest{}, fmt.Errorf("cancel booking %s: %w", req.BookingID, err)
	}
	if s.availability != nil {
		s.availability.Invalidate(ctx, req.PropertyID)
	}
	return s.transition(ctx, id, func(r *domain.CancellationRequest) error { return r.MarkProcessed(at) })
}

func (s *CancellationService) transition(ctx context.Context, id string, apply func(*domain.CancellationRequest) error) (domain.CancellationRequest, error) {
	req, err := s.requests.GetRequest(ctx, id)
	if err != nil {
		return domain.CancellationRequest{}, err
	}
	from := req.Status
	if err := apply(&req); err != nil {
		return domain.CancellationRequest{}, fmt.Errorf("request %s (%s): %w", id, from, err)
	}
	if err := s.requests.UpdateRequest(ctx, req, from); err != nil {
		return domain.CancellationRequest{}, err
	}
	observability.ObserveTransition(string(req.Status))
	log.Info().Str("request", id).Str("from", string(from)).Str("to", string(req.Status)).Msg("cancellation request updated")
	return req, nil
}
