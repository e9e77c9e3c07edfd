package app_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"safari_booking/internal/app"
	"safari_booking/internal/domain"
)

type cancelFixture struct {
	bookings *fakeBookings
	requests *fakeRequests
	cache    *fakeCache
	svc      *app.CancellationService
	avail    *app.AvailabilityService
}

func newCancelFixture(t *testing.T, policies []domain.CancellationPolicy) *cancelFixture {
	t.Helper()
	f := &cancelFixture{
		bookings: newFakeBookings(stay("bk-1", "serengeti", d(2, 15), d(2, 20), domain.StatusConfirmed)),
		requests: newFakeRequests(),
		cache:    &fakeCache{},
	}
	f.avail = app.NewAvailabilityService(f.bookings, f.cache, time.Hour, 0)
	f.svc = app.NewCancellationService(f.bookings, f.requests, f.avail, policies)
	return f
}

func when(m time.Month, day int) time.Time { return time.Date(2024, m, day, 0, 0, 0, 0, time.UTC) }

func TestQuote_StandardTier(t *testing.T) {
	f := newCancelFixture(t, nil)
	q, err := f.svc.Quote(context.Background(), "bk-1", when(2, 1))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if q.AppliedPolicy.ID != "standard" || math.Abs(q.TotalRefund-1053.125) > 1e-9 {
		t.Fatalf("unexpected quote: %+v", q)
	}
	if _, err := f.svc.Quote(context.Background(), "nope", when(2, 1)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRequest_FullLifecycle(t *testing.T) {
	f := newCancelFixture(t, nil)
	ctx := context.Background()

	// warm the occupancy cache so we can see processing drop it
	if dates, _ := f.avail.OccupiedDates(ctx, "serengeti"); len(dates) != 5 {
		t.Fatalf("expected 5 occupied nights, got %v", dates)
	}

	req, err := f.svc.Request(ctx, "bk-1", "change of plans", when(2, 1))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if req.Status != domain.RequestPending || req.ID == "" || req.PropertyID != "serengeti" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if _, err := f.svc.Process(ctx, req.ID, when(2, 2)); !errors.Is(err, domain.ErrInvalidRequestState) {
		t.Fatalf("processing pending: got %v", err)
	}

	if _, err := f.svc.Approve(ctx, req.ID, "ok", when(2, 2)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	b, _ := f.bookings.GetBooking(ctx, "bk-1")
	if b.Status != domain.StatusConfirmed {
		t.Fatalf("approval alone must not cancel the booking, got %s", b.Status)
	}

	done, err := f.svc.Process(ctx, req.ID, when(2, 3))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if done.Status != domain.RequestProcessed || done.ProcessedAt == nil {
		t.Fatalf("unexpected processed request: %+v", done)
	}
	b, _ = f.bookings.GetBooking(ctx, "bk-1")
	if b.Status != domain.StatusCancelled {
		t.Fatalf("booking should be cancelled, got %s", b.Status)
	}
	if dates, _ := f.avail.OccupiedDates(ctx, "serengeti"); len(dates) != 0 {
		t.Fatalf("cancelled booking must free its nights, got %v", dates)
	}

	list, _ := f.svc.ListForBooking(ctx, "bk-1")
	if len(list) != 1 {
		t.Fatalf("expected 1 request, got %d", len(list))
	}
}

func TestRequest_QuoteFrozenAtCreation(t *testing.T) {
	f := newCancelFixture(t, nil)
	ctx := context.Background()

	req, err := f.svc.Request(ctx, "bk-1", "", when(2, 1))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	// reviewing late must not move the customer to a worse tier
	got, err := f.svc.Approve(ctx, req.ID, "", when(2, 14))
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got.Quote != req.Quote || got.Quote.AppliedPolicy.ID != "standard" {
		t.Fatalf("quote changed: %+v vs %+v", got.Quote, req.Quote)
	}
}

func TestRequest_RefusesNonCancellable(t *testing.T) {
	f := newCancelFixture(t, nil)
	ctx := context.Background()

	if _, err := f.svc.Request(ctx, "bk-1", "", when(2, 16)); !errors.Is(err, domain.ErrNotCancellable) {
		t.Fatalf("mid-stay: expected ErrNotCancellable, got %v", err)
	}
	_ = f.bookings.UpdateBookingStatus(ctx, "bk-1", domain.StatusCancelled)
	if _, err := f.svc.Request(ctx, "bk-1", "", when(2, 1)); !errors.Is(err, domain.ErrNotCancellable) {
		t.Fatalf("already cancelled: expected ErrNotCancellable, got %v", err)
	}
	ok, err := f.svc.CanCancel(ctx, "bk-1", when(2, 1))
	if err != nil || ok {
		t.Fatalf("CanCancel: %v %v", ok, err)
	}
}

func TestRequest_PolicyNotApplicable(t *testing.T) {
	f := newCancelFixture(t, []domain.CancellationPolicy{
		{ID: "early-only", DaysBeforeCheckIn: 30, RefundPercentage: 80},
	})
	_, err := f.svc.Request(context.Background(), "bk-1", "", when(2, 10))
	if !errors.Is(err, domain.ErrPolicyNotApplicable) {
		t.Fatalf("expected ErrPolicyNotApplicable, got %v", err)
	}
	if len(f.requests.items) != 0 {
		t.Fatalf("nothing should be stored")
	}
}

func TestReject_IsTerminal(t *testing.T) {
	f := newCancelFixture(t, nil)
	ctx := context.Background()
	req, _ := f.svc.Request(ctx, "bk-1", "", when(2, 1))

	if _, err := f.svc.Reject(ctx, req.ID, "outside policy", when(2, 2)); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := f.svc.Approve(ctx, req.ID, "", when(2, 3)); !errors.Is(err, domain.ErrInvalidRequestState) {
		t.Fatalf("approve after reject: got %v", err)
	}
	if _, err := f.svc.Process(ctx, req.ID, when(2, 3)); !errors.Is(err, domain.ErrInvalidRequestState) {
		t.Fatalf("process after reject: got %v", err)
	}
	b, _ := f.bookings.GetBooking(ctx, "bk-1")
	if b.Status != domain.StatusConfirmed {
		t.Fatalf("rejected request must leave booking alone")
	}
}

func TestPolicies_DefaultsAndCopy(t *testing.T) {
	f := newCancelFixture(t, nil)
	ps := f.svc.Policies()
	if len(ps) != 4 || ps[0].ID != "free" {
		t.Fatalf("unexpected defaults: %+v", ps)
	}
	ps[0].RefundPercentage = 0
	if f.svc.Policies()[0].RefundPercentage != 100 {
		t.Fatalf("Policies must return a copy")
	}
}

func TestRequest_OneOpenRequestPerBooking(t *testing.T) {
	f := newCancelFixture(t, nil)
	ctx := context.Background()

	first, err := f.svc.Request(ctx, "bk-1", "", when(2, 1))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := f.svc.Request(ctx, "bk-1", "again", when(2, 1)); !errors.Is(err, domain.ErrInvalidRequestState) {
		t.Fatalf("pending: expected ErrInvalidRequestState, got %v", err)
	}
	if _, err := f.svc.Approve(ctx, first.ID, "", when(2, 2)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := f.svc.Request(ctx, "bk-1", "again", when(2, 2)); !errors.Is(err, domain.ErrInvalidRequestState) {
		t.Fatalf("approved: expected ErrInvalidRequestState, got %v", err)
	}
	if len(f.requests.items) != 1 {
		t.Fatalf("expected 1 stored request, got %d", len(f.requests.items))
	}
}

func TestRequest_AllowedAgainAfterReject(t *testing.T) {
	f := newCancelFixture(t, nil)
	ctx := context.Background()

	first, _ := f.svc.Request(ctx, "bk-1", "", when(2, 1))
	if _, err := f.svc.Reject(ctx, first.ID, "no", when(2, 2)); err != nil {
		t.Fatalf("reject: %v", err)
	}
	second, err := f.svc.Request(ctx, "bk-1", "", when(2, 3))
	if err != nil || second.ID == first.ID {
		t.Fatalf("new request after reject: %+v %v", second, err)
	}
}

func TestProcess_UpstreamFailureKeepsApproved(t *testing.T) {
	f := newCancelFixture(t, nil)
	src := &fakeSource{cancelErr: errors.New("backend down")}
	f.svc.WithUpstream(src)
	ctx := context.Background()

	req, _ := f.svc.Request(ctx, "bk-1", "", when(2, 1))
	if _, err := f.svc.Approve(ctx, req.ID, "", when(2, 2)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := f.svc.Process(ctx, req.ID, when(2, 3)); err == nil {
		t.Fatalf("expected upstream error")
	}
	got, _ := f.svc.Get(ctx, req.ID)
	b, _ := f.bookings.GetBooking(ctx, "bk-1")
	if got.Status != domain.RequestApproved || b.Status != domain.StatusConfirmed {
		t.Fatalf("failed process must change nothing: %s %s", got.Status, b.Status)
	}

	src.cancelErr = nil
	if _, err := f.svc.Process(ctx, req.ID, when(2, 4)); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(src.cancelled) != 1 {
		t.Fatalf("expected one upstream cancel, got %v", src.cancelled)
	}
}
