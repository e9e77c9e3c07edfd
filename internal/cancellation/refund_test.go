package cancellation_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"safari_booking/internal/cancellation"
	"safari_booking/internal/domain"
)

func at(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func serengetiBooking() domain.Booking {
	return domain.Booking{
		ID:          "bk-1",
		PropertyID:  "serengeti-camp",
		CheckIn:     domain.NewDate(2024, 2, 15),
		CheckOut:    domain.NewDate(2024, 2, 20),
		CreatedAt:   at(2024, 1, 10, 0),
		TotalAmount: 1437.50,
		Status:      domain.StatusConfirmed,
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestCalculateRefund_Scenarios(t *testing.T) {
	b := serengetiBooking()
	cases := []struct {
		name         string
		cancelAt     time.Time
		policyID     string
		refundAmount float64
		fee          float64
		total        float64
	}{
		{"same day free grace", at(2024, 1, 10, 0), "free", 1437.50, 0, 1437.50},
		{"two weeks out standard", at(2024, 2, 1, 0), "standard", 1078.125, 25, 1053.125},
		{"five days out late", at(2024, 2, 10, 0), "late", 718.75, 50, 668.75},
		{"one day out no refund", at(2024, 2, 14, 0), "no-refund", 0, 100, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := cancellation.CalculateRefund(b, domain.DefaultPolicies(), tc.cancelAt)
			if err != nil {
				t.Fatalf("err: %v", err)
			}
			if q.AppliedPolicy.ID != tc.policyID {
				t.Fatalf("policy: got %s want %s", q.AppliedPolicy.ID, tc.policyID)
			}
			if !approx(q.RefundAmount, tc.refundAmount) || !approx(q.ProcessingFee, tc.fee) || !approx(q.TotalRefund, tc.total) {
				t.Fatalf("quote: %+v", q)
			}
		})
	}
}

func TestCalculateRefund_GraceOverridesProximity(t *testing.T) {
	b := serengetiBooking()
	b.CreatedAt = at(2024, 2, 14, 8)
	q, err := cancellation.CalculateRefund(b, domain.DefaultPolicies(), at(2024, 2, 14, 20))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if q.AppliedPolicy.ID != "free" || !approx(q.TotalRefund, b.TotalAmount) {
		t.Fatalf("expected free grace refund, got %+v", q)
	}

	// exactly 24h is still within grace, one minute later is not
	q, _ = cancellation.CalculateRefund(b, domain.DefaultPolicies(), at(2024, 2, 15, 8).Add(-time.Minute))
	if q.AppliedPolicy.ID != "free" {
		t.Fatalf("23h59m after booking is still grace: %s", q.AppliedPolicy.ID)
	}
	b.CreatedAt = at(2024, 1, 1, 0)
	q, _ = cancellation.CalculateRefund(b, domain.DefaultPolicies(), at(2024, 1, 2, 0))
	if q.AppliedPolicy.ID != "free" {
		t.Fatalf("24h boundary should be free, got %s", q.AppliedPolicy.ID)
	}
	q, _ = cancellation.CalculateRefund(b, domain.DefaultPolicies(), at(2024, 1, 2, 0).Add(time.Minute))
	if q.AppliedPolicy.ID != "standard" {
		t.Fatalf("past grace should be standard, got %s", q.AppliedPolicy.ID)
	}
}

func TestCalculateRefund_MonotonicAndNonNegative(t *testing.T) {
	for _, total := range []float64{0, 50, 99.99, 1437.5, 20000} {
		b := serengetiBooking()
		b.TotalAmount = total
		prev := math.Inf(1)
		// walk from 30 days before check-in up to the check-in day
		for cancelAt := at(2024, 1, 16, 12); cancelAt.Before(at(2024, 2, 15, 0)); cancelAt = cancelAt.Add(6 * time.Hour) {
			q, err := cancellation.CalculateRefund(b, domain.DefaultPolicies(), cancelAt)
			if err != nil {
				t.Fatalf("%v: %v", cancelAt, err)
			}
			if q.TotalRefund < 0 {
				t.Fatalf("negative refund %v at %v", q.TotalRefund, cancelAt)
			}
			if q.TotalRefund > prev {
				t.Fatalf("refund grew from %v to %v at %v", prev, q.TotalRefund, cancelAt)
			}
			prev = q.TotalRefund
		}
	}
}

func TestCalculateRefund_AfterCheckInFallsToCatchAll(t *testing.T) {
	q, err := cancellation.CalculateRefund(serengetiBooking(), domain.DefaultPolicies(), at(2024, 2, 17, 0))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if q.AppliedPolicy.ID != "no-refund" || q.TotalRefund != 0 {
		t.Fatalf("unexpected quote: %+v", q)
	}
}

func TestCalculateRefund_CustomTableWithoutCatchAll(t *testing.T) {
	policies := []domain.CancellationPolicy{
		{ID: "early", DaysBeforeCheckIn: 30, RefundPercentage: 90, ProcessingFee: 10},
		{ID: "mid", DaysBeforeCheckIn: 10, RefundPercentage: 40, ProcessingFee: 10},
	}
	_, err := cancellation.CalculateRefund(serengetiBooking(), policies, at(2024, 2, 10, 0))
	if !errors.Is(err, domain.ErrPolicyNotApplicable) {
		t.Fatalf("expected ErrPolicyNotApplicable, got %v", err)
	}

	// unordered tables are still matched from the largest threshold down
	q, err := cancellation.CalculateRefund(serengetiBooking(), []domain.CancellationPolicy{policies[1], policies[0]}, at(2024, 1, 12, 0))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	want := domain.RefundQuote{RefundAmount: 1293.75, ProcessingFee: 10, TotalRefund: 1283.75, AppliedPolicy: policies[0]}
	if diff := cmp.Diff(want, q, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("quote mismatch (-want +got):\n%s", diff)
	}
}

func TestDaysUntilCheckIn_RoundsUp(t *testing.T) {
	b := serengetiBooking()
	if d := cancellation.DaysUntilCheckIn(b, at(2024, 2, 1, 0)); d != 14 {
		t.Fatalf("midnight: got %d", d)
	}
	if d := cancellation.DaysUntilCheckIn(b, at(2024, 2, 13, 1)); d != 2 {
		t.Fatalf("1 day 23h should round up to 2, got %d", d)
	}
}

func TestCanCancel(t *testing.T) {
	b := serengetiBooking()
	if !cancellation.CanCancel(b, at(2024, 2, 14, 23)) {
		t.Fatalf("the night before check-in is cancellable")
	}
	if cancellation.CanCancel(b, at(2024, 2, 15, 0)) {
		t.Fatalf("check-in instant is not cancellable")
	}
	if cancellation.CanCancel(b, at(2024, 2, 18, 0)) {
		t.Fatalf("mid-stay is not cancellable")
	}
	if cancellation.CanCancel(b, at(2024, 2, 21, 0)) {
		t.Fatalf("after check-out is not cancellable")
	}
	b.Status = domain.StatusCancelled
	if cancellation.CanCancel(b, at(2024, 1, 20, 0)) {
		t.Fatalf("cancelled booking is not cancellable")
	}
}
