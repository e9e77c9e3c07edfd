// Package cancellation picks the refund tier for a cancelled stay and
// decides whether a booking may still be cancelled.
package cancellation

import (
	"math"
	"sort"
	"time"

	"safari_booking/internal/domain"
)

const day = 24 * time.Hour

// DaysUntilCheckIn is ceil((checkIn - at) / 1 day), with check-in taken as
// midnight in at's location.
func DaysUntilCheckIn(b domain.Booking, at time.Time) int {
	diff := b.CheckIn.Time(at.Location()).Sub(at)
	return int(math.Ceil(float64(diff) / float64(day)))
}

// SelectPolicy returns the single tier that applies to a cancellation at `at`.
// A grace tier wins whenever the booking is young enough; otherwise the
// day-based tiers are tried from the largest threshold down.
func SelectPolicy(b domain.Booking, policies []domain.CancellationPolicy, at time.Time) (domain.CancellationPolicy, error) {
	hoursSinceBooking := at.Sub(b.CreatedAt).Hours()
	for _, p := range policies {
		if p.IsGrace() && hoursSinceBooking <= float64(p.HoursSinceBooking) {
			return p, nil
		}
	}

	tiers := make([]domain.CancellationPolicy, 0, len(policies))
	for _, p := range policies {
		if !p.IsGrace() {
			tiers = append(tiers, p)
		}
	}
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].DaysBeforeCheckIn > tiers[j].DaysBeforeCheckIn
	})

	days := DaysUntilCheckIn(b, at)
	if days < 0 {
		days = 0
	}
	for _, p := range tiers {
		if days >= p.DaysBeforeCheckIn {
			return p, nil
		}
	}
	return domain.CancellationPolicy{}, domain.ErrPolicyNotApplicable
}

// CalculateRefund quotes the refund for cancelling b at `at`.
func CalculateRefund(b domain.Booking, policies []domain.CancellationPolicy, at time.Time) (domain.RefundQuote, error) {
	p, err := SelectPolicy(b, policies, at)
	if err != nil {
		return domain.RefundQuote{}, err
	}
	refund := b.TotalAmount * (p.RefundPercentage / 100)
	return domain.RefundQuote{
		RefundAmount:  refund,
		ProcessingFee: p.ProcessingFee,
		TotalRefund:   math.Max(0, refund-p.ProcessingFee),
		AppliedPolicy: p,
	}, nil
}

// CanCancel is false once the stay has started or the booking is already cancelled.
func CanCancel(b domain.Booking, at time.Time) bool {
	if b.Status == domain.StatusCancelled {
		return false
	}
	return at.Before(b.CheckIn.Time(at.Location()))
}
