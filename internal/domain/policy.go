package domain

// CancellationPolicy is one refund tier. HoursSinceBooking > 0 marks the
// grace tier, which is matched on time since the booking was made rather
// than days before check-in.
type CancellationPolicy struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	DaysBeforeCheckIn int     `json:"daysBeforeCheckIn"`
	HoursSinceBooking int     `json:"hoursSinceBooking,omitempty"`
	RefundPercentage  float64 `json:"refundPercentage"`
	ProcessingFee     float64 `json:"processingFee"`
}

func (p CancellationPolicy) IsGrace() bool { return p.HoursSinceBooking > 0 }

type RefundQuote struct {
	RefundAmount  float64            `json:"refundAmount"`
	ProcessingFee float64            `json:"processingFee"`
	TotalRefund   float64            `json:"totalRefund"`
	AppliedPolicy CancellationPolicy `json:"appliedPolicy"`
}

// DefaultPolicies returns the standard tier table, most favorable first.
func DefaultPolicies() []CancellationPolicy {
	return []CancellationPolicy{
		{
			ID:                "free",
			Name:              "Free",
			Description:       "Full refund when cancelled within 24 hours of booking",
			HoursSinceBooking: 24,
			RefundPercentage:  100,
			ProcessingFee:     0,
		},
		{
			ID:                "standard",
			Name:              "Standard",
			Description:       "75% refund when cancelled 7 or more days before check-in",
			DaysBeforeCheckIn: 7,
			RefundPercentage:  75,
			ProcessingFee:     25,
		},
		{
			ID:                "late",
			Name:              "Late",
			Description:       "50% refund when cancelled 2 to 6 days before check-in",
			DaysBeforeCheckIn: 2,
			RefundPercentage:  50,
			ProcessingFee:     50,
		},
		{
			ID:                "no-refund",
			Name:              "No-refund",
			Description:       "No refund when cancelled less than 2 days before check-in",
			DaysBeforeCheckIn: 0,
			RefundPercentage:  0,
			ProcessingFee:     100,
		},
	}
}
