package domain

// DateRange is the half-open interval [Start, End).
type DateRange struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

func NewDateRange(start, end Date) (DateRange, error) {
	dr := DateRange{Start: start, End: end}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

func (dr DateRange) Validate() error {
	if dr.Start.IsZero() || dr.End.IsZero() || !dr.End.After(dr.Start) {
		return ErrInvalidRange
	}
	return nil
}

func (dr DateRange) Nights() int { return dr.Start.DaysUntil(dr.End) }

func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.Start.Before(other.End) && other.Start.Before(dr.End)
}

func (dr DateRange) Contains(d Date) bool {
	return !d.Before(dr.Start) && d.Before(dr.End)
}

// Days lists every date in the range, End excluded.
func (dr DateRange) Days() []Date {
	n := dr.Nights()
	if n <= 0 {
		return nil
	}
	out := make([]Date, 0, n)
	for d := dr.Start; d.Before(dr.End); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}
