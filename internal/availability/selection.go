package availability

import "safari_booking/internal/domain"

type SelectionState int

const (
	AwaitingCheckIn SelectionState = iota
	AwaitingCheckOut
)

func (s SelectionState) String() string {
	if s == AwaitingCheckOut {
		return "awaiting_check_out"
	}
	return "awaiting_check_in"
}

// Selection is the calendar's check-in/check-out picking session.
// Clicks are handled one at a time; it is not safe for concurrent use.
type Selection struct {
	engine     *Engine
	propertyID string
	state      SelectionState
	checkIn    domain.Date
	checkOut   domain.Date
}

func NewSelection() *Selection { return &Selection{} }

// SelectProperty starts a fresh session against the property's occupancy.
func (s *Selection) SelectProperty(propertyID string, e *Engine) {
	*s = Selection{engine: e, propertyID: propertyID}
}

func (s *Selection) State() SelectionState { return s.state }
func (s *Selection) CheckIn() domain.Date  { return s.checkIn }
func (s *Selection) CheckOut() domain.Date { return s.checkOut }

// Complete reports whether both ends of the stay are chosen.
func (s *Selection) Complete() bool {
	return s.state == AwaitingCheckIn && !s.checkIn.IsZero() && !s.checkOut.IsZero()
}

// Click applies one calendar click. Without a selected property it is a no-op.
func (s *Selection) Click(d domain.Date) error {
	if s.engine == nil || s.propertyID == "" {
		return nil
	}
	switch s.state {
	case AwaitingCheckIn:
		in, err := s.firstFree(d)
		if err != nil {
			return err
		}
		s.checkIn = in
		s.checkOut = domain.Date{}
		s.state = AwaitingCheckOut
		return nil

	case AwaitingCheckOut:
		// an earlier or equal date replaces the check-in, the session keeps waiting for a check-out
		if !d.After(s.checkIn) {
			s.checkIn = d
			s.checkOut = domain.Date{}
			return nil
		}
		ok, err := s.engine.IsRangeAvailable(s.propertyID, s.checkIn, d)
		if err != nil {
			return err
		}
		out := d
		if !ok {
			if out, err = s.engine.NextAvailableDate(s.propertyID, d); err != nil {
				return err
			}
		}
		s.checkOut = out
		s.state = AwaitingCheckIn
		return nil
	}
	return nil
}

func (s *Selection) firstFree(d domain.Date) (domain.Date, error) {
	if !s.engine.IsOccupied(s.propertyID, d) {
		return d, nil
	}
	return s.engine.NextAvailableDate(s.propertyID, d)
}
