package domain

import (
	"strings"
	"time"
)

type BookingStatus string

const (
	StatusInquiry     BookingStatus = "inquiry"
	StatusConfirmed   BookingStatus = "confirmed"
	StatusDepositPaid BookingStatus = "deposit-paid"
	StatusFullyPaid   BookingStatus = "fully-paid"
	StatusCompleted   BookingStatus = "completed"
	StatusCancelled   BookingStatus = "cancelled"
)

// statusWire is the one mapping between backend enum values and BookingStatus.
var statusWire = map[BookingStatus]string{
	StatusInquiry:     "inquiry",
	StatusConfirmed:   "confirmed",
	StatusDepositPaid: "deposit_paid",
	StatusFullyPaid:   "fully_paid",
	StatusCompleted:   "completed",
	StatusCancelled:   "cancelled",
}

var wireStatus = func() map[string]BookingStatus {
	m := make(map[string]BookingStatus, len(statusWire)*2)
	for s, w := range statusWire {
		m[w] = s
		m[string(s)] = s
	}
	m["canceled"] = StatusCancelled
	return m
}()

// ParseBookingStatus accepts both backend (deposit_paid) and canonical
// (deposit-paid) spellings, case-insensitively.
func ParseBookingStatus(s string) (BookingStatus, error) {
	st, ok := wireStatus[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", ErrInvalidStatus
	}
	return st, nil
}

// WireValue is the backend enum spelling of s.
func (s BookingStatus) WireValue() string { return statusWire[s] }

func (s BookingStatus) Valid() bool {
	_, ok := statusWire[s]
	return ok
}

type Booking struct {
	ID          string        `json:"id"`
	PropertyID  string        `json:"propertyId"`
	GuestName   string        `json:"guestName,omitempty"`
	GuestEmail  string        `json:"guestEmail,omitempty"`
	CheckIn     Date          `json:"checkIn"`
	CheckOut    Date          `json:"checkOut"`
	CreatedAt   time.Time     `json:"createdAt"`
	TotalAmount float64       `json:"totalAmount"`
	Currency    string        `json:"currency,omitempty"`
	Status      BookingStatus `json:"status"`
}

func (b Booking) Range() DateRange { return DateRange{Start: b.CheckIn, End: b.CheckOut} }

// Occupies reports whether b holds calendar nights; cancelled bookings free their dates.
func (b Booking) Occupies() bool { return b.Status != StatusCancelled }
