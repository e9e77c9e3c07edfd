package domain

import "time"

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestRejected  RequestStatus = "rejected"
	RequestProcessed RequestStatus = "processed"
)

// CancellationRequest carries the refund quote computed when it was filed.
// The quote is never recomputed, even if the policy table changes later.
type CancellationRequest struct {
	ID          string        `json:"id"`
	BookingID   string        `json:"bookingId"`
	PropertyID  string        `json:"propertyId"`
	Reason      string        `json:"reason,omitempty"`
	Status      RequestStatus `json:"status"`
	Quote       RefundQuote   `json:"quote"`
	AdminNotes  string        `json:"adminNotes,omitempty"`
	RequestedAt time.Time     `json:"requestedAt"`
	ReviewedAt  *time.Time    `json:"reviewedAt,omitempty"`
	ProcessedAt *time.Time    `json:"processedAt,omitempty"`
}

func (r *CancellationRequest) Approve(notes string, now time.Time) error {
	return r.review(RequestApproved, notes, now)
}

func (r *CancellationRequest) Reject(notes string, now time.Time) error {
	return r.review(RequestRejected, notes, now)
}

func (r *CancellationRequest) review(to RequestStatus, notes string, now time.Time) error {
	if r.Status != RequestPending {
		return ErrInvalidRequestState
	}
	at := now.UTC()
	r.Status = to
	r.AdminNotes = notes
	r.ReviewedAt = &at
	return nil
}

func (r *CancellationRequest) MarkProcessed(now time.Time) error {
	if r.Status != RequestApproved {
		return ErrInvalidRequestState
	}
	at := now.UTC()
	r.Status = RequestProcessed
	r.ProcessedAt = &at
	return nil
}
