package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidRange        = errors.New("invalid date range: check-out must be after check-in")
	ErrNoAvailabilityFound = errors.New("no available date within scan window")
	ErrPolicyNotApplicable = errors.New("no cancellation policy applies")
	ErrInvalidRequestState = errors.New("cancellation request is not in the expected state")
	ErrNotCancellable      = errors.New("booking cannot be cancelled")
	ErrInvalidStatus       = errors.New("unknown booking status")
)
