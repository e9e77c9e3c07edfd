package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"safari_booking/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}

func ptrTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

// Repo implements domain.BookingRepository and domain.CancellationRepository.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

/********** bookings **********/

func (r *Repo) UpsertBookings(ctx context.Context, bs []domain.Booking) error {
	for start := 0; start < len(bs); start += bookingRowsPerInsert {
		end := min(start+bookingRowsPerInsert, len(bs))
		if err := r.upsertChunk(ctx, bs[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) upsertChunk(ctx context.Context, bs []domain.Booking) error {
	values := make([]string, 0, len(bs))
	args := make([]any, 0, len(bs)*10) // 10 params per row
	for _, b := range bs {
		values = append(values, "(?,?,?,?,?,?,?,?,?,?)")
		args = append(args,
			b.ID,
			b.PropertyID,
			valStr(b.GuestName),
			valStr(b.GuestEmail),
			b.CheckIn.String(),
			b.CheckOut.String(),
			b.CreatedAt.UTC(),
			b.TotalAmount,
			valStr(b.Currency),
			string(b.Status),
		)
	}
	sqlStr := insertBookingsPrefix + strings.Join(values, ",") + insertBookingsOnDup
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("upsert %d bookings: %w", len(bs), err)
	}
	return nil
}

func (r *Repo) UpdateBookingStatus(ctx context.Context, id string, status domain.BookingStatus) error {
	res, err := r.db.ExecContext(ctx, updateBookingStatusSQL, string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// MySQL reports 0 affected rows when the value is unchanged
	return r.exists(ctx, bookingExistsSQL, id)
}

type scanner interface{ Scan(dest ...any) error }

func scanBooking(s scanner) (domain.Booking, error) {
	var (
		b                     domain.Booking
		guestName, guestEmail sql.NullString
		currency              sql.NullString
		checkIn, checkOut     time.Time
		status                string
	)
	if err := s.Scan(
		&b.ID,
		&b.PropertyID,
		&guestName,
		&guestEmail,
		&checkIn,
		&checkOut,
		&b.CreatedAt,
		&b.TotalAmount,
		&currency,
		&status,
	); err != nil {
		return domain.Booking{}, err
	}
	b.GuestName, b.GuestEmail, b.Currency = guestName.String, guestEmail.String, currency.String
	b.CheckIn, b.CheckOut = domain.DateOf(checkIn), domain.DateOf(checkOut)
	b.CreatedAt = b.CreatedAt.UTC()
	st, err := domain.ParseBookingStatus(status)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("booking %s: %w", b.ID, err)
	}
	b.Status = st
	return b, nil
}

func (r *Repo) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, getBookingSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, err
}

func (r *Repo) ListBookings(ctx context.Context, propertyID string) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, listBookingsSQL, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

/********** cancellation requests **********/

func (r *Repo) CreateRequest(ctx context.Context, cr domain.CancellationRequest) error {
	policy, err := json.Marshal(cr.Quote.AppliedPolicy)
	if err != nil {
		return fmt.Errorf("encode applied policy: %w", err)
	}
	_, err = r.db.ExecContext(ctx, insertRequestSQL,
		cr.ID,
		cr.BookingID,
		cr.PropertyID,
		valStr(cr.Reason),
		string(cr.Status),
		cr.Quote.RefundAmount,
		cr.Quote.ProcessingFee,
		cr.Quote.TotalRefund,
		string(policy),
		valStr(cr.AdminNotes),
		cr.RequestedAt.UTC(),
		valTime(cr.ReviewedAt),
		valTime(cr.ProcessedAt),
	)
	return err
}

func (r *Repo) UpdateRequest(ctx context.Context, cr domain.CancellationRequest, from domain.RequestStatus) error {
	res, err := r.db.ExecContext(ctx, updateRequestSQL,
		string(cr.Status),
		valStr(cr.AdminNotes),
		valTime(cr.ReviewedAt),
		valTime(cr.ProcessedAt),
		cr.ID,
		string(from),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if err := r.exists(ctx, requestExistsSQL, cr.ID); err != nil {
		return err
	}
	return fmt.Errorf("request %s moved off %s: %w", cr.ID, from, domain.ErrInvalidRequestState)
}

func scanRequest(s scanner) (domain.CancellationRequest, error) {
	var (
		cr                      domain.CancellationRequest
		reason, notes           sql.NullString
		status                  string
		policy                  []byte
		reviewedAt, processedAt sql.NullTime
	)
	if err := s.Scan(
		&cr.ID,
		&cr.BookingID,
		&cr.PropertyID,
		&reason,
		&status,
		&cr.Quote.RefundAmount,
		&cr.Quote.ProcessingFee,
		&cr.Quote.TotalRefund,
		&policy,
		&notes,
		&cr.RequestedAt,
		&reviewedAt,
		&processedAt,
	); err != nil {
		return domain.CancellationRequest{}, err
	}
	if err := json.Unmarshal(policy, &cr.Quote.AppliedPolicy); err != nil {
		return domain.CancellationRequest{}, fmt.Errorf("request %s applied policy: %w", cr.ID, err)
	}
	cr.Reason, cr.AdminNotes = reason.String, notes.String
	cr.Status = domain.RequestStatus(status)
	cr.RequestedAt = cr.RequestedAt.UTC()
	cr.ReviewedAt, cr.ProcessedAt = ptrTime(reviewedAt), ptrTime(processedAt)
	return cr, nil
}

func (r *Repo) GetRequest(ctx context.Context, id string) (domain.CancellationRequest, error) {
	cr, err := scanRequest(r.db.QueryRowContext(ctx, getRequestSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CancellationRequest{}, domain.ErrNotFound
	}
	return cr, err
}

func (r *Repo) ListRequests(ctx context.Context, bookingID string) ([]domain.CancellationRequest, error) {
	rows, err := r.db.QueryContext(ctx, listRequestsSQL, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CancellationRequest
	for rows.Next() {
		cr, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) exists(ctx context.Context, query, id string) error {
	var one int
	err := r.db.QueryRowContext(ctx, query, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}
