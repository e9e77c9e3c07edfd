package mysql

// -----------------------------------------------------------------------------
// BOOKINGS
// -----------------------------------------------------------------------------

const insertBookingsPrefix = "INSERT INTO bookings\n  (id, property_id, guest_name, guest_email, check_in, check_out, created_at, total_amount, currency, status)\nVALUES "

// Upstream is the source of truth for everything but NULLs and a cancellation
// already recorded here.
const insertBookingsOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  property_id  = VALUES(property_id),\n" +
	"  guest_name   = COALESCE(VALUES(guest_name), bookings.guest_name),\n" +
	"  guest_email  = COALESCE(VALUES(guest_email), bookings.guest_email),\n" +
	"  check_in     = VALUES(check_in),\n" +
	"  check_out    = VALUES(check_out),\n" +
	"  created_at   = VALUES(created_at),\n" +
	"  total_amount = VALUES(total_amount),\n" +
	"  currency     = COALESCE(VALUES(currency), bookings.currency),\n" +
	"  status       = IF(bookings.status = 'cancelled', bookings.status, VALUES(status))\n"

const bookingRowsPerInsert = 500

const updateBookingStatusSQL = `UPDATE bookings SET status = ? WHERE id = ?`

const bookingExistsSQL = `SELECT 1 FROM bookings WHERE id = ?`

const bookingColumns = `id, property_id, guest_name, guest_email, check_in, check_out, created_at, total_amount, currency, status`

const getBookingSQL = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`

// Ordered so occupancy scans walk the calendar forward.
const listBookingsSQL = `SELECT ` + bookingColumns + `
FROM bookings
WHERE property_id = ?
ORDER BY check_in, id`

// -----------------------------------------------------------------------------
// CANCELLATION REQUESTS
// -----------------------------------------------------------------------------

const insertRequestSQL = `
INSERT INTO cancellation_requests
  (id, booking_id, property_id, reason, status, refund_amount, processing_fee, total_refund,
   applied_policy, admin_notes, requested_at, reviewed_at, processed_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// Only review and processing fields change; the quote is frozen at insert.
// Zero affected rows means another writer moved the request first.
const updateRequestSQL = `
UPDATE cancellation_requests
SET status = ?, admin_notes = ?, reviewed_at = ?, processed_at = ?
WHERE id = ? AND status = ?
`

const requestExistsSQL = `SELECT 1 FROM cancellation_requests WHERE id = ?`

const requestColumns = `id, booking_id, property_id, reason, status, refund_amount, processing_fee, total_refund,
  applied_policy, admin_notes, requested_at, reviewed_at, processed_at`

const getRequestSQL = `SELECT ` + requestColumns + ` FROM cancellation_requests WHERE id = ?`

const listRequestsSQL = `SELECT ` + requestColumns + `
FROM cancellation_requests
WHERE booking_id = ?
ORDER BY requested_at DESC, id DESC`
