package app

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"safari_booking/internal/domain"
)

/********** alias registries (single source of truth) **********/

var bookingAliases = map[string][]string{
	"id":          {"id", "booking_id", "bookingId", "reference"},
	"property_id": {"property_id", "propertyId", "property.id", "listing_id"},
	"check_in":    {"check_in", "checkIn", "check_in_date", "start_date", "startDate", "dates.check_in"},
	"check_out":   {"check_out", "checkOut", "check_out_date", "end_date", "endDate", "dates.check_out"},
	"created_at":  {"created_at", "createdAt", "booked_at", "bookingDate"},
	"total":       {"total_amount", "totalAmount", "total", "amount", "price.total"},
	"currency":    {"currency", "price.currency"},
	"status":      {"status", "booking_status", "state"},
	"guest_name":  {"guest_name", "guestName", "guest.name", "customer.name"},
	"guest_email": {"guest_email", "guestEmail", "guest.email", "customer.email"},
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns the value at path as a string, or "".
func lookupStr(m map[string]any, path string) string {
	switch v := lookupAny(m, path).(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func firstAlias(m map[string]any, key string) string {
	for _, p := range bookingAliases[key] {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

// firstFloatAlias returns the first amount alias present. A value that is
// there but is not an amount is an error, not a zero.
func firstFloatAlias(m map[string]any, key string) (float64, bool, error) {
	for _, p := range bookingAliases[key] {
		switch v := lookupAny(m, p).(type) {
		case nil:
			continue
		case float64:
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return 0, false, fmt.Errorf("%s: invalid amount %v", p, v)
			}
			return v, true, nil
		case string:
			if strings.TrimSpace(v) == "" {
				continue
			}
			f, err := parseAmount(v)
			if err != nil {
				return 0, false, fmt.Errorf("%s: %w", p, err)
			}
			return f, true, nil
		default:
			return 0, false, fmt.Errorf("%s: amount of type %T", p, v)
		}
	}
	return 0, false, nil
}

// parseAmount reads "1437.50", "1,437.50", "1.437,50", "1 437,50" and
// "450,50". When both separators appear the last one is the decimal point.
// A lone separator followed by exactly three digits groups thousands.
func parseAmount(raw string) (float64, error) {
	s := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' || r == '_' || r == '\'' {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	dot, comma := strings.LastIndexByte(s, '.'), strings.LastIndexByte(s, ',')
	switch {
	case dot >= 0 && comma >= 0:
		group, dec := ",", "."
		if comma > dot {
			group, dec = ".", ","
		}
		s = strings.ReplaceAll(s, group, "")
		if strings.Count(s, dec) != 1 {
			return 0, fmt.Errorf("invalid amount %q", raw)
		}
		s = strings.Replace(s, dec, ".", 1)
	case comma >= 0:
		s = normalizeSingleSep(s, ",")
	case dot >= 0:
		s = normalizeSingleSep(s, ".")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	return f, nil
}

// normalizeSingleSep handles an amount that uses only sep.
func normalizeSingleSep(s, sep string) string {
	parts := strings.Split(s, sep)
	if len(parts) == 2 && len(parts[1]) != 3 {
		return parts[0] + "." + parts[1]
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return s // let ParseFloat reject it
		}
	}
	return strings.Join(parts, "")
}

func parseTimeFlexible(s string) (time.Time, error) {
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}

/********** booking mapper **********/

// mapBooking turns one upstream payload into a Booking. propertyID fills in
// payloads that omit it (per-property endpoints usually do).
func mapBooking(propertyID string, m map[string]any) (domain.Booking, error) {
	b := domain.Booking{
		ID:         firstAlias(m, "id"),
		PropertyID: firstAlias(m, "property_id"),
		GuestName:  firstAlias(m, "guest_name"),
		GuestEmail: firstAlias(m, "guest_email"),
		Currency:   strings.ToUpper(firstAlias(m, "currency")),
	}
	if b.ID == "" {
		return domain.Booking{}, fmt.Errorf("booking without id")
	}
	if b.PropertyID == "" {
		b.PropertyID = propertyID
	}

	in, err := parseTimeFlexible(firstAlias(m, "check_in"))
	if err != nil {
		return domain.Booking{}, fmt.Errorf("booking %s check-in: %w", b.ID, err)
	}
	out, err := parseTimeFlexible(firstAlias(m, "check_out"))
	if err != nil {
		return domain.Booking{}, fmt.Errorf("booking %s check-out: %w", b.ID, err)
	}
	b.CheckIn, b.CheckOut = domain.DateOf(in), domain.DateOf(out)
	if err := b.Range().Validate(); err != nil {
		return domain.Booking{}, fmt.Errorf("booking %s: %w", b.ID, err)
	}

	if s := firstAlias(m, "created_at"); s != "" {
		if b.CreatedAt, err = parseTimeFlexible(s); err != nil {
			return domain.Booking{}, fmt.Errorf("booking %s created_at: %w", b.ID, err)
		}
	}
	b.CreatedAt = b.CreatedAt.UTC()

	total, ok, err := firstFloatAlias(m, "total")
	if err != nil {
		return domain.Booking{}, fmt.Errorf("booking %s total: %w", b.ID, err)
	}
	if ok {
		b.TotalAmount = total
	}

	if b.Status, err = domain.ParseBookingStatus(firstAlias(m, "status")); err != nil {
		return domain.Booking{}, fmt.Errorf("booking %s status %q: %w", b.ID, firstAlias(m, "status"), err)
	}
	return b, nil
}

// mapBookings maps what it can and logs what it has to skip.
func mapBookings(propertyID string, raw []map[string]any) []domain.Booking {
	out := make([]domain.Booking, 0, len(raw))
	for _, m := range raw {
		b, err := mapBooking(propertyID, m)
		if err != nil {
			log.Warn().Str("property", propertyID).Err(err).Msg("skipping upstream booking")
			continue
		}
		out = append(out, b)
	}
	return out
}
