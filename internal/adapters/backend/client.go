// Package backend talks to the upstream booking service that owns bookings.
package backend

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"safari_booking/internal/adapters/observability"
	"safari_booking/internal/domain"
)

const (
	serviceName = "booking_backend"
	maxAttempts = 4
)

var (
	ErrNotFound     = fmt.Errorf("backend: %w", domain.ErrNotFound)
	ErrUnauthorized = errors.New("backend: unauthorized")
	ErrForbidden    = errors.New("backend: forbidden")
)

type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ListPropertyBookings returns the raw booking payloads for one property.
// Both a bare JSON array and a {"data": [...]} envelope are accepted.
func (c *Client) ListPropertyBookings(ctx context.Context, propertyID string) ([]map[string]any, error) {
	id := url.PathEscape(propertyID)
	candidates := []endpoint{
		{name: "property_bookings", url: fmt.Sprintf("%s/properties/%s/bookings", c.base, id)},
		{name: "bookings_by_property", url: fmt.Sprintf("%s/bookings?property_id=%s", c.base, url.QueryEscape(propertyID))},
	}
	var raw json.RawMessage
	if err := c.getFirst(ctx, candidates, &raw); err != nil {
		return nil, err
	}
	return decodeList(raw)
}

// CancelBooking tells the backend the booking was cancelled here. Repeating
// the call is harmless.
func (c *Client) CancelBooking(ctx context.Context, bookingID string) error {
	body, err := json.Marshal(map[string]string{"status": "cancelled"})
	if err != nil {
		return err
	}
	ep := endpoint{name: "cancel_booking", url: fmt.Sprintf("%s/bookings/%s", c.base, url.PathEscape(bookingID))}
	if err := c.send(ctx, http.MethodPatch, ep, body, nil); err != nil {
		return fmt.Errorf("cancel booking %s upstream: %w", bookingID, err)
	}
	return nil
}

func decodeList(raw json.RawMessage) ([]map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var list []map[string]any
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var env struct {
		Data     []map[string]any `json:"data"`
		Bookings []map[string]any `json:"bookings"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode bookings payload: %w", err)
	}
	if env.Data != nil {
		return env.Data, nil
	}
	return env.Bookings, nil
}

// ---- Internals ----

type endpoint struct {
	name string
	url  string
}

func (c *Client) getFirst(ctx context.Context, eps []endpoint, out any) error {
	var last error
	for _, ep := range eps {
		if err := c.get(ctx, ep, out); err != nil {
			if errors.Is(err, ErrNotFound) {
				last = err
				continue // try next pattern
			}
			return err
		}
		return nil
	}
	if last != nil {
		return last
	}
	return errors.New("no candidate URL succeeded")
}

func (c *Client) get(ctx context.Context, ep endpoint, out any) error {
	return c.send(ctx, http.MethodGet, ep, nil, out)
}

// send performs a rate-limited request with retries on 429 and transient 5xx,
// honoring Retry-After when provided. A nil out discards the response body.
func (c *Client) send(ctx context.Context, method string, ep endpoint, body []byte, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, ep.url, rd)
		if err != nil {
			return err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.key != "" {
			req.Header.Set("X-API-Key", c.key)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "safari-booking/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal(serviceName, ep.name, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < maxAttempts-1 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal(serviceName, ep.name, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			if out == nil {
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				return nil
			}
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err

		case http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < maxAttempts-1 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns false early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
