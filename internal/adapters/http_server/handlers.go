// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"safari_booking/internal/adapters/observability"
	"safari_booking/internal/app"
	"safari_booking/internal/domain"
)

type Handlers struct {
	Avail  *app.AvailabilityService
	Cancel *app.CancellationService
	Now    func() time.Time
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1/properties/{id}", func(r chi.Router) {
		r.Get("/occupied-dates", h.occupiedDates)
		r.Get("/availability", h.availability)
		r.Get("/next-available", h.nextAvailable)
	})
	s.mux.Route("/v1/bookings/{id}", func(r chi.Router) {
		r.Get("/refund-quote", h.refundQuote)
		r.Get("/cancellable", h.cancellable)
		r.Post("/cancellation-requests", h.createRequest)
		r.Get("/cancellation-requests", h.listRequests)
	})
	s.mux.Route("/v1/cancellation-requests/{id}", func(r chi.Router) {
		r.Get("/", h.getRequest)
		r.Post("/approve", h.approve)
		r.Post("/reject", h.reject)
		r.Post("/process", h.process)
	})
	s.mux.Get("/v1/cancellation-policies", h.policies)
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain sentinels onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRange):
		writeProblem(w, http.StatusBadRequest, "Invalid Range", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrInvalidRequestState):
		writeProblem(w, http.StatusConflict, "Invalid Request State", err.Error())
	case errors.Is(err, domain.ErrNotCancellable):
		writeProblem(w, http.StatusConflict, "Not Cancellable", err.Error())
	case errors.Is(err, domain.ErrNoAvailabilityFound):
		writeProblem(w, http.StatusUnprocessableEntity, "No Availability", err.Error())
	case errors.Is(err, domain.ErrPolicyNotApplicable):
		writeProblem(w, http.StatusUnprocessableEntity, "Policy Not Applicable", err.Error())
	default:
		log.Error().Err(err).Str("kind", observability.LabelErr(err)).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeJSON sends v; GET responses carry an ETag and honor If-None-Match.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	if r.Method == http.MethodGet && etag != "" {
		if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
			w.Header().Set("ETag", etag)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func dateParam(r *http.Request, name string) (domain.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return domain.Date{}, fmt.Errorf("%s is required (YYYY-MM-DD)", name)
	}
	d, err := domain.ParseDate(v)
	if err != nil {
		return domain.Date{}, fmt.Errorf("%s must be YYYY-MM-DD", name)
	}
	return d, nil
}

// atParam reads the optional `at` instant (RFC 3339), defaulting to now.
func (h *Handlers) atParam(r *http.Request) (time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get("at"))
	if v == "" {
		return h.now(), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("at must be an RFC 3339 timestamp")
	}
	return t, nil
}

// decodeBody tolerates an empty body.
func decodeBody(r *http.Request, dst any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

/********** availability **********/

func (h *Handlers) occupiedDates(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	dates, err := h.Avail.OccupiedDates(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if dates == nil {
		dates = []domain.Date{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"propertyId": id, "dates": dates})
}

func (h *Handlers) availability(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	in, err := dateParam(r, "check_in")
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Parameter", err.Error())
		return
	}
	out, err := dateParam(r, "check_out")
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Parameter", err.Error())
		return
	}
	ok, err := h.Avail.IsRangeAvailable(r.Context(), id, in, out)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"propertyId": id, "checkIn": in, "checkOut": out, "available": ok,
	})
}

func (h *Handlers) nextAvailable(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	from := domain.DateOf(h.now())
	if r.URL.Query().Get("from") != "" {
		var err error
		if from, err = dateParam(r, "from"); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid Parameter", err.Error())
			return
		}
	}
	d, err := h.Avail.NextAvailableDate(r.Context(), id, from)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"propertyId": id, "from": from, "date": d})
}

/********** cancellation **********/

func (h *Handlers) refundQuote(w http.ResponseWriter, r *http.Request) {
	at, err := h.atParam(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Parameter", err.Error())
		return
	}
	q, err := h.Cancel.Quote(r.Context(), chi.URLParam(r, "id"), at)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, q)
}

func (h *Handlers) cancellable(w http.ResponseWriter, r *http.Request) {
	at, err := h.atParam(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Parameter", err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	ok, err := h.Cancel.CanCancel(r.Context(), id, at)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"bookingId": id, "cancellable": ok})
}

func (h *Handlers) createRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "body must be JSON")
		return
	}
	req, err := h.Cancel.Request(r.Context(), chi.URLParam(r, "id"), body.Reason, h.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/cancellation-requests/"+req.ID)
	writeJSON(w, r, http.StatusCreated, req)
}

func (h *Handlers) listRequests(w http.ResponseWriter, r *http.Request) {
	out, err := h.Cancel.ListForBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out == nil {
		out = []domain.CancellationRequest{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"items": out})
}

func (h *Handlers) getRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Cancel.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, req)
}

type reviewFunc func(svc *app.CancellationService, r *http.Request, id, notes string, at time.Time) (domain.CancellationRequest, error)

func (h *Handlers) review(do reviewFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Notes string `json:"notes"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid Body", "body must be JSON")
			return
		}
		req, err := do(h.Cancel, r, chi.URLParam(r, "id"), body.Notes, h.now())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, req)
	}
}

func (h *Handlers) approve(w http.ResponseWriter, r *http.Request) {
	h.review(func(s *app.CancellationService, r *http.Request, id, notes string, at time.Time) (domain.CancellationRequest, error) {
		return s.Approve(r.Context(), id, notes, at)
	})(w, r)
}

func (h *Handlers) reject(w http.ResponseWriter, r *http.Request) {
	h.review(func(s *app.CancellationService, r *http.Request, id, notes string, at time.Time) (domain.CancellationRequest, error) {
		return s.Reject(r.Context(), id, notes, at)
	})(w, r)
}

func (h *Handlers) process(w http.ResponseWriter, r *http.Request) {
	h.review(func(s *app.CancellationService, r *http.Request, id, _ string, at time.Time) (domain.CancellationRequest, error) {
		return s.Process(r.Context(), id, at)
	})(w, r)
}

func (h *Handlers) policies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{"items": h.Cancel.Policies()})
}
