package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"hotel_pms/internal/adapters/observability"
	"hotel_pms/internal/app"
	"hotel_pms/internal/core"
	"hotel_pms/internal/domain"
)

const (
	dateLayout        = "2006-01-02"
	idempotencyHeader = "Idempotency-Key"
)

// Queries is the read side the handlers need.
type Queries interface {
	ListProperties(ctx context.Context) ([]domain.PropertyView, error)
	GetProperty(ctx context.Context, id string) (domain.PropertyView, error)
	Occupancy(ctx context.Context, propertyID string, asOf time.Time) (app.OccupancyReport, error)
	Availability(ctx context.Context, q app.AvailabilityQuery) (app.AvailabilityReport, error)
	Dashboard(ctx context.Context, propertyID *string, now time.Time) (core.DashboardMetrics, error)
}

// Bookings is the write side.
type Bookings interface {
	CreateBooking(ctx context.Context, nb domain.NewBooking, idempotencyKey string) (domain.Booking, error)
	GetBooking(ctx context.Context, id string) (domain.Booking, error)
	UpdateStatus(ctx context.Context, id string, next domain.Status) (domain.Booking, error)
}

type Handlers struct {
	Q Queries
	B Bookings
	// Now returns the current time in the hotel's zone; defaults to time.Now.
	Now func() time.Time
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1", func(r chi.Router) {
		r.Get("/properties", h.listProperties)
		r.Get("/properties/{id}", h.getProperty)
		r.Get("/properties/{id}/occupancy", h.occupancy)
		r.Get("/properties/{id}/availability", h.availability)
		r.Get("/dashboard", h.dashboard)

		r.Post("/bookings", h.createBooking)
		r.Get("/bookings/{id}", h.getBooking)
		r.Patch("/bookings/{id}/status", h.updateStatus)
	})
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

// writeError maps service errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ire *core.InvalidRangeError
	switch {
	case errors.As(err, &ire):
		writeProblem(w, http.StatusUnprocessableEntity, "Invalid Date Range", ire.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrConflict):
		observability.ObserveConflict()
		writeProblem(w, http.StatusConflict, "Booking Conflict", err.Error())
	case errors.Is(err, domain.ErrDuplicateRequest):
		writeProblem(w, http.StatusConflict, "Duplicate Request", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeProblem(w, http.StatusConflict, "Invalid Status Transition", err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(r.Context().Err(), context.DeadlineExceeded):
		writeProblem(w, http.StatusGatewayTimeout, "Timeout", "upstream took too long")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
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

// writeCacheable answers 304 when the client already holds this version.
func writeCacheable(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write JSON body")
	}
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(s))
}

// ---- properties ----

func (h *Handlers) listProperties(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.ListProperties(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out == nil {
		out = []domain.PropertyView{}
	}
	writeCacheable(w, r, map[string]any{"items": out})
}

func (h *Handlers) getProperty(w http.ResponseWriter, r *http.Request) {
	pv, err := h.Q.GetProperty(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, pv)
}

func (h *Handlers) occupancy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	asOf := h.now()
	if ds := r.URL.Query().Get("date"); ds != "" {
		d, err := parseDate(ds)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid date", "date must be YYYY-MM-DD")
			return
		}
		asOf = d
	}

	rep, err := h.Q.Occupancy(r.Context(), id, asOf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rep.Date == core.Day(h.now()).Format(dateLayout) {
		observability.ObserveOccupancy(id, rep.Percent)
	}
	writeCacheable(w, r, rep)
}

func (h *Handlers) availability(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	in, err := parseDate(qs.Get("check_in"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid check_in", "check_in must be YYYY-MM-DD")
		return
	}
	out, err := parseDate(qs.Get("check_out"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid check_out", "check_out must be YYYY-MM-DD")
		return
	}

	q := app.AvailabilityQuery{PropertyID: chi.URLParam(r, "id"), CheckIn: in, CheckOut: out}
	if rt := qs.Get("room_type_id"); rt != "" {
		q.RoomTypeID = &rt
	}
	if raw := qs.Get("statuses"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st, ok := domain.ParseStatus(part)
			if !ok {
				writeProblem(w, http.StatusBadRequest, "Invalid statuses", "unknown status "+strings.TrimSpace(part))
				return
			}
			q.Statuses = append(q.Statuses, st)
		}
	}

	rep, err := h.Q.Availability(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, rep)
}

func (h *Handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	var pid *string
	if p := r.URL.Query().Get("property_id"); p != "" {
		pid = &p
	}
	m, err := h.Q.Dashboard(r.Context(), pid, h.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, m)
}

// ---- bookings ----

type bookingRequest struct {
	PropertyID string   `json:"property_id"`
	RoomID     *string  `json:"room_id"`
	RoomTypeID *string  `json:"room_type_id"`
	GuestName  *string  `json:"guest_name"`
	GuestEmail *string  `json:"guest_email"`
	CheckIn    string   `json:"check_in"`
	CheckOut   string   `json:"check_out"`
	Source     string   `json:"source"`
	Amount     *float64 `json:"amount"`
}

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return
	}
	if req.PropertyID == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "property_id is required")
		return
	}
	in, err := parseDate(req.CheckIn)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid check_in", "check_in must be YYYY-MM-DD")
		return
	}
	out, err := parseDate(req.CheckOut)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid check_out", "check_out must be YYYY-MM-DD")
		return
	}

	nb := domain.NewBooking{
		PropertyID: req.PropertyID,
		RoomID:     req.RoomID,
		RoomTypeID: req.RoomTypeID,
		GuestName:  req.GuestName,
		GuestEmail: req.GuestEmail,
		CheckIn:    in,
		CheckOut:   out,
	}
	if req.Source != "" {
		nb.Source = domain.ParseSource(req.Source)
	}
	if req.Amount != nil {
		nb.Amount = *req.Amount
	}

	b, err := h.B.CreateBooking(r.Context(), nb, strings.TrimSpace(r.Header.Get(idempotencyHeader)))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/bookings/"+b.ID)
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.B.GetBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, b)
}

func (h *Handlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return
	}
	st, ok := domain.ParseStatus(req.Status)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid status", "status must be one of pending, confirmed, cancelled, completed")
		return
	}
	b, err := h.B.UpdateStatus(r.Context(), chi.URLParam(r, "id"), st)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
