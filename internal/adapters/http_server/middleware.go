package httpserver

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"hotel_pms/internal/adapters/observability"
)

// Deadline bounds each request's context by d. Handlers see
// context.DeadlineExceeded from the services and answer 504 themselves.
func Deadline(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// recorder keeps the first status written.
type recorder struct {
	http.ResponseWriter
	status int
}

func (w *recorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *recorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *recorder) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// routeOf is the matched chi pattern, or the raw path for 404s.
func routeOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &recorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		observability.ObserveHTTP(routeOf(r), r.Method, rec.code(), time.Since(start))
	})
}

// Logger writes one access line per request. Booking and property routes
// also carry the ids they touched and the client's Idempotency-Key.
func Logger(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			route := routeOf(r)
			ev := l.Info()
			if rec.code() >= http.StatusInternalServerError {
				ev = l.Warn()
			}
			ev = ev.
				Str("route", route).
				Str("method", r.Method).
				Str("request_id", chimw.GetReqID(r.Context())).
				Int("status", rec.code()).
				Dur("duration", time.Since(start)).
				Str("remote", clientHost(r.RemoteAddr))

			id := chi.URLParam(r, "id")
			switch {
			case strings.HasPrefix(route, "/v1/bookings"):
				if id != "" {
					ev = ev.Str("booking_id", id)
				}
				if k := r.Header.Get(idempotencyHeader); k != "" {
					ev = ev.Str("idempotency_key", k)
				}
			case strings.HasPrefix(route, "/v1/properties/") && id != "":
				ev = ev.Str("property_id", id)
			case route == "/v1/dashboard" && r.URL.Query().Get("property_id") != "":
				ev = ev.Str("property_id", r.URL.Query().Get("property_id"))
			}
			ev.Msg("http_request")
		})
	}
}

// clientHost strips the port; RealIP has already applied forwarding headers.
func clientHost(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return addr
}
