// Package store reads snapshot rows from the hosted data store's REST
// interface (PostgREST dialect: /rest/v1/<table>?col=eq.value).
package store

import (
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

	"hotel_pms/internal/adapters/observability"
)

const defaultPageSize = 500

type Client struct {
	base     string
	hc       *http.Client
	key      string
	rl       *rate.Limiter
	pageSize int
}

func New(base, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base:     strings.TrimRight(base, "/"),
		hc:       &http.Client{Timeout: 20 * time.Second},
		key:      key,
		rl:       rate.NewLimiter(rate.Limit(rps), rps),
		pageSize: defaultPageSize,
	}, nil
}

// WithPageSize overrides the rows requested per page.
func (c *Client) WithPageSize(n int) *Client {
	if n > 0 {
		c.pageSize = n
	}
	return c
}

// ---- Public API ----

func (c *Client) ListProperties(ctx context.Context) ([]map[string]any, error) {
	return c.list(ctx, "properties", url.Values{"select": {"*"}, "order": {"id.asc"}})
}

func (c *Client) ListRoomTypes(ctx context.Context) ([]map[string]any, error) {
	return c.list(ctx, "room_types", url.Values{"select": {"*"}, "order": {"id.asc"}})
}

// ListBookings pulls a property's bookings with the property name embedded.
// With updatedSince set only rows changed at or after it are returned.
func (c *Client) ListBookings(ctx context.Context, propertyID string, updatedSince *time.Time) ([]map[string]any, error) {
	q := url.Values{
		"select":      {"*,properties(name)"},
		"property_id": {"eq." + propertyID},
		"order":       {"created_at.asc"},
	}
	if updatedSince != nil {
		q.Set("updated_at", "gte."+updatedSince.UTC().Format(time.RFC3339))
	}
	return c.list(ctx, "bookings", q)
}

// ---- Internals ----

var (
	ErrNotFound     = errors.New("store: not found")
	ErrUnauthorized = errors.New("store: unauthorized")
	ErrForbidden    = errors.New("store: forbidden")
)

// list walks limit/offset pages until a short page comes back.
func (c *Client) list(ctx context.Context, table string, q url.Values) ([]map[string]any, error) {
	var out []map[string]any
	for offset := 0; ; offset += c.pageSize {
		page := url.Values{}
		for k, v := range q {
			page[k] = v
		}
		page.Set("limit", strconv.Itoa(c.pageSize))
		page.Set("offset", strconv.Itoa(offset))

		var rows []map[string]any
		u := fmt.Sprintf("%s/rest/v1/%s?%s", c.base, table, page.Encode())
		if err := c.get(ctx, table, u, &rows); err != nil {
			return nil, fmt.Errorf("list %s: %w", table, err)
		}
		out = append(out, rows...)
		if len(rows) < c.pageSize {
			return out, nil
		}
	}
}

// get performs a GET with client-side rate limiting, retries, and JSON decode into out.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) get(ctx context.Context, endpoint, u string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("apikey", c.key)
		req.Header.Set("Authorization", "Bearer "+c.key)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "hotel-pms-sync/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("store", endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("store", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusPartialContent:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
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
			if i < 3 && sleepCtx(ctx, wait) {
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

// sleepCtx waits for d or returns early if ctx is done.
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

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
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
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
