// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/rolegate/internal/logging"
	"github.com/tomtom215/rolegate/internal/metrics"
	"github.com/tomtom215/rolegate/internal/roles"
)

const (
	opFetchAll = "fetch_all"
	opFetchOne = "fetch_one"

	maxErrorBody = 64 << 10
)

// Config configures HTTPSource.
type Config struct {
	// BaseURL is the store's API root, e.g. https://sheets.example.com.
	BaseURL string

	// APIKey is sent as a bearer token.
	APIKey string

	// Collection names the sheet holding the role rows.
	Collection string

	// PageSize is the number of rows requested per page.
	PageSize int

	// RequestTimeout bounds each HTTP request. Callers' contexts may be shorter.
	RequestTimeout time.Duration

	// RateLimit is the sustained outbound request rate per second; Burst the
	// bucket size. Zero disables client-side throttling.
	RateLimit float64
	Burst     int

	// HTTPClient overrides the default client. Tests use it.
	HTTPClient *http.Client
}

// HTTPSource reads role rows from the record store's REST API.
type HTTPSource struct {
	recordsURL string
	apiKey     string
	pageSize   int
	client     *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// NewHTTPSource validates cfg and builds a source.
func NewHTTPSource(cfg Config) (*HTTPSource, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid record store URL %q", cfg.BaseURL)
	}
	if cfg.Collection == "" {
		return nil, errors.New("record store collection is required")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 200
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.RequestTimeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &HTTPSource{
		recordsURL: strings.TrimRight(u.String(), "/") + "/v1/collections/" + url.PathEscape(cfg.Collection) + "/records",
		apiKey:     cfg.APIKey,
		pageSize:   cfg.PageSize,
		client:     client,
		limiter:    limiter,
		logger:     logging.WithComponent("source"),
	}, nil
}

// FetchAllActive walks every page of the collection.
//
// Inactive rows are returned with Active false so the cache can tell revoked
// users from unknown ones. The result is complete or the error is a
// *PartialSyncError (some pages or rows missing) or ErrSourceUnavailable
// (nothing retrieved). Duplicate rows for a user are collapsed with the same
// rule FetchOne applies.
func (s *HTTPSource) FetchAllActive(ctx context.Context) ([]roles.Record, error) {
	var (
		out     []roles.Record
		invalid int
		seen    int
		total   = -1
	)

	for offset := 0; ; {
		q := url.Values{}
		q.Set("offset", strconv.Itoa(offset))
		q.Set("limit", strconv.Itoa(s.pageSize))

		page, err := s.get(ctx, opFetchAll, q)
		if err != nil {
			if total < 0 {
				return nil, err
			}
			out = roles.Dedupe(out)
			return out, &PartialSyncError{
				Fetched: len(out),
				Failed:  invalid + max(total-seen, 0),
				Invalid: invalid,
				Err:     err,
			}
		}
		if total < 0 {
			total = page.Total
		}

		for i := range page.Records {
			seen++
			rec, err := page.Records[i].toRecord()
			if err != nil {
				invalid++
				metrics.SourceRowsRejected.Inc()
				s.logger.Warn().Err(err).Int("row", offset+i).Msg("Rejected role row")
				continue
			}
			out = append(out, rec)
		}

		offset += len(page.Records)
		if len(page.Records) == 0 || offset >= total {
			break
		}
	}

	out = roles.Dedupe(out)
	if seen < total {
		return out, &PartialSyncError{
			Fetched: len(out),
			Failed:  invalid + (total - seen),
			Invalid: invalid,
			Err:     fmt.Errorf("store reported %d rows but returned %d", total, seen),
		}
	}
	if invalid > 0 {
		return out, &PartialSyncError{Fetched: len(out), Failed: invalid, Invalid: invalid}
	}
	return out, nil
}

// FetchOne looks up a single user. When the store holds several rows for the
// user an active row wins; among equals the last row wins.
func (s *HTTPSource) FetchOne(ctx context.Context, userID string) (*roles.Record, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, nil
	}

	q := url.Values{}
	q.Set("user_id", userID)
	page, err := s.get(ctx, opFetchOne, q)
	if err != nil {
		return nil, err
	}

	var found *roles.Record
	for i := range page.Records {
		rec, err := page.Records[i].toRecord()
		if err != nil {
			metrics.SourceRowsRejected.Inc()
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("Rejected role row")
			continue
		}
		if rec.UserID != userID {
			continue
		}
		if found == nil || rec.Supersedes(*found) {
			r := rec
			found = &r
		}
	}
	return found, nil
}

func (s *HTTPSource) get(ctx context.Context, op string, q url.Values) (*recordPage, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: waiting for request slot: %w", ErrSourceUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.recordsURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		metrics.RecordSourceRequest(op, "error", time.Since(start))
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		metrics.RecordSourceRequest(op, "rate_limited", time.Since(start))
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w (retry-after %q)", ErrRateLimited, resp.Header.Get("Retry-After"))
	case resp.StatusCode != http.StatusOK:
		metrics.RecordSourceRequest(op, "error", time.Since(start))
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: status %d: %s", ErrSourceUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var page recordPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		metrics.RecordSourceRequest(op, "error", time.Since(start))
		return nil, fmt.Errorf("%w: decode response: %w", ErrSourceUnavailable, err)
	}
	metrics.RecordSourceRequest(op, "success", time.Since(start))
	return &page, nil
}
