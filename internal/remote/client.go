// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/heary-aldy/lpmi40-sub009/internal/config"
	"github.com/heary-aldy/lpmi40-sub009/internal/metrics"
	"github.com/heary-aldy/lpmi40-sub009/internal/models"
)

// Errors
var (
	// ErrRemoteUnavailable covers network failures, timeouts, HTTP 5xx,
	// and open-breaker rejections. Callers fall back to cached data.
	ErrRemoteUnavailable = errors.New("remote source unavailable")

	// ErrNotFound is returned when the remote has no data for an id.
	ErrNotFound = errors.New("collection not found in remote source")
)

// maxErrorBodySize limits the maximum amount of response body read for error reporting
// This prevents unbounded memory allocation when reading large error responses
const maxErrorBodySize = 64 * 1024 // 64KB

// readBodyForError reads the response body for error reporting (max 64KB)
func readBodyForError(r io.Reader) []byte {
	limitedReader := io.LimitReader(r, maxErrorBodySize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// Client talks to the remote collection database. Safe for concurrent use.
//
// Rate limiting happens before each request via a token bucket; HTTP 429
// responses are additionally retried with exponential backoff honoring
// Retry-After.
type Client struct {
	baseURL        string
	authToken      string
	client         *http.Client
	limiter        *rate.Limiter
	maxRetries     int           // Maximum retries for rate limiting
	retryBaseDelay time.Duration // Base delay for exponential backoff
}

// NewClient creates a remote client from configuration.
func NewClient(cfg config.RemoteConfig) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		authToken: cfg.AuthToken,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:        rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: 1 * time.Second,
	}
}

// buildURL assembles {base}{path}.json with the auth token when configured.
func (c *Client) buildURL(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	if c.authToken != "" {
		params.Set("auth", c.authToken)
	}

	u := c.baseURL + path + ".json"
	if encoded := params.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

// doRequest performs an HTTP request with rate limiting and automatic 429
// backoff (1s, 2s, 4s, ...), honoring Retry-After. The context cancels both
// the request and any backoff wait.
func (c *Client) doRequest(ctx context.Context, method, reqURL string, body []byte) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", ErrRemoteUnavailable, err)
	}

	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, ctx.Err())
		}

		var reader io.Reader = http.NoBody
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		// Rate limited (HTTP 429) - close body and retry with backoff
		_ = resp.Body.Close()

		if attempt == c.maxRetries {
			lastErr = fmt.Errorf("%w: rate limit exceeded after %d retries (HTTP 429)", ErrRemoteUnavailable, c.maxRetries)
			break
		}

		metrics.RemoteRetries.Inc()

		// Exponential backoff: 1s, 2s, 4s, 8s, ...
		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))

		// Retry-After header (RFC 6585) overrides the computed delay
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil {
				delay = time.Duration(seconds) * time.Second
			}
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, ctx.Err())
		}
	}

	return nil, lastErr
}

// ListCollectionIDs returns every collection id known to the remote, in
// ascending order. Uses a shallow query so only keys travel the wire.
func (c *Client) ListCollectionIDs(ctx context.Context) ([]string, error) {
	start := time.Now()

	params := url.Values{}
	params.Set("shallow", "true")
	reqURL := c.buildURL("/collections", params)

	resp, err := c.doRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		metrics.RecordRemoteRequest("list", "error", time.Since(start))
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer resp.Body.Close()

	metrics.RecordRemoteRequest("list", strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return nil, fmt.Errorf("%w: list returned status %d: %s", ErrRemoteUnavailable, resp.StatusCode, string(body))
	}

	// Shallow queries return {"id": true, ...} or null when empty
	var shallow map[string]bool
	if err := json.NewDecoder(resp.Body).Decode(&shallow); err != nil {
		return nil, fmt.Errorf("%w: decode listing: %v", ErrRemoteUnavailable, err)
	}

	ids := make([]string, 0, len(shallow))
	for id := range shallow {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ReadCollection fetches one collection's full export (metadata plus songs).
// Returns ErrNotFound when the remote has no node for the id.
func (c *Client) ReadCollection(ctx context.Context, id string) (*models.CollectionExport, error) {
	start := time.Now()

	reqURL := c.buildURL("/collections/"+url.PathEscape(id), nil)

	resp, err := c.doRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		metrics.RecordRemoteRequest("read", "error", time.Since(start))
		return nil, fmt.Errorf("read collection %s: %w", id, err)
	}
	defer resp.Body.Close()

	metrics.RecordRemoteRequest("read", strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("read collection %s: %w", id, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return nil, fmt.Errorf("%w: read %s returned status %d: %s", ErrRemoteUnavailable, id, resp.StatusCode, string(body))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s body: %v", ErrRemoteUnavailable, id, err)
	}

	// A missing node comes back as HTTP 200 with the literal null
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, fmt.Errorf("read collection %s: %w", id, ErrNotFound)
	}

	var export models.CollectionExport
	if err := json.Unmarshal(raw, &export); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrRemoteUnavailable, id, err)
	}
	return &export, nil
}

// WriteSongs replaces a collection's songs map, leaving metadata untouched.
func (c *Client) WriteSongs(ctx context.Context, id string, songs []models.Song) error {
	start := time.Now()

	payload, err := json.Marshal(models.ExportSongs(songs))
	if err != nil {
		return fmt.Errorf("marshal songs for %s: %w", id, err)
	}

	reqURL := c.buildURL("/collections/"+url.PathEscape(id)+"/songs", nil)

	resp, err := c.doRequest(ctx, http.MethodPut, reqURL, payload)
	if err != nil {
		metrics.RecordRemoteRequest("write", "error", time.Since(start))
		return fmt.Errorf("write songs %s: %w", id, err)
	}
	defer resp.Body.Close()

	metrics.RecordRemoteRequest("write", strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return fmt.Errorf("%w: write %s returned status %d: %s", ErrRemoteUnavailable, id, resp.StatusCode, string(body))
	}
	return nil
}

// WriteCollection replaces a whole collection node (metadata and songs).
// Used by restore, which must put back exactly what the backup captured.
func (c *Client) WriteCollection(ctx context.Context, id string, export *models.CollectionExport) error {
	start := time.Now()

	payload, err := json.Marshal(export)
	if err != nil {
		return fmt.Errorf("marshal collection %s: %w", id, err)
	}

	reqURL := c.buildURL("/collections/"+url.PathEscape(id), nil)

	resp, err := c.doRequest(ctx, http.MethodPut, reqURL, payload)
	if err != nil {
		metrics.RecordRemoteRequest("write", "error", time.Since(start))
		return fmt.Errorf("write collection %s: %w", id, err)
	}
	defer resp.Body.Close()

	metrics.RecordRemoteRequest("write", strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return fmt.Errorf("%w: write %s returned status %d: %s", ErrRemoteUnavailable, id, resp.StatusCode, string(body))
	}
	return nil
}

// ConnectionStatus reports whether the remote currently answers a shallow
// listing. Used by health checks; never retries.
func (c *Client) ConnectionStatus(ctx context.Context) bool {
	params := url.Values{}
	params.Set("shallow", "true")
	reqURL := c.buildURL("/collections", params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
