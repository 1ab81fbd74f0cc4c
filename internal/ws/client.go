// Package ws is the client for the remote BookBrainz web service. Every call
// carries an optional bearer token and returns the decoded JSON object.
package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"bookbrainz-site/internal/instrument"
)

const maxErrorBody = 64 * 1024

// ErrForeignHost is returned for absolute URLs outside the web service.
var ErrForeignHost = errors.New("url does not belong to the web service")

// RequestOptions carries per-call authentication and query parameters.
type RequestOptions struct {
	AccessToken string
	Params      url.Values
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
}

// Client performs JSON calls against the web service.
type Client struct {
	baseURL string
	base    *url.URL
	http    *http.Client
	log     zerolog.Logger
}

// New creates a Client for baseURL. A zero timeout leaves calls unbounded.
func New(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	base, _ := url.Parse(baseURL)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		base:    base,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (c *Client) Get(ctx context.Context, path string, opts RequestOptions) (map[string]any, error) {
	return c.do(ctx, http.MethodGet, path, nil, opts)
}

func (c *Client) Post(ctx context.Context, path string, body any, opts RequestOptions) (map[string]any, error) {
	return c.do(ctx, http.MethodPost, path, body, opts)
}

func (c *Client) Put(ctx context.Context, path string, body any, opts RequestOptions) (map[string]any, error) {
	return c.do(ctx, http.MethodPut, path, body, opts)
}

// Delete issues a DELETE carrying a JSON body, used for deletion metadata
// such as a revision note.
func (c *Client) Delete(ctx context.Context, path string, body any, opts RequestOptions) (map[string]any, error) {
	return c.do(ctx, http.MethodDelete, path, body, opts)
}

func (c *Client) do(ctx context.Context, method, path string, body any, opts RequestOptions) (map[string]any, error) {
	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "ws", "client", "ws."+strings.ToLower(method))
	defer span.End()
	span.SetMetadata("path", path)

	start := time.Now()
	result, status, err := c.roundTrip(ctx, method, path, body, opts)

	ev := c.log.Debug()
	if err != nil {
		ev = c.log.Warn().Err(err)
		span.SetStatus("error")
	} else {
		span.SetStatus("ok")
	}
	ev.Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("duration", time.Since(start)).
		Msg("web service call")

	return result, err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any, opts RequestOptions) (map[string]any, int, error) {
	target, err := c.resolve(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if len(opts.Params) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + opts.Params.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if opts.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+opts.AccessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, resp.StatusCode, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, resp.StatusCode, nil
	}

	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return result, resp.StatusCode, nil
}

// resolve turns a service path into an absolute URL. Absolute URLs, as
// found in some reference fields, are used unchanged when they point at
// the web service host and rejected otherwise.
func (c *Client) resolve(path string) (string, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		u, err := url.Parse(path)
		if err != nil {
			return "", fmt.Errorf("parse %q: %w", path, err)
		}
		if c.base == nil || !strings.EqualFold(u.Scheme, c.base.Scheme) || !strings.EqualFold(u.Host, c.base.Host) {
			return "", fmt.Errorf("%s: %w", u.Host, ErrForeignHost)
		}
		return path, nil
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path, nil
}
