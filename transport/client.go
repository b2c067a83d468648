package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// MediaTypeHAL is sent as Accept unless the request overrides it.
	MediaTypeHAL = "application/hal+json"
	// MediaTypeJSON is the content type for request entities.
	MediaTypeJSON = "application/json"
	// MediaTypeSchema selects the JSON schema representation of a profile link.
	MediaTypeSchema = "application/schema+json"

	maxErrorBody = 1024
	maxBody      = 5 * 1024 * 1024
)

// Request describes a single API call. Path may be absolute or relative to the client's base URL.
// Headers such as Content-Type and If-Match are the caller's responsibility.
type Request struct {
	Method  string
	Path    string
	Entity  any
	Headers map[string]string
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        string
}

// ETag returns the concurrency token of the response, if any.
func (r *Response) ETag() string {
	return r.Header.Get("ETag")
}

// Client issues requests against the employee API.
type Client struct {
	base    *url.URL
	http    *http.Client
	tracker *Tracker
	logger  *zap.Logger
}

// NewClient creates a client resolving relative paths against baseURL.
func NewClient(baseURL string, httpClient *http.Client, tracker *Tracker, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}
	if httpClient == nil {
		httpClient = BuildHTTPClient(30 * time.Second)
	}
	if tracker == nil {
		tracker = NewTracker()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		base:    base,
		http:    httpClient,
		tracker: tracker,
		logger:  logger,
	}, nil
}

// Tracker returns the call statistics of this client.
func (c *Client) Tracker() *Tracker {
	return c.tracker
}

// Resolve turns a possibly relative path into an absolute URL.
func (c *Client) Resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}
	return c.base.ResolveReference(ref).String(), nil
}

// Do performs the request and reads the whole response body.
// Any non-2xx status is returned as *Error together with a nil response.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target, err := c.Resolve(req.Path)
	if err != nil {
		return nil, &Error{Method: method, URL: req.Path, Err: err}
	}

	var body io.Reader
	if req.Entity != nil {
		data, err := json.Marshal(req.Entity)
		if err != nil {
			return nil, &Error{Method: method, URL: target, Err: fmt.Errorf("marshal entity: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &Error{Method: method, URL: target, Err: err}
	}
	httpReq.Header.Set("Accept", MediaTypeHAL)
	for k, v := range req.Headers {
		if k != "" {
			httpReq.Header.Set(k, v)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		terr := &Error{Method: method, URL: target, Err: err}
		c.tracker.Track(method, httpReq.URL.Host, 0, latency, terr)
		c.logger.Debug("request failed",
			zap.String("method", method),
			zap.String("url", target),
			zap.Duration("latency", latency),
			zap.Error(err))
		return nil, terr
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		terr := &Error{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
		c.tracker.Track(method, httpReq.URL.Host, resp.StatusCode, latency, terr)
		c.logger.Debug("request rejected",
			zap.String("method", method),
			zap.String("url", target),
			zap.Int("status", resp.StatusCode),
			zap.Duration("latency", latency))
		return nil, terr
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		terr := &Error{Method: method, URL: target, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
		c.tracker.Track(method, httpReq.URL.Host, resp.StatusCode, latency, terr)
		return nil, terr
	}

	c.tracker.Track(method, httpReq.URL.Host, resp.StatusCode, latency, nil)
	c.logger.Debug("request done",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", latency))

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		URL:        target,
	}, nil
}
