package services

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

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crmx/internal/shared"
	"golang.org/x/oauth2"
)

// APIResponse wraps an HTTP response with the decoded body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   map[string]any
}

// DecodeJSON unmarshals the response body into dest.
func (r *APIResponse) DecodeJSON(dest any) error {
	if err := json.Unmarshal(r.Body, dest); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// StatusError carries the status code and body of a failed request so
// per-record logs can surface what the API actually said.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	if body == "" {
		return fmt.Sprintf("status %d", e.Status)
	}
	return fmt.Sprintf("status %d: %s", e.Status, body)
}

// Client executes authenticated HTTP requests against a CRM API, retrying
// transient failures with exponential backoff.
type Client struct {
	name       string
	baseURL    string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	logger     *log.Logger
}

// NewClient builds a client for the given API. A non-empty token is injected
// as a bearer header on every request via the oauth2 transport.
func NewClient(name, baseURL, token string, timeout time.Duration, maxRetries int, logger *log.Logger) *Client {
	var httpClient *http.Client
	if token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), src)
	} else {
		httpClient = &http.Client{}
	}
	httpClient.Timeout = timeout

	return &Client{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		maxRetries: maxRetries,
		backoff:    time.Second,
		logger:     logger,
	}
}

// retryable reports whether a status code indicates a transient failure
// worth retrying. Rate limits and request timeouts count alongside 5xx.
func retryable(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests || status == http.StatusRequestTimeout
}

// Request performs an HTTP request against the API, retrying transient
// failures up to maxRetries times with exponentially increasing sleeps.
// Non-transient client errors fail immediately. A nil response is always
// accompanied by a non-nil error.
func (c *Client) Request(ctx context.Context, method, path string, body any, params url.Values) (*APIResponse, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := c.backoff << (attempt - 1)
			c.logger.Warn("retrying request", "service", c.name, "method", method, "path", path, "attempt", attempt, "wait", wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := c.do(ctx, method, endpoint, payload)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 400 {
			statusErr := &StatusError{Status: resp.StatusCode, Body: resp.Body}
			if retryable(resp.StatusCode) {
				lastErr = statusErr
				continue
			}
			sentinel := shared.ErrRequestFailed
			if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity {
				sentinel = shared.ErrValidation
			}
			return nil, fmt.Errorf("%w: %s %s: %s", sentinel, method, path, statusErr)
		}

		return resp, nil
	}

	return nil, fmt.Errorf("%w: %s %s: %v", shared.ErrTransientRequest, method, path, lastErr)
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) (*APIResponse, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") && len(data) > 0 {
		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err == nil {
			apiResp.IsJSON = true
			apiResp.JSONData = decoded
		}
	}

	return apiResp, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, params url.Values) (*APIResponse, error) {
	return c.Request(ctx, http.MethodGet, path, nil, params)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*APIResponse, error) {
	return c.Request(ctx, http.MethodPost, path, body, nil)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any, params url.Values) (*APIResponse, error) {
	return c.Request(ctx, http.MethodPut, path, body, params)
}

// Patch performs a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any) (*APIResponse, error) {
	return c.Request(ctx, http.MethodPatch, path, body, nil)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*APIResponse, error) {
	return c.Request(ctx, http.MethodDelete, path, nil, nil)
}
