package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/crmx/internal/shared"
)

func testClient(t *testing.T, baseURL string, maxRetries int) *Client {
	t.Helper()
	c := NewClient("test", baseURL, "test-token", 5*time.Second, maxRetries, shared.NewLogger(io.Discard))
	c.backoff = time.Millisecond
	return c
}

func TestClient(t *testing.T) {
	t.Run("sends bearer token and decodes JSON", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
				t.Errorf("Authorization = %q, want bearer token", got)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"data": {"ok": true}}`))
		}))
		defer server.Close()

		resp, err := testClient(t, server.URL, 0).Get(context.Background(), "/things", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !resp.IsJSON {
			t.Error("expected JSON response")
		}
		if _, ok := resp.JSONData["data"]; !ok {
			t.Error("expected data key in decoded body")
		}
	})

	t.Run("retries server errors then succeeds", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) <= 2 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		_, err := testClient(t, server.URL, 3).Get(context.Background(), "/things", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := calls.Load(); got != 3 {
			t.Errorf("calls = %d, want 3", got)
		}
	})

	t.Run("retries rate limits", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		if _, err := testClient(t, server.URL, 2).Get(context.Background(), "/things", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := calls.Load(); got != 2 {
			t.Errorf("calls = %d, want 2", got)
		}
	})

	t.Run("gives up after retries exhausted", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := testClient(t, server.URL, 2).Get(context.Background(), "/things", nil)
		if !errors.Is(err, shared.ErrTransientRequest) {
			t.Errorf("error = %v, want ErrTransientRequest", err)
		}
		if got := calls.Load(); got != 3 {
			t.Errorf("calls = %d, want 3 (initial + 2 retries)", got)
		}
	})

	t.Run("rejected payloads fail immediately as validation errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error": "bad payload"}`))
		}))
		defer server.Close()

		_, err := testClient(t, server.URL, 3).Post(context.Background(), "/things", map[string]any{"a": 1})
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("error %v does not carry a StatusError", err)
		}
		if statusErr.Status != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", statusErr.Status)
		}
		if got := calls.Load(); got != 1 {
			t.Errorf("calls = %d, want 1", got)
		}
	})

	t.Run("other client errors fail immediately", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, err := testClient(t, server.URL, 3).Get(context.Background(), "/things/missing", nil)
		if !errors.Is(err, shared.ErrRequestFailed) {
			t.Errorf("error = %v, want ErrRequestFailed", err)
		}
		if errors.Is(err, shared.ErrValidation) {
			t.Errorf("error = %v, a 404 is not a validation failure", err)
		}
		if got := calls.Load(); got != 1 {
			t.Errorf("calls = %d, want 1", got)
		}
	})

	t.Run("cancellation interrupts the backoff sleep", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		c := testClient(t, server.URL, 5)
		c.backoff = time.Minute

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			_, err := c.Get(ctx, "/things", nil)
			done <- err
		}()
		cancel()

		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("error = %v, want context.Canceled", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("request did not return after cancellation")
		}
	})
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		status int
		want   bool
	}{
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusTooManyRequests, true},
		{http.StatusRequestTimeout, true},
		{http.StatusBadRequest, false},
		{http.StatusNotFound, false},
		{http.StatusUnprocessableEntity, false},
	}
	for _, tc := range cases {
		if got := retryable(tc.status); got != tc.want {
			t.Errorf("retryable(%d) = %v, want %v", tc.status, got, tc.want)
		}
	}
}
