package caption

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/alttext/pkg/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *bytes.Buffer) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	var logs bytes.Buffer
	return NewClient(WithBaseURL(srv.URL+"/"), WithLogger(logging.NewWriterLogger("caption", &logs))), &logs
}

func TestRequestCaptionSuccess(t *testing.T) {
	var gotURL string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/caption", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body struct {
			ImageURL string `json:"image_url"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotURL = body.ImageURL

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"caption":"a red apple"}`))
	})

	result := client.RequestCaption(context.Background(), "https://example.com/apple.png")

	require.True(t, result.OK())
	assert.Equal(t, "a red apple", result.Caption)
	assert.Equal(t, "https://example.com/apple.png", gotURL)
}

func TestRequestCaptionFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantLog string
	}{
		{"explicit failure", 200, `{"ok":false,"error":"model unavailable"}`, ErrRejected, "model unavailable"},
		{"server error with body", 500, `{"ok":false,"error":"fetch failed"}`, ErrStatus, "fetch failed"},
		{"bad request", 400, `{"ok":false,"error":"missing image_url"}`, ErrStatus, "400"},
		{"invalid json", 200, `{"ok":tru`, ErrMalformed, "invalid JSON"},
		{"not an object", 200, `["a red apple"]`, ErrMalformed, "expected an object"},
		{"missing ok", 200, `{"caption":"a red apple"}`, ErrMalformed, "missing ok flag"},
		{"caption not a string", 200, `{"ok":true,"caption":42}`, ErrMalformed, "not a string"},
		{"caption missing", 200, `{"ok":true}`, ErrMalformed, "not a string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, logs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			result := client.RequestCaption(context.Background(), "https://example.com/x.png")

			assert.False(t, result.OK())
			assert.Empty(t, result.Caption)
			assert.ErrorIs(t, result.Err, tt.wantErr)
			assert.Contains(t, logs.String(), tt.wantLog)
		})
	}
}

func TestRequestCaptionUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithLogger(logging.Discard()))
	result := client.RequestCaption(context.Background(), "https://example.com/x.png")

	assert.False(t, result.OK())
	assert.ErrorIs(t, result.Err, ErrTransport)
}

func TestRequestCaptionWithinTimesOut(t *testing.T) {
	release := make(chan struct{})
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	start := time.Now()
	result := client.RequestCaptionWithin(context.Background(), "https://example.com/slow.png", 50*time.Millisecond)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, result.OK())
	assert.ErrorIs(t, result.Err, ErrTimeout)
	assert.Empty(t, result.Caption)
}

func TestRequestCaptionWithinLogsTimeoutOnce(t *testing.T) {
	abandoned := make(chan struct{})
	client, logs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		close(abandoned)
	})

	result := client.RequestCaptionWithin(context.Background(), "https://example.com/slow.png", 50*time.Millisecond)
	require.ErrorIs(t, result.Err, ErrTimeout)

	select {
	case <-abandoned:
	case <-time.After(2 * time.Second):
		t.Fatal("timed-out request was not cancelled")
	}
	// give the losing request time to unwind
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 1, strings.Count(logs.String(), "Error generating alt text"))
	assert.Contains(t, logs.String(), ErrTimeout.Error())
}

func TestRequestCaptionWithinReturnsFastResult(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true,"caption":"a dog"}`))
	})

	result := client.RequestCaptionWithin(context.Background(), "https://example.com/dog.png", time.Second)

	require.True(t, result.OK())
	assert.Equal(t, "a dog", result.Caption)
}

func TestRequestCaptionWithinParentCancelled(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := client.RequestCaptionWithin(ctx, "https://example.com/x.png", time.Second)

	assert.False(t, result.OK())
	assert.ErrorIs(t, result.Err, ErrTransport)
	assert.NotErrorIs(t, result.Err, ErrTimeout)
}

func TestCheckBackendAvailable(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/health", r.URL.Path)
			assert.Equal(t, http.MethodGet, r.Method)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		assert.True(t, client.CheckBackendAvailable(context.Background()))
	})

	t.Run("unhealthy status", func(t *testing.T) {
		client, logs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		assert.False(t, client.CheckBackendAvailable(context.Background()))
		assert.True(t, strings.Contains(logs.String(), "503"))
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		client := NewClient(WithBaseURL(srv.URL), WithLogger(logging.Discard()))
		assert.False(t, client.CheckBackendAvailable(context.Background()))
	})
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient()
	assert.Equal(t, DefaultBaseURL, client.BaseURL())

	client = NewClient(WithBaseURL("http://localhost:9000///"))
	assert.Equal(t, "http://localhost:9000", client.BaseURL())
}

func TestResult(t *testing.T) {
	assert.True(t, Success("").OK())
	assert.False(t, Failure(ErrTimeout).OK())
}
