// Package caption is the client side of the captioning service.
//
// The service is an external HTTP collaborator:
//
//	GET  /health   2xx when the service is reachable
//	POST /caption  {"image_url": "..."} -> {"ok": true, "caption": "..."}
//	                                    or {"ok": false, "error": "..."}
//
// Every failure mode (unreachable service, non-2xx status, malformed JSON,
// an explicit ok:false, a missed deadline) is normalized into a failed
// Result and logged. Nothing is thrown past this package.
package caption

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/entrhq/alttext/pkg/logging"
)

const (
	// DefaultBaseURL is the fixed local address of the caption service.
	DefaultBaseURL = "http://127.0.0.1:8000"

	// DefaultHTTPTimeout bounds any single request made without a caller deadline.
	DefaultHTTPTimeout = 30 * time.Second

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 1 << 20
)

// Failure reasons. Returned results wrap one of these.
var (
	ErrTransport = errors.New("caption service unreachable")
	ErrStatus    = errors.New("caption service returned non-success status")
	ErrMalformed = errors.New("malformed caption response")
	ErrRejected  = errors.New("caption service reported failure")
	ErrTimeout   = errors.New("caption request timed out")
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("caption")
	if err != nil {
		debugLog.Warnf("Failed to initialize caption logger, using stderr fallback: %v", err)
	}
}

// Result is the outcome of one caption request: either a caption or a
// failure reason, never both.
type Result struct {
	Caption string
	Err     error
}

// Success builds a successful Result.
func Success(caption string) Result {
	return Result{Caption: caption}
}

// Failure builds a failed Result.
func Failure(err error) Result {
	return Result{Err: err}
}

// OK reports whether the request produced a caption.
func (r Result) OK() bool {
	return r.Err == nil
}

// Client talks to the caption service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides DefaultBaseURL. Trailing slashes are dropped.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger replaces the package logger for this client.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for the caption service at DefaultBaseURL.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		logger:     debugLog,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service address in use.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CheckBackendAvailable reports whether GET /health answers with a 2xx status.
func (c *Client) CheckBackendAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		c.logger.Errorf("failed to create health request: %v", err)
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warnf("caption service health check failed: %v", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warnf("caption service health check returned status %d", resp.StatusCode)
		return false
	}
	return true
}

// RequestCaption asks the service to caption imageURL. The call is bounded
// only by ctx and the HTTP client timeout.
func (c *Client) RequestCaption(ctx context.Context, imageURL string) Result {
	return c.report(imageURL, c.request(ctx, imageURL))
}

// request performs one caption call. Failures are returned, not logged.
func (c *Client) request(ctx context.Context, imageURL string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Errorf("caption request for %s panicked: %v", imageURL, r)
			result = Failure(fmt.Errorf("%w: %v", ErrTransport, r))
		}
	}()

	payload, err := sjson.SetBytes([]byte(`{}`), "image_url", imageURL)
	if err != nil {
		return Failure(fmt.Errorf("%w: encode request: %v", ErrMalformed, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/caption", bytes.NewReader(payload))
	if err != nil {
		return Failure(fmt.Errorf("%w: %v", ErrTransport, err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Failure(fmt.Errorf("%w: %w", ErrTransport, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Failure(fmt.Errorf("%w: read body: %w", ErrTransport, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(body, "error").String()
		return Failure(fmt.Errorf("%w: %d %s", ErrStatus, resp.StatusCode, msg))
	}

	return decode(body)
}

// RequestCaptionWithin is RequestCaption bounded by timeout. Whichever of the
// request and the deadline settles first wins; a late response is discarded
// and its request is cancelled.
func (c *Client) RequestCaptionWithin(ctx context.Context, imageURL string, timeout time.Duration) Result {
	if timeout <= 0 {
		return c.RequestCaption(ctx, imageURL)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan Result, 1)
	go func() {
		done <- c.request(reqCtx, imageURL)
	}()

	select {
	case r := <-done:
		if !r.OK() && errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			r = Failure(fmt.Errorf("%w after %s", ErrTimeout, timeout))
		}
		return c.report(imageURL, r)
	case <-reqCtx.Done():
		if ctx.Err() != nil {
			return c.report(imageURL, Failure(fmt.Errorf("%w: %w", ErrTransport, ctx.Err())))
		}
		return c.report(imageURL, Failure(fmt.Errorf("%w after %s", ErrTimeout, timeout)))
	}
}

// decode validates a 2xx response body.
func decode(body []byte) Result {
	if !gjson.ValidBytes(body) {
		return Failure(fmt.Errorf("%w: invalid JSON", ErrMalformed))
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return Failure(fmt.Errorf("%w: expected an object", ErrMalformed))
	}

	switch ok := parsed.Get("ok"); ok.Type {
	case gjson.True:
	case gjson.False:
		return Failure(fmt.Errorf("%w: %s", ErrRejected, parsed.Get("error").String()))
	default:
		return Failure(fmt.Errorf("%w: missing ok flag", ErrMalformed))
	}

	captionField := parsed.Get("caption")
	if captionField.Type != gjson.String {
		return Failure(fmt.Errorf("%w: caption is not a string", ErrMalformed))
	}

	return Success(captionField.String())
}

// report logs a failed result once and passes it through.
func (c *Client) report(imageURL string, r Result) Result {
	if !r.OK() {
		c.logger.Warnf("Error generating alt text for image %s: %v", imageURL, r.Err)
	}
	return r
}
