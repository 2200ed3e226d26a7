// Package captionsvc is the local caption service: it fetches an image by
// URL and asks an Engine to describe it.
//
//	GET  /health   -> {"ok":true}
//	POST /caption  {"image_url":"..."} -> {"ok":true,"caption":"..."}
//
// Failures answer {"ok":false,"error":"..."} with a 4xx or 5xx status.
package captionsvc

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/tidwall/gjson"

	"github.com/entrhq/alttext/pkg/llm"
	"github.com/entrhq/alttext/pkg/logging"
)

const (
	// DefaultFetchTimeout bounds fetching one image.
	DefaultFetchTimeout = 10 * time.Second

	// DefaultMaxImageBytes caps a fetched image.
	DefaultMaxImageBytes = 10 << 20

	maxRequestBytes = 64 << 10
)

var (
	errMissingImageURL = errors.New("missing image_url")
	errHostNotAllowed  = errors.New("host not allowed")
	errEmptyCaption    = errors.New("engine returned an empty caption")
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("captionsvc")
	if err != nil {
		debugLog.Warnf("Failed to initialize captionsvc logger, using stderr fallback: %v", err)
	}
}

// Server handles caption requests.
type Server struct {
	engine        Engine
	hosts         *HostMatcher
	httpClient    *http.Client
	fetchTimeout  time.Duration
	maxImageBytes int64
	policy        *bluemonday.Policy
	logger        *logging.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithHostMatcher restricts which hosts images may be fetched from.
func WithHostMatcher(m *HostMatcher) Option {
	return func(s *Server) {
		s.hosts = m
	}
}

// WithFetchTimeout overrides DefaultFetchTimeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithMaxImageBytes overrides DefaultMaxImageBytes.
func WithMaxImageBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxImageBytes = n
		}
	}
}

// WithHTTPClient sets the client used to fetch images.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Server) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithLogger replaces the package logger for this server.
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a Server describing images with engine.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:        engine,
		httpClient:    &http.Client{},
		fetchTimeout:  DefaultFetchTimeout,
		maxImageBytes: DefaultMaxImageBytes,
		policy:        bluemonday.StrictPolicy(),
		logger:        debugLog,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EngineName names the engine captions come from.
func (s *Server) EngineName() string {
	return s.engine.Name()
}

// Router returns the HTTP routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	r.GET("/health", s.handleHealth)
	r.POST("/caption", s.handleCaption)
	return r
}

// corsMiddleware lets extension pages call the service cross-origin.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleCaption(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestBytes))
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}

	imageURL := strings.TrimSpace(gjson.GetBytes(body, "image_url").String())
	if imageURL == "" {
		s.fail(c, http.StatusBadRequest, errMissingImageURL)
		return
	}

	u, err := url.Parse(imageURL)
	if err == nil && u.Hostname() != "" && !s.hosts.IsAllowed(u.Hostname()) {
		s.fail(c, http.StatusForbidden, fmt.Errorf("%w: %s", errHostNotAllowed, u.Hostname()))
		return
	}

	caption, err := s.Caption(c.Request.Context(), imageURL)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "caption": caption})
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	s.logger.Warnf("caption request failed (%d): %v", status, err)
	c.JSON(status, gin.H{"ok": false, "error": err.Error()})
}

// Caption fetches imageURL and returns the engine's sanitized description.
func (s *Server) Caption(ctx context.Context, imageURL string) (string, error) {
	img, err := s.fetch(ctx, imageURL)
	if err != nil {
		return "", err
	}

	text, err := s.engine.Describe(ctx, img)
	if err != nil {
		return "", fmt.Errorf("%s engine: %w", s.engine.Name(), err)
	}

	caption := s.Sanitize(text)
	if caption == "" {
		return "", errEmptyCaption
	}
	s.logger.Infof("captioned %s with %s engine", imageURL, s.engine.Name())
	return caption, nil
}

// Sanitize strips markup from model output and collapses whitespace.
func (s *Server) Sanitize(text string) string {
	clean := html.UnescapeString(s.policy.Sanitize(text))
	return strings.Join(strings.Fields(clean), " ")
}

// fetch downloads the image server-side, avoiding the page's CORS rules.
func (s *Server) fetch(ctx context.Context, imageURL string) (llm.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return llm.Image{}, fmt.Errorf("invalid image_url: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return llm.Image{}, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return llm.Image{}, fmt.Errorf("failed to fetch image: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxImageBytes+1))
	if err != nil {
		return llm.Image{}, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > s.maxImageBytes {
		return llm.Image{}, fmt.Errorf("image exceeds %d bytes", s.maxImageBytes)
	}

	img := llm.Image{URL: imageURL, Data: data}
	if mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil && strings.HasPrefix(mt, "image/") {
		img.MIMEType = mt
	}
	return img, nil
}
