package mutator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/alttext/pkg/caption"
	"github.com/entrhq/alttext/pkg/logging"
	"github.com/entrhq/alttext/pkg/page"
)

const (
	// FallbackAlt is written when no caption could be produced.
	FallbackAlt = "Image"

	// DefaultDelay separates consecutive caption requests.
	DefaultDelay = 500 * time.Millisecond

	// DefaultHealthTimeout bounds the health check that precedes a run.
	DefaultHealthTimeout = 3 * time.Second
)

// ErrBackendUnavailable is returned when the health check fails before bulk
// processing starts. No caption request is made in that case.
var ErrBackendUnavailable = errors.New("caption service unavailable")

// unsupportedSchemes are image sources the caption service cannot fetch.
var unsupportedSchemes = []string{"data:", "blob:"}

// BulkCaptioner is what the bulk applier needs from the caption service.
// *caption.Client satisfies it.
type BulkCaptioner interface {
	CheckBackendAvailable(ctx context.Context) bool
	RequestCaption(ctx context.Context, imageURL string) caption.Result
}

// Summary counts what a bulk run did.
type Summary struct {
	Processed int // caption requests attempted
	Captioned int // images given a generated caption
	Fallback  int // images given FallbackAlt
	Skipped   int // images with an unsupported source scheme
}

// BulkApplier captions images directly, without a review step.
//
// Unlike the proposal builder it does not skip AI-marked images and sets no
// per-request deadline. Requests are spaced by a fixed delay.
type BulkApplier struct {
	captioner   BulkCaptioner
	notifier    Notifier
	highlighter *Highlighter
	delay       time.Duration
	health      time.Duration
	logger      *logging.Logger
}

// BulkOption configures a BulkApplier.
type BulkOption func(*BulkApplier)

// WithNotifier sets where user-visible notices go.
func WithNotifier(n Notifier) BulkOption {
	return func(a *BulkApplier) {
		if n != nil {
			a.notifier = n
		}
	}
}

// WithDelay overrides DefaultDelay. Zero disables the delay.
func WithDelay(d time.Duration) BulkOption {
	return func(a *BulkApplier) {
		if d >= 0 {
			a.delay = d
		}
	}
}

// WithHealthTimeout overrides DefaultHealthTimeout.
func WithHealthTimeout(d time.Duration) BulkOption {
	return func(a *BulkApplier) {
		if d > 0 {
			a.health = d
		}
	}
}

// WithHighlightDuration overrides DefaultHighlightDuration.
func WithHighlightDuration(d time.Duration) BulkOption {
	return func(a *BulkApplier) {
		a.highlighter = NewHighlighter(d)
	}
}

// WithBulkLogger replaces the package logger for this applier.
func WithBulkLogger(l *logging.Logger) BulkOption {
	return func(a *BulkApplier) {
		if l != nil {
			a.logger = l
			a.highlighter.logger = l
		}
	}
}

// NewBulkApplier creates a BulkApplier.
func NewBulkApplier(captioner BulkCaptioner, opts ...BulkOption) *BulkApplier {
	a := &BulkApplier{
		captioner:   captioner,
		notifier:    LogNotifier{},
		highlighter: NewHighlighter(DefaultHighlightDuration),
		delay:       DefaultDelay,
		health:      DefaultHealthTimeout,
		logger:      debugLog,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ApplyGeneratedAlt captions each image in turn and writes the result.
//
// The caption service must pass its health check first; otherwise a notice
// is shown and ErrBackendUnavailable returned. Images with data: or blob:
// sources are skipped; an image without a source gets FallbackAlt without a
// request. A failed caption, or any failure while handling one
// image, leaves FallbackAlt on that image and moves on. Cancelling ctx stops
// the run between images and returns the context error.
func (a *BulkApplier) ApplyGeneratedAlt(ctx context.Context, images []page.Image) (Summary, error) {
	var summary Summary

	if !a.backendAvailable(ctx) {
		a.notifier.Notify(NoticeError, "Caption service is not available. Start the local caption server and try again.")
		return summary, ErrBackendUnavailable
	}

	for _, img := range images {
		src := img.CurrentSrc()
		if hasUnsupportedScheme(src) {
			a.logger.Debugf("skipping image with unsupported source %.40q", src)
			summary.Skipped++
			continue
		}
		if strings.TrimSpace(src) == "" {
			a.logger.Warnf("image has no source; writing fallback alt text")
			a.applyFallback(img, src)
			summary.Fallback++
			continue
		}

		if summary.Processed > 0 && a.delay > 0 {
			if err := sleep(ctx, a.delay); err != nil {
				return summary, err
			}
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		summary.Processed++
		if a.applyOne(ctx, img, src) {
			summary.Captioned++
		} else {
			summary.Fallback++
		}
	}

	a.logger.Infof("Finished processing images: %d captioned, %d fallback, %d skipped",
		summary.Captioned, summary.Fallback, summary.Skipped)
	if summary.Processed > 0 {
		a.notifier.Notify(NoticeSuccess, fmt.Sprintf("Added alt text to %d image(s).", summary.Captioned))
	}
	return summary, nil
}

func (a *BulkApplier) backendAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, a.health)
	defer cancel()
	return a.captioner.CheckBackendAvailable(ctx)
}

// Wait blocks until pending highlight reverts have run.
func (a *BulkApplier) Wait() {
	a.highlighter.Wait()
}

// applyOne captions a single image. It reports whether a generated caption
// was applied; every other outcome leaves the fallback alt text.
func (a *BulkApplier) applyOne(ctx context.Context, img page.Image, src string) (captioned bool) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Errorf("Error generating alt text for image %s: %v", src, r)
			a.applyFallback(img, src)
			captioned = false
		}
	}()

	a.logger.Infof("Generating alt text for image: %s", src)
	result := a.captioner.RequestCaption(ctx, src)
	if !result.OK() {
		a.applyFallback(img, src)
		return false
	}

	if err := ApplyCaption(img, result.Caption); err != nil {
		a.logger.Errorf("Error applying alt text for image %s: %v", src, err)
		a.applyFallback(img, src)
		return false
	}
	if err := a.highlighter.Highlight(img); err != nil {
		a.logger.Warnf("highlight failed for %s: %v", src, err)
	}

	a.logger.Infof("Added alt text: %q", result.Caption)
	return true
}

func (a *BulkApplier) applyFallback(img page.Image, src string) {
	if err := img.SetAttr(page.AttrAlt, FallbackAlt); err != nil {
		a.logger.Errorf("failed to apply fallback alt text for %s: %v", src, err)
	}
}

func hasUnsupportedScheme(src string) bool {
	lower := strings.ToLower(strings.TrimSpace(src))
	for _, scheme := range unsupportedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
