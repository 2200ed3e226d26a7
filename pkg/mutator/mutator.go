// Package mutator writes captions back onto page images and gives the user
// transient feedback: a short highlight on changed images and notices.
package mutator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/alttext/pkg/identity"
	"github.com/entrhq/alttext/pkg/logging"
	"github.com/entrhq/alttext/pkg/marker"
	"github.com/entrhq/alttext/pkg/page"
)

const (
	// DefaultHighlightDuration is how long a changed image stays outlined.
	DefaultHighlightDuration = 2 * time.Second

	// HighlightStyle is appended to the inline style while highlighted.
	HighlightStyle = "outline: 3px solid #4caf50; outline-offset: 2px;"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("mutator")
	if err != nil {
		debugLog.Warnf("Failed to initialize mutator logger, using stderr fallback: %v", err)
	}
}

// NoticeKind classifies a user-visible notice.
type NoticeKind string

const (
	NoticeInfo    NoticeKind = "info"
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notifier shows short messages to the user (a toast on a live page, a log
// line elsewhere).
type Notifier interface {
	Notify(kind NoticeKind, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(kind NoticeKind, message string)

// Notify calls f.
func (f NotifierFunc) Notify(kind NoticeKind, message string) {
	f(kind, message)
}

// LogNotifier writes notices to a logger.
type LogNotifier struct {
	Logger *logging.Logger
}

// Notify logs the message at a level matching kind.
func (n LogNotifier) Notify(kind NoticeKind, message string) {
	l := n.Logger
	if l == nil {
		l = debugLog
	}
	if kind == NoticeError {
		l.Errorf("%s %s", logging.Prefix, message)
		return
	}
	l.Infof("%s %s", logging.Prefix, message)
}

// ApplyCaption writes caption as the image's alt text and hover title and
// marks the image as AI-generated.
func ApplyCaption(img page.Image, caption string) error {
	if err := img.SetAttr(page.AttrAlt, caption); err != nil {
		return fmt.Errorf("failed to set alt: %w", err)
	}
	if err := img.SetAttr(page.AttrTitle, caption); err != nil {
		return fmt.Errorf("failed to set title: %w", err)
	}
	if err := marker.Mark(img); err != nil {
		return fmt.Errorf("failed to mark image: %w", err)
	}
	return nil
}

// ApplyAccepted writes a reviewed caption onto the image tagged id.
// It reports false when no image on the page carries that tag or when
// alt is blank.
func ApplyAccepted(ctx context.Context, doc page.Document, id, alt string) (bool, error) {
	alt = strings.TrimSpace(alt)
	if alt == "" {
		debugLog.Warnf("refusing to apply blank alt text to %s", id)
		return false, nil
	}

	images, err := doc.Images(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list images: %w", err)
	}

	img, ok := identity.Lookup(images, id)
	if !ok {
		return false, nil
	}

	if err := ApplyCaption(img, alt); err != nil {
		return false, err
	}
	return true, nil
}

// Highlighter outlines images for a while and then restores their style.
type Highlighter struct {
	duration time.Duration
	wg       sync.WaitGroup
	logger   *logging.Logger
}

// NewHighlighter creates a Highlighter; a non-positive duration selects
// DefaultHighlightDuration.
func NewHighlighter(d time.Duration) *Highlighter {
	if d <= 0 {
		d = DefaultHighlightDuration
	}
	return &Highlighter{duration: d, logger: debugLog}
}

// Highlight outlines img and schedules the revert.
func (h *Highlighter) Highlight(img page.Image) error {
	prev, hadStyle := img.Attr(page.AttrStyle)

	style := HighlightStyle
	if hadStyle && strings.TrimSpace(prev) != "" {
		style = strings.TrimRight(strings.TrimSpace(prev), ";") + "; " + HighlightStyle
	}
	if err := img.SetAttr(page.AttrStyle, style); err != nil {
		return fmt.Errorf("failed to highlight image: %w", err)
	}

	h.wg.Add(1)
	time.AfterFunc(h.duration, func() {
		defer h.wg.Done()

		var err error
		if hadStyle {
			err = img.SetAttr(page.AttrStyle, prev)
		} else {
			err = img.RemoveAttr(page.AttrStyle)
		}
		if err != nil {
			h.logger.Warnf("failed to revert highlight: %v", err)
		}
	})
	return nil
}

// Wait blocks until every scheduled revert has run.
func (h *Highlighter) Wait() {
	h.wg.Wait()
}
