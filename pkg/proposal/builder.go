// Package proposal builds the review list of caption proposals for a page.
//
// A scan selects candidate images, makes sure every image on the page has
// an identity tag, skips images already captioned by an AI, and asks the
// caption service for a caption for each remaining image without alt text.
// Requests are issued one at a time, each bounded by a short deadline.
package proposal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/alttext/pkg/caption"
	"github.com/entrhq/alttext/pkg/identity"
	"github.com/entrhq/alttext/pkg/logging"
	"github.com/entrhq/alttext/pkg/marker"
	"github.com/entrhq/alttext/pkg/page"
	"github.com/entrhq/alttext/pkg/scan"
)

// DefaultCaptionTimeout bounds each caption request made while building proposals.
const DefaultCaptionTimeout = 1000 * time.Millisecond

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("proposal")
	if err != nil {
		debugLog.Warnf("Failed to initialize proposal logger, using stderr fallback: %v", err)
	}
}

// Proposal is a candidate caption for one image awaiting review.
type Proposal struct {
	ID          string `json:"id"`
	Src         string `json:"src"`
	OriginalAlt string `json:"originalAlt"`
	ProposedAlt string `json:"proposedAlt"`
}

// Captioner requests a caption under a caller-supplied deadline.
// *caption.Client satisfies it.
type Captioner interface {
	RequestCaptionWithin(ctx context.Context, imageURL string, timeout time.Duration) caption.Result
}

// Builder produces proposals for one page session.
type Builder struct {
	doc       page.Document
	tagger    *identity.Tagger
	captioner Captioner
	timeout   time.Duration
	logger    *logging.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithCaptionTimeout overrides DefaultCaptionTimeout.
func WithCaptionTimeout(d time.Duration) Option {
	return func(b *Builder) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithLogger replaces the package logger for this builder.
func WithLogger(l *logging.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder creates a Builder over doc. The tagger must be the one owned by
// the current page session so ids stay stable across scans.
func NewBuilder(doc page.Document, tagger *identity.Tagger, captioner Captioner, opts ...Option) *Builder {
	b := &Builder{
		doc:       doc,
		tagger:    tagger,
		captioner: captioner,
		timeout:   DefaultCaptionTimeout,
		logger:    debugLog,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildProposals scans the page and returns proposals for images whose alt
// text is empty, in document order. With onlyMissingAlt the candidates are
// the images the classifier selects; otherwise every image is considered.
//
// Images carrying an AI-processed marker produce nothing. Captions that fail
// or miss the deadline yield an empty ProposedAlt. The only error returned
// is a failure to read the page itself.
func (b *Builder) BuildProposals(ctx context.Context, onlyMissingAlt bool) ([]Proposal, error) {
	all, err := b.doc.Images(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	candidates := all
	if onlyMissingAlt {
		candidates, err = scan.FindImagesMissingAlt(ctx, b.doc)
		if err != nil {
			return nil, err
		}
	}

	if err := b.tagger.EnsureImageIDs(all); err != nil {
		b.logger.Warnf("failed to tag images: %v", err)
	}

	proposals := make([]Proposal, 0, len(candidates))
	for _, img := range candidates {
		if err := ctx.Err(); err != nil {
			b.logger.Warnf("proposal scan interrupted after %d proposals: %v", len(proposals), err)
			break
		}

		p, ok := b.propose(ctx, img)
		if ok {
			proposals = append(proposals, p)
		}
	}

	b.logger.Infof("built %d proposals from %d candidates", len(proposals), len(candidates))
	return proposals, nil
}

// propose handles one candidate. It never panics: a failure while reading or
// captioning a single image only drops that image's caption.
func (b *Builder) propose(ctx context.Context, img page.Image) (p Proposal, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Errorf("proposal for image %q panicked: %v", p.Src, r)
			ok = p.ID != "" && p.OriginalAlt == ""
			p.ProposedAlt = ""
		}
	}()

	if marker.IsAIProcessed(img) {
		return Proposal{}, false
	}

	id, err := b.tagger.Ensure(img)
	if err != nil {
		b.logger.Warnf("failed to tag image: %v", err)
	}

	alt, _ := img.Attr(page.AttrAlt)
	p = Proposal{
		ID:          id,
		Src:         img.CurrentSrc(),
		OriginalAlt: strings.TrimSpace(alt),
	}

	if p.OriginalAlt != "" {
		// Described images are considered but never listed.
		p.ProposedAlt = p.OriginalAlt
		return p, false
	}

	if p.Src == "" {
		b.logger.Warnf("image %s has no source; skipping caption request", p.ID)
		return p, true
	}

	result := b.captioner.RequestCaptionWithin(ctx, p.Src, b.timeout)
	if result.OK() {
		p.ProposedAlt = result.Caption
	}
	return p, true
}
