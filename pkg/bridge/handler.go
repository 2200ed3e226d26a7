// Package bridge answers requests from a privileged UI (a review popup, the
// CLI, an HTTP caller) about the page session it owns.
//
// Messages are small JSON objects with a "type" field:
//
//	{"type":"requestProposals","onlyMissingAlt":true} -> {"proposals":[...]}
//	{"type":"applyCaption","id":"aiimg-3","alt":"..."} -> {"applied":true}
//
// Recognized requests always get a response; unknown types get none.
package bridge

import (
	"context"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/entrhq/alttext/pkg/identity"
	"github.com/entrhq/alttext/pkg/logging"
	"github.com/entrhq/alttext/pkg/mutator"
	"github.com/entrhq/alttext/pkg/page"
	"github.com/entrhq/alttext/pkg/proposal"
)

// Message types.
const (
	TypeRequestProposals = "requestProposals"
	TypeApplyCaption     = "applyCaption"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("bridge")
	if err != nil {
		debugLog.Warnf("Failed to initialize bridge logger, using stderr fallback: %v", err)
	}
}

// ProposalsResponse answers requestProposals.
type ProposalsResponse struct {
	Proposals []proposal.Proposal `json:"proposals"`
}

// ApplyResponse answers applyCaption.
type ApplyResponse struct {
	Applied bool `json:"applied"`
}

// Handler owns one page session: the document and the tagger that names
// its images. The lock only guards swapping sessions; page calls run
// without it so a load event can reset the session mid-scan.
type Handler struct {
	mu          sync.Mutex
	doc         page.Document
	tagger      *identity.Tagger
	captioner   proposal.Captioner
	builderOpts []proposal.Option
	logger      *logging.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithBuilderOptions passes options to every proposal builder the handler
// creates.
func WithBuilderOptions(opts ...proposal.Option) Option {
	return func(h *Handler) {
		h.builderOpts = append(h.builderOpts, opts...)
	}
}

// WithLogger replaces the package logger for this handler.
func WithLogger(l *logging.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHandler starts a page session over doc.
func NewHandler(doc page.Document, captioner proposal.Captioner, opts ...Option) *Handler {
	h := &Handler{
		doc:       doc,
		tagger:    identity.NewTagger(),
		captioner: captioner,
		logger:    debugLog,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Reset starts a new page session, as after a navigation or reload. The
// identity counter starts over.
func (h *Handler) Reset(doc page.Document) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.doc = doc
	h.tagger = identity.NewTagger()
	h.logger.Debugf("page session reset")
}

// Document returns the current session's document.
func (h *Handler) Document() page.Document {
	doc, _ := h.current()
	return doc
}

func (h *Handler) current() (page.Document, *identity.Tagger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.doc, h.tagger
}

// HandleMessage dispatches a raw JSON message. ok is false when the message
// type is not recognized and no response should be sent.
func (h *Handler) HandleMessage(ctx context.Context, raw []byte) (resp any, ok bool) {
	msg := gjson.ParseBytes(raw)

	switch msg.Get("type").String() {
	case TypeRequestProposals:
		onlyMissingAlt := true
		if v := msg.Get("onlyMissingAlt"); v.Exists() && v.Type != gjson.Null {
			onlyMissingAlt = v.Bool()
		}
		return h.RequestProposals(ctx, onlyMissingAlt), true

	case TypeApplyCaption:
		return h.ApplyCaption(ctx, msg.Get("id").String(), msg.Get("alt").String()), true

	default:
		h.logger.Debugf("ignoring message of type %q", msg.Get("type").String())
		return nil, false
	}
}

// RequestProposals builds proposals for the current page. Any failure
// yields an empty list.
func (h *Handler) RequestProposals(ctx context.Context, onlyMissingAlt bool) (resp ProposalsResponse) {
	resp.Proposals = []proposal.Proposal{}

	defer func() {
		if r := recover(); r != nil {
			h.logger.Errorf("building proposals panicked: %v", r)
			resp = ProposalsResponse{Proposals: []proposal.Proposal{}}
		}
	}()

	doc, tagger := h.current()
	builder := proposal.NewBuilder(doc, tagger, h.captioner, h.builderOpts...)
	proposals, err := builder.BuildProposals(ctx, onlyMissingAlt)
	if err != nil {
		h.logger.Errorf("failed to build proposals: %v", err)
		return resp
	}
	if proposals != nil {
		resp.Proposals = proposals
	}
	return resp
}

// ApplyCaption writes an accepted caption onto the image tagged id.
func (h *Handler) ApplyCaption(ctx context.Context, id, alt string) (resp ApplyResponse) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Errorf("applying caption to %s panicked: %v", id, r)
			resp = ApplyResponse{}
		}
	}()

	if !identity.IsMinted(id) {
		h.logger.Warnf("refusing to apply caption to unknown id %q", id)
		return resp
	}

	applied, err := mutator.ApplyAccepted(ctx, h.Document(), id, alt)
	if err != nil {
		h.logger.Errorf("failed to apply caption to %s: %v", id, err)
		return resp
	}
	resp.Applied = applied
	return resp
}
