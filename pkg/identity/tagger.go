// Package identity assigns stable per-page identifiers to images so repeated
// scans of the same page recognize images they have already seen.
package identity

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/entrhq/alttext/pkg/page"
)

const (
	// Attr is the attribute carrying an image's identity tag.
	Attr = "data-aiimg-id"

	// Prefix starts every minted identifier.
	Prefix = "aiimg-"
)

// Tagger mints identity tags for one page session. Construct one per loaded
// document and discard it on navigation; the counter is never reset while
// the Tagger lives.
type Tagger struct {
	mu   sync.Mutex
	next int
	seen map[string]struct{}
}

// NewTagger creates a Tagger whose first minted tag is aiimg-1.
func NewTagger() *Tagger {
	return &Tagger{
		next: 1,
		seen: make(map[string]struct{}),
	}
}

// Ensure returns img's identity tag, assigning a fresh one if it has none.
// Images that already carry a tag are left untouched.
func (t *Tagger) Ensure(img page.Image) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id, ok := img.Attr(Attr); ok && id != "" {
		t.seen[id] = struct{}{}
		return id, nil
	}

	id := t.mint()
	if err := img.SetAttr(Attr, id); err != nil {
		return "", fmt.Errorf("failed to tag image: %w", err)
	}
	return id, nil
}

// EnsureImageIDs tags every image that lacks a tag. Tags already present are
// recorded first so none of them can be minted again during this call.
func (t *Tagger) EnsureImageIDs(images []page.Image) error {
	t.Observe(images)

	for _, img := range images {
		if _, err := t.Ensure(img); err != nil {
			return err
		}
	}
	return nil
}

// Observe records the tags already present on images without assigning any.
func (t *Tagger) Observe(images []page.Image) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, img := range images {
		if id, ok := img.Attr(Attr); ok && id != "" {
			t.seen[id] = struct{}{}
		}
	}
}

// Counter returns the last counter value consumed, including values skipped
// because the page already used them. Zero means nothing was minted yet.
func (t *Tagger) Counter() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.next - 1
}

// mint returns the next unused identifier. Values already present on the
// page are skipped; the counter only moves forward. Caller holds t.mu.
func (t *Tagger) mint() string {
	for {
		id := Prefix + strconv.Itoa(t.next)
		t.next++
		if _, taken := t.seen[id]; !taken {
			t.seen[id] = struct{}{}
			return id
		}
	}
}

// Lookup returns the image among images whose tag equals id.
func Lookup(images []page.Image, id string) (page.Image, bool) {
	if id == "" {
		return nil, false
	}
	for _, img := range images {
		if v, ok := img.Attr(Attr); ok && v == id {
			return img, true
		}
	}
	return nil, false
}

// IsMinted reports whether id has the shape of a tag produced by a Tagger.
func IsMinted(id string) bool {
	n, ok := strings.CutPrefix(id, Prefix)
	if !ok || n == "" {
		return false
	}
	v, err := strconv.Atoi(n)
	return err == nil && v > 0 && strconv.Itoa(v) == n
}
