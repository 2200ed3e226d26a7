package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/alttext/pkg/page"
)

const (
	getAttrScript    = `(el, name) => el.getAttribute(name)`
	setAttrScript    = `(el, [name, value]) => el.setAttribute(name, value)`
	removeAttrScript = `(el, name) => el.removeAttribute(name)`
	currentSrcScript = `el => el.currentSrc || el.getAttribute('src') || ''`
)

// PageDocument is a page.Document over a live Playwright page.
// Calls are serialized because highlight reverts run on timer goroutines.
type PageDocument struct {
	mu   sync.Mutex
	page playwright.Page
}

// NewPageDocument wraps a Playwright page.
func NewPageDocument(p playwright.Page) *PageDocument {
	return &PageDocument{page: p}
}

// Document returns the session's page as a page.Document.
func (s *Session) Document() *PageDocument {
	return NewPageDocument(s.Page)
}

// Images returns every <img> currently in the DOM, in document order.
func (d *PageDocument) Images(ctx context.Context) ([]page.Image, error) {
	return d.QuerySelectorAll(ctx, "img")
}

// QuerySelectorAll returns the elements matching selector, in document
// order. The selector must only match <img> elements.
func (d *PageDocument) QuerySelectorAll(ctx context.Context, selector string) ([]page.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	handles, err := d.page.QuerySelectorAll(selector)
	d.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", selector, err)
	}

	images := make([]page.Image, 0, len(handles))
	for _, h := range handles {
		images = append(images, &Image{doc: d, el: h})
	}
	return images, nil
}

// Image is a page.Image backed by a Playwright element handle.
type Image struct {
	doc *PageDocument
	el  playwright.ElementHandle
}

func (img *Image) eval(script string, arg any) (any, error) {
	img.doc.mu.Lock()
	defer img.doc.mu.Unlock()
	return img.el.Evaluate(script, arg)
}

// Attr reads an attribute. A detached element reads as absent.
func (img *Image) Attr(name string) (string, bool) {
	v, err := img.eval(getAttrScript, name)
	if err != nil {
		debugLog.Warnf("Failed to read attribute %s: %v", name, err)
		return "", false
	}
	return attrValue(v)
}

// SetAttr writes an attribute on the live element.
func (img *Image) SetAttr(name, value string) error {
	if _, err := img.eval(setAttrScript, []string{name, value}); err != nil {
		return fmt.Errorf("failed to set attribute %s: %w", name, err)
	}
	return nil
}

// RemoveAttr deletes an attribute from the live element.
func (img *Image) RemoveAttr(name string) error {
	if _, err := img.eval(removeAttrScript, name); err != nil {
		return fmt.Errorf("failed to remove attribute %s: %w", name, err)
	}
	return nil
}

// CurrentSrc returns the source the browser actually selected (srcset,
// <picture>), falling back to the src attribute.
func (img *Image) CurrentSrc() string {
	img.doc.mu.Lock()
	v, err := img.el.Evaluate(currentSrcScript)
	img.doc.mu.Unlock()
	if err != nil {
		debugLog.Warnf("Failed to read currentSrc: %v", err)
		return ""
	}
	s, _ := attrValue(v)
	return s
}

// attrValue converts the result of getAttribute: null means absent.
func attrValue(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	default:
		return fmt.Sprint(val), true
	}
}
