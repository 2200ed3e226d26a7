// Package htmldoc implements page.Document over a parsed HTML tree.
//
// It is the offline counterpart of a live browser tab: a saved or fetched page
// is parsed once, images are tagged and captioned in place, and the rewritten
// tree can be rendered back out.
package htmldoc

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/entrhq/alttext/pkg/page"
)

// Document is an HTML tree plus the URL it was loaded from.
// All attribute access goes through the document mutex because highlight
// reverts run on timer goroutines.
type Document struct {
	mu   sync.Mutex
	root *html.Node
	base *url.URL
}

// Parse reads an HTML document. baseURL resolves relative image sources and
// may be empty; a <base href> element in the document takes precedence.
func Parse(r io.Reader, baseURL string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc := &Document{root: root}

	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
		}
		doc.base = u
	}

	if href := findBaseHref(root); href != "" {
		if u, err := url.Parse(href); err == nil {
			doc.base = doc.resolve(u)
		}
	}

	return doc, nil
}

// ParseString is Parse over an in-memory string.
func ParseString(src, baseURL string) (*Document, error) {
	return Parse(strings.NewReader(src), baseURL)
}

// Images returns every <img> element in document order.
func (d *Document) Images(ctx context.Context) ([]page.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.AllImages(), nil
}

// AllImages is Images without a context.
func (d *Document) AllImages() []page.Image {
	d.mu.Lock()
	defer d.mu.Unlock()

	var images []page.Image
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Img {
			images = append(images, &Image{doc: d, node: n})
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(d.root)
	return images
}

// Render writes the (possibly modified) document as HTML.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := html.Render(w, d.root); err != nil {
		return fmt.Errorf("failed to render HTML: %w", err)
	}
	return nil
}

// String renders the document to a string. Render errors yield "".
func (d *Document) String() string {
	var b strings.Builder
	if err := d.Render(&b); err != nil {
		return ""
	}
	return b.String()
}

func (d *Document) resolve(u *url.URL) *url.URL {
	if d.base == nil {
		return u
	}
	return d.base.ResolveReference(u)
}

// findBaseHref returns the href of the first <base> element, if any.
func findBaseHref(root *html.Node) string {
	var href string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Base {
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					href = strings.TrimSpace(attr.Val)
					return
				}
			}
		}
		for c := n.FirstChild; c != nil && href == ""; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(root)
	return href
}

// Image is an <img> node inside a Document.
type Image struct {
	doc  *Document
	node *html.Node
}

// Attr returns the attribute value and whether it is present.
func (i *Image) Attr(name string) (string, bool) {
	i.doc.mu.Lock()
	defer i.doc.mu.Unlock()

	for _, attr := range i.node.Attr {
		if attr.Namespace == "" && attr.Key == name {
			return attr.Val, true
		}
	}
	return "", false
}

// SetAttr writes an attribute, creating it when absent.
func (i *Image) SetAttr(name, value string) error {
	i.doc.mu.Lock()
	defer i.doc.mu.Unlock()

	for idx, attr := range i.node.Attr {
		if attr.Namespace == "" && attr.Key == name {
			i.node.Attr[idx].Val = value
			return nil
		}
	}
	i.node.Attr = append(i.node.Attr, html.Attribute{Key: name, Val: value})
	return nil
}

// RemoveAttr deletes an attribute.
func (i *Image) RemoveAttr(name string) error {
	i.doc.mu.Lock()
	defer i.doc.mu.Unlock()

	kept := i.node.Attr[:0]
	for _, attr := range i.node.Attr {
		if attr.Namespace == "" && attr.Key == name {
			continue
		}
		kept = append(kept, attr)
	}
	i.node.Attr = kept
	return nil
}

// CurrentSrc resolves the src attribute against the document base.
// Unparsable or empty sources are returned as written.
func (i *Image) CurrentSrc() string {
	raw, _ := i.Attr(page.AttrSrc)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	// data: and blob: sources are already absolute
	if u.Scheme != "" {
		return raw
	}
	return i.doc.resolve(u).String()
}
