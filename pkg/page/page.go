// Package page defines the document model the alt-text pipeline works on.
//
// A Document is whatever currently holds a page: a live browser tab
// (package browser) or a parsed HTML tree (package htmldoc). Images are
// opaque handles owned by that backend. The pipeline only reads specific
// attributes and issues attribute writes; it never owns the element.
package page

import (
	"context"
	"strings"
)

// Attribute names read or written by the pipeline.
const (
	AttrAlt   = "alt"
	AttrSrc   = "src"
	AttrTitle = "title"
	AttrClass = "class"
	AttrStyle = "style"
)

// Image is a handle to one <img> element.
type Image interface {
	// Attr returns the attribute value and whether it is present.
	Attr(name string) (string, bool)

	// SetAttr writes an attribute, creating it when absent.
	SetAttr(name, value string) error

	// RemoveAttr deletes an attribute. Removing a missing attribute is not an error.
	RemoveAttr(name string) error

	// CurrentSrc returns the resolved source the element currently displays,
	// falling back to the raw src attribute.
	CurrentSrc() string
}

// Document is a page holding images.
type Document interface {
	// Images returns every <img> element in document order.
	Images(ctx context.Context) ([]Image, error)
}

// Classes splits the class attribute of img into its tokens.
func Classes(img Image) []string {
	v, _ := img.Attr(AttrClass)
	return strings.Fields(v)
}

// HasClass reports whether img carries the given class token.
func HasClass(img Image, class string) bool {
	for _, c := range Classes(img) {
		if c == class {
			return true
		}
	}
	return false
}

// AddClass appends class to img's class list unless it is already present.
func AddClass(img Image, class string) error {
	classes := Classes(img)
	for _, c := range classes {
		if c == class {
			return nil
		}
	}
	return img.SetAttr(AttrClass, strings.Join(append(classes, class), " "))
}

// RemoveClass drops every occurrence of class from img's class list.
func RemoveClass(img Image, class string) error {
	classes := Classes(img)
	kept := classes[:0]
	for _, c := range classes {
		if c != class {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(classes) {
		return nil
	}
	if len(kept) == 0 {
		return img.RemoveAttr(AttrClass)
	}
	return img.SetAttr(AttrClass, strings.Join(kept, " "))
}
