// Package marker recognizes images whose alt text was already produced by
// an AI captioner, and marks images this tool captions.
//
// Several marker conventions exist in the wild (older builds of the content
// script used a different attribute). IsAIProcessed accepts all of them;
// Mark writes the current ones.
package marker

import (
	"strings"

	"github.com/entrhq/alttext/pkg/page"
)

const (
	// AttrGenerated is the current explicit marker attribute.
	AttrGenerated = "data-ai-generated"

	// AttrLegacy is the marker attribute written by older builds.
	AttrLegacy = "data-ai-alt"

	// ClassGenerated is the CSS class marker.
	ClassGenerated = "ai-generated-alt"
)

// Kind identifies which convention matched.
type Kind string

const (
	KindAttribute Kind = "attribute" // explicit data-ai-generated marker
	KindLegacy    Kind = "legacy"    // legacy data-ai-alt marker
	KindClass     Kind = "class"     // ai-generated-alt CSS class
	KindText      Kind = "text"      // "ai generated" wording in title or alt
)

// Marker is one recognized convention.
type Marker struct {
	Kind        Kind
	Description string
	Match       func(page.Image) bool
}

// Markers enumerates every recognized convention, checked in order.
var Markers = []Marker{
	{
		Kind:        KindAttribute,
		Description: AttrGenerated + ` present and not "", "false" or "0"`,
		Match:       matchGeneratedAttr,
	},
	{
		Kind:        KindLegacy,
		Description: AttrLegacy + " set to a non-empty value",
		Match:       matchLegacyAttr,
	},
	{
		Kind:        KindClass,
		Description: "class list contains " + ClassGenerated,
		Match:       func(img page.Image) bool { return page.HasClass(img, ClassGenerated) },
	},
	{
		Kind:        KindText,
		Description: `title or alt contains "ai generated" or "ai-generated" (any case)`,
		Match:       matchText,
	},
}

// textMarkers are matched case-insensitively inside title and alt.
var textMarkers = []string{"ai generated", "ai-generated"}

// IsAIProcessed reports whether any recognized marker is present on img.
func IsAIProcessed(img page.Image) bool {
	_, ok := Match(img)
	return ok
}

// Match returns the first marker convention present on img.
func Match(img page.Image) (Kind, bool) {
	for _, m := range Markers {
		if m.Match(img) {
			return m.Kind, true
		}
	}
	return "", false
}

// Mark flags img as captioned by this tool using the current conventions.
func Mark(img page.Image) error {
	if err := img.SetAttr(AttrGenerated, "true"); err != nil {
		return err
	}
	return page.AddClass(img, ClassGenerated)
}

func matchGeneratedAttr(img page.Image) bool {
	v, ok := img.Attr(AttrGenerated)
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "false", "0":
		return false
	}
	return true
}

func matchLegacyAttr(img page.Image) bool {
	v, ok := img.Attr(AttrLegacy)
	return ok && strings.TrimSpace(v) != ""
}

func matchText(img page.Image) bool {
	for _, name := range []string{page.AttrTitle, page.AttrAlt} {
		v, ok := img.Attr(name)
		if !ok {
			continue
		}
		lower := strings.ToLower(v)
		for _, needle := range textMarkers {
			if strings.Contains(lower, needle) {
				return true
			}
		}
	}
	return false
}
