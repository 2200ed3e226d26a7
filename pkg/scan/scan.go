// Package scan finds images that lack usable alternate text.
package scan

import (
	"context"
	"fmt"

	"github.com/entrhq/alttext/pkg/logging"
	"github.com/entrhq/alttext/pkg/page"
)

// MissingAltSelector is the CSS form of the selection rule, for backends
// that can query the page natively.
const MissingAltSelector = `img:not([alt]), img[alt=""], img[alt=" "], img[alt="  "]`

// Querier is a document that evaluates CSS selectors itself.
type Querier interface {
	page.Document
	QuerySelectorAll(ctx context.Context, selector string) ([]page.Image, error)
}

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("scan")
	if err != nil {
		debugLog.Warnf("Failed to initialize scan logger, using stderr fallback: %v", err)
	}
}

// blankAltValues are the literal alt values treated as missing. The match
// is exact: a three-space or tab-only alt is not selected.
var blankAltValues = map[string]bool{
	"":   true,
	" ":  true,
	"  ": true,
}

// IsMissingAlt reports whether img has no alt attribute or one of the
// literal blank values "", " " and "  ".
func IsMissingAlt(img page.Image) bool {
	alt, ok := img.Attr(page.AttrAlt)
	if !ok {
		return true
	}
	return blankAltValues[alt]
}

// FindImagesMissingAlt returns the images of doc that lack alt text, in
// document order. A Querier is asked for MissingAltSelector directly.
func FindImagesMissingAlt(ctx context.Context, doc page.Document) ([]page.Image, error) {
	if q, ok := doc.(Querier); ok {
		missing, err := q.QuerySelectorAll(ctx, MissingAltSelector)
		if err != nil {
			return nil, fmt.Errorf("failed to query images: %w", err)
		}
		debugLog.Infof("Found %d images missing alt text.", len(missing))
		return missing, nil
	}

	images, err := doc.Images(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	missing := make([]page.Image, 0, len(images))
	for _, img := range images {
		if IsMissingAlt(img) {
			missing = append(missing, img)
		}
	}

	debugLog.Infof("Found %d images missing alt text.", len(missing))
	return missing, nil
}
