package scan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/alttext/pkg/page"
	"github.com/entrhq/alttext/pkg/page/htmldoc"
)

func TestFindImagesMissingAlt(t *testing.T) {
	doc, err := htmldoc.ParseString(`<body>
		<img id="absent" src="1.png">
		<img id="empty" src="2.png" alt="">
		<img id="one-space" src="3.png" alt=" ">
		<img id="two-spaces" src="4.png" alt="  ">
		<img id="three-spaces" src="5.png" alt="   ">
		<img id="tab" src="6.png" alt="	">
		<img id="described" src="7.png" alt="a dog">
		<img id="padded" src="8.png" alt=" a cat ">
	</body>`, "https://example.com/")
	require.NoError(t, err)

	found, err := FindImagesMissingAlt(context.Background(), doc)
	require.NoError(t, err)

	var ids []string
	for _, img := range found {
		id, _ := img.Attr("id")
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"absent", "empty", "one-space", "two-spaces"}, ids)
}

func TestFindImagesMissingAltHasNoSideEffects(t *testing.T) {
	src := `<body><img src="1.png"><img src="2.png" alt="x"></body>`
	doc, err := htmldoc.ParseString(src, "")
	require.NoError(t, err)
	before := doc.String()

	_, err = FindImagesMissingAlt(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, before, doc.String())
}

type failingDoc struct{}

func (failingDoc) Images(context.Context) ([]page.Image, error) {
	return nil, errors.New("page detached")
}

// selectorDoc answers native queries from a fixed result and records the
// selector it was asked for.
type selectorDoc struct {
	*htmldoc.Document
	selector string
	result   []page.Image
	err      error
}

func (d *selectorDoc) QuerySelectorAll(_ context.Context, selector string) ([]page.Image, error) {
	d.selector = selector
	return d.result, d.err
}

func TestFindImagesMissingAltUsesNativeQuery(t *testing.T) {
	inner, err := htmldoc.ParseString(`<img src="1.png"><img src="2.png" alt="x">`, "")
	require.NoError(t, err)
	doc := &selectorDoc{Document: inner, result: inner.AllImages()[:1]}

	found, err := FindImagesMissingAlt(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, MissingAltSelector, doc.selector)
	assert.Equal(t, doc.result, found)

	doc.err = errors.New("page detached")
	_, err = FindImagesMissingAlt(context.Background(), doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page detached")
}

func TestFindImagesMissingAltPropagatesListError(t *testing.T) {
	_, err := FindImagesMissingAlt(context.Background(), failingDoc{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page detached")
}

func TestIsMissingAlt(t *testing.T) {
	tests := []struct {
		name string
		html string
		want bool
	}{
		{"no attribute", `<img src="a">`, true},
		{"empty", `<img src="a" alt="">`, true},
		{"single space", `<img src="a" alt=" ">`, true},
		{"two spaces", `<img src="a" alt="  ">`, true},
		{"three spaces", `<img src="a" alt="   ">`, false},
		{"newline", "<img src=\"a\" alt=\"\n\">", false},
		{"text", `<img src="a" alt="chart">`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := htmldoc.ParseString(tt.html, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, IsMissingAlt(doc.AllImages()[0]))
		})
	}
}
