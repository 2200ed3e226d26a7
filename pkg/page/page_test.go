package page_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/alttext/pkg/page"
	"github.com/entrhq/alttext/pkg/page/htmldoc"
)

func firstImage(t *testing.T, src string) page.Image {
	t.Helper()
	doc, err := htmldoc.ParseString(src, "https://example.com/")
	require.NoError(t, err)
	images := doc.AllImages()
	require.NotEmpty(t, images)
	return images[0]
}

func TestClassHelpers(t *testing.T) {
	img := firstImage(t, `<img src="a.png" class="hero  wide">`)

	assert.Equal(t, []string{"hero", "wide"}, page.Classes(img))
	assert.True(t, page.HasClass(img, "wide"))
	assert.False(t, page.HasClass(img, "wid"))

	require.NoError(t, page.AddClass(img, "marked"))
	require.NoError(t, page.AddClass(img, "marked"))
	v, _ := img.Attr(page.AttrClass)
	assert.Equal(t, "hero wide marked", v)

	require.NoError(t, page.RemoveClass(img, "hero"))
	v, _ = img.Attr(page.AttrClass)
	assert.Equal(t, "wide marked", v)
}

func TestRemoveLastClassDropsAttribute(t *testing.T) {
	img := firstImage(t, `<img src="a.png" class="only">`)

	require.NoError(t, page.RemoveClass(img, "only"))
	_, ok := img.Attr(page.AttrClass)
	assert.False(t, ok)

	// no class attribute at all is fine
	require.NoError(t, page.RemoveClass(img, "only"))
}
