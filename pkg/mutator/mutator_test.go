package mutator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/alttext/pkg/identity"
	"github.com/entrhq/alttext/pkg/marker"
	"github.com/entrhq/alttext/pkg/page"
	"github.com/entrhq/alttext/pkg/page/htmldoc"
)

func newDoc(t *testing.T, markup string) *htmldoc.Document {
	t.Helper()
	doc, err := htmldoc.ParseString(markup, "https://example.com/")
	require.NoError(t, err)
	return doc
}

func attr(img page.Image, name string) string {
	v, _ := img.Attr(name)
	return v
}

func TestApplyCaption(t *testing.T) {
	doc := newDoc(t, `<img src="a.png" class="hero">`)
	img := doc.AllImages()[0]

	require.NoError(t, ApplyCaption(img, "a red apple"))

	assert.Equal(t, "a red apple", attr(img, page.AttrAlt))
	assert.Equal(t, "a red apple", attr(img, page.AttrTitle))
	assert.Equal(t, "true", attr(img, marker.AttrGenerated))
	assert.True(t, page.HasClass(img, "hero"))
	assert.True(t, page.HasClass(img, marker.ClassGenerated))
	assert.True(t, marker.IsAIProcessed(img))
}

func TestApplyAccepted(t *testing.T) {
	doc := newDoc(t, `<img src="a.png"><img src="b.png">`)
	tagger := identity.NewTagger()
	require.NoError(t, tagger.EnsureImageIDs(doc.AllImages()))

	applied, err := ApplyAccepted(context.Background(), doc, "aiimg-2", "  a blue bird ")
	require.NoError(t, err)
	assert.True(t, applied)

	images := doc.AllImages()
	assert.Equal(t, "", attr(images[0], page.AttrAlt))
	assert.Equal(t, "a blue bird", attr(images[1], page.AttrAlt))
	assert.Equal(t, "a blue bird", attr(images[1], page.AttrTitle))
	assert.True(t, marker.IsAIProcessed(images[1]))
}

func TestApplyAcceptedUnknownID(t *testing.T) {
	doc := newDoc(t, `<img src="a.png" data-aiimg-id="aiimg-1">`)

	applied, err := ApplyAccepted(context.Background(), doc, "aiimg-99", "anything")
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, "", attr(doc.AllImages()[0], page.AttrAlt))
}

func TestApplyAcceptedBlankAlt(t *testing.T) {
	for _, alt := range []string{"", "   ", "\t\n"} {
		doc := newDoc(t, `<img src="a.png" data-aiimg-id="aiimg-1">`)

		applied, err := ApplyAccepted(context.Background(), doc, "aiimg-1", alt)
		require.NoError(t, err)
		assert.False(t, applied, "alt %q", alt)

		img := doc.AllImages()[0]
		_, hasAlt := img.Attr(page.AttrAlt)
		_, hasTitle := img.Attr(page.AttrTitle)
		assert.False(t, hasAlt)
		assert.False(t, hasTitle)
		assert.False(t, marker.IsAIProcessed(img))
	}
}

func TestHighlightReverts(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   string
		keep   bool
	}{
		{"no prior style", `<img src="a.png">`, "", false},
		{"prior style", `<img src="a.png" style="width: 10px;">`, "width: 10px;", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newDoc(t, tt.markup)
			img := doc.AllImages()[0]
			h := NewHighlighter(20 * time.Millisecond)

			require.NoError(t, h.Highlight(img))
			assert.Contains(t, attr(img, page.AttrStyle), HighlightStyle)

			h.Wait()
			got, ok := img.Attr(page.AttrStyle)
			assert.Equal(t, tt.keep, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNotifierFunc(t *testing.T) {
	var gotKind NoticeKind
	var gotMsg string
	n := NotifierFunc(func(kind NoticeKind, message string) {
		gotKind, gotMsg = kind, message
	})

	n.Notify(NoticeSuccess, "done")
	assert.Equal(t, NoticeSuccess, gotKind)
	assert.Equal(t, "done", gotMsg)
}
