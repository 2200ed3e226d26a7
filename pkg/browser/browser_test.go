package browser

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/alttext/pkg/identity"
	"github.com/entrhq/alttext/pkg/marker"
	"github.com/entrhq/alttext/pkg/mutator"
	"github.com/entrhq/alttext/pkg/page"
	"github.com/entrhq/alttext/pkg/scan"
)

func TestAttrValue(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    string
		present bool
	}{
		{"null is absent", nil, "", false},
		{"empty string is present", "", "", true},
		{"value", "a cat", "a cat", true},
		{"non-string", float64(3), "3", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := attrValue(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.present, ok)
		})
	}
}

func TestToastArgs(t *testing.T) {
	args := toastArgs(mutator.NoticeError, "Caption backend is not reachable.", 3*time.Second)
	assert.Equal(t, "Caption backend is not reachable.", args["message"])
	assert.Equal(t, int64(3000), args["duration"])
	assert.Equal(t, "#c62828", args["background"])

	assert.Equal(t, "#2e7d32", toastColor(mutator.NoticeSuccess))
	assert.Equal(t, "#323232", toastColor(mutator.NoticeInfo))
}

func TestSessionCurrentURLConcurrent(t *testing.T) {
	s := &Session{}
	assert.Equal(t, "", s.CurrentURL())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.setURL(fmt.Sprintf("https://example.com/%d", i))
		}(i)
		go func() {
			defer wg.Done()
			_ = s.CurrentURL()
		}()
	}
	wg.Wait()

	assert.Contains(t, s.CurrentURL(), "https://example.com/")
	assert.Equal(t, "https://example.com/x", s.setURL("https://example.com/x"))
	assert.Equal(t, "https://example.com/x", s.CurrentURL())
}

func TestNewSessionBeforeInitialize(t *testing.T) {
	_, err := NewManager().NewSession(SessionOptions{Headless: true})
	assert.ErrorIs(t, err, ErrNotInitialized)
}

const fixture = `<!doctype html><html><body>
<img id="a" src="https://example.com/a.png">
<img id="b" src="https://example.com/b.png" alt="">
<img id="c" src="https://example.com/c.png" alt="A chart">
</body></html>`

func newTestSession(t *testing.T) *Session {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}

	m := NewManager()
	if err := m.Initialize(); err != nil {
		t.Skipf("playwright unavailable: %v", err)
	}
	t.Cleanup(func() { _ = m.Shutdown() })

	s, err := m.NewSession(SessionOptions{Headless: true})
	if err != nil {
		t.Skipf("chromium unavailable: %v", err)
	}
	require.NoError(t, s.Page.SetContent(fixture))
	return s
}

func TestPageDocument_Live(t *testing.T) {
	s := newTestSession(t)
	doc := s.Document()
	ctx := context.Background()

	images, err := doc.Images(ctx)
	require.NoError(t, err)
	require.Len(t, images, 3)

	_, ok := images[0].Attr(page.AttrAlt)
	assert.False(t, ok)
	alt, ok := images[1].Attr(page.AttrAlt)
	assert.True(t, ok)
	assert.Equal(t, "", alt)
	assert.Equal(t, "https://example.com/a.png", images[0].CurrentSrc())

	missing, err := scan.FindImagesMissingAlt(ctx, doc)
	require.NoError(t, err)
	assert.Len(t, missing, 2)

	tagger := identity.NewTagger()
	id, err := tagger.Ensure(missing[0])
	require.NoError(t, err)
	assert.True(t, identity.IsMinted(id))

	applied, err := mutator.ApplyAccepted(ctx, doc, id, " A red square ")
	require.NoError(t, err)
	assert.True(t, applied)

	images, err = doc.Images(ctx)
	require.NoError(t, err)
	alt, _ = images[0].Attr(page.AttrAlt)
	assert.Equal(t, "A red square", alt)
	assert.True(t, marker.IsAIProcessed(images[0]))

	require.NoError(t, images[0].RemoveAttr(page.AttrTitle))
	_, ok = images[0].Attr(page.AttrTitle)
	assert.False(t, ok)
}

func TestMissingAltSelector_Live(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Page.SetContent(`<body>
<img id="absent" src="1.png">
<img id="empty" src="2.png" alt="">
<img id="one-space" src="3.png" alt=" ">
<img id="two-spaces" src="4.png" alt="  ">
<img id="three-spaces" src="5.png" alt="   ">
<img id="tab" src="6.png" alt="&#9;">
<img id="described" src="7.png" alt="a dog">
</body>`))
	doc := s.Document()
	ctx := context.Background()

	ids := func(images []page.Image) []string {
		var out []string
		for _, img := range images {
			id, _ := img.Attr("id")
			out = append(out, id)
		}
		return out
	}

	all, err := doc.Images(ctx)
	require.NoError(t, err)
	var filtered []page.Image
	for _, img := range all {
		if scan.IsMissingAlt(img) {
			filtered = append(filtered, img)
		}
	}

	native, err := doc.QuerySelectorAll(ctx, scan.MissingAltSelector)
	require.NoError(t, err)
	assert.Equal(t, ids(filtered), ids(native))
	assert.Equal(t, []string{"absent", "empty", "one-space", "two-spaces"}, ids(native))

	found, err := scan.FindImagesMissingAlt(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, ids(native), ids(found))
}

func TestToastNotifier_Live(t *testing.T) {
	s := newTestSession(t)

	NewToastNotifier(s.Page, time.Minute).Notify(mutator.NoticeSuccess, "Added alt text to 2 image(s).")

	text, err := s.Page.Evaluate(`() => document.querySelector('[role=status]').textContent`)
	require.NoError(t, err)
	assert.Equal(t, "Added alt text to 2 image(s).", text)
}
