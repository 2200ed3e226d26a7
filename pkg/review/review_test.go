package review

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/alttext/pkg/proposal"
)

func TestTruncateURL(t *testing.T) {
	long := "https://cdn.example.com/" + strings.Repeat("a", 80) + ".png"

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"host and path", "https://example.com/img/cat.png?w=200#top", "example.com/img/cat.png"},
		{"collapses slashes", "https://example.com//img///cat.png", "example.com/img/cat.png"},
		{"drops port", "http://localhost:8080/a.png", "localhost/a.png"},
		{"long", long, ("cdn.example.com/" + strings.Repeat("a", 80))[:57] + "..."},
		{"unparsable short", "%zz", "%zz"},
		{"unparsable long", "%zz" + strings.Repeat("b", 70), ("%zz" + strings.Repeat("b", 70))[:57] + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateURL(tt.in, DefaultURLLength)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len([]rune(got)), DefaultURLLength)
		})
	}
}

func proposals() []proposal.Proposal {
	return []proposal.Proposal{
		{ID: "aiimg-1", Src: "https://example.com/a.png", ProposedAlt: "A cat"},
		{ID: "aiimg-2", Src: "", OriginalAlt: " ", ProposedAlt: ""},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(m *Model, keys ...string) {
	for _, k := range keys {
		m.Update(key(k))
	}
}

func TestStatus(t *testing.T) {
	assert.Equal(t, StatusEmpty, NewModel(nil).Status())
	assert.Equal(t, "Found 2 image(s).", NewModel(proposals()).Status())
}

func TestView(t *testing.T) {
	view := NewModel(proposals()).View()
	assert.Contains(t, view, "A cat")
	assert.Contains(t, view, "(proposed alt: none)")
	assert.Contains(t, view, "original: (none)")
	assert.Contains(t, view, "example.com/a.png")
	assert.Contains(t, view, "aiimg-2")
}

func TestAcceptAndFinish(t *testing.T) {
	m := NewModel(proposals())
	send(m, " ", "down", " ", "enter")

	require.True(t, m.Finished())
	// the second proposal has no caption, so accepting it yields nothing
	assert.Equal(t, []Accepted{{ID: "aiimg-1", Alt: "A cat"}}, m.Accepted())
}

func TestToggleOff(t *testing.T) {
	m := NewModel(proposals())
	send(m, " ", " ", "enter")
	assert.Empty(t, m.Accepted())
}

func TestQuitDiscards(t *testing.T) {
	m := NewModel(proposals())
	send(m, " ", "q")
	assert.False(t, m.Finished())
	assert.Nil(t, m.Accepted())
}

func TestEdit(t *testing.T) {
	m := NewModel(proposals())
	send(m, "down", "e")
	require.True(t, m.editing)

	send(m, "A", " ", "d", "o", "g")
	// q is text while editing
	send(m, "q")
	send(m, "enter")
	require.False(t, m.editing)

	send(m, "enter")
	assert.Equal(t, []Accepted{{ID: "aiimg-2", Alt: "A dogq"}}, m.Accepted())
}

func TestEditCancel(t *testing.T) {
	m := NewModel(proposals())
	send(m, "e", "x", "esc", " ", "enter")
	assert.Equal(t, []Accepted{{ID: "aiimg-1", Alt: "A cat"}}, m.Accepted())
}

func TestCopy(t *testing.T) {
	var copied string
	m := NewModel(proposals(), WithClipboard(func(s string) error {
		copied = s
		return nil
	}))

	send(m, "c")
	assert.Equal(t, "A cat", copied)
	assert.Contains(t, m.View(), "Copied.")

	send(m, "down", "c")
	assert.Equal(t, "A cat", copied)
	assert.Contains(t, m.View(), "Nothing to copy.")

	m = NewModel(proposals(), WithClipboard(func(string) error { return errors.New("no clipboard") }))
	send(m, "c")
	assert.Contains(t, m.View(), "Copy failed: no clipboard")
}

func TestCursorBounds(t *testing.T) {
	m := NewModel(proposals())
	send(m, "up", "up")
	assert.Equal(t, 0, m.cursor)
	send(m, "down", "down", "down")
	assert.Equal(t, 1, m.cursor)

	empty := NewModel(nil)
	send(empty, " ", "e", "c", "enter")
	assert.Empty(t, empty.Accepted())
}
