// Package review is the terminal counterpart of the extension popup: it lists
// caption proposals, lets the user accept, edit and copy them, and returns
// the accepted captions for application to the page.
package review

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/alttext/pkg/logging"
	"github.com/entrhq/alttext/pkg/proposal"
)

const (
	StatusEmpty      = "No images found on this page or all images have alt text."
	noProposedAlt    = "(proposed alt: none)"
	noOriginalAlt    = "(none)"
	helpLine         = "↑/↓ move • space accept • e edit • c copy • enter apply • q quit"
	editingHelpLine  = "enter save • esc cancel"
	inputPlaceholder = "Describe the image"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("review")
	if err != nil {
		debugLog.Warnf("Failed to initialize review logger, using stderr fallback: %v", err)
	}
}

// Accepted is a reviewed caption to write onto the image tagged ID.
type Accepted struct {
	ID  string `json:"id"`
	Alt string `json:"alt"`
}

type item struct {
	proposal proposal.Proposal
	alt      string
	accepted bool
}

// Model is the bubbletea model of the review list.
type Model struct {
	items    []item
	cursor   int
	editing  bool
	input    textinput.Model
	notice   string
	finished bool
	quit     bool
	copy     func(string) error
}

// Option configures a Model.
type Option func(*Model)

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		m.copy = write
	}
}

// NewModel creates a review list over proposals.
func NewModel(proposals []proposal.Proposal, opts ...Option) *Model {
	items := make([]item, len(proposals))
	for i, p := range proposals {
		items[i] = item{proposal: p, alt: p.ProposedAlt}
	}

	input := textinput.New()
	input.Placeholder = inputPlaceholder
	input.CharLimit = 250

	m := &Model{
		items: items,
		input: input,
		copy:  clipboard.WriteAll,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Status is the summary line shown above the list.
func (m *Model) Status() string {
	if len(m.items) == 0 {
		return StatusEmpty
	}
	return fmt.Sprintf("Found %d image(s).", len(m.items))
}

// Finished reports whether the user confirmed the selection with enter.
func (m *Model) Finished() bool {
	return m.finished
}

// Accepted returns the accepted captions in list order. Captions that are
// empty after trimming are left out. Nothing is returned after a quit.
func (m *Model) Accepted() []Accepted {
	if !m.finished {
		return nil
	}
	var out []Accepted
	for _, it := range m.items {
		alt := strings.TrimSpace(it.alt)
		if !it.accepted || alt == "" {
			continue
		}
		out = append(out, Accepted{ID: it.proposal.ID, Alt: alt})
	}
	return out
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.editing {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if m.editing {
		return m.updateEditing(keyMsg)
	}

	m.notice = ""
	switch keyMsg.String() {
	case "ctrl+c", "q", "esc":
		m.quit = true
		return m, tea.Quit
	case "enter":
		m.finished = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case " ":
		if it := m.current(); it != nil {
			it.accepted = !it.accepted
		}
	case "e":
		if it := m.current(); it != nil {
			m.editing = true
			m.input.SetValue(it.alt)
			m.input.CursorEnd()
			return m, m.input.Focus()
		}
	case "c":
		m.copyCurrent()
	}
	return m, nil
}

func (m *Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		if it := m.current(); it != nil {
			it.alt = strings.TrimSpace(m.input.Value())
			it.accepted = it.alt != ""
		}
		m.stopEditing()
		return m, nil
	case tea.KeyEsc:
		m.stopEditing()
		return m, nil
	case tea.KeyCtrlC:
		m.quit = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) stopEditing() {
	m.editing = false
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) copyCurrent() {
	it := m.current()
	if it == nil {
		return
	}
	if it.alt == "" {
		m.notice = "Nothing to copy."
		return
	}
	if err := m.copy(it.alt); err != nil {
		debugLog.Warnf("Clipboard write failed: %v", err)
		m.notice = "Copy failed: " + err.Error()
		return
	}
	m.notice = "Copied."
}

func (m *Model) current() *item {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return nil
	}
	return &m.items[m.cursor]
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Alt text proposals"))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.Status()))
	b.WriteString("\n\n")

	for i, it := range m.items {
		b.WriteString(m.renderItem(i, it))
	}

	if m.editing {
		b.WriteString(inputBoxStyle.Render(m.input.View()))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render(editingHelpLine))
	} else {
		if m.notice != "" {
			b.WriteString(statusStyle.Render(m.notice))
			b.WriteString("\n")
		}
		b.WriteString(helpStyle.Render(helpLine))
	}
	b.WriteString("\n")
	return b.String()
}

func (m *Model) renderItem(i int, it item) string {
	pointer := "  "
	lineStyle := proposedStyle
	if i == m.cursor {
		pointer = "> "
		lineStyle = selectedStyle
	}

	check := "[ ]"
	if it.accepted {
		check = acceptedStyle.Render("[x]")
	}

	proposed := it.alt
	if proposed == "" {
		proposed = noProposedAlt
	}

	original := it.proposal.OriginalAlt
	if original == "" {
		original = noOriginalAlt
	}

	small := it.proposal.ID
	if it.proposal.Src != "" {
		small = TruncateURL(it.proposal.Src, DefaultURLLength)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s%s %s\n", pointer, check, lineStyle.Render(proposed))
	b.WriteString(subStyle.Render("original: " + original))
	b.WriteString("\n")
	if small != "" {
		b.WriteString(subStyle.Render(small))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}
