package review

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/alttext/pkg/proposal"
)

// Run shows the review list on the terminal and returns the accepted
// captions once the user presses enter. Quitting returns nil.
func Run(ctx context.Context, proposals []proposal.Proposal, in io.Reader, out io.Writer, opts ...Option) ([]Accepted, error) {
	m := NewModel(proposals, opts...)

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if in != nil {
		programOpts = append(programOpts, tea.WithInput(in))
	}
	if out != nil {
		programOpts = append(programOpts, tea.WithOutput(out))
	}

	if _, err := tea.NewProgram(m, programOpts...).Run(); err != nil {
		return nil, fmt.Errorf("failed to run review UI: %w", err)
	}

	accepted := m.Accepted()
	debugLog.Infof("Review finished: %d of %d caption(s) accepted", len(accepted), len(proposals))
	return accepted, nil
}
