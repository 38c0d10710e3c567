package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mfateev/toolchat/internal/session"
)

// Run starts the TUI and blocks until the user quits.
func Run(config Config, manager *session.Manager, catalog ModelCatalog) error {
	model := NewModel(config, manager, catalog)

	var opts []tea.ProgramOption
	if !config.Inline {
		opts = append(opts, tea.WithAltScreen())
	}
	p := tea.NewProgram(model, opts...)

	// CSI 1007 alternate scroll mode: the terminal turns wheel events into
	// arrow keys, so text selection keeps working without mouse capture.
	fmt.Fprint(os.Stderr, "\x1b[?1007h")
	defer fmt.Fprint(os.Stderr, "\x1b[?1007l")

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
