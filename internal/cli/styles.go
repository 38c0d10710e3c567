package cli

import "github.com/charmbracelet/lipgloss"

// Styles holds all lipgloss styles for the TUI.
type Styles struct {
	// Window title line
	Title lipgloss.Style
	// User message
	UserMessage lipgloss.Style
	// Raw tool traffic, shown when display_tools_calls is on
	ToolTraffic lipgloss.Style
	// Retry diagnostics and other notes from the session
	SystemNote lipgloss.Style
	// Terminal failure notice
	Alert lipgloss.Style
	// Side data label ("return_object", "csv_object")
	ObjectLabel lipgloss.Style
	// Side data body
	ObjectBody lipgloss.Style
	// Table header row
	TableHeader lipgloss.Style
	// Table cells
	TableCell lipgloss.Style
	// Table border
	TableBorder lipgloss.Style
	// Confirmation header
	ConfirmHeader lipgloss.Style
	// Code or command awaiting confirmation
	ConfirmCode lipgloss.Style
	// Dimmed prefix (└, │)
	OutputPrefix lipgloss.Style
	// Separator line between viewport and input
	Separator lipgloss.Style
	// Status bar
	StatusBar lipgloss.Style
	// Spinner message
	SpinnerMessage lipgloss.Style
	// Selector chevron indicator
	SelectorChevron lipgloss.Style
	// Selector highlighted item
	SelectorSelected lipgloss.Style
	// Selector shortcut hint
	SelectorShortcut lipgloss.Style
}

// DefaultStyles returns styles with colors enabled.
func DefaultStyles() Styles {
	return Styles{
		Title:            lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		UserMessage:      lipgloss.NewStyle().Bold(true),
		ToolTraffic:      lipgloss.NewStyle().Foreground(lipgloss.Color("3")), // yellow
		SystemNote:       lipgloss.NewStyle().Faint(true),
		Alert:            lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true), // red
		ObjectLabel:      lipgloss.NewStyle().Foreground(lipgloss.Color("5")),            // magenta
		ObjectBody:       lipgloss.NewStyle(),
		TableHeader:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Padding(0, 1),
		TableCell:        lipgloss.NewStyle().Padding(0, 1),
		TableBorder:      lipgloss.NewStyle().Faint(true),
		ConfirmHeader:    lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		ConfirmCode:      lipgloss.NewStyle().Foreground(lipgloss.Color("2")), // green
		OutputPrefix:     lipgloss.NewStyle().Faint(true),
		Separator:        lipgloss.NewStyle().Faint(true),
		StatusBar:        lipgloss.NewStyle().Faint(true),
		SpinnerMessage:   lipgloss.NewStyle().Faint(true),
		SelectorChevron:  lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true),
		SelectorSelected: lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true),
		SelectorShortcut: lipgloss.NewStyle().Faint(true),
	}
}

// NoColorStyles returns styles with no colors (plain text).
func NoColorStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Title:            plain,
		UserMessage:      plain,
		ToolTraffic:      plain,
		SystemNote:       plain,
		Alert:            plain,
		ObjectLabel:      plain,
		ObjectBody:       plain,
		TableHeader:      plain.Padding(0, 1),
		TableCell:        plain.Padding(0, 1),
		TableBorder:      plain,
		ConfirmHeader:    plain,
		ConfirmCode:      plain,
		OutputPrefix:     plain,
		Separator:        plain,
		StatusBar:        plain,
		SpinnerMessage:   plain,
		SelectorChevron:  plain,
		SelectorSelected: plain,
		SelectorShortcut: plain,
	}
}
