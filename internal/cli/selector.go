package cli

import (
	"fmt"
	"strings"
	"unicode"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mfateev/toolchat/internal/models"
)

// SelectorOption is one choice in the confirmation widget.
type SelectorOption struct {
	Label       string // Display text, e.g. "Allow"
	ShortcutKey rune   // Matched against keypress, e.g. 'y'
	Decision    models.Decision
}

// ConfirmOptions are the choices offered for a pending execution.
func ConfirmOptions() []SelectorOption {
	return []SelectorOption{
		{Label: "Allow", ShortcutKey: 'y', Decision: models.DecisionApprove},
		{Label: "Deny", ShortcutKey: 'n', Decision: models.DecisionDeny},
	}
}

// SelectorModel is the arrow-key navigable Allow/Deny widget shown in place
// of the text input while an execution waits for confirmation.
type SelectorModel struct {
	options   []SelectorOption
	cursor    int
	styles    Styles
	confirmed bool
}

// NewSelectorModel creates a selector over options.
func NewSelectorModel(options []SelectorOption, styles Styles) *SelectorModel {
	return &SelectorModel{options: options, styles: styles}
}

// Update processes a key and reports whether a choice was made. Esc
// chooses Deny.
func (s *SelectorModel) Update(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyUp, tea.KeyLeft, tea.KeyShiftTab:
		s.move(-1)
	case tea.KeyDown, tea.KeyRight, tea.KeyTab:
		s.move(1)
	case tea.KeyEnter:
		s.confirmed = true
		return true
	case tea.KeyEsc:
		return s.choose(models.DecisionDeny)
	case tea.KeyRunes:
		if len(msg.Runes) != 1 {
			return false
		}
		r := unicode.ToLower(msg.Runes[0])
		if r >= '1' && r <= '9' {
			idx := int(r - '1')
			if idx < len(s.options) {
				s.cursor = idx
				s.confirmed = true
				return true
			}
			return false
		}
		switch r {
		case 'j':
			s.move(1)
			return false
		case 'k':
			s.move(-1)
			return false
		}
		for i, opt := range s.options {
			if opt.ShortcutKey != 0 && unicode.ToLower(opt.ShortcutKey) == r {
				s.cursor = i
				s.confirmed = true
				return true
			}
		}
	}
	return false
}

func (s *SelectorModel) choose(d models.Decision) bool {
	for i, opt := range s.options {
		if opt.Decision == d {
			s.cursor = i
			s.confirmed = true
			return true
		}
	}
	return false
}

// View renders the options on one line each.
func (s *SelectorModel) View() string {
	var b strings.Builder
	for i, opt := range s.options {
		label := fmt.Sprintf("%d. %s", i+1, opt.Label)
		if i == s.cursor {
			b.WriteString(s.styles.SelectorChevron.Render(" > ") + s.styles.SelectorSelected.Render(label))
		} else {
			b.WriteString("   " + label)
		}
		if opt.ShortcutKey != 0 {
			b.WriteString(" " + s.styles.SelectorShortcut.Render("("+string(opt.ShortcutKey)+")"))
		}
		if i < len(s.options)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Decision returns the decision under the cursor.
func (s *SelectorModel) Decision() models.Decision {
	if len(s.options) == 0 {
		return models.DecisionDeny
	}
	return s.options[s.cursor].Decision
}

// Confirmed reports whether a choice was made.
func (s *SelectorModel) Confirmed() bool {
	return s.confirmed
}

// Height returns the number of lines the selector occupies.
func (s *SelectorModel) Height() int {
	return len(s.options)
}

func (s *SelectorModel) move(delta int) {
	n := len(s.options)
	if n == 0 {
		return
	}
	s.cursor = (s.cursor + delta + n) % n
}
