package conversation

import "github.com/mfateev/toolchat/internal/models"

// Sink receives what the host should show.
type Sink interface {
	// Render is called for every assistant message appended by the driver.
	Render(msg models.Message)
	// Alert is called with the terminal failure notice. The notice is not
	// part of history.
	Alert(text string)
}

// SinkFuncs adapts plain functions to Sink. Nil fields are skipped.
type SinkFuncs struct {
	OnRender func(models.Message)
	OnAlert  func(string)
}

func (s SinkFuncs) Render(msg models.Message) {
	if s.OnRender != nil {
		s.OnRender(msg)
	}
}

func (s SinkFuncs) Alert(text string) {
	if s.OnAlert != nil {
		s.OnAlert(text)
	}
}
