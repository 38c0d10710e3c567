package conversation

import (
	"github.com/mfateev/toolchat/internal/llm"
	"github.com/mfateev/toolchat/internal/models"
)

// OutputFormatInstructions tells the model how to shape its reply.
const OutputFormatInstructions = "Return a JSON object."

// DefaultEnvironmentPrompt describes where tools run.
const DefaultEnvironmentPrompt = "Our runtime is a terminal chat application. " +
	"Code given to python_exec runs in Starlark, a Python dialect without imports; " +
	"print text, or put objects in return_object and tables in csv_object and I will render them. " +
	"If software is missing, stop and ask me to install it."

// ComposePrompt builds the model prompt in a fixed order: tool
// instructions, output format, environment note, purpose prompt, history,
// then input. Empty system parts and empty input are left out.
func (d *Driver) ComposePrompt(input string) llm.Prompt {
	system := []string{
		d.dispatcher.Registry().FormatInstructions(),
		OutputFormatInstructions,
		d.opts.EnvironmentPrompt,
		d.opts.PurposePrompt,
	}

	msgs := d.history.List()
	prompt := make(llm.Prompt, 0, len(system)+len(msgs)+1)
	for _, s := range system {
		if s != "" {
			prompt = append(prompt, llm.Message{Role: models.RoleSystem, Content: s})
		}
	}
	for _, m := range msgs {
		prompt = append(prompt, llm.Message{Role: m.Role, Content: m.Content})
	}
	if input != "" {
		prompt = append(prompt, llm.Message{Role: models.RoleUser, Content: input})
	}
	return prompt
}
