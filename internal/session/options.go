package session

import (
	"github.com/mfateev/toolchat/internal/config"
	"github.com/mfateev/toolchat/internal/conversation"
	"github.com/mfateev/toolchat/internal/models"
	"github.com/mfateev/toolchat/internal/settings"
	"github.com/mfateev/toolchat/internal/tools"
)

// ModelConfigFromConfig reads the [chat] model keys.
func ModelConfigFromConfig(cfg *config.Config) models.ModelConfig {
	def := models.DefaultModelConfig()
	return models.ModelConfig{
		Provider:    cfg.Get(config.SectionChat, "model_provider", def.Provider),
		Model:       cfg.Get(config.SectionChat, "model_name_default", def.Model),
		ServerURL:   cfg.Get(config.SectionChat, "model_server_url", def.ServerURL),
		Temperature: cfg.GetFloat(config.SectionChat, "model_temperature", def.Temperature),
		NumPredict:  cfg.GetInt(config.SectionChat, "model_num_predict", def.NumPredict),
	}
}

// SettingsFromConfig returns the initial settings for a new session.
func SettingsFromConfig(cfg *config.Config) map[string]any {
	return map[string]any{
		settings.AllowPythonExec:    cfg.GetBool(config.SectionMyTools, settings.AllowPythonExec, false),
		settings.AllowShellExec:     cfg.GetBool(config.SectionMyTools, settings.AllowShellExec, false),
		settings.PresentExecDialog:  cfg.GetBool(config.SectionMyTools, settings.PresentExecDialog, false),
		settings.DefaultTool:        cfg.Get(config.SectionMyTools, settings.DefaultTool, tools.DefaultToolName),
		settings.ExecConfirmTimeout: cfg.Get(config.SectionMyTools, settings.ExecConfirmTimeout, ""),
		settings.DisplayToolCalls:   cfg.GetBool(config.SectionChatUI, settings.DisplayToolCalls, false),
		settings.ChatObjectsInline:  cfg.GetBool(config.SectionChat, settings.ChatObjectsInline, true),
		settings.AutoPromptAtStart:  cfg.GetBool(config.SectionChat, settings.AutoPromptAtStart, false),
		settings.AutoPrompt:         cfg.GetBool(config.SectionChat, settings.AutoPrompt, true),
	}
}

// PromptsFromConfig reads the prompt texts.
func PromptsFromConfig(cfg *config.Config) conversation.Options {
	return conversation.Options{
		PurposePrompt:     cfg.Get(config.SectionChat, "purpose_prompt", ""),
		EnvironmentPrompt: cfg.Get(config.SectionChat, "environment_prompt", conversation.DefaultEnvironmentPrompt),
		WelcomeMessage:    cfg.Get(config.SectionChat, "initial_ai_welcome_prompt", conversation.DefaultWelcome),
	}
}

// LoadOptions builds session options from a config file's values. The
// caller still supplies Models and, for interactive hosts, a Sink.
func LoadOptions(cfg *config.Config) Options {
	return Options{
		Settings: SettingsFromConfig(cfg),
		Prompts:  PromptsFromConfig(cfg),
	}
}
