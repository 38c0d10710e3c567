// chat is the interactive terminal client for toolchat.
//
// Sessions run in-process: model calls and gated commands execute here.
// Settings and prompts come from the TOML config; flags override the model.
//
// Usage:
//
//	chat                                 Use the model from toolchat.toml
//	chat --model llama3.1                Use a specific Ollama model
//	chat --model gpt-4o-mini             Provider is inferred from the name
//	chat --log chat.log                  Write debug logs to a file
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/mfateev/toolchat/internal/cli"
	"github.com/mfateev/toolchat/internal/config"
	"github.com/mfateev/toolchat/internal/llm"
	"github.com/mfateev/toolchat/internal/logging"
	"github.com/mfateev/toolchat/internal/session"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to the toolchat TOML config")
	model := flag.String("model", "", "Model name (overrides chat.model_name_default)")
	provider := flag.String("provider", "", "Model provider: ollama, openai, anthropic, gemini")
	noMarkdown := flag.Bool("no-markdown", false, "Disable markdown rendering")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	inline := flag.Bool("inline", false, "Disable alt-screen mode (inline output)")
	logPath := flag.String("log", "", "Write debug logs to this file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	mc := session.ModelConfigFromConfig(cfg)
	if *model != "" {
		mc.Model = *model
		if *provider == "" {
			mc.Provider = cli.DetectProvider(*model)
		}
	}
	if *provider != "" {
		mc.Provider = *provider
	}

	logger := logging.Nop()
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logger = logging.New(f, slog.LevelDebug)
	}

	p, err := llm.NewProvider(context.Background(), mc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cache := llm.NewModelCache(p, mc.Model)
	logger.Info("Model selected", "provider", mc.Provider, "model", mc.Model)

	opts := session.LoadOptions(cfg)
	opts.Models = cache
	opts.Logger = logger
	manager := session.NewManager(opts)

	tuiConfig := cli.Config{
		Title:      cfg.Get(config.SectionChatUI, "window_name", cli.DefaultTitle),
		InputLabel: cfg.Get(config.SectionChat, "chat_input_label", cli.DefaultInputLabel),
		NoMarkdown: *noMarkdown,
		NoColor:    *noColor,
		Inline:     *inline,
	}
	if err := cli.Run(tuiConfig, manager, cache); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
