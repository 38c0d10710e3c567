// MCP server executable for toolchat.
//
// Serves the built-in tools over stdio. Tool toggles come from the
// [my_tools] config section. The confirmation dialog is always off here:
// MCP clients gate tool calls with their own approval prompts.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mfateev/toolchat/internal/config"
	"github.com/mfateev/toolchat/internal/logging"
	"github.com/mfateev/toolchat/internal/mcpserver"
	"github.com/mfateev/toolchat/internal/session"
	"github.com/mfateev/toolchat/internal/settings"
	"github.com/mfateev/toolchat/internal/version"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to the toolchat TOML config")
	verbose := flag.Bool("verbose", false, "Log debug output to stderr")
	flag.Parse()

	// stdout carries the protocol; everything else goes to stderr.
	log.SetOutput(os.Stderr)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	opts := session.LoadOptions(cfg)
	opts.Settings[settings.PresentExecDialog] = false
	opts.Logger = logging.New(os.Stderr, level)
	s := session.New(opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	server := mcpserver.New(s, version.String())
	log.Printf("Serving %d tools over stdio (session %s)", s.Registry.Count(), s.ID)
	if err := server.Run(ctx, &gomcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Fatalf("MCP server failed: %v", err)
	}
}
