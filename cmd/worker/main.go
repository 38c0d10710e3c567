// Worker executable for toolchat.
//
// This starts a Temporal worker that runs ChatWorkflow and its session
// activities. Model calls and gated commands execute on this host.
package main

import (
	"flag"
	"log"

	"go.temporal.io/sdk/worker"

	"github.com/mfateev/toolchat/internal/activities"
	"github.com/mfateev/toolchat/internal/config"
	"github.com/mfateev/toolchat/internal/logging"
	"github.com/mfateev/toolchat/internal/session"
	"github.com/mfateev/toolchat/internal/temporalclient"
	"github.com/mfateev/toolchat/internal/version"
	"github.com/mfateev/toolchat/internal/workflow"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to the toolchat TOML config")
	address := flag.String("address", "", "Temporal host:port (overrides envconfig)")
	namespace := flag.String("namespace", "", "Temporal namespace (overrides envconfig)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	mc := session.ModelConfigFromConfig(cfg)
	log.Printf("Default model: %s/%s", mc.Provider, mc.Model)

	c, opts, err := temporalclient.Dial(
		firstNonEmpty(*address, cfg.Get(config.SectionTemporal, "address", "")),
		firstNonEmpty(*namespace, cfg.Get(config.SectionTemporal, "namespace", "")),
		logging.Default(),
	)
	if err != nil {
		log.Fatalf("Failed to create Temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, workflow.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflow.ChatWorkflow)
	w.RegisterActivity(activities.NewSessionActivities(nil))

	log.Printf("Worker version: %s", version.String())
	log.Printf("Starting worker on task queue: %s", workflow.TaskQueue)
	if opts.HostPort != "" {
		log.Printf("Temporal server: %s", opts.HostPort)
	}

	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}
	log.Println("Worker stopped")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
