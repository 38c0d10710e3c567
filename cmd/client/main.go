// CLI client for toolchat workflows.
//
// Sub-commands:
//
//	start    [--config f] [--provider p] [--model m]   Start a session, print its workflow ID
//	send     --workflow-id <id> --message "..."          Send input and print the replies
//	approve  --workflow-id <id>                          Allow the pending execution
//	deny     --workflow-id <id>                          Deny the pending execution
//	set      --workflow-id <id> --key k --value v        Change a session setting
//	model    --workflow-id <id> --name m                 Switch the model
//	models   --workflow-id <id>                          List available models
//	status   --workflow-id <id>                          Show the session status
//	history  --workflow-id <id> [--all]                  Print the conversation
//	clear    --workflow-id <id>                          Clear the conversation
//	end      --workflow-id <id>                          Shut the session down
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/mfateev/toolchat/internal/config"
	"github.com/mfateev/toolchat/internal/history"
	"github.com/mfateev/toolchat/internal/models"
	"github.com/mfateev/toolchat/internal/session"
	"github.com/mfateev/toolchat/internal/temporalclient"
	"github.com/mfateev/toolchat/internal/workflow"
)

const updateTimeout = 10 * time.Minute

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	args := os.Args[2:]
	switch os.Args[1] {
	case "start":
		cmdStart(args)
	case "send":
		cmdSend(args)
	case "approve":
		cmdResolve(args, models.DecisionApprove)
	case "deny":
		cmdResolve(args, models.DecisionDeny)
	case "set":
		cmdSet(args)
	case "model":
		cmdModel(args)
	case "models":
		cmdModels(args)
	case "status":
		cmdStatus(args)
	case "history":
		cmdHistory(args)
	case "clear":
		cmdClear(args)
	case "end":
		cmdEnd(args)
	default:
		printUsage()
		log.Fatalf("Unknown sub-command: %s", os.Args[1])
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: client <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  start    Start a new chat session")
	fmt.Fprintln(os.Stderr, "  send     Send a message and print the replies")
	fmt.Fprintln(os.Stderr, "  approve  Allow the pending execution")
	fmt.Fprintln(os.Stderr, "  deny     Deny the pending execution")
	fmt.Fprintln(os.Stderr, "  set      Change a session setting")
	fmt.Fprintln(os.Stderr, "  model    Switch the model")
	fmt.Fprintln(os.Stderr, "  models   List available models")
	fmt.Fprintln(os.Stderr, "  status   Show the session status")
	fmt.Fprintln(os.Stderr, "  history  Print the conversation")
	fmt.Fprintln(os.Stderr, "  clear    Clear the conversation")
	fmt.Fprintln(os.Stderr, "  end      Shut the session down")
}

// connFlags are the flags every sub-command accepts.
type connFlags struct {
	address    *string
	namespace  *string
	workflowID *string
}

func addConnFlags(fs *flag.FlagSet, needID bool) connFlags {
	cf := connFlags{
		address:   fs.String("address", "", "Temporal host:port (overrides envconfig)"),
		namespace: fs.String("namespace", "", "Temporal namespace (overrides envconfig)"),
	}
	if needID {
		cf.workflowID = fs.String("workflow-id", "", "Workflow ID (required)")
	}
	return cf
}

func (cf connFlags) id() string {
	if cf.workflowID == nil || *cf.workflowID == "" {
		log.Fatal("Error: --workflow-id is required")
	}
	return *cf.workflowID
}

func (cf connFlags) dial() client.Client {
	c, _, err := temporalclient.Dial(*cf.address, *cf.namespace, nil)
	if err != nil {
		log.Fatalf("Failed to create Temporal client: %v", err)
	}
	return c
}

func update(c client.Client, workflowID, name string, arg interface{}, out interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), updateTimeout)
	defer cancel()

	var args []interface{}
	if arg != nil {
		args = []interface{}{arg}
	}
	handle, err := c.UpdateWorkflow(ctx, client.UpdateWorkflowOptions{
		WorkflowID:   workflowID,
		UpdateName:   name,
		Args:         args,
		WaitForStage: client.WorkflowUpdateStageCompleted,
	})
	if err != nil {
		fatalCall(workflowID, "send "+name, err)
	}
	if err := handle.Get(ctx, out); err != nil {
		log.Fatalf("%s failed: %v", name, err)
	}
}

func query(c client.Client, workflowID, name string, out interface{}) {
	resp, err := c.QueryWorkflow(context.Background(), workflowID, "", name)
	if err != nil {
		fatalCall(workflowID, "query "+name, err)
	}
	if err := resp.Get(out); err != nil {
		log.Fatalf("Failed to decode %s: %v", name, err)
	}
}

// fatalCall exits with a message that tells an ended session apart from
// other failures.
func fatalCall(workflowID, what string, err error) {
	var notFound *serviceerror.NotFound
	if errors.As(err, &notFound) {
		log.Fatalf("Session %s not found (it may have ended)", workflowID)
	}
	var notReady *serviceerror.WorkflowNotReady
	if errors.As(err, &notReady) {
		log.Fatalf("Session %s is not ready yet, retry shortly", workflowID)
	}
	log.Fatalf("Failed to %s: %v", what, err)
}

func cmdStart(args []string) {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	cf := addConnFlags(fs, false)
	configPath := fs.String("config", config.DefaultPath, "Path to the toolchat TOML config")
	provider := fs.String("provider", "", "Model provider (ollama, openai, anthropic, gemini)")
	model := fs.String("model", "", "Model name")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	opts := session.LoadOptions(cfg)
	mc := session.ModelConfigFromConfig(cfg)
	if *provider != "" {
		mc.Provider = *provider
	}
	if *model != "" {
		mc.Model = *model
	}

	c := cf.dial()
	defer c.Close()

	sessionID := uuid.NewString()
	workflowID := "toolchat-" + sessionID[:8]
	input := workflow.WorkflowInput{
		SessionID: sessionID,
		Model:     mc,
		Settings:  opts.Settings,
		Prompts:   opts.Prompts,
	}

	run, err := c.ExecuteWorkflow(context.Background(), client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: workflow.TaskQueue,
	}, workflow.ChatWorkflow, input)
	if err != nil {
		log.Fatalf("Failed to start workflow: %v", err)
	}

	log.Printf("Workflow ID: %s", workflowID)
	log.Printf("Run ID: %s", run.GetRunID())
	log.Printf("Model: %s/%s", mc.Provider, mc.Model)

	// Print workflow ID on stdout for scripting
	fmt.Println(workflowID)
}

// cmdSend queues input, waits for the workflow to go idle, and prints the
// messages the turn produced.
func cmdSend(args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	cf := addConnFlags(fs, true)
	message := fs.String("message", "", "User message (required)")
	all := fs.Bool("all", false, "Show tool calls and retry diagnostics")
	fs.Parse(args)

	id := cf.id()
	if *message == "" {
		log.Fatal("Error: --message is required")
	}
	c := cf.dial()
	defer c.Close()

	var before workflow.Status
	query(c, id, workflow.QueryGetStatus, &before)

	var accepted workflow.UserInputAccepted
	update(c, id, workflow.UpdateUserInput, workflow.UserInput{Content: *message}, &accepted)

	st := waitIdle(c, id)
	printSince(c, id, before.MessageCount, *all)
	printStatusHints(st)
}

func waitIdle(c client.Client, workflowID string) workflow.Status {
	for {
		var st workflow.Status
		query(c, workflowID, workflow.QueryGetStatus, &st)
		idle := st.Phase == workflow.PhaseWaitingForInput || st.Phase == workflow.PhaseApprovalPending
		if idle && st.QueuedInputs == 0 {
			return st
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func printSince(c client.Client, workflowID string, from int, all bool) {
	var msgs []models.Message
	query(c, workflowID, workflow.QueryGetMessages, &msgs)
	if from > len(msgs) {
		from = 0
	}
	for _, m := range history.Visible(msgs[from:], all) {
		if m.Role == models.RoleUser {
			continue
		}
		fmt.Println(m.Content)
		if len(m.SideData) > 0 {
			data, _ := json.MarshalIndent(m.SideData, "", "  ")
			fmt.Println(string(data))
		}
	}
}

func printStatusHints(st workflow.Status) {
	for _, a := range st.Alerts {
		fmt.Fprintln(os.Stderr, a)
	}
	if st.LastError != "" {
		fmt.Fprintln(os.Stderr, "error:", st.LastError)
	}
	if st.Pending != nil {
		fmt.Fprintf(os.Stderr, "Pending %s execution:\n%s\nRun 'client approve' or 'client deny'.\n", st.Pending.Kind, st.Pending.Payload)
	}
}

func cmdResolve(args []string, decision models.Decision) {
	fs := flag.NewFlagSet(string(decision), flag.ExitOnError)
	cf := addConnFlags(fs, true)
	fs.Parse(args)

	id := cf.id()
	c := cf.dial()
	defer c.Close()

	var res workflow.ApprovalResult
	update(c, id, workflow.UpdateApprovalResponse, workflow.ApprovalResponse{Decision: decision}, &res)
	fmt.Println(res.Message)

	// An approval may arm a follow-up turn.
	st := waitIdle(c, id)
	printStatusHints(st)
}

func cmdSet(args []string) {
	fs := flag.NewFlagSet("set", flag.ExitOnError)
	cf := addConnFlags(fs, true)
	key := fs.String("key", "", "Setting name (required)")
	value := fs.String("value", "", "Setting value; true/false become booleans")
	fs.Parse(args)

	id := cf.id()
	if *key == "" {
		log.Fatal("Error: --key is required")
	}
	var v any = *value
	if b, err := strconv.ParseBool(*value); err == nil {
		v = b
	}

	c := cf.dial()
	defer c.Close()

	var resp workflow.SettingsResponse
	update(c, id, workflow.UpdateSettings, workflow.SettingsUpdate{Values: map[string]any{*key: v}}, &resp)
	printJSON(resp.Settings)
}

func cmdModel(args []string) {
	fs := flag.NewFlagSet("model", flag.ExitOnError)
	cf := addConnFlags(fs, true)
	name := fs.String("name", "", "Model name (required)")
	provider := fs.String("provider", "", "Model provider (default: keep current)")
	fs.Parse(args)

	id := cf.id()
	if *name == "" {
		log.Fatal("Error: --name is required")
	}
	c := cf.dial()
	defer c.Close()

	var resp workflow.UpdateModelResponse
	update(c, id, workflow.UpdateModel, workflow.UpdateModelRequest{Provider: *provider, Model: *name}, &resp)
	fmt.Printf("%s/%s\n", resp.Model.Provider, resp.Model.Model)
}

func cmdModels(args []string) {
	fs := flag.NewFlagSet("models", flag.ExitOnError)
	cf := addConnFlags(fs, true)
	fs.Parse(args)

	id := cf.id()
	c := cf.dial()
	defer c.Close()

	var resp workflow.ListModelsResponse
	update(c, id, workflow.UpdateListModels, nil, &resp)
	for _, m := range resp.Models {
		marker := "  "
		if m == resp.Current {
			marker = "* "
		}
		fmt.Println(marker + m)
	}
}

func cmdStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	cf := addConnFlags(fs, true)
	fs.Parse(args)

	id := cf.id()
	c := cf.dial()
	defer c.Close()

	var st workflow.Status
	query(c, id, workflow.QueryGetStatus, &st)
	printJSON(st)
}

func cmdHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	cf := addConnFlags(fs, true)
	all := fs.Bool("all", false, "Include tool calls and retry diagnostics")
	raw := fs.Bool("json", false, "Print raw JSON messages")
	fs.Parse(args)

	id := cf.id()
	c := cf.dial()
	defer c.Close()

	var msgs []models.Message
	query(c, id, workflow.QueryGetMessages, &msgs)
	visible := history.Visible(msgs, *all)
	if *raw {
		printJSON(visible)
		return
	}
	for _, m := range visible {
		fmt.Printf("[%s] %s\n", m.Role, m.Content)
	}
}

func cmdClear(args []string) {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	cf := addConnFlags(fs, true)
	fs.Parse(args)

	id := cf.id()
	c := cf.dial()
	defer c.Close()

	var ack workflow.Ack
	update(c, id, workflow.UpdateClearHistory, workflow.ClearHistoryRequest{}, &ack)
	log.Printf("History cleared: %v", ack.Acknowledged)
}

func cmdEnd(args []string) {
	fs := flag.NewFlagSet("end", flag.ExitOnError)
	cf := addConnFlags(fs, true)
	fs.Parse(args)

	id := cf.id()
	c := cf.dial()
	defer c.Close()

	var ack workflow.Ack
	update(c, id, workflow.UpdateShutdown, workflow.ShutdownRequest{}, &ack)
	log.Printf("Shutdown acknowledged: %v", ack.Acknowledged)
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal: %v", err)
	}
	fmt.Println(string(data))
}
