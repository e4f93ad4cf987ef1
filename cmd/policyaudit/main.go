// policyaudit batch-evaluates recorded agent sessions against configured
// policies and reports compliance status. It has no HTTP surface: the
// engine runs as a CLI invoked on a schedule (cron, CI job) or ad hoc.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/tarsy/pkg/config"
	"github.com/codeready-toolchain/tarsy/pkg/policy/evaluator"
	"github.com/codeready-toolchain/tarsy/pkg/policy/job"
	"github.com/codeready-toolchain/tarsy/pkg/policy/pgstore"
	"github.com/codeready-toolchain/tarsy/pkg/policy/status"
	"github.com/codeready-toolchain/tarsy/pkg/session"
	"github.com/codeready-toolchain/tarsy/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	sessionDir := flag.String("session-dir",
		getEnv("SESSION_DIR", "./deploy/sessions"),
		"Path to the directory of recorded session JSON files")
	agentID := flag.String("agent-id", "", "Agent whose sessions to evaluate or summarize (required)")
	command := flag.String("command", "status", "submit|status")
	refreshVariants := flag.Bool("refresh-variants", false, "Recompute agent variants after this batch")
	flag.Parse()

	if *agentID == "" {
		fmt.Fprintln(os.Stderr, "-agent-id is required")
		os.Exit(2)
	}

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	} else {
		slog.Info("loaded environment file", "path", envPath)
	}

	slog.Info("starting policyaudit", "version", version.Full(), "config_dir", *configDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	store, err := pgstore.NewClient(ctx, cfg.Database.ToPGStoreConfig())
	if err != nil {
		slog.Error("failed to connect to policy store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	sessions := session.New(*sessionDir)

	multiProvider, err := cfg.LLMProviderRegistry.BuildMultiProvider()
	if err != nil {
		slog.Error("failed to build LLM provider set", "error", err)
		os.Exit(1)
	}
	eval := evaluator.New(multiProvider)

	controller := job.New(store.Jobs, sessions, store.Policies, store.Evaluations, store.Variants, eval).
		WithLimits(cfg.Queue.MaxConcurrentJobs, cfg.Queue.JobTimeout)

	switch *command {
	case "submit":
		runSubmit(ctx, controller, sessions, *agentID, *refreshVariants)
	case "status":
		runStatus(ctx, store, sessions, *agentID)
	default:
		fmt.Fprintf(os.Stderr, "unknown -command %q (want submit|status)\n", *command)
		os.Exit(2)
	}
}

// runSubmit evaluates every recorded session for agentID against every
// policy configured for it, then waits for the batch to finish so the CLI
// exits only once the job is done (there is no long-running process for a
// caller to poll).
func runSubmit(ctx context.Context, controller *job.Controller, sessions *session.Store, agentID string, refreshVariants bool) {
	sessionIDs, err := sessions.List(ctx, agentID)
	if err != nil {
		slog.Error("failed to list sessions", "agent_id", agentID, "error", err)
		os.Exit(1)
	}
	if len(sessionIDs) == 0 {
		slog.Warn("no sessions found, nothing to submit", "agent_id", agentID)
		return
	}

	submitted, err := controller.Submit(ctx, agentID, sessionIDs, nil, refreshVariants)
	if err != nil {
		slog.Error("failed to submit batch job", "agent_id", agentID, "error", err)
		os.Exit(1)
	}
	slog.Info("submitted batch job", "job_id", submitted.ID, "agent_id", agentID, "total_items", submitted.TotalItems)

	controller.Wait()
	slog.Info("batch job finished", "job_id", submitted.ID)
}

// runStatus prints the current compliance summary for agentID as JSON.
func runStatus(ctx context.Context, store *pgstore.Client, sessions *session.Store, agentID string) {
	aggregator := status.New(sessions, store.Policies, store.Evaluations, store.SessionStatuses)
	summary, err := aggregator.Summarize(ctx, agentID)
	if err != nil {
		slog.Error("failed to summarize compliance", "agent_id", agentID, "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		slog.Error("failed to encode summary", "error", err)
		os.Exit(1)
	}
}
