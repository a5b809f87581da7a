package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/jmoralo/newsbrief/internal/app"
	"github.com/jmoralo/newsbrief/internal/config"
	"github.com/jmoralo/newsbrief/internal/logger"
	"github.com/jmoralo/newsbrief/internal/metrics"
)

func main() {
	// Local development convenience, missing file is fine.
	_ = godotenv.Load()

	configPath := flag.String("config", "configs/config.yaml", "path to YAML config file")
	label := flag.String("label", "", "override Gmail label to fetch")
	maxMessages := flag.Int64("max-messages", 0, "override max messages per run")
	stateFile := flag.String("state-file", "", "override state file path")
	titlePrefix := flag.String("title-prefix", "", "override report document title prefix")
	dryRun := flag.Bool("dry-run", false, "build the report without delivering it")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug)

	if cfg.MonitorPort > 0 {
		go startMonitoringServer(cfg.MonitorPort)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	result, err := application.Run(ctx, app.Options{
		Label:       *label,
		MaxMessages: *maxMessages,
		StateFile:   *stateFile,
		TitlePrefix: *titlePrefix,
		DryRun:      *dryRun,
	})
	if err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}

	if result.DocURL != "" {
		fmt.Println(result.DocURL)
	}
	logger.Info("done", "run_id", result.RunID, "messages", result.Messages, "items", result.Items)
}

func startMonitoringServer(port int) {
	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/metrics", metricsHandler)

	addr := fmt.Sprintf(":%d", port)
	logger.Info("starting monitoring server", "addr", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		logger.Error("monitoring server error", "error", err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	status := "ok"
	if !stats["is_healthy"].(bool) {
		status = "error"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	response := map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func metricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(metrics.Global.GetStats())
}
