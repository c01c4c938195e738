package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/answerd/answerd/internal/agent"
	"github.com/answerd/answerd/internal/api"
	"github.com/answerd/answerd/internal/config"
	"github.com/answerd/answerd/internal/corpus"
	"github.com/answerd/answerd/internal/index"
	"github.com/answerd/answerd/internal/llm"
	"github.com/answerd/answerd/internal/ollama"
	"github.com/answerd/answerd/internal/tools"
	"github.com/answerd/answerd/internal/websearch"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the answerd server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running answerd server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show answerd system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(indexDir string) string {
	return filepath.Join(indexDir, "answerd.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func logLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "answerd version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.Log.Level)})))

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Index.Dir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("answerd is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("answerd is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Check local embedding engine readiness.
	ollamaClient := ollama.New(cfg.Ollama.BaseURL)
	if !ollamaClient.IsRunning(ctx) {
		return fmt.Errorf("ollama is not reachable at %s (is it running?)", cfg.Ollama.BaseURL)
	}
	if !ollamaClient.HasModel(ctx, cfg.Ollama.EmbedModel) {
		return fmt.Errorf("embedding model %q is not available, run: ollama pull %s", cfg.Ollama.EmbedModel, cfg.Ollama.EmbedModel)
	}
	slog.Info("ollama ready", "base_url", cfg.Ollama.BaseURL, "embed_model", cfg.Ollama.EmbedModel)

	// Load the document corpus and open (or build) the vector index.
	// Any failure here is fatal: the server must not answer questions
	// against a missing or partial index.
	docs, err := corpus.LoadDir(cfg.Corpus.DataDir)
	if err != nil {
		return fmt.Errorf("loading documents from %s: %w", cfg.Corpus.DataDir, err)
	}
	chunks := corpus.Split(docs, cfg.Corpus.ChunkSize, cfg.Corpus.ChunkOverlap)

	embedder := ollama.NewEmbedder(ollamaClient, cfg.Ollama.EmbedModel)
	store, err := index.Open(ctx, chunks, embedder, cfg.Index.Dir)
	if err != nil {
		if errors.Is(err, index.ErrEmptyCorpus) {
			return fmt.Errorf("no documents found in %s and no existing index in %s: add .txt, .md, or .pdf files and restart", cfg.Corpus.DataDir, cfg.Index.Dir)
		}
		return fmt.Errorf("opening index: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing index: %v\n", err)
		}
	}()
	slog.Info("index ready", "chunks", store.Count(), "dir", cfg.Index.Dir)

	// Assemble the tool registry.
	toolList := []tools.Tool{tools.NewRetrieval(store, cfg.Retrieval.TopK)}
	if cfg.WebSearch.APIKey != "" {
		webClient := websearch.NewClient(cfg.WebSearch.APIKey, cfg.WebSearch.MaxResults)
		toolList = append(toolList, tools.NewWebSearch(webClient))
	} else {
		slog.Warn("web search disabled: no API key configured")
	}
	registry := tools.NewRegistry(toolList...)

	// Build the reasoning client and the agent loop.
	var reasoner *llm.Client
	if cfg.LLM.BaseURL != "" {
		reasoner = llm.NewClientWithBaseURL(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL)
	} else {
		reasoner = llm.NewClient(cfg.LLM.APIKey, cfg.LLM.Model)
	}
	ag := agent.New(reasoner, registry, cfg.Agent.MaxRounds, cfg.Agent.ToolTimeout)

	handler := api.NewHandler(ag, store.Count())

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Build and start MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(registry)
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "answerd listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Index.Dir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("answerd is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop answerd (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to answerd (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	// Check server health.
	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
			var health struct {
				Chunks int `json:"chunks"`
			}
			if json.NewDecoder(resp.Body).Decode(&health) == nil {
				printStatus("Index", "%d chunks", health.Chunks)
			}
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
		resp.Body.Close()
	}

	// Check Ollama.
	ollamaResp, err := client.Get(cfg.Ollama.BaseURL + "/api/version")
	if err != nil {
		printStatus("Ollama", "not running")
	} else {
		ollamaResp.Body.Close()
		printStatus("Ollama", "running at %s", cfg.Ollama.BaseURL)
	}

	printStatus("Embed model", "%s", cfg.Ollama.EmbedModel)
	printStatus("Reasoning model", "%s", cfg.LLM.Model)
	if cfg.WebSearch.APIKey != "" {
		printStatus("Web search", "enabled (max %d results)", cfg.WebSearch.MaxResults)
	} else {
		printStatus("Web search", "disabled")
	}
	printStatus("Data dir", "%s", cfg.Corpus.DataDir)
	printStatus("Index dir", "%s", cfg.Index.Dir)
	return nil
}
