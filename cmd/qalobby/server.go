package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
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

	"github.com/kalambet/qalobby/internal/api"
	"github.com/kalambet/qalobby/internal/config"
	"github.com/kalambet/qalobby/internal/engine"
	"github.com/kalambet/qalobby/internal/history"
	"github.com/kalambet/qalobby/internal/prompts"
	"github.com/kalambet/qalobby/internal/settings"
	"github.com/kalambet/qalobby/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the qalobby server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		pull, _ := cmd.Flags().GetBool("pull")
		return runServer(pull)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running qalobby server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show qalobby system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve qalobby tools over MCP (stdio)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP()
	},
}

func init() {
	serveCmd.Flags().Bool("pull", false, "pull the default Ollama model if it is missing")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "qalobby.pid")
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

func setupLogging(level string) {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

// backend holds the long-lived pieces shared by serve and mcp.
type backend struct {
	deps    api.Deps
	history *history.Store
}

func (b *backend) Close() {
	if err := b.history.Close(); err != nil {
		slog.Warn("closing history", "error", err)
	}
}

func openBackend(cfg config.Config) (*backend, error) {
	store := storage.New(cfg.Storage.DataDir)

	hist, err := history.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}

	gateway := engine.NewGateway(engine.Options{
		DefaultProvider: cfg.LLM.Provider,
		OllamaBaseURL:   cfg.Ollama.BaseURL,
		OpenAIAPIKey:    cfg.OpenAI.APIKey,
		OpenAIBaseURL:   cfg.OpenAI.BaseURL,
		Timeout:         cfg.LLM.TimeoutDuration(),
	})

	return &backend{
		deps: api.Deps{
			Store:     store,
			Prompts:   prompts.NewStore(store.Paths().PromptsDir(), cfg.Storage.PromptsDir),
			Generator: gateway,
			Journal:   hist,
			Settings: settings.NewManager(hist, settings.LLM{
				Provider: cfg.LLM.Provider,
				Model:    cfg.LLM.DefaultModel,
			}),
		},
		history: hist,
	}, nil
}

// checkProviders only warns; the server starts regardless.
func checkProviders(ctx context.Context, cfg config.Config, pull bool) {
	if cfg.LLM.Provider == string(engine.ProviderOpenAI) && cfg.OpenAI.APIKey == "" {
		printWarning("%s", config.MissingKeyHint())
	}
	if cfg.LLM.Provider != string(engine.ProviderOllama) && !pull {
		return
	}
	local := engine.NewOllamaEngine(cfg.Ollama.BaseURL, cfg.LLM.TimeoutDuration())
	if err := engine.EnsureReady(ctx, local, cfg.LLM.DefaultModel, pull, os.Stderr); err != nil {
		printWarning("%v", err)
	}
}

func runServer(pull bool) error {
	fmt.Fprintf(os.Stderr, "qalobby version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	pidPath := pidFilePath(cfg.Storage.DataDir)
	if healthy(fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)) {
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checkProviders(ctx, cfg, pull)

	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewHandler(b.deps),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("qalobby listening",
			"addr", addr,
			"provider", cfg.LLM.Provider,
			"data_dir", cfg.Storage.DataDir,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	stdio := server.NewStdioServer(api.NewMCPServer(b.deps, version))
	slog.Info("MCP server started (stdio transport)")
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP server: %w", err)
	}
	return nil
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		return fmt.Errorf("qalobby is not running (no PID file)")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("could not find process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		removePIDFile(pidPath)
		return fmt.Errorf("could not stop qalobby (PID %d): %w", pid, err)
	}

	printSuccess("Sent stop signal to qalobby (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	running := healthy(serverURL)
	if running {
		printStatus("Server", "running on port %d", cfg.Server.Port)
	} else {
		printStatus("Server", "stopped")
	}

	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	local := engine.NewOllamaEngine(cfg.Ollama.BaseURL, 0)
	if local.IsRunning(checkCtx) {
		printStatus("Ollama", "running at %s", local.BaseURL())
	} else {
		printStatus("Ollama", "not running at %s", local.BaseURL())
	}

	remote := engine.NewOpenAIEngine(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, 0)
	if remote.HasAPIKey() {
		printStatus("OpenAI", "key set, %s", remote.BaseURL())
	} else {
		printStatus("OpenAI", "key not set, %s", remote.BaseURL())
	}
	printStatus("Default provider", "%s", cfg.LLM.Provider)
	printStatus("Default model", "%s", cfg.LLM.DefaultModel)

	if running {
		client := &apiClient{baseURL: serverURL, httpClient: &http.Client{Timeout: 5 * time.Second}}
		var projects struct {
			Projects []storage.Project `json:"projects"`
		}
		if client.call(ctx, http.MethodGet, "/projects", nil, &projects) == nil {
			printStatus("Projects", "%d", len(projects.Projects))
		}
		var remembered settings.LLM
		if client.call(ctx, http.MethodGet, "/settings", nil, &remembered) == nil {
			printStatus("Remembered", "%s / %s", remembered.Provider, remembered.Model)
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	printStatus("Prompts dir", "%s", cfg.Storage.PromptsDir)
	printStatus("Config file", "%s", config.ConfigFilePath())
	return nil
}
