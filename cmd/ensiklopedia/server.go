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

	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/kalambet/ensiklopedia/internal/api"
	"github.com/kalambet/ensiklopedia/internal/backend"
	"github.com/kalambet/ensiklopedia/internal/config"
	"github.com/kalambet/ensiklopedia/internal/directory"
	"github.com/kalambet/ensiklopedia/internal/gemini"
	"github.com/kalambet/ensiklopedia/internal/history"
	"github.com/kalambet/ensiklopedia/internal/imagegen"
	"github.com/kalambet/ensiklopedia/internal/prompts"
	"github.com/kalambet/ensiklopedia/internal/search"
	"github.com/kalambet/ensiklopedia/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the ensiklopedia server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running ensiklopedia server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ensiklopedia system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "ensiklopedia.pid")
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

func runServer() error {
	fmt.Fprintf(os.Stderr, "ensiklopedia version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireGeminiKey(); err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	kc := config.NewKeychain()
	apiToken, err := config.GetAPIToken(kc)
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Refuse to start twice on the same port.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("ensiklopedia is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("ensiklopedia is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	session := config.NewSessionStore(kc)
	backendClient := backend.New(cfg.Backend.BaseURL, session, nil)
	backendClient.SetUnauthorizedHandler(func() {
		slog.Warn("backend session expired; log in again to sync history")
	})

	completer, err := gemini.New(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		return fmt.Errorf("creating gemini client: %w", err)
	}
	images := imagegen.New(cfg.Image.BaseURL, imagegen.Options{
		Width:  cfg.Image.Width,
		Height: cfg.Image.Height,
		Model:  cfg.Image.Model,
	})
	promptMgr := prompts.NewManager(store)
	searcher := search.New(completer, images, promptMgr)

	historySvc := history.NewService(backendClient, store, searcher)
	catalog := directory.NewCatalog(backendClient, cfg.Directory.CacheTTL)

	var limiter *rate.Limiter
	if cfg.Search.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Search.RateLimit), 1)
	}

	appHandler := api.NewAppHandler(api.AppDeps{
		Store:     store,
		Searcher:  searcher,
		History:   historySvc,
		Backend:   backendClient,
		Directory: catalog,
		Prompts:   promptMgr,
		Limiter:   limiter,
		Token:     apiToken,
	})

	topRouter := chi.NewRouter()
	topRouter.Get("/health", api.HandleHealth)
	topRouter.Mount("/", appHandler)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: topRouter,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	// Drop cached answers whose history entries were deleted elsewhere.
	reconciler := history.NewReconciler(backendClient, store, session, cfg.History.ReconcileInterval)
	go reconciler.Run(ctx)

	if cfg.Server.MCPStdio {
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Searcher:  searcher,
			History:   historySvc,
			Session:   backendClient,
			Directory: catalog,
			Version:   version,
		})
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "ensiklopedia listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("ensiklopedia is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop ensiklopedia (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to ensiklopedia (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	hc := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := hc.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	if backendResp, err := hc.Get(cfg.Backend.BaseURL); err != nil {
		printStatus("Backend", "unreachable at %s", cfg.Backend.BaseURL)
	} else {
		backendResp.Body.Close()
		printStatus("Backend", "reachable at %s", cfg.Backend.BaseURL)
	}

	if cfg.RequireGeminiKey() != nil {
		printStatus("Gemini", "API key missing")
	} else {
		printStatus("Gemini", "%s", cfg.Gemini.Model)
	}
	printStatus("Images", "%s (%s)", cfg.Image.BaseURL, cfg.Image.Model)

	session := config.NewSessionStore(config.NewKeychain())
	if tok, _ := session.Token(); tok == "" {
		printStatus("Session", "logged out")
	} else {
		printStatus("Session", "logged in")
		if running {
			if c, err := newAPIClient(); err == nil {
				if n, err := countHistory(ctx, c, 100); err == nil {
					printStatus("History", "%s", countLabel(n, 100))
				}
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func countHistory(ctx context.Context, c *apiClient, limit int) (int, error) {
	resp, err := c.get(ctx, fmt.Sprintf("/history?limit=%d", limit))
	if err != nil {
		return 0, err
	}
	var items []history.ListItem
	if err := decodeJSON(resp, &items); err != nil {
		return 0, err
	}
	return len(items), nil
}

func countLabel(count, limit int) string {
	if count >= limit {
		return fmt.Sprintf("%d+", count)
	}
	return fmt.Sprintf("%d", count)
}
