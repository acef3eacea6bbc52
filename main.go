// Command cubeclash starts the CubeClash game server.
//
// It supports three commands:
//  1. "serve" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "version" – prints the version
//
// Settings come from cubeclash.yaml, CUBECLASH_* environment variables and
// flags, in increasing priority. Optional ngrok tunneling gives easy external
// access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/cubeclash/api"
	"github.com/wricardo/cubeclash/game/config"
	"github.com/wricardo/cubeclash/game/engine"
	"github.com/wricardo/cubeclash/game/service"
	"github.com/wricardo/cubeclash/game/session"
	"github.com/wricardo/cubeclash/transport/mcp"
	"github.com/wricardo/cubeclash/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "CubeClash Server"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: error loading .env file: %v\n", err)
	}

	app := newApp()
	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", app.Name, err)
		os.Exit(1)
	}
}

// newApp builds the command tree
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "cubeclash",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "settings", Usage: "settings file (default ./cubeclash.yaml when present)"},
			&cli.StringFlag{Name: "addr", Usage: "HTTP listen address"},
			&cli.StringFlag{Name: "config-dir", Usage: "directory containing rule sets", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.StringFlag{Name: "store", Usage: "session store: file, sqlite or memory"},
			&cli.StringFlag{Name: "sessions-dir", Usage: "directory for the file store"},
			&cli.BoolFlag{Name: "compress", Usage: "zstd-compress snapshot files"},
			&cli.StringFlag{Name: "sqlite-path", Usage: "database file for the sqlite store"},
			&cli.DurationFlag{Name: "session-ttl", Usage: "evict sessions idle for longer than this"},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
			&cli.StringFlag{Name: "api-url", Usage: "external API probed by the mcp command"},
			&cli.BoolFlag{Name: "ngrok", Usage: "enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Action: runServe,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run HTTP server with API, WebSocket, and MCP endpoint",
				Action: runServe,
			},
			{
				Name:   "mcp",
				Usage:  "run MCP stdio server, with an internal HTTP server when no external one answers",
				Action: runMCP,
			},
			{
				Name:  "version",
				Usage: "print the version",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Fprintf(cmd.Root().Writer, "%s v%s\n", AppName, Version)
					return nil
				},
			},
		},
	}
}

// newLogger builds a production logger, or a development one with debug on
func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// openStore creates the snapshot store selected by the settings
func openStore(s Settings) (session.SnapshotStore, error) {
	switch s.Store {
	case StoreSQLite:
		return session.OpenSQLiteStore(s.SQLitePath)
	case StoreMemory:
		return nil, nil
	default:
		return session.NewFileStore(s.SessionsDir, s.Compress)
	}
}

// services bundles what the transports need
type services struct {
	game     service.GameService
	sessions *session.Manager
	store    session.SnapshotStore
	hub      *websocket.Hub
}

// Close flushes every session and releases the store
func (svc *services) Close(logger *zap.Logger) {
	if err := svc.sessions.SaveAllSessions(); err != nil {
		logger.Warn("final save incomplete", zap.Error(err))
	}
	if svc.store != nil {
		if err := svc.store.Close(); err != nil {
			logger.Warn("store close failed", zap.Error(err))
		}
	}
}

// initializeServices wires the config manager, store, session manager, hub
// and game service
func initializeServices(s Settings, logger *zap.Logger) (*services, error) {
	configManager, err := config.NewManager(s.ConfigDir, config.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	store, err := openStore(s)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", s.Store, err)
	}

	hub := websocket.NewHub(logger)
	opts := []session.Option{
		session.WithLogger(logger),
		session.WithEngineOptions(func(id string) []engine.Option {
			return []engine.Option{engine.WithHighlighter(websocket.NewHighlighter(hub, id))}
		}),
	}
	if store != nil {
		opts = append(opts, session.WithStore(store, configManager))
	}
	sessionManager := session.NewManager(opts...)

	if err := sessionManager.LoadPersistedSessions(); err != nil {
		logger.Warn("failed to load persisted sessions", zap.Error(err))
	}

	gameService := service.NewGameService(sessionManager, configManager,
		service.WithBroadcaster(hub),
		service.WithLogger(logger),
	)
	return &services{game: gameService, sessions: sessionManager, store: store, hub: hub}, nil
}

// setup loads settings and builds the logger and services
func setup(cmd *cli.Command) (Settings, *zap.Logger, *services, error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return Settings{}, nil, nil, err
	}
	logger, err := newLogger(s.Debug)
	if err != nil {
		return Settings{}, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	svc, err := initializeServices(s, logger)
	if err != nil {
		return Settings{}, nil, nil, err
	}
	return s, logger, svc, nil
}

// newMCPHandler serves JSON-RPC MCP messages over plain HTTP POST
func newMCPHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// newRouter mounts the REST API and the /mcp endpoint
func newRouter(svc *services, logger *zap.Logger, baseURL string) http.Handler {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", api.NewServer(svc.game, svc.hub, logger))
	mainRouter.HandleFunc("/mcp", newMCPHandler(mcp.NewClient(baseURL)))
	return mainRouter
}

// runServe starts the HTTP server with REST API, WebSocket hub and /mcp.
// If ngrok is enabled it also provisions a public tunnel.
func runServe(ctx context.Context, cmd *cli.Command) error {
	s, logger, svc, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer svc.Close(logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go svc.hub.Run(ctx)
	go sessionCleanupRoutine(ctx, svc.sessions, s.SessionTTL, logger)
	if svc.store != nil {
		go storeSyncRoutine(ctx, svc.sessions, svc.store, logger)
	}

	mainRouter := newRouter(svc, logger, "http://"+s.Addr)
	httpServer := &http.Server{
		Addr:         s.Addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("HTTP server listening",
			zap.String("version", Version),
			zap.String("addr", s.Addr),
			zap.String("api", "http://"+s.Addr+"/api"),
			zap.String("ws", "ws://"+s.Addr+"/ws?session=<session_id>"),
			zap.String("mcp", "http://"+s.Addr+"/mcp"),
			zap.String("store", s.Store))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if s.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, s.Ngrok, mainRouter, logger)
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-serveErr:
		logger.Error("HTTP server failed", zap.Error(err))
		stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn("HTTP server shutdown error", zap.Error(shutdownErr))
	}

	wg.Wait()
	logger.Info("server stopped")
	return err
}

// runNgrok serves handler through an ngrok tunnel until ctx ends
func runNgrok(ctx context.Context, s NgrokSettings, handler http.Handler, logger *zap.Logger) {
	if s.AuthToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN or CUBECLASH_NGROK_AUTHTOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if s.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(s.Domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(s.AuthToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", zap.Error(err))
		return
	}

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established",
		zap.String("url", ngrokURL),
		zap.String("api", ngrokURL+"/api"),
		zap.String("mcp", ngrokURL+"/mcp"))

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", zap.Error(err))
		}
	}()

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Warn("ngrok server error", zap.Error(err))
	}
	logger.Info("ngrok tunnel closed")
}

// sessionCleanupRoutine periodically evicts sessions idle for longer than
// ttl. A zero ttl disables eviction.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, ttl time.Duration, logger *zap.Logger) {
	if ttl == 0 {
		return
	}
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				logger.Info("cleaned up expired sessions", zap.Int("count", removed))
			}
		}
	}
}

// storeSyncRoutine drops sessions from memory once their stored record
// disappears, e.g. after the session directory was deleted by hand
func storeSyncRoutine(ctx context.Context, manager *session.Manager, store session.SnapshotStore, logger *zap.Logger) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := pruneOrphans(manager, store, logger); pruned > 0 {
				logger.Info("store sync pruned orphaned sessions", zap.Int("count", pruned))
			}
		}
	}
}

func pruneOrphans(manager *session.Manager, store session.SnapshotStore, logger *zap.Logger) int {
	pruned := 0
	for _, sess := range manager.List() {
		if store.Exists(sess.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(sess.ID); err == nil {
			pruned++
			logger.Debug("pruned session from memory", zap.String("session", sess.ID))
		}
	}
	return pruned
}

// apiAvailable reports whether an API server answers at baseURL
func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runMCP runs an MCP stdio server. It reuses an external API when one
// answers at api_url; otherwise it starts an internal HTTP API bound to a
// random loopback port.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(s.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	baseURL := s.APIURL
	if apiAvailable(ctx, baseURL) {
		logger.Info("external API server found, using it for MCP", zap.String("url", baseURL))
	} else {
		svc, err := initializeServices(s, logger)
		if err != nil {
			return err
		}
		defer svc.Close(logger)

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = "http://" + listener.Addr().String()

		hubCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go svc.hub.Run(hubCtx)

		httpServer := &http.Server{Handler: api.NewServer(svc.game, svc.hub, logger)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("internal HTTP server error", zap.Error(err))
			}
		}()
		defer httpServer.Close()
		logger.Info("internal HTTP server started for MCP stdio", zap.String("url", baseURL))
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready", zap.String("api", baseURL))
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
