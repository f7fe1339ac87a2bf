// Command goodiegrid starts the Goodie Grid server.
//
// It supports two commands:
//  1. "serve" (default) runs the HTTP server exposing the REST API, WebSocket and an /mcp HTTP endpoint
//  2. "mcp" runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, the scenario and data directories, the session
// codec, debug logging and optional ngrok tunneling during development.
// Every flag can also be set from the environment or a .env file.
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
	"syscall"
	"time"

	"github.com/inconshreveable/log15/v3"
	"github.com/joho/godotenv"
	"github.com/jpillora/backoff"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/mcp-training/goodiegrid/api"
	"github.com/wricardo/mcp-training/goodiegrid/game/config"
	"github.com/wricardo/mcp-training/goodiegrid/game/service"
	"github.com/wricardo/mcp-training/goodiegrid/game/session"
	"github.com/wricardo/mcp-training/goodiegrid/game/storage"
	"github.com/wricardo/mcp-training/goodiegrid/transport/mcp"
	"github.com/wricardo/mcp-training/goodiegrid/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Goodie Grid Server"
)

const (
	sessionMaxAge   = 24 * time.Hour
	cleanupInterval = time.Hour
	syncInterval    = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

var log = log15.New("module", "main")

// options is the resolved command line configuration
type options struct {
	host        string
	port        int
	configDir   string
	dataDir     string
	codec       string
	debug       bool
	apiURL      string
	ngrok       bool
	ngrokAuth   string
	ngrokDomain string
}

func (o options) addr() string {
	return net.JoinHostPort(o.host, fmt.Sprint(o.port))
}

func optionsFrom(cmd *cli.Command) options {
	return options{
		host:        cmd.String("host"),
		port:        cmd.Int("port"),
		configDir:   cmd.String("config-dir"),
		dataDir:     cmd.String("data-dir"),
		codec:       cmd.String("codec"),
		debug:       cmd.Bool("debug"),
		apiURL:      cmd.String("api-url"),
		ngrok:       cmd.Bool("ngrok"),
		ngrokAuth:   cmd.String("ngrok-auth"),
		ngrokDomain: cmd.String("ngrok-domain"),
	}
}

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Crit("exiting", "err", err)
		os.Exit(1)
	}
}

// newApp builds the command tree
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "goodiegrid",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing scenario files",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Value:   "data",
				Usage:   "Directory for sessions and saved games, empty keeps everything in memory",
				Sources: cli.EnvVars("DATA_DIR"),
			},
			&cli.StringFlag{
				Name:    "codec",
				Value:   "json",
				Usage:   "Session encoding: json or msgpack",
				Sources: cli.EnvVars("SESSION_CODEC"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("DEBUG"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			setupLogging(cmd.Bool("debug"))
			return ctx, nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runServer(ctx, optionsFrom(cmd))
		},
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Flags:   ngrokFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runServer(ctx, optionsFrom(cmd))
				},
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run MCP stdio server, starting an internal HTTP API when none is reachable",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-url",
						Value:   "http://localhost:8080",
						Usage:   "External API to use when it is reachable",
						Sources: cli.EnvVars("API_URL"),
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runStdioMCP(ctx, optionsFrom(cmd))
				},
			},
		},
	}
}

func ngrokFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "ngrok",
			Usage:   "Enable ngrok tunnel",
			Sources: cli.EnvVars("NGROK_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "ngrok-auth",
			Usage:   "Ngrok auth token",
			Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "ngrok-domain",
			Usage:   "Custom ngrok domain (optional)",
			Sources: cli.EnvVars("NGROK_DOMAIN"),
		},
	}
}

// setupLogging routes every logger to stderr. Stdout stays free for the MCP
// stdio transport.
func setupLogging(debug bool) {
	level := log15.LvlInfo
	if debug {
		level = log15.LvlDebug
	}
	log15.Root().SetHandler(log15.LvlFilterHandler(level, log15.StreamHandler(os.Stderr, log15.LogfmtFormat())))
}

// services holds the wired game stack
type services struct {
	game        service.GameService
	sessions    *session.Manager
	persistence session.SessionPersistence
}

// initializeServices wires the store, the session and config managers and
// the game service
func initializeServices(opts options) (*services, error) {
	configManager, err := config.NewManager(opts.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	var store storage.Store
	if opts.dataDir == "" {
		store = storage.NewMemoryStore()
	} else {
		fileStore, err := storage.NewFileStore(opts.dataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open data directory: %w", err)
		}
		store = fileStore
	}

	codec, err := session.NewCodec(opts.codec)
	if err != nil {
		return nil, err
	}

	persistence := session.NewStorePersistence(store, codec, configManager)
	sessionManager := session.NewManagerWithPersistence(persistence)
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.Warn("failed to load persisted sessions", "err", err)
	}

	return &services{
		game:        service.NewGameService(sessionManager, configManager, store),
		sessions:    sessionManager,
		persistence: persistence,
	}, nil
}

// newRouter mounts the API at the root and the MCP proxy at /mcp
func newRouter(apiServer http.Handler, mcpClient *mcp.Client) http.Handler {
	router := http.NewServeMux()
	router.Handle("/", apiServer)

	router.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
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

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
	return router
}

// runServer serves the API, WebSocket and /mcp until ctx is cancelled. With
// ngrok enabled the same router is also served through a public tunnel.
func runServer(ctx context.Context, opts options) error {
	svcs, err := initializeServices(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	addr := opts.addr()
	hub := websocket.NewHub()
	apiServer := api.NewServer(svcs.game, hub)
	mcpClient := mcp.NewClient("http://" + addr)
	router := newRouter(apiServer, mcpClient)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return hub.Run(ctx) })

	g.Go(func() error {
		log.Info("HTTP server listening", "addr", addr)
		log.Info("endpoints",
			"api", "http://"+addr+"/api",
			"ws", "ws://"+addr+"/ws?session=<session_id>",
			"mcp", "http://"+addr+"/mcp")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP server shutdown error", "err", err)
		}
		if err := svcs.sessions.SaveAllSessions(); err != nil {
			log.Warn("failed to save sessions on shutdown", "err", err)
		}
		return nil
	})

	g.Go(func() error {
		sessionMaintenance(ctx, svcs.sessions, svcs.persistence)
		return nil
	})

	if opts.ngrok {
		g.Go(func() error {
			return serveNgrok(ctx, opts, router)
		})
	}

	err = g.Wait()
	log.Info("server stopped")
	return err
}

// serveNgrok exposes router through an ngrok tunnel. A missing token or a
// failed tunnel is logged and leaves the local server running.
func serveNgrok(ctx context.Context, opts options, router http.Handler) error {
	if opts.ngrokAuth == "" {
		log.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return nil
	}

	var tunnel ngrokConfig.Tunnel
	if opts.ngrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.ngrokDomain))
		log.Info("using custom ngrok domain", "domain", opts.ngrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.ngrokAuth))
	if err != nil {
		log.Error("failed to start ngrok tunnel", "err", err)
		return nil
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Warn("failed to close ngrok tunnel", "err", err)
		}
	}()

	url := tun.URL()
	log.Info("ngrok tunnel established", "url", url, "api", url+"/api", "mcp", url+"/mcp")

	if err := http.Serve(tun, router); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Warn("ngrok server error", "err", err)
	}
	log.Info("ngrok tunnel closed")
	return nil
}

// sessionMaintenance expires idle sessions and drops sessions whose stored
// record was removed, until ctx is cancelled
func sessionMaintenance(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence) {
	cleanup := time.NewTicker(cleanupInterval)
	defer cleanup.Stop()
	prune := time.NewTicker(syncInterval)
	defer prune.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cleanup.C:
			if removed := manager.CleanupExpiredSessions(sessionMaxAge); removed > 0 {
				log.Info("cleaned up expired sessions", "count", removed)
			}
		case <-prune.C:
			if pruned := pruneOrphanedSessions(manager, persistence); pruned > 0 {
				log.Info("pruned orphaned sessions", "count", pruned)
			}
		}
	}
}

// pruneOrphanedSessions removes in-memory sessions whose stored record is gone
func pruneOrphanedSessions(manager *session.Manager, persistence session.SessionPersistence) int {
	if persistence == nil {
		return 0
	}
	pruned := 0
	for _, sess := range manager.List() {
		if persistence.Exists(sess.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(sess.ID); err == nil {
			pruned++
			log.Debug("pruned session from memory", "session", sess.ID)
		}
	}
	return pruned
}

// apiHealthy reports whether an API answers its health check
func apiHealthy(ctx context.Context, client *http.Client, baseURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// waitForAPI polls the health endpoint with exponential backoff until it
// answers or ctx ends
func waitForAPI(ctx context.Context, baseURL string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	b := &backoff.Backoff{
		Min:    20 * time.Millisecond,
		Max:    time.Second,
		Factor: 2,
	}
	for {
		if apiHealthy(ctx, client, baseURL) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("API at %s not ready after %d attempts: %w", baseURL, int(b.Attempt()), ctx.Err())
		case <-time.After(b.Duration()):
		}
	}
}

// runStdioMCP serves MCP over stdio. It reuses the API at opts.apiURL when
// it is healthy and otherwise starts an internal API on a random loopback
// port.
func runStdioMCP(ctx context.Context, opts options) error {
	probe := &http.Client{Timeout: 2 * time.Second}
	if opts.apiURL != "" && apiHealthy(ctx, probe, opts.apiURL) {
		log.Info("external API server found, using it for MCP", "url", opts.apiURL)
		return mcp.NewClient(opts.apiURL).ServeStdio()
	}

	log.Info("no external API server found, starting internal HTTP server")
	svcs, err := initializeServices(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to get available port: %w", err)
	}
	baseURL := "http://" + listener.Addr().String()

	hub := websocket.NewHub()
	httpServer := &http.Server{Handler: api.NewServer(svcs.game, hub)}

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(ctx) })
	g.Go(func() error {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("internal HTTP server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
		return svcs.sessions.SaveAllSessions()
	})

	readyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := waitForAPI(readyCtx, baseURL); err != nil {
		return err
	}

	log.Info("MCP stdio server ready (using internal HTTP server)", "url", baseURL)
	g.Go(func() error {
		// stdin closing ends the session and the internal server with it
		defer stop()
		return mcp.NewClient(baseURL).ServeStdio()
	})
	return g.Wait()
}
