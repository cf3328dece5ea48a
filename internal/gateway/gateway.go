// ABOUTME: Gateway orchestrator that wires both protocol adapters to the bot
// ABOUTME: Manages the HTTP server, the push agent connection, store, and health endpoints lifecycle

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/2389/botbridge/internal/adapter"
	"github.com/2389/botbridge/internal/agent"
	"github.com/2389/botbridge/internal/auth"
	"github.com/2389/botbridge/internal/bot"
	"github.com/2389/botbridge/internal/config"
	"github.com/2389/botbridge/internal/metrics"
	"github.com/2389/botbridge/internal/push"
	"github.com/2389/botbridge/internal/registry"
	"github.com/2389/botbridge/internal/store"
)

// ErrPushConnectionEnded is returned by Run when the push connection closes. There is no
// reconnect; the process exits and its supervisor restarts it.
var ErrPushConnectionEnded = errors.New("push connection ended")

// Gateway orchestrates the botbridge server components.
// It serves the turn protocol over HTTP and holds the push protocol's agent connection.
type Gateway struct {
	config      *config.Config
	store       store.Store
	metrics     *metrics.Collectors
	senders     *adapter.Set
	pipeline    *adapter.Pipeline
	bot         *bot.Bot
	turn        *adapter.TurnAdapter
	push        *adapter.PushAdapter
	transport   push.Transport
	registry    *registry.Registry
	agent       *agent.Agent
	mux         *http.ServeMux
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger
}

// Option customizes a Gateway at construction.
type Option func(*options)

type options struct {
	transport push.Transport
	store     store.Store
}

// WithPushTransport replaces the WebSocket transport of the push protocol.
func WithPushTransport(t push.Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithStore replaces the SQLite store built from database.path.
func WithStore(s store.Store) Option {
	return func(o *options) { o.store = s }
}

// initStore creates and returns a store based on config and environment.
func initStore(cfg *config.Config) (store.Store, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("BOTBRIDGE_DB_PATH"); envPath != "" {
		dbPath = envPath
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// New creates a Gateway from cfg. Nothing connects or listens until Run.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := o.store
	if s == nil {
		var err error
		if s, err = initStore(cfg); err != nil {
			return nil, err
		}
	}

	gw := &Gateway{
		config:  cfg,
		store:   s,
		metrics: metrics.New(),
		senders: adapter.NewSet(),
		logger:  logger.With("component", "gateway"),
	}

	// The bot needs the push adapter for transfers and the push adapter needs the bot's
	// handler, so the handler resolves the bot at call time.
	handler := func(ctx context.Context, tc *adapter.TurnContext) error {
		return gw.bot.OnTurn(ctx, tc)
	}
	gw.pipeline = adapter.NewPipeline(adapter.Logging(logger))

	var transferer bot.Transferer
	if cfg.Push.Enabled {
		gw.transport = o.transport
		if gw.transport == nil {
			gw.transport = push.NewWSTransport(push.WSConfig{
				URL:            cfg.Push.URL,
				AccountID:      cfg.Push.AccountID,
				Token:          cfg.Push.Token,
				RequestTimeout: cfg.Push.RequestTimeout,
			}, logger)
		}
		client := push.NewClient(gw.transport, cfg.Push.AgentID)
		gw.push = adapter.NewPushAdapter(client, gw.senders, gw.pipeline, handler, gw.metrics, logger)
		gw.registry = registry.New(registry.Config{
			AgentID:      cfg.Push.AgentID,
			Ordering:     registry.Ordering(cfg.Push.Ordering),
			Greeting:     cfg.Push.GreetingEnabled(),
			DeliveredTTL: cfg.Push.DedupeTTL,
		}, client, gw.push.Receive, gw.metrics, logger)
		gw.agent = agent.New(gw.transport, client, gw.registry, agent.Config{
			HeartbeatInterval: cfg.Push.HeartbeatInterval,
		}, gw.metrics, logger)
		transferer = gw.push
	}

	gw.bot = bot.New(s, transferer, logger)
	gw.pipeline.OnTurnError(gw.bot.OnTurnError)

	gw.mux = http.NewServeMux()
	gw.mux.HandleFunc("GET /health", gw.handleHealth)
	gw.mux.HandleFunc("GET /ready", gw.handleReady)
	if cfg.Metrics.Enabled {
		gw.mux.Handle("GET "+cfg.Metrics.Path, gw.metrics.Handler())
	}
	if cfg.Turn.Enabled {
		gw.turn = adapter.NewTurnAdapter(gw.senders, gw.pipeline, handler, gw.metrics, logger)
		var turnHandler http.Handler = gw.turn
		if cfg.Auth.JWTSecret != "" {
			turnHandler = auth.RequireBearer(auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret)), logger)(turnHandler)
		} else {
			gw.logger.Warn("auth.jwt_secret is empty, turn endpoint accepts unauthenticated requests")
		}
		gw.mux.Handle(cfg.Turn.Path, turnHandler)
	}

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           gw.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// Handler returns the HTTP routes of the gateway.
func (g *Gateway) Handler() http.Handler { return g.mux }

// Metrics returns the gateway's collectors.
func (g *Gateway) Metrics() *metrics.Collectors { return g.metrics }

// setupListener creates the HTTP listener based on configuration (Tailscale or TCP).
func (g *Gateway) setupListener(ctx context.Context) (net.Listener, error) {
	if g.config.Tailscale.Enabled {
		if g.config.Server.HTTPAddr != "" {
			g.logger.Warn("server.http_addr is ignored when tailscale is enabled", "http_addr", g.config.Server.HTTPAddr)
		}
		return g.setupTailscaleListener(ctx)
	}

	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	return ln, nil
}

// startServers starts the HTTP server and the push agent in goroutines, returning the error channel.
func (g *Gateway) startServers(ctx context.Context, httpLn net.Listener) chan error {
	errCh := make(chan error, 2)

	go func() {
		g.logger.Info("HTTP server listening", "addr", httpLn.Addr().String())
		if err := g.httpServer.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	if g.agent != nil {
		go func() {
			err := g.agent.Run(ctx)
			switch {
			case ctx.Err() != nil:
			case err != nil:
				errCh <- fmt.Errorf("push agent: %w", err)
			default:
				errCh <- ErrPushConnectionEnded
			}
		}()
	}

	return errCh
}

// waitForShutdownSignal waits for context cancellation or server error.
func (g *Gateway) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		g.logger.Error("server error", "error", err)
		g.drainErrors(errCh)
		return err
	}
}

// drainErrors drains any remaining errors from the channel.
func (g *Gateway) drainErrors(errCh chan error) {
	select {
	case additionalErr := <-errCh:
		g.logger.Error("additional server error", "error", additionalErr)
	default:
	}
}

// Run starts the HTTP server and the push agent and blocks until the context is canceled.
// Returns nil on graceful shutdown (context canceled), or an error if a server fails or the
// push connection ends.
func (g *Gateway) Run(ctx context.Context) error {
	httpListener, err := g.setupListener(ctx)
	if err != nil {
		return err
	}

	g.logger.Info("starting botbridge",
		"turn", g.config.Turn.Enabled,
		"push", g.config.Push.Enabled,
		"turn_path", g.config.Turn.Path,
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := g.startServers(runCtx, httpListener)
	serverErr := g.waitForShutdownSignal(ctx, errCh)
	cancel()

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// resolveTailscaleStateDir returns the state directory, using default if not configured.
func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state (set tailscale.state_dir explicitly): %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "botbridge", "tailscale"), nil
}

// resolveTailscaleAuthKey returns the auth key from config or environment.
func resolveTailscaleAuthKey(configured string) (string, error) {
	authKey := configured
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}
	if authKey == "" {
		return "", errors.New("tailscale auth key required: set auth_key in config or TS_AUTHKEY environment variable")
	}
	return authKey, nil
}

// setupTailscaleListener creates a tsnet server and returns the HTTP listener on its port 80.
func (g *Gateway) setupTailscaleListener(ctx context.Context) (net.Listener, error) {
	tsCfg := g.config.Tailscale

	stateDir, err := resolveTailscaleStateDir(tsCfg.StateDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	authKey, err := resolveTailscaleAuthKey(tsCfg.AuthKey)
	if err != nil {
		return nil, err
	}

	g.tsnetServer = &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   authKey,
	}

	g.logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	status, err := g.tsnetServer.Up(ctx)
	if err != nil {
		_ = g.tsnetServer.Close()
		return nil, fmt.Errorf("starting tailscale: %w", err)
	}
	g.logTailscaleStatus(tsCfg.Hostname, status)

	ln, err := g.tsnetServer.Listen("tcp", ":80")
	if err != nil {
		_ = g.tsnetServer.Close()
		return nil, fmt.Errorf("listening on tailscale HTTP port: %w", err)
	}
	return ln, nil
}

// logTailscaleStatus logs info about the tailscale node status.
func (g *Gateway) logTailscaleStatus(hostname string, status *ipnstate.Status) {
	var tsAddr, dnsName string
	if len(status.TailscaleIPs) > 0 {
		tsAddr = status.TailscaleIPs[0].String()
	} else {
		g.logger.Warn("tailscale node has no IP addresses assigned")
	}
	if status.Self != nil {
		dnsName = status.Self.DNSName
	}
	g.logger.Info("tailscale node ready", "hostname", hostname, "tailscale_ip", tsAddr, "dns_name", dnsName)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown gracefully stops the HTTP server and the push connection and releases resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))

	if g.agent != nil {
		errs = appendCloseError(errs, "push close", g.agent.Close())
	}
	if g.registry != nil {
		g.registry.Close()
	}
	if g.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale shutdown", g.tsnetServer.Close())
	}
	errs = appendCloseError(errs, "store close", g.store.Close())

	return errors.Join(errs...)
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK when the store answers and every enabled protocol is live.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := g.store.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprintf(w, "store unavailable: %v", err)
		return
	}
	if g.agent != nil {
		if state := g.agent.State(); state != agent.StateConnected {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprintf(w, "push connection %s", state)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
