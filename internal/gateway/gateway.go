// ABOUTME: Gateway orchestrator wiring store, proxy, and the HTTP server
// ABOUTME: Manages component construction, startup, and graceful shutdown

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/vilora/vilora-gateway/internal/auth"
	"github.com/vilora/vilora-gateway/internal/briefing"
	"github.com/vilora/vilora-gateway/internal/config"
	"github.com/vilora/vilora-gateway/internal/conversation"
	"github.com/vilora/vilora-gateway/internal/geo"
	"github.com/vilora/vilora-gateway/internal/proxy"
	"github.com/vilora/vilora-gateway/internal/store"
)

// Gateway orchestrates the vilora-gateway server components: the SQLite
// store with its live watcher, the service proxy, the briefing assembler,
// and the HTTP API server.
type Gateway struct {
	config     *config.Config
	store      store.Store
	watcher    *conversation.Watcher
	proxy      *proxy.Service
	briefing   *briefing.Assembler
	verifier   *auth.JWTVerifier
	httpServer *http.Server
	limiter    *ipLimiter
	logger     *slog.Logger
}

// initStore creates the backing store from config and environment.
func initStore(cfg *config.Config) (store.Store, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("VILORA_DB_PATH"); envPath != "" {
		dbPath = envPath
	}
	return store.NewSQLiteStore(dbPath)
}

// buildProviders constructs upstream clients for each configured credential.
// A missing credential leaves the provider nil, which the proxy reports as
// a failed precondition per capability.
func buildProviders(ctx context.Context, cfg *config.Config, logger *slog.Logger) (proxy.Generator, proxy.WeatherProvider, proxy.NewsProvider, error) {
	var gen proxy.Generator
	if cfg.Providers.Gemini.APIKey != "" {
		client, err := proxy.NewGeminiClient(ctx, cfg.Providers.Gemini.APIKey, cfg.Providers.Gemini.Model)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("creating generation client: %w", err)
		}
		gen = client
	} else {
		logger.Warn("no generation credential configured, Generate is unavailable")
	}

	var weather proxy.WeatherProvider
	if cfg.Providers.Weather.APIKey != "" {
		weather = proxy.NewOpenWeatherClient(cfg.Providers.Weather.APIKey)
	} else {
		logger.Warn("no weather credential configured, Weather is unavailable")
	}

	var news proxy.NewsProvider
	if cfg.Providers.News.APIKey != "" {
		news = proxy.NewNewsClient(cfg.Providers.News.APIKey)
	} else {
		logger.Warn("no news credential configured, News is unavailable")
	}

	return gen, weather, news, nil
}

// locatorFromConfig returns the server-side location source: the fixed
// configured position, or a denial when none was configured.
func locatorFromConfig(cfg *config.Config) geo.Locator {
	if cfg.Location.Configured {
		return &geo.StaticLocator{Coords: geo.Coordinates{
			Latitude:  cfg.Location.Latitude,
			Longitude: cfg.Location.Longitude,
		}}
	}
	return &geo.DeniedLocator{}
}

// New creates a Gateway instance with all components wired from config.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	s, err := initStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	watcher := conversation.NewWatcher(s, logger.With("component", "watcher"))

	gen, weather, news, err := buildProviders(ctx, cfg, logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	svc := proxy.New(gen, weather, news, logger.With("component", "proxy"))

	geocoder := geo.NewBigDataCloudClient()
	assembler := briefing.New(svc, locatorFromConfig(cfg), geocoder, logger)

	gw := &Gateway{
		config:   cfg,
		store:    s,
		watcher:  watcher,
		proxy:    svc,
		briefing: assembler,
		verifier: auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret)),
		logger:   logger.With("component", "gateway"),
	}

	if cfg.RateLimit.Enabled {
		gw.limiter = newIPLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           gw.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// routes builds the HTTP handler tree. Middleware order: rate limit, then
// auth, then the handler. Health endpoints skip both.
func (g *Gateway) routes() http.Handler {
	mux := http.NewServeMux()

	// Health endpoints - no auth required
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/health/ready", g.handleReady)

	authed := auth.Middleware(g.verifier)
	mux.Handle("/api/generate", authed(http.HandlerFunc(g.handleGenerate)))
	mux.Handle("/api/weather", authed(http.HandlerFunc(g.handleWeather)))
	mux.Handle("/api/news", authed(http.HandlerFunc(g.handleNews)))
	mux.Handle("/api/briefing", authed(http.HandlerFunc(g.handleBriefing)))
	mux.Handle("/api/conversations", authed(http.HandlerFunc(g.handleConversations)))
	mux.Handle("/api/conversations/", authed(http.HandlerFunc(g.handleConversationRoutes)))

	var handler http.Handler = mux
	if g.limiter != nil {
		handler = g.limiter.middleware(handler)
	}
	return handler
}

// Run starts the HTTP server and blocks until the context is canceled or
// the server fails, then shuts down gracefully.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", g.httpServer.Addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the run context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), g.config.Server.ShutdownTimeout)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown stops the HTTP server, detaches live subscriptions, and closes
// the store.
func (g *Gateway) Shutdown(ctx context.Context) error {
	var errs []error

	if err := g.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stopping HTTP server: %w", err))
	}
	if err := g.watcher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing watcher: %w", err))
	}
	if err := g.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	g.logger.Info("shutdown complete")
	return nil
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}
