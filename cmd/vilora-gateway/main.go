// ABOUTME: Entry point for the vilora-gateway chat server
// ABOUTME: Serves the HTTP API and offers a local terminal chat session

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/vilora/vilora-gateway/internal/auth"
	"github.com/vilora/vilora-gateway/internal/briefing"
	"github.com/vilora/vilora-gateway/internal/config"
	"github.com/vilora/vilora-gateway/internal/conversation"
	"github.com/vilora/vilora-gateway/internal/gateway"
	"github.com/vilora/vilora-gateway/internal/geo"
	"github.com/vilora/vilora-gateway/internal/proxy"
	"github.com/vilora/vilora-gateway/internal/session"
	"github.com/vilora/vilora-gateway/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
        _ _
 __   _(_) | ___  _ __ __ _
 \ \ / / | |/ _ \| '__/ _' |
  \ V /| | | (_) | | | (_| |
   \_/ |_|_|\___/|_|  \__,_|
`

// getConfigPath returns the path to the gateway config file.
// Priority: VILORA_CONFIG env var > XDG_CONFIG_HOME/vilora/gateway.yaml > ~/.config/vilora/gateway.yaml
func getConfigPath() string {
	if envPath := os.Getenv("VILORA_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "vilora", "gateway.yaml")
}

// getDataPath returns the path to the vilora data directory.
// Priority: XDG_DATA_HOME/vilora > ~/.local/share/vilora
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "vilora")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: vilora-gateway <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                    Start the gateway server")
		fmt.Println("  init                     Create a config file with a fresh JWT secret")
		fmt.Println("  token --user ID [--name NAME]  Mint a caller JWT")
		fmt.Println("  chat --user ID [--name NAME]   Interactive chat against the local store")
		fmt.Println("  health                   Check gateway health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "token":
		err = runToken()
	case "chat":
		err = runChat(ctx)
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)

	// Startup info
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database: %s\n", cfg.Database.Path)
	if cfg.Providers.Gemini.APIKey == "" {
		yellow.Print("    ▶ ")
		fmt.Println("Gemini:   not configured")
	}
	fmt.Println()

	logger.Info("starting vilora-gateway",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
	)

	// Create and run gateway
	gw, err := gateway.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(ctx)
}

// runInit writes a starter config file with a random JWT secret. It refuses
// to overwrite an existing config.
func runInit() error {
	configPath := getConfigPath()
	dataPath := getDataPath()
	dbPath := filepath.Join(dataPath, "vilora.db")

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists at %s", configPath)
	}

	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return fmt.Errorf("generating JWT secret: %w", err)
	}
	jwtSecret := base64.StdEncoding.EncodeToString(secretBytes)

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	configContent := fmt.Sprintf(`# vilora-gateway configuration
# Generated by vilora-gateway init

server:
  http_addr: "localhost:8080"

database:
  path: "%s"

auth:
  jwt_secret: "%s"

providers:
  gemini:
    api_key: "${GEMINI_API_KEY}"
    model: "gemini-1.5-flash"
  weather:
    api_key: "${OPENWEATHER_API_KEY}"
  news:
    api_key: "${NEWS_API_KEY}"

logging:
  level: "info"
  format: "text"

rate_limit:
  enabled: true
  rps: 10
  burst: 20
`, dbPath, jwtSecret)

	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Print("✓ ")
	fmt.Printf("Config written to %s\n", configPath)
	fmt.Println("Set GEMINI_API_KEY, OPENWEATHER_API_KEY, and NEWS_API_KEY to enable providers.")
	return nil
}

// runToken mints a JWT for a caller using the configured secret.
func runToken() error {
	userID, displayName, err := parseUserFlags(os.Args[2:])
	if err != nil {
		return err
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	verifier := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	token, err := verifier.Generate(userID, displayName, 30*24*time.Hour)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	fmt.Println(token)
	return nil
}

// runChat starts an interactive terminal session driving the session
// manager directly against the local store.
func runChat(ctx context.Context) error {
	userID, displayName, err := parseUserFlags(os.Args[2:])
	if err != nil {
		return err
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Keep the terminal clean; only warnings and errors surface.
	logger := setupLogger(config.LoggingConfig{Level: "warn", Format: cfg.Logging.Format})

	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	watcher := conversation.NewWatcher(s, logger)
	defer watcher.Close()

	svc, err := buildProxy(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var locator geo.Locator = &geo.DeniedLocator{}
	if cfg.Location.Configured {
		locator = &geo.StaticLocator{Coords: geo.Coordinates{
			Latitude:  cfg.Location.Latitude,
			Longitude: cfg.Location.Longitude,
		}}
	}
	geocoder := geo.NewBigDataCloudClient()

	identity := &auth.Identity{UserID: userID, DisplayName: displayName}

	yellow := color.New(color.FgYellow)
	mgr := session.NewManager(watcher, svc, identity, session.Options{
		Locator:  locator,
		Geocoder: geocoder,
		Notify: func(msg string) {
			yellow.Printf("  %s\n", msg)
		},
	}, logger)
	defer mgr.Close()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	assembler := briefing.New(svc, locator, geocoder, logger)
	if greeting, err := assembler.Greeting(ctx, identity); err == nil {
		fmt.Printf("%s\n\n", greeting)
	}

	fmt.Println("Commands: /list, /open <id>, /rename <id> <title>, /archive <id>, /delete <id>, /quit")
	fmt.Println()

	return chatLoop(ctx, mgr, s)
}

// chatLoop reads lines from stdin until EOF, /quit, or cancellation.
func chatLoop(ctx context.Context, mgr *session.Manager, s store.Store) error {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	scanner := bufio.NewScanner(os.Stdin)

	for {
		green.Print("you> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if line == "/quit" {
				return nil
			}
			if err := runChatCommand(ctx, mgr, line); err != nil {
				red.Printf("  %v\n", err)
			}
			continue
		}

		if err := mgr.Send(ctx, line, ""); err != nil {
			red.Printf("  %v\n", err)
			continue
		}
		printLastReply(ctx, mgr, s)
	}
}

// printLastReply shows the newest bot message of the active conversation.
func printLastReply(ctx context.Context, mgr *session.Manager, s store.Store) {
	convID := mgr.Active()
	if convID == "" {
		return
	}
	msgs, err := s.ListMessages(ctx, convID)
	if err != nil || len(msgs) == 0 {
		return
	}
	last := msgs[len(msgs)-1]
	if last.Sender == store.SenderBot {
		fmt.Printf("bot> %s\n", last.Body)
	}
}

func runChatCommand(ctx context.Context, mgr *session.Manager, line string) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/list":
		convs, err := mgr.Conversations(ctx, true)
		if err != nil {
			return err
		}
		if len(convs) == 0 {
			fmt.Println("  no conversations yet")
			return nil
		}
		for _, c := range convs {
			marker := " "
			if c.ID == mgr.Active() {
				marker = "*"
			}
			suffix := ""
			if c.Archived {
				suffix = " (archived)"
			}
			fmt.Printf("  %s %s  %s%s\n", marker, c.ID, c.Title, suffix)
		}
		return nil

	case "/open":
		if len(fields) != 2 {
			return fmt.Errorf("usage: /open <id>")
		}
		return mgr.SetActive(ctx, fields[1])

	case "/rename":
		if len(fields) < 3 {
			return fmt.Errorf("usage: /rename <id> <title>")
		}
		return mgr.Rename(ctx, fields[1], strings.Join(fields[2:], " "))

	case "/archive":
		if len(fields) != 2 {
			return fmt.Errorf("usage: /archive <id>")
		}
		return mgr.Archive(ctx, fields[1], true)

	case "/delete":
		if len(fields) != 2 {
			return fmt.Errorf("usage: /delete <id>")
		}
		return mgr.Delete(ctx, fields[1])

	default:
		return fmt.Errorf("unknown command: %s", fields[0])
	}
}

// buildProxy constructs the service proxy from configured credentials.
func buildProxy(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*proxy.Service, error) {
	var gen proxy.Generator
	if cfg.Providers.Gemini.APIKey != "" {
		client, err := proxy.NewGeminiClient(ctx, cfg.Providers.Gemini.APIKey, cfg.Providers.Gemini.Model)
		if err != nil {
			return nil, fmt.Errorf("creating generation client: %w", err)
		}
		gen = client
	}

	var weather proxy.WeatherProvider
	if cfg.Providers.Weather.APIKey != "" {
		weather = proxy.NewOpenWeatherClient(cfg.Providers.Weather.APIKey)
	}

	var news proxy.NewsProvider
	if cfg.Providers.News.APIKey != "" {
		news = proxy.NewNewsClient(cfg.Providers.News.APIKey)
	}

	return proxy.New(gen, weather, news, logger), nil
}

// parseUserFlags parses --user and --name in both "--flag value" and
// "--flag=value" forms.
func parseUserFlags(args []string) (userID, displayName string, err error) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--user" || arg == "-u":
			if i+1 >= len(args) {
				return "", "", fmt.Errorf("--user requires a value")
			}
			userID = args[i+1]
			i++
		case strings.HasPrefix(arg, "--user="):
			userID = strings.TrimPrefix(arg, "--user=")
		case arg == "--name" || arg == "-n":
			if i+1 >= len(args) {
				return "", "", fmt.Errorf("--name requires a value")
			}
			displayName = args[i+1]
			i++
		case strings.HasPrefix(arg, "--name="):
			displayName = strings.TrimPrefix(arg, "--name=")
		case strings.HasPrefix(arg, "-"):
			return "", "", fmt.Errorf("unknown flag: %s", arg)
		default:
			return "", "", fmt.Errorf("unexpected argument: %s", arg)
		}
	}

	if userID == "" {
		return "", "", fmt.Errorf("--user flag is required")
	}
	return userID, displayName, nil
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
