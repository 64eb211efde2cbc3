package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/gorilla/mux"
	"github.com/jessevdk/go-flags"
	"github.com/rs/cors"

	"drocsid/clients/alerts"
	"drocsid/clients/api"
	"drocsid/clients/gateway"
	"drocsid/clients/localstore"
	"drocsid/config"
	"drocsid/core/clock"
	"drocsid/core/log"
	"drocsid/handlers"
	"drocsid/middleware"
	"drocsid/services/cache"
	"drocsid/services/notifications"
	"drocsid/services/readstate"
	"drocsid/services/store"
	"drocsid/services/typing"
	"drocsid/usecases/realtime"
	"drocsid/utils"
)

const (
	workerCount     = 4
	shutdownTimeout = 5 * time.Second
)

type Options struct {
	Debug      bool   `long:"debug" description:"Enable debug logging"`
	DataDir    string `long:"data-dir" description:"Directory holding local state, logs and the instance lock"`
	StatusAddr string `long:"status-addr" description:"Listen address for the health, state and metrics endpoints"`
	EnvFile    string `long:"env-file" description:"Optional .env file to load before reading the environment"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return nil
		}
		return err
	}

	if opts.Debug {
		log.SetLevel(slog.LevelDebug)
	} else {
		log.SetLevel(slog.LevelInfo)
	}

	cfg, err := config.LoadConfig(opts.EnvFile)
	if err != nil {
		return err
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	if opts.StatusAddr != "" {
		cfg.Status.ListenAddr = opts.StatusAddr
	}

	dirLock, err := utils.NewDirLock(cfg.DataDir)
	if err != nil {
		return err
	}
	if err := dirLock.TryLock(); err != nil {
		return err
	}
	defer func() {
		if err := dirLock.Unlock(); err != nil {
			log.Error("❌ Failed to release data directory lock", "error", err)
		}
	}()

	logFile, err := setupProgramLogging(cfg.DataDir)
	if err != nil {
		return err
	}
	defer func() {
		fmt.Fprintf(os.Stderr, "\n📝 Logs for this session are stored in %s\n", logFile.Name())
		logFile.Close()
	}()

	kv, err := localstore.OpenPebble(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		return err
	}
	defer func() {
		if err := kv.Close(); err != nil {
			log.Error("❌ Failed to close local state", "error", err)
		}
	}()

	clk := clock.Real()
	tokens, err := api.NewTokenStore(kv, clk)
	if err != nil {
		return err
	}
	client := api.NewClient(cfg.APIURL, tokens)

	if err := ensureSession(client, tokens, cfg.Credentials); err != nil {
		return err
	}

	alertMiddleware := middleware.NewErrorAlertMiddleware(middleware.SlackAlertConfig{
		WebhookURL:  cfg.Alerts.ErrorWebhookURL,
		Environment: cfg.Environment,
		AppName:     "drocsid",
	}, clk)

	pool := workerpool.New(workerCount)

	governor := cache.NewGovernor(cfg.Sync.CacheCapacity)
	syncStore := store.NewStore(client, governor)
	typingTracker := typing.NewTracker(clk, cfg.Sync.TypingTimeout)
	readTracker := readstate.NewTracker(client, syncStore, pool, clk, cfg.Sync.AckDebounce)
	evaluator, err := notifications.NewEvaluator(kv)
	if err != nil {
		return err
	}

	notifier := alerts.Fanout{alerts.LogNotifier{}}
	if cfg.Alerts.NotifyWebhookURL != "" {
		notifier = append(notifier, alerts.NewSlackNotifier(cfg.Alerts.NotifyWebhookURL, true))
	}

	gw := gateway.NewManager(gateway.Config{
		URL:                  cfg.GatewayURL,
		DetectZombieSessions: cfg.Sync.DetectZombieSessions,
	}, gateway.NewWebsocketDialer(), tokens, clk)

	realtimeUseCase := realtime.NewRealtimeUseCase(
		gw,
		syncStore,
		typingTracker,
		readTracker,
		evaluator,
		notifier,
		client,
		kv,
		pool,
		alertMiddleware,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var server *http.Server
	if cfg.Status.IsConfigured() {
		server = newStatusServer(cfg.Status, realtimeUseCase, alertMiddleware)
		go func() {
			_ = alertMiddleware.WrapBackgroundTask("StatusServer", func() error {
				log.Info("✅ Status endpoint listening", "addr", server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("status server failed: %w", err)
				}
				return nil
			})()
		}()
	}

	go logTypingChanges(ctx, typingTracker)

	if err := gw.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect gateway: %w", err)
	}

	runErr := alertMiddleware.WrapBackgroundTask("RealtimeLoop", func() error {
		return realtimeUseCase.Run(ctx)
	})()
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	log.Info("🛑 Shutdown signal received, cleaning up...")
	return shutdown(gw, realtimeUseCase, pool, server, alertMiddleware, runErr)
}

func ensureSession(client *api.Client, tokens *api.TokenStore, creds config.CredentialsConfig) error {
	if tokens.HasSession() {
		return nil
	}
	if !creds.IsConfigured() {
		return errors.New("no stored session and no login credentials configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	user, err := client.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		return err
	}
	log.Info("✅ Logged in", "user_id", user.ID, "username", user.Username)
	return nil
}

func newStatusServer(
	cfg config.StatusConfig,
	source handlers.StatusSource,
	alertMiddleware *middleware.ErrorAlertMiddleware,
) *http.Server {
	router := mux.NewRouter()
	handlers.NewStatusHandler(source).SetupEndpoints(router)

	allowedOrigins := strings.Split(cfg.CORSAllowedOrigins, ",")
	for i, origin := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(origin)
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})

	return &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           alertMiddleware.HTTPMiddleware(c.Handler(router)),
		ReadHeaderTimeout: 30 * time.Second,
	}
}

func shutdown(
	gw *gateway.Manager,
	realtimeUseCase *realtime.RealtimeUseCase,
	pool *workerpool.WorkerPool,
	server *http.Server,
	alertMiddleware *middleware.ErrorAlertMiddleware,
	runErr error,
) error {
	gw.Disconnect()
	realtimeUseCase.Shutdown()
	pool.StopWait()

	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("❌ Status server shutdown error", "error", err)
			runErr = errors.Join(runErr, err)
		}
	}

	alertMiddleware.Wait()
	if runErr == nil {
		log.Info("✅ Stopped gracefully")
	}
	return runErr
}

// logTypingChanges drains the typing change feed a UI would render from
func logTypingChanges(ctx context.Context, tracker *typing.Tracker) {
	for {
		select {
		case <-ctx.Done():
			return
		case channelID, ok := <-tracker.Changes():
			if !ok {
				return
			}
			log.Debug("Typing indicator changed", "channel_id", channelID, "typing", tracker.Typing(channelID))
		}
	}
}

func setupProgramLogging(dataDir string) (*os.File, error) {
	logsDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	logFilePath := filepath.Join(logsDir, fmt.Sprintf("%s.log", timestamp))

	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	log.SetWriter(io.MultiWriter(os.Stderr, logFile))
	log.Info("📝 Logging to file", "path", logFilePath)
	return logFile, nil
}
