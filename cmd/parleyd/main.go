// Command parleyd runs the Parley orchestration service: an HTTP nudge
// endpoint that triggers per-project runs, plus the background watchdog that
// pauses stalled projects.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/parleyhq/parley/backend"
	"github.com/parleyhq/parley/config"
	"github.com/parleyhq/parley/engine"
	"github.com/parleyhq/parley/internal/cryptoutil"
	"github.com/parleyhq/parley/lease"
	"github.com/parleyhq/parley/logging"
	"github.com/parleyhq/parley/memory"
	"github.com/parleyhq/parley/model"
	"github.com/parleyhq/parley/model/anthropic"
	"github.com/parleyhq/parley/model/mux"
	"github.com/parleyhq/parley/model/openai"
	"github.com/parleyhq/parley/watchdog"
)

func main() {
	configPath := flag.String("config", "", "path to optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	logger := logging.New(&logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
		Output: os.Stdout,
	})

	if err := run(cfg, logger); err != nil {
		logger.Error("service exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logging.Logger) error {
	be, err := backend.NewHTTPBackend(cfg.BackendURL, cfg.BackendKey, nil)
	if err != nil {
		return fmt.Errorf("init backend client: %w", err)
	}

	invoker := mux.New(openai.New(), func(o *mux.Options) {
		o.Routes = map[string]model.Invoker{
			"claude": anthropic.New(),
		}
	})

	secret := []byte(cfg.EncryptSecret)
	decrypt := func(encrypted string) (string, error) {
		return cryptoutil.Decrypt(encrypted, secret)
	}

	var locker lease.Locker = lease.NewInMemoryLocker()
	if cfg.RedisAddr != "" {
		redisLocker, err := lease.NewRedisLocker(lease.RedisConfig{
			Address:  cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}, logger)
		if err != nil {
			return fmt.Errorf("init redis locker: %w", err)
		}
		defer redisLocker.Close()
		locker = redisLocker
	}

	summarizer := memory.NewSummarizer(be, invoker, func(o *memory.Options) {
		o.Logger = logger
	})

	eng := engine.New(be, invoker, summarizer, decrypt, func(o *engine.Options) {
		o.Logger = logger
		o.Locker = locker
		o.LogPrompts = cfg.LogPrompts
	})

	dog := watchdog.New(be, func(o *watchdog.Options) {
		o.StaleTimeout = cfg.Watchdog.StaleTimeout
		o.IdleTimeout = cfg.Watchdog.IdleTimeout
		o.SweepInterval = cfg.Watchdog.SweepInterval
		o.Logger = logger
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go dog.Run(ctx)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newHandler(ctx, eng, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newHandler builds the service HTTP surface: a health probe and the nudge
// endpoint that kicks off a background run for one project.
func newHandler(baseCtx context.Context, eng *engine.Engine, logger logging.Logger) http.Handler {
	m := http.NewServeMux()

	m.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	m.HandleFunc("POST /nudge", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			ProjectID int64 `json:"project_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.ProjectID <= 0 {
			http.Error(w, `{"error":"project_id is required"}`, http.StatusBadRequest)
			return
		}

		// The run outlives the request: respond immediately and process in
		// the background against the service context.
		go eng.Run(baseCtx, payload.ProjectID)
		logger.Debug("nudge accepted", "project_id", payload.ProjectID)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]any{"accepted": true, "project_id": payload.ProjectID})
	})

	return m
}
