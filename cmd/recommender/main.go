// Command recommender runs the recommendation workflow service: an HTTP API
// that turns free-text preferences into ranked book/movie recommendations and
// exposes each run's intermediate agent states and the workflow topology.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/gokul-gopan-k/agent-recommender/auth"
	"github.com/gokul-gopan-k/agent-recommender/config"
	"github.com/gokul-gopan-k/agent-recommender/graph"
	"github.com/gokul-gopan-k/agent-recommender/graph/emit"
	"github.com/gokul-gopan-k/agent-recommender/graph/model"
	"github.com/gokul-gopan-k/agent-recommender/graph/model/anthropic"
	"github.com/gokul-gopan-k/agent-recommender/graph/model/google"
	"github.com/gokul-gopan-k/agent-recommender/graph/model/openai"
	"github.com/gokul-gopan-k/agent-recommender/graph/store"
	"github.com/gokul-gopan-k/agent-recommender/logging"
	"github.com/gokul-gopan-k/agent-recommender/recommend"
	"github.com/gokul-gopan-k/agent-recommender/server"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	chat, err := buildModel(ctx, cfg.Model)
	if err != nil {
		return err
	}

	runStore, db, err := buildStore(cfg.Store)
	if err != nil {
		return err
	}

	users, err := buildUserStore(cfg.Store, db)
	if err != nil {
		return err
	}

	authProvider, err := auth.NewProvider(users, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := graph.NewMetrics(registry)

	svc, err := recommend.NewService(chat, runStore, recommend.Options{
		TopK:              cfg.Recommend.TopK,
		CandidatesPerType: cfg.Recommend.CandidatesPerType,
		RetryAttempts:     cfg.Recommend.RetryAttempts,
		NodeTimeout:       cfg.Recommend.NodeTimeout,
		Retention:         cfg.Recommend.Retention,
		Emitter:           emit.NewLogEmitter(os.Stderr, cfg.Log.Format != "console"),
		Metrics:           metrics,
	})
	if err != nil {
		return err
	}
	defer svc.Close()

	srv := server.New(svc, authProvider, log, registry, cfg.Model.APIKey != "")

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func buildModel(ctx context.Context, cfg config.ModelConfig) (model.ChatModel, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewChatModel(cfg.APIKey, cfg.Name)
	case "anthropic":
		return anthropic.NewChatModel(cfg.APIKey, cfg.Name)
	case "google":
		return google.NewChatModel(ctx, cfg.APIKey, cfg.Name)
	}
	return nil, fmt.Errorf("unknown model provider: %q", cfg.Provider)
}

// buildStore returns the run store and, for SQL drivers, the shared database
// handle so the user store can reuse it.
func buildStore(cfg config.StoreConfig) (store.Store[recommend.RunState], *sql.DB, error) {
	switch cfg.Driver {
	case "memory":
		return store.NewMemStore[recommend.RunState](), nil, nil
	case "sqlite":
		st, err := store.NewSQLiteStore[recommend.RunState](cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return st, st.DB(), nil
	case "mysql":
		st, err := store.NewMySQLStore[recommend.RunState](cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return st, st.DB(), nil
	}
	return nil, nil, fmt.Errorf("unknown store driver: %q", cfg.Driver)
}

func buildUserStore(cfg config.StoreConfig, db *sql.DB) (auth.UserStore, error) {
	if cfg.Driver == "memory" {
		return auth.NewMemUserStore(), nil
	}
	return auth.NewSQLUserStore(db)
}
