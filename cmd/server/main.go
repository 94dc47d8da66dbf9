package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/me/dsviz/internal/config"
	"github.com/me/dsviz/internal/logging"
	"github.com/me/dsviz/internal/server"
	"github.com/me/dsviz/internal/session"
	"github.com/me/dsviz/internal/store"
)

func main() {
	cfg := config.DefaultServerConfig()

	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json)")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Database path (default ~/.dsviz/dsviz.db)")
	flag.IntVar(&cfg.MinPriority, "min-priority", cfg.MinPriority, "Most urgent priority value")
	flag.IntVar(&cfg.MaxPriority, "max-priority", cfg.MaxPriority, "Least urgent priority value")
	flag.StringVar(&cfg.Policy, "policy", cfg.Policy, "Scheduling policy: preemptive, non-preemptive")
	flag.DurationVar(&cfg.SessionTTL, "session-ttl", cfg.SessionTTL, "Evict sessions idle for longer than this (0 disables)")
	flag.DurationVar(&cfg.JanitorInterval, "janitor-interval", cfg.JanitorInterval, "Idle session sweep interval")
	flag.IntVar(&cfg.RunHistory, "run-history", cfg.RunHistory, "Runs returned by the history endpoint")
	debug := flag.Bool("debug", false, "Shorthand for --log-level=debug")
	configFile := flag.String("config", "", "Path to YAML config file")

	flag.Parse()

	// File values sit between defaults and flags: load the file, then
	// re-apply the command line on top.
	if *configFile != "" {
		if err := config.LoadFile(*configFile, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		flag.Parse()
	}

	if *debug {
		cfg.LogLevel = "debug"
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	schedCfg, err := cfg.SchedulerConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid scheduler config: %v\n", err)
		os.Exit(1)
	}

	// Resolve database path.
	dbPath := cfg.DBPath
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot determine home directory: %v\n", err)
			os.Exit(1)
		}
		dir := filepath.Join(home, ".dsviz")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "cannot create %s: %v\n", dir, err)
			os.Exit(1)
		}
		dbPath = filepath.Join(dir, "dsviz.db")
	}

	st, err := store.NewSQLiteStore(dbPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Migrate(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "migrate database: %v\n", err)
		os.Exit(1)
	}
	logger.Info("database ready", "path", dbPath)

	sessions := session.NewManager(st, schedCfg, logger)
	janitor := session.NewJanitor(sessions, session.JanitorConfig{
		Interval: cfg.JanitorInterval,
		TTL:      cfg.SessionTTL,
	}, logger)

	srv := server.New(cfg, sessions, logger, server.WithJanitor(janitor))

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Handler(),
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv.StartJanitor(ctx)

	go func() {
		logger.Info("server starting", "addr", cfg.Addr,
			"policy", schedCfg.Policy, "priorities", fmt.Sprintf("%d..%d", schedCfg.MinPriority, schedCfg.MaxPriority))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if err := janitor.Stop(); err != nil {
		logger.Error("janitor stop error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
