package main

import (
    "context"
    "errors"
    "flag"
    "fmt"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/jaminalder/codex-xo/internal/app"
    "github.com/jaminalder/codex-xo/internal/blobstore"
    "github.com/jaminalder/codex-xo/internal/config"
    "github.com/jaminalder/codex-xo/internal/history"
    "github.com/jaminalder/codex-xo/internal/web"
    "go.uber.org/zap"
)

type blobStore interface {
    history.BlobStore
    Close() error
}

func main() {
    configPath := flag.String("config", os.Getenv("XO_CONFIG"), "path to YAML config")
    addr := flag.String("addr", "", "listen address (overrides config)")
    flag.Parse()

    cfg, err := config.Load(*configPath)
    if err != nil {
        fmt.Fprintf(os.Stderr, "config: %v\n", err)
        os.Exit(2)
    }
    if *addr != "" {
        cfg.Addr = *addr
    }

    logger, err := newLogger(cfg)
    if err != nil {
        fmt.Fprintf(os.Stderr, "logger: %v\n", err)
        os.Exit(2)
    }
    defer logger.Sync()

    if err := run(cfg, logger); err != nil {
        logger.Error("exiting after error", zap.Error(err))
        logger.Sync()
        os.Exit(1)
    }
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
    zc := zap.NewProductionConfig()
    if cfg.Log.Development {
        zc = zap.NewDevelopmentConfig()
    }
    zc.Level = zap.NewAtomicLevelAt(cfg.Level())
    return zc.Build()
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (blobStore, error) {
    if cfg.Store.Driver != config.DriverSQLite {
        logger.Info("using in-memory history store")
        return blobstore.NewMemory(), nil
    }
    s, err := blobstore.OpenSQLite(cfg.Store.DSN)
    if err != nil {
        return nil, err
    }
    keys, err := s.Keys(ctx)
    if err != nil {
        s.Close()
        return nil, err
    }
    logger.Info("using sqlite history store", zap.String("dsn", cfg.Store.DSN), zap.Int("slots", len(keys)))
    return s, nil
}

func run(cfg config.Config, logger *zap.Logger) error {
    defaults, err := cfg.Settings()
    if err != nil {
        return err
    }
    store, err := openStore(context.Background(), cfg, logger)
    if err != nil {
        return fmt.Errorf("open store: %w", err)
    }
    defer store.Close()

    svc := app.NewService(store, app.Config{
        HistorySlot:    cfg.HistorySlot,
        Defaults:       defaults,
        AIDelay:        cfg.AIDelay,
        ReplayInterval: cfg.ReplayInterval,
        Logger:         logger,
    })
    defer svc.Close()

    server := &http.Server{
        Addr:              cfg.Addr,
        Handler:           web.NewServer(svc, logger),
        ReadHeaderTimeout: 5 * time.Second,
        IdleTimeout:       60 * time.Second,
    }
    serverErrCh := make(chan error, 1)
    go func() {
        if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            serverErrCh <- err
        }
        close(serverErrCh)
    }()

    sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stopSignals()

    logger.Info("listening", zap.String("addr", cfg.Addr))
    var runErr error
    select {
    case <-sigCtx.Done():
        logger.Info("shutdown signal received")
    case err, ok := <-serverErrCh:
        if ok {
            runErr = err
        }
    }

    // Close sessions first so open event streams end.
    svc.Close()
    shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancelShutdown()
    if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
        logger.Warn("graceful shutdown failed", zap.Error(err))
        if closeErr := server.Close(); closeErr != nil && !errors.Is(closeErr, http.ErrServerClosed) {
            logger.Warn("forced close failed", zap.Error(closeErr))
        }
    }
    return runErr
}
