package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"forestcover/config"
	"forestcover/db"
	fhttp "forestcover/http"
	"forestcover/logging"
	"forestcover/ml"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, level, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// 2. Load artifacts; the form cannot operate without both.
	mode, err := ml.ParseValidationMode(cfg.Validation.Mode)
	if err != nil {
		logger.Fatal("invalid validation mode", zap.Error(err))
	}
	predictor, err := ml.LoadPredictor(cfg.Model.ScalerPath, cfg.Model.ClassifierPath,
		ml.WithCache(cfg.Cache.Size),
		ml.WithValidationMode(mode),
	)
	if err != nil {
		logger.Fatal("failed to load model artifacts", zap.Error(err))
	}
	info := predictor.Info()
	logger.Info("model artifacts loaded",
		zap.String("scaler", info.Scaler.Path),
		zap.String("scaler_kind", info.Scaler.Kind),
		zap.String("classifier", info.Classifier.Path),
		zap.String("classifier_kind", info.Classifier.Kind),
		zap.Int("trees", info.Classifier.Trees),
		zap.String("validation_mode", info.ValidationMode),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Open prediction history
	deps := fhttp.Dependencies{Predictor: predictor, Logger: logger}
	if cfg.History.Enabled {
		if cfg.History.Driver == db.DriverSQLite {
			if err := os.MkdirAll(filepath.Dir(cfg.History.DSN), 0o755); err != nil {
				logger.Fatal("failed to create history directory", zap.Error(err))
			}
		}
		store, err := db.Open(ctx, cfg.History.Driver, cfg.History.DSN)
		if err != nil {
			logger.Fatal("failed to open prediction history", zap.Error(err))
		}
		defer store.Close()
		deps.History = store
		logger.Info("prediction history enabled", zap.String("driver", cfg.History.Driver))
	}

	// 4. Start HTTP server
	server, err := fhttp.NewServer(cfg, deps)
	if err != nil {
		logger.Fatal("failed to build http server", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		return server.Stop(context.Background())
	})
	g.Go(func() error {
		watchLogLevel(gctx, *configPath, level, logger)
		return nil
	})

	// 5. Wait for shutdown
	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return
	}
	logger.Info("exiting")
}

// watchLogLevel re-applies the log level whenever the config file changes.
// Artifacts are load-once, so nothing else follows the file. A watcher that
// cannot start is logged and leaves the server running.
func watchLogLevel(ctx context.Context, path string, level zap.AtomicLevel, logger *zap.Logger) {
	err := config.Watch(ctx, path, func(next *config.Config) {
		l, err := logging.ParseLevel(next.Log.Level)
		if err != nil {
			return
		}
		if l != level.Level() {
			level.SetLevel(l)
			logger.Info("log level changed", zap.String("level", l.String()))
		}
	}, func(err error) {
		logger.Warn("config reload failed", zap.Error(err))
	})
	if err != nil {
		logger.Warn("config watch stopped", zap.Error(err))
	}
}
