package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DivyanshMauryaaa/testgem/internal/ai"
	"github.com/DivyanshMauryaaa/testgem/internal/app"
	"github.com/DivyanshMauryaaa/testgem/internal/events"
	"github.com/DivyanshMauryaaa/testgem/internal/export"
	"github.com/DivyanshMauryaaa/testgem/internal/history"
	"github.com/DivyanshMauryaaa/testgem/internal/objectstore"
	"github.com/DivyanshMauryaaa/testgem/internal/proposal"
	"github.com/DivyanshMauryaaa/testgem/internal/search"
	"github.com/DivyanshMauryaaa/testgem/internal/store"
)

var skipMigrations bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(commandContext(cmd))
	},
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "Do not apply migrations on start")
	rootCmd.AddCommand(serveCmd)
}

// runtime owns everything the service needs that must be closed on exit.
type runtime struct {
	db      *store.DB
	service *app.Service
	closers []func() error
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			logger.Warn("close failed", zap.Error(err))
		}
	}
}

func buildRuntime(ctx context.Context) (*runtime, error) {
	db, err := store.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	rt := &runtime{db: db}
	rt.closers = append(rt.closers, db.Close)

	records := store.NewRecordStore(db)
	deps := app.Deps{
		Records:  records,
		Exporter: export.NewService(),
		Logger:   logger,
	}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisStore, err := proposal.NewRedisStore(cfg.RedisURL, cfg.ProposalTTL)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, redisStore.Close)
		deps.Proposals = redisStore
		logger.Info("proposals stored in redis")
	} else {
		deps.Proposals = proposal.NewMemoryStore(cfg.ProposalTTL)
		logger.Info("proposals stored in memory")
	}

	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		gemini, err := ai.NewGemini(ctx, ai.GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
		})
		if err != nil {
			rt.Close()
			return nil, err
		}
		deps.Generator = gemini
		logger.Info("gemini configured", zap.String("model", gemini.Model()))
	} else {
		logger.Warn("GEMINI_API_KEY not set; AI features disabled")
	}

	fallback := search.NewStoreSearcher(records)
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meili := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		rt.closers = append(rt.closers, func() error { meili.Close(); return nil })
		searchSvc := search.NewService(meili, fallback, logger)
		rt.closers = append(rt.closers, func() error { searchSvc.Close(); return nil })
		deps.Search = searchSvc
	} else {
		deps.Search = search.NewService(nil, fallback, logger)
	}

	if strings.TrimSpace(cfg.HistoryDir) != "" {
		if err := os.MkdirAll(cfg.HistoryDir, 0o755); err != nil {
			rt.Close()
			return nil, err
		}
		deps.History = history.New(cfg.HistoryDir)
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, publisher.Close)
		deps.Events = publisher
	}

	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		objects, err := objectstore.New(objectstore.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			Region:    cfg.MinioRegion,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			rt.Close()
			return nil, err
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			logger.Warn("object storage unavailable; export links disabled", zap.Error(err))
		} else {
			deps.Objects = objects
		}
	}

	rt.service = app.New(cfg, deps)
	return rt, nil
}

func runServe(ctx context.Context) error {
	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if !skipMigrations {
		if err := store.ApplyMigrations(ctx, rt.db, cfg.MigrationsDir); err != nil {
			return err
		}
	}

	httpServer := app.NewHTTPServer(rt.service, cfg.CORSOrigin, logger)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("TestGem API listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	return nil
}
