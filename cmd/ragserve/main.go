package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/vantor/ragserve/internal/ai"
	"github.com/vantor/ragserve/internal/config"
	"github.com/vantor/ragserve/internal/corpus"
	"github.com/vantor/ragserve/internal/db"
	"github.com/vantor/ragserve/internal/handler"
	"github.com/vantor/ragserve/internal/job"
	"github.com/vantor/ragserve/internal/middleware"
	"github.com/vantor/ragserve/internal/ratelimit"
	"github.com/vantor/ragserve/internal/repo"
	"github.com/vantor/ragserve/internal/schedule"
	"github.com/vantor/ragserve/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "ragserve",
		Short: "ragserve chat backend",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := setup(configPath)
			if err != nil {
				return err
			}
			return runServer(cfg, conn)
		},
	}
	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "run one corpus sync and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := setup(configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			syncService, err := buildCorpusSync(cfg, conn)
			if err != nil {
				return err
			}
			return syncService.Sync(cmd.Context(), cfg.Corpus.Dir)
		},
	}
	syncCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")

	rootCmd.AddCommand(runCmd, syncCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func setup(configPath string) (*config.Config, *sql.DB, error) {
	if configPath == "" {
		return nil, nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return cfg, conn, nil
}

func buildCorpusSync(cfg *config.Config, conn *sql.DB) (*service.CorpusSyncService, error) {
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	splitter := corpus.NewSplitter(cfg.Corpus.ChunkSize, cfg.Corpus.ChunkOverlap)
	return service.NewCorpusSyncService(repo.NewChunkRepo(conn), embedder, splitter), nil
}

func buildEmbedder(cfg *config.Config) (ai.IEmbedder, error) {
	provider, err := ai.NewEmbedProvider(cfg.AI.EmbedProvider, cfg.AI.Data)
	if err != nil {
		return nil, fmt.Errorf("init embed provider: %w", err)
	}
	embedder := ai.NewEmbedder(provider, cfg.AI.EmbedModel)
	return ai.NewTimeoutEmbedder(embedder, time.Duration(cfg.AI.Timeout)*time.Second), nil
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	defer conn.Close()
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("corpus_dir", cfg.Corpus.Dir),
	)

	chatProvider, err := ai.NewChatProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return fmt.Errorf("init chat provider: %w", err)
	}
	chatter := ai.NewTimeoutChatter(
		ai.NewChatter(chatProvider, cfg.AI.Model),
		time.Duration(cfg.AI.Timeout)*time.Second,
	)
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}

	chunkRepo := repo.NewChunkRepo(conn)
	chatLogRepo := repo.NewChatLogRepo(conn)

	chatService := service.NewChatService(chatter, embedder, chunkRepo, chatLogRepo)
	splitter := corpus.NewSplitter(cfg.Corpus.ChunkSize, cfg.Corpus.ChunkOverlap)
	syncService := service.NewCorpusSyncService(chunkRepo, embedder, splitter)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := syncService.Sync(ctx, cfg.Corpus.Dir); err != nil {
		logutil.GetLogger(ctx).Error("startup corpus sync failed", zap.Error(err))
	}

	scheduler := schedule.NewCronScheduler()
	if cfg.Corpus.ResyncCron != "" {
		if err := scheduler.AddJob(job.NewCorpusResyncJob(syncService, cfg.Corpus.Dir), cfg.Corpus.ResyncCron); err != nil {
			return fmt.Errorf("schedule corpus resync: %w", err)
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// The limiter fails open, so a cold Redis delays enforcement but
		// never blocks startup.
		logutil.GetLogger(ctx).Warn("redis not reachable at startup", zap.Error(err))
	}

	globalQuota, err := ratelimit.ParseQuota(cfg.RateLimit.Global)
	if err != nil {
		return fmt.Errorf("parse global quota: %w", err)
	}
	chatQuota, err := ratelimit.ParseQuota(cfg.RateLimit.Chat)
	if err != nil {
		return fmt.Errorf("parse chat quota: %w", err)
	}
	limiter := ratelimit.NewLimiter(ratelimit.NewRedisCounterStore(redisClient), globalQuota, chatQuota)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.CORS(cfg.CORSAllowOrigins),
		middleware.Metrics(),
		middleware.RateLimit(limiter),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/chat"})),
	)
	handler.RegisterRoutes(engine, handler.RouterDeps{
		Chat:   handler.NewChatHandler(chatService),
		Health: handler.NewHealthHandler(),
	})

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	go func() {
		logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
