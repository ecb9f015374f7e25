package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mroshb/betpals/internal/cache"
	"github.com/mroshb/betpals/internal/config"
	"github.com/mroshb/betpals/internal/database"
	"github.com/mroshb/betpals/internal/events"
	"github.com/mroshb/betpals/internal/handlers"
	"github.com/mroshb/betpals/internal/metrics"
	"github.com/mroshb/betpals/internal/middleware"
	"github.com/mroshb/betpals/internal/notify"
	"github.com/mroshb/betpals/internal/repositories"
	"github.com/mroshb/betpals/internal/services"
	"github.com/mroshb/betpals/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	logger.Init()
	defer logger.Sync()

	logger.Info("starting betpals api")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load config", err)
	}
	if cfg.IsProduction() {
		if err := cfg.ValidateProductionSecurity(); err != nil {
			logger.Fatal("production security validation failed", err)
		}
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", err)
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("failed to run migrations", err)
	}
	if err := database.SeedAchievements(db); err != nil {
		logger.Warn("failed to seed achievements", "error", err)
	}

	ctx := context.Background()
	repos := services.NewRepositories(db)
	deps := services.Deps{}

	if cfg.RedisAddr != "" {
		client, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("redis unavailable, caching disabled", "error", err)
		} else {
			defer client.Close()
			deps.Cache = cache.NewRedisCache(client, cache.KeyPrefix, cfg.CacheTTL)
		}
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer publisher.Close()
		deps.Events = publisher
		logger.Info("publishing events", "topic", cfg.KafkaTopic)
	}

	if cfg.TelegramBotToken != "" {
		api, err := notify.NewBotAPI(cfg.TelegramBotToken, !cfg.IsProduction())
		if err != nil {
			logger.Warn("telegram unavailable, notifications disabled", "error", err)
		} else {
			notifier := notify.NewTelegramNotifier(api, repositories.NewUserRepository(db), 256)
			defer notifier.Close()
			deps.Notifier = notifier
		}
	}

	achievements := services.NewAchievementService(db, repos, deps)
	// the seed above may have changed definitions cached by a previous run
	achievements.InvalidateDefinitions(ctx)
	h := handlers.NewHandlerManager(
		cfg,
		services.NewProfileService(db, repos, deps, services.ProfileOptions{
			SignupBetCoins: cfg.SignupBetCoins,
			SearchLimit:    cfg.SearchLimit,
			SearchMinQuery: cfg.SearchMinQuery,
		}),
		services.NewFriendService(repos, deps, achievements),
		services.NewBetService(db, repos, deps, achievements, cfg.FeedLimit),
		achievements,
		services.NewGroupService(repos, deps, achievements, cfg.InviteCodeLen),
		services.NewWalletService(repos),
	)

	rl := middleware.NewRateLimiter(cfg.RateLimitPerUser, cfg.RateLimitPerIP, cfg.RateLimitWindow)
	defer rl.Stop()

	health := func(context.Context) error { return database.Ping(db) }

	apiServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: handlers.NewRouter(h, rl, health),
	}
	metricsServer := metrics.NewServer(cfg.MetricsPort, health)

	for _, srv := range []*http.Server{apiServer, metricsServer} {
		go func(srv *http.Server) {
			logger.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("server failed", err)
			}
		}(srv)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	for _, srv := range []*http.Server{apiServer, metricsServer} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown failed", "addr", srv.Addr, "error", err)
		}
	}
	logger.Info("stopped")
}
