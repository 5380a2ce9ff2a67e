package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"basegraph.app/sandbox/common/id"
	"basegraph.app/sandbox/common/llm"
	"basegraph.app/sandbox/common/logger"
	"basegraph.app/sandbox/common/otel"
	"basegraph.app/sandbox/core/config"
	"basegraph.app/sandbox/core/db"
	"basegraph.app/sandbox/core/docdb"
	"basegraph.app/sandbox/internal/engine"
	"basegraph.app/sandbox/internal/http/handler"
	"basegraph.app/sandbox/internal/http/middleware"
	httprouter "basegraph.app/sandbox/internal/http/router"
	"basegraph.app/sandbox/internal/service"
	"basegraph.app/sandbox/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "sandbox starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(cfg.SnowflakeNodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	docs, err := docdb.Connect(ctx, cfg.Mongo)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to mongodb", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "mongodb connected", "database", cfg.Mongo.Database)

	stores := store.NewStores(docs)
	if err := stores.EnsureIndexes(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to ensure workspace indexes", "error", err)
		os.Exit(1)
	}

	limiter, redisClient, err := setupLimiter(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}

	var hintLLM llm.Client
	if cfg.HintLLM.Enabled() {
		hintLLM, err = llm.New(llm.Config{
			Provider:  cfg.HintLLM.Provider,
			APIKey:    cfg.HintLLM.APIKey,
			BaseURL:   cfg.HintLLM.BaseURL,
			Model:     cfg.HintLLM.Model,
			MaxTokens: cfg.HintLLM.MaxTokens,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to create hint llm client", "error", err)
			os.Exit(1)
		}
		slog.InfoContext(ctx, "ai hints enabled", "provider", cfg.HintLLM.Provider, "model", hintLLM.Model())
	} else {
		slog.InfoContext(ctx, "ai hints disabled (no api key configured)")
	}

	services := service.NewServices(stores, engine.New(database.Pool()), hintLLM)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services, httprouter.RouterConfig{
		RateLimits: cfg.RateLimits,
		Limiter:    limiter,
		Health:     map[string]handler.Pinger{"postgres": database, "mongodb": docs},
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			slog.ErrorContext(shutdownCtx, "redis close error", "error", err)
		}
	}

	if err := docs.Close(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "mongodb disconnect error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

// setupLimiter prefers Redis so every instance shares one budget and falls
// back to in-process buckets when REDIS_URL is unset.
func setupLimiter(ctx context.Context, cfg config.Config) (middleware.Limiter, *redis.Client, error) {
	if !cfg.Redis.Enabled() {
		slog.InfoContext(ctx, "redis disabled, rate limits are per process")
		return middleware.NewLocalLimiter(), nil, nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("pinging redis: %w", err)
	}
	slog.InfoContext(ctx, "redis connected")

	return middleware.NewRedisLimiter(client, "sandbox:ratelimit"), client, nil
}

func setupRouter(cfg config.Config, services *service.Services, routerCfg httprouter.RouterConfig) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → RequestID tags the context → Logger logs with both
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.CORSOrigins))

	httprouter.SetupRoutes(router, services, routerCfg)

	return router
}

const banner = `
███████╗ █████╗ ███╗   ██╗██████╗ ██████╗  ██████╗ ██╗  ██╗
██╔════╝██╔══██╗████╗  ██║██╔══██╗██╔══██╗██╔═══██╗╚██╗██╔╝
███████╗███████║██╔██╗ ██║██║  ██║██████╔╝██║   ██║ ╚███╔╝ 
╚════██║██╔══██║██║╚██╗██║██║  ██║██╔══██╗██║   ██║ ██╔██╗ 
███████║██║  ██║██║ ╚████║██████╔╝██████╔╝╚██████╔╝██╔╝ ██╗
╚══════╝╚═╝  ╚═╝╚═╝  ╚═══╝╚═════╝ ╚═════╝  ╚═════╝ ╚═╝  ╚═╝
`
