/**
 * @description
 * This is the main entry point for the settlement-service. It is responsible
 * for initializing all components of the service, including configuration, the
 * database connection pool, the payment gateway client, the RabbitMQ event
 * producer, the Redis rate limiter, repositories, the core application
 * services, the cron sweep scheduler, and the HTTP server. It wires everything
 * together and starts the service.
 *
 * @dependencies
 * - log, log/slog, net/http: Standard Go libraries for logging and HTTP.
 * - github.com/jackc/pgx/v5: PostgreSQL driver and connection pool.
 * - github.com/joho/godotenv: To load .env files for local development.
 * - github.com/redis/go-redis/v9: Redis client backing the rate limiter.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages.
 * - pkg/gateway: Client for the payment gateway API.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/vendaflow/settlement-service/internal/api"
	"github.com/vendaflow/settlement-service/internal/app"
	"github.com/vendaflow/settlement-service/internal/config"
	"github.com/vendaflow/settlement-service/internal/store"
	"github.com/vendaflow/settlement-service/pkg/gateway"
	"github.com/vendaflow/settlement-service/pkg/rabbitmq"
)

func main() {
	// Load .env for local development; in production the environment is set
	// by the platform and the file is absent.
	if err := godotenv.Load(); err != nil {
		log.Println("level=info component=bootstrap msg=\"no .env file found, using environment variables\"")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}

	log.Printf("level=info component=bootstrap msg=\"starting settlement-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	// Settlement bursts arrive in gateway webhook batches; size the pool for
	// concurrent row-locked transactions.
	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts behind pgbouncer.
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer. The service only publishes, and a
	// broker outage at boot must not block settlement, so we fall back to a
	// no-op publisher.
	var eventProducer rabbitmq.Publisher
	producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		eventProducer = &rabbitmq.EventProducerFallback{}
	} else {
		defer producer.Close()
		eventProducer = producer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Initialize the payment gateway client used for webhook cross-checks.
	// When verification is disabled the settlement engine trusts the signed
	// webhook payload alone.
	var gatewayClient gateway.Client
	if cfg.GatewayVerifyPayments {
		if strings.TrimSpace(cfg.GatewayBaseURL) == "" || strings.TrimSpace(cfg.GatewayAPIKey) == "" {
			log.Println("level=warn component=bootstrap msg=\"gateway client not configured; payment verification disabled\"")
		} else {
			gatewayClient, err = gateway.New(cfg.GatewayProvider, cfg.GatewayBaseURL, cfg.GatewayAPIKey)
			if err != nil {
				log.Fatalf("level=fatal component=bootstrap msg=\"gateway client init failed\" err=%v", err)
			}
			log.Printf("level=info component=bootstrap msg=\"gateway client configured\" provider=%s", cfg.GatewayProvider)
		}
	}

	// Redis backs the withdrawal rate limiter. A missing or unreachable Redis
	// disables rate limiting rather than blocking boot.
	var redisClient *redis.Client
	if cfg.WithdrawalRateLimitPerMinute > 0 {
		if strings.TrimSpace(cfg.RedisURL) == "" {
			log.Println("level=warn component=bootstrap msg=\"redis url missing; withdrawal rate limiting disabled\" env=REDIS_URL")
		} else {
			redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
			if parseErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; withdrawal rate limiting disabled\" err=%v", parseErr)
			} else {
				redisClient = redis.NewClient(redisOptions)
				pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancelPing()
				if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
					log.Printf("level=warn component=bootstrap msg=\"redis ping failed; withdrawal rate limiting disabled\" err=%v", pingErr)
					redisClient.Close()
					redisClient = nil
				} else {
					defer redisClient.Close()
					log.Println("level=info component=bootstrap msg=\"redis connected\"")
				}
			}
		}
	}
	var rateLimiter *app.RedisWithdrawalRateLimiter
	if redisClient != nil {
		rateLimiter = app.NewRedisWithdrawalRateLimiter(redisClient, cfg.RedisRateLimitPrefix)
	}

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	// Initialize the core application services.
	settlementEngine := app.NewSettlementEngine(repository, gatewayClient, eventProducer)
	withdrawalManager := app.NewWithdrawalManager(repository, eventProducer)
	settingsService := app.NewSettingsService(repository)
	reports := app.NewReports(repository)

	// The sweep jobs log through slog so cron output carries structured fields.
	jobLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("component", "sweeper")
	sweeper := app.NewSweeper(repository, eventProducer, jobLogger)
	scheduler := app.NewScheduler(sweeper, jobLogger, cfg)
	scheduler.Start()
	defer scheduler.Stop()

	// Initialize the API handlers and router.
	handlers := api.NewHandlers(settlementEngine, withdrawalManager, reports, settingsService, rateLimiter, cfg.WithdrawalRateLimitPerMinute)

	var allowedOrigins []string
	for _, origin := range strings.Split(cfg.CORSAllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			allowedOrigins = append(allowedOrigins, trimmed)
		}
	}
	if cfg.InternalAPIKey == "" {
		log.Println("level=warn component=bootstrap msg=\"internal api key not configured; sale registration endpoints disabled\" env=INTERNAL_API_KEY")
	}
	router := api.NewRouter(handlers, cfg.JWTSecret, cfg.GatewayWebhookToken, cfg.InternalAPIKey, allowedOrigins)

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
