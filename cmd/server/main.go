// Package main is the API server entry point. It wires the store, cache,
// fraud engine and transaction processor, sets up the HTTP surface and
// starts listening.
package main

import (
	"context"
	"log"
	"time"

	"fluxpay/internal/config"
	"fluxpay/internal/handlers"
	"fluxpay/internal/repositories"
	"fluxpay/internal/repositories/cache"
	"fluxpay/internal/routes"
	"fluxpay/internal/services/alert"
	"fluxpay/internal/services/fraud"
	"fluxpay/internal/services/funding"
	"fluxpay/internal/services/ledger"
	"fluxpay/internal/services/processor"
	"fluxpay/internal/services/scan"
	"fluxpay/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/shopspring/decimal"
)

func main() {
	config.LoadEnv()

	db, err := repositories.Connect()
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get database instance: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}
	defer sqlDB.Close()

	redisClient := cache.NewRedisClient(&cache.RedisConfig{
		Host:     config.GetEnv("REDIS_HOST", "localhost"),
		Port:     config.GetEnv("REDIS_PORT", "6379"),
		Password: config.GetEnv("REDIS_PASSWORD", ""),
		DB:       config.GetIntEnv("REDIS_DB", 0),
	})
	balanceCache := cache.NewRedisCache(redisClient)
	if err := balanceCache.HealthCheck(context.Background()); err != nil {
		log.Printf("redis unavailable, balance cache degraded: %v", err)
	}
	defer balanceCache.Close()

	store := repositories.NewStore(db)
	collector := metrics.NewCollector()
	dispatcher := alert.NewLogDispatcher()

	fraudEngine := fraud.NewEngine(store.Transactions(), fraudConfig())
	proc := processor.NewService(store, fraudEngine, dispatcher, balanceCache, collector, processor.Config{
		MaxRetries:     config.GetIntEnv("TX_MAX_RETRIES", processor.DefaultMaxRetries),
		RecordRejected: config.GetBoolEnv("TX_RECORD_REJECTED", false),
	})
	ledgerService := ledger.NewService(store, balanceCache)
	fundingService := funding.NewService(proc)
	scanJob := scan.NewJob(store.Transactions(), dispatcher, config.GetIntEnv("SCAN_DAILY_THRESHOLD", scan.DefaultThreshold))

	metricsServer := collector.StartServer(":" + config.GetEnv("METRICS_PORT", "9090"))
	defer metricsServer.Shutdown(context.Background())

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: config.GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
	}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use("/api/transactions", limiter.New(limiter.Config{
		Max:        config.GetIntEnv("TX_RATE_LIMIT", 30),
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	}))

	routes.SetupRoutes(app, routes.Handlers{
		Wallet:      handlers.NewWalletHandler(ledgerService, fundingService),
		Transaction: handlers.NewTransactionHandler(proc, ledgerService),
		Scan:        handlers.NewScanHandler(scanJob),
	})

	log.Fatal(app.Listen(":" + config.GetEnv("PORT", "3000")))
}

func fraudConfig() fraud.Config {
	cfg := fraud.DefaultConfig()
	cfg.HighFrequencyCount = int64(config.GetIntEnv("FRAUD_HIGH_FREQ_COUNT", int(cfg.HighFrequencyCount)))
	cfg.LargeAmount = decimal.NewFromInt(int64(config.GetIntEnv("FRAUD_LARGE_AMOUNT", 10000)))
	cfg.WithdrawalCount = int64(config.GetIntEnv("FRAUD_WITHDRAWAL_COUNT", int(cfg.WithdrawalCount)))
	cfg.WithdrawalTotal = decimal.NewFromInt(int64(config.GetIntEnv("FRAUD_WITHDRAWAL_TOTAL", 5000)))
	return cfg
}
