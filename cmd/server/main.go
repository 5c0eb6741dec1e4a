// Package main is the entry point of the ledger API server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"happyinvest/internal/app"
	"happyinvest/internal/config"
	"happyinvest/internal/metrics"
	"happyinvest/internal/middleware"
	"happyinvest/internal/repositories"
	"happyinvest/internal/repositories/cache"
	"happyinvest/internal/routes"
	"happyinvest/internal/services/plan"
	"happyinvest/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const version = "1.0.0"

func main() {
	config.LoadEnv()
	config.InitLogger()

	settings := config.LoadSettings()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repositories.OpenPostgres()
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.WithError(err).Warn("failed to close database connection")
			}
		}
	}()
	go repositories.LogPoolStats(ctx, db, time.Minute)

	var cacheService *cache.CacheService
	if config.GetEnv("REDIS_ENABLED", "true") == "true" {
		client, err := cache.NewRedisClient(ctx, cache.NewRedisConfig())
		if err != nil {
			log.WithError(err).Warn("redis unavailable, running without account cache")
		} else {
			cacheService = cache.NewCacheService(client, config.GetDurationEnv("CACHE_TTL", 30*time.Second))
			defer func() {
				if err := cacheService.Close(); err != nil {
					log.WithError(err).Warn("failed to close redis connection")
				}
			}()
		}
	}

	catalog, err := plan.Load(settings.PlansFile)
	if err != nil {
		log.WithError(err).Fatal("plan catalog invalid")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewPrometheusCollector(registry)

	container := app.Build(app.Options{
		Store:    repositories.NewGormStore(db),
		Cache:    cacheService,
		Catalog:  catalog,
		Settings: settings,
		Metrics:  collector,
	})

	if err := container.Scheduler.Start(settings.SweepSchedule); err != nil {
		log.WithError(err).Fatal("failed to schedule payout sweep")
	}
	defer container.Scheduler.Stop()

	server := fiber.New(fiber.Config{
		AppName:      "happyinvest " + version,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return response.Error(c, fe.Code, "HTTP_ERROR", fe.Message)
			}
			return response.FromError(c, err)
		},
	})

	server.Use(recover.New())
	server.Use(middleware.RequestMetrics(collector))
	server.Use(cors.New(cors.Config{
		AllowOrigins: config.GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,HEAD,OPTIONS",
	}))
	server.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Payout checks are already throttled per user; this caps abuse per IP.
	server.Use("/api/payout/check", limiter.New(limiter.Config{
		Max:        config.GetIntEnv("PAYOUT_CHECK_RATE", 30),
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return response.Error(c, fiber.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.")
		},
	}))

	server.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	jwtSecret := config.GetEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}
	routes.SetupRoutes(server, container.Routes(jwtSecret, version))

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := server.ShutdownWithTimeout(15 * time.Second); err != nil {
			log.WithError(err).Warn("graceful shutdown failed")
		}
	}()

	addr := ":" + config.GetEnv("PORT", "3000")
	log.WithField("addr", addr).Info("server listening")
	if err := server.Listen(addr); err != nil {
		log.WithError(err).Error("server stopped")
	}
}
