package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/medibook/libs/config"
	"github.com/md-rashed-zaman/medibook/libs/db"
	"github.com/md-rashed-zaman/medibook/libs/httpx"
	"github.com/md-rashed-zaman/medibook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/medibook/libs/otel"
	"github.com/md-rashed-zaman/medibook/libs/runtime"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/booking"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/cache"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/consumer"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/directory"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/handlers"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/medapi"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/metrics"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/outbox"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/storage"
)

func main() {
	dotenvErr := config.LoadDotEnv()
	service := config.String("SERVICE_NAME", "portal-service")
	logger := runtime.NewLogger(service)
	if dotenvErr != nil {
		logger.Warn("load .env failed", "err", dotenvErr)
	}

	port, err := config.Port("PORT", "8085")
	if err != nil {
		panic(err)
	}
	if port == "" {
		panic(errors.New("PORT must not be empty"))
	}
	grpcPort, err := config.Port("GRPC_PORT", "9095")
	if err != nil {
		panic(err)
	}
	medapiURL, err := config.RequiredString("MEDAPI_BASE_URL")
	if err != nil {
		panic(err)
	}
	medapiTimeout, err := config.Duration("MEDAPI_TIMEOUT", 10*time.Second)
	if err != nil {
		panic(err)
	}
	cacheTTL, err := config.Duration("DIRECTORY_CACHE_TTL", 60*time.Second)
	if err != nil {
		panic(err)
	}
	sessionIdle, err := config.Duration("SESSION_IDLE_TTL", 30*time.Minute)
	if err != nil {
		panic(err)
	}
	ratePerMinute, err := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		panic(err)
	}
	loc, err := time.LoadLocation(config.String("PORTAL_TIMEZONE", "UTC"))
	if err != nil {
		logger.Error("invalid PORTAL_TIMEZONE, using UTC", "err", err)
		loc = time.UTC
	}

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	portalMetrics := metrics.NewPortalMetrics(nil)
	client, err := medapi.NewClient(medapiURL, medapiTimeout, medapi.WithObserver(portalMetrics))
	if err != nil {
		panic(err)
	}

	checks := []runtime.ReadyCheck{}
	brokers := config.String("KAFKA_BROKERS", "")
	if brokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers), Optional: true})
	}

	var dirCache cache.Cache = cache.NewMemory()
	var rateLimit httpx.Middleware
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		redisDB, err := config.Int("REDIS_DB", 0)
		if err != nil {
			panic(err)
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		defer func() { _ = rdb.Close() }()
		dirCache = cache.NewRedis(rdb, "")
		if ratePerMinute > 0 {
			rateLimit = httpx.NewRedisRateLimiter(rdb, ratePerMinute, time.Minute, "medibook:ratelimit", httpx.ClientIP).Middleware(logger, true)
		}
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Optional: true, Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	} else if ratePerMinute > 0 {
		rateLimit = httpx.NewRateLimiter(ratePerMinute, time.Minute, httpx.ClientIP).Middleware()
	}

	bookingOpts := booking.Options{
		Recorder: portalMetrics,
		Location: loc,
		Logger:   logger,
	}
	var submissions handlers.SubmissionLister
	if dbURL := config.String("DATABASE_URL", ""); dbURL != "" {
		pool, err := db.Open(ctx, dbURL, db.Options{})
		if err != nil {
			logger.Error("db connection failed", "err", err)
			panic(err)
		}
		defer pool.Close()
		if err := storage.EnsureSchema(ctx, pool); err != nil {
			logger.Error("schema setup failed", "err", err)
			panic(err)
		}
		outboxRepo := outbox.NewRepository()
		repo := storage.NewSubmissionRepository(pool, outboxRepo)
		bookingOpts.Journal = repo
		submissions = repo
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})

		publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
			Brokers:   brokers,
			PollEvery: 2 * time.Second,
			BatchSize: 50,
		})
		go publisher.Run(ctx)
	}

	svc := booking.NewService(client, bookingOpts)
	sessions := booking.NewStore(sessionIdle)
	go sessions.Run(ctx, time.Minute)

	dir := directory.NewService(client, dirCache, directory.Options{
		TTL:      cacheTTL,
		Location: loc,
		Logger:   logger,
		Observer: portalMetrics,
	})
	if topic := config.String("KAFKA_DOCTOR_TOPIC", "directory.doctor.changed.v1"); brokers != "" && topic != "" {
		doctorEvents := consumer.New(logger, consumer.Config{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", service),
			Topic:   topic,
		}, consumer.DoctorChangedHandler(dir, logger))
		go doctorEvents.Run(ctx)
	}

	stopGRPC := startGRPC(ctx, logger, grpcPort, svc)
	defer stopGRPC()

	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("/metrics", promhttp.Handler())
	handlers.NewDirectoryHandler(dir, logger).Register(mux)
	handlers.NewBookingHandler(svc, sessions, submissions, logger).Register(mux)
	handlers.NewAppointmentsHandler(client, logger).Register(mux)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(corsPolicy()),
		rateLimit,
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(medapiTimeout+5*time.Second),
		handlers.NewAuthenticator(config.String("JWT_SECRET", "")).Middleware,
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "portal")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func corsPolicy() httpx.CORSPolicy {
	maxAge, err := config.Duration("CORS_MAX_AGE", 10*time.Minute)
	if err != nil {
		slog.Default().Warn("invalid CORS_MAX_AGE", "err", err)
		maxAge = 10 * time.Minute
	}
	return httpx.CORSPolicy{
		AllowedOrigins:   config.List("CORS_ALLOWED_ORIGINS", ""),
		AllowedMethods:   config.List("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS"),
		AllowedHeaders:   config.List("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,X-Request-Id"),
		AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
		MaxAge:           maxAge,
	}
}
