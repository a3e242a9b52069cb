package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bioattend/internal/attendance"
	"bioattend/internal/auth"
	"bioattend/internal/bootstrap"
	"bioattend/internal/config"
	"bioattend/internal/handler"
	"bioattend/internal/httpmiddleware"
	"bioattend/internal/matcher"
	"bioattend/internal/notify"
	"bioattend/internal/store"
)

func main() {
	cfg := config.Load()
	logger := bootstrap.Logger(cfg)

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App, logger *slog.Logger) error {
	db, err := store.NewDB(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	var redisClient *store.Redis
	if cfg.QueueBackend == "redis" {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
	}

	ctx := context.Background()
	scorer := matcher.New(cfg.MatcherURL, cfg.MatcherSkip)
	if !cfg.MatcherSkip {
		if err := scorer.Health(ctx); err != nil {
			logger.Warn("fingerprint scorer not reachable", "url", cfg.MatcherURL, "error", err)
		} else {
			logger.Info("fingerprint scorer connected", "url", cfg.MatcherURL)
		}
	} else {
		logger.Warn("fingerprint verification bypassed", "env", "MATCHER_SKIP")
	}

	dispatcher := bootstrap.Dispatcher(cfg, logger)
	var outbox notify.Outbox
	var inline *notify.Async
	if cfg.NotifyMode == "queue" && redisClient != nil {
		outbox = notify.NewQueued(bootstrap.Queue(cfg, redisClient))
	} else {
		if cfg.NotifyMode == "queue" {
			logger.Warn("NOTIFY_MODE=queue needs QUEUE_BACKEND=redis, sending inline")
		}
		inline = notify.NewAsync(dispatcher, logger)
		outbox = inline
	}

	svc := attendance.NewService(attendance.NewRepository(db), attendance.Options{
		Verifier: matcher.NewVerifier(scorer, cfg.MatchThreshold),
		Sender:   dispatcher,
		Outbox:   outbox,
		Logger:   logger,
	})

	checks := map[string]handler.Checker{"db": db}
	if redisClient != nil {
		checks["redis"] = redisClient
	}
	h := handler.New(svc, checks, logger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:        12 * time.Hour,
		ExposeHeaders: []string{"Content-Length"},
	}))
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", h.Healthz)

	limiter := httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	v1 := r.Group("/v1",
		auth.StaffAuth(cfg.JWTSigningKey, cfg.JWTIssuer),
		limiter.Middleware(auth.Owner),
	)
	h.Register(v1)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // session close sends mail synchronously
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr, "driver", db.Driver, "notify_mode", cfg.NotifyMode, "mail_enabled", dispatcher.Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced shutdown", "error", err)
	}
	if inline != nil {
		inline.Wait()
	}

	logger.Info("server exited")
	return nil
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
