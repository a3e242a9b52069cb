package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"bioattend/internal/bootstrap"
	"bioattend/internal/config"
	"bioattend/internal/notify"
	"bioattend/internal/store"
)

// Worker drains queued notifications into the mail dispatcher.
func main() {
	cfg := config.Load()
	logger := bootstrap.Logger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.QueueBackend != "redis" {
		log.Fatalf("worker needs QUEUE_BACKEND=redis, got %q", cfg.QueueBackend)
	}
	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		logger.Warn("redis not reachable yet, consumer will keep retrying", "addr", cfg.RedisAddr)
	}

	dispatcher := bootstrap.Dispatcher(cfg, logger)
	if !dispatcher.Enabled() {
		logger.Warn("mail disabled, queued notifications will be consumed and dropped")
	}

	jobs, err := bootstrap.Queue(cfg, redisClient).Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	logger.Info("worker started", "queue", cfg.QueueKey)
	sent, failed := notify.Drain(ctx, jobs, dispatcher, logger)
	logger.Info("worker stopped", "sent", sent, "failed", failed, "mode", dispatcher.Mode().String())
}
