// Package bootstrap turns configuration into the shared runtime pieces
// used by both the API and the worker binaries.
package bootstrap

import (
	"log/slog"
	"os"

	"bioattend/internal/config"
	"bioattend/internal/notify"
	"bioattend/internal/queue"
	"bioattend/internal/store"
)

// Logger installs a JSON slog handler on stderr as the default logger.
func Logger(cfg config.App) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Env == "dev" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func endpoint(name string, c config.SMTP) notify.Endpoint {
	return notify.Endpoint{
		Name:            name,
		Host:            c.Host,
		Port:            c.Port,
		Security:        notify.Security(c.Security),
		Username:        c.Username,
		Password:        c.Password,
		ConnectTimeout:  c.ConnectTimeout,
		GreetingTimeout: c.GreetingTimeout,
		SocketTimeout:   c.SocketTimeout,
	}
}

// Dispatcher builds the notification dispatcher. The primary SMTP
// transport is reused; a fallback is constructed afresh on every
// failover attempt.
func Dispatcher(cfg config.App, logger *slog.Logger) *notify.Dispatcher {
	dc := notify.DispatcherConfig{
		Enabled: cfg.MailEnabled && cfg.SMTP.Host != "",
		Primary: notify.NewSMTPTransport(endpoint("primary", cfg.SMTP), cfg.MailFrom),
		Logger:  logger,
	}
	if cfg.HasFallback() {
		fallback := endpoint("fallback", cfg.SMTPFallback)
		dc.NewFallback = func() (notify.Transport, error) {
			return notify.NewSMTPTransport(fallback, cfg.MailFrom), nil
		}
	}
	if cfg.MailEnabled && cfg.SMTP.Host == "" {
		logger.Warn("MAIL_ENABLED is set but SMTP_HOST is empty, notifications disabled")
	}
	return notify.NewDispatcher(dc)
}

// Queue selects the notification queue backend.
func Queue(cfg config.App, redis *store.Redis) queue.Queue {
	if cfg.QueueBackend == "redis" && redis != nil {
		return queue.NewRedisQueue(redis.Client, cfg.QueueKey)
	}
	return queue.NewInMemory(256)
}
