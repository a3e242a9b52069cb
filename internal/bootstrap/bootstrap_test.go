package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"bioattend/internal/config"
	"bioattend/internal/notify"
	"bioattend/internal/queue"
	"bioattend/internal/store"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestDispatcherDisabledByDefault(t *testing.T) {
	d := Dispatcher(config.App{SMTP: config.SMTP{Host: "mail.local", Port: 587}}, quiet)
	assert.False(t, d.Enabled())
	assert.False(t, d.Send(context.Background(), notify.Message{To: "a@example.edu", Subject: "s"}))
}

func TestDispatcherNeedsHost(t *testing.T) {
	d := Dispatcher(config.App{MailEnabled: true}, quiet)
	assert.False(t, d.Enabled())

	d = Dispatcher(config.App{MailEnabled: true, SMTP: config.SMTP{Host: "mail.local", Port: 587}}, quiet)
	assert.True(t, d.Enabled())
	assert.Equal(t, notify.ModePrimary, d.Mode())
}

func TestQueueSelection(t *testing.T) {
	_, ok := Queue(config.App{QueueBackend: "memory"}, nil).(*queue.InMemory)
	assert.True(t, ok)

	_, ok = Queue(config.App{QueueBackend: "redis"}, nil).(*queue.InMemory)
	assert.True(t, ok, "no redis client falls back to memory")

	r := store.NewRedis("localhost:0")
	defer r.Close()
	_, ok = Queue(config.App{QueueBackend: "redis", QueueKey: "k"}, r).(*queue.RedisQueue)
	assert.True(t, ok)
}
