package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"bioattend/internal/queue"
)

// JobType tags notification jobs on the queue.
const JobType = "notification"

// Outbox accepts messages for delivery after the triggering write has
// committed. Enqueue never reports delivery, only hand-off.
type Outbox interface {
	Enqueue(ctx context.Context, msg Message) error
}

// Async hands each message to a Sender on its own goroutine.
type Async struct {
	sender Sender
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewAsync creates an in-process outbox.
func NewAsync(sender Sender, logger *slog.Logger) *Async {
	if logger == nil {
		logger = slog.Default()
	}
	return &Async{sender: sender, logger: logger.With("component", "outbox")}
}

// Enqueue starts the send and returns immediately.
func (a *Async) Enqueue(ctx context.Context, msg Message) error {
	ctx = context.WithoutCancel(ctx)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if !a.sender.Send(ctx, msg) {
			a.logger.Warn("notification not delivered", "to", msg.To, "subject", msg.Subject)
		}
	}()
	return nil
}

// Wait blocks until every started send has finished.
func (a *Async) Wait() { a.wg.Wait() }

// Queued publishes messages for the worker process.
type Queued struct {
	q queue.Queue
}

// NewQueued creates a queue-backed outbox.
func NewQueued(q queue.Queue) *Queued {
	return &Queued{q: q}
}

// Enqueue publishes msg as a notification job.
func (o *Queued) Enqueue(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return o.q.Publish(ctx, queue.Message{Type: JobType, Body: body})
}

// Drain sends every notification job read from jobs until the channel closes.
// Jobs of other types and undecodable bodies are skipped.
func Drain(ctx context.Context, jobs <-chan queue.Message, sender Sender, logger *slog.Logger) (sent, failed int) {
	if logger == nil {
		logger = slog.Default()
	}
	for job := range jobs {
		if job.Type != JobType {
			continue
		}
		var msg Message
		if err := json.Unmarshal(job.Body, &msg); err != nil {
			logger.Warn("dropping malformed notification job", "error", err)
			failed++
			continue
		}
		if sender.Send(ctx, msg) {
			sent++
		} else {
			failed++
		}
	}
	return sent, failed
}
