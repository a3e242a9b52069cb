package notify

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bioattend/internal/queue"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []Message
	ok   bool
}

func (r *recordingSender) Send(_ context.Context, msg Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return r.ok
}

func TestAsyncOutbox(t *testing.T) {
	sender := &recordingSender{ok: false}
	out := NewAsync(sender, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, out.Enqueue(ctx, testMsg))
	cancel()
	out.Wait()

	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Len(t, sender.msgs, 1)
	assert.Equal(t, testMsg, sender.msgs[0])
}

func TestQueuedOutboxAndDrain(t *testing.T) {
	q := queue.NewInMemory(8)
	out := NewQueued(q)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, out.Enqueue(ctx, testMsg))
	require.NoError(t, q.Publish(ctx, queue.Message{Type: "other", Body: []byte("x")}))
	require.NoError(t, q.Publish(ctx, queue.Message{Type: JobType, Body: []byte("{")}))
	body, _ := json.Marshal(Message{To: "second@example.edu", Subject: "s"})
	require.NoError(t, q.Publish(ctx, queue.Message{Type: JobType, Body: body}))

	jobs, err := q.Consume(ctx)
	require.NoError(t, err)

	sender := &recordingSender{ok: true}
	done := make(chan struct{})
	var sent, failed int
	go func() {
		sent, failed = Drain(ctx, jobs, sender, nil)
		close(done)
	}()

	require.Eventually(t, func() bool {
		sender.mu.Lock()
		defer sender.mu.Unlock()
		return len(sender.msgs) == 2
	}, time.Second, 10*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 2, sent)
	assert.Equal(t, 1, failed)
	assert.Equal(t, "second@example.edu", sender.msgs[1].To)
}

func TestMessageBuilders(t *testing.T) {
	w := Welcome("Ada", "E-17", "ada@example.edu")
	assert.Equal(t, "ada@example.edu", w.To)
	assert.Contains(t, w.Body, "E-17")

	at := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	c := Confirmation("Ada", "Algebra", "Week 1", at, "ada@example.edu")
	assert.Contains(t, c.Subject, "Algebra")
	assert.Contains(t, c.Body, "Week 1")

	m := Missed("Ada", "Algebra", "Week 2", at, "ada@example.edu")
	assert.Contains(t, m.Body, "2026-03-04")
	assert.NoError(t, m.validate())
}
