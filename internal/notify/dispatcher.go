package notify

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Transport delivers messages over one configured endpoint.
type Transport interface {
	Name() string
	// Verify connects, completes the greeting and authenticates without sending.
	Verify(ctx context.Context) error
	Send(ctx context.Context, msg Message) error
}

// Sender delivers a message and reports whether it was accepted.
type Sender interface {
	Send(ctx context.Context, msg Message) bool
}

// Mode names which transport is active.
type Mode int

const (
	ModePrimary Mode = iota
	ModeFallback
)

func (m Mode) String() string {
	if m == ModeFallback {
		return "fallback"
	}
	return "primary"
}

type route struct {
	mode      Mode
	transport Transport
}

// transportState is the dispatcher's only mutable state. The active route
// changes exactly once, from primary to fallback.
type transportState struct {
	active atomic.Pointer[route]
}

// failover installs next if cur is still active. It returns the route that
// is active afterwards.
func (s *transportState) failover(cur, next *route) *route {
	if s.active.CompareAndSwap(cur, next) {
		return next
	}
	return s.active.Load()
}

// DispatcherConfig wires a Dispatcher.
type DispatcherConfig struct {
	// Enabled false turns every Send into a no-op that reports non-delivery.
	Enabled bool
	Primary Transport
	// NewFallback builds a fresh fallback transport; nil disables failover.
	NewFallback func() (Transport, error)
	Logger      *slog.Logger
}

// Dispatcher sends messages with sticky failover. It is safe for concurrent use.
type Dispatcher struct {
	enabled     bool
	state       transportState
	newFallback func() (Transport, error)
	logger      *slog.Logger
}

// NewDispatcher creates a dispatcher starting on the primary transport.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		enabled:     cfg.Enabled && cfg.Primary != nil,
		newFallback: cfg.NewFallback,
		logger:      logger.With("component", "notify"),
	}
	if cfg.Primary != nil {
		d.state.active.Store(&route{mode: ModePrimary, transport: cfg.Primary})
	}
	return d
}

// Enabled reports whether sends reach the network at all.
func (d *Dispatcher) Enabled() bool { return d.enabled }

// Mode returns the currently active transport mode.
func (d *Dispatcher) Mode() Mode {
	if r := d.state.active.Load(); r != nil {
		return r.mode
	}
	return ModePrimary
}

// Send delivers msg and reports whether it was accepted. A transient failure
// on the primary triggers exactly one attempt on a freshly built fallback; if
// that succeeds the fallback stays active for every later send. Sends are not
// cancelled by ctx; only transport timeouts bound them.
func (d *Dispatcher) Send(ctx context.Context, msg Message) bool {
	if !d.enabled {
		d.logger.Debug("mail disabled, dropping message", "to", msg.To, "subject", msg.Subject)
		return false
	}
	if err := msg.validate(); err != nil {
		d.logger.Warn("refusing to send message", "error", err)
		return false
	}
	ctx = context.WithoutCancel(ctx)

	cur := d.state.active.Load()
	err := cur.transport.Send(ctx, msg)
	if err == nil {
		sendsTotal.WithLabelValues(cur.transport.Name(), "sent").Inc()
		return true
	}
	sendsTotal.WithLabelValues(cur.transport.Name(), "failed").Inc()

	if cur.mode == ModeFallback || d.newFallback == nil || !IsTransient(err) {
		d.logger.Warn("notification failed", "transport", cur.transport.Name(), "mode", cur.mode, "to", msg.To, "error", err)
		return false
	}

	d.logger.Warn("primary transport failed, trying fallback", "transport", cur.transport.Name(), "error", err)
	return d.tryFallback(ctx, cur, msg)
}

func (d *Dispatcher) tryFallback(ctx context.Context, cur *route, msg Message) bool {
	fb, err := d.newFallback()
	if err != nil {
		d.logger.Warn("fallback transport unavailable", "error", err)
		return false
	}
	if err := fb.Verify(ctx); err != nil {
		sendsTotal.WithLabelValues(fb.Name(), "failed").Inc()
		d.logger.Warn("fallback transport failed verification", "transport", fb.Name(), "error", err)
		return false
	}
	if err := fb.Send(ctx, msg); err != nil {
		sendsTotal.WithLabelValues(fb.Name(), "failed").Inc()
		d.logger.Warn("fallback transport failed to send", "transport", fb.Name(), "to", msg.To, "error", err)
		return false
	}
	sendsTotal.WithLabelValues(fb.Name(), "sent").Inc()

	active := d.state.failover(cur, &route{mode: ModeFallback, transport: fb})
	if active.transport == fb {
		failoversTotal.Inc()
		d.logger.Warn("switched to fallback transport", "transport", fb.Name())
	}
	return true
}
