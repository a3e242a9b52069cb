package attendance

import (
	"context"
	"log/slog"
	"strings"

	"bioattend/internal/biometric"
	"bioattend/internal/notify"
)

// Options wires the collaborators of a Service. Nil fields get defaults:
// Bypass verification, a sender that never delivers, and no outbox.
type Options struct {
	Verifier biometric.Verifier
	// Sender delivers close-of-session notices synchronously.
	Sender notify.Sender
	// Outbox takes welcome and confirmation messages after commit.
	Outbox notify.Outbox
	// CloseConcurrency bounds parallel absentee notices on session close.
	// Zero means DefaultCloseConcurrency.
	CloseConcurrency int
	Logger           *slog.Logger
}

// DefaultCloseConcurrency is the number of absentee notices sent in parallel.
const DefaultCloseConcurrency = 8

// Service coordinates identity registration, marking and session close.
type Service struct {
	repo     *Repository
	guard    *DedupeGuard
	verifier biometric.Verifier
	sender   notify.Sender
	outbox   notify.Outbox
	logger   *slog.Logger

	closeConcurrency int
}

type discardSender struct{}

func (discardSender) Send(context.Context, notify.Message) bool { return false }

// NewService creates a service backed by a repository.
func NewService(repo *Repository, opts Options) *Service {
	s := &Service{
		repo:     repo,
		guard:    NewDedupeGuard(repo),
		verifier: opts.Verifier,
		sender:   opts.Sender,
		outbox:   opts.Outbox,
		logger:   opts.Logger,

		closeConcurrency: opts.CloseConcurrency,
	}
	if s.closeConcurrency <= 0 {
		s.closeConcurrency = DefaultCloseConcurrency
	}
	if s.verifier == nil {
		s.verifier = biometric.Bypass{}
	}
	if s.sender == nil {
		s.sender = discardSender{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "attendance")
	return s
}

// enqueue hands msg to the outbox and reports whether it was accepted.
// Failures are logged and never escalate.
func (s *Service) enqueue(ctx context.Context, msg notify.Message) bool {
	if s.outbox == nil || strings.TrimSpace(msg.To) == "" {
		return false
	}
	if err := s.outbox.Enqueue(ctx, msg); err != nil {
		s.logger.Warn("notification enqueue failed", "to", msg.To, "subject", msg.Subject, "error", err)
		return false
	}
	return true
}
