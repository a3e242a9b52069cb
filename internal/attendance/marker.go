package attendance

import (
	"context"
	"errors"
	"fmt"

	"bioattend/internal/biometric"
	"bioattend/internal/notify"
)

// MarkInput is one attendance attempt.
type MarkInput struct {
	SessionID  string
	IdentityID string
	// Sample is the live fingerprint capture, base64 in any of the
	// accepted encodings. Ignored when verification is bypassed.
	Sample string
}

// MarkResult reports the recorded mark.
type MarkResult struct {
	Mark               Mark              `json:"mark"`
	Outcome            biometric.Outcome `json:"verification"`
	NotificationQueued bool              `json:"notification_queued"`
}

// MarkAttendance records that an identity attended a session. Each
// precondition fails with its own error and nothing is written:
// the session and identity must exist, no prior mark may exist, the
// identity must be enrolled in the session's course, and the sample must
// not be rejected by the verifier.
func (s *Service) MarkAttendance(ctx context.Context, in MarkInput) (MarkResult, error) {
	res, err := s.markAttendance(ctx, in)
	marksTotal.WithLabelValues(resultLabel(err)).Inc()
	return res, err
}

func (s *Service) markAttendance(ctx context.Context, in MarkInput) (MarkResult, error) {
	session, err := s.repo.GetSession(ctx, in.SessionID)
	if err != nil {
		return MarkResult{}, err
	}
	if session == nil {
		return MarkResult{}, ErrSessionNotFound
	}
	identity, err := s.GetIdentity(ctx, in.IdentityID)
	if err != nil {
		return MarkResult{}, err
	}

	marked, err := s.repo.HasMark(ctx, session.ID, identity.ID)
	if err != nil {
		return MarkResult{}, err
	}
	if marked {
		return MarkResult{}, ErrAlreadyMarked
	}
	enrolled, err := s.repo.IsEnrolled(ctx, identity.ID, session.CourseID)
	if err != nil {
		return MarkResult{}, err
	}
	if !enrolled {
		return MarkResult{}, ErrNotEnrolled
	}

	outcome, err := s.verifier.Verify(ctx, in.Sample, identity.Template)
	if errors.Is(err, biometric.ErrSampleRequired) {
		return MarkResult{}, invalid("fingerprint sample is required")
	}
	if err != nil {
		s.logger.Error("fingerprint verification error", "identity_id", identity.ID, "error", err)
		return MarkResult{}, fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}
	if !outcome.Accepted() {
		s.logger.Info("fingerprint rejected", "identity_id", identity.ID, "session_id", session.ID,
			"score", outcome.Score, "threshold", outcome.Threshold)
		return MarkResult{}, &VerificationError{Score: outcome.Score, Threshold: outcome.Threshold}
	}

	mark, err := s.repo.InsertMark(ctx, Mark{SessionID: session.ID, IdentityID: identity.ID})
	if err != nil {
		return MarkResult{}, err
	}
	s.logger.Info("attendance marked", "identity_id", identity.ID, "session_id", session.ID,
		"decision", outcome.Decision.String())

	res := MarkResult{Mark: mark, Outcome: outcome}
	if identity.Contact != "" {
		courseName := ""
		if course, err := s.repo.GetCourse(ctx, session.CourseID); err == nil && course != nil {
			courseName = course.Name
		}
		res.NotificationQueued = s.enqueue(ctx, notify.Confirmation(identity.Name, courseName, session.Label, mark.CreatedAt, identity.Contact))
	}
	return res, nil
}
