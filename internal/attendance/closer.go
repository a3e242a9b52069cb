package attendance

import (
	"context"
	"strconv"
	"sync"

	"bioattend/internal/notify"
)

// AbsenteeResult is the notification outcome for one absent identity.
type AbsenteeResult struct {
	IdentityID string `json:"identity_id"`
	Delivered  bool   `json:"delivered"`
}

// CloseResult summarizes a session close.
type CloseResult struct {
	SessionID   string           `json:"session_id"`
	AbsentCount int              `json:"absent_count"`
	Results     []AbsenteeResult `json:"results"`
}

// CloseSession computes the enrolled identities without a mark in the
// session and sends each of them a missed-session notice. Delivery
// failures are reported per absentee and never fail the close. Closing
// writes nothing, so it can be repeated.
//
// At most Options.CloseConcurrency notices are in flight at once, so the
// call takes roughly ceil(absentees/CloseConcurrency) times the slowest
// send; with unreachable SMTP endpoints a send is bounded by the transport
// timeouts of the primary plus one fallback attempt.
func (s *Service) CloseSession(ctx context.Context, sessionID string) (CloseResult, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return CloseResult{}, err
	}
	if session == nil {
		return CloseResult{}, ErrSessionNotFound
	}

	enrolled, err := s.repo.ListEnrolledIdentities(ctx, session.CourseID)
	if err != nil {
		return CloseResult{}, err
	}
	marks, err := s.repo.ListMarks(ctx, session.ID)
	if err != nil {
		return CloseResult{}, err
	}
	present := make(map[string]struct{}, len(marks))
	for _, m := range marks {
		present[m.IdentityID] = struct{}{}
	}

	courseName := ""
	if course, err := s.repo.GetCourse(ctx, session.CourseID); err != nil {
		return CloseResult{}, err
	} else if course != nil {
		courseName = course.Name
	}

	var absent []Identity
	for _, identity := range enrolled {
		if _, ok := present[identity.ID]; !ok {
			absent = append(absent, identity)
		}
	}

	res := CloseResult{SessionID: session.ID, AbsentCount: len(absent), Results: make([]AbsenteeResult, len(absent))}
	sem := make(chan struct{}, s.closeConcurrency)
	var wg sync.WaitGroup
	for i, identity := range absent {
		res.Results[i].IdentityID = identity.ID
		if identity.Contact == "" {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, identity Identity) {
			defer wg.Done()
			defer func() { <-sem }()
			msg := notify.Missed(identity.Name, courseName, session.Label, session.Date, identity.Contact)
			res.Results[i].Delivered = s.sender.Send(ctx, msg)
		}(i, identity)
	}
	wg.Wait()
	for _, r := range res.Results {
		absenteesTotal.WithLabelValues(strconv.FormatBool(r.Delivered)).Inc()
	}

	s.logger.Info("session closed", "session_id", session.ID, "enrolled", len(enrolled), "absent", res.AbsentCount)
	return res, nil
}
