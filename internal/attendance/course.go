package attendance

import (
	"context"
	"strings"
	"time"
)

// CreateCourse registers a course for a staff owner.
func (s *Service) CreateCourse(ctx context.Context, ownerID, name string) (Course, error) {
	name = strings.TrimSpace(name)
	if ownerID == "" {
		return Course{}, invalid("owner is required")
	}
	if name == "" {
		return Course{}, invalid("course name is required")
	}
	return s.repo.CreateCourse(ctx, Course{OwnerID: ownerID, Name: name})
}

// CreateSession opens an attendance session of a course on a calendar date.
func (s *Service) CreateSession(ctx context.Context, ownerID, courseID, label string, date time.Time) (Session, error) {
	label = strings.TrimSpace(label)
	if ownerID == "" {
		return Session{}, invalid("owner is required")
	}
	if label == "" {
		return Session{}, invalid("session label is required")
	}
	if date.IsZero() {
		return Session{}, invalid("session date is required")
	}
	course, err := s.repo.GetCourse(ctx, courseID)
	if err != nil {
		return Session{}, err
	}
	if course == nil {
		return Session{}, ErrCourseNotFound
	}
	y, m, d := date.Date()
	return s.repo.CreateSession(ctx, Session{
		OwnerID:  ownerID,
		CourseID: course.ID,
		Label:    label,
		Date:     time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
	})
}

// EnrollInCourse admits an identity to a course. Enrolling twice is harmless.
func (s *Service) EnrollInCourse(ctx context.Context, identityID, courseID string) (Enrollment, error) {
	course, err := s.repo.GetCourse(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	if course == nil {
		return Enrollment{}, ErrCourseNotFound
	}
	if _, err := s.GetIdentity(ctx, identityID); err != nil {
		return Enrollment{}, err
	}
	return s.repo.AddEnrollment(ctx, identityID, courseID)
}
