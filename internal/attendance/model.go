package attendance

import "time"

// Identity is a person registered by a staff owner with a unique fingerprint template.
type Identity struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	Name           string    `json:"name"`
	EnrollmentNo   string    `json:"enrollment_no"`
	Contact        string    `json:"contact,omitempty"`
	Template       []byte    `json:"-"`
	TemplateDigest string    `json:"template_digest"`
	CreatedAt      time.Time `json:"created_at"`
}

// Course groups the identities allowed to be marked in its sessions.
type Course struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Enrollment links an identity to a course.
type Enrollment struct {
	IdentityID string    `json:"identity_id"`
	CourseID   string    `json:"course_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Session is one attendance event of a course.
type Session struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	CourseID  string    `json:"course_id"`
	Label     string    `json:"label"`
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"created_at"`
}

// Mark records that an identity was present in a session.
type Mark struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	IdentityID string    `json:"identity_id"`
	CreatedAt  time.Time `json:"created_at"`
}
