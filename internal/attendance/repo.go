package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bioattend/internal/store"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository persists identities, courses, sessions, enrollments and marks.
// Lookups return nil, nil when the row does not exist.
type Repository struct {
	db *store.DB
}

// NewRepository creates a repo.
func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) q(query string) string { return r.db.Rebind(query) }

// conflictFor returns the domain conflict matching a storage uniqueness
// violation, the same error the pre-check would have reported. It returns
// nil for anything else.
func conflictFor(err error) error {
	name, ok := store.UniqueViolation(err)
	if !ok {
		return nil
	}
	switch name {
	case store.ConstraintIdentityDigest:
		return ErrDuplicateBiometric
	case store.ConstraintIdentityEnrollmentNo:
		return ErrDuplicateEnrollmentNumber
	case store.ConstraintMarkSessionIdentity:
		return ErrAlreadyMarked
	default:
		return nil
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// -------- Courses & sessions --------

// CreateCourse inserts a course.
func (r *Repository) CreateCourse(ctx context.Context, c Course) (Course, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Client.ExecContext(ctx, r.q(`
		INSERT INTO courses (id, owner_id, name, created_at)
		VALUES (?, ?, ?, ?)
	`), c.ID, c.OwnerID, c.Name, c.CreatedAt)
	if err != nil {
		return Course{}, fmt.Errorf("insert course: %w", err)
	}
	return c, nil
}

// GetCourse returns a course by id.
func (r *Repository) GetCourse(ctx context.Context, id string) (*Course, error) {
	row := r.db.Client.QueryRowContext(ctx, r.q(`
		SELECT id, owner_id, name, created_at FROM courses WHERE id = ?
	`), id)
	var c Course
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get course: %w", err)
	}
	return &c, nil
}

// CreateSession inserts a session.
func (r *Repository) CreateSession(ctx context.Context, s Session) (Session, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Client.ExecContext(ctx, r.q(`
		INSERT INTO sessions (id, owner_id, course_id, label, held_on, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), s.ID, s.OwnerID, s.CourseID, s.Label, s.Date, s.CreatedAt)
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	return s, nil
}

// GetSession returns a session by id.
func (r *Repository) GetSession(ctx context.Context, id string) (*Session, error) {
	row := r.db.Client.QueryRowContext(ctx, r.q(`
		SELECT id, owner_id, course_id, label, held_on, created_at FROM sessions WHERE id = ?
	`), id)
	var s Session
	if err := row.Scan(&s.ID, &s.OwnerID, &s.CourseID, &s.Label, &s.Date, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

// -------- Identities --------

const identityColumns = `id, owner_id, name, enrollment_no, contact, template, template_digest, created_at`

func scanIdentity(row interface{ Scan(...any) error }) (Identity, error) {
	var (
		i       Identity
		contact sql.NullString
	)
	err := row.Scan(&i.ID, &i.OwnerID, &i.Name, &i.EnrollmentNo, &contact, &i.Template, &i.TemplateDigest, &i.CreatedAt)
	i.Contact = contact.String
	return i, err
}

func (r *Repository) findIdentity(ctx context.Context, where string, args ...any) (*Identity, error) {
	row := r.db.Client.QueryRowContext(ctx, r.q(`SELECT `+identityColumns+` FROM identities WHERE `+where), args...)
	i, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return &i, nil
}

// GetIdentity returns an identity by id.
func (r *Repository) GetIdentity(ctx context.Context, id string) (*Identity, error) {
	return r.findIdentity(ctx, `id = ?`, id)
}

// FindIdentityByEnrollmentNo looks up an identity within one owner's registrations.
func (r *Repository) FindIdentityByEnrollmentNo(ctx context.Context, ownerID, enrollmentNo string) (*Identity, error) {
	return r.findIdentity(ctx, `owner_id = ? AND enrollment_no = ?`, ownerID, enrollmentNo)
}

// FindIdentityByDigest looks up the identity holding a template digest, across all owners.
func (r *Repository) FindIdentityByDigest(ctx context.Context, digest string) (*Identity, error) {
	return r.findIdentity(ctx, `template_digest = ?`, digest)
}

// InsertIdentity writes a new identity. Uniqueness violations surface as
// ErrDuplicateBiometric or ErrDuplicateEnrollmentNumber.
func (r *Repository) InsertIdentity(ctx context.Context, i Identity) (Identity, error) {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Client.ExecContext(ctx, r.q(`
		INSERT INTO identities (`+identityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), i.ID, i.OwnerID, i.Name, i.EnrollmentNo, nullString(i.Contact), i.Template, i.TemplateDigest, i.CreatedAt)
	if err != nil {
		if conflict := conflictFor(err); conflict != nil {
			return Identity{}, conflict
		}
		return Identity{}, fmt.Errorf("insert identity: %w", err)
	}
	return i, nil
}

// UpdateIdentity rewrites the mutable profile fields of an identity.
func (r *Repository) UpdateIdentity(ctx context.Context, i Identity) error {
	res, err := r.db.Client.ExecContext(ctx, r.q(`
		UPDATE identities
		SET name = ?, contact = ?, template = ?, template_digest = ?
		WHERE id = ?
	`), i.Name, nullString(i.Contact), i.Template, i.TemplateDigest, i.ID)
	if err != nil {
		if conflict := conflictFor(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("update identity: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrIdentityNotFound
	}
	return nil
}

// DeleteIdentity removes an identity with its marks and enrollments in one
// transaction, children first. Nothing is deleted unless everything is.
func (r *Repository) DeleteIdentity(ctx context.Context, id string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, r.q(`DELETE FROM marks WHERE identity_id = ?`), id); err != nil {
			return fmt.Errorf("delete marks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, r.q(`DELETE FROM enrollments WHERE identity_id = ?`), id); err != nil {
			return fmt.Errorf("delete enrollments: %w", err)
		}
		res, err := tx.ExecContext(ctx, r.q(`DELETE FROM identities WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete identity: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete identity: %w", err)
		}
		if n == 0 {
			return ErrIdentityNotFound
		}
		return nil
	})
}

// -------- Enrollments --------

// AddEnrollment links an identity to a course. Re-adding an existing link is a no-op.
func (r *Repository) AddEnrollment(ctx context.Context, identityID, courseID string) (Enrollment, error) {
	e := Enrollment{IdentityID: identityID, CourseID: courseID, CreatedAt: time.Now().UTC()}
	_, err := r.db.Client.ExecContext(ctx, r.q(`
		INSERT INTO enrollments (identity_id, course_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (identity_id, course_id) DO NOTHING
	`), e.IdentityID, e.CourseID, e.CreatedAt)
	if err != nil {
		return Enrollment{}, fmt.Errorf("insert enrollment: %w", err)
	}
	return e, nil
}

// IsEnrolled reports whether the identity is enrolled in the course.
func (r *Repository) IsEnrolled(ctx context.Context, identityID, courseID string) (bool, error) {
	return r.exists(ctx, r.db.Client, `SELECT 1 FROM enrollments WHERE identity_id = ? AND course_id = ?`, identityID, courseID)
}

// ListEnrolledIdentities returns every identity enrolled in a course.
func (r *Repository) ListEnrolledIdentities(ctx context.Context, courseID string) ([]Identity, error) {
	rows, err := r.db.Client.QueryContext(ctx, r.q(`
		SELECT i.id, i.owner_id, i.name, i.enrollment_no, i.contact, i.template, i.template_digest, i.created_at
		FROM identities i
		JOIN enrollments e ON e.identity_id = i.id
		WHERE e.course_id = ?
		ORDER BY i.enrollment_no, i.id
	`), courseID)
	if err != nil {
		return nil, fmt.Errorf("list enrolled: %w", err)
	}
	defer rows.Close()

	var res []Identity
	for rows.Next() {
		i, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, i)
	}
	return res, rows.Err()
}

// -------- Marks --------

// HasMark reports whether the identity is already marked in the session.
func (r *Repository) HasMark(ctx context.Context, sessionID, identityID string) (bool, error) {
	return r.exists(ctx, r.db.Client, `SELECT 1 FROM marks WHERE session_id = ? AND identity_id = ?`, sessionID, identityID)
}

// InsertMark writes a mark. A concurrent duplicate surfaces as ErrAlreadyMarked.
func (r *Repository) InsertMark(ctx context.Context, m Mark) (Mark, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Client.ExecContext(ctx, r.q(`
		INSERT INTO marks (id, session_id, identity_id, created_at)
		VALUES (?, ?, ?, ?)
	`), m.ID, m.SessionID, m.IdentityID, m.CreatedAt)
	if err != nil {
		if conflict := conflictFor(err); conflict != nil {
			return Mark{}, conflict
		}
		return Mark{}, fmt.Errorf("insert mark: %w", err)
	}
	return m, nil
}

// ListMarks returns the marks recorded for a session.
func (r *Repository) ListMarks(ctx context.Context, sessionID string) ([]Mark, error) {
	rows, err := r.db.Client.QueryContext(ctx, r.q(`
		SELECT id, session_id, identity_id, created_at
		FROM marks WHERE session_id = ?
		ORDER BY created_at
	`), sessionID)
	if err != nil {
		return nil, fmt.Errorf("list marks: %w", err)
	}
	defer rows.Close()

	var res []Mark
	for rows.Next() {
		var m Mark
		if err := rows.Scan(&m.ID, &m.SessionID, &m.IdentityID, &m.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

func (r *Repository) exists(ctx context.Context, db querier, query string, args ...any) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, r.q(query), args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
