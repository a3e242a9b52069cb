package store

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// Named uniqueness constraints shared by both schemas.
const (
	ConstraintIdentityDigest       = "uq_identities_digest"
	ConstraintIdentityEnrollmentNo = "uq_identities_owner_enrollment"
	ConstraintMarkSessionIdentity  = "uq_marks_session_identity"
	ConstraintEnrollmentPrimaryKey = "enrollments_pkey"
)

// sqlite reports the violated columns rather than the index name.
var sqliteColumns = map[string]string{
	"identities.template_digest":                     ConstraintIdentityDigest,
	"identities.owner_id, identities.enrollment_no":  ConstraintIdentityEnrollmentNo,
	"marks.session_id, marks.identity_id":            ConstraintMarkSessionIdentity,
	"enrollments.identity_id, enrollments.course_id": ConstraintEnrollmentPrimaryKey,
}

// UniqueViolation reports whether err is a unique-constraint violation and
// which named constraint was hit. The name is empty when it is unknown.
func UniqueViolation(err error) (string, bool) {
	if err == nil {
		return "", false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != "23505" {
			return "", false
		}
		return pgErr.ConstraintName, true
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		if liteErr.ExtendedCode != sqlite3.ErrConstraintUnique && liteErr.ExtendedCode != sqlite3.ErrConstraintPrimaryKey {
			return "", false
		}
		msg := liteErr.Error()
		if i := strings.Index(msg, "constraint failed: "); i >= 0 {
			return sqliteColumns[strings.TrimSpace(msg[i+len("constraint failed: "):])], true
		}
		return "", true
	}
	return "", false
}
