package attendance

import "context"

// DedupeGuard checks identity uniqueness before a write. Its answers are
// advisory: the unique constraints in storage decide concurrent races and
// the repository maps their violations onto the same errors.
type DedupeGuard struct {
	repo *Repository
}

// NewDedupeGuard creates a guard reading from repo.
func NewDedupeGuard(repo *Repository) *DedupeGuard {
	return &DedupeGuard{repo: repo}
}

// CheckCreate rejects a new identity whose enrollment number is taken within
// the owner's registrations or whose template digest is held by anyone.
func (g *DedupeGuard) CheckCreate(ctx context.Context, ownerID, enrollmentNo, digest string) error {
	existing, err := g.repo.FindIdentityByEnrollmentNo(ctx, ownerID, enrollmentNo)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrDuplicateEnrollmentNumber
	}
	return g.checkDigest(ctx, digest, "")
}

// CheckUpdate rejects a replacement template whose digest belongs to an
// identity other than identityID.
func (g *DedupeGuard) CheckUpdate(ctx context.Context, identityID, digest string) error {
	return g.checkDigest(ctx, digest, identityID)
}

func (g *DedupeGuard) checkDigest(ctx context.Context, digest, exclude string) error {
	holder, err := g.repo.FindIdentityByDigest(ctx, digest)
	if err != nil {
		return err
	}
	if holder != nil && holder.ID != exclude {
		return ErrDuplicateBiometric
	}
	return nil
}
