package attendance

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"bioattend/internal/biometric"
	"bioattend/internal/notify"
)

// CreateIdentityInput is the enrollment request as received from the boundary.
type CreateIdentityInput struct {
	OwnerID      string
	Name         string
	EnrollmentNo string
	Contact      string
	Template     string
}

// CreateIdentityResult reports the new identity and whether a welcome
// message was handed off for delivery.
type CreateIdentityResult struct {
	Identity      Identity `json:"identity"`
	WelcomeQueued bool     `json:"welcome_queued"`
}

// UpdateIdentityInput carries the profile fields to change; nil means keep.
type UpdateIdentityInput struct {
	Name     *string
	Contact  *string
	Template *string
}

func fingerprint(raw string) (biometric.Template, error) {
	tpl, err := biometric.Fingerprint(raw)
	if err != nil {
		if errors.Is(err, biometric.ErrInvalidTemplate) {
			return biometric.Template{}, ErrInvalidTemplate
		}
		return biometric.Template{}, err
	}
	return tpl, nil
}

func validContact(contact string) error {
	if contact == "" {
		return nil
	}
	if _, err := mail.ParseAddress(contact); err != nil {
		return invalid("contact %q is not an email address", contact)
	}
	return nil
}

// CreateIdentity registers a person: the template is canonicalized and
// hashed, both uniqueness rules are checked, the row is written, and a
// welcome message is queued once the write has committed.
func (s *Service) CreateIdentity(ctx context.Context, in CreateIdentityInput) (CreateIdentityResult, error) {
	res, err := s.createIdentity(ctx, in)
	enrollmentsTotal.WithLabelValues(resultLabel(err)).Inc()
	return res, err
}

func (s *Service) createIdentity(ctx context.Context, in CreateIdentityInput) (CreateIdentityResult, error) {
	in.OwnerID = strings.TrimSpace(in.OwnerID)
	in.Name = strings.TrimSpace(in.Name)
	in.EnrollmentNo = strings.TrimSpace(in.EnrollmentNo)
	in.Contact = strings.TrimSpace(in.Contact)
	switch {
	case in.OwnerID == "":
		return CreateIdentityResult{}, invalid("owner is required")
	case in.Name == "":
		return CreateIdentityResult{}, invalid("name is required")
	case in.EnrollmentNo == "":
		return CreateIdentityResult{}, invalid("enrollment number is required")
	}
	if err := validContact(in.Contact); err != nil {
		return CreateIdentityResult{}, err
	}
	tpl, err := fingerprint(in.Template)
	if err != nil {
		return CreateIdentityResult{}, err
	}

	if err := s.guard.CheckCreate(ctx, in.OwnerID, in.EnrollmentNo, tpl.Digest); err != nil {
		return CreateIdentityResult{}, err
	}
	identity, err := s.repo.InsertIdentity(ctx, Identity{
		OwnerID:        in.OwnerID,
		Name:           in.Name,
		EnrollmentNo:   in.EnrollmentNo,
		Contact:        in.Contact,
		Template:       tpl.Raw,
		TemplateDigest: tpl.Digest,
	})
	if err != nil {
		return CreateIdentityResult{}, err
	}
	s.logger.Info("identity registered", "identity_id", identity.ID, "owner_id", identity.OwnerID, "digest", identity.TemplateDigest[:12])

	queued := s.enqueue(ctx, notify.Welcome(identity.Name, identity.EnrollmentNo, identity.Contact))
	return CreateIdentityResult{Identity: identity, WelcomeQueued: queued}, nil
}

// GetIdentity returns an identity or ErrIdentityNotFound.
func (s *Service) GetIdentity(ctx context.Context, id string) (Identity, error) {
	identity, err := s.repo.GetIdentity(ctx, id)
	if err != nil {
		return Identity{}, err
	}
	if identity == nil {
		return Identity{}, ErrIdentityNotFound
	}
	return *identity, nil
}

// UpdateIdentity changes profile fields. A replaced template is re-hashed
// and re-checked for uniqueness against every other identity.
func (s *Service) UpdateIdentity(ctx context.Context, id string, in UpdateIdentityInput) (Identity, error) {
	identity, err := s.GetIdentity(ctx, id)
	if err != nil {
		return Identity{}, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return Identity{}, invalid("name cannot be empty")
		}
		identity.Name = name
	}
	if in.Contact != nil {
		contact := strings.TrimSpace(*in.Contact)
		if err := validContact(contact); err != nil {
			return Identity{}, err
		}
		identity.Contact = contact
	}
	if in.Template != nil {
		tpl, err := fingerprint(*in.Template)
		if err != nil {
			return Identity{}, err
		}
		if tpl.Digest != identity.TemplateDigest {
			if err := s.guard.CheckUpdate(ctx, identity.ID, tpl.Digest); err != nil {
				return Identity{}, err
			}
		}
		identity.Template = tpl.Raw
		identity.TemplateDigest = tpl.Digest
	}

	if err := s.repo.UpdateIdentity(ctx, identity); err != nil {
		return Identity{}, err
	}
	return identity, nil
}

// DeleteIdentity removes an identity and everything referencing it atomically.
func (s *Service) DeleteIdentity(ctx context.Context, id string) error {
	if err := s.repo.DeleteIdentity(ctx, id); err != nil {
		return err
	}
	s.logger.Info("identity deleted", "identity_id", id)
	return nil
}
