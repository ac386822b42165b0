package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/audit"
)

// SetPatientActive toggles whether the patient may take part in confirmed and
// attended appointments. Existing bookings are left as they are.
func (s *Service) SetPatientActive(ctx context.Context, id uuid.UUID, active bool) (*Patient, error) {
	p, err := s.repo.SetPatientActive(ctx, id, active)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("set patient active: %w", err)
	}

	s.logEvent(ctx, audit.ActionUpdate, audit.EntityPatient, id, map[string]any{"active": active})
	return p, nil
}

func (s *Service) SetPractitionerActive(ctx context.Context, id uuid.UUID, active bool) (*Practitioner, error) {
	p, err := s.repo.SetPractitionerActive(ctx, id, active)
	if err != nil {
		if errors.Is(err, ErrPractitionerNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("set practitioner active: %w", err)
	}

	s.logEvent(ctx, audit.ActionUpdate, audit.EntityPractitioner, id, map[string]any{"active": active})
	return p, nil
}

// UpdatePractitionerSchedule replaces the practitioner's working hours. Appointments
// already booked outside the new hours are kept.
func (s *Service) UpdatePractitionerSchedule(ctx context.Context, id uuid.UUID, blocks []AvailabilityBlock) (*Practitioner, error) {
	if err := ValidateSchedule(blocks); err != nil {
		return nil, err
	}

	p, err := s.repo.UpdatePractitionerSchedule(ctx, id, blocks)
	if err != nil {
		if errors.Is(err, ErrPractitionerNotFound) || errors.Is(err, ErrInvalidSchedule) {
			return nil, err
		}
		return nil, fmt.Errorf("update practitioner schedule: %w", err)
	}

	s.logEvent(ctx, audit.ActionUpdate, audit.EntityPractitioner, id, map[string]any{"schedule": blocks})
	return p, nil
}
