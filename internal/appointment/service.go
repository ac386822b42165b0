package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/audit"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
)

var (
	ErrScheduleBusy         = errors.New("practitioner schedule is being updated, please retry")
	ErrConcurrentUpdate     = errors.New("appointment was changed by another request")
	ErrAppointmentClosed    = errors.New("appointment is completed or cancelled")
	ErrEmptyClinicalNote    = errors.New("clinical note must not be empty")
	ErrClinicalNoteRequired = errors.New("completing an appointment requires a clinical note")
)

type Service struct {
	repo    Repository
	locker  redisclient.Locker
	engine  *Engine
	cfg     config.Config
	auditor audit.Recorder
	metrics *metrics.SchedulingMetrics
	log     zerolog.Logger
}

type Option func(*Service)

func WithAuditor(r audit.Recorder) Option {
	return func(s *Service) { s.auditor = r }
}

func WithMetrics(m *metrics.SchedulingMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock replaces time.Now for date bound checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.engine = NewEngine(s.cfg.BufferMinutes, now) }
}

func NewService(repo Repository, locker redisclient.Locker, cfg config.Config, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		locker: locker,
		engine: NewEngine(cfg.BufferMinutes, nil),
		cfg:    cfg,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Engine() *Engine {
	return s.engine
}

// Schedule books a new PENDING appointment. Validation and insert run under the
// practitioner-day lock so two concurrent requests cannot both pass the overlap check.
func (s *Service) Schedule(ctx context.Context, c Candidate) (*Appointment, error) {
	c.Date = DateOf(c.Date)

	// Everything except the overlap rule can be decided without the lock.
	if err := s.engine.ValidateCandidate(c, nil, uuid.Nil); err != nil {
		s.metrics.ObserveValidation(string(KindOf(err)))
		return nil, err
	}

	var created *Appointment

	err := s.locker.WithDayLock(ctx, c.PractitionerID, c.Date, func(lockCtx context.Context) error {
		if err := s.validateLocked(lockCtx, c, uuid.Nil); err != nil {
			return err
		}

		appt, err := s.repo.CreateAppointment(lockCtx, Appointment{
			ID:             uuid.New(),
			PatientID:      c.PatientID,
			PractitionerID: c.PractitionerID,
			Date:           c.Date,
			StartTime:      strings.TrimSpace(c.StartTime),
			EndTime:        strings.TrimSpace(c.EndTime),
			ConsultType:    c.ConsultType,
			ReasonCategory: c.ReasonCategory,
			Status:         StatusPending,
		})
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}
		created = appt
		return nil
	})
	if err != nil {
		return nil, s.lockError(err)
	}

	s.logEvent(ctx, audit.ActionCreate, audit.EntityAppointment, created.ID, map[string]any{
		"practitioner_id": created.PractitionerID.String(),
		"patient_id":      created.PatientID.String(),
		"date":            created.Date.Format(DateLayout),
		"start":           created.StartTime,
		"end":             created.EndTime,
	})

	return created, nil
}

// Reschedule replaces the slot, parties and consult details of an open appointment.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, c Candidate) (*Appointment, error) {
	current, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if current.Status.Terminal() {
		return nil, ErrAppointmentClosed
	}

	c.Date = DateOf(c.Date)
	if err := s.engine.ValidateCandidate(c, nil, id); err != nil {
		s.metrics.ObserveValidation(string(KindOf(err)))
		return nil, err
	}

	var updated *Appointment

	err = s.locker.WithDayLock(ctx, c.PractitionerID, c.Date, func(lockCtx context.Context) error {
		if err := s.validateLocked(lockCtx, c, id); err != nil {
			return err
		}

		appt, err := s.repo.UpdateAppointmentSchedule(lockCtx, Appointment{
			ID:             id,
			PatientID:      c.PatientID,
			PractitionerID: c.PractitionerID,
			Date:           c.Date,
			StartTime:      strings.TrimSpace(c.StartTime),
			EndTime:        strings.TrimSpace(c.EndTime),
			ConsultType:    c.ConsultType,
			ReasonCategory: c.ReasonCategory,
		}, current.Status)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return ErrConcurrentUpdate
			}
			return fmt.Errorf("update appointment: %w", err)
		}
		updated = appt
		return nil
	})
	if err != nil {
		return nil, s.lockError(err)
	}

	s.logEvent(ctx, audit.ActionUpdate, audit.EntityAppointment, id, map[string]any{
		"from": map[string]string{
			"date":  current.Date.Format(DateLayout),
			"start": current.StartTime,
			"end":   current.EndTime,
		},
		"to": map[string]string{
			"date":  updated.Date.Format(DateLayout),
			"start": updated.StartTime,
			"end":   updated.EndTime,
		},
	})

	return updated, nil
}

// validateLocked must run while holding the lock for c's practitioner and date.
func (s *Service) validateLocked(ctx context.Context, c Candidate, editingID uuid.UUID) error {
	existing, err := s.repo.ListForPractitionerDay(ctx, c.PractitionerID, c.Date)
	if err != nil {
		s.metrics.ObserveValidation("error")
		return fmt.Errorf("list practitioner appointments: %w", err)
	}

	if err := s.engine.ValidateCandidate(c, existing, editingID); err != nil {
		s.metrics.ObserveValidation(string(KindOf(err)))
		return err
	}

	if _, err := s.repo.GetPatientByID(ctx, c.PatientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return err
		}
		return fmt.Errorf("load patient: %w", err)
	}

	practitioner, err := s.repo.GetPractitionerByID(ctx, c.PractitionerID)
	if err != nil {
		if errors.Is(err, ErrPractitionerNotFound) {
			return err
		}
		return fmt.Errorf("load practitioner: %w", err)
	}

	if s.cfg.EnforceWorkingHours && !practitioner.Covers(c.Date, c.StartTime, c.EndTime) {
		s.metrics.ObserveValidation(string(KindOutsideWorkingHours))
		return ErrOutsideWorkingHours
	}

	s.metrics.ObserveValidation("")
	return nil
}

func (s *Service) lockError(err error) error {
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		s.metrics.ObserveLockContention()
		return ErrScheduleBusy
	}
	return err
}

func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.Transition(ctx, id, StatusConfirmed, nil)
}

func (s *Service) StartAttendance(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.Transition(ctx, id, StatusInProgress, nil)
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.Transition(ctx, id, StatusCancelled, nil)
}

// Transition moves an appointment to another state. Completion goes through CompleteVisit
// because it must store a clinical note in the same step.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to Status, ov *TransitionOverrides) (*Appointment, error) {
	if to == StatusCompleted {
		return nil, ErrClinicalNoteRequired
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	parties, err := s.loadParties(ctx, appt, to)
	if err != nil {
		return nil, err
	}

	next, err := s.engine.ApplyTransition(*appt, to, parties, ov)
	if err != nil {
		s.metrics.ObserveTransition(string(to), string(KindOf(err)))
		return nil, err
	}

	stored, err := s.repo.UpdateAppointmentStatus(ctx, id, appt.Status, next.Status, next.PreviousStatus)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			s.metrics.ObserveTransition(string(to), "stale")
			return nil, ErrConcurrentUpdate
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}
	s.metrics.ObserveTransition(string(to), "")

	s.logEvent(ctx, actionFor(to), audit.EntityAppointment, id, map[string]any{
		"from": string(appt.Status),
		"to":   string(stored.Status),
	})

	return stored, nil
}

// CompleteVisit stores the clinical note and completes the appointment atomically.
func (s *Service) CompleteVisit(ctx context.Context, id uuid.UUID, note ClinicalNote) (*Appointment, *ClinicalRecord, error) {
	if strings.TrimSpace(note.Anamnesis) == "" {
		return nil, nil, ErrEmptyClinicalNote
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load appointment: %w", err)
	}

	parties, err := s.loadParties(ctx, appt, StatusCompleted)
	if err != nil {
		return nil, nil, err
	}

	if _, err := s.engine.ApplyTransition(*appt, StatusCompleted, parties, nil); err != nil {
		s.metrics.ObserveTransition(string(StatusCompleted), string(KindOf(err)))
		return nil, nil, err
	}

	apptID := appt.ID
	stored, record, err := s.repo.CompleteWithRecord(ctx, id, ClinicalRecord{
		PatientID:      appt.PatientID,
		PractitionerID: appt.PractitionerID,
		AppointmentID:  &apptID,
		Date:           s.engine.Today(),
		ClinicalNote:   note,
	})
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			s.metrics.ObserveTransition(string(StatusCompleted), "stale")
			return nil, nil, ErrConcurrentUpdate
		}
		return nil, nil, fmt.Errorf("complete appointment: %w", err)
	}
	s.metrics.ObserveTransition(string(StatusCompleted), "")

	s.logEvent(ctx, audit.ActionComplete, audit.EntityAppointment, id, map[string]any{
		"clinical_record_id": record.ID.String(),
	})
	s.logEvent(ctx, audit.ActionCreate, audit.EntityClinicalRecord, record.ID, map[string]any{
		"appointment_id": id.String(),
		"patient_id":     record.PatientID.String(),
	})

	return stored, record, nil
}

func (s *Service) loadParties(ctx context.Context, appt *Appointment, to Status) (Parties, error) {
	if !requiresActiveParties(to) {
		return Parties{}, nil
	}

	patient, err := s.repo.GetPatientByID(ctx, appt.PatientID)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return Parties{}, err
		}
		return Parties{}, fmt.Errorf("load patient: %w", err)
	}

	practitioner, err := s.repo.GetPractitionerByID(ctx, appt.PractitionerID)
	if err != nil {
		if errors.Is(err, ErrPractitionerNotFound) {
			return Parties{}, err
		}
		return Parties{}, fmt.Errorf("load practitioner: %w", err)
	}

	return Parties{
		PatientActive:      patient.Active,
		PractitionerActive: practitioner.IsActive(),
	}, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteAppointment(ctx, id); err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return err
		}
		return fmt.Errorf("delete appointment: %w", err)
	}
	s.logEvent(ctx, audit.ActionDelete, audit.EntityAppointment, id, nil)
	return nil
}

// SweepStalePending cancels PENDING appointments whose day has already passed. It is
// intended to be called by the worker periodically.
func (s *Service) SweepStalePending(ctx context.Context) (int, error) {
	stale, err := s.repo.FindStalePending(ctx, s.engine.Today())
	if err != nil {
		return 0, fmt.Errorf("find stale pending appointments: %w", err)
	}

	cancelled := 0
	for _, appt := range stale {
		next, err := s.engine.ApplyTransition(appt, StatusCancelled, Parties{}, nil)
		if err != nil {
			s.log.Warn().Err(err).Str("appointment_id", appt.ID.String()).Msg("stale appointment not cancellable")
			continue
		}

		_, err = s.repo.UpdateAppointmentStatus(ctx, appt.ID, appt.Status, next.Status, next.PreviousStatus)
		if err != nil {
			if !errors.Is(err, ErrAppointmentNotFound) {
				s.log.Error().Err(err).Str("appointment_id", appt.ID.String()).Msg("failed to cancel stale appointment")
			}
			continue
		}
		s.metrics.ObserveTransition(string(StatusCancelled), "")
		cancelled++

		s.logEvent(ctx, audit.ActionCancel, audit.EntityAppointment, appt.ID, map[string]any{
			"reason": "stale_pending",
		})
	}

	return cancelled, nil
}

func (s *Service) logEvent(ctx context.Context, action audit.Action, entity audit.Entity, id uuid.UUID, details map[string]any) {
	if s.auditor == nil {
		return
	}

	var payload any
	if details != nil {
		payload = details
	}

	entry, err := audit.NewEntry(ctx, action, entity, id, payload)
	if err != nil {
		s.log.Error().Err(err).Str("action", string(action)).Msg("failed to marshal audit details")
		return
	}

	if err := s.auditor.Record(ctx, entry); err != nil {
		s.log.Error().Err(err).
			Str("action", string(action)).
			Str("entity", string(entity)).
			Str("entity_id", id.String()).
			Msg("failed to record audit entry")
	}
}

func actionFor(to Status) audit.Action {
	switch to {
	case StatusConfirmed:
		return audit.ActionConfirm
	case StatusInProgress:
		return audit.ActionStart
	case StatusCompleted:
		return audit.ActionComplete
	case StatusCancelled:
		return audit.ActionCancel
	}
	return audit.ActionUpdate
}

// Get retrieves an appointment by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

func (s *Service) ListForPractitionerDay(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]Appointment, error) {
	appointments, err := s.repo.ListForPractitionerDay(ctx, practitionerID, DateOf(date))
	if err != nil {
		return nil, fmt.Errorf("list appointments by practitioner: %w", err)
	}
	return appointments, nil
}

// ListByPatient retrieves appointments for a specific patient
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}

	appointments, err := s.repo.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return appointments, nil
}

func (s *Service) ListClinicalRecords(ctx context.Context, patientID uuid.UUID) ([]ClinicalRecord, error) {
	records, err := s.repo.ListClinicalRecordsByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list clinical records: %w", err)
	}
	return records, nil
}
