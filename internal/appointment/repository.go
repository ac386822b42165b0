package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound      = errors.New("patient not found")
	ErrPractitionerNotFound = errors.New("practitioner not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetPractitionerByID(ctx context.Context, id uuid.UUID) (*Practitioner, error)
	CreatePatient(ctx context.Context, p Patient) (*Patient, error)
	CreatePractitioner(ctx context.Context, p Practitioner) (*Practitioner, error)
	SetPatientActive(ctx context.Context, id uuid.UUID, active bool) (*Patient, error)
	SetPractitionerActive(ctx context.Context, id uuid.UUID, active bool) (*Practitioner, error)
	UpdatePractitionerSchedule(ctx context.Context, id uuid.UUID, blocks []AvailabilityBlock) (*Practitioner, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// For conflict checks
	ListForPractitionerDay(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]Appointment, error)

	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)

	// Creation and updates. Updates are conditional on the stored status still being
	// expected and return ErrAppointmentNotFound when it is not.
	CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	UpdateAppointmentSchedule(ctx context.Context, a Appointment, expected Status) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status, previous *Status) (*Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error

	// CompleteWithRecord stores rec and moves the appointment from IN_PROGRESS to
	// COMPLETED in one transaction.
	CompleteWithRecord(ctx context.Context, id uuid.UUID, rec ClinicalRecord) (*Appointment, *ClinicalRecord, error)
	ListClinicalRecordsByPatient(ctx context.Context, patientID uuid.UUID) ([]ClinicalRecord, error)

	// Stale worker
	FindStalePending(ctx context.Context, before time.Time) ([]Appointment, error)
}
