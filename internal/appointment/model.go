package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// Terminal reports whether no further transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Blocking reports whether an appointment in state s occupies the practitioner's agenda.
func (s Status) Blocking() bool {
	return !s.Terminal()
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

const DateLayout = "2006-01-02"

// AvailabilityBlock describes a weekly working window. Day is 0 (Sunday) to 6 (Saturday).
type AvailabilityBlock struct {
	Day   int    `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type Patient struct {
	ID         uuid.UUID
	NationalID string
	FirstName  string
	LastName   string
	BirthDate  *time.Time
	Phone      *string
	Email      *string
	Address    *string
	Insurance  *string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Practitioner struct {
	ID                 uuid.UUID
	Name               string
	Email              string
	Specialty          *string
	RegistrationNumber *string
	Phone              *string
	// Active is nil for practitioners created before the flag existed; nil counts as active.
	Active    *bool
	Schedule  []AvailabilityBlock
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Practitioner) IsActive() bool {
	return p.Active == nil || *p.Active
}

type Appointment struct {
	ID             uuid.UUID
	PatientID      uuid.UUID
	PractitionerID uuid.UUID
	Date           time.Time
	StartTime      string
	EndTime        string
	ConsultType    string
	ReasonCategory *string
	Status         Status
	PreviousStatus *Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Candidate is a proposed new or edited appointment.
type Candidate struct {
	PatientID      uuid.UUID
	PractitionerID uuid.UUID
	Date           time.Time
	StartTime      string
	EndTime        string
	ConsultType    string
	ReasonCategory *string
}

// Parties carries the active flags of the people an appointment links.
type Parties struct {
	PatientActive      bool
	PractitionerActive bool
}

// TransitionOverrides lets a caller supply the cancellation snapshot explicitly.
type TransitionOverrides struct {
	PreviousStatus *Status
}

type ClinicalNote struct {
	Anamnesis    string
	PhysicalExam string
	Diagnosis    string
	Treatment    string
	Observations string
}

type ClinicalRecord struct {
	ID             uuid.UUID
	PatientID      uuid.UUID
	PractitionerID uuid.UUID
	AppointmentID  *uuid.UUID
	Date           time.Time
	ClinicalNote
	Locked    bool
	CreatedAt time.Time
}

// DateOf strips the clock from t, keeping its calendar day as a UTC midnight value.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
