package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
)

type AppointmentRequest struct {
	PatientID      string  `json:"patient_id"`
	PractitionerID string  `json:"practitioner_id"`
	Date           string  `json:"date"`
	StartTime      string  `json:"start_time"`
	EndTime        string  `json:"end_time"`
	ConsultType    string  `json:"consult_type"`
	ReasonCategory *string `json:"reason_category,omitempty"`
}

type CancelRequest struct {
	PreviousStatus *string `json:"previous_status,omitempty"`
}

type CompleteRequest struct {
	Anamnesis    string `json:"anamnesis"`
	PhysicalExam string `json:"physical_exam"`
	Diagnosis    string `json:"diagnosis"`
	Treatment    string `json:"treatment"`
	Observations string `json:"observations"`
}

type ActiveRequest struct {
	Active *bool `json:"active"`
}

type AvailabilityBlockDTO struct {
	Day   int    `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type ScheduleRequest struct {
	Schedule []AvailabilityBlockDTO `json:"schedule"`
}

type PatientResponse struct {
	ID         uuid.UUID `json:"id"`
	NationalID string    `json:"national_id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Phone      *string   `json:"phone,omitempty"`
	Email      *string   `json:"email,omitempty"`
	Active     bool      `json:"active"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type PractitionerResponse struct {
	ID        uuid.UUID              `json:"id"`
	Name      string                 `json:"name"`
	Specialty *string                `json:"specialty,omitempty"`
	Active    bool                   `json:"active"`
	Schedule  []AvailabilityBlockDTO `json:"schedule"`
	UpdatedAt time.Time              `json:"updated_at"`
}

type AppointmentResponse struct {
	ID             uuid.UUID `json:"id"`
	PatientID      uuid.UUID `json:"patient_id"`
	PractitionerID uuid.UUID `json:"practitioner_id"`
	Date           string    `json:"date"`
	StartTime      string    `json:"start_time"`
	EndTime        string    `json:"end_time"`
	ConsultType    string    `json:"consult_type"`
	ReasonCategory *string   `json:"reason_category,omitempty"`
	Status         string    `json:"status"`
	PreviousStatus *string   `json:"previous_status,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ClinicalRecordResponse struct {
	ID             uuid.UUID  `json:"id"`
	PatientID      uuid.UUID  `json:"patient_id"`
	PractitionerID uuid.UUID  `json:"practitioner_id"`
	AppointmentID  *uuid.UUID `json:"appointment_id,omitempty"`
	Date           string     `json:"date"`
	Anamnesis      string     `json:"anamnesis"`
	PhysicalExam   string     `json:"physical_exam"`
	Diagnosis      string     `json:"diagnosis"`
	Treatment      string     `json:"treatment"`
	Observations   string     `json:"observations"`
	Locked         bool       `json:"locked"`
}

type CompleteResponse struct {
	Appointment    AppointmentResponse    `json:"appointment"`
	ClinicalRecord ClinicalRecordResponse `json:"clinical_record"`
}

type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

type AuditEntryResponse struct {
	ID         uuid.UUID       `json:"id"`
	ActorID    *uuid.UUID      `json:"actor_id,omitempty"`
	Action     string          `json:"action"`
	Entity     string          `json:"entity"`
	EntityID   uuid.UUID       `json:"entity_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Details    json.RawMessage `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error        string     `json:"error"`
	Details      string     `json:"details,omitempty"`
	ConflictWith *uuid.UUID `json:"conflict_with,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:             a.ID,
		PatientID:      a.PatientID,
		PractitionerID: a.PractitionerID,
		Date:           a.Date.Format(appointment.DateLayout),
		StartTime:      a.StartTime,
		EndTime:        a.EndTime,
		ConsultType:    a.ConsultType,
		ReasonCategory: a.ReasonCategory,
		Status:         string(a.Status),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
	if a.PreviousStatus != nil {
		prev := string(*a.PreviousStatus)
		resp.PreviousStatus = &prev
	}
	return resp
}

func toRecordResponse(r *appointment.ClinicalRecord) ClinicalRecordResponse {
	return ClinicalRecordResponse{
		ID:             r.ID,
		PatientID:      r.PatientID,
		PractitionerID: r.PractitionerID,
		AppointmentID:  r.AppointmentID,
		Date:           r.Date.Format(appointment.DateLayout),
		Anamnesis:      r.Anamnesis,
		PhysicalExam:   r.PhysicalExam,
		Diagnosis:      r.Diagnosis,
		Treatment:      r.Treatment,
		Observations:   r.Observations,
		Locked:         r.Locked,
	}
}

func toPatientResponse(p *appointment.Patient) PatientResponse {
	return PatientResponse{
		ID:         p.ID,
		NationalID: p.NationalID,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Phone:      p.Phone,
		Email:      p.Email,
		Active:     p.Active,
		UpdatedAt:  p.UpdatedAt,
	}
}

func toPractitionerResponse(p *appointment.Practitioner) PractitionerResponse {
	resp := PractitionerResponse{
		ID:        p.ID,
		Name:      p.Name,
		Specialty: p.Specialty,
		Active:    p.IsActive(),
		Schedule:  make([]AvailabilityBlockDTO, 0, len(p.Schedule)),
		UpdatedAt: p.UpdatedAt,
	}
	for _, b := range p.Schedule {
		resp.Schedule = append(resp.Schedule, AvailabilityBlockDTO(b))
	}
	return resp
}
