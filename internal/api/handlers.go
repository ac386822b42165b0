package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/audit"
)

// AppointmentService is the part of appointment.Service the HTTP layer calls.
type AppointmentService interface {
	Schedule(ctx context.Context, c appointment.Candidate) (*appointment.Appointment, error)
	Reschedule(ctx context.Context, id uuid.UUID, c appointment.Candidate) (*appointment.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	ListForPractitionerDay(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]appointment.Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]appointment.Appointment, error)
	Transition(ctx context.Context, id uuid.UUID, to appointment.Status, ov *appointment.TransitionOverrides) (*appointment.Appointment, error)
	CompleteVisit(ctx context.Context, id uuid.UUID, note appointment.ClinicalNote) (*appointment.Appointment, *appointment.ClinicalRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListClinicalRecords(ctx context.Context, patientID uuid.UUID) ([]appointment.ClinicalRecord, error)
}

// PartyService manages the patient and practitioner settings the scheduling rules read.
type PartyService interface {
	SetPatientActive(ctx context.Context, id uuid.UUID, active bool) (*appointment.Patient, error)
	SetPractitionerActive(ctx context.Context, id uuid.UUID, active bool) (*appointment.Practitioner, error)
	UpdatePractitionerSchedule(ctx context.Context, id uuid.UUID, blocks []appointment.AvailabilityBlock) (*appointment.Practitioner, error)
}

type AuditLister interface {
	List(ctx context.Context, limit, offset int) ([]audit.Entry, error)
}

func createAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := decodeCandidate(w, r)
		if !ok {
			return
		}

		appt, err := svc.Schedule(r.Context(), c)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func updateAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}
		c, ok := decodeCandidate(w, r)
		if !ok {
			return
		}

		appt, err := svc.Reschedule(r.Context(), id, c)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		appt, err := svc.Get(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var (
			list []appointment.Appointment
			err  error
		)

		switch {
		case q.Get("practitioner_id") != "":
			practitionerID, perr := uuid.Parse(q.Get("practitioner_id"))
			if perr != nil {
				writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "practitioner_id must be a valid UUID")
				return
			}
			date, derr := appointment.ParseDate(q.Get("date"))
			if derr != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
			list, err = svc.ListForPractitionerDay(r.Context(), practitionerID, date)

		case q.Get("patient_id") != "":
			patientID, perr := uuid.Parse(q.Get("patient_id"))
			if perr != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			limit, _ := strconv.Atoi(q.Get("limit"))
			offset, _ := strconv.Atoi(q.Get("offset"))
			list, err = svc.ListByPatient(r.Context(), patientID, limit, offset)

		default:
			writeError(w, http.StatusBadRequest, "missing_filter", "practitioner_id and date, or patient_id, is required")
			return
		}

		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := ListResponse[AppointmentResponse]{Data: make([]AppointmentResponse, 0, len(list))}
		for i := range list {
			resp.Data = append(resp.Data, toAppointmentResponse(&list[i]))
		}
		resp.Total = len(resp.Data)

		writeJSON(w, http.StatusOK, resp)
	}
}

func transitionHandler(svc AppointmentService, to appointment.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		var ov *appointment.TransitionOverrides
		if to == appointment.StatusCancelled {
			var req CancelRequest
			// an empty body means no overrides
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
				writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
				return
			}
			if req.PreviousStatus != nil {
				prev := appointment.Status(strings.ToUpper(*req.PreviousStatus))
				if !prev.Valid() {
					writeError(w, http.StatusBadRequest, "invalid_previous_status", "previous_status is not a known state")
					return
				}
				ov = &appointment.TransitionOverrides{PreviousStatus: &prev}
			}
		}

		appt, err := svc.Transition(r.Context(), id, to, ov)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func completeAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		var req CompleteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, record, err := svc.CompleteVisit(r.Context(), id, appointment.ClinicalNote{
			Anamnesis:    req.Anamnesis,
			PhysicalExam: req.PhysicalExam,
			Diagnosis:    req.Diagnosis,
			Treatment:    req.Treatment,
			Observations: req.Observations,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, CompleteResponse{
			Appointment:    toAppointmentResponse(appt),
			ClinicalRecord: toRecordResponse(record),
		})
	}
}

func deleteAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			handleServiceError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func listClinicalRecordsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		records, err := svc.ListClinicalRecords(r.Context(), patientID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := ListResponse[ClinicalRecordResponse]{Data: make([]ClinicalRecordResponse, 0, len(records))}
		for i := range records {
			resp.Data = append(resp.Data, toRecordResponse(&records[i]))
		}
		resp.Total = len(resp.Data)

		writeJSON(w, http.StatusOK, resp)
	}
}

func setPatientActiveHandler(svc PartyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}
		active, ok := decodeActive(w, r)
		if !ok {
			return
		}

		p, err := svc.SetPatientActive(r.Context(), id, active)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toPatientResponse(p))
	}
}

func setPractitionerActiveHandler(svc PartyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := practitionerID(w, r)
		if !ok {
			return
		}
		active, ok := decodeActive(w, r)
		if !ok {
			return
		}

		p, err := svc.SetPractitionerActive(r.Context(), id, active)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toPractitionerResponse(p))
	}
}

func updateScheduleHandler(svc PartyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := practitionerID(w, r)
		if !ok {
			return
		}

		var req ScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		blocks := make([]appointment.AvailabilityBlock, 0, len(req.Schedule))
		for _, b := range req.Schedule {
			blocks = append(blocks, appointment.AvailabilityBlock(b))
		}

		p, err := svc.UpdatePractitionerSchedule(r.Context(), id, blocks)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toPractitionerResponse(p))
	}
}

func listAuditHandler(store AuditLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		entries, err := store.List(r.Context(), limit, offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := ListResponse[AuditEntryResponse]{Data: make([]AuditEntryResponse, 0, len(entries))}
		for _, e := range entries {
			resp.Data = append(resp.Data, AuditEntryResponse{
				ID:         e.ID,
				ActorID:    e.ActorID,
				Action:     string(e.Action),
				Entity:     string(e.Entity),
				EntityID:   e.EntityID,
				OccurredAt: e.OccurredAt,
				Details:    e.Details,
			})
		}
		resp.Total = len(resp.Data)

		writeJSON(w, http.StatusOK, resp)
	}
}

func appointmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func practitionerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func decodeActive(w http.ResponseWriter, r *http.Request) (bool, bool) {
	var req ActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false, false
	}
	if req.Active == nil {
		writeError(w, http.StatusBadRequest, "missing_active", "active is required")
		return false, false
	}
	return *req.Active, true
}

// decodeCandidate leaves empty references as uuid.Nil so the engine reports them as missing.
func decodeCandidate(w http.ResponseWriter, r *http.Request) (appointment.Candidate, bool) {
	var req AppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return appointment.Candidate{}, false
	}

	patientID, err := optionalUUID(req.PatientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
		return appointment.Candidate{}, false
	}

	practitionerID, err := optionalUUID(req.PractitionerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "practitioner_id must be a valid UUID")
		return appointment.Candidate{}, false
	}

	date, err := appointment.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return appointment.Candidate{}, false
	}

	return appointment.Candidate{
		PatientID:      patientID,
		PractitionerID: practitionerID,
		Date:           date,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		ConsultType:    req.ConsultType,
		ReasonCategory: req.ReasonCategory,
	}, true
}

func optionalUUID(s string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}

func handleServiceError(w http.ResponseWriter, err error) {
	var engineErr *appointment.Error
	if errors.As(err, &engineErr) {
		resp := ErrorResponse{Error: string(engineErr.Kind), Details: engineErr.Error()}
		status := http.StatusUnprocessableEntity
		if engineErr.Kind == appointment.KindScheduleConflict {
			status = http.StatusConflict
			if engineErr.ConflictID != uuid.Nil {
				id := engineErr.ConflictID
				resp.ConflictWith = &id
			}
		}
		writeJSON(w, status, resp)
		return
	}

	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, appointment.ErrPractitionerNotFound):
		writeError(w, http.StatusNotFound, "practitioner_not_found", err.Error())
	case errors.Is(err, appointment.ErrScheduleBusy):
		writeError(w, http.StatusConflict, "schedule_busy", "practitioner schedule is being updated, please retry shortly")
	case errors.Is(err, appointment.ErrConcurrentUpdate):
		writeError(w, http.StatusConflict, "concurrent_update", err.Error())
	case errors.Is(err, appointment.ErrAppointmentClosed):
		writeError(w, http.StatusConflict, "appointment_closed", err.Error())
	case errors.Is(err, appointment.ErrEmptyClinicalNote):
		writeError(w, http.StatusUnprocessableEntity, "empty_clinical_note", err.Error())
	case errors.Is(err, appointment.ErrClinicalNoteRequired):
		writeError(w, http.StatusUnprocessableEntity, "clinical_note_required", err.Error())
	case errors.Is(err, appointment.ErrInvalidSchedule):
		writeError(w, http.StatusUnprocessableEntity, "invalid_schedule", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
