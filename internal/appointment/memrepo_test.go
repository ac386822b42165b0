package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memRepo is an in-memory Repository with the same conditional-update semantics as PgRepository.
type memRepo struct {
	mu            sync.Mutex
	patients      map[uuid.UUID]Patient
	practitioners map[uuid.UUID]Practitioner
	appointments  map[uuid.UUID]Appointment
	records       []ClinicalRecord

	// beforeCreate runs inside CreateAppointment without holding mu.
	beforeCreate func()
	failComplete error
}

func newMemRepo() *memRepo {
	return &memRepo{
		patients:      make(map[uuid.UUID]Patient),
		practitioners: make(map[uuid.UUID]Practitioner),
		appointments:  make(map[uuid.UUID]Appointment),
	}
}

func (r *memRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *memRepo) GetPractitionerByID(_ context.Context, id uuid.UUID) (*Practitioner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.practitioners[id]
	if !ok {
		return nil, ErrPractitionerNotFound
	}
	return &p, nil
}

func (r *memRepo) CreatePatient(_ context.Context, p Patient) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.patients[p.ID] = p
	return &p, nil
}

func (r *memRepo) CreatePractitioner(_ context.Context, p Practitioner) (*Practitioner, error) {
	if err := ValidateSchedule(p.Schedule); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.practitioners[p.ID] = p
	return &p, nil
}

func (r *memRepo) SetPatientActive(_ context.Context, id uuid.UUID, active bool) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	p.Active = active
	r.patients[id] = p
	return &p, nil
}

func (r *memRepo) SetPractitionerActive(_ context.Context, id uuid.UUID, active bool) (*Practitioner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.practitioners[id]
	if !ok {
		return nil, ErrPractitionerNotFound
	}
	p.Active = &active
	r.practitioners[id] = p
	return &p, nil
}

func (r *memRepo) UpdatePractitionerSchedule(_ context.Context, id uuid.UUID, blocks []AvailabilityBlock) (*Practitioner, error) {
	if err := ValidateSchedule(blocks); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.practitioners[id]
	if !ok {
		return nil, ErrPractitionerNotFound
	}
	p.Schedule = append([]AvailabilityBlock(nil), blocks...)
	r.practitioners[id] = p
	return &p, nil
}

func (r *memRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *memRepo) ListForPractitionerDay(_ context.Context, practitionerID uuid.UUID, date time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.appointments {
		if a.PractitionerID == practitionerID && a.Date.Equal(DateOf(date)) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (r *memRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.appointments {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) CreateAppointment(_ context.Context, a Appointment) (*Appointment, error) {
	if r.beforeCreate != nil {
		r.beforeCreate()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.appointments[a.ID] = a
	return &a, nil
}

func (r *memRepo) UpdateAppointmentSchedule(_ context.Context, a Appointment, expected Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.appointments[a.ID]
	if !ok || cur.Status != expected {
		return nil, ErrAppointmentNotFound
	}
	cur.PatientID = a.PatientID
	cur.PractitionerID = a.PractitionerID
	cur.Date = a.Date
	cur.StartTime = a.StartTime
	cur.EndTime = a.EndTime
	cur.ConsultType = a.ConsultType
	cur.ReasonCategory = a.ReasonCategory
	cur.UpdatedAt = time.Now()
	r.appointments[a.ID] = cur
	return &cur, nil
}

func (r *memRepo) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to Status, previous *Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.appointments[id]
	if !ok || cur.Status != from {
		return nil, ErrAppointmentNotFound
	}
	cur.Status = to
	cur.PreviousStatus = previous
	cur.UpdatedAt = time.Now()
	r.appointments[id] = cur
	return &cur, nil
}

func (r *memRepo) DeleteAppointment(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appointments[id]; !ok {
		return ErrAppointmentNotFound
	}
	delete(r.appointments, id)
	return nil
}

func (r *memRepo) CompleteWithRecord(_ context.Context, id uuid.UUID, rec ClinicalRecord) (*Appointment, *ClinicalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failComplete != nil {
		return nil, nil, r.failComplete
	}
	cur, ok := r.appointments[id]
	if !ok || cur.Status != StatusInProgress {
		return nil, nil, ErrAppointmentNotFound
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = time.Now()
	r.records = append(r.records, rec)

	cur.Status = StatusCompleted
	cur.PreviousStatus = nil
	r.appointments[id] = cur
	return &cur, &rec, nil
}

func (r *memRepo) ListClinicalRecordsByPatient(_ context.Context, patientID uuid.UUID) ([]ClinicalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ClinicalRecord
	for _, rec := range r.records {
		if rec.PatientID == patientID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memRepo) FindStalePending(_ context.Context, before time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.appointments {
		if a.Status == StatusPending && a.Date.Before(before) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.appointments)
}
