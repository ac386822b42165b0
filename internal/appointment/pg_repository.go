package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

const appointmentColumns = `id, patient_id, practitioner_id, appt_date, start_time, end_time,
		consult_type, reason_category, status, previous_status, created_at, updated_at`

const practitionerColumns = `id, name, email, specialty, registration_number, phone, active, schedule, created_at, updated_at`

const patientColumns = `id, national_id, first_name, last_name, birth_date, phone, email, address, insurance, active, created_at, updated_at`

const recordColumns = `id, patient_id, practitioner_id, appointment_id, record_date, anamnesis,
		physical_exam, diagnosis, treatment, observations, locked, created_at`

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.NationalID,
		&p.FirstName,
		&p.LastName,
		&p.BirthDate,
		&p.Phone,
		&p.Email,
		&p.Address,
		&p.Insurance,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanPractitioner(row pgx.Row) (*Practitioner, error) {
	var p Practitioner
	var schedule []byte

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Specialty,
		&p.RegistrationNumber,
		&p.Phone,
		&p.Active,
		&schedule,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPractitionerNotFound
		}
		return nil, err
	}

	if len(schedule) > 0 {
		if err := json.Unmarshal(schedule, &p.Schedule); err != nil {
			return nil, fmt.Errorf("decode schedule for practitioner %s: %w", p.ID, err)
		}
	}

	return &p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.PractitionerID,
		&a.Date,
		&a.StartTime,
		&a.EndTime,
		&a.ConsultType,
		&a.ReasonCategory,
		&a.Status,
		&a.PreviousStatus,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Date = DateOf(a.Date)
	return &a, nil
}

func scanRecord(row pgx.Row) (*ClinicalRecord, error) {
	var r ClinicalRecord

	err := row.Scan(
		&r.ID,
		&r.PatientID,
		&r.PractitionerID,
		&r.AppointmentID,
		&r.Date,
		&r.Anamnesis,
		&r.PhysicalExam,
		&r.Diagnosis,
		&r.Treatment,
		&r.Observations,
		&r.Locked,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) CreatePatient(ctx context.Context, p Patient) (*Patient, error) {
	phone, err := NormalizePhone(p.Phone)
	if err != nil {
		return nil, err
	}
	p.Phone = phone
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO patients (id, national_id, first_name, last_name, birth_date, phone, email, address, insurance, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING `+patientColumns,
		p.ID, p.NationalID, p.FirstName, p.LastName, p.BirthDate, p.Phone, p.Email, p.Address, p.Insurance, p.Active)

	created, err := scanPatient(row)
	if err != nil {
		return nil, fmt.Errorf("insert patient: %w", err)
	}
	return created, nil
}

func (r *PgRepository) GetPractitionerByID(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+practitionerColumns+`
		FROM practitioners
		WHERE id = $1
	`, id)
	return scanPractitioner(row)
}

func (r *PgRepository) CreatePractitioner(ctx context.Context, p Practitioner) (*Practitioner, error) {
	if err := ValidateSchedule(p.Schedule); err != nil {
		return nil, err
	}
	phone, err := NormalizePhone(p.Phone)
	if err != nil {
		return nil, err
	}
	p.Phone = phone
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	schedule, err := json.Marshal(p.Schedule)
	if err != nil {
		return nil, fmt.Errorf("encode schedule: %w", err)
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO practitioners (id, name, email, specialty, registration_number, phone, active, schedule, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING `+practitionerColumns,
		p.ID, p.Name, p.Email, p.Specialty, p.RegistrationNumber, p.Phone, p.Active, schedule)

	created, err := scanPractitioner(row)
	if err != nil {
		return nil, fmt.Errorf("insert practitioner: %w", err)
	}
	return created, nil
}

func (r *PgRepository) SetPatientActive(ctx context.Context, id uuid.UUID, active bool) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE patients
		SET active = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+patientColumns,
		id, active)
	return scanPatient(row)
}

func (r *PgRepository) SetPractitionerActive(ctx context.Context, id uuid.UUID, active bool) (*Practitioner, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE practitioners
		SET active = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+practitionerColumns,
		id, active)
	return scanPractitioner(row)
}

// UpdatePractitionerSchedule replaces the declared availability blocks. A nil slice
// clears them.
func (r *PgRepository) UpdatePractitionerSchedule(ctx context.Context, id uuid.UUID, blocks []AvailabilityBlock) (*Practitioner, error) {
	if err := ValidateSchedule(blocks); err != nil {
		return nil, err
	}

	schedule, err := json.Marshal(blocks)
	if err != nil {
		return nil, fmt.Errorf("encode schedule: %w", err)
	}

	row := r.db.QueryRow(ctx, `
		UPDATE practitioners
		SET schedule = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+practitionerColumns,
		id, schedule)
	return scanPractitioner(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListForPractitionerDay(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE practitioner_id = $1
		  AND appt_date = $2
		ORDER BY start_time
	`, practitionerID, DateOf(date))
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY appt_date DESC, start_time DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, practitioner_id, appt_date, start_time, end_time,
			consult_type, reason_category, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING `+appointmentColumns,
		a.ID, a.PatientID, a.PractitionerID, DateOf(a.Date), a.StartTime, a.EndTime,
		a.ConsultType, a.ReasonCategory, a.Status)

	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointmentSchedule(ctx context.Context, a Appointment, expected Status) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET patient_id = $2,
		    practitioner_id = $3,
		    appt_date = $4,
		    start_time = $5,
		    end_time = $6,
		    consult_type = $7,
		    reason_category = $8,
		    updated_at = now()
		WHERE id = $1
		  AND status = $9
		RETURNING `+appointmentColumns,
		a.ID, a.PatientID, a.PractitionerID, DateOf(a.Date), a.StartTime, a.EndTime,
		a.ConsultType, a.ReasonCategory, expected)

	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status, previous *Status) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    previous_status = $4,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns,
		id, to, from, previous)

	return scanAppointment(row)
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) CompleteWithRecord(ctx context.Context, id uuid.UUID, rec ClinicalRecord) (*Appointment, *ClinicalRecord, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	created, err := scanRecord(tx.QueryRow(ctx, `
		INSERT INTO clinical_records (id, patient_id, practitioner_id, appointment_id, record_date,
			anamnesis, physical_exam, diagnosis, treatment, observations, locked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, false, now())
		RETURNING `+recordColumns,
		rec.ID, rec.PatientID, rec.PractitionerID, rec.AppointmentID, DateOf(rec.Date),
		rec.Anamnesis, rec.PhysicalExam, rec.Diagnosis, rec.Treatment, rec.Observations))
	if err != nil {
		return nil, nil, fmt.Errorf("insert clinical record: %w", err)
	}

	appt, err := scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    previous_status = NULL,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns,
		id, StatusCompleted, StatusInProgress))
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}

	return appt, created, nil
}

func (r *PgRepository) ListClinicalRecordsByPatient(ctx context.Context, patientID uuid.UUID) ([]ClinicalRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+recordColumns+`
		FROM clinical_records
		WHERE patient_id = $1
		ORDER BY record_date DESC, created_at DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ClinicalRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) FindStalePending(ctx context.Context, before time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'PENDING'
		  AND appt_date < $1
	`, DateOf(before))
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}
