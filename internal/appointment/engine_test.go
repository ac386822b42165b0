package appointment

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 15, 4, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newTestEngine(buffer int) *Engine {
	return NewEngine(buffer, fixedClock)
}

func day(s string) time.Time {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func candidate(date, start, end string) Candidate {
	return Candidate{
		PatientID:      uuid.New(),
		PractitionerID: uuid.New(),
		Date:           day(date),
		StartTime:      start,
		EndTime:        end,
		ConsultType:    "GENERAL",
	}
}

func existingAppt(start, end string, status Status) Appointment {
	return Appointment{
		ID:        uuid.New(),
		Date:      day("2025-06-10"),
		StartTime: start,
		EndTime:   end,
		Status:    status,
	}
}

func TestValidateCandidate_ConcreteScenario(t *testing.T) {
	e := newTestEngine(0)
	booked := existingAppt("09:00", "09:30", StatusConfirmed)
	existing := []Appointment{booked}

	err := e.ValidateCandidate(candidate("2025-06-10", "09:15", "09:45"), existing, uuid.Nil)
	require.ErrorIs(t, err, ErrScheduleConflict)

	var engineErr *Error
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, booked.ID, engineErr.ConflictID)

	assert.NoError(t, e.ValidateCandidate(candidate("2025-06-10", "09:30", "10:00"), existing, uuid.Nil))
	assert.NoError(t, e.ValidateCandidate(candidate("2025-06-10", "08:30", "09:00"), existing, uuid.Nil))
}

func TestValidateCandidate_DateBounds(t *testing.T) {
	e := newTestEngine(0)
	today := DateOf(fixedNow)

	tests := []struct {
		name string
		date time.Time
		want error
	}{
		{"yesterday", today.AddDate(0, 0, -1), ErrDateInPast},
		{"today", today, nil},
		{"one year ahead", today.AddDate(0, 0, MaxLeadDays), nil},
		{"one year and a day ahead", today.AddDate(0, 0, MaxLeadDays+1), ErrDateTooFarInFuture},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := candidate("2025-06-10", "10:00", "10:30")
			c.Date = tt.date
			err := e.ValidateCandidate(c, nil, uuid.Nil)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateCandidate_PastDateWinsOverBadTimes(t *testing.T) {
	e := newTestEngine(0)
	c := candidate("2025-05-31", "nope", "also-nope")
	c.PatientID = uuid.Nil

	assert.ErrorIs(t, e.ValidateCandidate(c, nil, uuid.Nil), ErrDateInPast)
}

func TestValidateCandidate_Order(t *testing.T) {
	e := newTestEngine(0)

	c := candidate("2025-06-10", "xx", "yy")
	c.PatientID = uuid.Nil
	c.PractitionerID = uuid.Nil
	assert.ErrorIs(t, e.ValidateCandidate(c, nil, uuid.Nil), ErrMissingPatient)

	c.PatientID = uuid.New()
	assert.ErrorIs(t, e.ValidateCandidate(c, nil, uuid.Nil), ErrMissingPractitioner)

	c.PractitionerID = uuid.New()
	assert.ErrorIs(t, e.ValidateCandidate(c, nil, uuid.Nil), ErrInvalidTimeFormat)

	c.StartTime, c.EndTime = "10:00", "10:00"
	assert.ErrorIs(t, e.ValidateCandidate(c, nil, uuid.Nil), ErrStartNotBeforeEnd)

	c.StartTime, c.EndTime = "11:00", "10:00"
	assert.ErrorIs(t, e.ValidateCandidate(c, nil, uuid.Nil), ErrStartNotBeforeEnd)
}

func TestValidateCandidate_IgnoresNonBlockingAndMalformed(t *testing.T) {
	e := newTestEngine(0)
	existing := []Appointment{
		existingAppt("09:00", "10:00", StatusCancelled),
		existingAppt("09:00", "10:00", StatusCompleted),
		existingAppt("9am", "10:00", StatusConfirmed),
		existingAppt("09:00", "25:00", StatusPending),
	}

	assert.NoError(t, e.ValidateCandidate(candidate("2025-06-10", "09:15", "09:45"), existing, uuid.Nil))
}

func TestValidateCandidate_BlockingStates(t *testing.T) {
	e := newTestEngine(0)
	for _, s := range []Status{StatusPending, StatusConfirmed, StatusInProgress} {
		t.Run(string(s), func(t *testing.T) {
			existing := []Appointment{existingAppt("09:00", "10:00", s)}
			err := e.ValidateCandidate(candidate("2025-06-10", "09:30", "10:30"), existing, uuid.Nil)
			assert.ErrorIs(t, err, ErrScheduleConflict)
		})
	}
}

func TestValidateCandidate_EditingExcludesSelf(t *testing.T) {
	e := newTestEngine(0)
	self := existingAppt("09:00", "09:30", StatusConfirmed)
	existing := []Appointment{self}

	c := candidate("2025-06-10", "09:10", "09:40")
	assert.NoError(t, e.ValidateCandidate(c, existing, self.ID))
	assert.ErrorIs(t, e.ValidateCandidate(c, existing, uuid.New()), ErrScheduleConflict)
}

func TestValidateCandidate_ReportsFirstConflict(t *testing.T) {
	e := newTestEngine(0)
	first := existingAppt("09:00", "09:30", StatusPending)
	second := existingAppt("09:30", "10:00", StatusConfirmed)

	err := e.ValidateCandidate(candidate("2025-06-10", "09:00", "10:00"), []Appointment{first, second}, uuid.Nil)

	var engineErr *Error
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, first.ID, engineErr.ConflictID)
}

func TestValidateCandidate_Buffer(t *testing.T) {
	e := newTestEngine(10)
	existing := []Appointment{existingAppt("09:00", "09:30", StatusConfirmed)}

	assert.ErrorIs(t, e.ValidateCandidate(candidate("2025-06-10", "09:30", "10:00"), existing, uuid.Nil), ErrScheduleConflict)
	assert.ErrorIs(t, e.ValidateCandidate(candidate("2025-06-10", "08:30", "08:55"), existing, uuid.Nil), ErrScheduleConflict)
	assert.NoError(t, e.ValidateCandidate(candidate("2025-06-10", "09:40", "10:00"), existing, uuid.Nil))
	assert.NoError(t, e.ValidateCandidate(candidate("2025-06-10", "08:20", "08:50"), existing, uuid.Nil))
}

func TestNewEngine_ClampsNegativeBuffer(t *testing.T) {
	e := NewEngine(-5, fixedClock)
	assert.Equal(t, 0, e.BufferMinutes)
}

func TestValidateCandidate_Idempotent(t *testing.T) {
	e := newTestEngine(0)
	existing := []Appointment{existingAppt("09:00", "09:30", StatusConfirmed)}
	snapshot := append([]Appointment(nil), existing...)
	c := candidate("2025-06-10", "09:15", "09:45")

	first := e.ValidateCandidate(c, existing, uuid.Nil)
	second := e.ValidateCandidate(c, existing, uuid.Nil)

	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, existing)
}

func TestValidateCandidate_TimeOfDayIgnoredOnDate(t *testing.T) {
	e := newTestEngine(0)
	c := candidate("2025-06-01", "16:00", "16:30")
	c.Date = fixedNow.Add(-time.Hour)

	assert.NoError(t, e.ValidateCandidate(c, nil, uuid.Nil))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindScheduleConflict, KindOf(&Error{Kind: KindScheduleConflict, ConflictID: uuid.New()}))
	assert.Equal(t, Kind(""), KindOf(ErrAppointmentNotFound))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "invalid status transition: confirmation requires PENDING",
		invalidTransition("confirmation requires PENDING").Error())
	assert.Equal(t, "patient is required", ErrMissingPatient.Error())
}
