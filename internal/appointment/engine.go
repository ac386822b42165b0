package appointment

import (
	"time"

	"github.com/google/uuid"
)

// MaxLeadDays bounds how far ahead an appointment may be booked.
const MaxLeadDays = 365

// Engine holds the scheduling rules. It keeps no state between calls.
type Engine struct {
	// BufferMinutes is the margin kept free around every blocking appointment.
	BufferMinutes int
	now           func() time.Time
}

func NewEngine(bufferMinutes int, now func() time.Time) *Engine {
	if bufferMinutes < 0 {
		bufferMinutes = 0
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{BufferMinutes: bufferMinutes, now: now}
}

// Today is the engine's current calendar day.
func (e *Engine) Today() time.Time {
	return DateOf(e.now())
}

// ValidateCandidate accepts c or returns the first rule it breaks. existing must hold every
// appointment of c's practitioner on c's date; editingID (uuid.Nil when creating) is left
// out of the overlap check.
func (e *Engine) ValidateCandidate(c Candidate, existing []Appointment, editingID uuid.UUID) error {
	today := e.Today()
	date := DateOf(c.Date)

	if date.Before(today) {
		return ErrDateInPast
	}
	if date.After(today.AddDate(0, 0, MaxLeadDays)) {
		return ErrDateTooFarInFuture
	}
	if c.PatientID == uuid.Nil {
		return ErrMissingPatient
	}
	if c.PractitionerID == uuid.Nil {
		return ErrMissingPractitioner
	}

	start, end, ok := parseRange(c.StartTime, c.EndTime)
	if !ok {
		return ErrInvalidTimeFormat
	}
	if start >= end {
		return ErrStartNotBeforeEnd
	}

	if id, found := e.firstConflict(start, end, existing, editingID); found {
		return &Error{Kind: KindScheduleConflict, ConflictID: id}
	}

	return nil
}

func (e *Engine) firstConflict(start, end int, existing []Appointment, editingID uuid.UUID) (uuid.UUID, bool) {
	for _, other := range existing {
		if !other.Status.Blocking() {
			continue
		}
		if editingID != uuid.Nil && other.ID == editingID {
			continue
		}

		oStart, oEnd, ok := parseRange(other.StartTime, other.EndTime)
		if !ok {
			// Bad rows in the comparison set never block a booking.
			continue
		}

		if start < oEnd+e.BufferMinutes && end > oStart-e.BufferMinutes {
			return other.ID, true
		}
	}
	return uuid.Nil, false
}
