package appointment

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind tags an engine rejection.
type Kind string

const (
	KindDateInPast          Kind = "date_in_past"
	KindDateTooFarInFuture  Kind = "date_too_far_in_future"
	KindMissingPatient      Kind = "missing_patient"
	KindMissingPractitioner Kind = "missing_practitioner"
	KindInvalidTimeFormat   Kind = "invalid_time_format"
	KindStartNotBeforeEnd   Kind = "start_not_before_end"
	KindScheduleConflict    Kind = "schedule_conflict"
	KindInvalidTransition   Kind = "invalid_transition"
	KindInactiveParty       Kind = "inactive_party"
	KindOutsideWorkingHours Kind = "outside_working_hours"
)

var kindMessages = map[Kind]string{
	KindDateInPast:          "appointment date is in the past",
	KindDateTooFarInFuture:  "appointment date is more than one year ahead",
	KindMissingPatient:      "patient is required",
	KindMissingPractitioner: "practitioner is required",
	KindInvalidTimeFormat:   "start and end must be HH:MM",
	KindStartNotBeforeEnd:   "start time must be before end time",
	KindScheduleConflict:    "practitioner already has an appointment in that time range",
	KindInvalidTransition:   "invalid status transition",
	KindInactiveParty:       "patient and practitioner must both be active",
	KindOutsideWorkingHours: "time range is outside the practitioner's working hours",
}

// Error is a user-facing rejection from the scheduling engine.
type Error struct {
	Kind   Kind
	Reason string
	// ConflictID is the first overlapping appointment for KindScheduleConflict.
	ConflictID uuid.UUID
}

func (e *Error) Error() string {
	msg := kindMessages[e.Kind]
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	return msg
}

// Is matches on Kind so errors.Is(err, ErrScheduleConflict) works for any conflict.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrDateInPast          = &Error{Kind: KindDateInPast}
	ErrDateTooFarInFuture  = &Error{Kind: KindDateTooFarInFuture}
	ErrMissingPatient      = &Error{Kind: KindMissingPatient}
	ErrMissingPractitioner = &Error{Kind: KindMissingPractitioner}
	ErrInvalidTimeFormat   = &Error{Kind: KindInvalidTimeFormat}
	ErrStartNotBeforeEnd   = &Error{Kind: KindStartNotBeforeEnd}
	ErrScheduleConflict    = &Error{Kind: KindScheduleConflict}
	ErrInvalidTransition   = &Error{Kind: KindInvalidTransition}
	ErrInactiveParty       = &Error{Kind: KindInactiveParty}
	ErrOutsideWorkingHours = &Error{Kind: KindOutsideWorkingHours}
)

func invalidTransition(reason string) *Error {
	return &Error{Kind: KindInvalidTransition, Reason: reason}
}

// KindOf returns the engine kind carried by err, or "" for other errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
