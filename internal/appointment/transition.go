package appointment

// ApplyTransition returns a copy of a moved to state to. a itself is never modified, so a
// rejected transition leaves the caller's record as it was.
func (e *Engine) ApplyTransition(a Appointment, to Status, parties Parties, ov *TransitionOverrides) (Appointment, error) {
	if !to.Valid() || !a.Status.Valid() {
		return a, invalidTransition("unknown state")
	}

	if err := checkTransition(a.Status, to); err != nil {
		return a, err
	}

	if requiresActiveParties(to) && !(parties.PatientActive && parties.PractitionerActive) {
		return a, ErrInactiveParty
	}

	updated := a
	updated.Status = to
	updated.PreviousStatus = nil

	if to == StatusCancelled {
		prev := a.Status
		if ov != nil && ov.PreviousStatus != nil {
			prev = *ov.PreviousStatus
		}
		updated.PreviousStatus = &prev
	}

	return updated, nil
}

func checkTransition(from, to Status) *Error {
	switch to {
	case StatusPending:
		return invalidTransition("cannot return to PENDING")
	case StatusConfirmed:
		if from != StatusPending {
			return invalidTransition("confirmation requires PENDING")
		}
	case StatusInProgress:
		if from != StatusConfirmed {
			return invalidTransition("start-attendance requires CONFIRMED")
		}
	case StatusCompleted:
		if from != StatusInProgress {
			return invalidTransition("completion requires IN_PROGRESS")
		}
	case StatusCancelled:
		switch from {
		case StatusCompleted:
			return invalidTransition("cannot cancel a completed appointment")
		case StatusCancelled:
			return invalidTransition("appointment is already cancelled")
		}
	}
	return nil
}

func requiresActiveParties(to Status) bool {
	return to == StatusConfirmed || to == StatusInProgress || to == StatusCompleted
}
