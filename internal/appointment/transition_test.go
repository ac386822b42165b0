package appointment

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bothActive = Parties{PatientActive: true, PractitionerActive: true}

func apptIn(s Status) Appointment {
	return Appointment{ID: uuid.New(), Status: s, StartTime: "09:00", EndTime: "09:30"}
}

func TestApplyTransition_HappyPath(t *testing.T) {
	e := newTestEngine(0)

	a := apptIn(StatusPending)
	steps := []Status{StatusConfirmed, StatusInProgress, StatusCompleted}
	for _, to := range steps {
		next, err := e.ApplyTransition(a, to, bothActive, nil)
		require.NoError(t, err, "to %s", to)
		assert.Equal(t, to, next.Status)
		assert.Nil(t, next.PreviousStatus)
		a = next
	}
}

func TestApplyTransition_Rejections(t *testing.T) {
	e := newTestEngine(0)

	tests := []struct {
		from   Status
		to     Status
		reason string
	}{
		{StatusPending, StatusInProgress, "start-attendance requires CONFIRMED"},
		{StatusPending, StatusCompleted, "completion requires IN_PROGRESS"},
		{StatusConfirmed, StatusCompleted, "completion requires IN_PROGRESS"},
		{StatusConfirmed, StatusConfirmed, "confirmation requires PENDING"},
		{StatusCancelled, StatusConfirmed, "confirmation requires PENDING"},
		{StatusCompleted, StatusCancelled, "cannot cancel a completed appointment"},
		{StatusCancelled, StatusCancelled, "appointment is already cancelled"},
		{StatusConfirmed, StatusPending, "cannot return to PENDING"},
		{StatusPending, Status("ARCHIVED"), "unknown state"},
		{Status("ARCHIVED"), StatusCancelled, "unknown state"},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			a := apptIn(tt.from)
			got, err := e.ApplyTransition(a, tt.to, bothActive, nil)

			require.ErrorIs(t, err, ErrInvalidTransition)
			var engineErr *Error
			require.ErrorAs(t, err, &engineErr)
			assert.Equal(t, tt.reason, engineErr.Reason)
			assert.Equal(t, a, got)
		})
	}
}

func TestApplyTransition_InactiveParty(t *testing.T) {
	e := newTestEngine(0)
	a := apptIn(StatusInProgress)

	got, err := e.ApplyTransition(a, StatusCompleted, Parties{PatientActive: true, PractitionerActive: false}, nil)
	require.ErrorIs(t, err, ErrInactiveParty)
	assert.Equal(t, StatusInProgress, got.Status)
	assert.Equal(t, StatusInProgress, a.Status)

	_, err = e.ApplyTransition(apptIn(StatusPending), StatusConfirmed, Parties{PractitionerActive: true}, nil)
	assert.ErrorIs(t, err, ErrInactiveParty)
}

func TestApplyTransition_InvalidTransitionBeforeInactive(t *testing.T) {
	e := newTestEngine(0)
	_, err := e.ApplyTransition(apptIn(StatusPending), StatusCompleted, Parties{}, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApplyTransition_CancelRecordsPreviousStatus(t *testing.T) {
	e := newTestEngine(0)

	for _, from := range []Status{StatusPending, StatusConfirmed, StatusInProgress} {
		t.Run(string(from), func(t *testing.T) {
			got, err := e.ApplyTransition(apptIn(from), StatusCancelled, Parties{}, nil)
			require.NoError(t, err)
			assert.Equal(t, StatusCancelled, got.Status)
			require.NotNil(t, got.PreviousStatus)
			assert.Equal(t, from, *got.PreviousStatus)
		})
	}
}

func TestApplyTransition_CancelOverride(t *testing.T) {
	e := newTestEngine(0)
	prev := StatusPending

	got, err := e.ApplyTransition(apptIn(StatusConfirmed), StatusCancelled, Parties{}, &TransitionOverrides{PreviousStatus: &prev})
	require.NoError(t, err)
	require.NotNil(t, got.PreviousStatus)
	assert.Equal(t, StatusPending, *got.PreviousStatus)
}

func TestApplyTransition_DoesNotMutateInput(t *testing.T) {
	e := newTestEngine(0)
	a := apptIn(StatusConfirmed)

	got, err := e.ApplyTransition(a, StatusCancelled, Parties{}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, a.Status)
	assert.Nil(t, a.PreviousStatus)
	assert.Equal(t, a.ID, got.ID)
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusPending.Blocking())
	assert.True(t, StatusInProgress.Blocking())
	assert.False(t, StatusCompleted.Blocking())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, Status("").Valid())
}
