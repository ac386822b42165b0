package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntry(t *testing.T) {
	actor := uuid.New()
	entity := uuid.New()
	ctx := WithActor(context.Background(), actor)

	e, err := NewEntry(ctx, ActionCancel, EntityAppointment, entity, map[string]string{"reason": "patient request"})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, e.ID)
	require.NotNil(t, e.ActorID)
	assert.Equal(t, actor, *e.ActorID)
	assert.Equal(t, entity, e.EntityID)
	assert.JSONEq(t, `{"reason":"patient request"}`, string(e.Details))
}

func TestNewEntry_NoActorNoDetails(t *testing.T) {
	e, err := NewEntry(WithActor(context.Background(), uuid.Nil), ActionCreate, EntityPatient, uuid.New(), nil)
	require.NoError(t, err)
	assert.Nil(t, e.ActorID)
	assert.Nil(t, e.Details)
}

func TestNewEntry_UnmarshalableDetails(t *testing.T) {
	_, err := NewEntry(context.Background(), ActionCreate, EntityPatient, uuid.New(), map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestPgStore_Record(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPgStore(mock)
	e := Entry{Action: ActionConfirm, Entity: EntityAppointment, EntityID: uuid.New(), Details: []byte(`{"to":"CONFIRMED"}`)}

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(pgxmock.AnyArg(), (*uuid.UUID)(nil), ActionConfirm, EntityAppointment, e.EntityID, pgxmock.AnyArg(), []byte(`{"to":"CONFIRMED"}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Record(context.Background(), e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStore_RecordError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnError(errors.New("relation does not exist"))

	err = NewPgStore(mock).Record(context.Background(), Entry{Action: ActionDelete, Entity: EntityAppointment, EntityID: uuid.New()})
	assert.ErrorContains(t, err, "insert audit log")
}

func TestPgStore_ListClampsLimit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	actor := uuid.New()
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM audit_logs").
		WithArgs(500, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "actor_id", "action", "entity", "entity_id", "occurred_at", "details"}).
			AddRow(uuid.New(), &actor, ActionCreate, EntityAppointment, uuid.New(), at, []byte(`{"a":1}`)).
			AddRow(uuid.New(), (*uuid.UUID)(nil), ActionCancel, EntityAppointment, uuid.New(), at, []byte(nil)))

	entries, err := NewPgStore(mock).List(context.Background(), 10_000, -5)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, actor, *entries[0].ActorID)
	assert.Nil(t, entries[1].ActorID)
	assert.Nil(t, entries[1].Details)
	assert.NoError(t, mock.ExpectationsWereMet())
}
