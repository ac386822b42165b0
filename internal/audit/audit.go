// Package audit records who changed which clinic entity and when.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionCreate   Action = "CREATE"
	ActionUpdate   Action = "UPDATE"
	ActionConfirm  Action = "CONFIRM"
	ActionStart    Action = "START"
	ActionComplete Action = "COMPLETE"
	ActionCancel   Action = "CANCEL"
	ActionDelete   Action = "DELETE"
)

type Entity string

const (
	EntityAppointment    Entity = "APPOINTMENT"
	EntityClinicalRecord Entity = "CLINICAL_RECORD"
	EntityPatient        Entity = "PATIENT"
	EntityPractitioner   Entity = "PRACTITIONER"
)

// Entry is an immutable audit record.
type Entry struct {
	ID         uuid.UUID       `json:"id"`
	ActorID    *uuid.UUID      `json:"actor_id,omitempty"`
	Action     Action          `json:"action"`
	Entity     Entity          `json:"entity"`
	EntityID   uuid.UUID       `json:"entity_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Details    json.RawMessage `json:"details,omitempty"`
}

type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

type actorKey struct{}

// WithActor attaches the acting user's id to ctx.
func WithActor(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, actorKey{}, id)
}

func ActorFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(actorKey{}).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// NewEntry builds an entry for the actor in ctx, if any.
func NewEntry(ctx context.Context, action Action, entity Entity, entityID uuid.UUID, details any) (Entry, error) {
	e := Entry{
		ID:         uuid.New(),
		Action:     action,
		Entity:     entity,
		EntityID:   entityID,
		OccurredAt: time.Now().UTC(),
	}
	if id, ok := ActorFrom(ctx); ok {
		e.ActorID = &id
	}
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return e, err
		}
		e.Details = data
	}
	return e, nil
}
