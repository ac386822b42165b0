package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type PgStore struct {
	db db
}

func NewPgStore(db db) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Record(ctx context.Context, e Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO audit_logs (id, actor_id, action, entity, entity_id, occurred_at, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.ActorID, e.Action, e.Entity, e.EntityID, e.OccurredAt, []byte(e.Details))
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}

	return nil
}

// List returns entries newest first.
func (s *PgStore) List(ctx context.Context, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, actor_id, action, entity, entity_id, occurred_at, details
		FROM audit_logs
		ORDER BY occurred_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		var e Entry
		var details []byte
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Entity, &e.EntityID, &e.OccurredAt, &details); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			e.Details = details
		}
		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
