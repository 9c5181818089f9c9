package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"reservations/internal/entities"
)

// DatalakeRepository keeps a raw copy of every published event.
// Postgres stands in for a real data lake.
type DatalakeRepository struct {
	db *sqlx.DB
}

func NewDatalakeRepository(db *sqlx.DB) *DatalakeRepository {
	return &DatalakeRepository{db: db}
}

func (r *DatalakeRepository) SaveEvent(ctx context.Context, event entities.DatalakeEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO datalake_events (event_id, published_at, event_name, event_payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
	`, event.Id, event.PublishedAt, event.EventName, string(event.Payload))
	if err != nil {
		return fmt.Errorf("save datalake event %s: %w", event.Id, err)
	}

	return nil
}

func (r *DatalakeRepository) ListEvents(ctx context.Context) ([]entities.DatalakeEvent, error) {
	var events []entities.DatalakeEvent
	err := r.db.SelectContext(ctx, &events, `
		SELECT event_id, published_at, event_name, event_payload
		FROM datalake_events
		ORDER BY published_at
	`)
	if err != nil {
		return nil, fmt.Errorf("select datalake events: %w", err)
	}

	return events, nil
}
