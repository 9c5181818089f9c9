package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"reservations/internal/entities"
)

// EventsRepository owns the seat counters. booked_seats is changed only by
// single conditional UPDATE statements, so two concurrent reservations can
// never both pass the capacity check.
type EventsRepository struct {
	db     *sqlx.DB
	getter *trmsqlx.CtxGetter
}

func NewEventsRepository(db *sqlx.DB, getter *trmsqlx.CtxGetter) *EventsRepository {
	return &EventsRepository{
		db:     db,
		getter: getter,
	}
}

const eventColumns = `id, title, total_seats, booked_seats, unit_price, currency, starts_at,
	allow_cancellation, cancellation_deadline_hours, cancellation_fee_flat, created_at`

type eventRow struct {
	ID                        uuid.UUID `db:"id"`
	Title                     string    `db:"title"`
	TotalSeats                int       `db:"total_seats"`
	BookedSeats               int       `db:"booked_seats"`
	UnitPrice                 int64     `db:"unit_price"`
	Currency                  string    `db:"currency"`
	StartsAt                  time.Time `db:"starts_at"`
	AllowCancellation         bool      `db:"allow_cancellation"`
	CancellationDeadlineHours int       `db:"cancellation_deadline_hours"`
	CancellationFeeFlat       int64     `db:"cancellation_fee_flat"`
	CreatedAt                 time.Time `db:"created_at"`
}

func (r eventRow) entity() entities.Event {
	return entities.Event{
		ID:                        r.ID,
		Title:                     r.Title,
		TotalSeats:                r.TotalSeats,
		BookedSeats:               r.BookedSeats,
		UnitPrice:                 r.UnitPrice,
		Currency:                  r.Currency,
		StartsAt:                  r.StartsAt.UTC(),
		AllowCancellation:         r.AllowCancellation,
		CancellationDeadlineHours: r.CancellationDeadlineHours,
		CancellationFeeFlat:       r.CancellationFeeFlat,
		CreatedAt:                 r.CreatedAt.UTC(),
	}
}

func (r *EventsRepository) AddEvent(ctx context.Context, event entities.Event) error {
	_, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		event.ID,
		event.Title,
		event.TotalSeats,
		event.BookedSeats,
		event.UnitPrice,
		event.Currency,
		event.StartsAt,
		event.AllowCancellation,
		event.CancellationDeadlineHours,
		event.CancellationFeeFlat,
		event.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("event %s: %w", event.ID, entities.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	return nil
}

func (r *EventsRepository) GetEvent(ctx context.Context, id uuid.UUID) (entities.Event, error) {
	var row eventRow
	err := r.getter.DefaultTrOrDB(ctx, r.db).QueryRowxContext(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE id = $1
	`, id).StructScan(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Event{}, fmt.Errorf("event %s: %w", id, entities.ErrNotFound)
	}
	if err != nil {
		return entities.Event{}, fmt.Errorf("select event: %w", err)
	}

	return row.entity(), nil
}

func (r *EventsRepository) Reserve(ctx context.Context, id uuid.UUID, qty int) (entities.ReserveResult, error) {
	if qty < 1 {
		return entities.ReserveResult{}, fmt.Errorf("reserve %d seats: %w", qty, entities.ErrInvalidArgument)
	}

	var row eventRow
	err := r.getter.DefaultTrOrDB(ctx, r.db).QueryRowxContext(ctx, `
		UPDATE events
		SET booked_seats = booked_seats + $2
		WHERE id = $1 AND booked_seats + $2 <= total_seats
		RETURNING `+eventColumns,
		id, qty,
	).StructScan(&row)
	if errors.Is(err, sql.ErrNoRows) {
		event, err := r.GetEvent(ctx, id)
		if err != nil {
			return entities.ReserveResult{}, err
		}
		return entities.ReserveResult{OK: false, Event: event}, nil
	}
	if err != nil {
		return entities.ReserveResult{}, fmt.Errorf("reserve seats: %w", mapLedgerError(err))
	}

	return entities.ReserveResult{OK: true, Event: row.entity()}, nil
}

func (r *EventsRepository) Release(ctx context.Context, id uuid.UUID, qty int) (entities.Event, error) {
	if qty < 1 {
		return entities.Event{}, fmt.Errorf("release %d seats: %w", qty, entities.ErrInvalidArgument)
	}

	var row eventRow
	err := r.getter.DefaultTrOrDB(ctx, r.db).QueryRowxContext(ctx, `
		UPDATE events
		SET booked_seats = booked_seats - $2
		WHERE id = $1 AND booked_seats >= $2
		RETURNING `+eventColumns,
		id, qty,
	).StructScan(&row)
	if errors.Is(err, sql.ErrNoRows) {
		event, err := r.GetEvent(ctx, id)
		if err != nil {
			return entities.Event{}, err
		}
		return entities.Event{}, fmt.Errorf(
			"release %d seats of event %s with %d booked: %w",
			qty, id, event.BookedSeats, entities.ErrLedgerInvariant,
		)
	}
	if err != nil {
		return entities.Event{}, fmt.Errorf("release seats: %w", mapLedgerError(err))
	}

	return row.entity(), nil
}
