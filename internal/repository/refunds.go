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

type RefundsRepository struct {
	db     *sqlx.DB
	getter *trmsqlx.CtxGetter
	tx     *Transactor
}

func NewRefundsRepository(db *sqlx.DB, getter *trmsqlx.CtxGetter, tx *Transactor) *RefundsRepository {
	return &RefundsRepository{
		db:     db,
		getter: getter,
		tx:     tx,
	}
}

const refundColumns = `id, booking_id, event_id, seats, amount, flat_fee, currency,
	payment_ref, reason, status, failure_reason, created_at, updated_at`

type refundRow struct {
	ID            uuid.UUID `db:"id"`
	BookingID     uuid.UUID `db:"booking_id"`
	EventID       uuid.UUID `db:"event_id"`
	Seats         int       `db:"seats"`
	Amount        int64     `db:"amount"`
	FlatFee       int64     `db:"flat_fee"`
	Currency      string    `db:"currency"`
	PaymentRef    string    `db:"payment_ref"`
	Reason        string    `db:"reason"`
	Status        string    `db:"status"`
	FailureReason string    `db:"failure_reason"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r refundRow) entity() entities.Refund {
	return entities.Refund{
		ID:            r.ID,
		BookingID:     r.BookingID,
		EventID:       r.EventID,
		Seats:         r.Seats,
		Amount:        r.Amount,
		FlatFee:       r.FlatFee,
		Currency:      r.Currency,
		PaymentRef:    r.PaymentRef,
		Reason:        r.Reason,
		Status:        entities.RefundStatus(r.Status),
		FailureReason: r.FailureReason,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

func (r *RefundsRepository) AddRefund(ctx context.Context, refund entities.Refund) error {
	_, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, `
		INSERT INTO refunds (`+refundColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		refund.ID,
		refund.BookingID,
		refund.EventID,
		refund.Seats,
		refund.Amount,
		refund.FlatFee,
		refund.Currency,
		refund.PaymentRef,
		refund.Reason,
		refund.Status,
		refund.FailureReason,
		refund.CreatedAt,
		refund.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("refund for booking %s: %w", refund.BookingID, entities.ErrRefundAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("insert refund: %w", err)
	}

	return nil
}

func (r *RefundsRepository) GetRefund(ctx context.Context, id uuid.UUID) (entities.Refund, error) {
	return r.getOne(ctx, `SELECT `+refundColumns+` FROM refunds WHERE id = $1`, id)
}

func (r *RefundsRepository) getOne(ctx context.Context, query string, id uuid.UUID) (entities.Refund, error) {
	var row refundRow
	err := r.getter.DefaultTrOrDB(ctx, r.db).QueryRowxContext(ctx, query, id).StructScan(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Refund{}, fmt.Errorf("refund %s: %w", id, entities.ErrNotFound)
	}
	if err != nil {
		return entities.Refund{}, fmt.Errorf("select refund: %w", err)
	}

	return row.entity(), nil
}

func (r *RefundsRepository) UpdateRefundByID(
	ctx context.Context,
	id uuid.UUID,
	updateFn func(refund entities.Refund) (entities.Refund, error),
) (entities.Refund, error) {
	var updated entities.Refund

	err := r.tx.Do(ctx, func(ctx context.Context) error {
		current, err := r.getOne(ctx, `SELECT `+refundColumns+` FROM refunds WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}

		updated, err = updateFn(current)
		if err != nil {
			return err
		}

		_, err = r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, `
			UPDATE refunds
			SET status = $2, failure_reason = $3, updated_at = $4
			WHERE id = $1
		`, id, updated.Status, updated.FailureReason, updated.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update refund: %w", err)
		}

		return nil
	})
	if err != nil {
		return entities.Refund{}, err
	}

	return updated, nil
}

func (r *RefundsRepository) ListStaleRefunds(ctx context.Context, updatedBefore time.Time, limit int) ([]entities.Refund, error) {
	rows, err := r.getter.DefaultTrOrDB(ctx, r.db).QueryxContext(ctx, `
		SELECT `+refundColumns+`
		FROM refunds
		WHERE status IN ($1, $2) AND updated_at < $3
		ORDER BY updated_at
		LIMIT $4
	`, entities.RefundStatusApproved, entities.RefundStatusProcessing, updatedBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("select stale refunds: %w", err)
	}
	defer rows.Close()

	var refunds []entities.Refund
	for rows.Next() {
		var row refundRow
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scan refund: %w", err)
		}
		refunds = append(refunds, row.entity())
	}

	return refunds, rows.Err()
}
