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
	"github.com/lib/pq"

	"reservations/internal/entities"
)

type BookingsRepository struct {
	db     *sqlx.DB
	getter *trmsqlx.CtxGetter
	tx     *Transactor
}

func NewBookingsRepository(db *sqlx.DB, getter *trmsqlx.CtxGetter, tx *Transactor) *BookingsRepository {
	return &BookingsRepository{
		db:     db,
		getter: getter,
		tx:     tx,
	}
}

const bookingColumns = `id, event_id, user_id, email, seats, unit_price, currency,
	subtotal, convenience_fee, platform_fee, gst, final_amount,
	status, payment_status, payment_order_ref, payment_ref, ticket_token,
	risk_action, risk_score, risk_tags, COALESCE(idempotency_key, '') AS idempotency_key, cancel_reason,
	hold_expires_at, created_at, confirmed_at, cancelled_at`

type bookingRow struct {
	ID              uuid.UUID      `db:"id"`
	EventID         uuid.UUID      `db:"event_id"`
	UserID          string         `db:"user_id"`
	Email           string         `db:"email"`
	Seats           int            `db:"seats"`
	UnitPrice       int64          `db:"unit_price"`
	Currency        string         `db:"currency"`
	Subtotal        int64          `db:"subtotal"`
	ConvenienceFee  int64          `db:"convenience_fee"`
	PlatformFee     int64          `db:"platform_fee"`
	GST             int64          `db:"gst"`
	FinalAmount     int64          `db:"final_amount"`
	Status          string         `db:"status"`
	PaymentStatus   string         `db:"payment_status"`
	PaymentOrderRef string         `db:"payment_order_ref"`
	PaymentRef      string         `db:"payment_ref"`
	TicketToken     string         `db:"ticket_token"`
	RiskAction      string         `db:"risk_action"`
	RiskScore       int            `db:"risk_score"`
	RiskTags        pq.StringArray `db:"risk_tags"`
	IdempotencyKey  string         `db:"idempotency_key"`
	CancelReason    string         `db:"cancel_reason"`
	HoldExpiresAt   time.Time      `db:"hold_expires_at"`
	CreatedAt       time.Time      `db:"created_at"`
	ConfirmedAt     *time.Time     `db:"confirmed_at"`
	CancelledAt     *time.Time     `db:"cancelled_at"`
}

func (r bookingRow) entity() entities.Booking {
	var tags []string
	if len(r.RiskTags) > 0 {
		tags = []string(r.RiskTags)
	}

	return entities.Booking{
		ID:        r.ID,
		EventID:   r.EventID,
		UserID:    r.UserID,
		Email:     r.Email,
		Seats:     r.Seats,
		UnitPrice: r.UnitPrice,
		Currency:  r.Currency,
		Fees: entities.FeeBreakdown{
			Subtotal:       r.Subtotal,
			ConvenienceFee: r.ConvenienceFee,
			PlatformFee:    r.PlatformFee,
			GST:            r.GST,
			FinalAmount:    r.FinalAmount,
		},
		Status:          entities.BookingStatus(r.Status),
		PaymentStatus:   entities.PaymentStatus(r.PaymentStatus),
		PaymentOrderRef: r.PaymentOrderRef,
		PaymentRef:      r.PaymentRef,
		TicketToken:     r.TicketToken,
		RiskAction:      entities.RiskAction(r.RiskAction),
		RiskScore:       r.RiskScore,
		RiskTags:        tags,
		IdempotencyKey:  r.IdempotencyKey,
		CancelReason:    r.CancelReason,
		HoldExpiresAt:   r.HoldExpiresAt.UTC(),
		CreatedAt:       r.CreatedAt.UTC(),
		ConfirmedAt:     utc(r.ConfirmedAt),
		CancelledAt:     utc(r.CancelledAt),
	}
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func (r *BookingsRepository) AddBooking(ctx context.Context, b entities.Booking) error {
	_, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, `
		INSERT INTO bookings (
			id, event_id, user_id, email, seats, unit_price, currency,
			subtotal, convenience_fee, platform_fee, gst, final_amount,
			status, payment_status, payment_order_ref, payment_ref, ticket_token,
			risk_action, risk_score, risk_tags, idempotency_key, cancel_reason,
			hold_expires_at, created_at, confirmed_at, cancelled_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17,
			$18, $19, $20, NULLIF($21, ''), $22,
			$23, $24, $25, $26
		)
	`,
		b.ID, b.EventID, b.UserID, b.Email, b.Seats, b.UnitPrice, b.Currency,
		b.Fees.Subtotal, b.Fees.ConvenienceFee, b.Fees.PlatformFee, b.Fees.GST, b.Fees.FinalAmount,
		b.Status, b.PaymentStatus, b.PaymentOrderRef, b.PaymentRef, b.TicketToken,
		b.RiskAction, b.RiskScore, pq.StringArray(b.RiskTags), b.IdempotencyKey, b.CancelReason,
		b.HoldExpiresAt, b.CreatedAt, b.ConfirmedAt, b.CancelledAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("booking %s: %w", b.ID, entities.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	return nil
}

func (r *BookingsRepository) GetBooking(ctx context.Context, id uuid.UUID) (entities.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

func (r *BookingsRepository) GetBookingByIdempotencyKey(ctx context.Context, userID, key string) (entities.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 AND idempotency_key = $2`, userID, key)
}

func (r *BookingsRepository) getOne(ctx context.Context, query string, args ...any) (entities.Booking, error) {
	var row bookingRow
	err := r.getter.DefaultTrOrDB(ctx, r.db).QueryRowxContext(ctx, query, args...).StructScan(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Booking{}, fmt.Errorf("booking %v: %w", args, entities.ErrNotFound)
	}
	if err != nil {
		return entities.Booking{}, fmt.Errorf("select booking: %w", err)
	}

	return row.entity(), nil
}

// UpdateBookingByID locks the row for the duration of the transaction
// in ctx, or of a new one.
func (r *BookingsRepository) UpdateBookingByID(
	ctx context.Context,
	id uuid.UUID,
	updateFn func(booking entities.Booking) (entities.Booking, error),
) (entities.Booking, error) {
	var updated entities.Booking

	err := r.tx.Do(ctx, func(ctx context.Context) error {
		current, err := r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}

		updated, err = updateFn(current)
		if err != nil {
			return err
		}

		_, err = r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, `
			UPDATE bookings SET
				status = $2,
				payment_status = $3,
				payment_order_ref = $4,
				payment_ref = $5,
				ticket_token = $6,
				cancel_reason = $7,
				confirmed_at = $8,
				cancelled_at = $9
			WHERE id = $1
		`,
			id,
			updated.Status,
			updated.PaymentStatus,
			updated.PaymentOrderRef,
			updated.PaymentRef,
			updated.TicketToken,
			updated.CancelReason,
			updated.ConfirmedAt,
			updated.CancelledAt,
		)
		if err != nil {
			return fmt.Errorf("update booking: %w", err)
		}

		return nil
	})
	if err != nil {
		return entities.Booking{}, err
	}

	return updated, nil
}

func (r *BookingsRepository) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]entities.Booking, error) {
	rows, err := r.getter.DefaultTrOrDB(ctx, r.db).QueryxContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE status = $1 AND hold_expires_at < $2
		ORDER BY hold_expires_at
		LIMIT $3
	`, entities.BookingStatusPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("select expired holds: %w", err)
	}
	defer rows.Close()

	var bookings []entities.Booking
	for rows.Next() {
		var row bookingRow
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, row.entity())
	}

	return bookings, rows.Err()
}
