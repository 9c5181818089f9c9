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

type WaitlistRepository struct {
	db     *sqlx.DB
	getter *trmsqlx.CtxGetter
	tx     *Transactor
}

func NewWaitlistRepository(db *sqlx.DB, getter *trmsqlx.CtxGetter, tx *Transactor) *WaitlistRepository {
	return &WaitlistRepository{
		db:     db,
		getter: getter,
		tx:     tx,
	}
}

const entryColumns = `id, event_id, email, phone, user_id, status, created_at, invited_at, claimed_at`

type entryRow struct {
	ID        uuid.UUID  `db:"id"`
	EventID   uuid.UUID  `db:"event_id"`
	Email     string     `db:"email"`
	Phone     string     `db:"phone"`
	UserID    string     `db:"user_id"`
	Status    string     `db:"status"`
	CreatedAt time.Time  `db:"created_at"`
	InvitedAt *time.Time `db:"invited_at"`
	ClaimedAt *time.Time `db:"claimed_at"`
}

func (r entryRow) entity() entities.WaitlistEntry {
	return entities.WaitlistEntry{
		ID:        r.ID,
		EventID:   r.EventID,
		Email:     r.Email,
		Phone:     r.Phone,
		UserID:    r.UserID,
		Status:    entities.WaitlistStatus(r.Status),
		CreatedAt: r.CreatedAt.UTC(),
		InvitedAt: utc(r.InvitedAt),
		ClaimedAt: utc(r.ClaimedAt),
	}
}

const offerColumns = `id, event_id, entry_id, quantity, status, expires_at, created_at, claimed_at, expired_at`

type offerRow struct {
	ID        uuid.UUID  `db:"id"`
	EventID   uuid.UUID  `db:"event_id"`
	EntryID   uuid.UUID  `db:"entry_id"`
	Quantity  int        `db:"quantity"`
	Status    string     `db:"status"`
	ExpiresAt time.Time  `db:"expires_at"`
	CreatedAt time.Time  `db:"created_at"`
	ClaimedAt *time.Time `db:"claimed_at"`
	ExpiredAt *time.Time `db:"expired_at"`
}

func (r offerRow) entity() entities.WaitlistOffer {
	return entities.WaitlistOffer{
		ID:        r.ID,
		EventID:   r.EventID,
		EntryID:   r.EntryID,
		Quantity:  r.Quantity,
		Status:    entities.OfferStatus(r.Status),
		ExpiresAt: r.ExpiresAt.UTC(),
		CreatedAt: r.CreatedAt.UTC(),
		ClaimedAt: utc(r.ClaimedAt),
		ExpiredAt: utc(r.ExpiredAt),
	}
}

func (r *WaitlistRepository) AddEntry(ctx context.Context, entry entities.WaitlistEntry) error {
	_, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, `
		INSERT INTO waitlist_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		entry.ID,
		entry.EventID,
		entry.Email,
		entry.Phone,
		entry.UserID,
		entry.Status,
		entry.CreatedAt,
		entry.InvitedAt,
		entry.ClaimedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("open waitlist entry for %s: %w", entry.Email, entities.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("insert waitlist entry: %w", err)
	}

	return nil
}

func (r *WaitlistRepository) GetEntry(ctx context.Context, id uuid.UUID) (entities.WaitlistEntry, error) {
	return r.getEntry(ctx, `SELECT `+entryColumns+` FROM waitlist_entries WHERE id = $1`, id)
}

func (r *WaitlistRepository) FindOpenEntry(ctx context.Context, eventID uuid.UUID, email string) (entities.WaitlistEntry, error) {
	return r.getEntry(ctx, `
		SELECT `+entryColumns+`
		FROM waitlist_entries
		WHERE event_id = $1 AND email = $2 AND status IN ($3, $4)
	`, eventID, email, entities.WaitlistStatusActive, entities.WaitlistStatusInvited)
}

func (r *WaitlistRepository) FindLatestEntry(ctx context.Context, eventID uuid.UUID, email string) (entities.WaitlistEntry, error) {
	return r.getEntry(ctx, `
		SELECT `+entryColumns+`
		FROM waitlist_entries
		WHERE event_id = $1 AND email = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, eventID, email)
}

// NextActiveEntry skips entries locked by a concurrent issuer, so two
// issuers never pick the same entry.
func (r *WaitlistRepository) NextActiveEntry(ctx context.Context, eventID uuid.UUID) (entities.WaitlistEntry, error) {
	return r.getEntry(ctx, `
		SELECT `+entryColumns+`
		FROM waitlist_entries
		WHERE event_id = $1 AND status = $2
		ORDER BY created_at, id
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`, eventID, entities.WaitlistStatusActive)
}

func (r *WaitlistRepository) getEntry(ctx context.Context, query string, args ...any) (entities.WaitlistEntry, error) {
	var row entryRow
	err := r.getter.DefaultTrOrDB(ctx, r.db).QueryRowxContext(ctx, query, args...).StructScan(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.WaitlistEntry{}, fmt.Errorf("waitlist entry: %w", entities.ErrNotFound)
	}
	if err != nil {
		return entities.WaitlistEntry{}, fmt.Errorf("select waitlist entry: %w", err)
	}

	return row.entity(), nil
}

func (r *WaitlistRepository) UpdateEntryByID(
	ctx context.Context,
	id uuid.UUID,
	updateFn func(entry entities.WaitlistEntry) (entities.WaitlistEntry, error),
) (entities.WaitlistEntry, error) {
	var updated entities.WaitlistEntry

	err := r.tx.Do(ctx, func(ctx context.Context) error {
		current, err := r.getEntry(ctx, `SELECT `+entryColumns+` FROM waitlist_entries WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}

		updated, err = updateFn(current)
		if err != nil {
			return err
		}

		_, err = r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, `
			UPDATE waitlist_entries
			SET status = $2, invited_at = $3, claimed_at = $4
			WHERE id = $1
		`, id, updated.Status, updated.InvitedAt, updated.ClaimedAt)
		if err != nil {
			return fmt.Errorf("update waitlist entry: %w", err)
		}

		return nil
	})
	if err != nil {
		return entities.WaitlistEntry{}, err
	}

	return updated, nil
}

func (r *WaitlistRepository) AddOffer(ctx context.Context, offer entities.WaitlistOffer) error {
	_, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, `
		INSERT INTO waitlist_offers (`+offerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		offer.ID,
		offer.EventID,
		offer.EntryID,
		offer.Quantity,
		offer.Status,
		offer.ExpiresAt,
		offer.CreatedAt,
		offer.ClaimedAt,
		offer.ExpiredAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("pending offer for entry %s: %w", offer.EntryID, entities.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("insert waitlist offer: %w", err)
	}

	return nil
}

func (r *WaitlistRepository) GetOffer(ctx context.Context, id uuid.UUID) (entities.WaitlistOffer, error) {
	return r.getOffer(ctx, `SELECT `+offerColumns+` FROM waitlist_offers WHERE id = $1`, id)
}

func (r *WaitlistRepository) FindPendingOffer(ctx context.Context, entryID uuid.UUID) (entities.WaitlistOffer, error) {
	return r.getOffer(ctx, `
		SELECT `+offerColumns+`
		FROM waitlist_offers
		WHERE entry_id = $1 AND status = $2
	`, entryID, entities.OfferStatusPending)
}

func (r *WaitlistRepository) getOffer(ctx context.Context, query string, args ...any) (entities.WaitlistOffer, error) {
	var row offerRow
	err := r.getter.DefaultTrOrDB(ctx, r.db).QueryRowxContext(ctx, query, args...).StructScan(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.WaitlistOffer{}, fmt.Errorf("waitlist offer: %w", entities.ErrNotFound)
	}
	if err != nil {
		return entities.WaitlistOffer{}, fmt.Errorf("select waitlist offer: %w", err)
	}

	return row.entity(), nil
}

func (r *WaitlistRepository) UpdateOfferByID(
	ctx context.Context,
	id uuid.UUID,
	updateFn func(offer entities.WaitlistOffer) (entities.WaitlistOffer, error),
) (entities.WaitlistOffer, error) {
	var updated entities.WaitlistOffer

	err := r.tx.Do(ctx, func(ctx context.Context) error {
		current, err := r.getOffer(ctx, `SELECT `+offerColumns+` FROM waitlist_offers WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}

		updated, err = updateFn(current)
		if err != nil {
			return err
		}

		_, err = r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, `
			UPDATE waitlist_offers
			SET status = $2, claimed_at = $3, expired_at = $4
			WHERE id = $1
		`, id, updated.Status, updated.ClaimedAt, updated.ExpiredAt)
		if err != nil {
			return fmt.Errorf("update waitlist offer: %w", err)
		}

		return nil
	})
	if err != nil {
		return entities.WaitlistOffer{}, err
	}

	return updated, nil
}

func (r *WaitlistRepository) ListExpiredOffers(ctx context.Context, now time.Time, limit int) ([]entities.WaitlistOffer, error) {
	rows, err := r.getter.DefaultTrOrDB(ctx, r.db).QueryxContext(ctx, `
		SELECT `+offerColumns+`
		FROM waitlist_offers
		WHERE status = $1 AND expires_at < $2
		ORDER BY expires_at
		LIMIT $3
	`, entities.OfferStatusPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("select expired offers: %w", err)
	}
	defer rows.Close()

	var offers []entities.WaitlistOffer
	for rows.Next() {
		var row offerRow
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scan waitlist offer: %w", err)
		}
		offers = append(offers, row.entity())
	}

	return offers, rows.Err()
}

// TakeReleaseSlot locks the release row, so concurrent deliveries of the
// same release take slots one after another.
func (r *WaitlistRepository) TakeReleaseSlot(ctx context.Context, releaseKey string, eventID uuid.UUID, quantity int) (bool, error) {
	db := r.getter.DefaultTrOrDB(ctx, r.db)

	_, err := db.ExecContext(ctx, `
		INSERT INTO waitlist_releases (release_key, event_id, quantity, issued)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (release_key) DO NOTHING
	`, releaseKey, eventID, quantity)
	if err != nil {
		return false, fmt.Errorf("insert waitlist release: %w", err)
	}

	var issued int
	err = db.QueryRowxContext(ctx, `
		UPDATE waitlist_releases
		SET issued = issued + 1
		WHERE release_key = $1 AND issued < quantity
		RETURNING issued
	`, releaseKey).Scan(&issued)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("update waitlist release: %w", err)
	}

	return true, nil
}
