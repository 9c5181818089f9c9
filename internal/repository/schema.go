package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = []struct {
	name  string
	query string
}{
	{"events", `
CREATE TABLE IF NOT EXISTS events (
	id UUID PRIMARY KEY,
	title VARCHAR(255) NOT NULL,
	total_seats INTEGER NOT NULL CHECK (total_seats >= 0),
	booked_seats INTEGER NOT NULL DEFAULT 0,
	unit_price BIGINT NOT NULL CHECK (unit_price >= 0),
	currency CHAR(3) NOT NULL,
	starts_at TIMESTAMP WITH TIME ZONE NOT NULL,
	allow_cancellation BOOLEAN NOT NULL DEFAULT FALSE,
	cancellation_deadline_hours INTEGER NOT NULL DEFAULT 0,
	cancellation_fee_flat BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL,
	CONSTRAINT booked_seats_within_capacity CHECK (booked_seats >= 0 AND booked_seats <= total_seats)
);`},
	{"bookings", `
CREATE TABLE IF NOT EXISTS bookings (
	id UUID PRIMARY KEY,
	event_id UUID NOT NULL REFERENCES events(id),
	user_id VARCHAR(255) NOT NULL,
	email VARCHAR(255) NOT NULL DEFAULT '',
	seats INTEGER NOT NULL CHECK (seats >= 1),
	unit_price BIGINT NOT NULL,
	currency CHAR(3) NOT NULL,
	subtotal BIGINT NOT NULL,
	convenience_fee BIGINT NOT NULL,
	platform_fee BIGINT NOT NULL,
	gst BIGINT NOT NULL,
	final_amount BIGINT NOT NULL,
	status VARCHAR(16) NOT NULL,
	payment_status VARCHAR(16) NOT NULL,
	payment_order_ref VARCHAR(255) NOT NULL DEFAULT '',
	payment_ref VARCHAR(255) NOT NULL DEFAULT '',
	ticket_token TEXT NOT NULL DEFAULT '',
	risk_action VARCHAR(16) NOT NULL,
	risk_score INTEGER NOT NULL DEFAULT 0,
	risk_tags TEXT[] NOT NULL DEFAULT '{}',
	idempotency_key VARCHAR(255),
	cancel_reason VARCHAR(64) NOT NULL DEFAULT '',
	hold_expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL,
	confirmed_at TIMESTAMP WITH TIME ZONE,
	cancelled_at TIMESTAMP WITH TIME ZONE
);
DROP INDEX IF EXISTS bookings_idempotency_key;
CREATE UNIQUE INDEX IF NOT EXISTS bookings_user_idempotency_key ON bookings (user_id, idempotency_key) WHERE idempotency_key IS NOT NULL;
CREATE INDEX IF NOT EXISTS bookings_pending_holds ON bookings (hold_expires_at) WHERE status = 'PENDING';`},
	{"refunds", `
CREATE TABLE IF NOT EXISTS refunds (
	id UUID PRIMARY KEY,
	booking_id UUID NOT NULL REFERENCES bookings(id),
	event_id UUID NOT NULL,
	seats INTEGER NOT NULL,
	amount BIGINT NOT NULL CHECK (amount >= 0),
	flat_fee BIGINT NOT NULL DEFAULT 0,
	currency CHAR(3) NOT NULL,
	payment_ref VARCHAR(255) NOT NULL DEFAULT '',
	reason TEXT NOT NULL DEFAULT '',
	status VARCHAR(16) NOT NULL,
	failure_reason TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP WITH TIME ZONE NOT NULL,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS refunds_open_per_booking ON refunds (booking_id) WHERE status IN ('PENDING', 'APPROVED', 'PROCESSING');`},
	{"waitlist_entries", `
CREATE TABLE IF NOT EXISTS waitlist_entries (
	id UUID PRIMARY KEY,
	event_id UUID NOT NULL REFERENCES events(id),
	email VARCHAR(255) NOT NULL,
	phone VARCHAR(32) NOT NULL DEFAULT '',
	user_id VARCHAR(255) NOT NULL DEFAULT '',
	status VARCHAR(16) NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL,
	invited_at TIMESTAMP WITH TIME ZONE,
	claimed_at TIMESTAMP WITH TIME ZONE
);
CREATE UNIQUE INDEX IF NOT EXISTS waitlist_entries_open_per_email ON waitlist_entries (event_id, email) WHERE status IN ('ACTIVE', 'INVITED');
CREATE INDEX IF NOT EXISTS waitlist_entries_queue ON waitlist_entries (event_id, created_at, id) WHERE status = 'ACTIVE';`},
	{"waitlist_offers", `
CREATE TABLE IF NOT EXISTS waitlist_offers (
	id UUID PRIMARY KEY,
	event_id UUID NOT NULL REFERENCES events(id),
	entry_id UUID NOT NULL REFERENCES waitlist_entries(id),
	quantity INTEGER NOT NULL CHECK (quantity >= 1),
	status VARCHAR(16) NOT NULL,
	expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL,
	claimed_at TIMESTAMP WITH TIME ZONE,
	expired_at TIMESTAMP WITH TIME ZONE
);
CREATE UNIQUE INDEX IF NOT EXISTS waitlist_offers_pending_per_entry ON waitlist_offers (entry_id) WHERE status = 'PENDING';
CREATE INDEX IF NOT EXISTS waitlist_offers_pending_expiry ON waitlist_offers (expires_at) WHERE status = 'PENDING';`},
	{"waitlist_releases", `
CREATE TABLE IF NOT EXISTS waitlist_releases (
	release_key VARCHAR(255) PRIMARY KEY,
	event_id UUID NOT NULL REFERENCES events(id),
	quantity INTEGER NOT NULL CHECK (quantity >= 0),
	issued INTEGER NOT NULL DEFAULT 0 CHECK (issued <= quantity)
);`},
	{"datalake_events", `
CREATE TABLE IF NOT EXISTS datalake_events (
	event_id UUID PRIMARY KEY,
	published_at TIMESTAMP WITH TIME ZONE NOT NULL,
	event_name VARCHAR(255) NOT NULL,
	event_payload JSONB NOT NULL
);`},
}

func InitializeDBSchema(db *sqlx.DB) error {
	for _, table := range schema {
		if _, err := db.ExecContext(context.Background(), table.query); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}
	return nil
}
