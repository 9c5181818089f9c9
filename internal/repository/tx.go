package repository

import (
	"context"
	"database/sql"
	"errors"

	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	trmanager "github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/avito-tech/go-transaction-manager/trm/v2/settings"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"reservations/internal/entities"
)

// Transactor runs callbacks in a READ COMMITTED transaction. Seat and
// status changes rely on row locks and conditional updates, not on
// serializable isolation. Nested calls join the outer transaction.
type Transactor struct {
	manager *trmanager.Manager
}

func NewTransactor(db *sqlx.DB) *Transactor {
	return &Transactor{
		manager: trmanager.Must(trmsqlx.NewDefaultFactory(db)),
	}
}

func (t *Transactor) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.manager.DoWithSettings(
		ctx,
		trmsql.MustSettings(
			settings.Must(settings.WithCancelable(true)),
			trmsql.WithTxOptions(&sql.TxOptions{Isolation: sql.LevelReadCommitted}),
		),
		fn,
	)
}

const (
	codeUniqueViolation = "23505"
	codeCheckViolation  = "23514"
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == codeUniqueViolation
}

// mapLedgerError turns a violated seat constraint into the domain error.
func mapLedgerError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == codeCheckViolation {
		return errors.Join(entities.ErrLedgerInvariant, err)
	}
	return err
}
