package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"reservations/internal/domain/pricing"
	"reservations/internal/entities"
)

type SeatLedger interface {
	GetEvent(ctx context.Context, eventID uuid.UUID) (entities.Event, error)
	Reserve(ctx context.Context, eventID uuid.UUID, qty int) (entities.ReserveResult, error)
	Release(ctx context.Context, eventID uuid.UUID, qty int) (entities.Event, error)
}

type BookingsRepo interface {
	AddBooking(ctx context.Context, booking entities.Booking) error
	GetBooking(ctx context.Context, id uuid.UUID) (entities.Booking, error)
	// GetBookingByIdempotencyKey looks the key up among userID's bookings only.
	GetBookingByIdempotencyKey(ctx context.Context, userID, key string) (entities.Booking, error)
	UpdateBookingByID(
		ctx context.Context,
		id uuid.UUID,
		updateFn func(booking entities.Booking) (entities.Booking, error),
	) (entities.Booking, error)
	ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]entities.Booking, error)
}

type RefundsRepo interface {
	AddRefund(ctx context.Context, refund entities.Refund) error
	GetRefund(ctx context.Context, id uuid.UUID) (entities.Refund, error)
	UpdateRefundByID(
		ctx context.Context,
		id uuid.UUID,
		updateFn func(refund entities.Refund) (entities.Refund, error),
	) (entities.Refund, error)
	ListStaleRefunds(ctx context.Context, updatedBefore time.Time, limit int) ([]entities.Refund, error)
}

// Transactor runs fn in one atomic unit. Nested calls join the outer unit.
type Transactor interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher publishes into the transaction found in ctx, if any.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

//go:generate mockgen -destination=mocks/mock_risk_evaluator.go -package=mocks reservations/internal/application/usecases/booking RiskEvaluator
type RiskEvaluator interface {
	Evaluate(ctx context.Context, attempt entities.AttemptContext) (entities.RiskDecision, error)
}

//go:generate mockgen -destination=mocks/mock_payments_provider.go -package=mocks reservations/internal/application/usecases/booking PaymentsProvider
type PaymentsProvider interface {
	CreateOrder(ctx context.Context, req entities.PaymentOrderRequest) (string, error)
	Refund(ctx context.Context, req entities.RefundRequest) error
}

type TicketIssuer interface {
	Issue(booking entities.Booking) (string, error)
}

type Config struct {
	HoldTTL  time.Duration
	Schedule pricing.Schedule

	RiskTimeout       time.Duration
	RiskMaxRetries    int
	RiskRetryInterval time.Duration

	PaymentTimeout       time.Duration
	RefundReconcileAfter time.Duration
	SweepBatchSize       int

	// Now is replaced in tests.
	Now func() time.Time
}

func DefaultConfig() Config {
	return Config{
		HoldTTL:              15 * time.Minute,
		Schedule:             pricing.DefaultSchedule(),
		RiskTimeout:          2 * time.Second,
		RiskMaxRetries:       2,
		RiskRetryInterval:    100 * time.Millisecond,
		PaymentTimeout:       10 * time.Second,
		RefundReconcileAfter: 5 * time.Minute,
		SweepBatchSize:       100,
	}
}

type Usecase struct {
	ledger    SeatLedger
	bookings  BookingsRepo
	refunds   RefundsRepo
	tx        Transactor
	publisher EventPublisher
	risk      RiskEvaluator
	payments  PaymentsProvider
	tickets   TicketIssuer
	config    Config
}

func NewUsecase(
	ledger SeatLedger,
	bookings BookingsRepo,
	refunds RefundsRepo,
	tx Transactor,
	publisher EventPublisher,
	risk RiskEvaluator,
	payments PaymentsProvider,
	tickets TicketIssuer,
	config Config,
) *Usecase {
	if config.Now == nil {
		config.Now = func() time.Time { return time.Now().UTC() }
	}
	defaults := DefaultConfig()
	if config.SweepBatchSize <= 0 {
		config.SweepBatchSize = defaults.SweepBatchSize
	}
	if config.RiskTimeout <= 0 {
		config.RiskTimeout = defaults.RiskTimeout
	}
	if config.PaymentTimeout <= 0 {
		config.PaymentTimeout = defaults.PaymentTimeout
	}

	return &Usecase{
		ledger:    ledger,
		bookings:  bookings,
		refunds:   refunds,
		tx:        tx,
		publisher: publisher,
		risk:      risk,
		payments:  payments,
		tickets:   tickets,
		config:    config,
	}
}

func (u *Usecase) GetBooking(ctx context.Context, id uuid.UUID) (entities.Booking, error) {
	return u.bookings.GetBooking(ctx, id)
}
