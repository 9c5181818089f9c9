package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"reservations/internal/entities"
)

type EventsRepo interface {
	AddEvent(ctx context.Context, event entities.Event) error
	GetEvent(ctx context.Context, id uuid.UUID) (entities.Event, error)
}

type CreateEventRequest struct {
	Title      string
	TotalSeats int
	UnitPrice  int64
	Currency   string
	StartsAt   time.Time

	AllowCancellation         bool
	CancellationDeadlineHours int
	CancellationFeeFlat       int64
}

type Usecase struct {
	eventsRepo EventsRepo
	now        func() time.Time
}

func NewUsecase(eventsRepo EventsRepo) *Usecase {
	return &Usecase{
		eventsRepo: eventsRepo,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (u *Usecase) CreateEvent(ctx context.Context, req CreateEventRequest) (entities.Event, error) {
	switch {
	case req.TotalSeats < 0:
		return entities.Event{}, fmt.Errorf("total seats %d: %w", req.TotalSeats, entities.ErrInvalidArgument)
	case req.UnitPrice < 0:
		return entities.Event{}, fmt.Errorf("unit price %d: %w", req.UnitPrice, entities.ErrInvalidArgument)
	case req.CancellationDeadlineHours < 0 || req.CancellationFeeFlat < 0:
		return entities.Event{}, fmt.Errorf("cancellation policy: %w", entities.ErrInvalidArgument)
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = "INR"
	}

	event := entities.Event{
		ID:                        uuid.New(),
		Title:                     req.Title,
		TotalSeats:                req.TotalSeats,
		UnitPrice:                 req.UnitPrice,
		Currency:                  currency,
		StartsAt:                  req.StartsAt.UTC(),
		AllowCancellation:         req.AllowCancellation,
		CancellationDeadlineHours: req.CancellationDeadlineHours,
		CancellationFeeFlat:       req.CancellationFeeFlat,
		CreatedAt:                 u.now(),
	}

	if err := u.eventsRepo.AddEvent(ctx, event); err != nil {
		return entities.Event{}, fmt.Errorf("add event: %w", err)
	}

	return event, nil
}

func (u *Usecase) GetEvent(ctx context.Context, id uuid.UUID) (entities.Event, error) {
	return u.eventsRepo.GetEvent(ctx, id)
}
