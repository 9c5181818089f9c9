package waitlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"

	"reservations/internal/entities"
)

type Repository interface {
	AddEntry(ctx context.Context, entry entities.WaitlistEntry) error
	GetEntry(ctx context.Context, id uuid.UUID) (entities.WaitlistEntry, error)
	FindOpenEntry(ctx context.Context, eventID uuid.UUID, email string) (entities.WaitlistEntry, error)
	FindLatestEntry(ctx context.Context, eventID uuid.UUID, email string) (entities.WaitlistEntry, error)
	// NextActiveEntry returns the oldest ACTIVE entry and keeps it locked
	// for the rest of the transaction.
	NextActiveEntry(ctx context.Context, eventID uuid.UUID) (entities.WaitlistEntry, error)
	UpdateEntryByID(
		ctx context.Context,
		id uuid.UUID,
		updateFn func(entry entities.WaitlistEntry) (entities.WaitlistEntry, error),
	) (entities.WaitlistEntry, error)

	AddOffer(ctx context.Context, offer entities.WaitlistOffer) error
	GetOffer(ctx context.Context, id uuid.UUID) (entities.WaitlistOffer, error)
	FindPendingOffer(ctx context.Context, entryID uuid.UUID) (entities.WaitlistOffer, error)
	UpdateOfferByID(
		ctx context.Context,
		id uuid.UUID,
		updateFn func(offer entities.WaitlistOffer) (entities.WaitlistOffer, error),
	) (entities.WaitlistOffer, error)
	ListExpiredOffers(ctx context.Context, now time.Time, limit int) ([]entities.WaitlistOffer, error)

	// TakeReleaseSlot counts one more offer against the quantity freed
	// under releaseKey. It reports false once that quantity is used up.
	TakeReleaseSlot(ctx context.Context, releaseKey string, eventID uuid.UUID, quantity int) (bool, error)
}

type EventsReader interface {
	GetEvent(ctx context.Context, eventID uuid.UUID) (entities.Event, error)
}

type Transactor interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

type Config struct {
	OfferTTL       time.Duration
	SweepBatchSize int
	Now            func() time.Time
}

type Usecase struct {
	repo      Repository
	events    EventsReader
	tx        Transactor
	publisher EventPublisher
	config    Config
}

func NewUsecase(
	repo Repository,
	events EventsReader,
	tx Transactor,
	publisher EventPublisher,
	config Config,
) *Usecase {
	if config.OfferTTL <= 0 {
		config.OfferTTL = 30 * time.Minute
	}
	if config.SweepBatchSize <= 0 {
		config.SweepBatchSize = 100
	}
	if config.Now == nil {
		config.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Usecase{
		repo:      repo,
		events:    events,
		tx:        tx,
		publisher: publisher,
		config:    config,
	}
}

type JoinRequest struct {
	EventID uuid.UUID
	Email   string
	Phone   string
	UserID  string
}

// Join adds email to a sold out event's waitlist. Joining again while an
// entry is still ACTIVE or INVITED returns that entry, even if seats have
// been freed since.
func (u *Usecase) Join(ctx context.Context, req JoinRequest) (entities.WaitlistEntry, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return entities.WaitlistEntry{}, fmt.Errorf("email is required: %w", entities.ErrInvalidArgument)
	}

	event, err := u.events.GetEvent(ctx, req.EventID)
	if err != nil {
		return entities.WaitlistEntry{}, fmt.Errorf("get event: %w", err)
	}

	existing, err := u.repo.FindOpenEntry(ctx, req.EventID, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, entities.ErrNotFound) {
		return entities.WaitlistEntry{}, fmt.Errorf("find open entry: %w", err)
	}

	if !event.IsSoldOut() {
		return entities.WaitlistEntry{}, fmt.Errorf(
			"%d seats left for event %s: %w", event.Remaining(), event.ID, entities.ErrSeatsAvailable,
		)
	}

	entry := entities.WaitlistEntry{
		ID:        uuid.New(),
		EventID:   req.EventID,
		Email:     email,
		Phone:     req.Phone,
		UserID:    req.UserID,
		Status:    entities.WaitlistStatusActive,
		CreatedAt: u.config.Now(),
	}

	err = u.repo.AddEntry(ctx, entry)
	if errors.Is(err, entities.ErrAlreadyExists) {
		// lost a race with the same join
		return u.repo.FindOpenEntry(ctx, req.EventID, email)
	}
	if err != nil {
		return entities.WaitlistEntry{}, fmt.Errorf("add waitlist entry: %w", err)
	}

	log.FromContext(ctx).WithField("entry_id", entry.ID).WithField("event_id", entry.EventID).Info("Joined waitlist")

	return entry, nil
}

type Status struct {
	Entry entities.WaitlistEntry  `json:"entry"`
	Offer *entities.WaitlistOffer `json:"offer,omitempty"`
}

func (u *Usecase) Status(ctx context.Context, eventID uuid.UUID, email string) (Status, error) {
	entry, err := u.repo.FindLatestEntry(ctx, eventID, normalizeEmail(email))
	if err != nil {
		return Status{}, fmt.Errorf("find waitlist entry: %w", err)
	}

	status := Status{Entry: entry}
	if entry.Status != entities.WaitlistStatusInvited {
		return status, nil
	}

	offer, err := u.repo.FindPendingOffer(ctx, entry.ID)
	switch {
	case err == nil:
		status.Offer = &offer
	case !errors.Is(err, entities.ErrNotFound):
		return Status{}, fmt.Errorf("find pending offer: %w", err)
	}

	return status, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
