package risk

import (
	"context"
	"fmt"
	"time"

	"reservations/internal/entities"
)

const (
	TagVelocity      = "velocity"
	TagBulkQuantity  = "bulk_quantity"
	TagSharedAddress = "shared_address"
)

// Counter counts attempts per key within a window that starts at the
// first attempt.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

type Config struct {
	Window time.Duration
	// ReviewAttempts and RejectAttempts are per user and event.
	ReviewAttempts int64
	RejectAttempts int64
	// BulkSeats sends larger single attempts to review.
	BulkSeats int
	// IPAttempts is the per address limit across users before review.
	IPAttempts int64
}

func DefaultConfig() Config {
	return Config{
		Window:         10 * time.Minute,
		ReviewAttempts: 5,
		RejectAttempts: 20,
		BulkSeats:      10,
		IPAttempts:     50,
	}
}

// VelocityEvaluator scores booking attempts by how often the same user and
// address tried the same event recently.
type VelocityEvaluator struct {
	counter Counter
	config  Config
}

func NewVelocityEvaluator(counter Counter, config Config) *VelocityEvaluator {
	defaults := DefaultConfig()
	if config.Window <= 0 {
		config.Window = defaults.Window
	}
	if config.ReviewAttempts <= 0 {
		config.ReviewAttempts = defaults.ReviewAttempts
	}
	if config.RejectAttempts <= 0 {
		config.RejectAttempts = defaults.RejectAttempts
	}
	if config.BulkSeats <= 0 {
		config.BulkSeats = defaults.BulkSeats
	}
	if config.IPAttempts <= 0 {
		config.IPAttempts = defaults.IPAttempts
	}

	return &VelocityEvaluator{
		counter: counter,
		config:  config,
	}
}

func (v *VelocityEvaluator) Evaluate(ctx context.Context, attempt entities.AttemptContext) (entities.RiskDecision, error) {
	userAttempts, err := v.counter.Incr(ctx, fmt.Sprintf("risk:user:%s:%s", attempt.EventID, attempt.UserID), v.config.Window)
	if err != nil {
		return entities.RiskDecision{}, fmt.Errorf("count user attempts: %w", err)
	}

	var ipAttempts int64
	if attempt.IP != "" {
		ipAttempts, err = v.counter.Incr(ctx, fmt.Sprintf("risk:ip:%s:%s", attempt.EventID, attempt.IP), v.config.Window)
		if err != nil {
			return entities.RiskDecision{}, fmt.Errorf("count address attempts: %w", err)
		}
	}

	decision := entities.RiskDecision{
		Action: entities.RiskActionAllow,
		Score:  score(userAttempts, v.config.RejectAttempts),
	}

	if userAttempts >= v.config.RejectAttempts {
		decision.Action = entities.RiskActionReject
		decision.Tags = append(decision.Tags, TagVelocity)
		return decision, nil
	}

	if userAttempts >= v.config.ReviewAttempts {
		decision.Tags = append(decision.Tags, TagVelocity)
	}
	if attempt.Seats > v.config.BulkSeats {
		decision.Tags = append(decision.Tags, TagBulkQuantity)
	}
	if ipAttempts >= v.config.IPAttempts {
		decision.Tags = append(decision.Tags, TagSharedAddress)
	}
	if len(decision.Tags) > 0 {
		decision.Action = entities.RiskActionReview
	}

	return decision, nil
}

// score maps attempts onto 0..100, reaching 100 at the reject limit.
func score(attempts, rejectAt int64) int {
	if attempts <= 1 {
		return 0
	}
	if rejectAt <= 1 {
		return 100
	}
	return int(min((attempts-1)*100/(rejectAt-1), 100))
}
