package risk_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reservations/internal/entities"
	"reservations/internal/infrastructure/risk"
)

func TestVelocityEvaluator(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	counter := risk.NewMemoryCounter(func() time.Time { return now })
	evaluator := risk.NewVelocityEvaluator(counter, risk.Config{
		Window:         time.Minute,
		ReviewAttempts: 3,
		RejectAttempts: 5,
	})
	ctx := context.Background()

	attempt := entities.AttemptContext{UserID: "user-1", EventID: "event-1", Seats: 2}

	var actions []entities.RiskAction
	for i := 0; i < 5; i++ {
		decision, err := evaluator.Evaluate(ctx, attempt)
		require.NoError(t, err)
		actions = append(actions, decision.Action)
	}

	assert.Equal(t, []entities.RiskAction{
		entities.RiskActionAllow,
		entities.RiskActionAllow,
		entities.RiskActionReview,
		entities.RiskActionReview,
		entities.RiskActionReject,
	}, actions)

	// the window restarts after it lapsed
	now = now.Add(time.Minute)
	decision, err := evaluator.Evaluate(ctx, attempt)
	require.NoError(t, err)
	assert.Equal(t, entities.RiskActionAllow, decision.Action)
	assert.Equal(t, 0, decision.Score)
}

func TestVelocityEvaluator_bulk_quantity(t *testing.T) {
	evaluator := risk.NewVelocityEvaluator(risk.NewMemoryCounter(nil), risk.Config{BulkSeats: 4})

	decision, err := evaluator.Evaluate(context.Background(), entities.AttemptContext{
		UserID:  "user-1",
		EventID: "event-1",
		Seats:   5,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.RiskActionReview, decision.Action)
	assert.Equal(t, []string{risk.TagBulkQuantity}, decision.Tags)
}

func TestVelocityEvaluator_users_are_counted_separately(t *testing.T) {
	evaluator := risk.NewVelocityEvaluator(risk.NewMemoryCounter(nil), risk.Config{
		ReviewAttempts: 2,
		RejectAttempts: 3,
	})
	ctx := context.Background()

	for _, user := range []string{"a", "b", "c"} {
		decision, err := evaluator.Evaluate(ctx, entities.AttemptContext{UserID: user, EventID: "event-1", Seats: 1})
		require.NoError(t, err)
		assert.Equal(t, entities.RiskActionAllow, decision.Action, user)
	}
}
