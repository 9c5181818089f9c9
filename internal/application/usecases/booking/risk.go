package booking

import (
	"context"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/cenkalti/backoff/v3"

	"reservations/internal/entities"
	"reservations/internal/observability"
)

// evaluateRisk asks the risk gate with a per-call timeout and a bounded
// number of retries. When the gate stays unavailable the attempt proceeds
// as REVIEW so a person looks at it later.
func (u *Usecase) evaluateRisk(ctx context.Context, attempt entities.AttemptContext) (entities.RiskDecision, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = u.config.RiskRetryInterval
	policy.MaxInterval = 4 * u.config.RiskRetryInterval

	var decision entities.RiskDecision
	err := backoff.Retry(func() error {
		callCtx, cancel := context.WithTimeout(ctx, u.config.RiskTimeout)
		defer cancel()

		d, err := u.risk.Evaluate(callCtx, attempt)
		if err != nil {
			log.FromContext(ctx).WithError(err).Warn("Risk gate call failed")
			return err
		}
		decision = d
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(u.config.RiskMaxRetries)), ctx))
	if err != nil {
		if ctx.Err() != nil {
			return entities.RiskDecision{}, ctx.Err()
		}

		log.FromContext(ctx).WithError(err).Error("Risk gate unavailable, falling back to manual review")
		decision = entities.RiskDecision{
			Action: entities.RiskActionReview,
			Tags:   []string{entities.RiskTagGateUnavailable},
		}
	}

	observability.RiskDecisions.WithLabelValues(string(decision.Action)).Inc()

	return decision, nil
}
