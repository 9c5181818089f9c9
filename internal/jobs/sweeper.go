package jobs

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"golang.org/x/sync/errgroup"
)

// Task is run every Interval. A non-positive Interval disables it.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (int, error)
}

// Sweeper runs the periodic maintenance tasks: expiring holds and offers
// and reconciling refunds. Every task is idempotent, so running several
// sweepers against the same database is safe.
type Sweeper struct {
	tasks []Task
}

func NewSweeper(tasks ...Task) *Sweeper {
	return &Sweeper{tasks: tasks}
}

// Run blocks until ctx is done. A failing run is logged and retried on the
// next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, task := range s.tasks {
		if task.Interval <= 0 {
			log.FromContext(ctx).WithField("task", task.Name).Info("Sweep task disabled")
			continue
		}

		task := task
		g.Go(func() error {
			s.loop(ctx, task)
			return nil
		})
	}

	return g.Wait()
}

func (s *Sweeper) loop(ctx context.Context, task Task) {
	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, task)
		}
	}
}

func (s *Sweeper) runOnce(ctx context.Context, task Task) {
	logger := log.FromContext(ctx).WithField("task", task.Name)

	n, err := task.Run(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.WithError(err).Error("Sweep failed")
		}
		return
	}

	if n > 0 {
		logger.WithField("count", n).Info("Sweep done")
	}
}
