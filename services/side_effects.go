package services

import (
	"context"
	"fmt"

	"github.com/satis-shop/satis-api/metrics"
	"github.com/satis-shop/satis-api/models"
	"go.uber.org/zap"
)

// SideEffect is work that runs after a transition has committed
type SideEffect struct {
	Name string
	Run  func(ctx context.Context, order *models.Order) error
}

// SideEffectRunner runs post-commit effects in order. A failing or panicking
// effect is logged and counted; the remaining effects still run.
type SideEffectRunner struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewSideEffectRunner creates a side-effect runner
func NewSideEffectRunner(logger *zap.Logger, m *metrics.Metrics) *SideEffectRunner {
	return &SideEffectRunner{logger: logger, metrics: m}
}

// Run executes effects sequentially and returns the names of the ones that failed
func (r *SideEffectRunner) Run(ctx context.Context, order *models.Order, effects ...SideEffect) []string {
	var failed []string
	for _, effect := range effects {
		if err := r.runOne(ctx, order, effect); err != nil {
			failed = append(failed, effect.Name)
			r.metrics.SideEffectFailures.WithLabelValues(effect.Name).Inc()
			r.logger.Error("post-commit side effect failed",
				zap.String("effect", effect.Name),
				zap.Uint("order_id", order.ID),
				zap.Error(err),
			)
		}
	}
	return failed
}

func (r *SideEffectRunner) runOne(ctx context.Context, order *models.Order, effect SideEffect) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return effect.Run(ctx, order)
}
