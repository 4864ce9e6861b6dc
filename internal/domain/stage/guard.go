package stage

import (
	"context"

	"go.uber.org/zap"

	"github.com/swarmlens/backend/internal/infrastructure/logging"
	"github.com/swarmlens/backend/internal/infrastructure/resilience"
)

// GuardedRenderer wraps a Renderer with a circuit breaker. A wedged visual
// client then fails fast instead of stalling every queued intent on a full
// ack timeout, and the queue keeps draining.
type GuardedRenderer struct {
	inner   Renderer
	breaker *resilience.Breaker
}

// NewGuardedRenderer creates a breaker-guarded renderer
func NewGuardedRenderer(inner Renderer, logger *logging.Logger) *GuardedRenderer {
	breaker := resilience.New("renderer", resilience.Settings{
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("renderer breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &GuardedRenderer{inner: inner, breaker: breaker}
}

// Focus runs the focus primitive through the breaker
func (g *GuardedRenderer) Focus(ctx context.Context, agentID, task string) error {
	return g.breaker.Execute(func() error {
		return g.inner.Focus(ctx, agentID, task)
	})
}

// Unfocus runs the unfocus primitive through the breaker
func (g *GuardedRenderer) Unfocus(ctx context.Context, agentID string) error {
	return g.breaker.Execute(func() error {
		return g.inner.Unfocus(ctx, agentID)
	})
}

// Reset passes through and closes the breaker; a force-stop is the
// operator saying the pipeline should try again.
func (g *GuardedRenderer) Reset() {
	g.inner.Reset()
	g.breaker.Reset()
}
