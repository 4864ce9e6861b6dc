package stage

import (
	"context"
	"errors"
	"testing"

	"github.com/swarmlens/backend/internal/infrastructure/logging"
	"github.com/swarmlens/backend/internal/infrastructure/resilience"
)

type errRenderer struct {
	err    error
	calls  int
	resets int
}

func (r *errRenderer) Focus(ctx context.Context, agentID, task string) error {
	r.calls++
	return r.err
}

func (r *errRenderer) Unfocus(ctx context.Context, agentID string) error {
	r.calls++
	return r.err
}

func (r *errRenderer) Reset() {
	r.resets++
}

func TestGuardedRendererTripsOnRepeatedFailures(t *testing.T) {
	inner := &errRenderer{err: errors.New("wedged")}
	g := NewGuardedRenderer(inner, logging.NewNop())

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if err := g.Focus(ctx, "a1", ""); err == nil {
			t.Fatal("expected failure from inner renderer")
		}
	}

	// Breaker is open now: the inner renderer must not be reached
	callsBefore := inner.calls
	err := g.Unfocus(ctx, "a1")
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if inner.calls != callsBefore {
		t.Fatal("open breaker must fail fast without invoking the renderer")
	}
}

func TestGuardedRendererResetClosesBreaker(t *testing.T) {
	inner := &errRenderer{err: errors.New("wedged")}
	g := NewGuardedRenderer(inner, logging.NewNop())

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		g.Focus(ctx, "a1", "")
	}

	g.Reset()
	if inner.resets != 1 {
		t.Fatalf("expected visual reset to pass through, got %d", inner.resets)
	}

	// Post-reset calls reach the renderer again
	inner.err = nil
	if err := g.Focus(ctx, "a1", ""); err != nil {
		t.Fatalf("expected call to pass after reset, got %v", err)
	}
}
