package stage

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/swarmlens/backend/internal/infrastructure/logging"
	"github.com/swarmlens/backend/internal/infrastructure/monitoring"
	"github.com/swarmlens/backend/internal/shared/types"
)

// Renderer executes stage primitives on the attached visual client.
// Focus and Unfocus return once the client finished the visual transition.
type Renderer interface {
	Focus(ctx context.Context, agentID, task string) error
	Unfocus(ctx context.Context, agentID string) error
	Reset()
}

// Config holds the queue's timing floors and size bound
type Config struct {
	MinDisplay      time.Duration // floor after a focus completes
	TransitionDelay time.Duration // floor after an unfocus completes
	MaxPending      int
}

// DefaultConfig returns production stage timing
func DefaultConfig() Config {
	return Config{
		MinDisplay:      2 * time.Second,
		TransitionDelay: 300 * time.Millisecond,
		MaxPending:      10,
	}
}

// Queue serializes focus/unfocus intents into one active visual operation
// at a time. The visual stage supports exactly one focused agent; without
// serialization, rapid start/stop events from multiple agents would produce
// overlapping animations.
//
// The generation counter invalidates in-flight drain cycles: ForceStop and
// Reset bump it, and a continuation returning from a renderer call abandons
// itself when its generation is stale, so it can never undo a reset.
type Queue struct {
	mu         sync.Mutex
	pending    []types.Intent // Protected by mu
	running    bool           // Protected by mu
	current    *types.Intent  // Protected by mu
	generation uint64         // Protected by mu
	cfg        Config         // Protected by mu

	renderer Renderer
	logger   *logging.Logger
	metrics  *monitoring.Metrics
}

// NewQueue creates an animation queue driving the given renderer
func NewQueue(cfg Config, renderer Renderer, logger *logging.Logger) *Queue {
	if cfg.MaxPending <= 0 {
		cfg.MaxPending = DefaultConfig().MaxPending
	}
	return &Queue{
		cfg:      cfg,
		renderer: renderer,
		logger:   logger,
	}
}

// WithMetrics adds metrics tracking to the queue
func (q *Queue) WithMetrics(metrics *monitoring.Metrics) *Queue {
	q.metrics = metrics
	return q
}

// Enqueue admits an intent, applying the elision rules, and kicks the
// consumer if it is not already draining. It never returns an error:
// overflow drops the oldest pending intent instead of rejecting the newest.
func (q *Queue) Enqueue(intent types.Intent) {
	var dropped *types.Intent
	elided := false

	q.mu.Lock()

	if len(q.pending) >= q.cfg.MaxPending {
		d := q.pending[0]
		q.pending = q.pending[1:]
		dropped = &d
	}

	appended := true
	if intent.Kind == types.IntentUnfocus {
		// A pending unfocus for the same agent already covers this one
		for _, p := range q.pending {
			if p.Kind == types.IntentUnfocus && p.AgentID == intent.AgentID {
				appended = false
				break
			}
		}
		// The agent started and stopped before its focus ever played:
		// cancel the pending focus instead of queueing a pointless flash.
		// Not applicable while that agent's focus is being serviced.
		if appended && (q.current == nil || q.current.AgentID != intent.AgentID) {
			for i, p := range q.pending {
				if p.Kind == types.IntentFocus && p.AgentID == intent.AgentID {
					q.pending = append(q.pending[:i], q.pending[i+1:]...)
					appended = false
					elided = true
					break
				}
			}
		}
	}

	if appended {
		intent.QueuedAt = time.Now()
		q.pending = append(q.pending, intent)
		if !q.running {
			q.running = true
			go q.drain(q.generation)
		}
	}
	q.publishDepthLocked()
	q.mu.Unlock()

	if dropped != nil {
		q.logger.Warn("stage queue full, dropped oldest intent",
			zap.String("kind", string(dropped.Kind)),
			zap.String("agent_id", dropped.AgentID),
		)
		if q.metrics != nil {
			q.metrics.RecordIntentDropped()
		}
	}
	if elided && q.metrics != nil {
		q.metrics.RecordIntentElided()
	}
}

// drain is the single consumer loop. Exactly one drain goroutine runs per
// generation; the running flag gates re-entry.
func (q *Queue) drain(gen uint64) {
	for {
		q.mu.Lock()
		if q.generation != gen {
			q.mu.Unlock()
			return
		}
		if len(q.pending) == 0 {
			q.running = false
			q.current = nil
			q.mu.Unlock()
			return
		}
		intent := q.pending[0]
		q.pending = q.pending[1:]
		q.current = &intent
		q.publishDepthLocked()
		hold := q.holdFor(intent.Kind)
		q.mu.Unlock()

		// A failed primitive showed nothing, so there is nothing to hold
		// on screen; skipping the floor keeps the backlog draining fast
		// while the renderer is down.
		if err := q.service(intent); err == nil {
			time.Sleep(hold)
		}

		q.mu.Lock()
		if q.generation != gen {
			// ForceStop reset the bookkeeping while we were animating
			q.mu.Unlock()
			return
		}
		q.current = nil
		q.mu.Unlock()
	}
}

// service invokes the renderer primitive for one intent. A failed animation
// must not wedge the queue, so errors are logged; the returned error only
// tells the consumer whether a timing hold is warranted.
func (q *Queue) service(intent types.Intent) error {
	var err error
	switch intent.Kind {
	case types.IntentFocus:
		err = q.renderer.Focus(context.Background(), intent.AgentID, intent.Task)
	case types.IntentUnfocus:
		err = q.renderer.Unfocus(context.Background(), intent.AgentID)
	}

	if err != nil {
		q.logger.Warn("stage primitive failed",
			zap.String("kind", string(intent.Kind)),
			zap.String("agent_id", intent.AgentID),
			zap.Error(err),
		)
		if q.metrics != nil {
			q.metrics.RecordStageError(string(intent.Kind))
		}
		return err
	}
	if q.metrics != nil {
		q.metrics.RecordIntentServiced(string(intent.Kind))
	}
	return nil
}

// Status returns the queue's diagnostic snapshot
func (q *Queue) Status() types.StageStatus {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := make([]types.Intent, len(q.pending))
	copy(pending, q.pending)

	var current *types.Intent
	if q.current != nil {
		c := *q.current
		current = &c
	}

	return types.StageStatus{
		Length:  len(q.pending),
		Running: q.running,
		Current: current,
		Pending: pending,
	}
}

// Clear empties the pending queue without touching an in-flight operation
func (q *Queue) Clear() {
	q.mu.Lock()
	q.pending = nil
	q.publishDepthLocked()
	q.mu.Unlock()
}

// ForceStop is the operator recovery path for a stuck pipeline: it clears
// the queue, resets the consumer bookkeeping, invalidates any in-flight
// drain cycle, and asks the renderer to reset all visual state. An
// animation primitive that is still executing is not interrupted; its
// continuation simply finds a newer generation and abandons itself.
func (q *Queue) ForceStop() {
	q.mu.Lock()
	q.pending = nil
	q.running = false
	q.current = nil
	q.generation++
	q.publishDepthLocked()
	q.mu.Unlock()

	q.logger.Info("stage force-stopped")
	q.renderer.Reset()
}

// SetTiming overrides the display/transition floors at runtime
func (q *Queue) SetTiming(minDisplay, transitionDelay time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if minDisplay > 0 {
		q.cfg.MinDisplay = minDisplay
	}
	if transitionDelay > 0 {
		q.cfg.TransitionDelay = transitionDelay
	}
}

// SetMaxPending overrides the queue bound at runtime. The new bound takes
// effect on the next enqueue; an already longer queue is not truncated.
func (q *Queue) SetMaxPending(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n > 0 {
		q.cfg.MaxPending = n
	}
}

// Config returns the current queue configuration
func (q *Queue) Config() Config {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cfg
}

func (q *Queue) holdFor(kind types.IntentKind) time.Duration {
	if kind == types.IntentFocus {
		return q.cfg.MinDisplay
	}
	return q.cfg.TransitionDelay
}

func (q *Queue) publishDepthLocked() {
	if q.metrics != nil {
		q.metrics.SetStageDepth(len(q.pending))
	}
}
