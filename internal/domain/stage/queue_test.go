package stage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/swarmlens/backend/internal/infrastructure/logging"
	"github.com/swarmlens/backend/internal/shared/types"
)

type rendererCall struct {
	kind    types.IntentKind
	agentID string
	start   time.Time
	end     time.Time
	err     error
}

// fakeRenderer records primitive invocations. With a gate set, every
// primitive blocks until the gate is closed, which parks the consumer and
// makes enqueue-time behavior observable.
type fakeRenderer struct {
	mu          sync.Mutex
	calls       []rendererCall
	resets      int
	inFlight    int
	maxInFlight int

	gate      chan struct{}
	started   chan string
	failAgent string
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{started: make(chan string, 16)}
}

func (r *fakeRenderer) run(kind types.IntentKind, agentID string) error {
	r.mu.Lock()
	r.inFlight++
	if r.inFlight > r.maxInFlight {
		r.maxInFlight = r.inFlight
	}
	gate := r.gate
	call := rendererCall{kind: kind, agentID: agentID, start: time.Now()}
	r.mu.Unlock()

	r.started <- string(kind) + ":" + agentID
	if gate != nil {
		<-gate
	}

	var err error
	if agentID == r.failAgent {
		err = errors.New("renderer exploded")
	}

	r.mu.Lock()
	r.inFlight--
	call.end = time.Now()
	call.err = err
	r.calls = append(r.calls, call)
	r.mu.Unlock()
	return err
}

func (r *fakeRenderer) Focus(ctx context.Context, agentID, task string) error {
	return r.run(types.IntentFocus, agentID)
}

func (r *fakeRenderer) Unfocus(ctx context.Context, agentID string) error {
	return r.run(types.IntentUnfocus, agentID)
}

func (r *fakeRenderer) Reset() {
	r.mu.Lock()
	r.resets++
	r.mu.Unlock()
}

func (r *fakeRenderer) snapshot() []rendererCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	calls := make([]rendererCall, len(r.calls))
	copy(calls, r.calls)
	return calls
}

func (r *fakeRenderer) resetCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resets
}

func fastConfig() Config {
	return Config{
		MinDisplay:      20 * time.Millisecond,
		TransitionDelay: 5 * time.Millisecond,
		MaxPending:      10,
	}
}

func focusIntent(id, task string) types.Intent {
	return types.Intent{Kind: types.IntentFocus, AgentID: id, Task: task}
}

func unfocusIntent(id string) types.Intent {
	return types.Intent{Kind: types.IntentUnfocus, AgentID: id}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// parkConsumer enqueues an intent for parkID and blocks the consumer inside
// its focus primitive, so later enqueues accumulate as pending.
func parkConsumer(t *testing.T, q *Queue, r *fakeRenderer, parkID string) {
	t.Helper()
	r.gate = make(chan struct{})
	q.Enqueue(focusIntent(parkID, ""))
	select {
	case <-r.started:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer never started servicing")
	}
}

func TestSequentialServiceOrder(t *testing.T) {
	r := newFakeRenderer()
	q := NewQueue(fastConfig(), r, logging.NewNop())

	q.Enqueue(focusIntent("a1", "t1"))
	q.Enqueue(focusIntent("a2", "t2"))

	waitFor(t, "both intents serviced", func() bool { return len(r.snapshot()) == 2 })

	calls := r.snapshot()
	if calls[0].agentID != "a1" || calls[1].agentID != "a2" {
		t.Fatalf("expected arrival order a1,a2, got %s,%s", calls[0].agentID, calls[1].agentID)
	}
	if r.maxInFlight > 1 {
		t.Errorf("expected at most one primitive in flight, saw %d", r.maxInFlight)
	}

	// The second focus must not start before the first one's display floor
	gap := calls[1].start.Sub(calls[0].end)
	if gap < fastConfig().MinDisplay {
		t.Errorf("second focus started %v after first ended, want >= %v", gap, fastConfig().MinDisplay)
	}

	waitFor(t, "queue drained", func() bool {
		st := q.Status()
		return !st.Running && st.Length == 0 && st.Current == nil
	})
}

func TestDuplicateUnfocusSuppressed(t *testing.T) {
	r := newFakeRenderer()
	q := NewQueue(fastConfig(), r, logging.NewNop())
	parkConsumer(t, q, r, "dummy")
	defer close(r.gate)

	q.Enqueue(unfocusIntent("a1"))
	q.Enqueue(unfocusIntent("a1"))

	st := q.Status()
	if st.Length != 1 {
		t.Fatalf("expected duplicate unfocus suppressed, queue length %d", st.Length)
	}
}

func TestFocusCancelledByUnfocus(t *testing.T) {
	r := newFakeRenderer()
	q := NewQueue(fastConfig(), r, logging.NewNop())
	parkConsumer(t, q, r, "dummy")
	defer close(r.gate)

	q.Enqueue(focusIntent("a2", "t"))
	q.Enqueue(unfocusIntent("a2"))

	// The agent started and stopped before its focus played: net zero
	st := q.Status()
	if st.Length != 0 {
		t.Fatalf("expected empty pending after cancellation, got %d: %+v", st.Length, st.Pending)
	}
}

func TestNoCancellationForServicedAgent(t *testing.T) {
	r := newFakeRenderer()
	q := NewQueue(fastConfig(), r, logging.NewNop())
	parkConsumer(t, q, r, "a1") // focus(a1) is now the serviced intent
	defer close(r.gate)

	q.Enqueue(focusIntent("a1", "again"))
	q.Enqueue(unfocusIntent("a1"))

	// a1 is being serviced, so the pending focus must not be cancelled and
	// the unfocus must queue behind it
	st := q.Status()
	if st.Length != 2 {
		t.Fatalf("expected pending focus+unfocus, got %d: %+v", st.Length, st.Pending)
	}
	if st.Pending[0].Kind != types.IntentFocus || st.Pending[1].Kind != types.IntentUnfocus {
		t.Fatalf("unexpected pending order: %+v", st.Pending)
	}
}

func TestBoundedQueueDropsOldest(t *testing.T) {
	r := newFakeRenderer()
	q := NewQueue(fastConfig(), r, logging.NewNop())
	parkConsumer(t, q, r, "dummy")
	defer close(r.gate)

	q.SetMaxPending(2)
	q.Enqueue(focusIntent("a1", ""))
	q.Enqueue(focusIntent("a2", ""))
	q.Enqueue(focusIntent("a3", ""))

	st := q.Status()
	if st.Length != 2 {
		t.Fatalf("expected bounded length 2, got %d", st.Length)
	}
	if st.Pending[0].AgentID != "a2" || st.Pending[1].AgentID != "a3" {
		t.Fatalf("expected oldest dropped, pending = %+v", st.Pending)
	}
}

func TestRendererErrorDoesNotWedgeQueue(t *testing.T) {
	r := newFakeRenderer()
	r.failAgent = "bad"
	q := NewQueue(fastConfig(), r, logging.NewNop())

	q.Enqueue(focusIntent("bad", ""))
	q.Enqueue(focusIntent("good", ""))

	waitFor(t, "queue to keep draining past the failure", func() bool {
		calls := r.snapshot()
		return len(calls) == 2 && calls[1].agentID == "good" && calls[1].err == nil
	})
	waitFor(t, "queue drained", func() bool { return !q.Status().Running })
}

func TestFailedPrimitiveSkipsHold(t *testing.T) {
	r := newFakeRenderer()
	r.failAgent = "bad"
	cfg := fastConfig()
	cfg.MinDisplay = 500 * time.Millisecond
	q := NewQueue(cfg, r, logging.NewNop())

	q.Enqueue(focusIntent("bad", ""))
	q.Enqueue(focusIntent("good", ""))

	waitFor(t, "both intents serviced", func() bool { return len(r.snapshot()) == 2 })

	// The failed focus displayed nothing, so the next intent must start
	// without waiting out the display floor
	calls := r.snapshot()
	if gap := calls[1].start.Sub(calls[0].end); gap >= cfg.MinDisplay {
		t.Errorf("next intent waited %v after a failed focus, want < %v", gap, cfg.MinDisplay)
	}
}

func TestClearLeavesInFlight(t *testing.T) {
	r := newFakeRenderer()
	q := NewQueue(fastConfig(), r, logging.NewNop())
	parkConsumer(t, q, r, "a1")

	q.Enqueue(focusIntent("a2", ""))
	q.Enqueue(focusIntent("a3", ""))
	q.Clear()

	st := q.Status()
	if st.Length != 0 {
		t.Fatalf("expected pending cleared, got %d", st.Length)
	}
	if st.Current == nil || st.Current.AgentID != "a1" {
		t.Fatalf("expected in-flight a1 untouched, got %+v", st.Current)
	}
	if !st.Running {
		t.Fatal("expected consumer still running")
	}

	close(r.gate)
	waitFor(t, "consumer to finish", func() bool { return !q.Status().Running })

	// Cleared intents were never serviced
	for _, call := range r.snapshot() {
		if call.agentID == "a2" || call.agentID == "a3" {
			t.Fatalf("cleared intent was serviced: %+v", call)
		}
	}
}

func TestForceStopResetsEverything(t *testing.T) {
	r := newFakeRenderer()
	q := NewQueue(fastConfig(), r, logging.NewNop())
	parkConsumer(t, q, r, "a1")

	q.Enqueue(focusIntent("a2", ""))
	q.ForceStop()

	st := q.Status()
	if st.Length != 0 || st.Running || st.Current != nil {
		t.Fatalf("expected fully reset status, got %+v", st)
	}
	if r.resetCount() != 1 {
		t.Fatalf("expected exactly one visual reset, got %d", r.resetCount())
	}
}

func TestForceStopInvalidatesStaleContinuation(t *testing.T) {
	r := newFakeRenderer()
	q := NewQueue(fastConfig(), r, logging.NewNop())
	parkConsumer(t, q, r, "a1")

	q.Enqueue(focusIntent("a2", ""))
	q.ForceStop()

	// Release the parked a1 animation; its continuation belongs to the old
	// generation and must not advance the queue or touch the bookkeeping
	close(r.gate)
	time.Sleep(60 * time.Millisecond)

	st := q.Status()
	if st.Length != 0 || st.Running || st.Current != nil {
		t.Fatalf("stale continuation mutated state after force-stop: %+v", st)
	}
	if r.resetCount() != 1 {
		t.Fatalf("expected exactly one visual reset, got %d", r.resetCount())
	}
	for _, call := range r.snapshot() {
		if call.agentID == "a2" {
			t.Fatalf("cleared intent was serviced after force-stop: %+v", call)
		}
	}

	// A fresh enqueue starts a new generation and drains normally
	q.Enqueue(focusIntent("a3", ""))
	waitFor(t, "post-reset intent serviced", func() bool {
		for _, call := range r.snapshot() {
			if call.agentID == "a3" {
				return true
			}
		}
		return false
	})
}

func TestStatusReturnsCopies(t *testing.T) {
	r := newFakeRenderer()
	q := NewQueue(fastConfig(), r, logging.NewNop())
	parkConsumer(t, q, r, "a1")
	defer close(r.gate)

	q.Enqueue(focusIntent("a2", "t"))

	st := q.Status()
	st.Pending[0].AgentID = "mutated"
	st.Current.AgentID = "mutated"

	again := q.Status()
	if again.Pending[0].AgentID != "a2" || again.Current.AgentID != "a1" {
		t.Fatal("Status must return copies of internal state")
	}
}

func TestRuntimeConfigOverrides(t *testing.T) {
	r := newFakeRenderer()
	q := NewQueue(fastConfig(), r, logging.NewNop())

	q.SetTiming(50*time.Millisecond, 10*time.Millisecond)
	q.SetMaxPending(3)

	cfg := q.Config()
	if cfg.MinDisplay != 50*time.Millisecond {
		t.Errorf("expected min display 50ms, got %v", cfg.MinDisplay)
	}
	if cfg.TransitionDelay != 10*time.Millisecond {
		t.Errorf("expected transition delay 10ms, got %v", cfg.TransitionDelay)
	}
	if cfg.MaxPending != 3 {
		t.Errorf("expected max pending 3, got %d", cfg.MaxPending)
	}

	// Zero and negative values are ignored
	q.SetTiming(0, -time.Second)
	q.SetMaxPending(0)
	cfg = q.Config()
	if cfg.MinDisplay != 50*time.Millisecond || cfg.MaxPending != 3 {
		t.Errorf("invalid overrides must be ignored, got %+v", cfg)
	}
}
