package swarm

import (
	"sort"
	"sync"

	"github.com/swarmlens/backend/internal/infrastructure/monitoring"
	"github.com/swarmlens/backend/internal/shared/types"
)

// IntentSink receives the animation intents produced by status transitions.
// The stage queue implements it; tests substitute a recorder.
type IntentSink interface {
	Enqueue(intent types.Intent)
}

// Store maintains the authoritative local mirror of remote agent records
// and translates raw change notifications into stage intents.
type Store struct {
	mu         sync.RWMutex
	agents     map[string]*types.Agent // Protected by mu
	lastStatus map[string]types.Status // Protected by mu
	sink       IntentSink
	metrics    *monitoring.Metrics
}

// NewStore creates a new agent store emitting into the given sink
func NewStore(sink IntentSink) *Store {
	return &Store{
		agents:     make(map[string]*types.Agent),
		lastStatus: make(map[string]types.Status),
		sink:       sink,
	}
}

// WithMetrics adds metrics tracking to the store
func (s *Store) WithMetrics(metrics *monitoring.Metrics) *Store {
	s.metrics = metrics
	return s
}

// Apply dispatches a feed change notification to the matching handler
func (s *Store) Apply(change types.Change) {
	switch change.Kind {
	case types.ChangeAdded:
		s.OnAdded(change.Agent)
	case types.ChangeModified:
		s.OnModified(change.Agent)
	case types.ChangeRemoved:
		s.OnRemoved(change.Agent)
	}
}

// OnAdded inserts a newly observed agent. An agent first observed while
// already working gets an immediate focus intent.
func (s *Store) OnAdded(rec types.Agent) {
	s.mu.Lock()
	s.insert(rec)
	s.mu.Unlock()

	if rec.Status == types.StatusWorking {
		s.sink.Enqueue(types.Intent{
			Kind:    types.IntentFocus,
			AgentID: rec.ID,
			Task:    rec.CurrentTask,
		})
	}
	s.publishCounts()
}

// OnModified overwrites the stored record and emits an intent when the
// status crossed one of the two canonical transitions. Any other change,
// including statuses outside the known enum, updates history only.
func (s *Store) OnModified(rec types.Agent) {
	s.mu.Lock()
	prev, seen := s.lastStatus[rec.ID]
	if !seen {
		// Feed delivered a modify for an agent we never saw added;
		// treat it as the first observation.
		s.insert(rec)
		s.mu.Unlock()
		if rec.Status == types.StatusWorking {
			s.sink.Enqueue(types.Intent{
				Kind:    types.IntentFocus,
				AgentID: rec.ID,
				Task:    rec.CurrentTask,
			})
		}
		s.publishCounts()
		return
	}

	recCopy := rec
	s.agents[rec.ID] = &recCopy

	if prev == rec.Status {
		s.mu.Unlock()
		s.publishCounts()
		return
	}
	s.lastStatus[rec.ID] = rec.Status
	s.mu.Unlock()

	switch {
	case prev == types.StatusIdle && rec.Status == types.StatusWorking:
		s.recordTransition("idle_to_working")
		s.sink.Enqueue(types.Intent{
			Kind:    types.IntentFocus,
			AgentID: rec.ID,
			Task:    rec.CurrentTask,
		})
	case prev == types.StatusWorking && rec.Status == types.StatusIdle:
		s.recordTransition("working_to_idle")
		s.sink.Enqueue(types.Intent{
			Kind:    types.IntentUnfocus,
			AgentID: rec.ID,
		})
	default:
		// Unknown status values drive no animation
		s.recordTransition("other")
	}
	s.publishCounts()
}

// OnRemoved deletes the record and its status history. No unfocus is
// emitted; the renderer no-ops on a missing target.
func (s *Store) OnRemoved(rec types.Agent) {
	s.mu.Lock()
	delete(s.agents, rec.ID)
	delete(s.lastStatus, rec.ID)
	s.mu.Unlock()
	s.publishCounts()
}

// Get retrieves an agent by ID
func (s *Store) Get(id string) (*types.Agent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agent, ok := s.agents[id]
	if !ok {
		return nil, false
	}

	// Return a copy to prevent external modifications
	agentCopy := *agent
	return &agentCopy, true
}

// Snapshot returns copies of all agents, ordered by ID
func (s *Store) Snapshot() []types.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agents := make([]types.Agent, 0, len(s.agents))
	for _, agent := range s.agents {
		agents = append(agents, *agent)
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].ID < agents[j].ID })
	return agents
}

// Count returns the number of tracked agents
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.agents)
}

// WorkingCount returns the number of agents currently working
func (s *Store) WorkingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workingLocked()
}

// Stats returns store statistics as one atomic read
func (s *Store) Stats() types.SwarmStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return types.SwarmStats{
		TotalAgents:   len(s.agents),
		WorkingAgents: s.workingLocked(),
	}
}

// Reset drops all records and history. Used when the observed project
// changes so stale agents do not leak into the new context.
func (s *Store) Reset() {
	s.mu.Lock()
	s.agents = make(map[string]*types.Agent)
	s.lastStatus = make(map[string]types.Status)
	s.mu.Unlock()
	s.publishCounts()
}

// insert stores the record and seeds its status history (must hold mu)
func (s *Store) insert(rec types.Agent) {
	recCopy := rec
	s.agents[rec.ID] = &recCopy
	s.lastStatus[rec.ID] = rec.Status
}

func (s *Store) workingLocked() int {
	working := 0
	for _, agent := range s.agents {
		if agent.Status == types.StatusWorking {
			working++
		}
	}
	return working
}

func (s *Store) publishCounts() {
	if s.metrics == nil {
		return
	}
	stats := s.Stats()
	s.metrics.SetAgents(stats.TotalAgents, stats.WorkingAgents)
}

func (s *Store) recordTransition(direction string) {
	if s.metrics != nil {
		s.metrics.RecordTransition(direction)
	}
}
