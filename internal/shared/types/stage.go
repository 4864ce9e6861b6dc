package types

import "time"

// IntentKind identifies a stage animation primitive
type IntentKind string

const (
	IntentFocus   IntentKind = "focus"
	IntentUnfocus IntentKind = "unfocus"
)

// Intent is a queued request to transition the stage's focus state.
// Task is meaningful only for focus intents. QueuedAt is diagnostic.
type Intent struct {
	Kind     IntentKind `json:"kind"`
	AgentID  string     `json:"agent_id"`
	Task     string     `json:"task,omitempty"`
	QueuedAt time.Time  `json:"queued_at"`
}

// StageStatus is a point-in-time snapshot of the animation queue
type StageStatus struct {
	Length  int      `json:"length"`
	Running bool     `json:"running"`
	Current *Intent  `json:"current,omitempty"`
	Pending []Intent `json:"pending"`
}

// StageConfig is the runtime-tunable queue configuration, in wire form
type StageConfig struct {
	MinDisplayMs      int `json:"min_display_ms"`
	TransitionDelayMs int `json:"transition_delay_ms"`
	MaxPending        int `json:"max_pending"`
}
