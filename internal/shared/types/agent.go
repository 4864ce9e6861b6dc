package types

import "time"

// Status represents an agent's activity state as reported by the upstream feed
type Status string

const (
	StatusIdle    Status = "idle"
	StatusWorking Status = "working"
)

// Agent is one observed agent record, mirrored from the upstream feed.
// Display metadata (Name, Color, Kind) is opaque and passed through to clients.
type Agent struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Color       string    `json:"color,omitempty"`
	Kind        string    `json:"kind,omitempty"`
	Status      Status    `json:"status"`
	CurrentTask string    `json:"current_task,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// ChangeKind identifies what kind of record change the feed delivered
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
)

// Change is a single record-change notification from the upstream feed
type Change struct {
	Kind  ChangeKind `json:"kind"`
	Agent Agent      `json:"agent"`
}

// SwarmStats contains agent store statistics
type SwarmStats struct {
	TotalAgents   int `json:"total_agents"`
	WorkingAgents int `json:"working_agents"`
}
