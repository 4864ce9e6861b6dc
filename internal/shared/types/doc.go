// Package types provides shared data structures for the swarmlens backend.
//
// This package defines core types used across all backend components,
// ensuring type safety and consistent data structures.
//
// Core Types:
//   - Agent: Observed agent record mirrored from the upstream feed
//   - Change: Single added/modified/removed feed notification
//   - Intent: Queued stage focus/unfocus request
//
// State Management:
//   - Status: Agent status enum (idle, working)
//   - StageStatus: Animation queue snapshot
//   - StageConfig: Runtime-tunable queue configuration
//   - SwarmStats: Agent store statistics
//
// Example Usage:
//
//	agent := types.Agent{
//	    ID:          "a1",
//	    Name:        "builder",
//	    Status:      types.StatusWorking,
//	    CurrentTask: "compiling",
//	}
package types
