/*
Package resilience provides a circuit breaker guarding the renderer bridge.

# Overview

The stage queue calls renderer primitives that block until the attached
visual client acks completion. If that client wedges, every queued intent
would otherwise burn a full ack timeout. The breaker fails those calls fast
after repeated failures and probes again after a cooldown.

# States

- Closed: Normal operation, requests pass through
- Open: Renderer unavailable, requests fail immediately with ErrCircuitOpen
- Half-Open: Testing if the renderer recovered

# Usage

	breaker := resilience.New("renderer", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
	})

	err := breaker.Execute(func() error {
		return bridge.Focus(ctx, agentID, task)
	})

Reset closes the breaker unconditionally; the stage's force-stop path uses
it so a recovered pipeline gets a clean slate.
*/
package resilience
