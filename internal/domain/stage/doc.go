// Package stage serializes agent focus animations for the visual stage.
//
// The stage supports exactly one focused agent at a time, so all animation
// intents flow through a single-consumer queue with elision rules:
//   - Duplicate pending unfocus intents for an agent are suppressed
//   - A focus cancelled by its matching unfocus before being serviced
//     nets out to nothing
//   - Overflow beyond the configured bound drops the oldest pending intent
//
// Timing floors keep the stage readable for humans: a serviced focus holds
// for a minimum display duration, an unfocus for a shorter transition delay.
//
// Recovery:
//   - Clear drops pending intents, leaving an in-flight animation alone
//   - ForceStop additionally resets the consumer bookkeeping and the
//     renderer's visual state; a generation counter guarantees a stale
//     in-flight continuation cannot undo the reset
//
// Example Usage:
//
//	queue := stage.NewQueue(stage.DefaultConfig(), renderer, logger)
//	queue.Enqueue(types.Intent{Kind: types.IntentFocus, AgentID: "a1"})
package stage
