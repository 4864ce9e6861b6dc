// Package ws provides the WebSocket boundaries of the stage pipeline.
//
// Two endpoints are exposed:
//   - /stage/stream: the browser renderer attaches here. The stage queue's
//     focus/unfocus primitives become commands pushed over this connection,
//     and the call blocks until the client acks the op or a deadline passes.
//   - /ingest: the upstream feed bridge pushes agent record changes here.
//     Changes are applied to the store in read order, without reordering.
//
// Message Types (Server → Renderer):
//   - focus: Highlight an agent, carries op_id, agent_id, task
//   - unfocus: Clear an agent's highlight, carries op_id, agent_id
//   - reset: Drop all visual state (force-stop, project switch)
//   - system, error, pong
//
// Message Types (Renderer → Server):
//   - ack: Animation for op_id finished
//   - ping: Keep-alive
//
// Message Types (Feed → Server):
//   - change: kind (added|modified|removed) plus the agent payload
//   - reset: Project switched; drop mirrored state and pending animations
//   - ping: Keep-alive
//
// Example Usage:
//
//	bridge := ws.NewBridge(5*time.Second, logger)
//	router.GET("/stage/stream", bridge.HandleRenderer)
package ws
