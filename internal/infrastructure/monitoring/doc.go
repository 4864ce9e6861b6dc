// Package monitoring provides Prometheus metrics for the swarmlens backend.
//
// Metric Families:
//   - swarmlens_http_*: Request counts and latencies (via gin middleware)
//   - swarmlens_agents, swarmlens_agents_working: Store gauges
//   - swarmlens_status_transitions_total: Observed transitions by direction
//   - swarmlens_stage_*: Queue depth, serviced/dropped/elided intents,
//     renderer errors, force-stops
//   - swarmlens_ws_*: Connection gauges and message counts per endpoint
//
// Queue overflow and elision produce no API-level signal; these counters
// are the only place that data loss becomes observable.
//
// Example Usage:
//
//	metrics := monitoring.NewMetrics()
//	router.Use(monitoring.Middleware(metrics))
//	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
package monitoring
