// Package notify carries leaderboard-change notifications from the
// projection workers to subscribed connections.
//
// The projection side decides, per applied event, whether the rendered
// board changed enough to tell anyone (Throttle) and appends the rendered
// notification to a per-channel durable log (Emitter). The delivery side
// (Hub) tails that log per connection, enforces a per-connection rate
// ceiling, and coalesces bursts so a slow subscriber always ends on the
// latest board rather than a backlog of intermediate ones.
package notify
