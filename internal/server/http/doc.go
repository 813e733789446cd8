// Package httpserver provides the REST gateway for Podium: score submits,
// board reads with a degraded ledger fallback, SSE board subscriptions,
// and the admin recovery trigger.
package httpserver
