// Package client provides the `podium` command-line client.
//
// The CLI talks to the Podium HTTP API to submit scores, read boards, and
// watch board notifications from a terminal. It is primarily intended for
// developers and operators.
//
// # Address configuration
//
// The HTTP base URL is discovered by the application that embeds the
// commands via a BaseURLFunc. When using the standalone binary, it
// defaults to http://127.0.0.1:8080 and can be overridden with the
// PODIUM_HTTP environment variable.
//
// Usage
//
//	podium score submit --user 42 --score 1200
//
//	podium board top --n 10
//	podium board rank --user 42
//
//	# Watch board changes over SSE; resume with --last-seen
//	podium board watch
//	podium board watch --last-seen 17 --filter 'top.exists(e, e.userId == 42)'
//
//	podium admin recover
package client
