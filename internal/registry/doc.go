// Package registry implements the connection registry and fan-out broadcaster using the actor pattern.
//
// A single Hub goroutine owns both delivery sets (bidirectional WebSocket connections and
// stream-only SSE subscribers), driven by a command channel - no mutexes. Per-connection
// write goroutines absorb slow or dead recipients so one bad connection never stalls a
// fan-out pass. Delivery is best-effort: the broadcaster is a latency optimization on top
// of the durable store, not the source of truth.
package registry
