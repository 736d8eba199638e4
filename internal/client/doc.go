// Package client implements the subscriber side of the fan-out: a local
// ordered message view with gap recovery against the durable store, and a
// reconnecting transport loop with exponential backoff. Both the WebSocket
// and SSE bindings feed the same view.
package client
