// Package server wires the HTTP surface: the chat REST API, the WebSocket
// and SSE delivery endpoints, uploads, auth verification, health checks, and
// Prometheus metrics. Handlers stay thin; fan-out lives in the registry and
// persistence in the database package.
package server
