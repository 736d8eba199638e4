// Package database implements the durable message store on PostgreSQL via pgx.
//
// The store is the source of truth: messages are broadcast only after a
// successful insert here, and clients reconcile missed pushes by re-querying
// it. IDs are UUIDv7 and timestamps are assigned on insert, never mutated.
package database
