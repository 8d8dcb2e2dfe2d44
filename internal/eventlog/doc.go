// Package eventlog implements the event sourcing machinery behind the
// booking engine: an append-only Redis event log with optimistic
// concurrency, pure event appliers, snapshots, at-least-once event relays
// over Redis Streams, and cold offloading of retired aggregates.
//
// Typical usage:
//   - Open a Store backed by Redis
//   - Define Appliers that fold events into your aggregate state
//   - Use an Executor to run Commands that raise events on an Aggregator
//   - Attach Relays to consume committed events downstream
package eventlog
