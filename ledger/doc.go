// Package ledger orders registry actions into a single total sequence and
// commits each one atomically against a StateStore.
//
// An action runs against a Tx: reads see the action's own buffered writes
// first, then the store. When the action function returns nil the buffered
// writes and an ActionRecord are committed together through
// StateStore.Apply. When it returns an error nothing is written.
//
// Row values are RLP encoded. Three stores are provided:
//
//   - MemoryStore: in-process maps, for tests and single-node simulators
//   - SQLStore on SQLite (modernc.org/sqlite), for embedded durable state
//   - SQLStore on Postgres (pgx), for shared durable state
//
// OpenStore picks one by DSN scheme.
package ledger
