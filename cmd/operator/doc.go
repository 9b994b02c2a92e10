// Package main (cmd/operator) provides offline maintenance commands for the
// registry ledger state.
//
// It works directly against a state store and snapshot storage, without a
// running server:
//
//	head     - print the last committed action
//	export   - archive the state to snapshot storage
//	import   - load a snapshot into an empty state store
//	inspect  - fetch and verify a snapshot and summarize its rows
//
// Moving a registry from SQLite to Postgres, for example:
//
//	operator export --state-dsn=sqlite:///var/lib/registry/state.db \
//	    --snapshot-uri=file:///var/backups/registry
//	operator import --state-dsn=postgres://registry@db:5432/registry \
//	    --snapshot-uri=file:///var/backups/registry --id=<content id>
package main
