// Package main (cmd/httpserver) runs the ork custody registry server.
//
// The server opens the ledger state store named by --state-dsn, builds the
// registry on top of it and serves the signed action and query API. Request
// nonces are tracked in redis when --redis-url is set, so that several
// replicas reject the same replayed request.
//
// Snapshots of the ledger state can be archived to one or more storage
// locations (--snapshot-uri, repeatable), either on demand through the owner
// only snapshot endpoint or every --snapshot-interval. A fresh store can be
// initialized from an archived snapshot with --restore-snapshot.
//
// Example usage:
//
//	registry-server --listen-addr=0.0.0.0:8080 \
//	    --state-dsn=postgres://registry:secret@db:5432/registry \
//	    --owner-key-file=./owner.key --seed-root \
//	    --redis-url=redis://redis:6379/0 \
//	    --snapshot-uri=file:///var/lib/registry \
//	    --snapshot-uri=s3://registry-snapshots/prod?region=eu-west-1 \
//	    --snapshot-interval=1h
//
// The server shuts down gracefully on SIGINT or SIGTERM.
package main
