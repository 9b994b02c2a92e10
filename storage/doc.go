// Package storage archives registry ledger state.
//
// A snapshot is the canonical JSON form of every ledger row plus the head
// sequence. It is addressed by the Keccak-256 hash of its bytes, so archiving
// an unchanged ledger twice yields the same ContentID.
//
// Backends are chosen by location URI:
//
//	file:///var/lib/ork-registry/snapshots
//	s3://ACCESS:SECRET@bucket/prefix?region=us-west-2&endpoint=http://minio:9000
//	vault://vault.example.com:8200/secret/ork-registry?token=s.xxx&tls=true
//	ipfs://127.0.0.1:5001/ork-registry?timeout=30s
//
// Several URIs are combined into a MultiStorageBackend.
//
// Snapshots carry key fragments. Every backend writes them private.
package storage
