// Package interfaces defines the core types and interfaces of the ork
// registry, separating contracts between components from their
// implementations.
//
// # Records
//
// User: account registry row. A vendor begins a registration (pending,
// non-zero Timeout) and later confirms it (Timeout == 0). OrkLinks records,
// per vendor, the custodians that posted a fragment for the user.
//
// Ork: custodian directory row keyed by the username the custodian
// services. Only the identity stored as Account may modify it.
//
// Container: fragments one custodian holds for one user, stored in the
// custodian account's own scope.
//
// # Ledger
//
// StateStore: persistence of (table, scope, key) rows plus the ordered
// action log. Every action commits atomically through Apply.
//
// # Storage
//
// StorageBackend: content-addressed blob storage used to archive ledger
// snapshots across file, S3, IPFS and Vault backends.
//
// # Identity
//
// Identity is the 20-byte address of a secp256k1 key. The registry only
// ever compares identities; authentication happens at the API boundary.
package interfaces
