package interfaces

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// Table names a keyed ledger table.
type Table string

const (
	UsersTable      Table = "users"
	OrksTable       Table = "orks"
	ContainersTable Table = "containers"
)

// Scope partitions a table. Users and orks live in GlobalScope; containers
// live in the scope of the custodian account that wrote them.
type Scope string

const GlobalScope Scope = "global"

// IdentityScope returns the storage scope owned by an identity.
func IdentityScope(id Identity) Scope {
	return Scope(id.String())
}

// Row is a stored ledger value together with the sequence of the action
// that last wrote it.
type Row struct {
	Table Table  `json:"table"`
	Scope Scope  `json:"scope"`
	Key   string `json:"key"`
	Value []byte `json:"value"`
	Seq   uint64 `json:"seq"`
}

// Write is a single buffered upsert. Rows are never deleted.
type Write struct {
	Table Table
	Scope Scope
	Key   string
	Value []byte
}

// ActionRecord is the receipt of one committed action.
type ActionRecord struct {
	Seq       uint64      `json:"seq"`
	Action    string      `json:"action"`
	Actor     Identity    `json:"actor"`
	Hash      common.Hash `json:"hash"`
	Timestamp int64       `json:"timestamp"`
	Writes    int         `json:"writes"`
}

var (
	// ErrRowNotFound is returned by StateStore.Get for absent rows.
	ErrRowNotFound = errors.New("row not found")

	// ErrSequenceConflict is returned when an action is applied with a
	// sequence that does not advance the store head.
	ErrSequenceConflict = errors.New("action sequence does not advance head")

	// ErrStoreNotEmpty is returned when restoring a snapshot into a store that already holds actions.
	ErrStoreNotEmpty = errors.New("state store is not empty")
)

// StateStore persists ledger rows and the action log.
type StateStore interface {
	// Get returns the value at (table, scope, key) or ErrRowNotFound.
	Get(ctx context.Context, table Table, scope Scope, key string) ([]byte, error)

	// List returns all rows of a table scope ordered by key.
	List(ctx context.Context, table Table, scope Scope) ([]Row, error)

	// Apply atomically commits the writes of one action and appends its record.
	// record.Seq must exceed the current head.
	Apply(ctx context.Context, record ActionRecord, writes []Write) error

	// Head returns the sequence of the last applied action, 0 when empty.
	Head(ctx context.Context) (uint64, error)

	// Actions returns up to limit action records with Seq >= from.
	Actions(ctx context.Context, from uint64, limit int) ([]ActionRecord, error)

	// Dump returns every row ordered by table, scope and key.
	Dump(ctx context.Context) ([]Row, error)

	Close() error
}
