package ledger

import (
	"context"
	"fmt"

	"github.com/ruteri/ork-registry/interfaces"
)

type rowKey struct {
	table interfaces.Table
	scope interfaces.Scope
	key   string
}

// Tx is the view one action has of the ledger while it executes.
// Writes are buffered until the executor commits them.
type Tx struct {
	ctx    context.Context
	store  interfaces.StateStore
	writes map[rowKey][]byte
	order  []rowKey
}

func newTx(ctx context.Context, store interfaces.StateStore) *Tx {
	return &Tx{
		ctx:    ctx,
		store:  store,
		writes: make(map[rowKey][]byte),
	}
}

// Context returns the context of the executing action.
func (tx *Tx) Context() context.Context {
	return tx.ctx
}

// Get decodes the row at (table, scope, key) into out.
// Returns interfaces.ErrRowNotFound if the row does not exist.
func (tx *Tx) Get(table interfaces.Table, scope interfaces.Scope, key string, out any) error {
	k := rowKey{table: table, scope: scope, key: key}

	data, buffered := tx.writes[k]
	if !buffered {
		var err error
		data, err = tx.store.Get(tx.ctx, table, scope, key)
		if err != nil {
			return err
		}
	}

	if err := Decode(data, out); err != nil {
		return fmt.Errorf("could not decode %s/%s/%s: %w", table, scope, key, err)
	}
	return nil
}

// Put buffers an upsert of v at (table, scope, key).
func (tx *Tx) Put(table interfaces.Table, scope interfaces.Scope, key string, v any) error {
	data, err := Encode(v)
	if err != nil {
		return fmt.Errorf("could not encode %s/%s/%s: %w", table, scope, key, err)
	}

	k := rowKey{table: table, scope: scope, key: key}
	if _, seen := tx.writes[k]; !seen {
		tx.order = append(tx.order, k)
	}
	tx.writes[k] = data
	return nil
}

// writeSet returns the buffered writes in first-write order.
func (tx *Tx) writeSet() []interfaces.Write {
	writes := make([]interfaces.Write, 0, len(tx.order))
	for _, k := range tx.order {
		writes = append(writes, interfaces.Write{
			Table: k.table,
			Scope: k.scope,
			Key:   k.key,
			Value: tx.writes[k],
		})
	}
	return writes
}
