package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ruteri/ork-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// storesUnderTest returns a fresh instance of every store that can run without external services.
func storesUnderTest(t *testing.T) map[string]interfaces.StateStore {
	t.Helper()

	sqliteStore, err := NewSQLiteStore(context.Background(), ":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]interfaces.StateStore{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
	}
}

type testRecord struct {
	Name  string
	Count uint64
}

func TestStateStore_ApplyAndRead(t *testing.T) {
	ctx := context.Background()
	alice, _ := interfaces.NewIdentityFromHex("0x00000000000000000000000000000000000000a1")

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			head, err := store.Head(ctx)
			require.NoError(t, err)
			assert.Equal(t, uint64(0), head)

			_, err = store.Get(ctx, interfaces.UsersTable, interfaces.GlobalScope, "alice")
			assert.ErrorIs(t, err, interfaces.ErrRowNotFound)

			err = store.Apply(ctx, interfaces.ActionRecord{Seq: 1, Action: "first", Actor: alice}, []interfaces.Write{
				{Table: interfaces.UsersTable, Scope: interfaces.GlobalScope, Key: "bob", Value: []byte{0x01}},
				{Table: interfaces.UsersTable, Scope: interfaces.GlobalScope, Key: "alice", Value: []byte{0x02}},
				{Table: interfaces.ContainersTable, Scope: interfaces.IdentityScope(alice), Key: "alice", Value: []byte{0x03}},
			})
			require.NoError(t, err)

			err = store.Apply(ctx, interfaces.ActionRecord{Seq: 2, Action: "second", Actor: alice}, []interfaces.Write{
				{Table: interfaces.UsersTable, Scope: interfaces.GlobalScope, Key: "alice", Value: []byte{0x04}},
			})
			require.NoError(t, err)

			value, err := store.Get(ctx, interfaces.UsersTable, interfaces.GlobalScope, "alice")
			require.NoError(t, err)
			assert.Equal(t, []byte{0x04}, value)

			rows, err := store.List(ctx, interfaces.UsersTable, interfaces.GlobalScope)
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, "alice", rows[0].Key)
			assert.Equal(t, uint64(2), rows[0].Seq)
			assert.Equal(t, "bob", rows[1].Key)
			assert.Equal(t, uint64(1), rows[1].Seq)

			scoped, err := store.List(ctx, interfaces.ContainersTable, interfaces.IdentityScope(alice))
			require.NoError(t, err)
			require.Len(t, scoped, 1)

			other, err := store.List(ctx, interfaces.ContainersTable, interfaces.GlobalScope)
			require.NoError(t, err)
			assert.Empty(t, other)

			dump, err := store.Dump(ctx)
			require.NoError(t, err)
			require.Len(t, dump, 3)
			assert.Equal(t, interfaces.ContainersTable, dump[0].Table)
			assert.Equal(t, interfaces.UsersTable, dump[1].Table)

			head, err = store.Head(ctx)
			require.NoError(t, err)
			assert.Equal(t, uint64(2), head)

			actions, err := store.Actions(ctx, 2, 10)
			require.NoError(t, err)
			require.Len(t, actions, 1)
			assert.Equal(t, "second", actions[0].Action)
			assert.Equal(t, alice, actions[0].Actor)

			actions, err = store.Actions(ctx, 0, 1)
			require.NoError(t, err)
			require.Len(t, actions, 1)
			assert.Equal(t, uint64(1), actions[0].Seq)
		})
	}
}

func TestStateStore_RejectsStaleSequence(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Apply(ctx, interfaces.ActionRecord{Seq: 1, Action: "a"}, nil))

			err := store.Apply(ctx, interfaces.ActionRecord{Seq: 1, Action: "b"}, []interfaces.Write{
				{Table: interfaces.OrksTable, Scope: interfaces.GlobalScope, Key: "ork1", Value: []byte{0x01}},
			})
			assert.ErrorIs(t, err, interfaces.ErrSequenceConflict)

			_, err = store.Get(ctx, interfaces.OrksTable, interfaces.GlobalScope, "ork1")
			assert.ErrorIs(t, err, interfaces.ErrRowNotFound)
		})
	}
}

func TestExecutor_CommitsBufferedWrites(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			executor := NewExecutor(store, testLogger())

			record, err := executor.Execute(ctx, Action{Name: "count", Payload: testRecord{Name: "x"}}, func(tx *Tx) error {
				if err := tx.Put(interfaces.UsersTable, interfaces.GlobalScope, "x", testRecord{Name: "x", Count: 1}); err != nil {
					return err
				}

				// Reads observe the action's own writes.
				var current testRecord
				if err := tx.Get(interfaces.UsersTable, interfaces.GlobalScope, "x", &current); err != nil {
					return err
				}
				current.Count++
				return tx.Put(interfaces.UsersTable, interfaces.GlobalScope, "x", current)
			})
			require.NoError(t, err)
			assert.Equal(t, uint64(1), record.Seq)
			assert.Equal(t, 1, record.Writes)
			assert.NotEqual(t, [32]byte{}, [32]byte(record.Hash))

			data, err := store.Get(ctx, interfaces.UsersTable, interfaces.GlobalScope, "x")
			require.NoError(t, err)
			var stored testRecord
			require.NoError(t, Decode(data, &stored))
			assert.Equal(t, testRecord{Name: "x", Count: 2}, stored)

			second, err := executor.Execute(ctx, Action{Name: "count", Payload: testRecord{Name: "x"}}, func(tx *Tx) error {
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, uint64(2), second.Seq)
			assert.NotEqual(t, record.Hash, second.Hash)
		})
	}
}

func TestExecutor_FailedActionLeavesNoState(t *testing.T) {
	ctx := context.Background()
	errBoom := errors.New("boom")

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			executor := NewExecutor(store, testLogger())

			_, err := executor.Execute(ctx, Action{Name: "partial"}, func(tx *Tx) error {
				if err := tx.Put(interfaces.UsersTable, interfaces.GlobalScope, "a", testRecord{Name: "a"}); err != nil {
					return err
				}
				return errBoom
			})
			assert.ErrorIs(t, err, errBoom)

			_, err = store.Get(ctx, interfaces.UsersTable, interfaces.GlobalScope, "a")
			assert.ErrorIs(t, err, interfaces.ErrRowNotFound)

			head, err := store.Head(ctx)
			require.NoError(t, err)
			assert.Equal(t, uint64(0), head)
		})
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	store, err := OpenStore(ctx, "", testLogger())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = OpenStore(ctx, "sqlite://:memory:", testLogger())
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, store)
	require.NoError(t, store.Close())

	_, err = OpenStore(ctx, "mysql://localhost", testLogger())
	assert.Error(t, err)
}

func TestSQLStore_Rebind(t *testing.T) {
	pg := &SQLStore{dialect: dialectPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE b = $1 AND c = $2", pg.rebind("SELECT a FROM t WHERE b = ? AND c = ?"))

	lite := &SQLStore{dialect: dialectSQLite}
	assert.Equal(t, "SELECT a FROM t WHERE b = ?", lite.rebind("SELECT a FROM t WHERE b = ?"))
}
