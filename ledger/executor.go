package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ruteri/ork-registry/interfaces"
	"github.com/ruteri/ork-registry/metrics"
)

// Action describes one mutation submitted to the ledger. Payload must be
// RLP encodable; it is hashed into the action record.
type Action struct {
	Name    string
	Actor   interfaces.Identity
	Payload any
}

// Executor applies actions one at a time in submission order.
type Executor struct {
	mu    sync.Mutex
	store interfaces.StateStore
	log   *slog.Logger
	now   func() time.Time
}

func NewExecutor(store interfaces.StateStore, log *slog.Logger) *Executor {
	return &Executor{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// Store returns the underlying state store for read-only queries.
func (e *Executor) Store() interfaces.StateStore {
	return e.store
}

// Execute runs apply against a fresh Tx and commits its writes together
// with a new action record. If apply fails its error is returned unchanged
// and the store is left untouched.
func (e *Executor) Execute(ctx context.Context, action Action, apply func(tx *Tx) error) (interfaces.ActionRecord, error) {
	start := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	head, err := e.store.Head(ctx)
	if err != nil {
		metrics.ObserveAction(action.Name, metrics.ResultFailed, time.Since(start))
		return interfaces.ActionRecord{}, fmt.Errorf("could not read ledger head: %w", err)
	}

	tx := newTx(ctx, e.store)
	if err := apply(tx); err != nil {
		metrics.ObserveAction(action.Name, metrics.ResultRejected, time.Since(start))
		e.log.Debug("Action rejected", "action", action.Name, "actor", action.Actor.String(), "err", err)
		return interfaces.ActionRecord{}, err
	}

	seq := head + 1
	hash, err := actionHash(seq, action)
	if err != nil {
		metrics.ObserveAction(action.Name, metrics.ResultFailed, time.Since(start))
		return interfaces.ActionRecord{}, err
	}

	writes := tx.writeSet()
	record := interfaces.ActionRecord{
		Seq:       seq,
		Action:    action.Name,
		Actor:     action.Actor,
		Hash:      hash,
		Timestamp: e.now().Unix(),
		Writes:    len(writes),
	}

	if err := e.store.Apply(ctx, record, writes); err != nil {
		metrics.ObserveAction(action.Name, metrics.ResultFailed, time.Since(start))
		e.log.Error("Failed to commit action", "action", action.Name, "seq", seq, "err", err)
		return interfaces.ActionRecord{}, fmt.Errorf("could not commit action %s: %w", action.Name, err)
	}

	metrics.ObserveAction(action.Name, metrics.ResultCommitted, time.Since(start))
	e.log.Info("Action committed",
		slog.Uint64("seq", seq),
		slog.String("action", action.Name),
		slog.String("actor", action.Actor.String()),
		slog.Int("writes", len(writes)))

	return record, nil
}

func actionHash(seq uint64, action Action) (common.Hash, error) {
	var body any = []byte{}
	if action.Payload != nil {
		body = action.Payload
	}

	payload, err := rlp.EncodeToBytes(body)
	if err != nil {
		return common.Hash{}, fmt.Errorf("could not encode %s payload: %w", action.Name, err)
	}

	encoded, err := rlp.EncodeToBytes([]any{seq, action.Name, action.Actor, payload})
	if err != nil {
		return common.Hash{}, fmt.Errorf("could not encode %s action: %w", action.Name, err)
	}

	return crypto.Keccak256Hash(encoded), nil
}
