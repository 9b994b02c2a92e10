package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ruteri/ork-registry/interfaces"
	"github.com/ruteri/ork-registry/metrics"
)

// SnapshotVersion is the format version written into every snapshot.
const SnapshotVersion = 1

// Snapshot is the archived form of the ledger state. Row values keep their
// RLP encoding (base64 in JSON) so a restore reproduces the store byte for byte.
type Snapshot struct {
	Version int           `json:"version"`
	Head    uint64        `json:"head"`
	Rows    []SnapshotRow `json:"rows"`
}

type SnapshotRow struct {
	Table interfaces.Table `json:"table"`
	Scope interfaces.Scope `json:"scope"`
	Key   string           `json:"key"`
	Value []byte           `json:"value"`
}

// LedgerState is the part of the ledger executor the archiver needs.
type LedgerState interface {
	Snapshot(ctx context.Context) (uint64, []interfaces.Row, error)
	Restore(ctx context.Context, head uint64, rows []interfaces.Row) (interfaces.ActionRecord, error)
}

// Archiver writes ledger snapshots to a storage backend and restores them.
type Archiver struct {
	state   LedgerState
	backend interfaces.StorageBackend
	log     *slog.Logger
}

func NewArchiver(state LedgerState, backend interfaces.StorageBackend, log *slog.Logger) *Archiver {
	return &Archiver{
		state:   state,
		backend: backend,
		log:     log,
	}
}

// Archive stores a snapshot of the current ledger state and returns its content ID.
// Archiving an unchanged ledger yields the same content ID.
func (a *Archiver) Archive(ctx context.Context) (interfaces.ContentID, uint64, error) {
	head, rows, err := a.state.Snapshot(ctx)
	if err != nil {
		metrics.IncSnapshot(metrics.ResultFailed)
		return interfaces.ContentID{}, 0, err
	}

	data, err := EncodeSnapshot(head, rows)
	if err != nil {
		metrics.IncSnapshot(metrics.ResultFailed)
		return interfaces.ContentID{}, 0, err
	}

	id, err := a.backend.Store(ctx, data)
	if err != nil {
		metrics.IncSnapshot(metrics.ResultFailed)
		a.log.Error("Failed to archive ledger snapshot", "head", head, "err", err)
		return interfaces.ContentID{}, 0, fmt.Errorf("could not store snapshot: %w", err)
	}

	metrics.IncSnapshot(metrics.ResultCommitted)
	a.log.Info("Archived ledger snapshot",
		slog.String("content_id", id.String()),
		slog.Uint64("head", head),
		slog.Int("rows", len(rows)),
		slog.String("backend", a.backend.String()))

	return id, head, nil
}

// Restore fetches a snapshot and loads it into the (empty) ledger.
func (a *Archiver) Restore(ctx context.Context, id interfaces.ContentID) (interfaces.ActionRecord, error) {
	data, err := a.backend.Fetch(ctx, id)
	if err != nil {
		return interfaces.ActionRecord{}, fmt.Errorf("could not fetch snapshot %s: %w", id, err)
	}

	if computed := interfaces.ComputeID(data); computed != id {
		return interfaces.ActionRecord{}, fmt.Errorf("snapshot content mismatch: expected %s, got %s", id, computed)
	}

	head, rows, err := DecodeSnapshot(data)
	if err != nil {
		return interfaces.ActionRecord{}, err
	}

	return a.state.Restore(ctx, head, rows)
}

// Run archives the ledger every interval until ctx is cancelled. Ticks where
// the head has not moved since the last archive are skipped.
func (a *Archiver) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastHead uint64
	archived := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			head, _, err := a.state.Snapshot(ctx)
			if err != nil {
				a.log.Error("Failed to read ledger for periodic snapshot", "err", err)
				continue
			}
			if archived && head == lastHead {
				continue
			}

			_, head, err = a.Archive(ctx)
			if err != nil {
				continue
			}
			lastHead, archived = head, true
		}
	}
}

// EncodeSnapshot produces the canonical JSON encoding of a ledger state:
// rows sorted by table, scope and key.
func EncodeSnapshot(head uint64, rows []interfaces.Row) ([]byte, error) {
	snapshot := Snapshot{
		Version: SnapshotVersion,
		Head:    head,
		Rows:    make([]SnapshotRow, 0, len(rows)),
	}
	for _, row := range rows {
		snapshot.Rows = append(snapshot.Rows, SnapshotRow{
			Table: row.Table,
			Scope: row.Scope,
			Key:   row.Key,
			Value: row.Value,
		})
	}
	sort.Slice(snapshot.Rows, func(i, j int) bool {
		a, b := snapshot.Rows[i], snapshot.Rows[j]
		if a.Table != b.Table {
			return a.Table < b.Table
		}
		if a.Scope != b.Scope {
			return a.Scope < b.Scope
		}
		return a.Key < b.Key
	})

	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("could not encode snapshot: %w", err)
	}
	return data, nil
}

var ErrUnsupportedSnapshot = errors.New("unsupported snapshot version")

func DecodeSnapshot(data []byte) (uint64, []interfaces.Row, error) {
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return 0, nil, fmt.Errorf("could not decode snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return 0, nil, fmt.Errorf("%w: %d", ErrUnsupportedSnapshot, snapshot.Version)
	}

	rows := make([]interfaces.Row, 0, len(snapshot.Rows))
	for _, row := range snapshot.Rows {
		rows = append(rows, interfaces.Row{
			Table: row.Table,
			Scope: row.Scope,
			Key:   row.Key,
			Value: row.Value,
			Seq:   snapshot.Head,
		})
	}
	return snapshot.Head, rows, nil
}
