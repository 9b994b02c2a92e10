package ledger

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/ruteri/ork-registry/interfaces"
)

// MemoryStore keeps ledger state in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	rows    map[rowKey]interfaces.Row
	actions []interfaces.ActionRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[rowKey]interfaces.Row),
	}
}

func (s *MemoryStore) Get(ctx context.Context, table interfaces.Table, scope interfaces.Scope, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[rowKey{table: table, scope: scope, key: key}]
	if !ok {
		return nil, interfaces.ErrRowNotFound
	}
	return bytes.Clone(row.Value), nil
}

func (s *MemoryStore) List(ctx context.Context, table interfaces.Table, scope interfaces.Scope) ([]interfaces.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []interfaces.Row
	for k, row := range s.rows {
		if k.table == table && k.scope == scope {
			rows = append(rows, cloneRow(row))
		}
	}
	sortRows(rows)
	return rows, nil
}

func (s *MemoryStore) Apply(ctx context.Context, record interfaces.ActionRecord, writes []interfaces.Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if record.Seq <= s.head() {
		return interfaces.ErrSequenceConflict
	}

	for _, w := range writes {
		s.rows[rowKey{table: w.Table, scope: w.Scope, key: w.Key}] = interfaces.Row{
			Table: w.Table,
			Scope: w.Scope,
			Key:   w.Key,
			Value: bytes.Clone(w.Value),
			Seq:   record.Seq,
		}
	}
	s.actions = append(s.actions, record)
	return nil
}

func (s *MemoryStore) Head(ctx context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.head(), nil
}

func (s *MemoryStore) head() uint64 {
	if len(s.actions) == 0 {
		return 0
	}
	return s.actions[len(s.actions)-1].Seq
}

func (s *MemoryStore) Actions(ctx context.Context, from uint64, limit int) ([]interfaces.ActionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := sort.Search(len(s.actions), func(i int) bool {
		return s.actions[i].Seq >= from
	})

	var records []interfaces.ActionRecord
	for _, record := range s.actions[start:] {
		if limit > 0 && len(records) >= limit {
			break
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *MemoryStore) Dump(ctx context.Context) ([]interfaces.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]interfaces.Row, 0, len(s.rows))
	for _, row := range s.rows {
		rows = append(rows, cloneRow(row))
	}
	sortRows(rows)
	return rows, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func cloneRow(row interfaces.Row) interfaces.Row {
	row.Value = bytes.Clone(row.Value)
	return row
}

func sortRows(rows []interfaces.Row) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Table != rows[j].Table {
			return rows[i].Table < rows[j].Table
		}
		if rows[i].Scope != rows[j].Scope {
			return rows[i].Scope < rows[j].Scope
		}
		return rows[i].Key < rows[j].Key
	})
}
