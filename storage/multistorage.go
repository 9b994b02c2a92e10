package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ruteri/ork-registry/interfaces"
)

// MultiStorageBackend replicates snapshots to every reachable backend and
// reads from the first one that holds them.
type MultiStorageBackend struct {
	backends []interfaces.StorageBackend
	log      *slog.Logger
}

func NewMultiStorageBackend(backends []interfaces.StorageBackend, log *slog.Logger) *MultiStorageBackend {
	return &MultiStorageBackend{backends: backends, log: log}
}

// reachable yields the backends answering Ping, in configuration order.
func (m *MultiStorageBackend) reachable(ctx context.Context) []interfaces.StorageBackend {
	var up []interfaces.StorageBackend
	for _, backend := range m.backends {
		if err := backend.Ping(ctx); err != nil {
			m.log.Debug("Skipping snapshot backend", "backend", backend.String(), "err", err)
			continue
		}
		up = append(up, backend)
	}
	return up
}

// Store succeeds when at least one replica accepted the snapshot.
func (m *MultiStorageBackend) Store(ctx context.Context, data []byte) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)
	up := m.reachable(ctx)
	if len(up) == 0 {
		return id, interfaces.ErrBackendUnavailable
	}

	var errs []error
	for _, backend := range up {
		if _, err := backend.Store(ctx, data); err != nil {
			m.log.Warn("Snapshot replica failed", "backend", backend.String(), "id", id.String(), "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", backend, err))
		}
	}

	if len(errs) == len(up) {
		return id, fmt.Errorf("no replica stored %s: %w", id, errors.Join(errs...))
	}
	m.log.Info("Replicated snapshot", "id", id.String(), "replicas", len(up)-len(errs), "failed", len(errs))
	return id, nil
}

// Fetch returns ErrContentNotFound only if every reachable replica reported a miss.
func (m *MultiStorageBackend) Fetch(ctx context.Context, id interfaces.ContentID) ([]byte, error) {
	up := m.reachable(ctx)
	if len(up) == 0 {
		return nil, interfaces.ErrBackendUnavailable
	}

	var errs []error
	misses := 0
	for _, backend := range up {
		data, err := backend.Fetch(ctx, id)
		if err == nil {
			return data, nil
		}
		if errors.Is(err, interfaces.ErrContentNotFound) {
			misses++
		}
		errs = append(errs, fmt.Errorf("%s: %w", backend, err))
	}

	if misses == len(up) {
		return nil, interfaces.ErrContentNotFound
	}
	return nil, fmt.Errorf("could not fetch %s from any replica: %w", id, errors.Join(errs...))
}

func (m *MultiStorageBackend) Ping(ctx context.Context) error {
	if len(m.reachable(ctx)) == 0 {
		return interfaces.ErrBackendUnavailable
	}
	return nil
}

func (m *MultiStorageBackend) String() string {
	uris := make([]string, len(m.backends))
	for i, backend := range m.backends {
		uris[i] = backend.String()
	}
	return "multi:[" + strings.Join(uris, ",") + "]"
}
