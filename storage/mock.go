package storage

import (
	"context"

	"github.com/ruteri/ork-registry/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockStorageBackend is a testify mock of interfaces.StorageBackend.
type MockStorageBackend struct {
	mock.Mock
	name string
}

func NewMockStorageBackend(name string) *MockStorageBackend {
	return &MockStorageBackend{name: name}
}

func (m *MockStorageBackend) Store(ctx context.Context, data []byte) (interfaces.ContentID, error) {
	args := m.Called(ctx, data)
	return args.Get(0).(interfaces.ContentID), args.Error(1)
}

func (m *MockStorageBackend) Fetch(ctx context.Context, id interfaces.ContentID) ([]byte, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStorageBackend) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockStorageBackend) String() string {
	return "mock://" + m.name
}
