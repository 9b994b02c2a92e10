package registry

import (
	"context"

	"github.com/ruteri/ork-registry/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockRegistry mocks the interfaces.Registry interface
type MockRegistry struct {
	mock.Mock
}

var _ interfaces.Registry = (*MockRegistry)(nil)

func (m *MockRegistry) Owner() interfaces.Identity {
	args := m.Called()
	return args.Get(0).(interfaces.Identity)
}

// SeedRoot mocks the SeedRoot method
func (m *MockRegistry) SeedRoot(ctx context.Context, call interfaces.Call) (interfaces.ActionRecord, error) {
	args := m.Called(ctx, call)
	return args.Get(0).(interfaces.ActionRecord), args.Error(1)
}

// RegisterOrUpdateCustodian mocks the RegisterOrUpdateCustodian method
func (m *MockRegistry) RegisterOrUpdateCustodian(ctx context.Context, call interfaces.Call, account interfaces.Identity, username interfaces.Username, publicKey, url string) (interfaces.ActionRecord, error) {
	args := m.Called(ctx, call, account, username, publicKey, url)
	return args.Get(0).(interfaces.ActionRecord), args.Error(1)
}

// BeginRegistration mocks the BeginRegistration method
func (m *MockRegistry) BeginRegistration(ctx context.Context, call interfaces.Call, vendor interfaces.Username, account interfaces.Identity, username interfaces.Username, timeout uint64) (interfaces.ActionRecord, error) {
	args := m.Called(ctx, call, vendor, account, username, timeout)
	return args.Get(0).(interfaces.ActionRecord), args.Error(1)
}

// ConfirmRegistration mocks the ConfirmRegistration method
func (m *MockRegistry) ConfirmRegistration(ctx context.Context, call interfaces.Call, vendor, username interfaces.Username) (interfaces.ActionRecord, error) {
	args := m.Called(ctx, call, vendor, username)
	return args.Get(0).(interfaces.ActionRecord), args.Error(1)
}

// PostFragment mocks the PostFragment method
func (m *MockRegistry) PostFragment(ctx context.Context, call interfaces.Call, custodian, username, vendor interfaces.Username, frag, fragPublicKey, passHash string) (interfaces.ActionRecord, error) {
	args := m.Called(ctx, call, custodian, username, vendor, frag, fragPublicKey, passHash)
	return args.Get(0).(interfaces.ActionRecord), args.Error(1)
}

// GetUser mocks the GetUser method
func (m *MockRegistry) GetUser(ctx context.Context, username interfaces.Username) (*interfaces.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.User), args.Error(1)
}

// GetOrk mocks the GetOrk method
func (m *MockRegistry) GetOrk(ctx context.Context, username interfaces.Username) (*interfaces.Ork, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.Ork), args.Error(1)
}

// ListOrks mocks the ListOrks method
func (m *MockRegistry) ListOrks(ctx context.Context) ([]interfaces.Ork, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.Ork), args.Error(1)
}

// GetContainer mocks the GetContainer method
func (m *MockRegistry) GetContainer(ctx context.Context, scope interfaces.Identity, username interfaces.Username) (*interfaces.Container, error) {
	args := m.Called(ctx, scope, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.Container), args.Error(1)
}

// UserOrks mocks the UserOrks method
func (m *MockRegistry) UserOrks(ctx context.Context, username, vendor interfaces.Username) ([]interfaces.Ork, error) {
	args := m.Called(ctx, username, vendor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.Ork), args.Error(1)
}

// Actions mocks the Actions method
func (m *MockRegistry) Actions(ctx context.Context, from uint64, limit int) ([]interfaces.ActionRecord, error) {
	args := m.Called(ctx, from, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.ActionRecord), args.Error(1)
}

func (m *MockRegistry) Head(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}
