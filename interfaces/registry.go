package interfaces

import (
	"context"
	"errors"
)

// Call carries the authenticated facts of one submitted operation.
// Caller has already been verified by the transport.
type Call struct {
	Caller Identity
}

var (
	// ErrUnauthorized: the authenticated caller is not the identity the operation requires.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden: the caller is authenticated but does not own the record.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound: a referenced user, custodian or container does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnknownUser: a custodian tried to claim a username with no user record.
	ErrUnknownUser = errors.New("unknown user")

	// ErrVendorMismatch: the stored vendor differs from the vendor named by the caller.
	ErrVendorMismatch = errors.New("vendor mismatch")

	// ErrInvalidTimeout: zero was used as a pending registration timeout.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrAlreadyConfirmed: the registration has already been finalized.
	ErrAlreadyConfirmed = errors.New("already confirmed")

	// ErrInvalidArgument: a parameter is malformed.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Registry is the authorization and registration core.
// Every mutating operation is atomic and returns the committed action record.
type Registry interface {
	// Owner returns the identity allowed to seed the root account.
	Owner() Identity

	SeedRoot(ctx context.Context, call Call) (ActionRecord, error)
	RegisterOrUpdateCustodian(ctx context.Context, call Call, account Identity, username Username, publicKey, url string) (ActionRecord, error)
	BeginRegistration(ctx context.Context, call Call, vendor Username, account Identity, username Username, timeout uint64) (ActionRecord, error)
	ConfirmRegistration(ctx context.Context, call Call, vendor, username Username) (ActionRecord, error)
	PostFragment(ctx context.Context, call Call, custodian, username, vendor Username, frag, fragPublicKey, passHash string) (ActionRecord, error)

	GetUser(ctx context.Context, username Username) (*User, error)
	GetOrk(ctx context.Context, username Username) (*Ork, error)
	ListOrks(ctx context.Context) ([]Ork, error)
	GetContainer(ctx context.Context, scope Identity, username Username) (*Container, error)
	UserOrks(ctx context.Context, username, vendor Username) ([]Ork, error)
	Actions(ctx context.Context, from uint64, limit int) ([]ActionRecord, error)

	// Head returns the sequence of the last committed action, 0 before the first.
	Head(ctx context.Context) (uint64, error)
}
