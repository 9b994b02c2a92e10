package interfaces

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ContentID addresses an archived blob by the Keccak-256 hash of its bytes.
type ContentID common.Hash

// ComputeID hashes data into its content address.
func ComputeID(data []byte) ContentID {
	return ContentID(crypto.Keccak256Hash(data))
}

// NewContentIDFromHex parses a 32-byte hex content address, with or without 0x.
func NewContentIDFromHex(source string) (ContentID, error) {
	raw, err := hexutil.Decode("0x" + strings.TrimPrefix(source, "0x"))
	if err != nil {
		return ContentID{}, fmt.Errorf("invalid content id %q: %w", source, err)
	}
	if len(raw) != common.HashLength {
		return ContentID{}, fmt.Errorf("invalid content id %q: want %d bytes, got %d", source, common.HashLength, len(raw))
	}
	return ContentID(common.BytesToHash(raw)), nil
}

func (id ContentID) String() string {
	return common.Hash(id).Hex()
}

func (id ContentID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ContentID) UnmarshalText(text []byte) error {
	parsed, err := NewContentIDFromHex(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

var (
	ErrContentNotFound    = errors.New("content not found")
	ErrBackendUnavailable = errors.New("storage backend unavailable")
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)

// StorageBackend keeps immutable snapshot blobs under their content address.
// Storing the same bytes twice is a no-op that returns the same ID.
type StorageBackend interface {
	Store(ctx context.Context, data []byte) (ContentID, error)
	// Fetch returns ErrContentNotFound when the backend is reachable but
	// does not hold id.
	Fetch(ctx context.Context, id ContentID) ([]byte, error)
	// Ping reports why the backend can not be used right now, or nil.
	Ping(ctx context.Context) error
	// String is the location URI of the backend with credentials removed.
	String() string
}
