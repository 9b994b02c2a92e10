package ledger

import (
	"github.com/ethereum/go-ethereum/rlp"
)

// Encode serializes a row value.
func Encode(v any) ([]byte, error) {
	return rlp.EncodeToBytes(v)
}

// Decode deserializes a row value produced by Encode into v.
func Decode(data []byte, v any) error {
	return rlp.DecodeBytes(data, v)
}
