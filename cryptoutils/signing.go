package cryptoutils

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/ork-registry/interfaces"
)

// SignatureLength is the length of a recoverable secp256k1 signature [R || S || V].
const SignatureLength = crypto.SignatureLength

var ErrInvalidSignature = errors.New("invalid signature")

// RequestDigest computes the digest a caller signs to authenticate an HTTP request:
//
//	keccak256(method \n path \n timestamp \n nonce \n keccak256(body))
func RequestDigest(method, path string, timestamp int64, nonce string, body []byte) []byte {
	bodyHash := crypto.Keccak256(body)
	msg := strings.Join([]string{
		strings.ToUpper(method),
		path,
		strconv.FormatInt(timestamp, 10),
		nonce,
		string(bodyHash),
	}, "\n")
	return crypto.Keccak256([]byte(msg))
}

// Sign signs a 32-byte digest with the given key.
func Sign(digest []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return nil, fmt.Errorf("could not sign digest: %w", err)
	}
	return sig, nil
}

// RecoverSigner returns the identity whose key produced sig over digest.
func RecoverSigner(digest, sig []byte) (interfaces.Identity, error) {
	if len(sig) != SignatureLength {
		return interfaces.Identity{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, SignatureLength, len(sig))
	}

	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return interfaces.Identity{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return interfaces.IdentityFromPubkey(pub), nil
}
