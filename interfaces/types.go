package interfaces

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Identity is an authenticated principal: the 20-byte address of the
// secp256k1 key that signed a call.
type Identity [20]byte

// NewIdentityFromBytes creates an identity from a raw 20-byte address.
func NewIdentityFromBytes(addr []byte) (Identity, error) {
	if len(addr) != 20 {
		return Identity{}, errors.New("invalid identity length: must be 20 bytes")
	}

	var res Identity
	copy(res[:], addr)
	return res, nil
}

// NewIdentityFromHex parses a 40-char hex string, with or without 0x prefix.
func NewIdentityFromHex(addr string) (Identity, error) {
	clean := strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X")
	if len(clean) != 40 {
		return Identity{}, errors.New("invalid identity length: hex string must be 40 characters")
	}

	addrBytes, err := hex.DecodeString(clean)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid hex format: %w", err)
	}

	return NewIdentityFromBytes(addrBytes)
}

// IdentityFromPubkey derives the identity controlled by a public key.
func IdentityFromPubkey(pub *ecdsa.PublicKey) Identity {
	return Identity(crypto.PubkeyToAddress(*pub))
}

// String returns the checksummed 0x-prefixed hex form.
func (id Identity) String() string {
	return common.Address(id).Hex()
}

// Bytes returns the raw 20-byte address.
func (id Identity) Bytes() []byte {
	return id[:]
}

func (id Identity) IsZero() bool {
	return id == Identity{}
}

func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := NewIdentityFromHex(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Username keys users, custodians and fragment containers.
type Username string

var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9._@-]{1,64}$`)

// Validate checks that the username is non-empty, at most 64 bytes and
// safe to embed in a URL path segment.
func (u Username) Validate() error {
	if !usernameRegex.MatchString(string(u)) {
		return fmt.Errorf("invalid username %q", string(u))
	}
	return nil
}

func (u Username) String() string {
	return string(u)
}

// User is the account registry row. A zero Timeout means confirmed; any
// other value is the advisory expiry of a pending registration.
type User struct {
	ID       Username  `json:"id"`
	Account  Identity  `json:"account"`
	Vendor   Username  `json:"vendor"`
	Timeout  uint64    `json:"timeout"`
	OrkLinks []OrkLink `json:"ork_links"`
}

// Confirmed reports whether registration has been finalized.
func (u *User) Confirmed() bool {
	return u.Timeout == 0
}

// OrkLink lists, for one vendor, the custodians holding a fragment of the user's key.
// Custodians may contain duplicates when a custodian posts more than once.
type OrkLink struct {
	Vendor     Username   `json:"vendor"`
	Custodians []Username `json:"custodians"`
}

// Ork is a custodian directory row, keyed by the username it services.
type Ork struct {
	ID        Username `json:"id"`
	Account   Identity `json:"account"`
	URL       string   `json:"url"`
	PublicKey string   `json:"public_key"`
}

// Container holds the fragments one custodian keeps for one user.
// It lives in the custodian account's scope.
type Container struct {
	ID        Username   `json:"id"`
	PassHash  string     `json:"pass_hash"`
	Fragments []Fragment `json:"fragments"`
}

// Fragment is one vendor's key shard as held by a custodian.
type Fragment struct {
	Vendor    Username `json:"vendor"`
	PublicKey string   `json:"public_key"`
	Frag      string   `json:"frag"`
}
