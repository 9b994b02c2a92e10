package registry

import (
	"log/slog"

	"github.com/ruteri/ork-registry/interfaces"
	"github.com/ruteri/ork-registry/ledger"
)

// RootUsername is the well-known master account created by SeedRoot.
const RootUsername interfaces.Username = "tide"

// Ledger action names.
const (
	ActionSeedRoot     = "seedroot"
	ActionAddOrk       = "addork"
	ActionInitUser     = "inituser"
	ActionConfirmUser  = "confirmuser"
	ActionPostFragment = "postfragment"
)

// Registry executes registry operations as ledger actions.
type Registry struct {
	exec  *ledger.Executor
	owner interfaces.Identity
	log   *slog.Logger
}

var _ interfaces.Registry = (*Registry)(nil)

// NewRegistry creates a registry over exec. owner is the contract's
// controlling identity, the only caller allowed to seed the root account.
func NewRegistry(exec *ledger.Executor, owner interfaces.Identity, log *slog.Logger) *Registry {
	return &Registry{
		exec:  exec,
		owner: owner,
		log:   log,
	}
}

func (r *Registry) Owner() interfaces.Identity {
	return r.owner
}

// Action payloads. They are hashed into the ledger action record.

type seedRootPayload struct {
	Owner interfaces.Identity
}

type addOrkPayload struct {
	Account   interfaces.Identity
	Username  interfaces.Username
	PublicKey string
	URL       string
}

type initUserPayload struct {
	Vendor   interfaces.Username
	Account  interfaces.Identity
	Username interfaces.Username
	Timeout  uint64
}

type confirmUserPayload struct {
	Vendor   interfaces.Username
	Username interfaces.Username
}

type postFragmentPayload struct {
	Ork       interfaces.Username
	Username  interfaces.Username
	Vendor    interfaces.Username
	Frag      string
	PublicKey string
	PassHash  string
}
