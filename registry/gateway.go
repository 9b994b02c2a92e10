package registry

import (
	"fmt"

	"github.com/ruteri/ork-registry/interfaces"
	"github.com/ruteri/ork-registry/ledger"
)

// authorize fails unless the authenticated caller is the claimed identity.
func authorize(call interfaces.Call, claimed interfaces.Identity) error {
	if call.Caller != claimed {
		return fmt.Errorf("%w: caller %s is not %s", interfaces.ErrUnauthorized, call.Caller, claimed)
	}
	return nil
}

// resolveAndAuthorizeVendor loads the user record of a vendor and
// authorizes the caller as that record's account.
func resolveAndAuthorizeVendor(tx *ledger.Tx, call interfaces.Call, vendor interfaces.Username) (*interfaces.User, error) {
	user, err := loadUser(tx, vendor)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: vendor %q does not exist", interfaces.ErrNotFound, vendor)
	}

	if err := authorize(call, user.Account); err != nil {
		return nil, err
	}
	return user, nil
}
