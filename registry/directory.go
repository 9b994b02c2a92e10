package registry

import (
	"context"
	"fmt"

	"github.com/ruteri/ork-registry/interfaces"
	"github.com/ruteri/ork-registry/ledger"
)

// RegisterOrUpdateCustodian lets a custodian claim the ork row for a
// registered username, or rotate the endpoint and key of a row it already owns.
func (r *Registry) RegisterOrUpdateCustodian(ctx context.Context, call interfaces.Call, account interfaces.Identity, username interfaces.Username, publicKey, url string) (interfaces.ActionRecord, error) {
	if err := validateUsernames(username); err != nil {
		return interfaces.ActionRecord{}, err
	}

	action := ledger.Action{
		Name:  ActionAddOrk,
		Actor: call.Caller,
		Payload: addOrkPayload{
			Account:   account,
			Username:  username,
			PublicKey: publicKey,
			URL:       url,
		},
	}

	return r.exec.Execute(ctx, action, func(tx *ledger.Tx) error {
		if err := authorize(call, account); err != nil {
			return err
		}

		user, err := loadUser(tx, username)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("%w: %q does not exist", interfaces.ErrUnknownUser, username)
		}

		ork, err := loadOrk(tx, username)
		if err != nil {
			return err
		}

		if ork == nil {
			return putOrk(tx, &interfaces.Ork{
				ID:        username,
				Account:   account,
				URL:       url,
				PublicKey: publicKey,
			})
		}

		if ork.Account != account {
			return fmt.Errorf("%w: ork %q is owned by %s", interfaces.ErrForbidden, username, ork.Account)
		}

		ork.Account = account
		ork.PublicKey = publicKey
		ork.URL = url
		return putOrk(tx, ork)
	})
}
