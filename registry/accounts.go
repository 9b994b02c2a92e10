package registry

import (
	"context"
	"fmt"

	"github.com/ruteri/ork-registry/interfaces"
	"github.com/ruteri/ork-registry/ledger"
)

// SeedRoot creates the root account bound to the owner identity.
// Calling it again once the root exists commits an action with no writes.
func (r *Registry) SeedRoot(ctx context.Context, call interfaces.Call) (interfaces.ActionRecord, error) {
	action := ledger.Action{
		Name:    ActionSeedRoot,
		Actor:   call.Caller,
		Payload: seedRootPayload{Owner: r.owner},
	}

	return r.exec.Execute(ctx, action, func(tx *ledger.Tx) error {
		if err := authorize(call, r.owner); err != nil {
			return err
		}

		root, err := loadUser(tx, RootUsername)
		if err != nil {
			return err
		}
		if root != nil {
			return nil
		}

		r.log.Info("Seeding root account", "username", RootUsername, "owner", r.owner.String())
		return putUser(tx, &interfaces.User{
			ID:      RootUsername,
			Account: r.owner,
		})
	})
}

// BeginRegistration creates a pending account registered by vendor, or
// refreshes the timeout of a pending account the same vendor registered.
func (r *Registry) BeginRegistration(ctx context.Context, call interfaces.Call, vendor interfaces.Username, account interfaces.Identity, username interfaces.Username, timeout uint64) (interfaces.ActionRecord, error) {
	if err := validateUsernames(vendor, username); err != nil {
		return interfaces.ActionRecord{}, err
	}

	action := ledger.Action{
		Name:  ActionInitUser,
		Actor: call.Caller,
		Payload: initUserPayload{
			Vendor:   vendor,
			Account:  account,
			Username: username,
			Timeout:  timeout,
		},
	}

	return r.exec.Execute(ctx, action, func(tx *ledger.Tx) error {
		if _, err := resolveAndAuthorizeVendor(tx, call, vendor); err != nil {
			return err
		}

		if timeout == 0 {
			return fmt.Errorf("%w: timeout can not be 0", interfaces.ErrInvalidTimeout)
		}

		user, err := loadUser(tx, username)
		if err != nil {
			return err
		}

		if user == nil {
			return putUser(tx, &interfaces.User{
				ID:      username,
				Account: account,
				Vendor:  vendor,
				Timeout: timeout,
			})
		}

		if user.Vendor != vendor {
			return fmt.Errorf("%w: %q was registered by %q", interfaces.ErrVendorMismatch, username, user.Vendor)
		}

		// Confirmation is one-way: a confirmed account never becomes pending again.
		if user.Confirmed() {
			return fmt.Errorf("%w: %q", interfaces.ErrAlreadyConfirmed, username)
		}

		user.Timeout = timeout
		return putUser(tx, user)
	})
}

// ConfirmRegistration finalizes a pending account. Confirmation is irreversible.
func (r *Registry) ConfirmRegistration(ctx context.Context, call interfaces.Call, vendor, username interfaces.Username) (interfaces.ActionRecord, error) {
	if err := validateUsernames(vendor, username); err != nil {
		return interfaces.ActionRecord{}, err
	}

	action := ledger.Action{
		Name:    ActionConfirmUser,
		Actor:   call.Caller,
		Payload: confirmUserPayload{Vendor: vendor, Username: username},
	}

	return r.exec.Execute(ctx, action, func(tx *ledger.Tx) error {
		if _, err := resolveAndAuthorizeVendor(tx, call, vendor); err != nil {
			return err
		}

		user, err := loadUser(tx, username)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("%w: %q has not been initialized", interfaces.ErrNotFound, username)
		}
		if user.Confirmed() {
			return fmt.Errorf("%w: %q", interfaces.ErrAlreadyConfirmed, username)
		}
		if user.Vendor != vendor {
			return fmt.Errorf("%w: %q was registered by %q", interfaces.ErrVendorMismatch, username, user.Vendor)
		}

		user.Timeout = 0
		return putUser(tx, user)
	})
}
