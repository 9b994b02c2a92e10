package registry

import (
	"errors"
	"fmt"

	"github.com/ruteri/ork-registry/interfaces"
	"github.com/ruteri/ork-registry/ledger"
)

// Typed accessors over a ledger Tx. A missing row is reported as
// (nil, nil) so each operation can pick the error its contract requires.

func loadUser(tx *ledger.Tx, username interfaces.Username) (*interfaces.User, error) {
	var user interfaces.User
	err := tx.Get(interfaces.UsersTable, interfaces.GlobalScope, string(username), &user)
	if errors.Is(err, interfaces.ErrRowNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not load user %q: %w", username, err)
	}
	return &user, nil
}

func putUser(tx *ledger.Tx, user *interfaces.User) error {
	return tx.Put(interfaces.UsersTable, interfaces.GlobalScope, string(user.ID), user)
}

func loadOrk(tx *ledger.Tx, username interfaces.Username) (*interfaces.Ork, error) {
	var ork interfaces.Ork
	err := tx.Get(interfaces.OrksTable, interfaces.GlobalScope, string(username), &ork)
	if errors.Is(err, interfaces.ErrRowNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not load ork %q: %w", username, err)
	}
	return &ork, nil
}

func putOrk(tx *ledger.Tx, ork *interfaces.Ork) error {
	return tx.Put(interfaces.OrksTable, interfaces.GlobalScope, string(ork.ID), ork)
}

func loadContainer(tx *ledger.Tx, scope interfaces.Identity, username interfaces.Username) (*interfaces.Container, error) {
	var container interfaces.Container
	err := tx.Get(interfaces.ContainersTable, interfaces.IdentityScope(scope), string(username), &container)
	if errors.Is(err, interfaces.ErrRowNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not load container %q: %w", username, err)
	}
	return &container, nil
}

func putContainer(tx *ledger.Tx, scope interfaces.Identity, container *interfaces.Container) error {
	return tx.Put(interfaces.ContainersTable, interfaces.IdentityScope(scope), string(container.ID), container)
}

func validateUsernames(usernames ...interfaces.Username) error {
	for _, u := range usernames {
		if err := u.Validate(); err != nil {
			return fmt.Errorf("%w: %v", interfaces.ErrInvalidArgument, err)
		}
	}
	return nil
}
