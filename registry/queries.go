package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/ruteri/ork-registry/interfaces"
	"github.com/ruteri/ork-registry/ledger"
)

// Read-only queries. They read committed state and need no authorization.

func (r *Registry) GetUser(ctx context.Context, username interfaces.Username) (*interfaces.User, error) {
	var user interfaces.User
	if err := r.get(ctx, interfaces.UsersTable, interfaces.GlobalScope, string(username), &user); err != nil {
		return nil, fmt.Errorf("user %q: %w", username, err)
	}
	return &user, nil
}

func (r *Registry) GetOrk(ctx context.Context, username interfaces.Username) (*interfaces.Ork, error) {
	var ork interfaces.Ork
	if err := r.get(ctx, interfaces.OrksTable, interfaces.GlobalScope, string(username), &ork); err != nil {
		return nil, fmt.Errorf("ork %q: %w", username, err)
	}
	return &ork, nil
}

// ListOrks returns every custodian in the directory ordered by username.
func (r *Registry) ListOrks(ctx context.Context) ([]interfaces.Ork, error) {
	rows, err := r.exec.Store().List(ctx, interfaces.OrksTable, interfaces.GlobalScope)
	if err != nil {
		return nil, err
	}

	orks := make([]interfaces.Ork, 0, len(rows))
	for _, row := range rows {
		var ork interfaces.Ork
		if err := ledger.Decode(row.Value, &ork); err != nil {
			return nil, fmt.Errorf("could not decode ork %q: %w", row.Key, err)
		}
		orks = append(orks, ork)
	}
	return orks, nil
}

// GetContainer returns the container for username in the scope of the
// given custodian account.
func (r *Registry) GetContainer(ctx context.Context, scope interfaces.Identity, username interfaces.Username) (*interfaces.Container, error) {
	var container interfaces.Container
	if err := r.get(ctx, interfaces.ContainersTable, interfaces.IdentityScope(scope), string(username), &container); err != nil {
		return nil, fmt.Errorf("container %q in scope %s: %w", username, scope, err)
	}
	return &container, nil
}

// UserOrks resolves the custodians linked to a user into directory rows.
// With an empty vendor every link is considered. Duplicate links are
// collapsed and custodians missing from the directory are skipped.
func (r *Registry) UserOrks(ctx context.Context, username, vendor interfaces.Username) ([]interfaces.Ork, error) {
	user, err := r.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}

	seen := make(map[interfaces.Username]struct{})
	orks := []interfaces.Ork{}
	for _, link := range user.OrkLinks {
		if vendor != "" && link.Vendor != vendor {
			continue
		}
		for _, custodian := range link.Custodians {
			if _, dup := seen[custodian]; dup {
				continue
			}
			seen[custodian] = struct{}{}

			ork, err := r.GetOrk(ctx, custodian)
			if errors.Is(err, interfaces.ErrNotFound) {
				r.log.Warn("Linked ork missing from directory", "username", username, "ork", custodian)
				continue
			}
			if err != nil {
				return nil, err
			}
			orks = append(orks, *ork)
		}
	}
	return orks, nil
}

func (r *Registry) Actions(ctx context.Context, from uint64, limit int) ([]interfaces.ActionRecord, error) {
	return r.exec.Store().Actions(ctx, from, limit)
}

func (r *Registry) Head(ctx context.Context) (uint64, error) {
	return r.exec.Store().Head(ctx)
}

func (r *Registry) get(ctx context.Context, table interfaces.Table, scope interfaces.Scope, key string, out any) error {
	data, err := r.exec.Store().Get(ctx, table, scope, key)
	if errors.Is(err, interfaces.ErrRowNotFound) {
		return interfaces.ErrNotFound
	}
	if err != nil {
		return err
	}
	return ledger.Decode(data, out)
}
