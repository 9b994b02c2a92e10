package registry

import (
	"context"
	"fmt"

	"github.com/ruteri/ork-registry/interfaces"
	"github.com/ruteri/ork-registry/ledger"
)

// PostFragment stores a vendor's key fragment for a user in the calling
// custodian's scope and links the custodian to the user for that vendor.
//
// The container's pass hash is only set when the container is created.
func (r *Registry) PostFragment(ctx context.Context, call interfaces.Call, custodian, username, vendor interfaces.Username, frag, fragPublicKey, passHash string) (interfaces.ActionRecord, error) {
	if err := validateUsernames(custodian, username, vendor); err != nil {
		return interfaces.ActionRecord{}, err
	}

	action := ledger.Action{
		Name:  ActionPostFragment,
		Actor: call.Caller,
		Payload: postFragmentPayload{
			Ork:       custodian,
			Username:  username,
			Vendor:    vendor,
			Frag:      frag,
			PublicKey: fragPublicKey,
			PassHash:  passHash,
		},
	}

	return r.exec.Execute(ctx, action, func(tx *ledger.Tx) error {
		user, err := loadUser(tx, username)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("%w: user %q does not exist", interfaces.ErrNotFound, username)
		}

		ork, err := loadOrk(tx, custodian)
		if err != nil {
			return err
		}
		if ork == nil {
			return fmt.Errorf("%w: ork %q does not exist", interfaces.ErrNotFound, custodian)
		}
		if err := authorize(call, ork.Account); err != nil {
			return err
		}

		// The scope is always the authorized ork account.
		container, err := loadContainer(tx, ork.Account, username)
		if err != nil {
			return err
		}
		if container == nil {
			container = &interfaces.Container{
				ID:       username,
				PassHash: passHash,
			}
		}
		container.Fragments = upsertFragment(container.Fragments, interfaces.Fragment{
			Vendor:    vendor,
			PublicKey: fragPublicKey,
			Frag:      frag,
		})
		if err := putContainer(tx, ork.Account, container); err != nil {
			return err
		}

		user.OrkLinks = linkCustodian(user.OrkLinks, vendor, custodian)
		return putUser(tx, user)
	})
}

// upsertFragment replaces the entry for fragment.Vendor or appends it.
func upsertFragment(fragments []interfaces.Fragment, fragment interfaces.Fragment) []interfaces.Fragment {
	for i := range fragments {
		if fragments[i].Vendor == fragment.Vendor {
			fragments[i] = fragment
			return fragments
		}
	}
	return append(fragments, fragment)
}

// linkCustodian appends custodian to the vendor's link, creating the link
// if needed. Custodians are not deduplicated.
func linkCustodian(links []interfaces.OrkLink, vendor, custodian interfaces.Username) []interfaces.OrkLink {
	for i := range links {
		if links[i].Vendor == vendor {
			links[i].Custodians = append(links[i].Custodians, custodian)
			return links
		}
	}
	return append(links, interfaces.OrkLink{
		Vendor:     vendor,
		Custodians: []interfaces.Username{custodian},
	})
}
