package registry

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/ruteri/ork-registry/interfaces"
	"github.com/ruteri/ork-registry/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ownerID   = testIdentity(0x01)
	vendorAID = testIdentity(0x0a)
	vendorBID = testIdentity(0x0b)
	aliceID   = testIdentity(0xa1)
	ork1ID    = testIdentity(0xc1)
	ork2ID    = testIdentity(0xc2)
	mallory   = testIdentity(0xee)
)

func testIdentity(b byte) interfaces.Identity {
	var id interfaces.Identity
	id[19] = b
	return id
}

func as(id interfaces.Identity) interfaces.Call {
	return interfaces.Call{Caller: id}
}

func newTestRegistry(t *testing.T, store interfaces.StateStore) *Registry {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRegistry(ledger.NewExecutor(store, logger), ownerID, logger)
}

// setupVendors seeds the root account and registers confirmed vendors
// "vendorA" and "vendorB" through it.
func setupVendors(t *testing.T, r *Registry) {
	t.Helper()
	ctx := context.Background()

	_, err := r.SeedRoot(ctx, as(ownerID))
	require.NoError(t, err)

	for username, account := range map[interfaces.Username]interfaces.Identity{"vendorA": vendorAID, "vendorB": vendorBID} {
		_, err = r.BeginRegistration(ctx, as(ownerID), RootUsername, account, username, 1)
		require.NoError(t, err)
		_, err = r.ConfirmRegistration(ctx, as(ownerID), RootUsername, username)
		require.NoError(t, err)
	}
}

func requireHead(t *testing.T, store interfaces.StateStore) uint64 {
	t.Helper()
	head, err := store.Head(context.Background())
	require.NoError(t, err)
	return head
}

func TestSeedRoot(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemoryStore()
	r := newTestRegistry(t, store)

	_, err := r.SeedRoot(ctx, as(mallory))
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)
	_, err = r.GetUser(ctx, RootUsername)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	record, err := r.SeedRoot(ctx, as(ownerID))
	require.NoError(t, err)
	assert.Equal(t, ActionSeedRoot, record.Action)
	assert.Equal(t, 1, record.Writes)

	root, err := r.GetUser(ctx, RootUsername)
	require.NoError(t, err)
	assert.Equal(t, ownerID, root.Account)
	assert.True(t, root.Confirmed())
	assert.Empty(t, root.Vendor)

	again, err := r.SeedRoot(ctx, as(ownerID))
	require.NoError(t, err)
	assert.Equal(t, 0, again.Writes)

	root, err = r.GetUser(ctx, RootUsername)
	require.NoError(t, err)
	assert.Equal(t, ownerID, root.Account)

	head, err := r.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), head, "the rejected seed leaves no record")
}

func TestBeginRegistration_CreatesAndRefreshesPending(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, ledger.NewMemoryStore())
	setupVendors(t, r)

	_, err := r.BeginRegistration(ctx, as(vendorAID), "vendorA", aliceID, "alice", 86400)
	require.NoError(t, err)

	alice, err := r.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(86400), alice.Timeout)
	assert.False(t, alice.Confirmed())
	assert.Equal(t, interfaces.Username("vendorA"), alice.Vendor)
	assert.Equal(t, aliceID, alice.Account)

	_, err = r.BeginRegistration(ctx, as(vendorAID), "vendorA", aliceID, "alice", 172800)
	require.NoError(t, err)

	alice, err = r.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(172800), alice.Timeout)

	_, err = r.BeginRegistration(ctx, as(vendorBID), "vendorB", aliceID, "alice", 3600)
	assert.ErrorIs(t, err, interfaces.ErrVendorMismatch)

	alice, err = r.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, interfaces.Username("vendorA"), alice.Vendor)
	assert.Equal(t, uint64(172800), alice.Timeout)
}

func TestConfirmRegistration_FinalizesOnce(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, ledger.NewMemoryStore())
	setupVendors(t, r)

	_, err := r.BeginRegistration(ctx, as(vendorAID), "vendorA", aliceID, "alice", 86400)
	require.NoError(t, err)

	_, err = r.ConfirmRegistration(ctx, as(vendorAID), "vendorA", "alice")
	require.NoError(t, err)

	alice, err := r.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), alice.Timeout)

	_, err = r.ConfirmRegistration(ctx, as(vendorAID), "vendorA", "alice")
	assert.ErrorIs(t, err, interfaces.ErrAlreadyConfirmed)
}

func TestPostFragment_RequiresRegisteredOrk(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, ledger.NewMemoryStore())
	setupVendors(t, r)

	_, err := r.BeginRegistration(ctx, as(vendorAID), "vendorA", aliceID, "alice", 86400)
	require.NoError(t, err)

	_, err = r.PostFragment(ctx, as(ork1ID), "ork1", "alice", "vendorA", "frag", "pub", "hash")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	// The custodian's username must itself be a registered user.
	_, err = r.BeginRegistration(ctx, as(vendorAID), "vendorA", ork1ID, "ork1", 86400)
	require.NoError(t, err)
	_, err = r.RegisterOrUpdateCustodian(ctx, as(ork1ID), ork1ID, "ork1", "ork1-pub", "https://ork1.example")
	require.NoError(t, err)

	_, err = r.PostFragment(ctx, as(mallory), "ork1", "alice", "vendorA", "frag", "pub", "hash")
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	_, err = r.PostFragment(ctx, as(ork1ID), "ork1", "alice", "vendorA", "frag", "pub", "hash")
	require.NoError(t, err)

	container, err := r.GetContainer(ctx, ork1ID, "alice")
	require.NoError(t, err)
	require.Len(t, container.Fragments, 1)
	assert.Equal(t, "frag", container.Fragments[0].Frag)
}

func TestPostFragment_UpsertsByVendor(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, ledger.NewMemoryStore())
	setupVendors(t, r)
	registerOrk(t, r, "ork1", ork1ID)

	_, err := r.BeginRegistration(ctx, as(vendorAID), "vendorA", aliceID, "alice", 86400)
	require.NoError(t, err)

	_, err = r.PostFragment(ctx, as(ork1ID), "ork1", "alice", "vendorA", "frag-1", "pub-1", "hash-1")
	require.NoError(t, err)
	_, err = r.PostFragment(ctx, as(ork1ID), "ork1", "alice", "vendorA", "frag-2", "pub-2", "hash-2")
	require.NoError(t, err)

	container, err := r.GetContainer(ctx, ork1ID, "alice")
	require.NoError(t, err)
	require.Len(t, container.Fragments, 1)
	assert.Equal(t, interfaces.Fragment{Vendor: "vendorA", PublicKey: "pub-2", Frag: "frag-2"}, container.Fragments[0])
	assert.Equal(t, "hash-1", container.PassHash, "pass hash is write-once")

	_, err = r.PostFragment(ctx, as(ork1ID), "ork1", "alice", "vendorB", "frag-b", "pub-b", "hash-b")
	require.NoError(t, err)

	container, err = r.GetContainer(ctx, ork1ID, "alice")
	require.NoError(t, err)
	require.Len(t, container.Fragments, 2)
	assert.Equal(t, interfaces.Username("vendorA"), container.Fragments[0].Vendor)
	assert.Equal(t, "frag-2", container.Fragments[0].Frag)
	assert.Equal(t, interfaces.Username("vendorB"), container.Fragments[1].Vendor)
}

func registerOrk(t *testing.T, r *Registry, username interfaces.Username, account interfaces.Identity) {
	t.Helper()
	ctx := context.Background()

	_, err := r.BeginRegistration(ctx, as(vendorAID), "vendorA", account, username, 86400)
	require.NoError(t, err)
	_, err = r.RegisterOrUpdateCustodian(ctx, as(account), account, username, string(username)+"-pub", "https://"+string(username)+".example")
	require.NoError(t, err)
}

func TestBeginRegistration_Errors(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemoryStore()
	r := newTestRegistry(t, store)
	setupVendors(t, r)

	tests := []struct {
		name    string
		caller  interfaces.Identity
		vendor  interfaces.Username
		user    interfaces.Username
		timeout uint64
		err     error
	}{
		{"unknown vendor", vendorAID, "nobody", "alice", 10, interfaces.ErrNotFound},
		{"caller is not the vendor account", mallory, "vendorA", "alice", 10, interfaces.ErrUnauthorized},
		{"zero timeout", vendorAID, "vendorA", "alice", 0, interfaces.ErrInvalidTimeout},
		{"malformed username", vendorAID, "vendorA", "al ice", 10, interfaces.ErrInvalidArgument},
		{"empty username", vendorAID, "vendorA", "", 10, interfaces.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := requireHead(t, store)

			_, err := r.BeginRegistration(ctx, as(tt.caller), tt.vendor, aliceID, tt.user, tt.timeout)
			assert.ErrorIs(t, err, tt.err)

			assert.Equal(t, before, requireHead(t, store), "failed actions are not recorded")
			_, err = r.GetUser(ctx, "alice")
			assert.ErrorIs(t, err, interfaces.ErrNotFound)
		})
	}
}

func TestBeginRegistration_RefreshKeepsAccountAndConfirmation(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, ledger.NewMemoryStore())
	setupVendors(t, r)

	_, err := r.BeginRegistration(ctx, as(vendorAID), "vendorA", aliceID, "alice", 100)
	require.NoError(t, err)
	_, err = r.BeginRegistration(ctx, as(vendorAID), "vendorA", mallory, "alice", 200)
	require.NoError(t, err)

	alice, err := r.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, aliceID, alice.Account)
	assert.Equal(t, uint64(200), alice.Timeout)

	_, err = r.ConfirmRegistration(ctx, as(vendorAID), "vendorA", "alice")
	require.NoError(t, err)

	_, err = r.BeginRegistration(ctx, as(vendorAID), "vendorA", aliceID, "alice", 300)
	assert.ErrorIs(t, err, interfaces.ErrAlreadyConfirmed)

	alice, err = r.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, alice.Confirmed())
}

func TestConfirmRegistration_Errors(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, ledger.NewMemoryStore())
	setupVendors(t, r)

	_, err := r.BeginRegistration(ctx, as(vendorAID), "vendorA", aliceID, "alice", 100)
	require.NoError(t, err)

	_, err = r.ConfirmRegistration(ctx, as(vendorAID), "vendorA", "bob")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	_, err = r.ConfirmRegistration(ctx, as(vendorBID), "vendorB", "alice")
	assert.ErrorIs(t, err, interfaces.ErrVendorMismatch)

	_, err = r.ConfirmRegistration(ctx, as(vendorBID), "vendorA", "alice")
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	_, err = r.ConfirmRegistration(ctx, as(vendorAID), "nobody", "alice")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	alice, err := r.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, alice.Confirmed())
}

func TestRegisterOrUpdateCustodian(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, ledger.NewMemoryStore())
	setupVendors(t, r)

	_, err := r.RegisterOrUpdateCustodian(ctx, as(ork1ID), ork1ID, "ork1", "pub", "https://ork1")
	assert.ErrorIs(t, err, interfaces.ErrUnknownUser)

	_, err = r.BeginRegistration(ctx, as(vendorAID), "vendorA", ork1ID, "ork1", 100)
	require.NoError(t, err)

	_, err = r.RegisterOrUpdateCustodian(ctx, as(mallory), ork1ID, "ork1", "pub", "https://ork1")
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	_, err = r.RegisterOrUpdateCustodian(ctx, as(ork1ID), ork1ID, "ork1", "pub", "https://ork1")
	require.NoError(t, err)

	_, err = r.RegisterOrUpdateCustodian(ctx, as(ork1ID), ork1ID, "ork1", "pub-rotated", "https://ork1-new")
	require.NoError(t, err)

	ork, err := r.GetOrk(ctx, "ork1")
	require.NoError(t, err)
	assert.Equal(t, interfaces.Ork{ID: "ork1", Account: ork1ID, URL: "https://ork1-new", PublicKey: "pub-rotated"}, *ork)

	_, err = r.RegisterOrUpdateCustodian(ctx, as(mallory), mallory, "ork1", "evil", "https://evil")
	assert.ErrorIs(t, err, interfaces.ErrForbidden)

	ork, err = r.GetOrk(ctx, "ork1")
	require.NoError(t, err)
	assert.Equal(t, ork1ID, ork.Account)
	assert.Equal(t, "pub-rotated", ork.PublicKey)
}

func TestPostFragment_ScopeIsolationAndLinks(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, ledger.NewMemoryStore())
	setupVendors(t, r)
	registerOrk(t, r, "ork1", ork1ID)
	registerOrk(t, r, "ork2", ork2ID)

	_, err := r.BeginRegistration(ctx, as(vendorAID), "vendorA", aliceID, "alice", 86400)
	require.NoError(t, err)

	// ork2's account cannot write through ork1's name.
	_, err = r.PostFragment(ctx, as(ork2ID), "ork1", "alice", "vendorA", "x", "x", "x")
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	_, err = r.PostFragment(ctx, as(ork1ID), "ork1", "alice", "vendorA", "frag-1", "pub-1", "hash-1")
	require.NoError(t, err)

	alice, err := r.GetUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, alice.OrkLinks, 1)
	assert.Equal(t, []interfaces.Username{"ork1"}, alice.OrkLinks[0].Custodians)

	_, err = r.PostFragment(ctx, as(ork2ID), "ork2", "alice", "vendorA", "frag-2", "pub-2", "hash-2")
	require.NoError(t, err)

	c1, err := r.GetContainer(ctx, ork1ID, "alice")
	require.NoError(t, err)
	c2, err := r.GetContainer(ctx, ork2ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "frag-1", c1.Fragments[0].Frag)
	assert.Equal(t, "frag-2", c2.Fragments[0].Frag)
	assert.Equal(t, "hash-2", c2.PassHash)

	// A repeated post mutates the existing link instead of adding another.
	_, err = r.PostFragment(ctx, as(ork1ID), "ork1", "alice", "vendorA", "frag-1b", "pub-1", "hash-1")
	require.NoError(t, err)

	alice, err = r.GetUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, alice.OrkLinks, 1)
	assert.Equal(t, []interfaces.Username{"ork1", "ork2", "ork1"}, alice.OrkLinks[0].Custodians)

	_, err = r.PostFragment(ctx, as(ork1ID), "ork1", "alice", "vendorB", "frag-b", "pub-b", "hash-b")
	require.NoError(t, err)

	alice, err = r.GetUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, alice.OrkLinks, 2)
	assert.Equal(t, interfaces.OrkLink{Vendor: "vendorB", Custodians: []interfaces.Username{"ork1"}}, alice.OrkLinks[1])

	orks, err := r.UserOrks(ctx, "alice", "vendorA")
	require.NoError(t, err)
	require.Len(t, orks, 2)
	assert.Equal(t, interfaces.Username("ork1"), orks[0].ID)
	assert.Equal(t, interfaces.Username("ork2"), orks[1].ID)

	orks, err = r.UserOrks(ctx, "alice", "vendorB")
	require.NoError(t, err)
	require.Len(t, orks, 1)

	all, err := r.ListOrks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPostFragment_UnknownTargetLeavesNoState(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemoryStore()
	r := newTestRegistry(t, store)
	setupVendors(t, r)
	registerOrk(t, r, "ork1", ork1ID)

	before := requireHead(t, store)
	_, err := r.PostFragment(ctx, as(ork1ID), "ork1", "ghost", "vendorA", "f", "p", "h")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	assert.Equal(t, before, requireHead(t, store))

	_, err = r.GetContainer(ctx, ork1ID, "ghost")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestRegistry_FullFlowOnSQLite(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := ledger.NewSQLiteStore(ctx, ":memory:", logger)
	require.NoError(t, err)
	defer store.Close()

	r := newTestRegistry(t, store)
	setupVendors(t, r)
	registerOrk(t, r, "ork1", ork1ID)

	_, err = r.BeginRegistration(ctx, as(vendorAID), "vendorA", aliceID, "alice", 86400)
	require.NoError(t, err)
	_, err = r.PostFragment(ctx, as(ork1ID), "ork1", "alice", "vendorA", "frag-1", "pub-1", "hash-1")
	require.NoError(t, err)
	_, err = r.PostFragment(ctx, as(ork1ID), "ork1", "alice", "vendorA", "frag-2", "pub-2", "hash-2")
	require.NoError(t, err)
	record, err := r.ConfirmRegistration(ctx, as(vendorAID), "vendorA", "alice")
	require.NoError(t, err)
	assert.Equal(t, ActionConfirmUser, record.Action)
	assert.Equal(t, vendorAID, record.Actor)

	alice, err := r.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, alice.Confirmed())
	require.Len(t, alice.OrkLinks, 1)

	container, err := r.GetContainer(ctx, ork1ID, "alice")
	require.NoError(t, err)
	require.Len(t, container.Fragments, 1)
	assert.Equal(t, "frag-2", container.Fragments[0].Frag)

	actions, err := r.Actions(ctx, record.Seq, 0)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, record.Hash, actions[0].Hash)
}
