package clients

import (
	"context"
	"crypto/ecdsa"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/ork-registry/api"
	"github.com/ruteri/ork-registry/api/auth"
	"github.com/ruteri/ork-registry/api/handlers"
	"github.com/ruteri/ork-registry/cryptoutils"
	"github.com/ruteri/ork-registry/interfaces"
	"github.com/ruteri/ork-registry/ledger"
	"github.com/ruteri/ork-registry/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testKeys struct {
	owner, vendor, ork, mallory *ecdsa.PrivateKey
}

func newKeys(t *testing.T) testKeys {
	t.Helper()
	gen := func() *ecdsa.PrivateKey {
		key, err := cryptoutils.GenerateKey()
		require.NoError(t, err)
		return key
	}
	return testKeys{owner: gen(), vendor: gen(), ork: gen(), mallory: gen()}
}

func identityOf(key *ecdsa.PrivateKey) interfaces.Identity {
	return interfaces.IdentityFromPubkey(&key.PublicKey)
}

func newTestServer(t *testing.T, owner interfaces.Identity) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	reg := registry.NewRegistry(ledger.NewExecutor(ledger.NewMemoryStore(), logger), owner, logger)
	authenticator := auth.NewAuthenticator(auth.NewMemoryReplayGuard(), auth.DefaultMaxSkew, logger)
	handler := handlers.NewHandler(reg, authenticator, nil, logger)

	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func TestRegistryClient_CustodyFlow(t *testing.T) {
	ctx := context.Background()
	keys := newKeys(t)
	server := newTestServer(t, identityOf(keys.owner))

	owner := NewRegistryClient(server.URL, keys.owner)
	vendor := NewRegistryClient(server.URL, keys.vendor)
	ork := NewRegistryClient(server.URL, keys.ork)
	reader := NewRegistryClient(server.URL, nil)

	record, err := owner.SeedRoot(ctx)
	require.NoError(t, err)
	assert.Equal(t, registry.ActionSeedRoot, record.Action)
	assert.Equal(t, uint64(1), record.Seq)
	assert.Equal(t, identityOf(keys.owner), record.Actor)

	_, err = owner.InitUser(ctx, api.InitUserRequest{Vendor: registry.RootUsername, Account: identityOf(keys.vendor), Username: "acme", Timeout: 1})
	require.NoError(t, err)
	_, err = owner.ConfirmUser(ctx, api.ConfirmUserRequest{Vendor: registry.RootUsername, Username: "acme"})
	require.NoError(t, err)

	_, err = vendor.InitUser(ctx, api.InitUserRequest{Vendor: "acme", Account: identityOf(keys.ork), Username: "ork1", Timeout: 10})
	require.NoError(t, err)
	_, err = ork.AddOrk(ctx, api.AddOrkRequest{Account: identityOf(keys.ork), Username: "ork1", PublicKey: "pk-ork1", URL: "https://ork1.example"})
	require.NoError(t, err)

	_, err = vendor.InitUser(ctx, api.InitUserRequest{Vendor: "acme", Account: interfaces.Identity{0xa1}, Username: "alice", Timeout: 1700000000})
	require.NoError(t, err)

	record, err = ork.PostFragment(ctx, api.PostFragmentRequest{Ork: "ork1", Username: "alice", Vendor: "acme", Frag: "f1", FragPublicKey: "fpk1", PassHash: "h1"})
	require.NoError(t, err)
	assert.Equal(t, registry.ActionPostFragment, record.Action)

	alice, err := reader.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, interfaces.Username("acme"), alice.Vendor)
	assert.False(t, alice.Confirmed())
	require.Len(t, alice.OrkLinks, 1)
	assert.Equal(t, []interfaces.Username{"ork1"}, alice.OrkLinks[0].Custodians)

	orkRow, err := reader.GetOrk(ctx, "ork1")
	require.NoError(t, err)
	assert.Equal(t, "https://ork1.example", orkRow.URL)

	orks, err := reader.ListOrks(ctx)
	require.NoError(t, err)
	assert.Len(t, orks, 1)

	holders, err := reader.UserOrks(ctx, "alice", "acme")
	require.NoError(t, err)
	require.Len(t, holders, 1)
	assert.Equal(t, interfaces.Username("ork1"), holders[0].ID)

	container, err := reader.GetContainer(ctx, identityOf(keys.ork), "alice")
	require.NoError(t, err)
	assert.Equal(t, "h1", container.PassHash)
	require.Len(t, container.Fragments, 1)
	assert.Equal(t, "f1", container.Fragments[0].Frag)

	head, err := reader.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), head)

	records, err := reader.Actions(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, records, 7)
	assert.Equal(t, registry.ActionPostFragment, records[6].Action)

	records, err = reader.Actions(ctx, 5, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, uint64(5), records[0].Seq)
}

func TestRegistryClient_ErrorsMatchSentinels(t *testing.T) {
	ctx := context.Background()
	keys := newKeys(t)
	server := newTestServer(t, identityOf(keys.owner))

	owner := NewRegistryClient(server.URL, keys.owner)
	mallory := NewRegistryClient(server.URL, keys.mallory)
	reader := NewRegistryClient(server.URL, nil)

	_, err := mallory.SeedRoot(ctx)
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	_, err = owner.SeedRoot(ctx)
	require.NoError(t, err)

	_, err = owner.InitUser(ctx, api.InitUserRequest{Vendor: registry.RootUsername, Account: identityOf(keys.vendor), Username: "acme", Timeout: 0})
	assert.ErrorIs(t, err, interfaces.ErrInvalidTimeout)

	_, err = reader.GetUser(ctx, "nobody")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	_, err = mallory.AddOrk(ctx, api.AddOrkRequest{Account: identityOf(keys.mallory), Username: "nobody"})
	assert.ErrorIs(t, err, interfaces.ErrUnknownUser)

	_, err = reader.SeedRoot(ctx)
	assert.ErrorIs(t, err, ErrNoSigningKey)

	_, err = owner.Snapshot(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestRegistryClient_Identity(t *testing.T) {
	keys := newKeys(t)

	id, err := NewRegistryClient("http://localhost", keys.vendor).Identity()
	require.NoError(t, err)
	assert.Equal(t, identityOf(keys.vendor), id)

	_, err = NewRegistryClient("http://localhost", nil).Identity()
	assert.ErrorIs(t, err, ErrNoSigningKey)
}
