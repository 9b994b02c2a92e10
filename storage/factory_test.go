package storage

import (
	"context"
	"testing"

	"github.com/ruteri/ork-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageBackendFactory_File(t *testing.T) {
	ctx := context.Background()
	factory := NewStorageBackendFactory(testLogger())
	dir := t.TempDir()

	backend, err := factory.BackendFromURIs([]string{"file://" + dir})
	require.NoError(t, err)
	require.IsType(t, &FileBackend{}, backend)
	assert.NoError(t, backend.Ping(ctx))

	id, err := backend.Store(ctx, []byte("data"))
	require.NoError(t, err)
	again, err := backend.Store(ctx, []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, id, again)

	data, err := backend.Fetch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)

	_, err = backend.Fetch(ctx, interfaces.ComputeID([]byte("other")))
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)

	multi, err := factory.BackendFromURIs([]string{"file://" + dir, "file://" + t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &MultiStorageBackend{}, multi)
}

func TestStorageBackendFactory_Locations(t *testing.T) {
	factory := NewStorageBackendFactory(testLogger())

	tests := []struct {
		uri     string
		want    string
		wantErr error
	}{
		{
			uri:  "s3://AKID:SECRET@bucket/prefix?region=eu-west-1&endpoint=http://localhost:9000",
			want: "s3://bucket/prefix?region=eu-west-1&endpoint=http://localhost:9000",
		},
		{
			uri:  "s3://bucket",
			want: "s3://bucket/?region=us-east-1",
		},
		{
			uri:  "vault://vault.local:8200/kv/registry?token=t0k",
			want: "vault://vault.local:8200/kv/registry",
		},
		{
			uri:  "vault://t0k@vault.local:8200",
			want: "vault://vault.local:8200/secret/ork-registry",
		},
		{
			uri:  "ipfs://127.0.0.1/snapshots?timeout=5s",
			want: "ipfs://127.0.0.1:5001/snapshots?timeout=5s",
		},
		{uri: "ipfs://127.0.0.1:5001?timeout=soon", wantErr: interfaces.ErrInvalidLocationURI},
		{uri: "ftp://example.com/x", wantErr: interfaces.ErrInvalidLocationURI},
		{uri: "no-scheme", wantErr: interfaces.ErrInvalidLocationURI},
		{uri: "s3:///prefix", wantErr: interfaces.ErrInvalidLocationURI},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			backend, err := factory.BackendFromURIs([]string{tt.uri})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, backend.String())
			assert.NotContains(t, backend.String(), "SECRET")
		})
	}

	_, err := factory.BackendFromURIs(nil)
	assert.Error(t, err)
}

func TestContentID_Hex(t *testing.T) {
	id := interfaces.ComputeID([]byte("snapshot"))

	parsed, err := interfaces.NewContentIDFromHex(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	parsed, err = interfaces.NewContentIDFromHex(id.String()[2:])
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = interfaces.NewContentIDFromHex("0xabcd")
	assert.Error(t, err)
	_, err = interfaces.NewContentIDFromHex("zz")
	assert.Error(t, err)
}
