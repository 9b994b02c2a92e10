package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/ruteri/ork-registry/interfaces"
)

type VaultConfig struct {
	Address string
	// Mount is the KV v2 mount, "secret" when empty.
	Mount string
	// Dir is the path inside the mount, "ork-registry" when empty.
	Dir string
	// Token falls back to VAULT_TOKEN when empty.
	Token string
}

// VaultBackend keeps snapshots as KV v2 secrets <mount>/<dir>/<content id>,
// the bytes base64 encoded under the "snapshot" field.
type VaultBackend struct {
	client *vault.Client
	kv     *vault.KVv2
	cfg    VaultConfig
	log    *slog.Logger
}

func NewVaultBackend(cfg VaultConfig, log *slog.Logger) (*VaultBackend, error) {
	if cfg.Mount == "" {
		cfg.Mount = "secret"
	}
	if cfg.Dir == "" {
		cfg.Dir = "ork-registry"
	}
	cfg.Dir = strings.Trim(cfg.Dir, "/")

	vc := vault.DefaultConfig()
	vc.Address = cfg.Address
	vc.Timeout = 30 * time.Second

	client, err := vault.NewClient(vc)
	if err != nil {
		return nil, fmt.Errorf("could not create vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}

	return &VaultBackend{
		client: client,
		kv:     client.KVv2(cfg.Mount),
		cfg:    cfg,
		log:    log,
	}, nil
}

func (b *VaultBackend) secret(id interfaces.ContentID) string {
	return path.Join(b.cfg.Dir, id.String())
}

func (b *VaultBackend) Store(ctx context.Context, data []byte) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)
	_, err := b.kv.Put(ctx, b.secret(id), map[string]interface{}{
		"snapshot": base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return id, fmt.Errorf("vault put %s: %w", b.secret(id), err)
	}
	b.log.Debug("Wrote snapshot secret", "mount", b.cfg.Mount, "path", b.secret(id))
	return id, nil
}

func (b *VaultBackend) Fetch(ctx context.Context, id interfaces.ContentID) ([]byte, error) {
	secret, err := b.kv.Get(ctx, b.secret(id))
	if errors.Is(err, vault.ErrSecretNotFound) {
		return nil, interfaces.ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("vault get %s: %w", b.secret(id), err)
	}

	encoded, ok := secret.Data["snapshot"].(string)
	if !ok {
		return nil, fmt.Errorf("vault secret %s has no snapshot field", b.secret(id))
	}
	return base64.StdEncoding.DecodeString(encoded)
}

func (b *VaultBackend) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := b.client.Sys().HealthWithContext(ctx)
	switch {
	case err != nil:
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	case !health.Initialized:
		return fmt.Errorf("%w: vault is not initialized", interfaces.ErrBackendUnavailable)
	case health.Sealed:
		return fmt.Errorf("%w: vault is sealed", interfaces.ErrBackendUnavailable)
	}
	return nil
}

func (b *VaultBackend) String() string {
	host := strings.TrimPrefix(strings.TrimPrefix(b.cfg.Address, "https://"), "http://")
	return fmt.Sprintf("vault://%s/%s/%s", host, b.cfg.Mount, b.cfg.Dir)
}
