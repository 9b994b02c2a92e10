package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ruteri/ork-registry/api/auth"
	"github.com/ruteri/ork-registry/api/handlers"
	"github.com/ruteri/ork-registry/api/servers"
	"github.com/ruteri/ork-registry/cmd/flags"
	"github.com/ruteri/ork-registry/cryptoutils"
	"github.com/ruteri/ork-registry/interfaces"
	"github.com/ruteri/ork-registry/ledger"
	"github.com/ruteri/ork-registry/registry"
	"github.com/ruteri/ork-registry/storage"
	"github.com/urfave/cli/v2"
)

var serverFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "listen-addr",
		Value:   "127.0.0.1:8080",
		Usage:   "address to listen on for API",
		EnvVars: []string{"ORK_REGISTRY_LISTEN_ADDR"},
	},
	&cli.StringFlag{
		Name:    "state-dsn",
		Value:   "memory://",
		Usage:   "ledger state store: memory://, sqlite://path or postgres://...",
		EnvVars: []string{"ORK_REGISTRY_STATE_DSN"},
	},
	&cli.StringFlag{
		Name:    "owner",
		Usage:   "hex identity of the registry owner, allowed to seed the root account",
		EnvVars: []string{"ORK_REGISTRY_OWNER"},
	},
	&cli.StringFlag{
		Name:    "owner-key-file",
		Usage:   "owner private key file; implies --owner and enables --seed-root",
		EnvVars: []string{"ORK_REGISTRY_OWNER_KEY_FILE"},
	},
	&cli.BoolFlag{
		Name:  "seed-root",
		Value: false,
		Usage: "seed the root account on startup with the owner key",
	},
	&cli.StringFlag{
		Name:    "redis-url",
		Usage:   "redis URL for the request nonce guard; in-memory when empty",
		EnvVars: []string{"ORK_REGISTRY_REDIS_URL"},
	},
	&cli.DurationFlag{
		Name:    "max-clock-skew",
		Value:   auth.DefaultMaxSkew,
		Usage:   "maximum accepted drift between request timestamps and the server clock",
		EnvVars: []string{"ORK_REGISTRY_MAX_CLOCK_SKEW"},
	},
	&cli.StringSliceFlag{
		Name:    "snapshot-uri",
		Usage:   "snapshot storage location (file://, s3://, ipfs://, vault://); repeat to replicate",
		EnvVars: []string{"ORK_REGISTRY_SNAPSHOT_URIS"},
	},
	&cli.DurationFlag{
		Name:  "snapshot-interval",
		Value: 0,
		Usage: "archive the ledger periodically; 0 disables periodic snapshots",
	},
	&cli.StringFlag{
		Name:  "restore-snapshot",
		Usage: "content id of a snapshot to load into the empty state store before serving",
	},
	flags.LogServiceFlagFn("ork-registry"),
}

func main() {
	app := &cli.App{
		Name:   "registry-server",
		Usage:  "Serve the ork custody registry API",
		Flags:  append(serverFlags, flags.CommonFlags...),
		Action: runServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runServer(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	owner, ownerKey, err := resolveOwner(cCtx)
	if err != nil {
		logger.Error("Invalid owner configuration", "err", err)
		return err
	}

	store, err := ledger.OpenStore(ctx, cCtx.String("state-dsn"), logger)
	if err != nil {
		logger.Error("Failed to open state store", "err", err)
		return err
	}
	defer store.Close()

	executor := ledger.NewExecutor(store, logger)
	reg := registry.NewRegistry(executor, owner, logger)

	var archiver *storage.Archiver
	if uris := cCtx.StringSlice("snapshot-uri"); len(uris) > 0 {
		backend, err := storage.NewStorageBackendFactory(logger).BackendFromURIs(uris)
		if err != nil {
			logger.Error("Failed to configure snapshot storage", "err", err)
			return err
		}
		archiver = storage.NewArchiver(executor, backend, logger)
	}

	if rawID := cCtx.String("restore-snapshot"); rawID != "" {
		if archiver == nil {
			return errors.New("--restore-snapshot requires --snapshot-uri")
		}
		id, err := interfaces.NewContentIDFromHex(rawID)
		if err != nil {
			return fmt.Errorf("invalid snapshot id: %w", err)
		}
		record, err := archiver.Restore(ctx, id)
		if err != nil {
			logger.Error("Snapshot restore failed", "id", rawID, "err", err)
			return err
		}
		logger.Info("Snapshot restored", "id", rawID, "head", record.Seq)
	}

	if cCtx.Bool("seed-root") {
		if ownerKey == nil {
			return errors.New("--seed-root requires --owner-key-file")
		}
		record, err := reg.SeedRoot(ctx, interfaces.Call{Caller: owner})
		if err != nil {
			logger.Error("Failed to seed root account", "err", err)
			return err
		}
		logger.Info("Root account ready", "seq", record.Seq, "writes", record.Writes)
	}

	guard, err := replayGuard(ctx, cCtx.String("redis-url"))
	if err != nil {
		logger.Error("Failed to connect to redis", "err", err)
		return err
	}
	authenticator := auth.NewAuthenticator(guard, cCtx.Duration("max-clock-skew"), logger)

	var snapshotter handlers.Snapshotter
	if archiver != nil {
		snapshotter = archiver
		if interval := cCtx.Duration("snapshot-interval"); interval > 0 {
			logger.Info("Periodic snapshots enabled", "interval", interval)
			go archiver.Run(ctx, interval)
		}
	}

	handler := handlers.NewHandler(reg, authenticator, snapshotter, logger)

	cfg := flags.ConfigureServer(cCtx, logger, cCtx.String("listen-addr"))
	server, err := servers.New(cfg, handler, servers.WithReadinessProbe(func(ctx context.Context) error {
		_, err := store.Head(ctx)
		return err
	}))
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}

	logger.Info("Starting server", "owner", owner.String())
	server.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running, press Ctrl+C to stop")
	<-exit
	logger.Info("Shutdown signal received")

	cancel()
	server.Shutdown()
	logger.Info("Server shutdown complete")

	return nil
}

func resolveOwner(cCtx *cli.Context) (interfaces.Identity, *ecdsa.PrivateKey, error) {
	var key *ecdsa.PrivateKey
	if path := cCtx.String("owner-key-file"); path != "" {
		var err error
		key, err = cryptoutils.LoadPrivateKeyFile(path)
		if err != nil {
			return interfaces.Identity{}, nil, err
		}
	}

	raw := cCtx.String("owner")
	switch {
	case raw == "" && key == nil:
		return interfaces.Identity{}, nil, errors.New("--owner or --owner-key-file is required")
	case raw == "":
		return interfaces.IdentityFromPubkey(&key.PublicKey), key, nil
	}

	owner, err := interfaces.NewIdentityFromHex(raw)
	if err != nil {
		return interfaces.Identity{}, nil, fmt.Errorf("invalid owner identity: %w", err)
	}
	if key != nil && interfaces.IdentityFromPubkey(&key.PublicKey) != owner {
		return interfaces.Identity{}, nil, errors.New("--owner does not match --owner-key-file")
	}
	return owner, key, nil
}

func replayGuard(ctx context.Context, redisURL string) (auth.ReplayGuard, error) {
	if redisURL == "" {
		return auth.NewMemoryReplayGuard(), nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := auth.ConnectRedis(connectCtx, redisURL)
	if err != nil {
		return nil, err
	}
	return auth.NewRedisReplayGuard(client), nil
}
