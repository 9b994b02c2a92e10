package main

import (
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/ruteri/ork-registry/cmd/flags"
	"github.com/ruteri/ork-registry/interfaces"
	"github.com/ruteri/ork-registry/ledger"
	"github.com/ruteri/ork-registry/storage"
	"github.com/urfave/cli/v2"
)

var flagStateDSN *cli.StringFlag = &cli.StringFlag{
	Name:     "state-dsn",
	Required: true,
	EnvVars:  []string{"ORK_REGISTRY_STATE_DSN"},
	Usage:    "ledger state store: sqlite://path or postgres://...",
}
var flagSnapshotURI *cli.StringSliceFlag = &cli.StringSliceFlag{
	Name:     "snapshot-uri",
	Required: true,
	EnvVars:  []string{"ORK_REGISTRY_SNAPSHOT_URIS"},
	Usage:    "snapshot storage location; repeat to replicate",
}
var flagSnapshotID *cli.StringFlag = &cli.StringFlag{
	Name:     "id",
	Required: true,
	Usage:    "snapshot content id (64 hex chars)",
}

func main() {
	app := &cli.App{
		Name:  "registry operator",
		Usage: "offline maintenance of registry ledger state",
		Flags: append([]cli.Flag{flags.LogServiceFlagFn("ork-registry-operator")}, flags.LogJsonFlag, flags.LogDebugFlag),
		Commands: []*cli.Command{
			&cli.Command{
				Name:  "head",
				Usage: "print the last committed action of a state store",
				Flags: []cli.Flag{flagStateDSN},
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)
					store, err := ledger.OpenStore(cCtx.Context, cCtx.String(flagStateDSN.Name), logger)
					if err != nil {
						return err
					}
					defer store.Close()

					head, err := store.Head(cCtx.Context)
					if err != nil {
						return err
					}
					records, err := store.Actions(cCtx.Context, head, 1)
					if err != nil {
						return err
					}
					if len(records) == 0 {
						fmt.Println("store is empty")
						return nil
					}
					return printJSON(records[0])
				},
			},
			&cli.Command{
				Name:  "export",
				Usage: "archive a state store to snapshot storage",
				Flags: []cli.Flag{flagStateDSN, flagSnapshotURI},
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)
					store, err := ledger.OpenStore(cCtx.Context, cCtx.String(flagStateDSN.Name), logger)
					if err != nil {
						return err
					}
					defer store.Close()

					archiver, err := newArchiver(cCtx, ledger.NewExecutor(store, logger), logger)
					if err != nil {
						return err
					}

					id, head, err := archiver.Archive(cCtx.Context)
					if err != nil {
						return err
					}
					return printJSON(map[string]any{"content_id": id, "head": head})
				},
			},
			&cli.Command{
				Name:  "import",
				Usage: "load a snapshot into an empty state store",
				Flags: []cli.Flag{flagStateDSN, flagSnapshotURI, flagSnapshotID},
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)
					id, err := interfaces.NewContentIDFromHex(cCtx.String(flagSnapshotID.Name))
					if err != nil {
						return fmt.Errorf("invalid snapshot id: %w", err)
					}

					store, err := ledger.OpenStore(cCtx.Context, cCtx.String(flagStateDSN.Name), logger)
					if err != nil {
						return err
					}
					defer store.Close()

					archiver, err := newArchiver(cCtx, ledger.NewExecutor(store, logger), logger)
					if err != nil {
						return err
					}

					record, err := archiver.Restore(cCtx.Context, id)
					if err != nil {
						return err
					}
					return printJSON(record)
				},
			},
			&cli.Command{
				Name:  "inspect",
				Usage: "fetch a snapshot, verify its content id and print a row summary",
				Flags: []cli.Flag{flagSnapshotURI, flagSnapshotID},
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)
					id, err := interfaces.NewContentIDFromHex(cCtx.String(flagSnapshotID.Name))
					if err != nil {
						return fmt.Errorf("invalid snapshot id: %w", err)
					}

					backend, err := storage.NewStorageBackendFactory(logger).BackendFromURIs(cCtx.StringSlice(flagSnapshotURI.Name))
					if err != nil {
						return err
					}

					data, err := backend.Fetch(cCtx.Context, id)
					if err != nil {
						return err
					}
					if interfaces.ComputeID(data) != id {
						return fmt.Errorf("snapshot content does not match id %s", id)
					}

					head, rows, err := storage.DecodeSnapshot(data)
					if err != nil {
						return err
					}

					tables := make(map[interfaces.Table]int)
					for _, row := range rows {
						tables[row.Table]++
					}
					return printJSON(map[string]any{"head": head, "rows": len(rows), "tables": tables})
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newArchiver(cCtx *cli.Context, state storage.LedgerState, logger *slog.Logger) (*storage.Archiver, error) {
	backend, err := storage.NewStorageBackendFactory(logger).BackendFromURIs(cCtx.StringSlice(flagSnapshotURI.Name))
	if err != nil {
		return nil, err
	}
	return storage.NewArchiver(state, backend, logger), nil
}

func printJSON(v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}
