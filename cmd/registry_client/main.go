package main

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/ruteri/ork-registry/api"
	"github.com/ruteri/ork-registry/api/clients"
	"github.com/ruteri/ork-registry/cmd/flags"
	"github.com/ruteri/ork-registry/cryptoutils"
	"github.com/ruteri/ork-registry/interfaces"
	"github.com/urfave/cli/v2"
)

var (
	flagVendor = &cli.StringFlag{
		Name:     "vendor",
		Required: true,
		Usage:    "vendor username",
	}
	flagUsername = &cli.StringFlag{
		Name:     "username",
		Required: true,
		Usage:    "username the action applies to",
	}
	flagAccount = &cli.StringFlag{
		Name:     "account",
		Required: true,
		Usage:    "hex account identity",
	}
)

const usage = `Submit signed actions to and query an ork custody registry.

Actions are signed with --key or --key-file. Queries need no key.`

func main() {
	app := &cli.App{
		Name:  "registry-client",
		Usage: usage,
		Flags: []cli.Flag{
			flags.ServerAddrFlag,
			flags.KeyFlag,
			flags.KeyFileFlag,
		},
		Commands: []*cli.Command{
			{
				Name:  "keygen",
				Usage: "generate a signing key and print it with its identity",
				Action: func(cCtx *cli.Context) error {
					key, err := cryptoutils.GenerateKey()
					if err != nil {
						return err
					}
					return printJSON(map[string]string{
						"identity":    interfaces.IdentityFromPubkey(&key.PublicKey).String(),
						"private_key": cryptoutils.EncodePrivateKey(key),
					})
				},
			},
			{
				Name:  "identity",
				Usage: "print the identity of the configured key",
				Action: func(cCtx *cli.Context) error {
					c, err := newClient(cCtx, true)
					if err != nil {
						return err
					}
					id, err := c.Identity()
					if err != nil {
						return err
					}
					fmt.Println(id.String())
					return nil
				},
			},
			{
				Name:  "seed-root",
				Usage: "create the root account (owner only)",
				Action: withClient(true, func(cCtx *cli.Context, c *clients.RegistryClient) (any, error) {
					return c.SeedRoot(cCtx.Context)
				}),
			},
			{
				Name:  "add-ork",
				Usage: "claim or update the custodian row of a username",
				Flags: []cli.Flag{
					flagAccount,
					flagUsername,
					&cli.StringFlag{Name: "public-key", Required: true, Usage: "custodian public key"},
					&cli.StringFlag{Name: "url", Required: true, Usage: "custodian endpoint URL"},
				},
				Action: withClient(true, func(cCtx *cli.Context, c *clients.RegistryClient) (any, error) {
					account, err := interfaces.NewIdentityFromHex(cCtx.String(flagAccount.Name))
					if err != nil {
						return nil, fmt.Errorf("invalid account: %w", err)
					}
					return c.AddOrk(cCtx.Context, api.AddOrkRequest{
						Account:   account,
						Username:  interfaces.Username(cCtx.String(flagUsername.Name)),
						PublicKey: cCtx.String("public-key"),
						URL:       cCtx.String("url"),
					})
				}),
			},
			{
				Name:  "init-user",
				Usage: "begin or refresh a pending registration",
				Flags: []cli.Flag{
					flagVendor,
					flagAccount,
					flagUsername,
					&cli.Uint64Flag{Name: "timeout", Required: true, Usage: "advisory expiry of the pending registration, must be non-zero"},
				},
				Action: withClient(true, func(cCtx *cli.Context, c *clients.RegistryClient) (any, error) {
					account, err := interfaces.NewIdentityFromHex(cCtx.String(flagAccount.Name))
					if err != nil {
						return nil, fmt.Errorf("invalid account: %w", err)
					}
					return c.InitUser(cCtx.Context, api.InitUserRequest{
						Vendor:   interfaces.Username(cCtx.String(flagVendor.Name)),
						Account:  account,
						Username: interfaces.Username(cCtx.String(flagUsername.Name)),
						Timeout:  cCtx.Uint64("timeout"),
					})
				}),
			},
			{
				Name:  "confirm-user",
				Usage: "finalize a pending registration",
				Flags: []cli.Flag{flagVendor, flagUsername},
				Action: withClient(true, func(cCtx *cli.Context, c *clients.RegistryClient) (any, error) {
					return c.ConfirmUser(cCtx.Context, api.ConfirmUserRequest{
						Vendor:   interfaces.Username(cCtx.String(flagVendor.Name)),
						Username: interfaces.Username(cCtx.String(flagUsername.Name)),
					})
				}),
			},
			{
				Name:  "post-fragment",
				Usage: "store a key fragment in the custodian's scope",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "ork", Required: true, Usage: "custodian username"},
					flagUsername,
					flagVendor,
					&cli.StringFlag{Name: "frag", Required: true, Usage: "encrypted key fragment"},
					&cli.StringFlag{Name: "frag-public-key", Required: true, Usage: "public key of the fragment"},
					&cli.StringFlag{Name: "pass-hash", Usage: "password hash, kept from the first post only"},
				},
				Action: withClient(true, func(cCtx *cli.Context, c *clients.RegistryClient) (any, error) {
					return c.PostFragment(cCtx.Context, api.PostFragmentRequest{
						Ork:           interfaces.Username(cCtx.String("ork")),
						Username:      interfaces.Username(cCtx.String(flagUsername.Name)),
						Vendor:        interfaces.Username(cCtx.String(flagVendor.Name)),
						Frag:          cCtx.String("frag"),
						FragPublicKey: cCtx.String("frag-public-key"),
						PassHash:      cCtx.String("pass-hash"),
					})
				}),
			},
			{
				Name:  "snapshot",
				Usage: "archive the registry state (owner only)",
				Action: withClient(true, func(cCtx *cli.Context, c *clients.RegistryClient) (any, error) {
					return c.Snapshot(cCtx.Context)
				}),
			},
			{
				Name:      "get-user",
				Usage:     "show a user",
				ArgsUsage: "USERNAME",
				Action: withClient(false, func(cCtx *cli.Context, c *clients.RegistryClient) (any, error) {
					return c.GetUser(cCtx.Context, interfaces.Username(cCtx.Args().First()))
				}),
			},
			{
				Name:      "user-orks",
				Usage:     "list the custodians holding fragments for a user",
				ArgsUsage: "USERNAME",
				Flags:     []cli.Flag{&cli.StringFlag{Name: "vendor", Usage: "restrict to one vendor"}},
				Action: withClient(false, func(cCtx *cli.Context, c *clients.RegistryClient) (any, error) {
					return c.UserOrks(cCtx.Context, interfaces.Username(cCtx.Args().First()), interfaces.Username(cCtx.String("vendor")))
				}),
			},
			{
				Name:      "get-ork",
				Usage:     "show a custodian",
				ArgsUsage: "USERNAME",
				Action: withClient(false, func(cCtx *cli.Context, c *clients.RegistryClient) (any, error) {
					return c.GetOrk(cCtx.Context, interfaces.Username(cCtx.Args().First()))
				}),
			},
			{
				Name:  "list-orks",
				Usage: "list all custodians",
				Action: withClient(false, func(cCtx *cli.Context, c *clients.RegistryClient) (any, error) {
					return c.ListOrks(cCtx.Context)
				}),
			},
			{
				Name:      "get-container",
				Usage:     "show the fragments a custodian account holds for a user",
				ArgsUsage: "USERNAME",
				Flags:     []cli.Flag{flagAccount},
				Action: withClient(false, func(cCtx *cli.Context, c *clients.RegistryClient) (any, error) {
					account, err := interfaces.NewIdentityFromHex(cCtx.String(flagAccount.Name))
					if err != nil {
						return nil, fmt.Errorf("invalid account: %w", err)
					}
					return c.GetContainer(cCtx.Context, account, interfaces.Username(cCtx.Args().First()))
				}),
			},
			{
				Name:  "head",
				Usage: "print the sequence of the last committed action",
				Action: withClient(false, func(cCtx *cli.Context, c *clients.RegistryClient) (any, error) {
					head, err := c.Head(cCtx.Context)
					if err != nil {
						return nil, err
					}
					return api.HeadResponse{Head: head}, nil
				}),
			},
			{
				Name:  "actions",
				Usage: "list committed actions",
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "from", Value: 0, Usage: "first sequence number"},
					&cli.IntFlag{Name: "limit", Value: 0, Usage: "maximum number of records"},
				},
				Action: withClient(false, func(cCtx *cli.Context, c *clients.RegistryClient) (any, error) {
					return c.Actions(cCtx.Context, cCtx.Uint64("from"), cCtx.Int("limit"))
				}),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func withClient(signed bool, fn func(*cli.Context, *clients.RegistryClient) (any, error)) cli.ActionFunc {
	return func(cCtx *cli.Context) error {
		c, err := newClient(cCtx, signed)
		if err != nil {
			return err
		}
		result, err := fn(cCtx, c)
		if err != nil {
			return err
		}
		return printJSON(result)
	}
}

func newClient(cCtx *cli.Context, signed bool) (*clients.RegistryClient, error) {
	var key *ecdsa.PrivateKey
	if signed {
		var err error
		key, err = loadKey(cCtx)
		if err != nil {
			return nil, err
		}
	}
	return clients.NewRegistryClient(cCtx.String(flags.ServerAddrFlag.Name), key), nil
}

func loadKey(cCtx *cli.Context) (*ecdsa.PrivateKey, error) {
	if raw := cCtx.String(flags.KeyFlag.Name); raw != "" {
		return cryptoutils.ParsePrivateKey(raw)
	}
	if path := cCtx.String(flags.KeyFileFlag.Name); path != "" {
		return cryptoutils.LoadPrivateKeyFile(path)
	}
	return nil, errors.New("a signing key is required: use --key or --key-file")
}

func printJSON(v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}
