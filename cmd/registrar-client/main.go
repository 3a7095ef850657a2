package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/name-registrar/api"
	"github.com/ruteri/name-registrar/api/clients"
	"github.com/ruteri/name-registrar/cmd/flags"
	"github.com/ruteri/name-registrar/commitment"
	"github.com/ruteri/name-registrar/interfaces"
	"github.com/urfave/cli/v2"
)

var clientFlags = []cli.Flag{
	flags.ServerURLFlag,
	flags.PrivateKeyFlag,
	flags.CallerFlag,
	flags.SecretPassphraseFlag,
	flags.LogJsonFlag,
	flags.LogDebugFlag,
}

func main() {
	commands := operationCommands()
	commands = append(commands,
		&cli.Command{
			Name:   "claim",
			Usage:  "Commit to a name, wait for the commitment to mature and register it",
			Flags:  claimFlags,
			Action: runClaim,
		},
		&cli.Command{
			Name:  "snapshot",
			Usage: "Store a state snapshot on the server's storage backends (admin)",
			Action: func(cCtx *cli.Context) error {
				return runExport(cCtx, func(ctx context.Context, c *clients.RegistrarClient) (*api.SnapshotResponse, error) {
					return c.Snapshot(ctx)
				})
			},
		},
		&cli.Command{
			Name:  "export-events",
			Usage: "Store the retained event log on the server's storage backends (admin)",
			Action: func(cCtx *cli.Context) error {
				return runExport(cCtx, func(ctx context.Context, c *clients.RegistrarClient) (*api.SnapshotResponse, error) {
					return c.ExportEvents(ctx)
				})
			},
		},
		&cli.Command{
			Name:      "derive-secret",
			Usage:     "Print the commitment secret --secret-passphrase derives for a name and owner",
			ArgsUsage: "<name> <owner>",
			Action:    runDeriveSecret,
		},
	)

	app := &cli.App{
		Name:     "registrar-client",
		Usage:    "Call the name registrar API",
		Flags:    clientFlags,
		Commands: commands,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// commandName turns a wire method such as readMinCommitAge into
// read-min-commit-age.
func commandName(method string) string {
	var b strings.Builder
	for i, r := range method {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func operationCommands() []*cli.Command {
	methods := api.Methods()
	commands := make([]*cli.Command, 0, len(methods))
	for _, method := range methods {
		method := method
		commands = append(commands, &cli.Command{
			Name:      commandName(method),
			Usage:     fmt.Sprintf("Call %s", method),
			ArgsUsage: "[json params]",
			Flags:     []cli.Flag{flags.PaymentFlag},
			Action: func(cCtx *cli.Context) error {
				return runOperation(cCtx, method)
			},
		})
	}
	return commands
}

func newClient(cCtx *cli.Context) (*clients.RegistrarClient, error) {
	serverURL := cCtx.String(flags.ServerURLFlag.Name)
	if keyHex := cCtx.String(flags.PrivateKeyFlag.Name); keyHex != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid --private-key: %w", err)
		}
		return clients.NewRegistrarClient(serverURL, key), nil
	}

	var caller interfaces.Address
	if callerHex := cCtx.String(flags.CallerFlag.Name); callerHex != "" {
		if !common.IsHexAddress(callerHex) {
			return nil, fmt.Errorf("invalid --caller address %q", callerHex)
		}
		caller = common.HexToAddress(callerHex)
	}
	return clients.NewUnsignedClient(serverURL, caller), nil
}

// prepareOperation fills owner, secret and commitment defaults of the
// commit-reveal operations.
func prepareOperation(op api.Operation, caller interfaces.Address, passphrase string) error {
	switch op := op.(type) {
	case *api.MakeCommitment:
		if op.Owner == interfaces.ZeroAddress {
			op.Owner = caller
		}
		if op.Secret == (interfaces.Hash{}) && passphrase != "" {
			op.Secret = clients.DeriveSecret(passphrase, op.Name, op.Owner)
		}
	case *api.Register:
		if op.Owner == interfaces.ZeroAddress {
			op.Owner = caller
		}
		if op.Secret == nil && passphrase != "" {
			secret := clients.DeriveSecret(passphrase, op.Name, op.Owner)
			op.Secret = &secret
		}
		if op.CommitHash == (interfaces.Hash{}) {
			if op.Secret == nil {
				return errors.New("register needs commit_hash or a secret")
			}
			name, err := interfaces.NormalizeName(op.Name)
			if err != nil {
				return err
			}
			hash, err := commitment.Make(name, op.Owner, op.Duration, *op.Secret, op.Resolver)
			if err != nil {
				return err
			}
			op.CommitHash = hash
		}
	}
	return nil
}

func runOperation(cCtx *cli.Context, method string) error {
	client, err := newClient(cCtx)
	if err != nil {
		return err
	}

	params := []byte(cCtx.Args().First())
	op, err := api.DecodeOperation(method, params)
	if err != nil {
		return err
	}
	if err := prepareOperation(op, client.Caller(), cCtx.String(flags.SecretPassphraseFlag.Name)); err != nil {
		return err
	}

	payment, err := api.ParsePayment(cCtx.String(flags.PaymentFlag.Name))
	if err != nil {
		return err
	}

	var result json.RawMessage
	if err := client.Call(cCtx.Context, op, payment, &result); err != nil {
		return err
	}
	return printJSON(cCtx.App.Writer, result)
}

func runExport(cCtx *cli.Context, export func(context.Context, *clients.RegistrarClient) (*api.SnapshotResponse, error)) error {
	client, err := newClient(cCtx)
	if err != nil {
		return err
	}
	resp, err := export(cCtx.Context, client)
	if err != nil {
		return err
	}
	return printJSON(cCtx.App.Writer, resp)
}

func runDeriveSecret(cCtx *cli.Context) error {
	passphrase := cCtx.String(flags.SecretPassphraseFlag.Name)
	if passphrase == "" {
		return errors.New("--secret-passphrase is required")
	}
	if cCtx.NArg() != 2 || !common.IsHexAddress(cCtx.Args().Get(1)) {
		return errors.New("usage: derive-secret <name> <owner address>")
	}
	secret := clients.DeriveSecret(passphrase, cCtx.Args().Get(0), common.HexToAddress(cCtx.Args().Get(1)))
	fmt.Fprintln(cCtx.App.Writer, secret.Hex())
	return nil
}

var claimFlags = []cli.Flag{
	&cli.StringFlag{Name: "name", Required: true, Usage: "name to register, e.g. example.vne"},
	&cli.Uint64Flag{Name: "duration", Required: true, Usage: "registration duration in milliseconds"},
	&cli.StringFlag{Name: "resolver", Usage: "resolver address recorded for the name"},
}

func runClaim(cCtx *cli.Context) error {
	ctx := cCtx.Context
	client, err := newClient(cCtx)
	if err != nil {
		return err
	}
	owner := client.Caller()
	name, err := interfaces.NormalizeName(cCtx.String("name"))
	if err != nil {
		return err
	}
	duration := interfaces.Duration(cCtx.Uint64("duration"))

	var resolverAddr interfaces.Address
	if r := cCtx.String("resolver"); r != "" {
		if !common.IsHexAddress(r) {
			return fmt.Errorf("invalid --resolver address %q", r)
		}
		resolverAddr = common.HexToAddress(r)
	}

	var secret interfaces.Hash
	if passphrase := cCtx.String(flags.SecretPassphraseFlag.Name); passphrase != "" {
		secret = clients.DeriveSecret(passphrase, name, owner)
	} else {
		if secret, err = clients.RandomSecret(); err != nil {
			return err
		}
		fmt.Fprintf(cCtx.App.ErrWriter, "secret: %s\n", secret.Hex())
	}

	hash, err := commitment.Make(name, owner, duration, secret, resolverAddr)
	if err != nil {
		return err
	}
	if err := client.Commit(ctx, hash); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	var minAge interfaces.Duration
	if err := client.Call(ctx, &api.ReadMinCommitAge{}, nil, &minAge); err != nil {
		return err
	}
	wait := time.Duration(minAge)*time.Millisecond + time.Second
	fmt.Fprintf(cCtx.App.ErrWriter, "committed %s, waiting %s\n", hash.Hex(), wait)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
	}

	price, err := client.Price(ctx, name, duration)
	if err != nil {
		return err
	}

	var result json.RawMessage
	err = client.Call(ctx, &api.Register{
		Name:       name,
		Owner:      owner,
		Duration:   duration,
		CommitHash: hash,
		Resolver:   resolverAddr,
		Secret:     &secret,
	}, price, &result)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return printJSON(cCtx.App.Writer, result)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
