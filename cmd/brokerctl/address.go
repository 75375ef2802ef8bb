package main

import (
	eip712signer "github.com/spintrade/orion-broker/internal/infrastructure/signer/eip712"
	"github.com/urfave/cli/v2"
)

var address = cli.Command{
	Name:   "address",
	Usage:  "print the broker address and public key derived from the private key",
	Flags:  []cli.Flag{keyFlag},
	Action: addressAction,
}

func addressAction(ctx *cli.Context) error {
	if ctx.String(keyFlag.Name) == "" {
		return &invalidUsageError{ctx, ctx.Command.Name}
	}

	signer, err := eip712signer.NewSigner(ctx.String(keyFlag.Name))
	if err != nil {
		return err
	}

	return printJSON(ctx.App.Writer, map[string]string{
		"address":   signer.Address(),
		"publicKey": signer.PublicKey(),
	})
}
