package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spintrade/orion-broker/internal/core/domain"
	eip712signer "github.com/spintrade/orion-broker/internal/infrastructure/signer/eip712"
	"github.com/urfave/cli/v2"
)

var hash = cli.Command{
	Name:  "hash",
	Usage: "recompute the id of a signed settlement message and recover its signer",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "file",
			Usage: "the path of the settlement message JSON, - for stdin",
			Value: "-",
		},
	},
	Action: hashAction,
}

type hashReply struct {
	ID      string `json:"id"`
	IDMatch bool   `json:"idMatch"`
	Signer  string `json:"signer,omitempty"`
	Sender  bool   `json:"signedBySender"`
}

func hashAction(ctx *cli.Context) error {
	var (
		buf []byte
		err error
	)
	if path := ctx.String("file"); path == "-" {
		buf, err = io.ReadAll(ctx.App.Reader)
	} else {
		buf, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("unable to read message: %w", err)
	}

	var msg domain.SettlementMessage
	if err := json.Unmarshal(buf, &msg); err != nil {
		return fmt.Errorf("unable to decode message: %w", err)
	}

	id, err := eip712signer.HashMessage(msg)
	if err != nil {
		return err
	}
	reply := hashReply{ID: id, IDMatch: id == msg.ID}

	if len(msg.Signature) > 0 {
		signer, err := eip712signer.RecoverSigner(msg)
		if err != nil {
			return err
		}
		reply.Signer = signer
		reply.Sender = signer == msg.SenderAddress
	}

	return printJSON(ctx.App.Writer, reply)
}
