package main

import (
	"encoding/json"

	"github.com/spintrade/orion-broker/internal/core/application/settlement"
	hubrest "github.com/spintrade/orion-broker/internal/infrastructure/hub/rest"
	"github.com/spintrade/orion-broker/internal/infrastructure/storage/db/inmemory"
	"github.com/urfave/cli/v2"
)

var settle = cli.Command{
	Name:  "settle",
	Usage: "build, sign and relay the settlement message of a trade to the hub",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:    "hub",
			Usage:   "the base url of the hub trade relay",
			EnvVars: []string{"BROKER_HUB_BLOCKCHAIN_URL"},
		},
		&cli.StringFlag{
			Name:    "secret",
			Usage:   "the shared secret used to sign the bearer token",
			EnvVars: []string{"BROKER_HUB_SECRET"},
		},
		&cli.StringFlag{
			Name:  "order",
			Usage: "the id of the settled order",
		},
	}, tradeFlags...),
	Action: settleAction,
}

func settleAction(ctx *cli.Context) error {
	if ctx.String("hub") == "" || ctx.String("order") == "" {
		return &invalidUsageError{ctx, ctx.Command.Name}
	}

	signer, identity, registry, err := parseBrokerFlags(ctx)
	if err != nil {
		return err
	}
	subOrder, trade, err := parseTradeFlags(ctx)
	if err != nil {
		return err
	}

	hub, err := hubrest.NewClient(hubrest.Config{
		HubURL:      ctx.String("hub"),
		CallbackURL: ctx.String("hub"),
		Secret:      ctx.String("secret"),
	})
	if err != nil {
		return err
	}
	repoManager := inmemory.NewRepoManager()
	defer repoManager.Close()

	svc, err := settlement.NewService(
		registry, signer, identity.MatcherAddress, hub, repoManager,
	)
	if err != nil {
		return err
	}

	msg, err := svc.SettleTrade(ctx.Context, ctx.String("order"), subOrder, trade)
	if err != nil {
		return err
	}
	record, err := svc.GetSettlement(ctx.Context, msg.ID)
	if err != nil {
		return err
	}

	return printJSON(ctx.App.Writer, map[string]interface{}{
		"message": msg,
		"status":  record.Status,
		"ack":     json.RawMessage(record.Ack),
	})
}
