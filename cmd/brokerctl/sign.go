package main

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spintrade/orion-broker/internal/core/domain"
	eip712signer "github.com/spintrade/orion-broker/internal/infrastructure/signer/eip712"
	"github.com/urfave/cli/v2"
)

var sign = cli.Command{
	Name:   "sign",
	Usage:  "build and sign the settlement message of a trade",
	Flags:  tradeFlags,
	Action: signAction,
}

func signAction(ctx *cli.Context) error {
	signer, identity, registry, err := parseBrokerFlags(ctx)
	if err != nil {
		return err
	}
	subOrder, trade, err := parseTradeFlags(ctx)
	if err != nil {
		return err
	}

	msg, err := domain.NewSettlementMessage(identity, registry, subOrder, trade)
	if err != nil {
		return err
	}
	if msg.ID, err = signer.HashMessage(*msg); err != nil {
		return err
	}
	if msg.Signature, err = signer.SignMessage(*msg); err != nil {
		return err
	}

	return printJSON(ctx.App.Writer, msg)
}

func parseBrokerFlags(ctx *cli.Context) (
	*eip712signer.Signer, domain.BrokerIdentity, *domain.AssetRegistry, error,
) {
	if ctx.String(keyFlag.Name) == "" || ctx.String(matcherFlag.Name) == "" {
		return nil, domain.BrokerIdentity{}, nil, &invalidUsageError{ctx, ctx.Command.Name}
	}

	signer, err := eip712signer.NewSigner(ctx.String(keyFlag.Name))
	if err != nil {
		return nil, domain.BrokerIdentity{}, nil, err
	}
	identity, err := domain.NewBrokerIdentity(signer.Address(), ctx.String(matcherFlag.Name))
	if err != nil {
		return nil, domain.BrokerIdentity{}, nil, err
	}
	assets, err := domain.ParseAssetTable(ctx.StringSlice(assetsFlag.Name))
	if err != nil {
		return nil, domain.BrokerIdentity{}, nil, err
	}
	registry, err := domain.NewAssetRegistry(assets)
	if err != nil {
		return nil, domain.BrokerIdentity{}, nil, err
	}
	return signer, identity, registry, nil
}

func parseTradeFlags(ctx *cli.Context) (domain.SubOrder, domain.Trade, error) {
	for _, name := range []string{
		pairFlag.Name, sideFlag.Name, amountFlag.Name, priceFlag.Name,
	} {
		if ctx.String(name) == "" {
			return domain.SubOrder{}, domain.Trade{}, &invalidUsageError{ctx, ctx.Command.Name}
		}
	}

	amount, err := decimal.NewFromString(ctx.String(amountFlag.Name))
	if err != nil {
		return domain.SubOrder{}, domain.Trade{}, fmt.Errorf("invalid amount: %w", err)
	}
	price, err := decimal.NewFromString(ctx.String(priceFlag.Name))
	if err != nil {
		return domain.SubOrder{}, domain.Trade{}, fmt.Errorf("invalid price: %w", err)
	}
	timestamp := ctx.Int64(timestampFlag.Name)
	if timestamp == 0 {
		timestamp = time.Now().UnixMilli()
	}

	subOrder := domain.SubOrder{
		Symbol: ctx.String(pairFlag.Name),
		Side:   domain.Side(ctx.String(sideFlag.Name)),
	}
	trade := domain.Trade{Amount: amount, Price: price, Timestamp: timestamp}
	return subOrder, trade, nil
}
