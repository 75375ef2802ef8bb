package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
)

var defaultAssets = cli.NewStringSlice(
	"ETH:0x0000000000000000000000000000000000000000",
	"USDT:0xfc1cd13a7f126efd823e373c4086f69beb8611c2",
	"ORN:0xfc25454ac2db9f6ab36bc0b0b034b41061c00982",
)

var (
	keyFlag = &cli.StringFlag{
		Name:    "key",
		Usage:   "the hex encoded private key of the broker",
		EnvVars: []string{"BROKER_PRIVATE_KEY"},
	}
	matcherFlag = &cli.StringFlag{
		Name:    "matcher",
		Usage:   "the address of the matcher",
		EnvVars: []string{"BROKER_MATCHER_ADDRESS"},
	}
	assetsFlag = &cli.StringSliceFlag{
		Name:  "asset",
		Usage: "an entry SYMBOL:0xaddress of the asset table, repeatable",
		Value: defaultAssets,
	}
	pairFlag = &cli.StringFlag{
		Name:  "pair",
		Usage: "the BASE-QUOTE trading pair of the sub-order",
	}
	sideFlag = &cli.StringFlag{
		Name:  "side",
		Usage: "the side of the sub-order, buy or sell",
	}
	amountFlag = &cli.StringFlag{
		Name:  "amount",
		Usage: "the traded amount of base asset",
	}
	priceFlag = &cli.StringFlag{
		Name:  "price",
		Usage: "the trade price in quote asset",
	}
	timestampFlag = &cli.Int64Flag{
		Name:  "timestamp",
		Usage: "the trade timestamp in milliseconds, defaults to now",
	}
	tradeFlags = []cli.Flag{
		keyFlag, matcherFlag, assetsFlag,
		pairFlag, sideFlag, amountFlag, priceFlag, timestampFlag,
	}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fatal(err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()

	app.Name = "brokerctl"
	app.Usage = "Command line interface for orion broker operators"
	app.Commands = append(
		app.Commands,
		&address,
		&sign,
		&hash,
		&settle,
	)
	return app
}

type invalidUsageError struct {
	ctx     *cli.Context
	command string
}

func (e *invalidUsageError) Error() string {
	return fmt.Sprintf("invalid usage of command %s", e.command)
}

func fatal(err error) {
	var e *invalidUsageError
	if errors.As(err, &e) {
		_ = cli.ShowCommandHelp(e.ctx, e.command)
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "[brokerctl] %v\n", err)
	}
	os.Exit(1)
}

func printJSON(w io.Writer, v interface{}) error {
	buf, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return fmt.Errorf("unable to encode response: %w", err)
	}
	_, err = fmt.Fprintln(w, string(buf))
	return err
}
