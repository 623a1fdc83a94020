// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package main

import (
	"github.com/urfave/cli"
)

var setupCommand = cli.Command{
	Name:      "setup",
	Usage:     "initialize a new channel with a counterparty",
	ArgsUsage: "channel-address alice bob alice-identifier bob-identifier chain-id",
	Action: func(ctx *cli.Context) error {
		args := ctx.Args()
		return call(ctx, "chan_setup", map[string]interface{}{
			"channelAddress":  args.Get(0),
			"alice":           args.Get(1),
			"bob":             args.Get(2),
			"aliceIdentifier": args.Get(3),
			"bobIdentifier":   args.Get(4),
			"chainId":         args.Get(5),
		})
	},
}

var depositCommand = cli.Command{
	Name:      "deposit",
	Usage:     "reconcile a new on-chain deposit into a channel",
	ArgsUsage: "channel-address asset-id",
	Action: func(ctx *cli.Context) error {
		args := ctx.Args()
		return call(ctx, "chan_deposit", map[string]interface{}{
			"channelAddress": args.Get(0),
			"assetId":        args.Get(1),
		})
	},
}

var createTransferCommand = cli.Command{
	Name:      "createtransfer",
	Usage:     "create a conditional transfer",
	ArgsUsage: "channel-address type amount asset-id recipient",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "routing-id", Usage: "optional routing identifier; generated if omitted"},
		cli.BoolFlag{Name: "require-online", Usage: "fail instead of queueing if the recipient is offline"},
	},
	Action: func(ctx *cli.Context) error {
		args := ctx.Args()
		return call(ctx, "chan_createTransfer", map[string]interface{}{
			"channelAddress": args.Get(0),
			"type":           args.Get(1),
			"amount":         args.Get(2),
			"assetId":        args.Get(3),
			"recipient":      args.Get(4),
			"routingId":      ctx.String("routing-id"),
			"requireOnline":  ctx.Bool("require-online"),
		})
	},
}

var resolveTransferCommand = cli.Command{
	Name:      "resolvetransfer",
	Usage:     "resolve a conditional transfer with its resolver data",
	ArgsUsage: "channel-address transfer-id resolver-hex",
	Action: func(ctx *cli.Context) error {
		args := ctx.Args()
		return call(ctx, "chan_resolveTransfer", map[string]interface{}{
			"channelAddress": args.Get(0),
			"transferId":     args.Get(1),
			"resolver":       args.Get(2),
		})
	},
}

var withdrawCommand = cli.Command{
	Name:      "withdraw",
	Usage:     "withdraw channel balance to an on-chain recipient",
	ArgsUsage: "channel-address asset-id amount recipient",
	Action: func(ctx *cli.Context) error {
		args := ctx.Args()
		return call(ctx, "chan_withdraw", map[string]interface{}{
			"channelAddress": args.Get(0),
			"assetId":        args.Get(1),
			"amount":         args.Get(2),
			"recipient":      args.Get(3),
		})
	},
}

var getChannelCommand = cli.Command{
	Name:      "getchannel",
	Usage:     "fetch a channel's current state",
	ArgsUsage: "channel-address",
	Action: func(ctx *cli.Context) error {
		return call(ctx, "chan_getChannel", map[string]interface{}{
			"channelAddress": ctx.Args().Get(0),
		})
	},
}

var getTransferCommand = cli.Command{
	Name:      "gettransfer",
	Usage:     "fetch a transfer's current state",
	ArgsUsage: "transfer-id",
	Action: func(ctx *cli.Context) error {
		return call(ctx, "chan_getTransfer", map[string]interface{}{
			"transferId": ctx.Args().Get(0),
		})
	},
}

var restoreStateCommand = cli.Command{
	Name:      "restorestate",
	Usage:     "restore a channel's state from a counterparty after local storage loss",
	ArgsUsage: "to channel-address factory",
	Action: func(ctx *cli.Context) error {
		args := ctx.Args()
		return call(ctx, "chan_restoreState", map[string]interface{}{
			"to":             args.Get(0),
			"channelAddress": args.Get(1),
			"factory":        args.Get(2),
		})
	},
}
