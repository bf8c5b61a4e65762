package main

import (
	"github.com/ark-network/dcd/internal/core/application"
	"github.com/urfave/cli/v2"
)

var (
	takerCommand = cli.Command{
		Name:  "taker",
		Usage: "Fund, terminate and settle contracts as taker",
		Subcommands: []*cli.Command{
			&takerFundCommand,
			&takerTerminateEarlyCommand,
			&takerSettleCommand,
		},
	}

	takerFundCommand = cli.Command{
		Name:  "fund",
		Usage: "Deposit collateral in exchange for filler tokens",
		Action: func(ctx *cli.Context) error {
			return runStage(ctx, application.LifecycleService.TakerFund)
		},
		Flags: []cli.Flag{
			&contractKeyFlag, &paramsFlag, &utxoFlag, &amountFlag, &feeFlag, &accountFlag,
			&broadcastFlag,
		},
	}

	takerTerminateEarlyCommand = cli.Command{
		Name:  "terminate-early",
		Usage: "Return filler tokens to withdraw the deposited collateral",
		Action: func(ctx *cli.Context) error {
			return runStage(ctx, application.LifecycleService.TakerTerminateEarly)
		},
		Flags: []cli.Flag{
			&contractKeyFlag, &paramsFlag, &utxoFlag, &amountFlag, &feeFlag, &accountFlag,
			&broadcastFlag,
		},
	}

	takerSettleCommand = cli.Command{
		Name:  "settle",
		Usage: "Burn filler tokens against the taker leg of the settlement",
		Action: func(ctx *cli.Context) error {
			return runStage(ctx, application.LifecycleService.TakerSettle)
		},
		Flags: []cli.Flag{
			&contractKeyFlag, &paramsFlag, &utxoFlag, &amountFlag, &feeFlag, &accountFlag,
			&priceFlag, &oracleSignatureFlag, &broadcastFlag,
		},
	}
)
