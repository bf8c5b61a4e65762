package main

import (
	"fmt"

	"github.com/ark-network/dcd/internal/core/domain"
	"github.com/urfave/cli/v2"
)

var (
	helperCommand = cli.Command{
		Name:  "helper",
		Usage: "Wallet, asset registry and contract storage utilities",
		Subcommands: []*cli.Command{
			&faucetCommand,
			&reissueCommand,
			&splitCommand,
			&addressCommand,
			&importCommand,
			&exportCommand,
			&entropyCommand,
			&showConfigCommand,
		},
	}

	faucetCommand = cli.Command{
		Name:   "faucet",
		Usage:  "Issue a new named asset to the wallet",
		Action: faucetAction,
		Flags: []cli.Flag{
			&nameFlag, &utxoFlag, &amountFlag, &feeFlag, &accountFlag, &broadcastFlag,
		},
	}
	reissueCommand = cli.Command{
		Name:   "reissue",
		Usage:  "Mint more of a named asset, spending its reissuance token and a fee utxo",
		Action: reissueAction,
		Flags: []cli.Flag{
			&nameFlag, &utxoFlag, &amountFlag, &feeFlag, &accountFlag, &broadcastFlag,
		},
	}
	splitCommand = cli.Command{
		Name:   "split",
		Usage:  "Split a utxo into equal parts",
		Action: splitAction,
		Flags: []cli.Flag{
			&utxoFlag, &partsFlag, &feeFlag, &accountFlag, &broadcastFlag,
		},
	}
	addressCommand = cli.Command{
		Name:   "address",
		Usage:  "Show the confidential address of the wallet account",
		Action: addressAction,
		Flags:  []cli.Flag{&accountFlag},
	}
	importCommand = cli.Command{
		Name:   "import",
		Usage:  "Store the parameters of a contract created elsewhere",
		Action: importAction,
		Flags: []cli.Flag{
			&contractKeyFlag,
			&cli.StringFlag{
				Name:     paramsFlag.Name,
				Usage:    "hex encoded contract parameters",
				Required: true,
			},
		},
	}
	exportCommand = cli.Command{
		Name:   "export",
		Usage:  "Print the hex encoded parameters of a stored contract",
		Action: exportAction,
		Flags:  []cli.Flag{&contractKeyFlag},
	}
	entropyCommand = cli.Command{
		Name:   "entropy",
		Usage:  "Show a stored entropy and its asset id, or all of them",
		Action: entropyAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  nameFlag.Name,
				Usage: nameFlag.Usage,
			},
		},
	}
	showConfigCommand = cli.Command{
		Name:  "show-config",
		Usage: "Print the loaded configuration",
		Action: func(_ *cli.Context) error {
			fmt.Println(cfg.String())
			return nil
		},
	}
)

func faucetAction(ctx *cli.Context) error {
	svc, err := cfg.RegistryService(uint32(ctx.Uint(accountFlag.Name)))
	if err != nil {
		return err
	}
	utxos, err := parseUtxos(ctx)
	if err != nil {
		return err
	}
	if err := domain.StageIssue.CheckUtxoCount(len(utxos)); err != nil {
		return err
	}

	res, err := svc.Faucet(
		ctx.Context, ctx.String(nameFlag.Name), utxos[0],
		ctx.Uint64(amountFlag.Name), ctx.Uint64(feeFlag.Name),
	)
	if err != nil {
		return err
	}
	_, err = printStageResult(ctx, res)
	return err
}

func reissueAction(ctx *cli.Context) error {
	svc, err := cfg.RegistryService(uint32(ctx.Uint(accountFlag.Name)))
	if err != nil {
		return err
	}
	utxos, err := parseUtxos(ctx)
	if err != nil {
		return err
	}
	if err := domain.StageReissue.CheckUtxoCount(len(utxos)); err != nil {
		return err
	}

	res, err := svc.Reissue(
		ctx.Context, ctx.String(nameFlag.Name), utxos[0], utxos[1],
		ctx.Uint64(amountFlag.Name), ctx.Uint64(feeFlag.Name),
	)
	if err != nil {
		return err
	}
	_, err = printStageResult(ctx, res)
	return err
}

func splitAction(ctx *cli.Context) error {
	svc, err := cfg.RegistryService(uint32(ctx.Uint(accountFlag.Name)))
	if err != nil {
		return err
	}
	utxos, err := parseUtxos(ctx)
	if err != nil {
		return err
	}
	if err := domain.StageSplit.CheckUtxoCount(len(utxos)); err != nil {
		return err
	}

	res, err := svc.Split(
		ctx.Context, utxos[0], ctx.Uint64(partsFlag.Name), ctx.Uint64(feeFlag.Name),
	)
	if err != nil {
		return err
	}
	_, err = printStageResult(ctx, res)
	return err
}

func addressAction(ctx *cli.Context) error {
	wallet, err := cfg.WalletService(uint32(ctx.Uint(accountFlag.Name)))
	if err != nil {
		return err
	}
	addr, err := wallet.Address()
	if err != nil {
		return err
	}
	return printJSON(map[string]string{"address": addr})
}

func importAction(ctx *cli.Context) error {
	svc, err := cfg.RegistryService(0)
	if err != nil {
		return err
	}
	key := ctx.String(contractKeyFlag.Name)
	if err := svc.Import(ctx.Context, key, ctx.String(paramsFlag.Name)); err != nil {
		return err
	}
	fmt.Printf("contract %s imported\n", key)
	return nil
}

func exportAction(ctx *cli.Context) error {
	svc, err := cfg.RegistryService(0)
	if err != nil {
		return err
	}
	params, err := svc.Export(ctx.Context, ctx.String(contractKeyFlag.Name))
	if err != nil {
		return err
	}
	fmt.Println(params)
	return nil
}

func entropyAction(ctx *cli.Context) error {
	svc, err := cfg.RegistryService(0)
	if err != nil {
		return err
	}
	name := ctx.String(nameFlag.Name)
	if len(name) > 0 {
		info, err := svc.Entropy(ctx.Context, name)
		if err != nil {
			return err
		}
		return printJSON(info)
	}

	list, err := svc.ListEntropies(ctx.Context)
	if err != nil {
		return err
	}
	return printJSON(list)
}
