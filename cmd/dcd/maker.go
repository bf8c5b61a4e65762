package main

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/ark-network/dcd/internal/core/application"
	"github.com/ark-network/dcd/internal/core/domain"
	"github.com/ark-network/dcd/internal/infrastructure/wallet/singlekey"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/urfave/cli/v2"
	"github.com/vulpemventures/go-elements/network"
)

var (
	makerCommand = cli.Command{
		Name:  "maker",
		Usage: "Create, fund, terminate and settle contracts as maker",
		Subcommands: []*cli.Command{
			&makerInitCommand,
			&makerFundCommand,
			&makerTerminateCollateralCommand,
			&makerTerminateSettlementCommand,
			&makerSettleCommand,
		},
	}

	makerInitCommand = cli.Command{
		Name:  "init",
		Usage: "Mint the contract tokens and lock their reissuance tokens in a new contract",
		Action: func(ctx *cli.Context) error {
			return makerInit(ctx)
		},
		Flags: []cli.Flag{
			&utxoFlag, &feeFlag, &accountFlag, &broadcastFlag,
			&fundingStartFlag, &fundingEndFlag, &contractExpiryFlag, &earlyTerminationEndFlag,
			&settlementHeightFlag, &strikePriceFlag, &incentiveBpsFlag, &feeBpsFlag,
			&principalFlag, &fillerPerPrincipalFlag, &settlementAssetFlag, &oraclePubkeyFlag,
		},
	}

	makerFundCommand = cli.Command{
		Name:  "fund",
		Usage: "Reissue the contract tokens and lock the maker collateral",
		Action: func(ctx *cli.Context) error {
			return makerFund(ctx)
		},
		Flags: []cli.Flag{
			&contractKeyFlag, &paramsFlag, &utxoFlag, &feeFlag, &accountFlag,
			&broadcastFlag, &publishFlag,
		},
	}

	makerTerminateCollateralCommand = cli.Command{
		Name:  "terminate-collateral",
		Usage: "Burn grantor collateral tokens to withdraw the interest collateral",
		Action: func(ctx *cli.Context) error {
			return runStage(ctx, application.LifecycleService.MakerTerminateCollateral)
		},
		Flags: []cli.Flag{
			&contractKeyFlag, &paramsFlag, &utxoFlag, &amountFlag, &feeFlag, &accountFlag,
			&broadcastFlag,
		},
	}

	makerTerminateSettlementCommand = cli.Command{
		Name:  "terminate-settlement",
		Usage: "Burn grantor settlement tokens to withdraw the settlement asset",
		Action: func(ctx *cli.Context) error {
			return runStage(ctx, application.LifecycleService.MakerTerminateSettlement)
		},
		Flags: []cli.Flag{
			&contractKeyFlag, &paramsFlag, &utxoFlag, &amountFlag, &feeFlag, &accountFlag,
			&broadcastFlag,
		},
	}

	makerSettleCommand = cli.Command{
		Name:  "settle",
		Usage: "Burn grantor tokens against the maker leg of the settlement",
		Action: func(ctx *cli.Context) error {
			return runStage(ctx, application.LifecycleService.MakerSettle)
		},
		Flags: []cli.Flag{
			&contractKeyFlag, &paramsFlag, &utxoFlag, &amountFlag, &feeFlag, &accountFlag,
			&priceFlag, &oracleSignatureFlag, &broadcastFlag,
		},
	}
)

type stageFunc func(
	application.LifecycleService, context.Context, application.StageRequest,
) (*application.StageResult, error)

func runStage(ctx *cli.Context, stage stageFunc) error {
	svc, err := cfg.LifecycleService(uint32(ctx.Uint(accountFlag.Name)))
	if err != nil {
		return err
	}
	req, err := stageRequest(ctx)
	if err != nil {
		return err
	}

	res, err := stage(svc, ctx.Context, req)
	if err != nil {
		return err
	}
	_, err = printStageResult(ctx, res)
	return err
}

func makerInit(ctx *cli.Context) error {
	svc, err := cfg.LifecycleService(uint32(ctx.Uint(accountFlag.Name)))
	if err != nil {
		return err
	}
	utxos, err := parseUtxos(ctx)
	if err != nil {
		return err
	}

	settlementAsset, err := resolveAsset(ctx, ctx.String(settlementAssetFlag.Name))
	if err != nil {
		return err
	}
	oracleKey, err := oraclePubkey(ctx)
	if err != nil {
		return err
	}

	incentiveBps := ctx.Uint64(incentiveBpsFlag.Name)
	strikePrice := ctx.Uint64(strikePriceFlag.Name)
	ratio, err := domain.NewRatioArguments(
		ctx.Uint64(principalFlag.Name), ctx.Uint64(fillerPerPrincipalFlag.Name),
		incentiveBps, strikePrice,
	)
	if err != nil {
		return err
	}

	times := make([]uint32, 0, 5)
	for _, f := range []*cli.Uint64Flag{
		&fundingStartFlag, &fundingEndFlag, &contractExpiryFlag,
		&earlyTerminationEndFlag, &settlementHeightFlag,
	} {
		v := ctx.Uint64(f.Name)
		if v > uint64(^uint32(0)) {
			return fmt.Errorf("%w: --%s out of range", domain.ErrInvalidParameters, f.Name)
		}
		times = append(times, uint32(v))
	}

	res, err := svc.Init(ctx.Context, application.InitRequest{
		Params: domain.ContractParameters{
			TakerFundingStartTime:   times[0],
			TakerFundingEndTime:     times[1],
			ContractExpiryTime:      times[2],
			EarlyTerminationEndTime: times[3],
			SettlementHeight:        times[4],
			StrikePrice:             strikePrice,
			IncentiveBasisPoints:    incentiveBps,
			FeeBasisPoints:          ctx.Uint64(feeBpsFlag.Name),
			SettlementAssetID:       settlementAsset,
			OraclePublicKey:         oracleKey,
			Ratio:                   ratio,
		},
		Utxos: utxos,
		Fee:   ctx.Uint64(feeFlag.Name),
	})
	if err != nil {
		return err
	}

	_, err = printStageResult(ctx, res)
	return err
}

func makerFund(ctx *cli.Context) error {
	publish := ctx.Bool(publishFlag.Name)
	if publish && !ctx.Bool(broadcastFlag.Name) {
		return fmt.Errorf("--publish requires --broadcast")
	}

	svc, err := cfg.LifecycleService(uint32(ctx.Uint(accountFlag.Name)))
	if err != nil {
		return err
	}
	req, err := stageRequest(ctx)
	if err != nil {
		return err
	}

	res, err := svc.MakerFund(ctx.Context, req)
	if err != nil {
		return err
	}
	txid, err := printStageResult(ctx, res)
	if err != nil || !publish {
		return err
	}

	orderBook, err := cfg.OrderBookService(ctx.Context)
	if err != nil {
		return err
	}
	eventID, err := orderBook.PublishOrder(ctx.Context, res.ContractKey, req.Params, txid)
	if err != nil {
		return fmt.Errorf("funding tx %s broadcasted but announcement failed: %w", txid, err)
	}
	return printJSON(map[string]string{"event_id": eventID})
}

// resolveAsset accepts an asset id or the name of an entropy in the registry.
func resolveAsset(ctx *cli.Context, asset string) (string, error) {
	if err := domain.ValidateAssetID(asset); err == nil {
		return asset, nil
	}
	svc, err := cfg.RegistryService(uint32(ctx.Uint(accountFlag.Name)))
	if err != nil {
		return "", err
	}
	info, err := svc.Entropy(ctx.Context, asset)
	if err != nil {
		return "", err
	}
	return info.AssetID, nil
}

func oraclePubkey(ctx *cli.Context) (string, error) {
	if key := ctx.String(oraclePubkeyFlag.Name); len(key) > 0 {
		return key, nil
	}
	if cfg.NetworkParams().Name == network.Liquid.Name {
		return "", fmt.Errorf("missing --%s", oraclePubkeyFlag.Name)
	}
	key := secp256k1.PrivKeyFromBytes(singlekey.OracleTestSecret).PubKey()
	return hex.EncodeToString(schnorr.SerializePubKey(key)), nil
}
