package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ark-network/dcd/internal/core/application"
	"github.com/ark-network/dcd/internal/core/domain"
	"github.com/urfave/cli/v2"
)

func printJSON(resp interface{}) error {
	jsonBytes, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		return err
	}

	fmt.Println(string(jsonBytes))
	return nil
}

func parseUtxos(ctx *cli.Context) ([]domain.UtxoRef, error) {
	return domain.ParseUtxoRefs(ctx.StringSlice(utxoFlag.Name))
}

func parseParams(ctx *cli.Context) (*domain.ContractParameters, error) {
	paramsHex := ctx.String(paramsFlag.Name)
	if len(paramsHex) == 0 {
		return nil, nil
	}
	params, err := domain.DecodeContractParametersFromHex(paramsHex)
	if err != nil {
		return nil, err
	}
	return &params, nil
}

func stageRequest(ctx *cli.Context) (application.StageRequest, error) {
	utxos, err := parseUtxos(ctx)
	if err != nil {
		return application.StageRequest{}, err
	}
	params, err := parseParams(ctx)
	if err != nil {
		return application.StageRequest{}, err
	}

	req := application.StageRequest{
		ContractKey: ctx.String(contractKeyFlag.Name),
		Params:      params,
		Utxos:       utxos,
		Fee:         ctx.Uint64(feeFlag.Name),
		Amount:      ctx.Uint64(amountFlag.Name),
		Price:       ctx.Uint64(priceFlag.Name),
		Now:         time.Now(),
	}
	if sig := ctx.String(oracleSignatureFlag.Name); len(sig) > 0 {
		if req.OracleSignature, err = hex.DecodeString(sig); err != nil {
			return application.StageRequest{}, fmt.Errorf("%w: oracle signature", domain.ErrMalformedHex)
		}
	}
	return req, nil
}

type stageOutput struct {
	Stage       string                    `json:"stage"`
	State       string                    `json:"state,omitempty"`
	ContractKey string                    `json:"contract_key,omitempty"`
	Txid        string                    `json:"txid"`
	TxHex       string                    `json:"tx_hex,omitempty"`
	Broadcasted bool                      `json:"broadcasted"`
	Minted      []application.MintedAsset `json:"minted,omitempty"`
}

// printStageResult broadcasts the transaction if asked to and prints the
// outcome. It returns the txid of the transaction.
func printStageResult(ctx *cli.Context, res *application.StageResult) (string, error) {
	out := stageOutput{
		Stage:       res.Stage.String(),
		ContractKey: res.ContractKey,
		Txid:        res.Txid,
		Minted:      res.Minted,
	}
	if len(res.ContractKey) > 0 {
		out.State = res.State.String()
	}

	if ctx.Bool(broadcastFlag.Name) {
		svc, err := cfg.LifecycleService(uint32(ctx.Uint(accountFlag.Name)))
		if err != nil {
			return "", err
		}
		txid, err := svc.Broadcast(ctx.Context, res.TxHex)
		if err != nil {
			return "", err
		}
		out.Txid = txid
		out.Broadcasted = true
	} else {
		out.TxHex = res.TxHex
	}

	return out.Txid, printJSON(out)
}
