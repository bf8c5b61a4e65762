package txbuilder

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/ark-network/dcd/internal/core/domain"
	"github.com/ark-network/dcd/internal/core/ports"
	"github.com/btcsuite/btcd/txscript"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/go-elements/psetv2"
	"github.com/vulpemventures/go-elements/transaction"
)

type txBuilder struct {
	explorer ports.Explorer
	ctLib    ports.ConfidentialTxLibrary
	wallet   ports.WalletService
}

func NewTxBuilder(
	explorer ports.Explorer, ctLib ports.ConfidentialTxLibrary, wallet ports.WalletService,
) ports.TxBuilder {
	return &txBuilder{explorer, ctLib, wallet}
}

func (b *txBuilder) Build(ctx context.Context, skeleton ports.Skeleton) (*ports.BuildResult, error) {
	if err := skeleton.Stage.CheckUtxoCount(len(skeleton.Inputs)); err != nil {
		return nil, err
	}

	logger := log.WithFields(log.Fields{
		"build_id": uuid.New().String(),
		"stage":    skeleton.Stage.String(),
	})

	resolved, err := b.resolveInputs(ctx, skeleton.Inputs)
	if err != nil {
		return nil, err
	}
	logger.Debugf("resolved %d inputs", len(resolved))

	issuances, issued, err := computeIssuances(skeleton.Inputs, resolved)
	if err != nil {
		return nil, err
	}

	outputs, err := b.makeOutputs(skeleton, resolved, issued)
	if err != nil {
		return nil, err
	}
	logger.Debugf("added %d outputs", len(outputs))

	ptx, err := psetv2.New(nil, outputs, nil)
	if err != nil {
		return nil, err
	}

	updater, err := psetv2.NewUpdater(ptx)
	if err != nil {
		return nil, err
	}

	blindingInputs := make([]ports.BlindingInput, 0, len(resolved))
	prevouts := make([]*transaction.TxOutput, 0, len(resolved))

	for i, in := range skeleton.Inputs {
		if err := updater.AddInputs([]psetv2.InputArgs{
			{
				Txid:    in.Ref.Txid,
				TxIndex: in.Ref.VOut,
			},
		}); err != nil {
			return nil, err
		}

		if err := updater.AddInWitnessUtxo(i, resolved[i].prevout); err != nil {
			return nil, err
		}

		if err := updater.AddInSighashType(i, txscript.SigHashAll); err != nil {
			return nil, err
		}

		if in.Issuance != nil {
			addIssuance(ptx, i, *in.Issuance, resolved[i].utxo)
		}

		blindingInputs = append(blindingInputs, ports.BlindingInput{
			Index:    uint32(i),
			Utxo:     *resolved[i].utxo,
			Contract: in.Contract,
		})
		prevouts = append(prevouts, resolved[i].prevout)
	}

	tx, err := b.ctLib.BlindAndFinalize(ptx, blindingInputs)
	if err != nil {
		return nil, fmt.Errorf("ct library: %w", err)
	}

	ok, err := b.ctLib.VerifyAmountProofs(tx, prevouts)
	if err != nil {
		return nil, fmt.Errorf("ct library: %w", err)
	}
	if !ok {
		return nil, domain.ErrAmountProofMismatch
	}

	txHex, err := tx.ToHex()
	if err != nil {
		return nil, err
	}
	txid := tx.TxHash().String()

	logger.WithField("txid", txid).Debug("transaction built")

	return &ports.BuildResult{
		Tx:        tx,
		Txid:      txid,
		TxHex:     txHex,
		Issuances: issuances,
	}, nil
}

func (b *txBuilder) Split(ctx context.Context, req ports.SplitRequest) (*ports.BuildResult, error) {
	if req.Parts < 1 {
		return nil, domain.ErrInvalidPartCount
	}

	in, err := b.resolveInput(ctx, 0, req.Utxo, b.baseAsset())
	if err != nil {
		return nil, err
	}
	value := in.utxo.Value
	if req.Fee > value {
		return nil, fmt.Errorf(
			"%w: fee %d, input value %d", domain.ErrFeeExceedsInput, req.Fee, value,
		)
	}

	part := (value - req.Fee) / req.Parts
	if part == 0 {
		return nil, fmt.Errorf(
			"%w: %d left after fee for %d parts",
			domain.ErrSplitPartTooSmall, value-req.Fee, req.Parts,
		)
	}

	outputs := make([]ports.SkeletonOutput, 0, req.Parts)
	for i := uint64(0); i < req.Parts; i++ {
		outputs = append(outputs, ports.SkeletonOutput{
			Asset:  b.baseAsset(),
			Amount: part,
			Script: req.Script,
		})
	}

	// the rounding remainder goes to the fee output
	return b.Build(ctx, ports.Skeleton{
		Stage: domain.StageSplit,
		Inputs: []ports.SkeletonInput{
			{Ref: req.Utxo, ExpectedAsset: b.baseAsset()},
		},
		Outputs:             outputs,
		DefaultChangeScript: req.Script,
		Fee:                 value - part*req.Parts,
	})
}

func (b *txBuilder) Issue(ctx context.Context, req ports.IssueRequest) (*ports.BuildResult, error) {
	contractHash := make([]byte, 32)
	if _, err := rand.Read(contractHash); err != nil {
		return nil, err
	}

	entropy, err := domain.NewIssuanceEntropy(req.Utxo, contractHash)
	if err != nil {
		return nil, err
	}
	assetID, tokenID, err := issuedAssets(entropy)
	if err != nil {
		return nil, err
	}

	return b.Build(ctx, ports.Skeleton{
		Stage: domain.StageIssue,
		Inputs: []ports.SkeletonInput{
			{
				Ref:           req.Utxo,
				ExpectedAsset: b.baseAsset(),
				Issuance: &ports.Issuance{
					ContractHash: contractHash,
					AssetAmount:  req.AssetAmount,
					TokenAmount:  1,
				},
			},
		},
		Outputs: []ports.SkeletonOutput{
			{Asset: tokenID, Amount: 1, Script: req.Script, Blind: true},
			{Asset: assetID, Amount: req.AssetAmount, Script: req.Script},
		},
		DefaultChangeScript: req.Script,
		ExplicitChange:      true,
		Fee:                 req.Fee,
	})
}

func (b *txBuilder) Reissue(ctx context.Context, req ports.ReissueRequest) (*ports.BuildResult, error) {
	assetID, tokenID, err := issuedAssets(req.Entropy)
	if err != nil {
		return nil, err
	}
	entropy := req.Entropy

	return b.Build(ctx, ports.Skeleton{
		Stage: domain.StageReissue,
		Inputs: []ports.SkeletonInput{
			{
				Ref:           req.TokenUtxo,
				ExpectedAsset: tokenID,
				Issuance: &ports.Issuance{
					Entropy:     &entropy,
					AssetAmount: req.AssetAmount,
				},
			},
			{Ref: req.FeeUtxo, ExpectedAsset: b.baseAsset()},
		},
		Outputs: []ports.SkeletonOutput{
			{Asset: tokenID, Amount: 1, Script: req.Script, Blind: true},
			{Asset: assetID, Amount: req.AssetAmount, Script: req.Script},
		},
		DefaultChangeScript: req.Script,
		Fee:                 req.Fee,
	})
}

func (b *txBuilder) baseAsset() string {
	return b.wallet.Network().AssetID
}

type resolvedInput struct {
	prevout *transaction.TxOutput
	utxo    *ports.UnblindedOutput
}

func (b *txBuilder) resolveInputs(
	ctx context.Context, inputs []ports.SkeletonInput,
) ([]resolvedInput, error) {
	resolved := make([]resolvedInput, 0, len(inputs))
	for i, in := range inputs {
		r, err := b.resolveInput(ctx, i, in.Ref, in.ExpectedAsset)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, *r)
	}
	return resolved, nil
}

func (b *txBuilder) resolveInput(
	ctx context.Context, index int, ref domain.UtxoRef, expectedAsset string,
) (*resolvedInput, error) {
	prevout, err := b.explorer.FetchUtxo(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: input %d (%s): explorer: %s", domain.ErrMissingValue, index, ref, err)
	}

	utxo, err := b.ctLib.Unblind(prevout)
	if err != nil {
		return nil, fmt.Errorf("%w: input %d (%s): %s", domain.ErrMissingValue, index, ref, err)
	}

	if len(expectedAsset) > 0 && utxo.Asset != expectedAsset {
		return nil, fmt.Errorf(
			"%w: input %d (%s) holds %s, expected %s",
			domain.ErrAssetRoleMismatch, index, ref, utxo.Asset, expectedAsset,
		)
	}

	return &resolvedInput{prevout, utxo}, nil
}

func (b *txBuilder) makeOutputs(
	skeleton ports.Skeleton, resolved []resolvedInput, issued []assetAmount,
) ([]psetv2.OutputArgs, error) {
	baseAsset := b.baseAsset()

	bal := newBalance()
	for _, in := range resolved {
		bal.add(in.utxo.Asset, in.utxo.Value)
	}
	for _, i := range issued {
		bal.add(i.asset, i.amount)
	}

	legs := make([]ports.SkeletonOutput, 0, len(skeleton.Outputs))
	for _, out := range skeleton.Outputs {
		if out.Amount == 0 {
			continue
		}
		legs = append(legs, out)
		if err := bal.sub(out.Asset, out.Amount); err != nil {
			return nil, err
		}
	}
	if err := bal.sub(baseAsset, skeleton.Fee); err != nil {
		return nil, err
	}

	// change is blinded as soon as the tx carries any confidential amount,
	// unless the skeleton asks for explicit change
	confidential := hasConfidentialInputs(resolved)
	blindChange := !skeleton.ExplicitChange && (confidential || countBlinded(legs) > 0)

	for i, in := range skeleton.Inputs {
		if in.Remainder == nil {
			continue
		}
		utxo := resolved[i].utxo
		if in.Remainder.Spent > utxo.Value {
			return nil, fmt.Errorf(
				"%w: input %d holds %d, %d requested",
				domain.ErrInsufficientFunds, i, utxo.Value, in.Remainder.Spent,
			)
		}
		amount := utxo.Value - in.Remainder.Spent
		if amount == 0 {
			continue
		}
		if err := bal.sub(utxo.Asset, amount); err != nil {
			return nil, err
		}
		legs = append(legs, ports.SkeletonOutput{
			Asset:  utxo.Asset,
			Amount: amount,
			Script: in.Remainder.Script,
			Blind:  blindChange,
		})
	}

	for _, asset := range bal.assets {
		change := bal.amounts[asset]
		if change == 0 {
			continue
		}
		script, ok := skeleton.ChangeScripts[asset]
		if !ok {
			script = skeleton.DefaultChangeScript
		}
		if len(script) == 0 {
			return nil, fmt.Errorf("missing change script for asset %s", asset)
		}
		legs = append(legs, ports.SkeletonOutput{
			Asset:  asset,
			Amount: change,
			Script: script,
			Blind:  blindChange,
		})
	}

	if confidential && !skeleton.ExplicitChange && countBlinded(legs) == 0 {
		for i := range legs {
			legs[i].Blind = !isBurn(legs[i].Script)
		}
	}

	blindingKey := b.wallet.BlindingPublicKey().SerializeCompressed()
	outputs := make([]psetv2.OutputArgs, 0, len(legs)+1)
	for _, leg := range legs {
		out := psetv2.OutputArgs{
			Asset:  leg.Asset,
			Amount: leg.Amount,
			Script: leg.Script,
		}
		if leg.Blind && !isBurn(leg.Script) {
			out.BlindingKey = blindingKey
		}
		outputs = append(outputs, out)
	}

	outputs = append(outputs, psetv2.OutputArgs{
		Asset:  baseAsset,
		Amount: skeleton.Fee,
	})
	return outputs, nil
}
