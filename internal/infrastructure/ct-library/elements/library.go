// Package elements implements the confidential transaction primitives on top
// of go-elements: unblinding, output blinding, finalization and proof and
// amount conservation checks.
package elements

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/bits"

	"github.com/ark-network/dcd/internal/core/ports"
	"github.com/btcsuite/btcd/btcutil/psbt"
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/go-elements/confidential"
	"github.com/vulpemventures/go-elements/elementsutil"
	"github.com/vulpemventures/go-elements/psetv2"
	"github.com/vulpemventures/go-elements/transaction"
)

var zeroBlinder = make([]byte, 32)

type library struct {
	wallet ports.WalletService
}

func NewConfidentialTxLibrary(wallet ports.WalletService) ports.ConfidentialTxLibrary {
	return &library{wallet}
}

// Unblind reveals amount and asset of out. Explicit outputs come back with
// zero blinders.
func (l *library) Unblind(out *transaction.TxOutput) (*ports.UnblindedOutput, error) {
	if out == nil {
		return nil, fmt.Errorf("missing output")
	}

	if !out.IsConfidential() {
		value, err := elementsutil.ValueFromBytes(out.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid explicit value: %s", err)
		}
		return &ports.UnblindedOutput{
			Value:        value,
			Asset:        elementsutil.AssetHashFromBytes(out.Asset),
			ValueBlinder: zeroBlinder,
			AssetBlinder: zeroBlinder,
		}, nil
	}

	revealed, err := confidential.UnblindOutputWithKey(
		out, l.wallet.BlindingPrivateKey().Serialize(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to unblind output: %s", err)
	}

	return &ports.UnblindedOutput{
		Value:        revealed.Value,
		Asset:        hex.EncodeToString(reverse(revealed.Asset)),
		ValueBlinder: revealed.ValueBlindingFactor,
		AssetBlinder: revealed.AssetBlindingFactor,
	}, nil
}

func (l *library) BlindAndFinalize(
	ptx *psetv2.Pset, inputs []ports.BlindingInput,
) (*transaction.Transaction, error) {
	if needsBlinding(ptx) {
		if err := l.blind(ptx, inputs); err != nil {
			return nil, fmt.Errorf("failed to blind outputs: %s", err)
		}
	}

	if err := l.wallet.SignInputs(ptx); err != nil {
		return nil, fmt.Errorf("failed to sign inputs: %s", err)
	}

	contractInputs := make(map[uint32]*ports.ContractSpend)
	for _, in := range inputs {
		if in.Contract != nil {
			contractInputs[in.Index] = in.Contract
		}
	}

	for i := range ptx.Inputs {
		if spend, ok := contractInputs[uint32(i)]; ok {
			witness := make([][]byte, 0, len(spend.Witness)+2)
			witness = append(witness, spend.Witness...)
			witness = append(witness, spend.LeafScript, spend.ControlBlock)

			var witnessBuf bytes.Buffer
			if err := psbt.WriteTxWitness(&witnessBuf, witness); err != nil {
				return nil, err
			}

			ptx.Inputs[i].FinalScriptWitness = witnessBuf.Bytes()
			continue
		}

		if err := psetv2.Finalize(ptx, i); err != nil {
			return nil, fmt.Errorf("failed to finalize input %d: %s", i, err)
		}
	}

	tx, err := psetv2.Extract(ptx)
	if err != nil {
		return nil, fmt.Errorf("failed to extract tx: %s", err)
	}
	return tx, nil
}

// VerifyAmountProofs checks the range and surjection proofs of every blinded
// output, then that for every asset the amounts spent plus the issued ones
// match the amounts of the outputs. Blinded outputs must be readable with the
// wallet blinding key.
func (l *library) VerifyAmountProofs(
	tx *transaction.Transaction, spent []*transaction.TxOutput,
) (bool, error) {
	if len(spent) != len(tx.Inputs) {
		return false, fmt.Errorf(
			"got %d spent outputs for %d inputs", len(spent), len(tx.Inputs),
		)
	}

	// Surjection domain: input assets first, then issued assets, in the
	// order the blinder uses.
	inAssets := make([][]byte, 0, len(tx.Inputs))
	inBlinders := make([][]byte, 0, len(tx.Inputs))
	issuedAssets := make([][]byte, 0)
	totalIn := make(map[string]uint64)
	totalOut := make(map[string]uint64)

	for i, in := range tx.Inputs {
		prevout, err := l.Unblind(spent[i])
		if err != nil {
			return false, fmt.Errorf("input %d: %s", i, err)
		}
		asset, err := assetBytes(prevout.Asset)
		if err != nil {
			return false, fmt.Errorf("input %d: %s", i, err)
		}
		inAssets = append(inAssets, asset)
		inBlinders = append(inBlinders, prevout.AssetBlinder)
		if err := addAmount(totalIn, prevout.Asset, prevout.Value); err != nil {
			return false, fmt.Errorf("input %d: %s", i, err)
		}

		if in.Issuance == nil {
			continue
		}
		issued, err := issuedAmounts(in)
		if err != nil {
			return false, fmt.Errorf("input %d: %s", i, err)
		}
		for _, amount := range issued {
			issuedAssets = append(issuedAssets, amount.asset)
			asset := hex.EncodeToString(reverse(amount.asset))
			if err := addAmount(totalIn, asset, amount.value); err != nil {
				return false, fmt.Errorf("input %d: %s", i, err)
			}
		}
	}

	for range issuedAssets {
		inBlinders = append(inBlinders, zeroBlinder)
	}
	inAssets = append(inAssets, issuedAssets...)

	for i, out := range tx.Outputs {
		if out.IsConfidential() {
			if !confidential.VerifyRangeProof(
				out.Value, out.Asset, out.Script, out.RangeProof,
			) {
				log.Debugf("output %d: invalid range proof", i)
				return false, nil
			}
		}

		revealed, err := l.Unblind(out)
		if err != nil {
			return false, fmt.Errorf("output %d: %s", i, err)
		}

		if out.IsConfidential() {
			asset, err := assetBytes(revealed.Asset)
			if err != nil {
				return false, fmt.Errorf("output %d: %s", i, err)
			}
			if !confidential.VerifySurjectionProof(confidential.VerifySurjectionProofArgs{
				InputAssets:               inAssets,
				InputAssetBlindingFactors: inBlinders,
				OutputAsset:               asset,
				OutputAssetBlindingFactor: revealed.AssetBlinder,
				Proof:                     out.SurjectionProof,
			}) {
				log.Debugf("output %d: invalid surjection proof", i)
				return false, nil
			}
		}

		if err := addAmount(totalOut, revealed.Asset, revealed.Value); err != nil {
			return false, fmt.Errorf("output %d: %s", i, err)
		}
	}

	if len(totalIn) != len(totalOut) {
		log.Debugf("asset sets differ: %d in, %d out", len(totalIn), len(totalOut))
		return false, nil
	}
	for asset, in := range totalIn {
		if out, ok := totalOut[asset]; !ok || out != in {
			log.Debugf("asset %s unbalanced: %d in, %d out", asset, in, out)
			return false, nil
		}
	}
	return true, nil
}

func (l *library) blind(ptx *psetv2.Pset, inputs []ports.BlindingInput) error {
	ownedInputs := make([]psetv2.OwnedInput, 0, len(inputs))
	for _, in := range inputs {
		ownedInputs = append(ownedInputs, psetv2.OwnedInput{
			Index:        in.Index,
			Value:        in.Utxo.Value,
			Asset:        in.Utxo.Asset,
			ValueBlinder: in.Utxo.ValueBlinder,
			AssetBlinder: in.Utxo.AssetBlinder,
		})
	}

	blindingKey := l.wallet.BlindingPrivateKey().Serialize()
	validator := confidential.NewZKPValidator()
	generator := confidential.NewZKPGeneratorFromBlindingKeys([][]byte{blindingKey}, nil)

	outBlindingArgs, err := generator.BlindOutputs(ptx, nil)
	if err != nil {
		return err
	}

	blinder, err := psetv2.NewBlinder(ptx, ownedInputs, validator, generator)
	if err != nil {
		return err
	}
	return blinder.BlindLast(nil, outBlindingArgs)
}

func needsBlinding(ptx *psetv2.Pset) bool {
	for _, out := range ptx.Outputs {
		if len(out.BlindingPubkey) > 0 {
			return true
		}
	}
	return false
}

type issuedAmount struct {
	asset []byte
	value uint64
}

// issuedAmounts returns the explicit amounts minted by the issuance of in,
// asset first and token after. Assets are in internal byte order.
func issuedAmounts(in *transaction.TxInput) ([]issuedAmount, error) {
	issuance := in.Issuance
	isReissuance := !bytes.Equal(issuance.AssetBlindingNonce, zeroBlinder) &&
		len(issuance.AssetBlindingNonce) > 0

	entropy := issuance.AssetEntropy
	if !isReissuance {
		var err error
		entropy, err = transaction.ComputeEntropy(in.Hash, in.Index, issuance.AssetEntropy)
		if err != nil {
			return nil, err
		}
	}

	amounts := make([]issuedAmount, 0, 2)

	if len(issuance.AssetAmount) > 1 {
		amount, err := elementsutil.ValueFromBytes(issuance.AssetAmount)
		if err != nil {
			return nil, fmt.Errorf("issuance amount must be explicit: %s", err)
		}
		asset, err := transaction.ComputeAsset(entropy)
		if err != nil {
			return nil, err
		}
		amounts = append(amounts, issuedAmount{asset, amount})
	}

	if !isReissuance && len(issuance.TokenAmount) > 1 {
		amount, err := elementsutil.ValueFromBytes(issuance.TokenAmount)
		if err != nil {
			return nil, fmt.Errorf("token amount must be explicit: %s", err)
		}
		token, err := transaction.ComputeReissuanceToken(entropy, 0)
		if err != nil {
			return nil, err
		}
		amounts = append(amounts, issuedAmount{token, amount})
	}

	return amounts, nil
}

func addAmount(totals map[string]uint64, asset string, value uint64) error {
	sum, carry := bits.Add64(totals[asset], value, 0)
	if carry != 0 {
		return fmt.Errorf("amount of asset %s overflows", asset)
	}
	totals[asset] = sum
	return nil
}

// assetBytes turns a display asset id into its internal byte order.
func assetBytes(asset string) ([]byte, error) {
	buf, err := hex.DecodeString(asset)
	if err != nil || len(buf) != 32 {
		return nil, fmt.Errorf("invalid asset %s", asset)
	}
	return reverse(buf), nil
}

func reverse(buf []byte) []byte {
	out := make([]byte, len(buf))
	for i := range buf {
		out[len(buf)-1-i] = buf[i]
	}
	return out
}
