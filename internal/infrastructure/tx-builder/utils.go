package txbuilder

import (
	"bytes"
	"fmt"

	"github.com/ark-network/dcd/internal/core/domain"
	"github.com/ark-network/dcd/internal/core/ports"
	"github.com/btcsuite/btcd/txscript"
	"github.com/vulpemventures/go-elements/psetv2"
)

// BurnScript is the script of the outputs that destroy tokens.
var BurnScript = []byte{txscript.OP_RETURN}

var zero32 = make([]byte, 32)

func isBurn(script []byte) bool {
	return len(script) > 0 && script[0] == txscript.OP_RETURN
}

func countBlinded(outs []ports.SkeletonOutput) int {
	count := 0
	for _, out := range outs {
		if out.Blind && !isBurn(out.Script) {
			count++
		}
	}
	return count
}

func hasConfidentialInputs(inputs []resolvedInput) bool {
	for _, in := range inputs {
		if !bytes.Equal(in.utxo.ValueBlinder, zero32) || !bytes.Equal(in.utxo.AssetBlinder, zero32) {
			return true
		}
	}
	return false
}

// balance tracks per-asset amounts, preserving the order assets are first
// seen in.
type balance struct {
	assets  []string
	amounts map[string]uint64
}

func newBalance() *balance {
	return &balance{amounts: make(map[string]uint64)}
}

func (b *balance) add(asset string, amount uint64) {
	if _, ok := b.amounts[asset]; !ok {
		b.assets = append(b.assets, asset)
	}
	b.amounts[asset] += amount
}

func (b *balance) sub(asset string, amount uint64) error {
	available := b.amounts[asset]
	if amount > available {
		return fmt.Errorf(
			"%w: need %d of asset %s, have %d",
			domain.ErrInsufficientFunds, amount, asset, available,
		)
	}
	b.amounts[asset] = available - amount
	return nil
}

type assetAmount struct {
	asset  string
	amount uint64
}

func issuedAssets(entropy domain.AssetEntropy) (assetID, tokenID string, err error) {
	if assetID, err = entropy.AssetID(); err != nil {
		return
	}
	tokenID, err = entropy.ReissuanceTokenID(false)
	return
}

// computeIssuances returns the assets created by the issuance inputs and the
// amounts they add to the transaction.
func computeIssuances(
	inputs []ports.SkeletonInput, resolved []resolvedInput,
) ([]ports.IssuanceResult, []assetAmount, error) {
	results := make([]ports.IssuanceResult, 0)
	amounts := make([]assetAmount, 0)

	for i, in := range inputs {
		if in.Issuance == nil {
			continue
		}

		var entropy domain.AssetEntropy
		if in.Issuance.IsReissuance() {
			entropy = *in.Issuance.Entropy
		} else {
			var err error
			if entropy, err = domain.NewIssuanceEntropy(in.Ref, in.Issuance.ContractHash); err != nil {
				return nil, nil, err
			}
		}

		assetID, tokenID, err := issuedAssets(entropy)
		if err != nil {
			return nil, nil, err
		}

		if in.Issuance.IsReissuance() {
			if resolved[i].utxo.Asset != tokenID {
				return nil, nil, fmt.Errorf(
					"%w: input %d must hold reissuance token %s",
					domain.ErrAssetRoleMismatch, i, tokenID,
				)
			}
			if bytes.Equal(resolved[i].utxo.AssetBlinder, zero32) {
				return nil, nil, fmt.Errorf("reissuance token of input %d must be confidential", i)
			}
		}

		results = append(results, ports.IssuanceResult{
			InputIndex: i,
			Entropy:    entropy,
			AssetID:    assetID,
			TokenID:    tokenID,
		})
		if in.Issuance.AssetAmount > 0 {
			amounts = append(amounts, assetAmount{assetID, in.Issuance.AssetAmount})
		}
		if !in.Issuance.IsReissuance() && in.Issuance.TokenAmount > 0 {
			amounts = append(amounts, assetAmount{tokenID, in.Issuance.TokenAmount})
		}
	}

	return results, amounts, nil
}

func addIssuance(ptx *psetv2.Pset, index int, issuance ports.Issuance, utxo *ports.UnblindedOutput) {
	ptx.Inputs[index].IssuanceValue = issuance.AssetAmount

	if issuance.IsReissuance() {
		ptx.Inputs[index].IssuanceAssetEntropy = issuance.Entropy.Bytes()
		ptx.Inputs[index].IssuanceBlindingNonce = utxo.AssetBlinder
		return
	}

	ptx.Inputs[index].IssuanceAssetEntropy = issuance.ContractHash
	ptx.Inputs[index].IssuanceBlindingNonce = zero32
	ptx.Inputs[index].IssuanceInflationKeys = issuance.TokenAmount
}
