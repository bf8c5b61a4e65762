// Package commitment implements a contract engine that locks contract funds
// in a taproot output committing to the owner key and the encoded contract
// parameters. It has one tapscript leaf for the funding, termination and init
// paths and one for the settlement path, which consumes the oracle price and
// signature.
package commitment

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/ark-network/dcd/internal/core/domain"
	"github.com/ark-network/dcd/internal/core/ports"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/vulpemventures/go-elements/network"
	"github.com/vulpemventures/go-elements/payment"
	"github.com/vulpemventures/go-elements/psetv2"
	"github.com/vulpemventures/go-elements/taproot"
)

var (
	commitmentTag = []byte("dcd/commitment")

	unspendablePoint = []byte{
		0x02, 0x50, 0x92, 0x9b, 0x74, 0xc1, 0xa0, 0x49, 0x54, 0xb7, 0x8b, 0x4b, 0x60, 0x35, 0xe9, 0x7a,
		0x5e, 0x07, 0x8a, 0x5a, 0x0f, 0x28, 0xec, 0x96, 0xd5, 0x47, 0xbf, 0xee, 0x9a, 0xce, 0x80, 0x3a, 0xc0,
	}
)

type engine struct {
	net *network.Network
}

func NewContractEngine(net *network.Network) ports.ContractEngine {
	return &engine{net}
}

func UnspendableKey() *secp256k1.PublicKey {
	key, _ := secp256k1.ParsePubKey(unspendablePoint)
	return key
}

func (e *engine) DeriveContract(
	owner *secp256k1.PublicKey, params domain.ContractParameters,
) (*ports.Contract, error) {
	c, err := e.commit(owner, params)
	if err != nil {
		return nil, err
	}

	tapTree, err := c.tree()
	if err != nil {
		return nil, err
	}

	root := tapTree.RootNode.TapHash()
	taprootKey := taproot.ComputeTaprootOutputKey(UnspendableKey(), root[:])

	p2tr, err := payment.FromTweakedKey(taprootKey, e.net, nil)
	if err != nil {
		return nil, err
	}
	addr, err := p2tr.TaprootAddress()
	if err != nil {
		return nil, err
	}

	script, err := taprootOutputScript(taprootKey)
	if err != nil {
		return nil, err
	}

	return &ports.Contract{
		Key: domain.ContractAddressKey{
			OwnerKey:   hex.EncodeToString(schnorr.SerializePubKey(owner)),
			Commitment: hex.EncodeToString(c.hash),
			Address:    addr,
		},
		Script: script,
	}, nil
}

func (e *engine) SpendPath(
	owner *secp256k1.PublicKey, params domain.ContractParameters,
	stage domain.Stage, oracle *ports.OracleWitness,
) (*ports.ContractSpend, error) {
	c, err := e.commit(owner, params)
	if err != nil {
		return nil, err
	}

	witness := make([][]byte, 0)
	leaf, err := c.pathLeaf()
	if stage == domain.StageMakerSettle || stage == domain.StageTakerSettle {
		if oracle == nil {
			return nil, fmt.Errorf("%s requires oracle price and signature", stage)
		}
		leaf, err = c.settlementLeaf()
		witness = append(
			witness, binary.LittleEndian.AppendUint64(nil, oracle.Price), oracle.Signature,
		)
	}
	if err != nil {
		return nil, err
	}

	tapTree, err := c.tree()
	if err != nil {
		return nil, err
	}

	proofIndex, ok := tapTree.LeafProofIndex[leaf.TapHash()]
	if !ok {
		return nil, fmt.Errorf("leaf not found in contract tree")
	}
	proof := tapTree.LeafMerkleProofs[proofIndex]
	tapLeaf := psetv2.NewTapLeafScript(proof, UnspendableKey())

	controlBlock, err := tapLeaf.ControlBlock.ToBytes()
	if err != nil {
		return nil, err
	}

	return &ports.ContractSpend{
		Witness:      witness,
		LeafScript:   tapLeaf.Script,
		ControlBlock: controlBlock,
	}, nil
}

// SettlementOutcome pays the taker in the settlement asset when the oracle
// price is at or above the strike, in collateral otherwise.
func (e *engine) SettlementOutcome(
	params domain.ContractParameters, price uint64,
) domain.SettlementOutcome {
	if price >= params.StrikePrice {
		return domain.TakerReceivesSettlementAsset
	}
	return domain.TakerReceivesCollateral
}

type commitment struct {
	hash []byte
}

func (e *engine) commit(
	owner *secp256k1.PublicKey, params domain.ContractParameters,
) (*commitment, error) {
	if owner == nil {
		return nil, fmt.Errorf("missing contract owner key")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	encoded, err := params.Encode()
	if err != nil {
		return nil, err
	}

	hash := chainhash.TaggedHash(commitmentTag, schnorr.SerializePubKey(owner), encoded)
	return &commitment{hash[:]}, nil
}

func (c *commitment) pathLeaf() (*taproot.TapElementsLeaf, error) {
	script, err := txscript.NewScriptBuilder().
		AddData(c.hash).AddOp(txscript.OP_DROP).AddOp(txscript.OP_TRUE).Script()
	if err != nil {
		return nil, err
	}
	leaf := taproot.NewBaseTapElementsLeaf(script)
	return &leaf, nil
}

func (c *commitment) settlementLeaf() (*taproot.TapElementsLeaf, error) {
	script, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_2DROP).
		AddData(c.hash).AddOp(txscript.OP_DROP).AddOp(txscript.OP_TRUE).Script()
	if err != nil {
		return nil, err
	}
	leaf := taproot.NewBaseTapElementsLeaf(script)
	return &leaf, nil
}

func (c *commitment) tree() (*taproot.IndexedElementsTapScriptTree, error) {
	pathLeaf, err := c.pathLeaf()
	if err != nil {
		return nil, err
	}
	settlementLeaf, err := c.settlementLeaf()
	if err != nil {
		return nil, err
	}
	return taproot.AssembleTaprootScriptTree(*pathLeaf, *settlementLeaf), nil
}

func taprootOutputScript(taprootKey *secp256k1.PublicKey) ([]byte, error) {
	return txscript.NewScriptBuilder().AddOp(txscript.OP_1).AddData(schnorr.SerializePubKey(taprootKey)).Script()
}
