package singlekey

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ark-network/dcd/internal/core/ports"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/txscript"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/vulpemventures/go-elements/network"
	"github.com/vulpemventures/go-elements/payment"
	"github.com/vulpemventures/go-elements/psetv2"
)

const SeedSize = 32

var (
	// blindingSecret is shared by every participant so that outputs locked
	// by a contract can be unblinded by both counterparties.
	blindingSecret = bytes.Repeat([]byte{0x01}, 32)
	// OracleTestSecret is the oracle key used on test networks.
	OracleTestSecret = bytes.Repeat([]byte{0x02}, 32)
)

type wallet struct {
	net         *network.Network
	privateKey  *secp256k1.PrivateKey
	blindingKey *secp256k1.PrivateKey
	script      []byte
}

// NewWalletService returns the wallet of the given account index. The
// account key is the seed with the big-endian index xored into bytes 24..28.
func NewWalletService(
	seed []byte, accountIndex uint32, net *network.Network,
) (ports.WalletService, error) {
	key, err := DeriveAccountKey(seed, accountIndex)
	if err != nil {
		return nil, err
	}

	p2wpkh := payment.FromPublicKey(key.PubKey(), net, nil)

	return &wallet{
		net:         net,
		privateKey:  key,
		blindingKey: secp256k1.PrivKeyFromBytes(blindingSecret),
		script:      p2wpkh.WitnessScript,
	}, nil
}

func DeriveAccountKey(seed []byte, accountIndex uint32) (*secp256k1.PrivateKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("invalid seed length: got %d, expected %d", len(seed), SeedSize)
	}

	derived := append([]byte{}, seed...)
	index := binary.BigEndian.AppendUint32(nil, accountIndex)
	for i, b := range index {
		derived[24+i] ^= b
	}

	key := secp256k1.PrivKeyFromBytes(derived)
	if key.Key.IsZero() {
		return nil, fmt.Errorf("derived key for account %d is invalid", accountIndex)
	}
	return key, nil
}

func (w *wallet) Network() *network.Network {
	return w.net
}

func (w *wallet) PublicKey() *secp256k1.PublicKey {
	return w.privateKey.PubKey()
}

func (w *wallet) Script() []byte {
	return w.script
}

func (w *wallet) Address() (string, error) {
	return payment.FromPublicKey(w.privateKey.PubKey(), w.net, nil).WitnessPubKeyHash()
}

func (w *wallet) BlindingPublicKey() *secp256k1.PublicKey {
	return w.blindingKey.PubKey()
}

func (w *wallet) BlindingPrivateKey() *secp256k1.PrivateKey {
	return w.blindingKey
}

func (w *wallet) SignInputs(ptx *psetv2.Pset) error {
	utx, err := ptx.UnsignedTx()
	if err != nil {
		return err
	}

	signer, err := psetv2.NewSigner(ptx)
	if err != nil {
		return err
	}

	serializedPubKey := w.privateKey.PubKey().SerializeCompressed()

	for i, input := range ptx.Inputs {
		prevout := input.GetUtxo()
		if prevout == nil || !bytes.Equal(prevout.Script, w.script) {
			continue
		}

		p, err := payment.FromScript(prevout.Script, w.net, nil)
		if err != nil {
			return err
		}

		preimage := utx.HashForWitnessV0(
			i, p.Script, prevout.Value, txscript.SigHashAll,
		)

		sig := ecdsa.Sign(w.privateKey, preimage[:])

		signatureWithSighashType := append(
			sig.Serialize(), byte(txscript.SigHashAll),
		)

		if err := signer.SignInput(
			i, signatureWithSighashType, serializedPubKey, nil, nil,
		); err != nil {
			return fmt.Errorf("failed to sign input %d: %w", i, err)
		}
	}

	return nil
}
