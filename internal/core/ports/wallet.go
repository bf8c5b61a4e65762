package ports

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/vulpemventures/go-elements/network"
	"github.com/vulpemventures/go-elements/psetv2"
)

// WalletService is the single-key wallet of one account index.
type WalletService interface {
	Network() *network.Network
	PublicKey() *secp256k1.PublicKey
	Script() []byte
	Address() (string, error)
	BlindingPublicKey() *secp256k1.PublicKey
	BlindingPrivateKey() *secp256k1.PrivateKey
	// SignInputs signs every input of the pset locked by the wallet script.
	SignInputs(ptx *psetv2.Pset) error
}
