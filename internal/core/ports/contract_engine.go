package ports

import (
	"github.com/ark-network/dcd/internal/core/domain"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Contract is the on-chain form of a parameter set owned by a key.
type Contract struct {
	Key    domain.ContractAddressKey
	Script []byte
}

// ContractSpend is what an input locked by a contract needs to be spent:
// the witness items pushed before the leaf script and control block.
type ContractSpend struct {
	Witness      [][]byte
	LeafScript   []byte
	ControlBlock []byte
}

// OracleWitness carries the oracle attestation for settlement spends. It is
// passed through as witness data and not checked here.
type OracleWitness struct {
	Price     uint64
	Signature []byte
}

type ContractEngine interface {
	DeriveContract(owner *secp256k1.PublicKey, params domain.ContractParameters) (*Contract, error)
	SpendPath(
		owner *secp256k1.PublicKey, params domain.ContractParameters,
		stage domain.Stage, oracle *OracleWitness,
	) (*ContractSpend, error)
	SettlementOutcome(params domain.ContractParameters, price uint64) domain.SettlementOutcome
}
