package application

import (
	"time"

	"github.com/ark-network/dcd/internal/core/domain"
	"github.com/vulpemventures/go-elements/transaction"
)

// InitRequest creates a new contract. The three token asset ids and the
// collateral asset id of Params are filled in by the service.
type InitRequest struct {
	Params domain.ContractParameters
	Utxos  []domain.UtxoRef
	Fee    uint64
}

// StageRequest drives one stage of an existing contract. Params may be left
// nil to load them from the registry by ContractKey.
type StageRequest struct {
	ContractKey string
	Params      *domain.ContractParameters
	Utxos       []domain.UtxoRef
	Fee         uint64
	// Amount is the collateral deposit for TakerFund and the number of
	// tokens burned or returned for terminations and settlements.
	Amount uint64

	// oracle attestation, settlement stages only
	Price           uint64
	OracleSignature []byte

	// State is the contract state known by the caller. The zero value
	// stands for the state the stage normally starts from.
	State domain.State
	// Now and TipHeight default to the wall clock and the explorer tip.
	Now       time.Time
	TipHeight uint32
}

type StageResult struct {
	Stage       domain.Stage
	State       domain.State
	ContractKey string
	Tx          *transaction.Transaction
	Txid        string
	TxHex       string
	// Minted is set for the stages that issue new assets.
	Minted []MintedAsset
}

type MintedAsset struct {
	Name    string `json:"name"`
	Entropy string `json:"entropy"`
	AssetID string `json:"asset_id"`
	TokenID string `json:"token_id"`
}

type EntropyInfo struct {
	Name    string `json:"name"`
	Entropy string `json:"entropy"`
	AssetID string `json:"asset_id"`
}
