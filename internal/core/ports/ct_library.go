package ports

import (
	"github.com/vulpemventures/go-elements/psetv2"
	"github.com/vulpemventures/go-elements/transaction"
)

type UnblindedOutput struct {
	Value        uint64
	Asset        string
	ValueBlinder []byte
	AssetBlinder []byte
}

// BlindingInput is an input of the pset being finalized, with its revealed
// amount and the blinders to use for it. Explicit inputs use zero blinders.
type BlindingInput struct {
	Index    uint32
	Utxo     UnblindedOutput
	Contract *ContractSpend
}

type ConfidentialTxLibrary interface {
	Unblind(out *transaction.TxOutput) (*UnblindedOutput, error)
	BlindAndFinalize(ptx *psetv2.Pset, inputs []BlindingInput) (*transaction.Transaction, error)
	VerifyAmountProofs(tx *transaction.Transaction, spent []*transaction.TxOutput) (bool, error)
}
