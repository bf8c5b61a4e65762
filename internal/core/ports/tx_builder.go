package ports

import (
	"context"

	"github.com/ark-network/dcd/internal/core/domain"
	"github.com/vulpemventures/go-elements/transaction"
)

// TxBuilder assembles balanced transactions from an ordered list of inputs
// and the outputs a stage requires. Change and fee outputs are added by the
// builder.
type TxBuilder interface {
	Build(ctx context.Context, skeleton Skeleton) (*BuildResult, error)
	Split(ctx context.Context, req SplitRequest) (*BuildResult, error)
	Issue(ctx context.Context, req IssueRequest) (*BuildResult, error)
	Reissue(ctx context.Context, req ReissueRequest) (*BuildResult, error)
}

// Issuance attaches a new issuance (ContractHash set) or a reissuance
// (Entropy set) to an input.
type Issuance struct {
	ContractHash []byte
	Entropy      *domain.AssetEntropy
	AssetAmount  uint64
	TokenAmount  uint64
}

func (i Issuance) IsReissuance() bool {
	return i.Entropy != nil
}

type SkeletonInput struct {
	Ref domain.UtxoRef
	// ExpectedAsset, when set, is checked against the resolved utxo.
	ExpectedAsset string
	// Contract is nil for inputs owned by the wallet key.
	Contract *ContractSpend
	Issuance *Issuance
	// Remainder, when set, sends what is left of the input after Spent is
	// paid out of it back to Script, in the input's asset.
	Remainder *Remainder
}

type Remainder struct {
	Script []byte
	Spent  uint64
}

type SkeletonOutput struct {
	Asset  string
	Amount uint64
	Script []byte
	Blind  bool
}

type Skeleton struct {
	Stage   domain.Stage
	Inputs  []SkeletonInput
	Outputs []SkeletonOutput
	// ChangeScripts overrides where the change of an asset goes.
	ChangeScripts       map[string][]byte
	DefaultChangeScript []byte
	// ExplicitChange keeps change and remainder outputs unblinded, whatever
	// the inputs and the other outputs are.
	ExplicitChange bool
	Fee            uint64
}

type SplitRequest struct {
	Utxo   domain.UtxoRef
	Parts  uint64
	Fee    uint64
	Script []byte
}

type IssueRequest struct {
	Utxo        domain.UtxoRef
	AssetAmount uint64
	Fee         uint64
	Script      []byte
}

type ReissueRequest struct {
	TokenUtxo   domain.UtxoRef
	FeeUtxo     domain.UtxoRef
	Entropy     domain.AssetEntropy
	AssetAmount uint64
	Fee         uint64
	Script      []byte
}

// IssuanceResult describes the assets created by one issuance input.
type IssuanceResult struct {
	InputIndex int
	Entropy    domain.AssetEntropy
	AssetID    string
	TokenID    string
}

type BuildResult struct {
	Tx        *transaction.Transaction
	Txid      string
	TxHex     string
	Issuances []IssuanceResult
}
