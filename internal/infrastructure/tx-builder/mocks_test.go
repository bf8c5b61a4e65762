package txbuilder_test

import (
	"context"

	"github.com/ark-network/dcd/internal/core/domain"
	"github.com/ark-network/dcd/internal/core/ports"
	"github.com/stretchr/testify/mock"
	"github.com/vulpemventures/go-elements/psetv2"
	"github.com/vulpemventures/go-elements/transaction"
)

type mockedExplorer struct {
	mock.Mock
}

func (m *mockedExplorer) FetchUtxo(
	ctx context.Context, ref domain.UtxoRef,
) (*transaction.TxOutput, error) {
	args := m.Called(ctx, ref)

	var res *transaction.TxOutput
	if a := args.Get(0); a != nil {
		res = a.(*transaction.TxOutput)
	}
	return res, args.Error(1)
}

func (m *mockedExplorer) Broadcast(ctx context.Context, txHex string) (string, error) {
	args := m.Called(ctx, txHex)
	return args.String(0), args.Error(1)
}

func (m *mockedExplorer) GetTipHeight(ctx context.Context) (uint32, error) {
	args := m.Called(ctx)

	var res uint32
	if a := args.Get(0); a != nil {
		res = a.(uint32)
	}
	return res, args.Error(1)
}

type mockedCtLibrary struct {
	mock.Mock
}

func (m *mockedCtLibrary) Unblind(out *transaction.TxOutput) (*ports.UnblindedOutput, error) {
	args := m.Called(out)

	var res *ports.UnblindedOutput
	if a := args.Get(0); a != nil {
		res = a.(*ports.UnblindedOutput)
	}
	return res, args.Error(1)
}

func (m *mockedCtLibrary) BlindAndFinalize(
	ptx *psetv2.Pset, inputs []ports.BlindingInput,
) (*transaction.Transaction, error) {
	args := m.Called(ptx, inputs)

	var res *transaction.Transaction
	if a := args.Get(0); a != nil {
		res = a.(*transaction.Transaction)
	}
	return res, args.Error(1)
}

func (m *mockedCtLibrary) VerifyAmountProofs(
	tx *transaction.Transaction, spent []*transaction.TxOutput,
) (bool, error) {
	args := m.Called(tx, spent)
	return args.Bool(0), args.Error(1)
}
