package application_test

import (
	"context"

	"github.com/ark-network/dcd/internal/core/domain"
	"github.com/ark-network/dcd/internal/core/ports"
	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/mock"
	"github.com/vulpemventures/go-elements/transaction"
)

type mockedTxBuilder struct {
	mock.Mock
}

func (m *mockedTxBuilder) Build(
	ctx context.Context, skeleton ports.Skeleton,
) (*ports.BuildResult, error) {
	args := m.Called(ctx, skeleton)

	var res *ports.BuildResult
	if a := args.Get(0); a != nil {
		res = a.(*ports.BuildResult)
	}
	return res, args.Error(1)
}

func (m *mockedTxBuilder) Split(
	ctx context.Context, req ports.SplitRequest,
) (*ports.BuildResult, error) {
	args := m.Called(ctx, req)

	var res *ports.BuildResult
	if a := args.Get(0); a != nil {
		res = a.(*ports.BuildResult)
	}
	return res, args.Error(1)
}

func (m *mockedTxBuilder) Issue(
	ctx context.Context, req ports.IssueRequest,
) (*ports.BuildResult, error) {
	args := m.Called(ctx, req)

	var res *ports.BuildResult
	if a := args.Get(0); a != nil {
		res = a.(*ports.BuildResult)
	}
	return res, args.Error(1)
}

func (m *mockedTxBuilder) Reissue(
	ctx context.Context, req ports.ReissueRequest,
) (*ports.BuildResult, error) {
	args := m.Called(ctx, req)

	var res *ports.BuildResult
	if a := args.Get(0); a != nil {
		res = a.(*ports.BuildResult)
	}
	return res, args.Error(1)
}

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

type mockedRelay struct {
	mock.Mock
}

func (m *mockedRelay) PublicKey() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *mockedRelay) Publish(ctx context.Context, ev *nostr.Event) (string, error) {
	args := m.Called(ctx, ev)
	return args.String(0), args.Error(1)
}

func (m *mockedRelay) Query(ctx context.Context, filter nostr.Filter) ([]*nostr.Event, error) {
	args := m.Called(ctx, filter)

	var res []*nostr.Event
	if a := args.Get(0); a != nil {
		res = a.([]*nostr.Event)
	}
	return res, args.Error(1)
}

func (m *mockedRelay) Subscribe(
	ctx context.Context, filter nostr.Filter,
) (<-chan *nostr.Event, error) {
	args := m.Called(ctx, filter)

	var res <-chan *nostr.Event
	if a := args.Get(0); a != nil {
		res = a.(<-chan *nostr.Event)
	}
	return res, args.Error(1)
}

func (m *mockedRelay) Close() {
	m.Called()
}
