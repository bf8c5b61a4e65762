package application_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ark-network/dcd/internal/core/application"
	"github.com/ark-network/dcd/internal/core/domain"
	"github.com/ark-network/dcd/internal/core/ports"
	"github.com/ark-network/dcd/internal/infrastructure/contract-engine/commitment"
	badgerdb "github.com/ark-network/dcd/internal/infrastructure/db/badger"
	"github.com/ark-network/dcd/internal/infrastructure/wallet/singlekey"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/go-elements/network"
)

const (
	oracleKey       = "79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	fundingStart    = 1700000000
	fundingEnd      = 1700086400
	earlyTermEnd    = 1701000000
	settlementTip   = 2000000
	fee             = uint64(300)
	fakeTxid        = "abababababababababababababababababababababababababababababababab"
	fakeTxHex       = "0200000000"
	settlementAsset = "4444444444444444444444444444444444444444444444444444444444444444"
)

var (
	ctx         = context.Background()
	baseAsset   = network.Testnet.AssetID
	oracleSig   = bytes.Repeat([]byte{0x0f}, 64)
	burn        = []byte{0x6a}
	duringFund  = time.Unix(fundingStart+3600, 0)
	beforeEarly = time.Unix(earlyTermEnd-3600, 0)
)

type fixture struct {
	wallet   ports.WalletService
	engine   ports.ContractEngine
	registry ports.Registry
	builder  *mockedTxBuilder
	explorer *mockedExplorer
	svc      application.LifecycleService
}

func newFixture(t *testing.T) *fixture {
	wallet, err := singlekey.NewWalletService(bytes.Repeat([]byte{0x07}, 32), 0, &network.Testnet)
	require.NoError(t, err)
	registry, err := badgerdb.NewRegistry("", nil)
	require.NoError(t, err)
	t.Cleanup(registry.Close)

	engine := commitment.NewContractEngine(&network.Testnet)
	builder := &mockedTxBuilder{}
	explorer := &mockedExplorer{}

	return &fixture{
		wallet:   wallet,
		engine:   engine,
		registry: registry,
		builder:  builder,
		explorer: explorer,
		svc:      application.NewLifecycleService(wallet, engine, builder, registry, explorer),
	}
}

// captureBuild makes the next Build call succeed and records its skeleton.
func (f *fixture) captureBuild() *ports.Skeleton {
	skeleton := &ports.Skeleton{}
	f.builder.On("Build", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		*skeleton = args.Get(1).(ports.Skeleton)
	}).Return(&ports.BuildResult{Txid: fakeTxid, TxHex: fakeTxHex}, nil).Once()
	return skeleton
}

type initializedContract struct {
	key    string
	params domain.ContractParameters
	script []byte
	minted []application.MintedAsset
}

func (f *fixture) initContract(t *testing.T) initializedContract {
	f.captureBuild()
	res, err := f.svc.Init(ctx, application.InitRequest{
		Params: initParams(t),
		Utxos:  refs(0, 3),
		Fee:    fee,
	})
	require.NoError(t, err)

	buf, err := f.registry.GetContract(ctx, res.ContractKey)
	require.NoError(t, err)
	params, err := domain.DecodeContractParameters(buf)
	require.NoError(t, err)
	contract, err := f.engine.DeriveContract(f.wallet.PublicKey(), params)
	require.NoError(t, err)

	return initializedContract{res.ContractKey, params, contract.Script, res.Minted}
}

func initParams(t *testing.T) domain.ContractParameters {
	ratio, err := domain.NewRatioArguments(100000, 1000, 500, 2)
	require.NoError(t, err)

	return domain.ContractParameters{
		TakerFundingStartTime:   fundingStart,
		TakerFundingEndTime:     fundingEnd,
		ContractExpiryTime:      1702592000,
		EarlyTerminationEndTime: earlyTermEnd,
		SettlementHeight:        settlementTip,
		StrikePrice:             2,
		IncentiveBasisPoints:    500,
		SettlementAssetID:       settlementAsset,
		OraclePublicKey:         oracleKey,
		Ratio:                   ratio,
	}
}

func refs(from, count int) []domain.UtxoRef {
	list := make([]domain.UtxoRef, 0, count)
	for i := from; i < from+count; i++ {
		list = append(list, domain.UtxoRef{Txid: fmt.Sprintf("%064x", i+1), VOut: uint32(i)})
	}
	return list
}

type leg struct {
	asset  string
	amount uint64
	script []byte
}

func legsOf(skeleton *ports.Skeleton) []leg {
	legs := make([]leg, 0, len(skeleton.Outputs))
	for _, out := range skeleton.Outputs {
		legs = append(legs, leg{out.Asset, out.Amount, out.Script})
	}
	return legs
}

func TestInit(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		f := newFixture(t)
		skeleton := f.captureBuild()

		res, err := f.svc.Init(ctx, application.InitRequest{
			Params: initParams(t),
			Utxos:  refs(0, 3),
			Fee:    fee,
		})
		require.NoError(t, err)
		require.Equal(t, domain.Initialized, res.State)
		require.Equal(t, fakeTxid, res.Txid)
		require.Len(t, res.Minted, 3)

		key, err := domain.ParseContractAddressKey(res.ContractKey)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(key.Address, "tex1p"))

		buf, err := f.registry.GetContract(ctx, res.ContractKey)
		require.NoError(t, err)
		params, err := domain.DecodeContractParameters(buf)
		require.NoError(t, err)
		require.Equal(t, res.Minted[0].AssetID, params.FillerTokenAssetID)
		require.Equal(t, res.Minted[1].AssetID, params.GrantorCollateralTokenAssetID)
		require.Equal(t, res.Minted[2].AssetID, params.GrantorSettlementTokenAssetID)
		require.Equal(t, baseAsset, params.CollateralAssetID)

		contract, err := f.engine.DeriveContract(f.wallet.PublicKey(), params)
		require.NoError(t, err)
		require.Equal(t, res.ContractKey, contract.Key.String())

		require.Len(t, skeleton.Inputs, 3)
		for i, in := range skeleton.Inputs {
			require.Equal(t, refs(0, 3)[i], in.Ref)
			require.Equal(t, baseAsset, in.ExpectedAsset)
			require.Nil(t, in.Contract)
			require.NotNil(t, in.Issuance)
			require.False(t, in.Issuance.IsReissuance())
			require.Len(t, in.Issuance.ContractHash, 32)
			require.Zero(t, in.Issuance.AssetAmount)
			require.Equal(t, uint64(1), in.Issuance.TokenAmount)
		}
		require.Len(t, skeleton.Outputs, 3)
		for i, out := range skeleton.Outputs {
			require.Equal(t, res.Minted[i].TokenID, out.Asset)
			require.Equal(t, uint64(1), out.Amount)
			require.Equal(t, contract.Script, out.Script)
			require.True(t, out.Blind)
		}
		require.Equal(t, f.wallet.Script(), skeleton.DefaultChangeScript)
		require.Equal(t, fee, skeleton.Fee)

		for _, m := range res.Minted {
			require.True(t, strings.HasPrefix(m.Name, key.Commitment+"/"))
			entropy, err := f.registry.Get(ctx, m.Name)
			require.NoError(t, err)
			require.Equal(t, m.Entropy, entropy.String())
		}
	})

	t.Run("invalid", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Init(ctx, application.InitRequest{
			Params: initParams(t), Utxos: refs(0, 2), Fee: fee,
		})
		require.ErrorIs(t, err, domain.ErrInvalidUtxoCount)

		params := initParams(t)
		params.Ratio.TotalAssetAmount++
		_, err = f.svc.Init(ctx, application.InitRequest{
			Params: params, Utxos: refs(0, 3), Fee: fee,
		})
		require.ErrorIs(t, err, domain.ErrInvalidRatio)

		f.builder.AssertNotCalled(t, "Build", mock.Anything, mock.Anything)
	})

	t.Run("failed build persists nothing", func(t *testing.T) {
		f := newFixture(t)
		f.builder.On("Build", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: input 0", domain.ErrAssetRoleMismatch)).Once()

		_, err := f.svc.Init(ctx, application.InitRequest{
			Params: initParams(t), Utxos: refs(0, 3), Fee: fee,
		})
		require.ErrorIs(t, err, domain.ErrAssetRoleMismatch)

		entropies, err := f.registry.ListEntropies(ctx)
		require.NoError(t, err)
		require.Empty(t, entropies)
		contracts, err := f.registry.ListContracts(ctx)
		require.NoError(t, err)
		require.Empty(t, contracts)
	})
}

func TestMakerFund(t *testing.T) {
	f := newFixture(t)
	c := f.initContract(t)
	skeleton := f.captureBuild()

	res, err := f.svc.MakerFund(ctx, application.StageRequest{
		ContractKey: c.key,
		Utxos:       refs(10, 5),
		Fee:         fee,
	})
	require.NoError(t, err)
	require.Equal(t, domain.Funded, res.State)
	require.Equal(t, domain.StageMakerFund, res.Stage)

	require.Len(t, skeleton.Inputs, 5)
	for i := 0; i < 3; i++ {
		in := skeleton.Inputs[i]
		require.Equal(t, c.minted[i].TokenID, in.ExpectedAsset)
		require.NotNil(t, in.Contract)
		require.Empty(t, in.Contract.Witness)
		require.NotNil(t, in.Issuance)
		require.True(t, in.Issuance.IsReissuance())
		require.Equal(t, c.minted[i].Entropy, in.Issuance.Entropy.String())
		require.Equal(t, uint64(100), in.Issuance.AssetAmount)
	}
	require.Equal(t, settlementAsset, skeleton.Inputs[3].ExpectedAsset)
	require.Nil(t, skeleton.Inputs[3].Contract)
	require.Equal(t, baseAsset, skeleton.Inputs[4].ExpectedAsset)

	walletScript := f.wallet.Script()
	require.Equal(t, []leg{
		{c.params.FillerTokenAssetID, 100, c.script},
		{c.params.GrantorCollateralTokenAssetID, 100, walletScript},
		{c.params.GrantorSettlementTokenAssetID, 100, walletScript},
		{c.minted[0].TokenID, 1, c.script},
		{c.minted[1].TokenID, 1, c.script},
		{c.minted[2].TokenID, 1, c.script},
		{settlementAsset, 210000, c.script},
		{baseAsset, 5000, c.script},
	}, legsOf(skeleton))
	for i, out := range skeleton.Outputs {
		require.Equal(t, i >= 3 && i < 6, out.Blind)
	}
}

func TestTakerFund(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		f := newFixture(t)
		c := f.initContract(t)
		skeleton := f.captureBuild()

		res, err := f.svc.TakerFund(ctx, application.StageRequest{
			ContractKey: c.key,
			Utxos:       refs(10, 2),
			Amount:      10000,
			Fee:         fee,
			Now:         duringFund,
		})
		require.NoError(t, err)
		require.Equal(t, domain.Funded, res.State)

		filler := skeleton.Inputs[0]
		require.Equal(t, c.params.FillerTokenAssetID, filler.ExpectedAsset)
		require.NotNil(t, filler.Contract)
		require.Equal(t, &ports.Remainder{Script: c.script, Spent: 10}, filler.Remainder)
		require.Equal(t, baseAsset, skeleton.Inputs[1].ExpectedAsset)
		require.Nil(t, skeleton.Inputs[1].Contract)

		require.Equal(t, []leg{
			{c.params.FillerTokenAssetID, 10, f.wallet.Script()},
			{baseAsset, 10000, c.script},
		}, legsOf(skeleton))
	})

	t.Run("invalid", func(t *testing.T) {
		f := newFixture(t)
		c := f.initContract(t)

		fixtures := []struct {
			name        string
			utxos       int
			amount      uint64
			now         time.Time
			state       domain.State
			expectedErr error
		}{
			{"wrong utxo count", 3, 10000, duringFund, 0, domain.ErrInvalidUtxoCount},
			{"not a multiple of filler ratio", 2, 1500, duringFund, 0, domain.ErrInvalidRatio},
			{"zero deposit", 2, 0, duringFund, 0, domain.ErrInvalidRatio},
			{"before window", 2, 10000, time.Unix(fundingStart-1, 0), 0, domain.ErrOutsideFundingWindow},
			{"after window", 2, 10000, time.Unix(fundingEnd+1, 0), 0, domain.ErrOutsideFundingWindow},
			{"already settled", 2, 10000, duringFund, domain.Settled, domain.ErrIllegalTransition},
		}

		for _, tt := range fixtures {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.svc.TakerFund(ctx, application.StageRequest{
					ContractKey: c.key,
					Utxos:       refs(10, tt.utxos),
					Amount:      tt.amount,
					Fee:         fee,
					Now:         tt.now,
					State:       tt.state,
				})
				require.ErrorIs(t, err, tt.expectedErr)
			})
		}

		// only the init transaction was built
		f.builder.AssertNumberOfCalls(t, "Build", 1)
	})
}

func TestTerminations(t *testing.T) {
	f := newFixture(t)
	c := f.initContract(t)
	walletScript := f.wallet.Script()

	type stageFn func(context.Context, application.StageRequest) (*application.StageResult, error)

	fixtures := []struct {
		name          string
		run           stageFn
		tokenAsset    string
		lockedAsset   string
		payout        uint64
		tokenToScript []byte
	}{
		{
			"maker collateral", f.svc.MakerTerminateCollateral,
			c.params.GrantorCollateralTokenAssetID, baseAsset, 500, burn,
		},
		{
			"maker settlement", f.svc.MakerTerminateSettlement,
			c.params.GrantorSettlementTokenAssetID, settlementAsset, 21000, burn,
		},
		{
			"taker early", f.svc.TakerTerminateEarly,
			c.params.FillerTokenAssetID, baseAsset, 10000, c.script,
		},
	}

	for _, tt := range fixtures {
		t.Run(tt.name, func(t *testing.T) {
			skeleton := f.captureBuild()

			res, err := tt.run(ctx, application.StageRequest{
				ContractKey: c.key,
				Utxos:       refs(10, 3),
				Amount:      10,
				Fee:         fee,
				Now:         beforeEarly,
			})
			require.NoError(t, err)
			require.Equal(t, domain.EarlyTerminated, res.State)

			require.Equal(t, tt.tokenAsset, skeleton.Inputs[0].ExpectedAsset)
			require.Nil(t, skeleton.Inputs[0].Contract)
			locked := skeleton.Inputs[1]
			require.Equal(t, tt.lockedAsset, locked.ExpectedAsset)
			require.NotNil(t, locked.Contract)
			require.Equal(t, &ports.Remainder{Script: c.script, Spent: tt.payout}, locked.Remainder)
			require.Equal(t, baseAsset, skeleton.Inputs[2].ExpectedAsset)

			require.Equal(t, []leg{
				{tt.tokenAsset, 10, tt.tokenToScript},
				{tt.lockedAsset, tt.payout, walletScript},
			}, legsOf(skeleton))
		})

		t.Run(tt.name+" after deadline", func(t *testing.T) {
			_, err := tt.run(ctx, application.StageRequest{
				ContractKey: c.key,
				Utxos:       refs(10, 3),
				Amount:      10,
				Fee:         fee,
				Now:         time.Unix(earlyTermEnd, 0),
			})
			require.ErrorIs(t, err, domain.ErrEarlyTerminationClosed)
		})

		t.Run(tt.name+" repeated", func(t *testing.T) {
			f.captureBuild()
			res, err := tt.run(ctx, application.StageRequest{
				ContractKey: c.key,
				Utxos:       refs(10, 3),
				Amount:      1,
				Fee:         fee,
				Now:         beforeEarly,
				State:       domain.EarlyTerminated,
			})
			require.NoError(t, err)
			require.Equal(t, domain.EarlyTerminated, res.State)
		})
	}
}

func TestSettlements(t *testing.T) {
	f := newFixture(t)
	c := f.initContract(t)
	walletScript := f.wallet.Script()

	t.Run("maker", func(t *testing.T) {
		fixtures := []struct {
			name   string
			price  uint64
			asset  string
			payout uint64
		}{
			{"price above strike", 3, baseAsset, 10500},
			{"price at strike", 2, baseAsset, 10500},
			{"price below strike", 1, settlementAsset, 21000},
		}

		for _, tt := range fixtures {
			t.Run(tt.name, func(t *testing.T) {
				skeleton := f.captureBuild()

				res, err := f.svc.MakerSettle(ctx, application.StageRequest{
					ContractKey:     c.key,
					Utxos:           refs(10, 4),
					Amount:          10,
					Fee:             fee,
					Price:           tt.price,
					OracleSignature: oracleSig,
					TipHeight:       settlementTip,
				})
				require.NoError(t, err)
				require.Equal(t, domain.Settled, res.State)

				payout := skeleton.Inputs[3]
				require.Equal(t, tt.asset, payout.ExpectedAsset)
				require.NotNil(t, payout.Contract)
				require.Len(t, payout.Contract.Witness, 2)
				require.Equal(t, oracleSig, payout.Contract.Witness[1])
				require.Equal(t, &ports.Remainder{Script: c.script, Spent: tt.payout}, payout.Remainder)

				require.Equal(t, []leg{
					{c.params.GrantorCollateralTokenAssetID, 10, burn},
					{c.params.GrantorSettlementTokenAssetID, 10, burn},
					{tt.asset, tt.payout, walletScript},
				}, legsOf(skeleton))
			})
		}
	})

	t.Run("taker", func(t *testing.T) {
		fixtures := []struct {
			name   string
			price  uint64
			asset  string
			payout uint64
		}{
			{"price above strike", 3, settlementAsset, 21000},
			{"price below strike", 1, baseAsset, 10500},
		}

		for _, tt := range fixtures {
			t.Run(tt.name, func(t *testing.T) {
				skeleton := f.captureBuild()

				_, err := f.svc.TakerSettle(ctx, application.StageRequest{
					ContractKey:     c.key,
					Utxos:           refs(10, 3),
					Amount:          10,
					Fee:             fee,
					Price:           tt.price,
					OracleSignature: oracleSig,
					TipHeight:       settlementTip + 10,
				})
				require.NoError(t, err)

				require.Equal(t, c.params.FillerTokenAssetID, skeleton.Inputs[0].ExpectedAsset)
				require.Equal(t, tt.asset, skeleton.Inputs[1].ExpectedAsset)
				require.NotNil(t, skeleton.Inputs[1].Contract)
				require.Equal(t, baseAsset, skeleton.Inputs[2].ExpectedAsset)

				require.Equal(t, []leg{
					{c.params.FillerTokenAssetID, 10, burn},
					{tt.asset, tt.payout, walletScript},
				}, legsOf(skeleton))
			})
		}
	})

	t.Run("tip from explorer", func(t *testing.T) {
		f.explorer.On("GetTipHeight", mock.Anything).Return(uint32(settlementTip-1), nil).Once()

		_, err := f.svc.TakerSettle(ctx, application.StageRequest{
			ContractKey:     c.key,
			Utxos:           refs(10, 3),
			Amount:          10,
			Fee:             fee,
			Price:           3,
			OracleSignature: oracleSig,
		})
		require.ErrorIs(t, err, domain.ErrSettlementNotReached)

		f.explorer.On("GetTipHeight", mock.Anything).Return(uint32(settlementTip), nil).Once()
		f.captureBuild()

		_, err = f.svc.TakerSettle(ctx, application.StageRequest{
			ContractKey:     c.key,
			Utxos:           refs(10, 3),
			Amount:          10,
			Fee:             fee,
			Price:           3,
			OracleSignature: oracleSig,
		})
		require.NoError(t, err)
		f.explorer.AssertNumberOfCalls(t, "GetTipHeight", 2)
	})
}

func TestContractKeyChecks(t *testing.T) {
	f := newFixture(t)
	c := f.initContract(t)

	otherParams := c.params
	otherParams.SettlementHeight++

	unknownKey, err := f.engine.DeriveContract(f.wallet.PublicKey(), otherParams)
	require.NoError(t, err)

	fixtures := []struct {
		name        string
		key         string
		params      *domain.ContractParameters
		expectedErr error
	}{
		{"params do not match key", c.key, &otherParams, domain.ErrContractKeyMismatch},
		{"malformed key", "not-a-key", nil, domain.ErrMalformedContractKey},
		{"unknown contract", unknownKey.Key.String(), nil, domain.ErrNotFound},
	}

	for _, tt := range fixtures {
		t.Run(tt.name, func(t *testing.T) {
			// no tip height given: a late key check would hit the explorer
			_, err := f.svc.MakerSettle(ctx, application.StageRequest{
				ContractKey:     tt.key,
				Params:          tt.params,
				Utxos:           refs(10, 4),
				Amount:          10,
				Fee:             fee,
				Price:           3,
				OracleSignature: oracleSig,
			})
			require.ErrorIs(t, err, tt.expectedErr)
		})
	}

	f.explorer.AssertNotCalled(t, "GetTipHeight", mock.Anything)
	f.builder.AssertNumberOfCalls(t, "Build", 1)
}

func TestBuildErrorsArePropagated(t *testing.T) {
	f := newFixture(t)
	c := f.initContract(t)

	f.builder.On("Build", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: input 1", domain.ErrAssetRoleMismatch)).Once()

	_, err := f.svc.TakerFund(ctx, application.StageRequest{
		ContractKey: c.key,
		Utxos:       refs(10, 2),
		Amount:      10000,
		Fee:         fee,
		Now:         duringFund,
	})
	require.ErrorIs(t, err, domain.ErrAssetRoleMismatch)
}

func TestBroadcast(t *testing.T) {
	f := newFixture(t)
	f.explorer.On("Broadcast", mock.Anything, fakeTxHex).Return(fakeTxid, nil)

	txid, err := f.svc.Broadcast(ctx, fakeTxHex)
	require.NoError(t, err)
	require.Equal(t, fakeTxid, txid)
}
