package commitment_test

import (
	"encoding/binary"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/ark-network/dcd/internal/core/domain"
	"github.com/ark-network/dcd/internal/core/ports"
	"github.com/ark-network/dcd/internal/infrastructure/contract-engine/commitment"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/go-elements/network"
)

const (
	oracleKey   = "79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	testnetLbtc = "144c654344aa716d6f3abcc1ca90e5641e4e2a7f633bc09fe3baf64585819a49"
)

func testParams(t *testing.T) domain.ContractParameters {
	ratio, err := domain.NewRatioArguments(100000, 1000, 500, 2)
	require.NoError(t, err)

	return domain.ContractParameters{
		TakerFundingStartTime:         1700000000,
		TakerFundingEndTime:           1700086400,
		ContractExpiryTime:            1702592000,
		EarlyTerminationEndTime:       1701000000,
		SettlementHeight:              2000000,
		StrikePrice:                   2,
		IncentiveBasisPoints:          500,
		FillerTokenAssetID:            strings.Repeat("11", 32),
		GrantorCollateralTokenAssetID: strings.Repeat("22", 32),
		GrantorSettlementTokenAssetID: strings.Repeat("33", 32),
		SettlementAssetID:             strings.Repeat("44", 32),
		CollateralAssetID:             testnetLbtc,
		OraclePublicKey:               oracleKey,
		Ratio:                         ratio,
	}
}

func ownerKey(b byte) *secp256k1.PublicKey {
	secret := make([]byte, 32)
	for i := range secret {
		secret[i] = b
	}
	return secp256k1.PrivKeyFromBytes(secret).PubKey()
}

func TestDeriveContract(t *testing.T) {
	engine := commitment.NewContractEngine(&network.Testnet)
	params := testParams(t)

	t.Run("deterministic", func(t *testing.T) {
		c1, err := engine.DeriveContract(ownerKey(3), params)
		require.NoError(t, err)
		c2, err := engine.DeriveContract(ownerKey(3), params)
		require.NoError(t, err)

		require.Equal(t, c1.Key.String(), c2.Key.String())
		require.Equal(t, c1.Script, c2.Script)
		require.Len(t, c1.Script, 34)
		require.Equal(t, byte(0x51), c1.Script[0])
		require.Equal(t, hex.EncodeToString(schnorr.SerializePubKey(ownerKey(3))), c1.Key.OwnerKey)
		require.True(t, strings.HasPrefix(c1.Key.Address, "tex1p"))

		parsed, err := domain.ParseContractAddressKey(c1.Key.String())
		require.NoError(t, err)
		require.Equal(t, c1.Key, parsed)
	})

	t.Run("depends on owner and params", func(t *testing.T) {
		c1, err := engine.DeriveContract(ownerKey(3), params)
		require.NoError(t, err)

		c2, err := engine.DeriveContract(ownerKey(4), params)
		require.NoError(t, err)
		require.NotEqual(t, c1.Key.Commitment, c2.Key.Commitment)
		require.NotEqual(t, c1.Key.Address, c2.Key.Address)

		other := params
		other.SettlementHeight++
		c3, err := engine.DeriveContract(ownerKey(3), other)
		require.NoError(t, err)
		require.NotEqual(t, c1.Key.Commitment, c3.Key.Commitment)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := engine.DeriveContract(nil, params)
		require.Error(t, err)

		invalid := params
		invalid.SettlementAssetID = invalid.FillerTokenAssetID
		_, err = engine.DeriveContract(ownerKey(3), invalid)
		require.ErrorIs(t, err, domain.ErrInvalidParameters)
	})
}

func TestSpendPath(t *testing.T) {
	engine := commitment.NewContractEngine(&network.Testnet)
	params := testParams(t)
	owner := ownerKey(5)

	fixtures := []struct {
		name    string
		stage   domain.Stage
		oracle  *ports.OracleWitness
		witness int
	}{
		{"fund", domain.StageTakerFund, nil, 0},
		{"terminate", domain.StageMakerTerminateCollateral, nil, 0},
		{"settle", domain.StageTakerSettle, &ports.OracleWitness{Price: 3, Signature: make([]byte, 64)}, 2},
	}

	for _, f := range fixtures {
		t.Run(f.name, func(t *testing.T) {
			spend, err := engine.SpendPath(owner, params, f.stage, f.oracle)
			require.NoError(t, err)
			require.Len(t, spend.Witness, f.witness)
			require.NotEmpty(t, spend.LeafScript)

			// leaf version and parity, internal key, one sibling hash
			require.Len(t, spend.ControlBlock, 1+32+32)
			require.Equal(
				t, schnorr.SerializePubKey(commitment.UnspendableKey()), spend.ControlBlock[1:33],
			)

			if f.oracle != nil {
				require.Equal(t, f.oracle.Price, binary.LittleEndian.Uint64(spend.Witness[0]))
				require.Equal(t, f.oracle.Signature, spend.Witness[1])
			}
		})
	}

	t.Run("settlement without oracle", func(t *testing.T) {
		_, err := engine.SpendPath(owner, params, domain.StageMakerSettle, nil)
		require.Error(t, err)
	})
}

func TestSettlementOutcome(t *testing.T) {
	engine := commitment.NewContractEngine(&network.Testnet)
	params := testParams(t)

	require.Equal(t, domain.TakerReceivesCollateral, engine.SettlementOutcome(params, 1))
	require.Equal(t, domain.TakerReceivesSettlementAsset, engine.SettlementOutcome(params, 2))
	require.Equal(t, domain.TakerReceivesSettlementAsset, engine.SettlementOutcome(params, 3))
}
