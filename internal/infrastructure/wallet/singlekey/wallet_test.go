package singlekey_test

import (
	"bytes"
	"testing"

	"github.com/ark-network/dcd/internal/infrastructure/wallet/singlekey"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/go-elements/network"
)

func TestDeriveAccountKey(t *testing.T) {
	seed := bytes.Repeat([]byte{0x07}, singlekey.SeedSize)

	key0, err := singlekey.DeriveAccountKey(seed, 0)
	require.NoError(t, err)
	require.Equal(t, seed, key0.Serialize())

	key1, err := singlekey.DeriveAccountKey(seed, 1)
	require.NoError(t, err)
	expected := append([]byte{}, seed...)
	expected[27] ^= 0x01
	require.Equal(t, expected, key1.Serialize())

	again, err := singlekey.DeriveAccountKey(seed, 1)
	require.NoError(t, err)
	require.Equal(t, key1.Serialize(), again.Serialize())

	_, err = singlekey.DeriveAccountKey(seed[:31], 0)
	require.Error(t, err)
}

func TestWalletService(t *testing.T) {
	seed := bytes.Repeat([]byte{0x07}, singlekey.SeedSize)

	w, err := singlekey.NewWalletService(seed, 3, &network.Testnet)
	require.NoError(t, err)

	script := w.Script()
	require.Len(t, script, 22)
	require.Equal(t, byte(0x00), script[0])

	addr, err := w.Address()
	require.NoError(t, err)
	require.NotEmpty(t, addr)

	other, err := singlekey.NewWalletService(seed, 4, &network.Testnet)
	require.NoError(t, err)
	require.NotEqual(t, script, other.Script())
	require.Equal(t, w.BlindingPublicKey().SerializeCompressed(), other.BlindingPublicKey().SerializeCompressed())
}
