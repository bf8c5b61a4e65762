package esplora_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ark-network/dcd/internal/core/domain"
	"github.com/ark-network/dcd/internal/infrastructure/explorer/esplora"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/go-elements/elementsutil"
	"github.com/vulpemventures/go-elements/network"
	"github.com/vulpemventures/go-elements/transaction"
)

func testTx(t *testing.T) (string, string) {
	hash, err := elementsutil.TxIDToBytes(
		"2f8f5733734fd44d581976bd3c1aee098bd606402df2ce02ce908287f1d5ede4",
	)
	require.NoError(t, err)
	asset, err := elementsutil.AssetHashToBytes(network.Testnet.AssetID)
	require.NoError(t, err)

	tx := transaction.NewTx(2)
	tx.AddInput(transaction.NewTxInput(hash, 0))
	for _, amount := range []uint64{1000, 2000} {
		value, err := elementsutil.ValueToBytes(amount)
		require.NoError(t, err)
		tx.AddOutput(transaction.NewTxOutput(asset, value, []byte{0x51}))
	}

	txHex, err := tx.ToHex()
	require.NoError(t, err)
	return tx.TxHash().String(), txHex
}

func TestExplorer(t *testing.T) {
	txid, txHex := testTx(t)
	var txRequests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == fmt.Sprintf("/tx/%s/hex", txid):
			txRequests.Add(1)
			fmt.Fprint(w, txHex)
		case r.Method == http.MethodGet && r.URL.Path == "/blocks/tip/height":
			fmt.Fprint(w, "1234567\n")
		case r.Method == http.MethodPost && r.URL.Path == "/tx":
			body, _ := io.ReadAll(r.Body)
			if string(body) != txHex {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, "sendrawtransaction RPC error: bad-txns")
				return
			}
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, "sendrawtransaction RPC error: Transaction already in block chain")
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, "Transaction not found")
		}
	}))
	defer server.Close()

	explorer := esplora.NewExplorer(server.URL + "/")
	ctx := context.Background()

	t.Run("fetch utxo", func(t *testing.T) {
		out, err := explorer.FetchUtxo(ctx, domain.UtxoRef{Txid: txid, VOut: 1})
		require.NoError(t, err)
		value, err := elementsutil.ValueFromBytes(out.Value)
		require.NoError(t, err)
		require.Equal(t, uint64(2000), value)

		// served from cache
		_, err = explorer.FetchUtxo(ctx, domain.UtxoRef{Txid: txid, VOut: 0})
		require.NoError(t, err)
		require.Equal(t, int32(1), txRequests.Load())

		_, err = explorer.FetchUtxo(ctx, domain.UtxoRef{Txid: txid, VOut: 2})
		require.Error(t, err)

		_, err = explorer.FetchUtxo(ctx, domain.UtxoRef{Txid: strings.Repeat("ab", 32), VOut: 0})
		require.ErrorContains(t, err, "Transaction not found")
	})

	t.Run("tip height", func(t *testing.T) {
		height, err := explorer.GetTipHeight(ctx)
		require.NoError(t, err)
		require.Equal(t, uint32(1234567), height)
	})

	t.Run("broadcast already confirmed", func(t *testing.T) {
		res, err := explorer.Broadcast(ctx, txHex)
		require.NoError(t, err)
		require.Equal(t, txid, res)

		_, err = explorer.Broadcast(ctx, "00")
		require.Error(t, err)
	})
}
