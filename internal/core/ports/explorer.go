package ports

import (
	"context"

	"github.com/ark-network/dcd/internal/core/domain"
	"github.com/vulpemventures/go-elements/transaction"
)

type Explorer interface {
	FetchUtxo(ctx context.Context, ref domain.UtxoRef) (*transaction.TxOutput, error)
	Broadcast(ctx context.Context, txHex string) (string, error)
	GetTipHeight(ctx context.Context) (uint32, error)
}
