package ports

import (
	"context"
	"time"

	"github.com/ark-network/dcd/internal/core/domain"
	"github.com/nbd-wtf/go-nostr"
)

type RelayClient interface {
	// PublicKey fails with domain.ErrMissingSigner if no key is configured.
	PublicKey() (string, error)
	Publish(ctx context.Context, event *nostr.Event) (string, error)
	Query(ctx context.Context, filter nostr.Filter) ([]*nostr.Event, error)
	Subscribe(ctx context.Context, filter nostr.Filter) (<-chan *nostr.Event, error)
	Close()
}

// OrderCodec maps maker orders and taker replies to relay events. Events are
// returned unsigned; the relay client signs them on publish.
type OrderCodec interface {
	NewMakerOrderEvent(
		makerPubkey string, params domain.ContractParameters,
		key domain.ContractAddressKey, fundingTxid string, createdAt time.Time,
	) (*nostr.Event, error)
	NewTakerReplyEvent(
		takerPubkey, makerEventID, makerPubkey, txid string, createdAt time.Time,
	) *nostr.Event
	DecodeMakerOrder(ev *nostr.Event) (domain.MakerOrder, bool)
	DecodeTakerReply(ev *nostr.Event) (domain.TakerReply, bool)
}
