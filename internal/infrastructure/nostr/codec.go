package nostrrelay

import (
	"time"

	"github.com/ark-network/dcd/internal/core/domain"
	"github.com/ark-network/dcd/internal/core/ports"
	"github.com/nbd-wtf/go-nostr"
)

type orderCodec struct{}

func NewOrderCodec() ports.OrderCodec {
	return orderCodec{}
}

func (orderCodec) NewMakerOrderEvent(
	makerPubkey string, params domain.ContractParameters,
	key domain.ContractAddressKey, fundingTxid string, createdAt time.Time,
) (*nostr.Event, error) {
	return NewMakerOrderEvent(makerPubkey, params, key, fundingTxid, createdAt)
}

func (orderCodec) NewTakerReplyEvent(
	takerPubkey, makerEventID, makerPubkey, txid string, createdAt time.Time,
) *nostr.Event {
	return NewTakerReplyEvent(takerPubkey, makerEventID, makerPubkey, txid, createdAt)
}

func (orderCodec) DecodeMakerOrder(ev *nostr.Event) (domain.MakerOrder, bool) {
	return DecodeMakerOrder(ev)
}

func (orderCodec) DecodeTakerReply(ev *nostr.Event) (domain.TakerReply, bool) {
	return DecodeTakerReply(ev)
}
