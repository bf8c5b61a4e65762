package application

import (
	"context"
	"fmt"
	"time"

	"github.com/ark-network/dcd/internal/core/domain"
	"github.com/ark-network/dcd/internal/core/ports"
	"github.com/nbd-wtf/go-nostr"
	log "github.com/sirupsen/logrus"
)

type OrderBookService interface {
	PublishOrder(
		ctx context.Context, contractKey string, params *domain.ContractParameters,
		fundingTxid string,
	) (string, error)
	ListActive(ctx context.Context) ([]domain.OrderSummary, error)
	GetOrder(ctx context.Context, eventID string) (*domain.MakerOrder, error)
	GetEvent(ctx context.Context, eventID string) (*nostr.Event, error)
	ReplyOrder(ctx context.Context, makerEventID, makerPubkey, txid string) (string, error)
	ListReplies(ctx context.Context, makerEventID string) ([]domain.TakerReply, error)
	// Watch calls fn with the active orders every interval until ctx is done.
	Watch(ctx context.Context, interval time.Duration, fn func([]domain.OrderSummary)) error
}

type orderBookService struct {
	relay     ports.RelayClient
	codec     ports.OrderCodec
	registry  ports.Registry
	scheduler ports.SchedulerService
}

func NewOrderBookService(
	relay ports.RelayClient, codec ports.OrderCodec,
	registry ports.Registry, scheduler ports.SchedulerService,
) OrderBookService {
	return &orderBookService{relay, codec, registry, scheduler}
}

func (s *orderBookService) PublishOrder(
	ctx context.Context, contractKey string, params *domain.ContractParameters,
	fundingTxid string,
) (string, error) {
	key, err := domain.ParseContractAddressKey(contractKey)
	if err != nil {
		return "", err
	}
	if params == nil {
		buf, err := s.registry.GetContract(ctx, contractKey)
		if err != nil {
			return "", fmt.Errorf("registry: %w", err)
		}
		decoded, err := domain.DecodeContractParameters(buf)
		if err != nil {
			return "", err
		}
		params = &decoded
	}

	pubkey, err := s.relay.PublicKey()
	if err != nil {
		return "", err
	}
	ev, err := s.codec.NewMakerOrderEvent(pubkey, *params, key, fundingTxid, time.Now())
	if err != nil {
		return "", err
	}

	id, err := s.relay.Publish(ctx, ev)
	if err != nil {
		return "", err
	}
	log.WithField("event_id", id).Debug("maker order published")
	return id, nil
}

// ListActive returns the orders not yet expired, newest first. Events that
// cannot be decoded are skipped.
func (s *orderBookService) ListActive(ctx context.Context) ([]domain.OrderSummary, error) {
	events, err := s.relay.Query(ctx, nostr.Filter{
		Kinds: []int{domain.MakerOrderKind},
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	summaries := make([]domain.OrderSummary, 0, len(events))
	for _, ev := range events {
		order, ok := s.codec.DecodeMakerOrder(ev)
		if !ok {
			log.Debugf("skipping invalid maker order %s", ev.ID)
			continue
		}
		if !order.IsActive(now) {
			continue
		}
		summaries = append(summaries, domain.NewOrderSummary(order))
	}
	return summaries, nil
}

func (s *orderBookService) GetOrder(ctx context.Context, eventID string) (*domain.MakerOrder, error) {
	ev, err := s.getEvent(ctx, eventID, domain.MakerOrderKind)
	if err != nil {
		return nil, err
	}
	order, ok := s.codec.DecodeMakerOrder(ev)
	if !ok {
		return nil, fmt.Errorf("event %s is not a valid maker order", eventID)
	}
	return &order, nil
}

func (s *orderBookService) GetEvent(ctx context.Context, eventID string) (*nostr.Event, error) {
	return s.getEvent(ctx, eventID)
}

func (s *orderBookService) ReplyOrder(
	ctx context.Context, makerEventID, makerPubkey, txid string,
) (string, error) {
	pubkey, err := s.relay.PublicKey()
	if err != nil {
		return "", err
	}
	if len(makerPubkey) == 0 {
		order, err := s.GetOrder(ctx, makerEventID)
		if err != nil {
			return "", err
		}
		makerPubkey = order.MakerPubkey
	}

	ev := s.codec.NewTakerReplyEvent(pubkey, makerEventID, makerPubkey, txid, time.Now())
	id, err := s.relay.Publish(ctx, ev)
	if err != nil {
		return "", err
	}
	log.WithFields(log.Fields{
		"event_id":       id,
		"maker_event_id": makerEventID,
	}).Debug("taker reply published")
	return id, nil
}

func (s *orderBookService) ListReplies(
	ctx context.Context, makerEventID string,
) ([]domain.TakerReply, error) {
	events, err := s.relay.Query(ctx, nostr.Filter{
		Kinds: []int{domain.TakerReplyKind},
		Tags:  nostr.TagMap{"e": []string{makerEventID}},
	})
	if err != nil {
		return nil, err
	}

	replies := make([]domain.TakerReply, 0, len(events))
	for _, ev := range events {
		reply, ok := s.codec.DecodeTakerReply(ev)
		if !ok || reply.MakerEventID != makerEventID {
			continue
		}
		replies = append(replies, reply)
	}
	return replies, nil
}

func (s *orderBookService) Watch(
	ctx context.Context, interval time.Duration, fn func([]domain.OrderSummary),
) error {
	if err := s.scheduler.ScheduleTask(interval, true, func() {
		orders, err := s.ListActive(ctx)
		if err != nil {
			log.WithError(err).Warn("failed to refresh orders")
			return
		}
		fn(orders)
	}); err != nil {
		return err
	}

	s.scheduler.Start()
	defer s.scheduler.Stop()

	<-ctx.Done()
	return nil
}

func (s *orderBookService) getEvent(
	ctx context.Context, eventID string, kinds ...int,
) (*nostr.Event, error) {
	filter := nostr.Filter{IDs: []string{eventID}}
	if len(kinds) > 0 {
		filter.Kinds = kinds
	}
	events, err := s.relay.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		if ev.ID == eventID {
			return ev, nil
		}
	}
	return nil, fmt.Errorf("%w: event %s", domain.ErrNotFound, eventID)
}
