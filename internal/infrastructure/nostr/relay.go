package nostrrelay

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ark-network/dcd/internal/core/domain"
	"github.com/ark-network/dcd/internal/core/ports"
	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type relayClient struct {
	relays    []*nostr.Relay
	secretKey string
	publicKey string
	timeout   time.Duration
}

// Connect dials every relay in parallel and keeps the ones that answered.
// The secret key, hex or nsec encoded, is only needed to publish.
func Connect(
	ctx context.Context, urls []string, secretKey string, timeout time.Duration,
) (ports.RelayClient, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: no relay configured", domain.ErrNoRelayReachable)
	}
	for _, url := range urls {
		if !nostr.IsValidRelayURL(url) {
			return nil, fmt.Errorf("invalid relay url %s", url)
		}
	}

	sk, pk, err := ParseSecretKey(secretKey)
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lock sync.Mutex
	relays := make([]*nostr.Relay, 0, len(urls))

	eg, egCtx := errgroup.WithContext(dialCtx)
	for _, url := range urls {
		url := url
		eg.Go(func() error {
			relay, err := nostr.RelayConnect(egCtx, url)
			if err != nil {
				log.WithError(err).Warnf("failed to connect to relay %s", url)
				return nil
			}

			lock.Lock()
			relays = append(relays, relay)
			lock.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	if len(relays) == 0 {
		return nil, domain.ErrNoRelayReachable
	}
	log.Debugf("connected to %d/%d relays", len(relays), len(urls))

	return &relayClient{relays, sk, pk, timeout}, nil
}

// ParseSecretKey accepts an empty, hex or nsec encoded secret key and returns
// it in hex along with its public key.
func ParseSecretKey(secretKey string) (string, string, error) {
	if len(secretKey) == 0 {
		return "", "", nil
	}

	sk := secretKey
	if strings.HasPrefix(secretKey, "nsec") {
		prefix, value, err := nip19.Decode(secretKey)
		if err != nil {
			return "", "", fmt.Errorf("failed to decode nsec: %w", err)
		}
		if prefix != "nsec" {
			return "", "", fmt.Errorf("invalid NIP-19 prefix: %s", prefix)
		}
		var ok bool
		if sk, ok = value.(string); !ok {
			return "", "", fmt.Errorf("invalid NIP-19 result: %v", value)
		}
	}

	if buf, err := hex.DecodeString(sk); err != nil || len(buf) != 32 {
		return "", "", fmt.Errorf("secret key must be 32 bytes hex or nsec")
	}

	pk, err := nostr.GetPublicKey(sk)
	if err != nil {
		return "", "", err
	}
	return sk, pk, nil
}

func (c *relayClient) PublicKey() (string, error) {
	if len(c.secretKey) == 0 {
		return "", domain.ErrMissingSigner
	}
	return c.publicKey, nil
}

func (c *relayClient) Publish(ctx context.Context, ev *nostr.Event) (string, error) {
	if len(c.secretKey) == 0 {
		return "", domain.ErrMissingSigner
	}

	ev.PubKey = c.publicKey
	if err := ev.Sign(c.secretKey); err != nil {
		return "", fmt.Errorf("failed to sign event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var wg sync.WaitGroup
	atLeastOneSuccess := atomic.Bool{}

	for _, relay := range c.relays {
		wg.Add(1)
		go func(relay *nostr.Relay) {
			defer wg.Done()

			if err := relay.Publish(ctx, *ev); err != nil {
				log.WithError(err).Warnf("failed to publish to relay %s", relay.URL)
				return
			}

			atLeastOneSuccess.Store(true)
		}(relay)
	}

	wg.Wait()

	if !atLeastOneSuccess.Load() {
		return "", fmt.Errorf("%w: event %s not accepted", domain.ErrNoRelayReachable, ev.ID)
	}
	return ev.ID, nil
}

// Query collects the events matching filter from every relay within the
// client timeout. Events are deduplicated and sorted newest first.
func (c *relayClient) Query(ctx context.Context, filter nostr.Filter) ([]*nostr.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var wg sync.WaitGroup
	var lock sync.Mutex
	answered := atomic.Bool{}
	events := make(map[string]*nostr.Event)

	for _, relay := range c.relays {
		wg.Add(1)
		go func(relay *nostr.Relay) {
			defer wg.Done()

			res, err := relay.QuerySync(ctx, filter)
			if err != nil {
				log.WithError(err).Warnf("failed to query relay %s", relay.URL)
				return
			}
			answered.Store(true)

			lock.Lock()
			defer lock.Unlock()
			for _, ev := range res {
				events[ev.ID] = ev
			}
		}(relay)
	}

	wg.Wait()

	if !answered.Load() {
		return nil, domain.ErrNoRelayReachable
	}
	return sortEvents(events), nil
}

// Subscribe streams the events matching filter until ctx is done. Events
// received from more than one relay are delivered once.
func (c *relayClient) Subscribe(ctx context.Context, filter nostr.Filter) (<-chan *nostr.Event, error) {
	subs := make([]*nostr.Subscription, 0, len(c.relays))
	for _, relay := range c.relays {
		sub, err := relay.Subscribe(ctx, nostr.Filters{filter})
		if err != nil {
			log.WithError(err).Warnf("failed to subscribe to relay %s", relay.URL)
			continue
		}
		subs = append(subs, sub)
	}
	if len(subs) == 0 {
		return nil, domain.ErrNoRelayReachable
	}

	out := make(chan *nostr.Event)
	var wg sync.WaitGroup
	var lock sync.Mutex
	seen := make(map[string]struct{})

	for _, sub := range subs {
		wg.Add(1)
		go func(sub *nostr.Subscription) {
			defer wg.Done()
			defer sub.Unsub()

			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-sub.Events:
					if !ok {
						return
					}

					lock.Lock()
					_, dup := seen[ev.ID]
					seen[ev.ID] = struct{}{}
					lock.Unlock()
					if dup {
						continue
					}

					select {
					case out <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}(sub)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out, nil
}

func (c *relayClient) Close() {
	for _, relay := range c.relays {
		if err := relay.Close(); err != nil {
			log.WithError(err).Debugf("failed to close relay %s", relay.URL)
		}
	}
}

func sortEvents(events map[string]*nostr.Event) []*nostr.Event {
	list := make([]*nostr.Event, 0, len(events))
	for _, ev := range events {
		list = append(list, ev)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt == list[j].CreatedAt {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt > list[j].CreatedAt
	})
	return list
}
