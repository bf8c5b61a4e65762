package nostrrelay_test

import (
	"context"
	"testing"
	"time"

	"github.com/ark-network/dcd/internal/core/domain"
	nostrrelay "github.com/ark-network/dcd/internal/infrastructure/nostr"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	ctx := context.Background()

	t.Run("no relays", func(t *testing.T) {
		_, err := nostrrelay.Connect(ctx, nil, "", time.Second)
		require.ErrorIs(t, err, domain.ErrNoRelayReachable)
	})

	t.Run("invalid url", func(t *testing.T) {
		_, err := nostrrelay.Connect(ctx, []string{"https://relay.example.com"}, "", time.Second)
		require.Error(t, err)
		require.NotErrorIs(t, err, domain.ErrNoRelayReachable)
	})

	t.Run("unreachable", func(t *testing.T) {
		_, err := nostrrelay.Connect(ctx, []string{"ws://127.0.0.1:1"}, "", time.Second)
		require.ErrorIs(t, err, domain.ErrNoRelayReachable)
	})

	t.Run("invalid secret key", func(t *testing.T) {
		_, err := nostrrelay.Connect(ctx, []string{"ws://127.0.0.1:1"}, "nsec1invalid", time.Second)
		require.Error(t, err)
	})
}
