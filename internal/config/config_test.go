package config_test

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ark-network/dcd/internal/config"
	"github.com/ark-network/dcd/internal/core/domain"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/go-elements/network"
)

var (
	ctx = context.Background()

	seedHex  = strings.Repeat("07", 32)
	nostrKey = strings.Repeat("01", 32)
)

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set(config.Datadir, t.TempDir())

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	return cfg
}

func validConfig() *config.Config {
	return &config.Config{
		Network:      network.Regtest.Name,
		EsploraURL:   "http://localhost:3001",
		Relays:       []string{"ws://localhost:7000"},
		RelayTimeout: time.Second,
		SeedHex:      seedHex,
		LogLevel:     4,
		InMemory:     true,
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := loadConfig(t)
		require.Equal(t, network.Testnet.Name, cfg.Network)
		require.Equal(t, "https://blockstream.info/liquidtestnet/api", cfg.EsploraURL)
		require.Empty(t, cfg.Relays)
		require.Equal(t, 10*time.Second, cfg.RelayTimeout)
		require.Equal(t, 4, cfg.LogLevel)

		require.NoError(t, cfg.Validate())
		require.Equal(t, network.Testnet.Name, cfg.NetworkParams().Name)
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("DCD_NETWORK", network.Regtest.Name)
		t.Setenv("DCD_RELAYS", "wss://relay.one,wss://relay.two")
		t.Setenv("DCD_RELAY_TIMEOUT", "3s")
		t.Setenv("DCD_SEED_HEX", seedHex)

		cfg := loadConfig(t)
		require.Equal(t, network.Regtest.Name, cfg.Network)
		require.Equal(t, "http://localhost:3001", cfg.EsploraURL)
		require.Equal(t, []string{"wss://relay.one", "wss://relay.two"}, cfg.Relays)
		require.Equal(t, 3*time.Second, cfg.RelayTimeout)
		require.Equal(t, seedHex, cfg.SeedHex)
		require.NoError(t, cfg.Validate())
	})

	t.Run("config file", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		datadir := t.TempDir()
		viper.Set(config.Datadir, datadir)

		file := "network = \"liquid\"\nesplora_url = \"http://esplora.local\"\n"
		require.NoError(t, os.WriteFile(filepath.Join(datadir, "config.toml"), []byte(file), 0600))

		cfg, err := config.LoadConfig()
		require.NoError(t, err)
		require.Equal(t, network.Liquid.Name, cfg.Network)
		require.Equal(t, "http://esplora.local", cfg.EsploraURL)
	})

	t.Run("creates datadir", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		datadir := filepath.Join(t.TempDir(), "nested", "dcd")
		viper.Set(config.Datadir, datadir)

		_, err := config.LoadConfig()
		require.NoError(t, err)
		require.DirExists(t, datadir)
	})
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	fixtures := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unsupported network", func(c *config.Config) { c.Network = "mainnet" }},
		{"missing esplora url", func(c *config.Config) { c.EsploraURL = "" }},
		{"invalid relay url", func(c *config.Config) { c.Relays = []string{"http://relay"} }},
		{"zero relay timeout", func(c *config.Config) { c.RelayTimeout = 0 }},
		{"malformed seed", func(c *config.Config) { c.SeedHex = "zz" }},
		{"short seed", func(c *config.Config) { c.SeedHex = "0707" }},
		{"invalid nostr key", func(c *config.Config) { c.NostrSecretKey = "abcd" }},
		{"invalid log level", func(c *config.Config) { c.LogLevel = 9 }},
	}
	for _, tt := range fixtures {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestString(t *testing.T) {
	cfg := validConfig()
	cfg.NostrSecretKey = nostrKey

	str := cfg.String()
	require.NotContains(t, str, seedHex)
	require.NotContains(t, str, nostrKey)
	require.Contains(t, str, "********")
	require.Contains(t, str, network.Regtest.Name)

	// the receiver is left untouched
	require.Equal(t, seedHex, cfg.SeedHex)
}

func TestServices(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
	t.Cleanup(cfg.Close)

	registry, err := cfg.Registry()
	require.NoError(t, err)
	again, err := cfg.Registry()
	require.NoError(t, err)
	require.Equal(t, registry, again)

	wallet, err := cfg.WalletService(0)
	require.NoError(t, err)
	addr, err := wallet.Address()
	require.NoError(t, err)
	require.NotEmpty(t, addr)

	other, err := cfg.WalletService(1)
	require.NoError(t, err)
	require.NotEqual(t, hex.EncodeToString(wallet.Script()), hex.EncodeToString(other.Script()))

	_, err = cfg.LifecycleService(0)
	require.NoError(t, err)

	t.Run("without seed", func(t *testing.T) {
		cfg := validConfig()
		cfg.SeedHex = ""
		require.NoError(t, cfg.Validate())
		t.Cleanup(cfg.Close)

		_, err := cfg.WalletService(0)
		require.Error(t, err)
		_, err = cfg.LifecycleService(0)
		require.Error(t, err)

		svc, err := cfg.RegistryService(0)
		require.NoError(t, err)
		keys, err := svc.ListContracts(ctx)
		require.NoError(t, err)
		require.Empty(t, keys)

		_, err = svc.Faucet(ctx, "usdt", domain.UtxoRef{}, 1000, 100)
		require.Error(t, err)
	})
}

func TestInitLogger(t *testing.T) {
	cfg := validConfig()
	cfg.Datadir = t.TempDir()
	cfg.LogFile = "dcd.log"
	cfg.LogLevel = 5

	cfg.InitLogger()
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFormatter(&log.TextFormatter{})
		log.SetLevel(log.InfoLevel)
	})

	log.Debug("written to file")
	require.Equal(t, log.DebugLevel, log.GetLevel())
	require.FileExists(t, filepath.Join(cfg.Datadir, "dcd.log"))

	t.Run("registry logs through the configured logger", func(t *testing.T) {
		cfg.InMemory = false
		_, err := cfg.Registry()
		require.NoError(t, err)
		cfg.Close()

		buf, err := os.ReadFile(filepath.Join(cfg.Datadir, "dcd.log"))
		require.NoError(t, err)
		require.Contains(t, string(buf), `"store":"registry"`)
	})
}
