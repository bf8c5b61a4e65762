package config

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ark-network/dcd/internal/core/application"
	"github.com/ark-network/dcd/internal/core/ports"
	"github.com/ark-network/dcd/internal/infrastructure/contract-engine/commitment"
	ctlibrary "github.com/ark-network/dcd/internal/infrastructure/ct-library/elements"
	badgerdb "github.com/ark-network/dcd/internal/infrastructure/db/badger"
	"github.com/ark-network/dcd/internal/infrastructure/explorer/esplora"
	nostrrelay "github.com/ark-network/dcd/internal/infrastructure/nostr"
	scheduler "github.com/ark-network/dcd/internal/infrastructure/scheduler/gocron"
	txbuilder "github.com/ark-network/dcd/internal/infrastructure/tx-builder"
	"github.com/ark-network/dcd/internal/infrastructure/wallet/singlekey"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/nbd-wtf/go-nostr"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/vulpemventures/go-elements/network"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	redacted = "********"

	logFileMaxSizeMB = 50
	logFileMaxAge    = 30
)

var (
	supportedNetworks = supportedType{
		network.Liquid.Name:  {},
		network.Testnet.Name: {},
		network.Regtest.Name: {},
	}

	defaultEsploraURLs = map[string]string{
		network.Liquid.Name:  "https://blockstream.info/liquid/api",
		network.Testnet.Name: "https://blockstream.info/liquidtestnet/api",
		network.Regtest.Name: "http://localhost:3001",
	}
)

type Config struct {
	Datadir        string
	Network        string
	EsploraURL     string
	Relays         []string
	NostrSecretKey string
	RelayTimeout   time.Duration
	SeedHex        string
	LogLevel       int
	LogFile        string
	InMemory       bool

	net      *network.Network
	registry ports.Registry
	explorer ports.Explorer
	relay    ports.RelayClient
}

// String prints the config as JSON with the secrets hidden.
func (c *Config) String() string {
	clone := *c
	if len(clone.SeedHex) > 0 {
		clone.SeedHex = redacted
	}
	if len(clone.NostrSecretKey) > 0 {
		clone.NostrSecretKey = redacted
	}
	json, err := json.MarshalIndent(clone, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	Datadir        = "DATADIR"
	Network        = "NETWORK"
	EsploraURL     = "ESPLORA_URL"
	Relays         = "RELAYS"
	NostrSecretKey = "NOSTR_SECRET_KEY"
	RelayTimeout   = "RELAY_TIMEOUT"
	SeedHex        = "SEED_HEX"
	LogLevel       = "LOG_LEVEL"
	LogFile        = "LOG_FILE"
	InMemory       = "IN_MEMORY"

	defaultDatadir      = btcutil.AppDataDir("dcd", false)
	defaultNetwork      = network.Testnet.Name
	defaultRelayTimeout = 10 * time.Second
	defaultLogLevel     = 4
	defaultInMemory     = false
)

// LoadConfig reads the DCD_ prefixed environment and, if present, the
// config.toml file of the datadir. Values set on viper beforehand, like
// command line flags, take precedence.
func LoadConfig() (*Config, error) {
	viper.SetEnvPrefix("DCD")
	viper.AutomaticEnv()

	viper.SetDefault(Datadir, defaultDatadir)
	viper.SetDefault(Network, defaultNetwork)
	viper.SetDefault(RelayTimeout, defaultRelayTimeout)
	viper.SetDefault(LogLevel, defaultLogLevel)
	viper.SetDefault(InMemory, defaultInMemory)

	if err := initDatadir(); err != nil {
		return nil, fmt.Errorf("error while creating datadir: %s", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("toml")
	viper.AddConfigPath(viper.GetString(Datadir))
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error while reading config file: %s", err)
		}
	}

	net := viper.GetString(Network)
	esploraURL := viper.GetString(EsploraURL)
	if len(esploraURL) == 0 {
		esploraURL = defaultEsploraURLs[net]
	}

	return &Config{
		Datadir:        viper.GetString(Datadir),
		Network:        net,
		EsploraURL:     esploraURL,
		Relays:         parseList(viper.GetStringSlice(Relays)),
		NostrSecretKey: viper.GetString(NostrSecretKey),
		RelayTimeout:   viper.GetDuration(RelayTimeout),
		SeedHex:        viper.GetString(SeedHex),
		LogLevel:       viper.GetInt(LogLevel),
		LogFile:        viper.GetString(LogFile),
		InMemory:       viper.GetBool(InMemory),
	}, nil
}

func initDatadir() error {
	datadir := viper.GetString(Datadir)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

// parseList accepts both toml arrays and comma separated env values.
func parseList(values []string) []string {
	list := make([]string, 0, len(values))
	for _, v := range values {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); len(item) > 0 {
				list = append(list, item)
			}
		}
	}
	return list
}

func (c *Config) Validate() error {
	if !supportedNetworks.supports(c.Network) {
		return fmt.Errorf("network not supported, please select one of: %s", supportedNetworks)
	}
	if len(c.EsploraURL) == 0 {
		return fmt.Errorf("missing esplora url")
	}
	for _, url := range c.Relays {
		if !nostr.IsValidRelayURL(url) {
			return fmt.Errorf("invalid relay url %s", url)
		}
	}
	if c.RelayTimeout <= 0 {
		return fmt.Errorf("relay timeout must be positive")
	}
	if len(c.SeedHex) > 0 {
		if _, err := c.seed(); err != nil {
			return err
		}
	}
	if _, _, err := nostrrelay.ParseSecretKey(c.NostrSecretKey); err != nil {
		return fmt.Errorf("invalid nostr secret key: %s", err)
	}
	if c.LogLevel < int(log.PanicLevel) || c.LogLevel > int(log.TraceLevel) {
		return fmt.Errorf("invalid log level %d", c.LogLevel)
	}

	switch c.Network {
	case network.Liquid.Name:
		c.net = &network.Liquid
	case network.Regtest.Name:
		c.net = &network.Regtest
	default:
		c.net = &network.Testnet
	}
	return nil
}

// InitLogger applies the log level and, if a log file is configured, sends
// the logs to it with size based rotation. A relative path is resolved
// against the datadir.
func (c *Config) InitLogger() {
	log.SetLevel(log.Level(c.LogLevel))
	if len(c.LogFile) == 0 {
		return
	}

	filename := c.LogFile
	if !filepath.IsAbs(filename) {
		filename = filepath.Join(c.Datadir, filename)
	}
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(&lumberjack.Logger{
		Filename: filename,
		MaxSize:  logFileMaxSizeMB,
		MaxAge:   logFileMaxAge,
		Compress: true,
	})
}

func (c *Config) NetworkParams() *network.Network {
	return c.net
}

// Registry opens the store the first time it's called and returns the same
// handle afterwards.
func (c *Config) Registry() (ports.Registry, error) {
	if c.registry == nil {
		dir := c.Datadir
		if c.InMemory {
			dir = ""
		}
		registry, err := badgerdb.NewRegistry(dir, log.WithField("store", "registry"))
		if err != nil {
			return nil, err
		}
		c.registry = registry
	}
	return c.registry, nil
}

func (c *Config) Explorer() ports.Explorer {
	if c.explorer == nil {
		c.explorer = esplora.NewExplorer(c.EsploraURL)
	}
	return c.explorer
}

func (c *Config) WalletService(accountIndex uint32) (ports.WalletService, error) {
	if len(c.SeedHex) == 0 {
		return nil, fmt.Errorf("missing seed, set %s_%s", "DCD", SeedHex)
	}
	seed, err := c.seed()
	if err != nil {
		return nil, err
	}
	return singlekey.NewWalletService(seed, accountIndex, c.net)
}

func (c *Config) LifecycleService(accountIndex uint32) (application.LifecycleService, error) {
	wallet, err := c.WalletService(accountIndex)
	if err != nil {
		return nil, err
	}
	registry, err := c.Registry()
	if err != nil {
		return nil, err
	}

	return application.NewLifecycleService(
		wallet, c.contractEngine(), c.txBuilder(wallet), registry, c.Explorer(),
	), nil
}

// RegistryService works without a seed for the commands that only read or
// import contracts.
func (c *Config) RegistryService(accountIndex uint32) (application.RegistryService, error) {
	registry, err := c.Registry()
	if err != nil {
		return nil, err
	}

	var wallet ports.WalletService
	var builder ports.TxBuilder
	if len(c.SeedHex) > 0 {
		if wallet, err = c.WalletService(accountIndex); err != nil {
			return nil, err
		}
		builder = c.txBuilder(wallet)
	}

	return application.NewRegistryService(wallet, c.contractEngine(), builder, registry), nil
}

func (c *Config) OrderBookService(ctx context.Context) (application.OrderBookService, error) {
	if c.relay == nil {
		if len(c.Relays) == 0 {
			return nil, fmt.Errorf("no relay configured, set %s_%s", "DCD", Relays)
		}
		relay, err := nostrrelay.Connect(ctx, c.Relays, c.NostrSecretKey, c.RelayTimeout)
		if err != nil {
			return nil, err
		}
		c.relay = relay
	}
	registry, err := c.Registry()
	if err != nil {
		return nil, err
	}

	return application.NewOrderBookService(
		c.relay, nostrrelay.NewOrderCodec(), registry, scheduler.NewScheduler(),
	), nil
}

func (c *Config) Close() {
	if c.relay != nil {
		c.relay.Close()
	}
	if c.registry != nil {
		c.registry.Close()
	}
}

func (c *Config) contractEngine() ports.ContractEngine {
	return commitment.NewContractEngine(c.net)
}

func (c *Config) txBuilder(wallet ports.WalletService) ports.TxBuilder {
	return txbuilder.NewTxBuilder(
		c.Explorer(), ctlibrary.NewConfidentialTxLibrary(wallet), wallet,
	)
}

func (c *Config) seed() ([]byte, error) {
	seed, err := hex.DecodeString(c.SeedHex)
	if err != nil {
		return nil, fmt.Errorf("invalid seed: %s", err)
	}
	if len(seed) != singlekey.SeedSize {
		return nil, fmt.Errorf(
			"invalid seed length: got %d bytes, expected %d", len(seed), singlekey.SeedSize,
		)
	}
	return seed, nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	sort.Strings(types)
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
