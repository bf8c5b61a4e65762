package main

import (
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/urfave/cli/v2"
)

var (
	datadirFlag = &cli.StringFlag{
		Name:    "datadir",
		Usage:   "data directory of the registry and the config file",
		Value:   btcutil.AppDataDir("dcd", false),
		EnvVars: []string{"DCD_DATADIR"},
	}
	networkFlag = &cli.StringFlag{
		Name:  "network",
		Usage: "network to use (liquid, testnet, regtest)",
	}

	accountFlag = cli.UintFlag{
		Name:  "account",
		Usage: "index of the wallet account to use",
		Value: 0,
	}
	utxoFlag = cli.StringSliceFlag{
		Name:     "utxo",
		Usage:    "utxo to spend as <txid>:<vout>, repeat in the order the stage expects",
		Required: true,
	}
	feeFlag = cli.Uint64Flag{
		Name:  "fee",
		Usage: "fee amount in sats",
		Value: 100,
	}
	amountFlag = cli.Uint64Flag{
		Name:     "amount",
		Usage:    "amount of the operation",
		Required: true,
	}
	broadcastFlag = cli.BoolFlag{
		Name:  "broadcast",
		Usage: "broadcast the transaction instead of printing its hex",
	}
	contractKeyFlag = cli.StringFlag{
		Name:     "contract-key",
		Usage:    "contract address key, <owner>:<commitment>:<address>",
		Required: true,
	}
	paramsFlag = cli.StringFlag{
		Name:  "params",
		Usage: "hex encoded contract parameters, read from the registry if omitted",
	}
	priceFlag = cli.Uint64Flag{
		Name:     "price",
		Usage:    "settlement price attested by the oracle",
		Required: true,
	}
	oracleSignatureFlag = cli.StringFlag{
		Name:     "oracle-signature",
		Usage:    "hex encoded oracle signature of the price",
		Required: true,
	}
	publishFlag = cli.BoolFlag{
		Name:  "publish",
		Usage: "announce the funded contract to the relays, requires --broadcast",
	}

	fundingStartFlag = cli.Uint64Flag{
		Name:     "taker-funding-start",
		Usage:    "unix time the taker funding window opens",
		Required: true,
	}
	fundingEndFlag = cli.Uint64Flag{
		Name:     "taker-funding-end",
		Usage:    "unix time the taker funding window closes",
		Required: true,
	}
	contractExpiryFlag = cli.Uint64Flag{
		Name:     "contract-expiry",
		Usage:    "unix time the contract expires",
		Required: true,
	}
	earlyTerminationEndFlag = cli.Uint64Flag{
		Name:     "early-termination-end",
		Usage:    "unix time after which early termination is closed",
		Required: true,
	}
	settlementHeightFlag = cli.Uint64Flag{
		Name:     "settlement-height",
		Usage:    "block height from which the contract can be settled",
		Required: true,
	}
	strikePriceFlag = cli.Uint64Flag{
		Name:     "strike-price",
		Usage:    "strike price",
		Required: true,
	}
	incentiveBpsFlag = cli.Uint64Flag{
		Name:  "incentive-bps",
		Usage: "incentive in basis points",
	}
	feeBpsFlag = cli.Uint64Flag{
		Name:  "fee-bps",
		Usage: "fee in basis points",
	}
	principalFlag = cli.Uint64Flag{
		Name:     "principal",
		Usage:    "principal collateral amount",
		Required: true,
	}
	fillerPerPrincipalFlag = cli.Uint64Flag{
		Name:     "filler-per-principal",
		Usage:    "collateral backed by one filler token",
		Required: true,
	}
	settlementAssetFlag = cli.StringFlag{
		Name:     "settlement-asset",
		Usage:    "settlement asset id, or the name of an asset in the registry",
		Required: true,
	}
	oraclePubkeyFlag = cli.StringFlag{
		Name:  "oracle-pubkey",
		Usage: "x-only oracle public key, defaults to the test oracle on test networks",
	}

	nameFlag = cli.StringFlag{
		Name:     "name",
		Usage:    "name of the asset in the registry",
		Required: true,
	}
	partsFlag = cli.Uint64Flag{
		Name:     "parts",
		Usage:    "number of outputs to split the utxo into",
		Required: true,
	}

	eventIDFlag = cli.StringFlag{
		Name:     "event-id",
		Usage:    "id of the maker order event",
		Required: true,
	}
	makerPubkeyFlag = cli.StringFlag{
		Name:  "maker-pubkey",
		Usage: "public key of the maker, fetched from the order if omitted",
	}
	txidFlag = cli.StringFlag{
		Name:     "txid",
		Usage:    "id of the transaction to reference",
		Required: true,
	}
	intervalFlag = cli.DurationFlag{
		Name:  "interval",
		Usage: "refresh interval",
		Value: 30 * time.Second,
	}
)
