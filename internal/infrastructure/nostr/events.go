package nostrrelay

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/ark-network/dcd/internal/core/domain"
	"github.com/nbd-wtf/go-nostr"
)

const (
	makerOrderContent = "Liquid order [Maker]!"
	takerReplyContent = "Liquid order [Taker]!"

	tagPubkey                 = "p"
	tagEvent                  = "e"
	tagExpiration             = "expiration"
	tagArguments              = "dcd_arguments_(hex&bincode)"
	tagContractKey            = "dcd_taproot_pubkey_gen"
	tagFillerAssetID          = "filler_asset_id"
	tagGrantorCollateralAsset = "grantor_collateral_asset_id"
	tagGrantorSettlementAsset = "grantor_settlement_asset_id"
	tagSettlementAssetID      = "settlement_asset_id"
	tagCollateralAssetID      = "collateral_asset_id"
	tagMakerFundTxid          = "maker_fund_tx_id"
	tagMakerPubkey            = "maker_pubkey"
	tagTxid                   = "tx_id"
)

// NewMakerOrderEvent returns the unsigned announcement of a funded contract.
func NewMakerOrderEvent(
	makerPubkey string, params domain.ContractParameters,
	key domain.ContractAddressKey, fundingTxid string, createdAt time.Time,
) (*nostr.Event, error) {
	encoded, err := params.EncodeToHex()
	if err != nil {
		return nil, err
	}
	expiration := createdAt.Add(domain.MakerOrderLifetime).Unix()

	return &nostr.Event{
		PubKey:    makerPubkey,
		CreatedAt: nostr.Timestamp(createdAt.Unix()),
		Kind:      domain.MakerOrderKind,
		Content:   makerOrderContent,
		Tags: nostr.Tags{
			{tagPubkey, makerPubkey},
			{tagExpiration, strconv.FormatInt(expiration, 10)},
			{tagArguments, encoded},
			{tagContractKey, key.String()},
			{tagFillerAssetID, params.FillerTokenAssetID},
			{tagGrantorCollateralAsset, params.GrantorCollateralTokenAssetID},
			{tagGrantorSettlementAsset, params.GrantorSettlementTokenAssetID},
			{tagSettlementAssetID, params.SettlementAssetID},
			{tagCollateralAssetID, params.CollateralAssetID},
			{tagMakerFundTxid, fundingTxid},
		},
	}, nil
}

// NewTakerReplyEvent returns the unsigned answer of a taker to a maker order.
func NewTakerReplyEvent(
	takerPubkey, makerEventID, makerPubkey, txid string, createdAt time.Time,
) *nostr.Event {
	return &nostr.Event{
		PubKey:    takerPubkey,
		CreatedAt: nostr.Timestamp(createdAt.Unix()),
		Kind:      domain.TakerReplyKind,
		Content:   takerReplyContent,
		Tags: nostr.Tags{
			{tagPubkey, takerPubkey},
			{tagEvent, makerEventID},
			{tagMakerPubkey, makerPubkey},
			{tagTxid, txid},
		},
	}
}

// DecodeMakerOrder parses a signed maker announcement. Events with a bad
// signature, a missing tag or any invalid field are rejected.
func DecodeMakerOrder(ev *nostr.Event) (domain.MakerOrder, bool) {
	order, err := decodeMakerOrder(ev)
	if err != nil {
		return domain.MakerOrder{}, false
	}
	return *order, true
}

// DecodeTakerReply parses a signed taker reply.
func DecodeTakerReply(ev *nostr.Event) (domain.TakerReply, bool) {
	reply, err := decodeTakerReply(ev)
	if err != nil {
		return domain.TakerReply{}, false
	}
	return *reply, true
}

func decodeMakerOrder(ev *nostr.Event) (*domain.MakerOrder, error) {
	if err := checkEvent(ev, domain.MakerOrderKind); err != nil {
		return nil, err
	}
	tags, err := findTags(
		ev, tagPubkey, tagExpiration, tagArguments, tagContractKey,
		tagFillerAssetID, tagGrantorCollateralAsset, tagGrantorSettlementAsset,
		tagSettlementAssetID, tagCollateralAssetID, tagMakerFundTxid,
	)
	if err != nil {
		return nil, err
	}

	if tags[tagPubkey] != ev.PubKey {
		return nil, fmt.Errorf("maker pubkey does not match event author")
	}

	expiration, err := strconv.ParseInt(tags[tagExpiration], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid expiration: %s", err)
	}

	params, err := domain.DecodeContractParametersFromHex(tags[tagArguments])
	if err != nil {
		return nil, err
	}

	key, err := domain.ParseContractAddressKey(tags[tagContractKey])
	if err != nil {
		return nil, err
	}

	order := &domain.MakerOrder{
		EventID:                  ev.ID,
		MakerPubkey:              ev.PubKey,
		CreatedAt:                ev.CreatedAt.Time(),
		ExpiresAt:                time.Unix(expiration, 0),
		Params:                   params,
		ContractKey:              key,
		FillerAssetID:            tags[tagFillerAssetID],
		GrantorCollateralAssetID: tags[tagGrantorCollateralAsset],
		GrantorSettlementAssetID: tags[tagGrantorSettlementAsset],
		SettlementAssetID:        tags[tagSettlementAssetID],
		CollateralAssetID:        tags[tagCollateralAssetID],
		FundingTxid:              tags[tagMakerFundTxid],
	}

	// the asset tags repeat what the parameters already commit to
	for _, pair := range [][2]string{
		{order.FillerAssetID, params.FillerTokenAssetID},
		{order.GrantorCollateralAssetID, params.GrantorCollateralTokenAssetID},
		{order.GrantorSettlementAssetID, params.GrantorSettlementTokenAssetID},
		{order.SettlementAssetID, params.SettlementAssetID},
		{order.CollateralAssetID, params.CollateralAssetID},
	} {
		if pair[0] != pair[1] {
			return nil, fmt.Errorf("asset tag %s does not match parameters", pair[0])
		}
	}

	if err := validateTxid(order.FundingTxid); err != nil {
		return nil, err
	}
	return order, nil
}

func decodeTakerReply(ev *nostr.Event) (*domain.TakerReply, error) {
	if err := checkEvent(ev, domain.TakerReplyKind); err != nil {
		return nil, err
	}
	tags, err := findTags(ev, tagPubkey, tagEvent, tagMakerPubkey, tagTxid)
	if err != nil {
		return nil, err
	}

	if tags[tagPubkey] != ev.PubKey {
		return nil, fmt.Errorf("taker pubkey does not match event author")
	}
	if !nostr.IsValidPublicKey(tags[tagMakerPubkey]) {
		return nil, fmt.Errorf("invalid maker pubkey")
	}
	if err := validateTxid(tags[tagTxid]); err != nil {
		return nil, err
	}

	return &domain.TakerReply{
		EventID:      ev.ID,
		TakerPubkey:  ev.PubKey,
		MakerEventID: tags[tagEvent],
		MakerPubkey:  tags[tagMakerPubkey],
		Txid:         tags[tagTxid],
		CreatedAt:    ev.CreatedAt.Time(),
	}, nil
}

func checkEvent(ev *nostr.Event, kind int) error {
	if ev == nil {
		return fmt.Errorf("missing event")
	}
	if ev.Kind != kind {
		return fmt.Errorf("unexpected kind %d", ev.Kind)
	}
	if ev.ID != ev.GetID() {
		return fmt.Errorf("event id does not match content")
	}
	ok, err := ev.CheckSignature()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("invalid signature")
	}
	return nil
}

// findTags returns the value of the first tag of every name, failing if any
// is missing.
func findTags(ev *nostr.Event, names ...string) (map[string]string, error) {
	values := make(map[string]string, len(names))
	for _, name := range names {
		tag := ev.Tags.GetFirst([]string{name, ""})
		if tag == nil {
			return nil, fmt.Errorf("missing tag %s", name)
		}
		values[name] = tag.Value()
	}
	return values, nil
}

func validateTxid(txid string) error {
	buf, err := hex.DecodeString(txid)
	if err != nil || len(buf) != 32 {
		return fmt.Errorf("invalid txid %q", txid)
	}
	return nil
}
