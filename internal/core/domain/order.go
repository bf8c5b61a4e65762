package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	MakerOrderKind = 9901
	TakerReplyKind = 9902

	// MakerOrderLifetime is how long an announcement stays discoverable.
	MakerOrderLifetime = 31 * 24 * time.Hour

	notAvailable = "n/a"
)

// MakerOrder is a decoded Maker announcement.
type MakerOrder struct {
	EventID     string
	MakerPubkey string
	CreatedAt   time.Time
	ExpiresAt   time.Time

	Params      ContractParameters
	ContractKey ContractAddressKey

	FillerAssetID            string
	GrantorCollateralAssetID string
	GrantorSettlementAssetID string
	SettlementAssetID        string
	CollateralAssetID        string

	FundingTxid string
}

// IsActive reports whether the order is still discoverable at now.
func (o MakerOrder) IsActive(now time.Time) bool {
	return o.ExpiresAt.Unix() > now.Unix()
}

// TakerReply is a decoded Taker answer to a Maker order.
type TakerReply struct {
	EventID      string
	TakerPubkey  string
	MakerEventID string
	MakerPubkey  string
	Txid         string
	CreatedAt    time.Time
}

// OrderSummary is the display projection of a Maker order. Zero amounts and
// timestamps mean the field was not set.
type OrderSummary struct {
	EventID            string `json:"event_id"`
	Time               string `json:"time"`
	TakerFundStart     string `json:"taker_fund_start"`
	TakerFundEnd       string `json:"taker_fund_end"`
	StrikePrice        string `json:"strike_price"`
	Principal          string `json:"principal"`
	IncentiveBps       uint64 `json:"incentive_basis_points"`
	SettlementHeight   uint32 `json:"settlement_height"`
	Oracle             string `json:"oracle"`
	CollateralAssetID  string `json:"collateral_asset_id"`
	SettlementAssetID  string `json:"settlement_asset_id"`
	InterestCollateral string `json:"interest_collateral"`
	TotalCollateral    string `json:"total_collateral"`
	InterestAsset      string `json:"interest_asset"`
	TotalAsset         string `json:"total_asset"`
	FundingTxid        string `json:"maker_fund_tx_id"`
}

func NewOrderSummary(o MakerOrder) OrderSummary {
	p := o.Params
	return OrderSummary{
		EventID:            o.EventID,
		Time:               o.CreatedAt.UTC().Format(time.RFC3339),
		TakerFundStart:     formatTimestamp(p.TakerFundingStartTime),
		TakerFundEnd:       formatTimestamp(p.TakerFundingEndTime),
		StrikePrice:        formatAmount(p.StrikePrice),
		Principal:          formatAmount(p.Ratio.PrincipalCollateralAmount),
		IncentiveBps:       p.IncentiveBasisPoints,
		SettlementHeight:   p.SettlementHeight,
		Oracle:             shorten(p.OraclePublicKey, 8),
		CollateralAssetID:  o.CollateralAssetID,
		SettlementAssetID:  o.SettlementAssetID,
		InterestCollateral: formatAmount(p.Ratio.InterestCollateralAmount),
		TotalCollateral:    formatAmount(p.Ratio.TotalCollateralAmount),
		InterestAsset:      formatAmount(p.Ratio.InterestAssetAmount),
		TotalAsset:         formatAmount(p.Ratio.TotalAssetAmount),
		FundingTxid:        o.FundingTxid,
	}
}

func (s OrderSummary) String() string {
	lines := []string{
		fmt.Sprintf("[Maker Order] event_id=%s time=%s", s.EventID, s.Time),
		fmt.Sprintf("taker_fund_[start..end]=%s..%s", s.TakerFundStart, s.TakerFundEnd),
		fmt.Sprintf("strike=%s", s.StrikePrice),
		fmt.Sprintf("principal=%s", s.Principal),
		fmt.Sprintf("incentive=%dbps", s.IncentiveBps),
		fmt.Sprintf("height=%d", s.SettlementHeight),
		fmt.Sprintf("oracle=%s", s.Oracle),
		fmt.Sprintf("collateral=%s", s.CollateralAssetID),
		fmt.Sprintf("settlement=%s", s.SettlementAssetID),
		fmt.Sprintf("interest_collateral=%s", s.InterestCollateral),
		fmt.Sprintf("total_collateral=%s", s.TotalCollateral),
		fmt.Sprintf("interest_asset=%s", s.InterestAsset),
		fmt.Sprintf("total_asset=%s", s.TotalAsset),
		fmt.Sprintf("maker_fund_tx_id=%s", s.FundingTxid),
	}
	return strings.Join(lines, "\n\t")
}

func formatAmount(v uint64) string {
	if v == 0 {
		return notAvailable
	}
	return strconv.FormatUint(v, 10)
}

func formatTimestamp(ts uint32) string {
	if ts == 0 {
		return notAvailable
	}
	return time.Unix(int64(ts), 0).UTC().Format(time.RFC3339)
}

func shorten(s string, n int) string {
	if len(s) == 0 {
		return notAvailable
	}
	if len(s) > n {
		return s[:n]
	}
	return s
}
