package domain

import (
	"encoding/hex"
	"fmt"
	"math/bits"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

const maxBasisPoints = 10000

// ContractParameters is the immutable parameter set of a DCD contract.
type ContractParameters struct {
	TakerFundingStartTime   uint32
	TakerFundingEndTime     uint32
	ContractExpiryTime      uint32
	EarlyTerminationEndTime uint32
	SettlementHeight        uint32

	StrikePrice          uint64
	IncentiveBasisPoints uint64
	FeeBasisPoints       uint64

	FillerTokenAssetID            string
	GrantorCollateralTokenAssetID string
	GrantorSettlementTokenAssetID string
	SettlementAssetID             string
	CollateralAssetID             string

	// x-only, hex encoded
	OraclePublicKey string

	Ratio RatioArguments
}

// RatioArguments describes the amounts backing one fully funded contract.
type RatioArguments struct {
	PrincipalCollateralAmount    uint64
	FillerPerPrincipalCollateral uint64
	FillerTokenAmount            uint64
	InterestCollateralAmount     uint64
	TotalCollateralAmount        uint64
	PrincipalAssetAmount         uint64
	InterestAssetAmount          uint64
	TotalAssetAmount             uint64
}

// NewRatioArguments derives all the amounts of a contract from its principal.
// fillerPerPrincipal is the amount of collateral backed by one filler token.
func NewRatioArguments(
	principal, fillerPerPrincipal, incentiveBasisPoints, strikePrice uint64,
) (RatioArguments, error) {
	if principal == 0 {
		return RatioArguments{}, fmt.Errorf("%w: principal collateral amount must be > 0", ErrInvalidRatio)
	}
	if fillerPerPrincipal == 0 {
		return RatioArguments{}, fmt.Errorf("%w: filler per principal collateral must be > 0", ErrInvalidRatio)
	}
	if incentiveBasisPoints > maxBasisPoints {
		return RatioArguments{}, fmt.Errorf("%w: incentive basis points out of range", ErrInvalidRatio)
	}
	if principal%fillerPerPrincipal != 0 {
		return RatioArguments{}, fmt.Errorf(
			"%w: principal %d is not a multiple of filler per principal %d",
			ErrInvalidRatio, principal, fillerPerPrincipal,
		)
	}

	interestCollateral, err := basisPointsOf(principal, incentiveBasisPoints)
	if err != nil {
		return RatioArguments{}, err
	}
	principalAsset, err := CheckedMul(principal, strikePrice)
	if err != nil {
		return RatioArguments{}, err
	}
	interestAsset, err := basisPointsOf(principalAsset, incentiveBasisPoints)
	if err != nil {
		return RatioArguments{}, err
	}
	totalCollateral, err := add(principal, interestCollateral)
	if err != nil {
		return RatioArguments{}, err
	}
	totalAsset, err := add(principalAsset, interestAsset)
	if err != nil {
		return RatioArguments{}, err
	}

	r := RatioArguments{
		PrincipalCollateralAmount:    principal,
		FillerPerPrincipalCollateral: fillerPerPrincipal,
		FillerTokenAmount:            principal / fillerPerPrincipal,
		InterestCollateralAmount:     interestCollateral,
		TotalCollateralAmount:        totalCollateral,
		PrincipalAssetAmount:         principalAsset,
		InterestAssetAmount:          interestAsset,
		TotalAssetAmount:             totalAsset,
	}
	if err := r.Validate(); err != nil {
		return RatioArguments{}, err
	}
	return r, nil
}

// Validate checks that the derived amounts are coherent and that every
// per-token quantity is an exact integer.
func (r RatioArguments) Validate() error {
	if r.PrincipalCollateralAmount == 0 || r.FillerPerPrincipalCollateral == 0 {
		return fmt.Errorf("%w: principal and filler ratio must be > 0", ErrInvalidRatio)
	}
	if r.FillerTokenAmount*r.FillerPerPrincipalCollateral != r.PrincipalCollateralAmount {
		return fmt.Errorf("%w: filler token amount does not match principal", ErrInvalidRatio)
	}
	if r.PrincipalCollateralAmount+r.InterestCollateralAmount != r.TotalCollateralAmount ||
		r.TotalCollateralAmount < r.PrincipalCollateralAmount {
		return fmt.Errorf("%w: total collateral amount mismatch", ErrInvalidRatio)
	}
	if r.PrincipalAssetAmount+r.InterestAssetAmount != r.TotalAssetAmount ||
		r.TotalAssetAmount < r.PrincipalAssetAmount {
		return fmt.Errorf("%w: total asset amount mismatch", ErrInvalidRatio)
	}
	for name, v := range map[string]uint64{
		"interest collateral": r.InterestCollateralAmount,
		"total collateral":    r.TotalCollateralAmount,
		"total asset":         r.TotalAssetAmount,
	} {
		if v%r.FillerTokenAmount != 0 {
			return fmt.Errorf(
				"%w: %s amount %d is not divisible by %d filler tokens",
				ErrInvalidRatio, name, v, r.FillerTokenAmount,
			)
		}
	}
	return nil
}

// GrantorCollateralPerToken is the collateral released by burning one
// grantor-collateral token before the early termination deadline.
func (r RatioArguments) GrantorCollateralPerToken() uint64 {
	return r.InterestCollateralAmount / r.FillerTokenAmount
}

// GrantorSettlementPerToken is the settlement asset released by burning one
// grantor-settlement token before the early termination deadline.
func (r RatioArguments) GrantorSettlementPerToken() uint64 {
	return r.TotalAssetAmount / r.FillerTokenAmount
}

// SettlementCollateralPerToken is the collateral paid per burned token at
// settlement, when the collateral leg is the one paid out.
func (r RatioArguments) SettlementCollateralPerToken() uint64 {
	return r.TotalCollateralAmount / r.FillerTokenAmount
}

// SettlementAssetPerToken is the settlement asset paid per burned token at
// settlement, when the settlement leg is the one paid out.
func (r RatioArguments) SettlementAssetPerToken() uint64 {
	return r.TotalAssetAmount / r.FillerTokenAmount
}

// AssetIDs returns the four contract assets.
func (p ContractParameters) AssetIDs() DcdAssetIDs {
	return DcdAssetIDs{
		FillerToken:            p.FillerTokenAssetID,
		GrantorCollateralToken: p.GrantorCollateralTokenAssetID,
		GrantorSettlementToken: p.GrantorSettlementTokenAssetID,
		SettlementAsset:        p.SettlementAssetID,
	}
}

// OracleKey parses the oracle x-only public key.
func (p ContractParameters) OracleKey() ([]byte, error) {
	buf, err := hex.DecodeString(p.OraclePublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: oracle public key: %s", ErrInvalidParameters, err)
	}
	if _, err := schnorr.ParsePubKey(buf); err != nil {
		return nil, fmt.Errorf("%w: oracle public key: %s", ErrInvalidParameters, err)
	}
	return buf, nil
}

func (p ContractParameters) Validate() error {
	if p.TakerFundingEndTime == 0 || p.TakerFundingStartTime > p.TakerFundingEndTime {
		return fmt.Errorf("%w: empty taker funding window", ErrInvalidParameters)
	}
	if p.EarlyTerminationEndTime > p.ContractExpiryTime {
		return fmt.Errorf(
			"%w: early termination end time is after contract expiry", ErrInvalidParameters,
		)
	}
	if p.IncentiveBasisPoints > maxBasisPoints || p.FeeBasisPoints > maxBasisPoints {
		return fmt.Errorf("%w: basis points out of range", ErrInvalidParameters)
	}

	ids := []string{
		p.FillerTokenAssetID, p.GrantorCollateralTokenAssetID,
		p.GrantorSettlementTokenAssetID, p.SettlementAssetID, p.CollateralAssetID,
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if err := ValidateAssetID(id); err != nil {
			return fmt.Errorf("%w: asset id %q: %s", ErrInvalidParameters, id, err)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: duplicate asset id %s", ErrInvalidParameters, id)
		}
		seen[id] = struct{}{}
	}

	if _, err := p.OracleKey(); err != nil {
		return err
	}

	if err := p.Ratio.Validate(); err != nil {
		return err
	}
	expected, err := NewRatioArguments(
		p.Ratio.PrincipalCollateralAmount, p.Ratio.FillerPerPrincipalCollateral,
		p.IncentiveBasisPoints, p.StrikePrice,
	)
	if err != nil {
		return err
	}
	if expected != p.Ratio {
		return fmt.Errorf(
			"%w: ratio arguments do not match strike price and incentive", ErrInvalidRatio,
		)
	}
	return nil
}

func basisPointsOf(amount, bps uint64) (uint64, error) {
	v, err := CheckedMul(amount, bps)
	if err != nil {
		return 0, err
	}
	return v / maxBasisPoints, nil
}

// CheckedMul returns a*b, failing with ErrInvalidRatio on overflow.
func CheckedMul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, fmt.Errorf("%w: %d * %d overflows", ErrInvalidRatio, a, b)
	}
	return lo, nil
}

func add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: %d + %d overflows", ErrInvalidRatio, a, b)
	}
	return sum, nil
}

const (
	// TakerReceivesCollateral: the taker is paid the collateral leg and the
	// maker the settlement leg.
	TakerReceivesCollateral SettlementOutcome = iota
	// TakerReceivesSettlementAsset: the taker is paid the settlement leg and
	// the maker the collateral leg.
	TakerReceivesSettlementAsset
)

type SettlementOutcome int

func (o SettlementOutcome) String() string {
	if o == TakerReceivesSettlementAsset {
		return "TAKER_RECEIVES_SETTLEMENT_ASSET"
	}
	return "TAKER_RECEIVES_COLLATERAL"
}
