package domain

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/ark-network/dcd/pkg/bufferutil"
)

// EncodedContractParametersSize is the length of the fixed binary encoding.
const EncodedContractParametersSize = 5*4 + 3*8 + 6*32 + 8*8

// Encode serializes the parameters with a fixed little-endian layout. Asset
// ids are written in internal byte order.
func (p ContractParameters) Encode() ([]byte, error) {
	s := bufferutil.NewSerializer(nil)

	for _, v := range []uint32{
		p.TakerFundingStartTime, p.TakerFundingEndTime, p.ContractExpiryTime,
		p.EarlyTerminationEndTime, p.SettlementHeight,
	} {
		if err := s.WriteUint32(v); err != nil {
			return nil, err
		}
	}
	for _, v := range []uint64{p.StrikePrice, p.IncentiveBasisPoints, p.FeeBasisPoints} {
		if err := s.WriteUint64(v); err != nil {
			return nil, err
		}
	}
	for _, id := range []string{
		p.FillerTokenAssetID, p.GrantorCollateralTokenAssetID,
		p.GrantorSettlementTokenAssetID, p.SettlementAssetID, p.CollateralAssetID,
	} {
		buf, err := decodeHash(id)
		if err != nil {
			return nil, fmt.Errorf("asset id %q: %w", id, err)
		}
		if err := s.WriteFixedSlice(reverseBytes(buf), 32); err != nil {
			return nil, err
		}
	}

	oracle, err := hex.DecodeString(p.OraclePublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: oracle public key: %s", ErrMalformedHex, err)
	}
	if err := s.WriteFixedSlice(oracle, 32); err != nil {
		return nil, fmt.Errorf("oracle public key: %w", err)
	}

	r := p.Ratio
	for _, v := range []uint64{
		r.PrincipalCollateralAmount, r.FillerPerPrincipalCollateral, r.FillerTokenAmount,
		r.InterestCollateralAmount, r.TotalCollateralAmount, r.PrincipalAssetAmount,
		r.InterestAssetAmount, r.TotalAssetAmount,
	} {
		if err := s.WriteUint64(v); err != nil {
			return nil, err
		}
	}

	return s.Bytes(), nil
}

// EncodeToHex returns the hex form of Encode.
func (p ContractParameters) EncodeToHex() (string, error) {
	buf, err := p.Encode()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// DecodeContractParameters parses and validates the fixed binary encoding.
func DecodeContractParameters(buf []byte) (ContractParameters, error) {
	if len(buf) != EncodedContractParametersSize {
		return ContractParameters{}, fmt.Errorf(
			"%w: expected %d bytes, got %d",
			ErrMalformedEncoding, EncodedContractParametersSize, len(buf),
		)
	}

	d := bufferutil.NewDeserializer(bytes.NewBuffer(buf))
	p := ContractParameters{}

	for _, v := range []*uint32{
		&p.TakerFundingStartTime, &p.TakerFundingEndTime, &p.ContractExpiryTime,
		&p.EarlyTerminationEndTime, &p.SettlementHeight,
	} {
		n, err := d.ReadUint32()
		if err != nil {
			return ContractParameters{}, fmt.Errorf("%w: %s", ErrMalformedEncoding, err)
		}
		*v = n
	}
	for _, v := range []*uint64{&p.StrikePrice, &p.IncentiveBasisPoints, &p.FeeBasisPoints} {
		n, err := d.ReadUint64()
		if err != nil {
			return ContractParameters{}, fmt.Errorf("%w: %s", ErrMalformedEncoding, err)
		}
		*v = n
	}
	for _, v := range []*string{
		&p.FillerTokenAssetID, &p.GrantorCollateralTokenAssetID,
		&p.GrantorSettlementTokenAssetID, &p.SettlementAssetID, &p.CollateralAssetID,
	} {
		b, err := d.ReadSlice(32)
		if err != nil {
			return ContractParameters{}, fmt.Errorf("%w: %s", ErrMalformedEncoding, err)
		}
		*v = hex.EncodeToString(reverseBytes(b))
	}

	oracle, err := d.ReadSlice(32)
	if err != nil {
		return ContractParameters{}, fmt.Errorf("%w: %s", ErrMalformedEncoding, err)
	}
	p.OraclePublicKey = hex.EncodeToString(oracle)

	r := &p.Ratio
	for _, v := range []*uint64{
		&r.PrincipalCollateralAmount, &r.FillerPerPrincipalCollateral, &r.FillerTokenAmount,
		&r.InterestCollateralAmount, &r.TotalCollateralAmount, &r.PrincipalAssetAmount,
		&r.InterestAssetAmount, &r.TotalAssetAmount,
	} {
		n, err := d.ReadUint64()
		if err != nil {
			return ContractParameters{}, fmt.Errorf("%w: %s", ErrMalformedEncoding, err)
		}
		*v = n
	}

	if d.Len() != 0 {
		return ContractParameters{}, fmt.Errorf("%w: trailing bytes", ErrMalformedEncoding)
	}
	if err := p.Validate(); err != nil {
		return ContractParameters{}, err
	}
	return p, nil
}

// DecodeContractParametersFromHex is the inverse of EncodeToHex.
func DecodeContractParametersFromHex(s string) (ContractParameters, error) {
	buf, err := hex.DecodeString(s)
	if err != nil {
		return ContractParameters{}, fmt.Errorf("%w: %s", ErrMalformedHex, err)
	}
	return DecodeContractParameters(buf)
}
