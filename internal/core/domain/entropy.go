package domain

import (
	"encoding/hex"
	"fmt"

	"github.com/vulpemventures/go-elements/transaction"
)

// AssetEntropy is the 32-byte issuance entropy an asset identifier is derived
// from. It is kept in internal byte order; its text form is byte-reversed.
type AssetEntropy [32]byte

// NewAssetEntropyFromString parses the little-endian (display order) hex form.
func NewAssetEntropyFromString(s string) (AssetEntropy, error) {
	var e AssetEntropy
	buf, err := decodeHash(s)
	if err != nil {
		return e, err
	}
	copy(e[:], reverseBytes(buf))
	return e, nil
}

// NewAssetEntropy wraps an entropy in internal byte order, as computed by the
// issuance functions of go-elements.
func NewAssetEntropy(internal []byte) (AssetEntropy, error) {
	var e AssetEntropy
	if len(internal) != len(e) {
		return e, fmt.Errorf("%w: entropy must be 32 bytes, got %d", ErrMalformedHex, len(internal))
	}
	copy(e[:], internal)
	return e, nil
}

func (e AssetEntropy) String() string {
	return hex.EncodeToString(reverseBytes(e[:]))
}

// Bytes returns a copy of the entropy in internal byte order.
func (e AssetEntropy) Bytes() []byte {
	return append([]byte{}, e[:]...)
}

// AssetID returns the identifier derived from the entropy, in display order.
func (e AssetEntropy) AssetID() (string, error) {
	asset, err := transaction.ComputeAsset(e[:])
	if err != nil {
		return "", fmt.Errorf("failed to compute asset from entropy: %w", err)
	}
	return hex.EncodeToString(reverseBytes(asset)), nil
}

// ReissuanceTokenID returns the identifier of the reissuance token of the
// issuance. Tokens of explicit issuances use flag 0.
func (e AssetEntropy) ReissuanceTokenID(confidentialIssuance bool) (string, error) {
	flag := uint(0)
	if confidentialIssuance {
		flag = 1
	}
	token, err := transaction.ComputeReissuanceToken(e[:], flag)
	if err != nil {
		return "", fmt.Errorf("failed to compute reissuance token from entropy: %w", err)
	}
	return hex.EncodeToString(reverseBytes(token)), nil
}

// AssetIDFromEntropy converts a little-endian entropy hex string into its
// asset identifier. It is the only conversion path from entropy to asset id.
func AssetIDFromEntropy(entropyHex string) (string, error) {
	e, err := NewAssetEntropyFromString(entropyHex)
	if err != nil {
		return "", err
	}
	return e.AssetID()
}

// ValidateAssetID checks that s is a 32-byte hex asset identifier.
func ValidateAssetID(s string) error {
	_, err := decodeHash(s)
	return err
}

// DcdAssets is either a set of asset identifiers or a set of entropies the
// identifiers derive from.
type DcdAssets interface {
	ToAssetIDs() (DcdAssetIDs, error)
}

// DcdAssetIDs holds the four identifiers a contract is parameterized with.
type DcdAssetIDs struct {
	FillerToken            string
	GrantorCollateralToken string
	GrantorSettlementToken string
	SettlementAsset        string
}

func (a DcdAssetIDs) ToAssetIDs() (DcdAssetIDs, error) {
	for _, id := range []string{
		a.FillerToken, a.GrantorCollateralToken, a.GrantorSettlementToken, a.SettlementAsset,
	} {
		if err := ValidateAssetID(id); err != nil {
			return DcdAssetIDs{}, err
		}
	}
	return a, nil
}

// DcdAssetEntropies holds the entropies of the four contract assets, in
// little-endian hex.
type DcdAssetEntropies struct {
	FillerToken            string
	GrantorCollateralToken string
	GrantorSettlementToken string
	SettlementAsset        string
}

func (a DcdAssetEntropies) ToAssetIDs() (DcdAssetIDs, error) {
	ids := make([]string, 0, 4)
	for _, e := range []string{
		a.FillerToken, a.GrantorCollateralToken, a.GrantorSettlementToken, a.SettlementAsset,
	} {
		id, err := AssetIDFromEntropy(e)
		if err != nil {
			return DcdAssetIDs{}, err
		}
		ids = append(ids, id)
	}
	return DcdAssetIDs{
		FillerToken:            ids[0],
		GrantorCollateralToken: ids[1],
		GrantorSettlementToken: ids[2],
		SettlementAsset:        ids[3],
	}, nil
}

func decodeHash(s string) ([]byte, error) {
	buf, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedHex, err)
	}
	if len(buf) != 32 {
		return nil, fmt.Errorf("%w: expected 32 bytes, got %d", ErrMalformedHex, len(buf))
	}
	return buf, nil
}

func reverseBytes(buf []byte) []byte {
	out := make([]byte, len(buf))
	for i := range buf {
		out[len(buf)-1-i] = buf[i]
	}
	return out
}

// NewIssuanceEntropy computes the entropy of a new issuance made by spending
// ref, committing to contractHash.
func NewIssuanceEntropy(ref UtxoRef, contractHash []byte) (AssetEntropy, error) {
	txHash, err := decodeHash(ref.Txid)
	if err != nil {
		return AssetEntropy{}, fmt.Errorf("%w: %s", ErrMalformedUtxoRef, err)
	}
	if len(contractHash) != 32 {
		return AssetEntropy{}, fmt.Errorf("contract hash must be 32 bytes, got %d", len(contractHash))
	}
	entropy, err := transaction.ComputeEntropy(reverseBytes(txHash), ref.VOut, contractHash)
	if err != nil {
		return AssetEntropy{}, fmt.Errorf("failed to compute issuance entropy: %w", err)
	}
	return NewAssetEntropy(entropy)
}
