package domain

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

const contractKeySeparator = ":"

// ContractAddressKey identifies a contract instance both on chain and in the
// local registry. Its string form is "<owner x-only key>:<commitment>:<address>".
type ContractAddressKey struct {
	OwnerKey   string
	Commitment string
	Address    string
}

func (k ContractAddressKey) String() string {
	return strings.Join([]string{k.OwnerKey, k.Commitment, k.Address}, contractKeySeparator)
}

// OwnerPubKey returns the owner x-only key bytes.
func (k ContractAddressKey) OwnerPubKey() ([]byte, error) {
	buf, err := hex.DecodeString(k.OwnerKey)
	if err != nil {
		return nil, fmt.Errorf("%w: owner key: %s", ErrMalformedContractKey, err)
	}
	if _, err := schnorr.ParsePubKey(buf); err != nil {
		return nil, fmt.Errorf("%w: owner key: %s", ErrMalformedContractKey, err)
	}
	return buf, nil
}

// ParseContractAddressKey checks the syntax of a serialized key. Whether the
// key belongs to a given parameter set is checked by re-deriving it.
func ParseContractAddressKey(s string) (ContractAddressKey, error) {
	parts := strings.Split(s, contractKeySeparator)
	if len(parts) != 3 {
		return ContractAddressKey{}, fmt.Errorf(
			"%w: expected 3 parts, got %d", ErrMalformedContractKey, len(parts),
		)
	}

	k := ContractAddressKey{OwnerKey: parts[0], Commitment: parts[1], Address: parts[2]}
	if _, err := k.OwnerPubKey(); err != nil {
		return ContractAddressKey{}, err
	}
	commitment, err := hex.DecodeString(k.Commitment)
	if err != nil || len(commitment) != 32 {
		return ContractAddressKey{}, fmt.Errorf("%w: invalid commitment", ErrMalformedContractKey)
	}
	if len(k.Address) == 0 {
		return ContractAddressKey{}, fmt.Errorf("%w: missing address", ErrMalformedContractKey)
	}
	return k, nil
}
