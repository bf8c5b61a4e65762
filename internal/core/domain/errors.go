package domain

import "errors"

// Validation errors are raised before any network effect and are never retried.
var (
	ErrInvalidUtxoCount       = errors.New("invalid number of utxos for stage")
	ErrFeeExceedsInput        = errors.New("fee exceeds input value")
	ErrInvalidPartCount       = errors.New("number of parts must be at least 1")
	ErrSplitPartTooSmall      = errors.New("split parts would carry no value")
	ErrDuplicateName          = errors.New("name already exists")
	ErrNotFound               = errors.New("not found")
	ErrMalformedHex           = errors.New("malformed hex")
	ErrMalformedUtxoRef       = errors.New("malformed utxo reference")
	ErrMalformedEncoding      = errors.New("malformed contract parameters encoding")
	ErrMalformedContractKey   = errors.New("malformed contract address key")
	ErrContractKeyMismatch    = errors.New("contract address key does not match parameters")
	ErrInvalidParameters      = errors.New("invalid contract parameters")
	ErrInvalidRatio           = errors.New("invalid ratio arguments")
	ErrAssetRoleMismatch      = errors.New("utxo asset does not match its expected role")
	ErrInsufficientFunds      = errors.New("inputs do not cover outputs")
	ErrIllegalTransition      = errors.New("illegal contract state transition")
	ErrOutsideFundingWindow   = errors.New("outside taker funding window")
	ErrEarlyTerminationClosed = errors.New("early termination deadline has passed")
	ErrSettlementNotReached   = errors.New("settlement height not reached")
)

// Construction errors.
var (
	ErrMissingValue        = errors.New("no value in utxo")
	ErrAmountProofMismatch = errors.New("amount proofs do not balance against spent utxos")
)

// Network and discovery errors. These are potentially transient.
var (
	ErrMissingSigner    = errors.New("relay client requires a signing key for this operation")
	ErrNoRelayReachable = errors.New("no relay reachable")
)

var validationErrors = []error{
	ErrInvalidUtxoCount, ErrFeeExceedsInput, ErrInvalidPartCount, ErrSplitPartTooSmall,
	ErrDuplicateName, ErrNotFound, ErrMalformedHex, ErrMalformedUtxoRef,
	ErrMalformedEncoding, ErrMalformedContractKey, ErrContractKeyMismatch,
	ErrInvalidParameters, ErrInvalidRatio, ErrAssetRoleMismatch,
	ErrInsufficientFunds, ErrIllegalTransition, ErrOutsideFundingWindow,
	ErrEarlyTerminationClosed, ErrSettlementNotReached,
}

// IsValidation reports whether err belongs to the validation category.
func IsValidation(err error) bool {
	for _, e := range validationErrors {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// IsNetwork reports whether err belongs to the network/discovery category.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrMissingSigner) || errors.Is(err, ErrNoRelayReachable)
}
