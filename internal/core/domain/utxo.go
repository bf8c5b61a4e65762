package domain

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// UtxoRef points to a spendable output.
type UtxoRef struct {
	Txid string
	VOut uint32
}

func (u UtxoRef) String() string {
	return fmt.Sprintf("%s:%d", u.Txid, u.VOut)
}

// ParseUtxoRef parses the "<txid>:<vout>" form.
func ParseUtxoRef(s string) (UtxoRef, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return UtxoRef{}, fmt.Errorf("%w: %q", ErrMalformedUtxoRef, s)
	}
	if buf, err := hex.DecodeString(parts[0]); err != nil || len(buf) != 32 {
		return UtxoRef{}, fmt.Errorf("%w: invalid txid in %q", ErrMalformedUtxoRef, s)
	}
	vout, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return UtxoRef{}, fmt.Errorf("%w: invalid vout in %q", ErrMalformedUtxoRef, s)
	}
	return UtxoRef{Txid: strings.ToLower(parts[0]), VOut: uint32(vout)}, nil
}

// ParseUtxoRefs parses every element of refs, preserving order.
func ParseUtxoRefs(refs []string) ([]UtxoRef, error) {
	out := make([]UtxoRef, 0, len(refs))
	for _, r := range refs {
		ref, err := ParseUtxoRef(r)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, nil
}
