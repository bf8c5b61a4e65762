package application

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/ark-network/dcd/internal/core/domain"
	"github.com/ark-network/dcd/internal/core/ports"
)

const (
	fillerTokenRole            = "filler_token"
	grantorCollateralTokenRole = "grantor_collateral_token"
	grantorSettlementTokenRole = "grantor_settlement_token"
)

var contractTokenRoles = []string{
	fillerTokenRole, grantorCollateralTokenRole, grantorSettlementTokenRole,
}

// contractEntropyName is the registry name of the issuance entropy of one of
// the tokens minted for a contract.
func contractEntropyName(key domain.ContractAddressKey, role string) string {
	return fmt.Sprintf("%s/%s", key.Commitment, role)
}

func randomContractHash() ([]byte, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func toMinted(name string, issuance ports.IssuanceResult) MintedAsset {
	return MintedAsset{
		Name:    name,
		Entropy: issuance.Entropy.String(),
		AssetID: issuance.AssetID,
		TokenID: issuance.TokenID,
	}
}

func loadEntropy(
	ctx context.Context, registry ports.Registry, name string,
) (domain.AssetEntropy, error) {
	entropy, err := registry.Get(ctx, name)
	if err != nil {
		return domain.AssetEntropy{}, fmt.Errorf("registry: %w", err)
	}
	return entropy, nil
}
