package ports

import (
	"context"

	"github.com/ark-network/dcd/internal/core/domain"
)

// Registry is the local key-value store of asset entropies and contract
// parameters. Writes never overwrite an existing key.
type Registry interface {
	Exists(ctx context.Context, name string) (bool, error)
	Put(ctx context.Context, name string, entropy domain.AssetEntropy) error
	Get(ctx context.Context, name string) (domain.AssetEntropy, error)
	ListEntropies(ctx context.Context) (map[string]domain.AssetEntropy, error)

	PutContract(ctx context.Context, key string, encodedParams []byte) error
	GetContract(ctx context.Context, key string) ([]byte, error)
	ListContracts(ctx context.Context) ([]string, error)
	// SaveContract stores a contract with the entropies of its tokens at once.
	// Nothing is written if any of the names or the key is already taken.
	SaveContract(
		ctx context.Context, key string, encodedParams []byte,
		entropies map[string]domain.AssetEntropy,
	) error

	Close()
}
