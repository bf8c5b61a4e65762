package application

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/ark-network/dcd/internal/core/domain"
	"github.com/ark-network/dcd/internal/core/ports"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	log "github.com/sirupsen/logrus"
)

// RegistryService manages the named asset entropies and the contract
// parameters known locally, and the helper transactions that create them.
type RegistryService interface {
	Faucet(ctx context.Context, name string, utxo domain.UtxoRef, amount, fee uint64) (*StageResult, error)
	Reissue(
		ctx context.Context, name string, tokenUtxo, feeUtxo domain.UtxoRef, amount, fee uint64,
	) (*StageResult, error)
	Split(ctx context.Context, utxo domain.UtxoRef, parts, fee uint64) (*StageResult, error)

	Entropy(ctx context.Context, name string) (*EntropyInfo, error)
	ListEntropies(ctx context.Context) ([]EntropyInfo, error)

	Export(ctx context.Context, contractKey string) (string, error)
	Import(ctx context.Context, contractKey, paramsHex string) error
	ListContracts(ctx context.Context) ([]string, error)
}

// The wallet and builder may be nil when only contracts and entropies are
// read or imported.
type registryService struct {
	wallet   ports.WalletService
	engine   ports.ContractEngine
	builder  ports.TxBuilder
	registry ports.Registry
}

func NewRegistryService(
	wallet ports.WalletService, engine ports.ContractEngine,
	builder ports.TxBuilder, registry ports.Registry,
) RegistryService {
	return &registryService{wallet, engine, builder, registry}
}

func (s *registryService) Faucet(
	ctx context.Context, name string, utxo domain.UtxoRef, amount, fee uint64,
) (*StageResult, error) {
	if len(name) == 0 {
		return nil, fmt.Errorf("missing asset name")
	}
	if err := s.checkWallet(); err != nil {
		return nil, err
	}
	exists, err := s.registry.Exists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateName, name)
	}

	res, err := s.builder.Issue(ctx, ports.IssueRequest{
		Utxo:        utxo,
		AssetAmount: amount,
		Fee:         fee,
		Script:      s.wallet.Script(),
	})
	if err != nil {
		return nil, err
	}
	if len(res.Issuances) != 1 {
		return nil, fmt.Errorf("expected 1 issuance, got %d", len(res.Issuances))
	}
	issuance := res.Issuances[0]

	if err := s.registry.Put(ctx, name, issuance.Entropy); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	log.WithFields(log.Fields{
		"name":  name,
		"asset": issuance.AssetID,
	}).Debug("asset issued")

	return &StageResult{
		Stage:  domain.StageIssue,
		Tx:     res.Tx,
		Txid:   res.Txid,
		TxHex:  res.TxHex,
		Minted: []MintedAsset{toMinted(name, issuance)},
	}, nil
}

func (s *registryService) Reissue(
	ctx context.Context, name string, tokenUtxo, feeUtxo domain.UtxoRef, amount, fee uint64,
) (*StageResult, error) {
	if err := s.checkWallet(); err != nil {
		return nil, err
	}
	entropy, err := loadEntropy(ctx, s.registry, name)
	if err != nil {
		return nil, err
	}

	res, err := s.builder.Reissue(ctx, ports.ReissueRequest{
		TokenUtxo:   tokenUtxo,
		FeeUtxo:     feeUtxo,
		Entropy:     entropy,
		AssetAmount: amount,
		Fee:         fee,
		Script:      s.wallet.Script(),
	})
	if err != nil {
		return nil, err
	}

	minted := make([]MintedAsset, 0, len(res.Issuances))
	for _, issuance := range res.Issuances {
		minted = append(minted, toMinted(name, issuance))
	}
	return &StageResult{
		Stage:  domain.StageReissue,
		Tx:     res.Tx,
		Txid:   res.Txid,
		TxHex:  res.TxHex,
		Minted: minted,
	}, nil
}

func (s *registryService) Split(
	ctx context.Context, utxo domain.UtxoRef, parts, fee uint64,
) (*StageResult, error) {
	if err := s.checkWallet(); err != nil {
		return nil, err
	}
	res, err := s.builder.Split(ctx, ports.SplitRequest{
		Utxo:   utxo,
		Parts:  parts,
		Fee:    fee,
		Script: s.wallet.Script(),
	})
	if err != nil {
		return nil, err
	}
	return &StageResult{
		Stage: domain.StageSplit,
		Tx:    res.Tx,
		Txid:  res.Txid,
		TxHex: res.TxHex,
	}, nil
}

func (s *registryService) Entropy(ctx context.Context, name string) (*EntropyInfo, error) {
	entropy, err := loadEntropy(ctx, s.registry, name)
	if err != nil {
		return nil, err
	}
	return newEntropyInfo(name, entropy)
}

func (s *registryService) ListEntropies(ctx context.Context) ([]EntropyInfo, error) {
	entropies, err := s.registry.ListEntropies(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}

	names := make([]string, 0, len(entropies))
	for name := range entropies {
		names = append(names, name)
	}
	sort.Strings(names)

	list := make([]EntropyInfo, 0, len(names))
	for _, name := range names {
		info, err := newEntropyInfo(name, entropies[name])
		if err != nil {
			return nil, err
		}
		list = append(list, *info)
	}
	return list, nil
}

func (s *registryService) Export(ctx context.Context, contractKey string) (string, error) {
	if _, err := domain.ParseContractAddressKey(contractKey); err != nil {
		return "", err
	}
	buf, err := s.registry.GetContract(ctx, contractKey)
	if err != nil {
		return "", fmt.Errorf("registry: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Import stores the parameters of a contract created elsewhere, once the key
// is re-derived from them.
func (s *registryService) Import(ctx context.Context, contractKey, paramsHex string) error {
	key, err := domain.ParseContractAddressKey(contractKey)
	if err != nil {
		return err
	}
	buf, err := hex.DecodeString(paramsHex)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrMalformedHex, err)
	}
	params, err := domain.DecodeContractParameters(buf)
	if err != nil {
		return err
	}

	ownerKey, err := key.OwnerPubKey()
	if err != nil {
		return err
	}
	owner, err := schnorr.ParsePubKey(ownerKey)
	if err != nil {
		return fmt.Errorf("%w: owner key: %s", domain.ErrMalformedContractKey, err)
	}
	contract, err := s.engine.DeriveContract(owner, params)
	if err != nil {
		return fmt.Errorf("contract engine: %w", err)
	}
	if contract.Key.String() != key.String() {
		return fmt.Errorf("%w: derived %s", domain.ErrContractKeyMismatch, contract.Key.String())
	}

	if err := s.registry.PutContract(ctx, key.String(), buf); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	return nil
}

func (s *registryService) ListContracts(ctx context.Context) ([]string, error) {
	keys, err := s.registry.ListContracts(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	return keys, nil
}

func (s *registryService) checkWallet() error {
	if s.wallet == nil || s.builder == nil {
		return fmt.Errorf("wallet not configured")
	}
	return nil
}

func newEntropyInfo(name string, entropy domain.AssetEntropy) (*EntropyInfo, error) {
	assetID, err := entropy.AssetID()
	if err != nil {
		return nil, err
	}
	return &EntropyInfo{
		Name:    name,
		Entropy: entropy.String(),
		AssetID: assetID,
	}, nil
}
