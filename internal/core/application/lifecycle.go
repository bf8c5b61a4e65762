package application

import (
	"context"
	"fmt"
	"time"

	"github.com/ark-network/dcd/internal/core/domain"
	"github.com/ark-network/dcd/internal/core/ports"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	log "github.com/sirupsen/logrus"
)

var burnScript = []byte{txscript.OP_RETURN}

type LifecycleService interface {
	Init(ctx context.Context, req InitRequest) (*StageResult, error)
	MakerFund(ctx context.Context, req StageRequest) (*StageResult, error)
	TakerFund(ctx context.Context, req StageRequest) (*StageResult, error)
	MakerTerminateCollateral(ctx context.Context, req StageRequest) (*StageResult, error)
	MakerTerminateSettlement(ctx context.Context, req StageRequest) (*StageResult, error)
	TakerTerminateEarly(ctx context.Context, req StageRequest) (*StageResult, error)
	MakerSettle(ctx context.Context, req StageRequest) (*StageResult, error)
	TakerSettle(ctx context.Context, req StageRequest) (*StageResult, error)
	Broadcast(ctx context.Context, txHex string) (string, error)
}

type lifecycleService struct {
	wallet   ports.WalletService
	engine   ports.ContractEngine
	builder  ports.TxBuilder
	registry ports.Registry
	explorer ports.Explorer
}

func NewLifecycleService(
	wallet ports.WalletService, engine ports.ContractEngine, builder ports.TxBuilder,
	registry ports.Registry, explorer ports.Explorer,
) LifecycleService {
	return &lifecycleService{wallet, engine, builder, registry, explorer}
}

// stageContext is what every stage of an existing contract needs once the
// request passed the count, key and time checks.
type stageContext struct {
	stage    domain.Stage
	next     domain.State
	params   domain.ContractParameters
	owner    *secp256k1.PublicKey
	contract *ports.Contract
	req      StageRequest
}

func (c *stageContext) ratio() domain.RatioArguments {
	return c.params.Ratio
}

func (s *lifecycleService) Init(ctx context.Context, req InitRequest) (*StageResult, error) {
	stage := domain.StageInit
	if err := stage.CheckUtxoCount(len(req.Utxos)); err != nil {
		return nil, err
	}
	next, err := domain.NextState(domain.Uninitialized, stage)
	if err != nil {
		return nil, err
	}

	baseAsset := s.baseAsset()
	inputs := make([]ports.SkeletonInput, 0, len(req.Utxos))
	entropies := make([]domain.AssetEntropy, 0, len(req.Utxos))
	for _, ref := range req.Utxos {
		contractHash, err := randomContractHash()
		if err != nil {
			return nil, err
		}
		entropy, err := domain.NewIssuanceEntropy(ref, contractHash)
		if err != nil {
			return nil, err
		}
		entropies = append(entropies, entropy)
		inputs = append(inputs, ports.SkeletonInput{
			Ref:           ref,
			ExpectedAsset: baseAsset,
			Issuance: &ports.Issuance{
				ContractHash: contractHash,
				TokenAmount:  1,
			},
		})
	}

	assetIDs := make([]string, 0, len(entropies))
	tokenIDs := make([]string, 0, len(entropies))
	for _, entropy := range entropies {
		assetID, err := entropy.AssetID()
		if err != nil {
			return nil, err
		}
		tokenID, err := entropy.ReissuanceTokenID(false)
		if err != nil {
			return nil, err
		}
		assetIDs = append(assetIDs, assetID)
		tokenIDs = append(tokenIDs, tokenID)
	}

	params := req.Params
	params.FillerTokenAssetID = assetIDs[0]
	params.GrantorCollateralTokenAssetID = assetIDs[1]
	params.GrantorSettlementTokenAssetID = assetIDs[2]
	params.CollateralAssetID = baseAsset
	if err := params.Validate(); err != nil {
		return nil, err
	}

	contract, err := s.engine.DeriveContract(s.wallet.PublicKey(), params)
	if err != nil {
		return nil, fmt.Errorf("contract engine: %w", err)
	}

	outputs := make([]ports.SkeletonOutput, 0, len(tokenIDs))
	for _, tokenID := range tokenIDs {
		outputs = append(outputs, ports.SkeletonOutput{
			Asset:  tokenID,
			Amount: 1,
			Script: contract.Script,
			Blind:  true,
		})
	}

	res, err := s.builder.Build(ctx, ports.Skeleton{
		Stage:               stage,
		Inputs:              inputs,
		Outputs:             outputs,
		DefaultChangeScript: s.wallet.Script(),
		Fee:                 req.Fee,
	})
	if err != nil {
		return nil, err
	}

	encoded, err := params.Encode()
	if err != nil {
		return nil, err
	}
	minted := make([]MintedAsset, 0, len(entropies))
	named := make(map[string]domain.AssetEntropy, len(entropies))
	for i, role := range contractTokenRoles {
		name := contractEntropyName(contract.Key, role)
		named[name] = entropies[i]
		minted = append(minted, MintedAsset{
			Name:    name,
			Entropy: entropies[i].String(),
			AssetID: assetIDs[i],
			TokenID: tokenIDs[i],
		})
	}
	// Entropies and parameters land together or not at all.
	if err := s.registry.SaveContract(
		ctx, contract.Key.String(), encoded, named,
	); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}

	log.WithFields(log.Fields{
		"contract": contract.Key.String(),
		"txid":     res.Txid,
	}).Debug("contract initialized")

	return &StageResult{
		Stage:       stage,
		State:       next,
		ContractKey: contract.Key.String(),
		Tx:          res.Tx,
		Txid:        res.Txid,
		TxHex:       res.TxHex,
		Minted:      minted,
	}, nil
}

func (s *lifecycleService) MakerFund(ctx context.Context, req StageRequest) (*StageResult, error) {
	sc, err := s.prepare(ctx, domain.StageMakerFund, req)
	if err != nil {
		return nil, err
	}
	params := sc.params
	ratio := sc.ratio()

	spend, err := s.spendPath(sc, nil)
	if err != nil {
		return nil, err
	}

	expectedAssets := []string{
		params.FillerTokenAssetID,
		params.GrantorCollateralTokenAssetID,
		params.GrantorSettlementTokenAssetID,
	}
	inputs := make([]ports.SkeletonInput, 0, len(req.Utxos))
	tokenIDs := make([]string, 0, len(contractTokenRoles))
	for i, role := range contractTokenRoles {
		entropy, err := loadEntropy(ctx, s.registry, contractEntropyName(sc.contract.Key, role))
		if err != nil {
			return nil, err
		}
		assetID, err := entropy.AssetID()
		if err != nil {
			return nil, err
		}
		if assetID != expectedAssets[i] {
			return nil, fmt.Errorf(
				"%w: stored %s entropy derives %s, contract expects %s",
				domain.ErrAssetRoleMismatch, role, assetID, expectedAssets[i],
			)
		}
		tokenID, err := entropy.ReissuanceTokenID(false)
		if err != nil {
			return nil, err
		}
		tokenIDs = append(tokenIDs, tokenID)

		inputs = append(inputs, ports.SkeletonInput{
			Ref:           req.Utxos[i],
			ExpectedAsset: tokenID,
			Contract:      spend,
			Issuance: &ports.Issuance{
				Entropy:     &entropy,
				AssetAmount: ratio.FillerTokenAmount,
			},
		})
	}
	inputs = append(inputs,
		ports.SkeletonInput{Ref: req.Utxos[3], ExpectedAsset: params.SettlementAssetID},
		ports.SkeletonInput{Ref: req.Utxos[4], ExpectedAsset: params.CollateralAssetID},
	)

	walletScript := s.wallet.Script()
	contractScript := sc.contract.Script
	outputs := []ports.SkeletonOutput{
		{Asset: params.FillerTokenAssetID, Amount: ratio.FillerTokenAmount, Script: contractScript},
		{Asset: params.GrantorCollateralTokenAssetID, Amount: ratio.FillerTokenAmount, Script: walletScript},
		{Asset: params.GrantorSettlementTokenAssetID, Amount: ratio.FillerTokenAmount, Script: walletScript},
	}
	for _, tokenID := range tokenIDs {
		outputs = append(outputs, ports.SkeletonOutput{
			Asset: tokenID, Amount: 1, Script: contractScript, Blind: true,
		})
	}
	outputs = append(outputs,
		ports.SkeletonOutput{Asset: params.SettlementAssetID, Amount: ratio.TotalAssetAmount, Script: contractScript},
		ports.SkeletonOutput{Asset: params.CollateralAssetID, Amount: ratio.InterestCollateralAmount, Script: contractScript},
	)

	return s.build(ctx, sc, inputs, outputs)
}

func (s *lifecycleService) TakerFund(ctx context.Context, req StageRequest) (*StageResult, error) {
	sc, err := s.prepare(ctx, domain.StageTakerFund, req)
	if err != nil {
		return nil, err
	}
	params := sc.params

	deposit := req.Amount
	perFiller := sc.ratio().FillerPerPrincipalCollateral
	if deposit == 0 || deposit%perFiller != 0 {
		return nil, fmt.Errorf(
			"%w: deposit %d must be a positive multiple of %d",
			domain.ErrInvalidRatio, deposit, perFiller,
		)
	}
	fillerAmount := deposit / perFiller

	spend, err := s.spendPath(sc, nil)
	if err != nil {
		return nil, err
	}

	inputs := []ports.SkeletonInput{
		{
			Ref:           req.Utxos[0],
			ExpectedAsset: params.FillerTokenAssetID,
			Contract:      spend,
			Remainder:     &ports.Remainder{Script: sc.contract.Script, Spent: fillerAmount},
		},
		{Ref: req.Utxos[1], ExpectedAsset: params.CollateralAssetID},
	}
	outputs := []ports.SkeletonOutput{
		{Asset: params.FillerTokenAssetID, Amount: fillerAmount, Script: s.wallet.Script()},
		{Asset: params.CollateralAssetID, Amount: deposit, Script: sc.contract.Script},
	}

	return s.build(ctx, sc, inputs, outputs)
}

func (s *lifecycleService) MakerTerminateCollateral(
	ctx context.Context, req StageRequest,
) (*StageResult, error) {
	sc, err := s.prepare(ctx, domain.StageMakerTerminateCollateral, req)
	if err != nil {
		return nil, err
	}
	params := sc.params

	return s.terminate(
		ctx, sc, params.GrantorCollateralTokenAssetID,
		params.CollateralAssetID, sc.ratio().GrantorCollateralPerToken(), true,
	)
}

func (s *lifecycleService) MakerTerminateSettlement(
	ctx context.Context, req StageRequest,
) (*StageResult, error) {
	sc, err := s.prepare(ctx, domain.StageMakerTerminateSettlement, req)
	if err != nil {
		return nil, err
	}
	params := sc.params

	return s.terminate(
		ctx, sc, params.GrantorSettlementTokenAssetID,
		params.SettlementAssetID, sc.ratio().GrantorSettlementPerToken(), true,
	)
}

func (s *lifecycleService) TakerTerminateEarly(
	ctx context.Context, req StageRequest,
) (*StageResult, error) {
	sc, err := s.prepare(ctx, domain.StageTakerTerminateEarly, req)
	if err != nil {
		return nil, err
	}
	params := sc.params

	return s.terminate(
		ctx, sc, params.FillerTokenAssetID,
		params.CollateralAssetID, sc.ratio().FillerPerPrincipalCollateral, false,
	)
}

// terminate spends amount tokens of tokenAsset against perToken units each of
// the asset locked in the contract. Grantor tokens are burned, filler tokens
// return to the contract.
func (s *lifecycleService) terminate(
	ctx context.Context, sc *stageContext,
	tokenAsset, lockedAsset string, perToken uint64, burn bool,
) (*StageResult, error) {
	amount, payout, err := payoutOf(sc.req.Amount, perToken)
	if err != nil {
		return nil, err
	}

	spend, err := s.spendPath(sc, nil)
	if err != nil {
		return nil, err
	}

	inputs := []ports.SkeletonInput{
		{Ref: sc.req.Utxos[0], ExpectedAsset: tokenAsset},
		{
			Ref:           sc.req.Utxos[1],
			ExpectedAsset: lockedAsset,
			Contract:      spend,
			Remainder:     &ports.Remainder{Script: sc.contract.Script, Spent: payout},
		},
		{Ref: sc.req.Utxos[2], ExpectedAsset: s.baseAsset()},
	}

	tokenScript := sc.contract.Script
	if burn {
		tokenScript = burnScript
	}
	outputs := []ports.SkeletonOutput{
		{Asset: tokenAsset, Amount: amount, Script: tokenScript},
		{Asset: lockedAsset, Amount: payout, Script: s.wallet.Script()},
	}

	return s.build(ctx, sc, inputs, outputs)
}

func (s *lifecycleService) MakerSettle(ctx context.Context, req StageRequest) (*StageResult, error) {
	sc, err := s.prepare(ctx, domain.StageMakerSettle, req)
	if err != nil {
		return nil, err
	}
	params := sc.params
	ratio := sc.ratio()

	// the maker is paid the leg the taker does not receive
	payoutAsset, perToken := params.SettlementAssetID, ratio.SettlementAssetPerToken()
	if s.engine.SettlementOutcome(params, req.Price) == domain.TakerReceivesSettlementAsset {
		payoutAsset, perToken = params.CollateralAssetID, ratio.SettlementCollateralPerToken()
	}
	amount, payout, err := payoutOf(req.Amount, perToken)
	if err != nil {
		return nil, err
	}

	spend, err := s.spendPath(sc, &ports.OracleWitness{
		Price: req.Price, Signature: req.OracleSignature,
	})
	if err != nil {
		return nil, err
	}

	inputs := []ports.SkeletonInput{
		{Ref: req.Utxos[0], ExpectedAsset: params.GrantorCollateralTokenAssetID},
		{Ref: req.Utxos[1], ExpectedAsset: params.GrantorSettlementTokenAssetID},
		{Ref: req.Utxos[2], ExpectedAsset: s.baseAsset()},
		{
			Ref:           req.Utxos[3],
			ExpectedAsset: payoutAsset,
			Contract:      spend,
			Remainder:     &ports.Remainder{Script: sc.contract.Script, Spent: payout},
		},
	}
	outputs := []ports.SkeletonOutput{
		{Asset: params.GrantorCollateralTokenAssetID, Amount: amount, Script: burnScript},
		{Asset: params.GrantorSettlementTokenAssetID, Amount: amount, Script: burnScript},
		{Asset: payoutAsset, Amount: payout, Script: s.wallet.Script()},
	}

	return s.build(ctx, sc, inputs, outputs)
}

func (s *lifecycleService) TakerSettle(ctx context.Context, req StageRequest) (*StageResult, error) {
	sc, err := s.prepare(ctx, domain.StageTakerSettle, req)
	if err != nil {
		return nil, err
	}
	params := sc.params
	ratio := sc.ratio()

	payoutAsset, perToken := params.CollateralAssetID, ratio.SettlementCollateralPerToken()
	if s.engine.SettlementOutcome(params, req.Price) == domain.TakerReceivesSettlementAsset {
		payoutAsset, perToken = params.SettlementAssetID, ratio.SettlementAssetPerToken()
	}
	amount, payout, err := payoutOf(req.Amount, perToken)
	if err != nil {
		return nil, err
	}

	spend, err := s.spendPath(sc, &ports.OracleWitness{
		Price: req.Price, Signature: req.OracleSignature,
	})
	if err != nil {
		return nil, err
	}

	inputs := []ports.SkeletonInput{
		{Ref: req.Utxos[0], ExpectedAsset: params.FillerTokenAssetID},
		{
			Ref:           req.Utxos[1],
			ExpectedAsset: payoutAsset,
			Contract:      spend,
			Remainder:     &ports.Remainder{Script: sc.contract.Script, Spent: payout},
		},
		{Ref: req.Utxos[2], ExpectedAsset: s.baseAsset()},
	}
	outputs := []ports.SkeletonOutput{
		{Asset: params.FillerTokenAssetID, Amount: amount, Script: burnScript},
		{Asset: payoutAsset, Amount: payout, Script: s.wallet.Script()},
	}

	return s.build(ctx, sc, inputs, outputs)
}

func (s *lifecycleService) Broadcast(ctx context.Context, txHex string) (string, error) {
	txid, err := s.explorer.Broadcast(ctx, txHex)
	if err != nil {
		return "", fmt.Errorf("explorer: %w", err)
	}
	return txid, nil
}

// prepare runs the checks shared by every stage of an existing contract, in
// order: utxo count, contract key, state transition, time constraints. Nothing
// is fetched before the key is known to match the parameters.
func (s *lifecycleService) prepare(
	ctx context.Context, stage domain.Stage, req StageRequest,
) (*stageContext, error) {
	if err := stage.CheckUtxoCount(len(req.Utxos)); err != nil {
		return nil, err
	}

	key, err := domain.ParseContractAddressKey(req.ContractKey)
	if err != nil {
		return nil, err
	}
	params, err := s.loadParams(ctx, req)
	if err != nil {
		return nil, err
	}
	ownerKey, err := key.OwnerPubKey()
	if err != nil {
		return nil, err
	}
	owner, err := schnorr.ParsePubKey(ownerKey)
	if err != nil {
		return nil, fmt.Errorf("%w: owner key: %s", domain.ErrMalformedContractKey, err)
	}

	contract, err := s.engine.DeriveContract(owner, params)
	if err != nil {
		return nil, fmt.Errorf("contract engine: %w", err)
	}
	if contract.Key.String() != key.String() {
		return nil, fmt.Errorf(
			"%w: derived %s", domain.ErrContractKeyMismatch, contract.Key.String(),
		)
	}

	from := req.State
	if from == domain.Uninitialized {
		from = expectedState(stage)
	}
	next, err := domain.NextState(from, stage)
	if err != nil {
		return nil, err
	}

	if err := s.checkTime(ctx, stage, params, &req); err != nil {
		return nil, err
	}

	return &stageContext{
		stage:    stage,
		next:     next,
		params:   params,
		owner:    owner,
		contract: contract,
		req:      req,
	}, nil
}

func (s *lifecycleService) loadParams(
	ctx context.Context, req StageRequest,
) (domain.ContractParameters, error) {
	if req.Params != nil {
		return *req.Params, nil
	}
	buf, err := s.registry.GetContract(ctx, req.ContractKey)
	if err != nil {
		return domain.ContractParameters{}, fmt.Errorf("registry: %w", err)
	}
	return domain.DecodeContractParameters(buf)
}

func (s *lifecycleService) checkTime(
	ctx context.Context, stage domain.Stage, params domain.ContractParameters,
	req *StageRequest,
) error {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	switch stage {
	case domain.StageTakerFund:
		ts := now.Unix()
		if ts < int64(params.TakerFundingStartTime) || ts > int64(params.TakerFundingEndTime) {
			return fmt.Errorf(
				"%w: now %d, window [%d, %d]", domain.ErrOutsideFundingWindow,
				ts, params.TakerFundingStartTime, params.TakerFundingEndTime,
			)
		}
	case domain.StageMakerTerminateCollateral, domain.StageMakerTerminateSettlement,
		domain.StageTakerTerminateEarly:
		if now.Unix() >= int64(params.EarlyTerminationEndTime) {
			return fmt.Errorf(
				"%w: deadline was %d", domain.ErrEarlyTerminationClosed,
				params.EarlyTerminationEndTime,
			)
		}
	case domain.StageMakerSettle, domain.StageTakerSettle:
		if req.TipHeight == 0 {
			height, err := s.explorer.GetTipHeight(ctx)
			if err != nil {
				return fmt.Errorf("explorer: %w", err)
			}
			req.TipHeight = height
		}
		if req.TipHeight < params.SettlementHeight {
			return fmt.Errorf(
				"%w: tip %d, settlement at %d", domain.ErrSettlementNotReached,
				req.TipHeight, params.SettlementHeight,
			)
		}
	}
	return nil
}

func (s *lifecycleService) spendPath(
	sc *stageContext, oracle *ports.OracleWitness,
) (*ports.ContractSpend, error) {
	spend, err := s.engine.SpendPath(sc.owner, sc.params, sc.stage, oracle)
	if err != nil {
		return nil, fmt.Errorf("contract engine: %w", err)
	}
	return spend, nil
}

func (s *lifecycleService) build(
	ctx context.Context, sc *stageContext,
	inputs []ports.SkeletonInput, outputs []ports.SkeletonOutput,
) (*StageResult, error) {
	res, err := s.builder.Build(ctx, ports.Skeleton{
		Stage:               sc.stage,
		Inputs:              inputs,
		Outputs:             outputs,
		DefaultChangeScript: s.wallet.Script(),
		Fee:                 sc.req.Fee,
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"stage":    sc.stage.String(),
		"contract": sc.contract.Key.String(),
		"txid":     res.Txid,
	}).Debug("stage transaction built")

	return &StageResult{
		Stage:       sc.stage,
		State:       sc.next,
		ContractKey: sc.contract.Key.String(),
		Tx:          res.Tx,
		Txid:        res.Txid,
		TxHex:       res.TxHex,
	}, nil
}

func (s *lifecycleService) baseAsset() string {
	return s.wallet.Network().AssetID
}

// expectedState is the state a stage usually starts from, used when the
// caller does not track the contract state.
func expectedState(stage domain.Stage) domain.State {
	switch stage {
	case domain.StageInit:
		return domain.Uninitialized
	case domain.StageMakerFund:
		return domain.Initialized
	default:
		return domain.Funded
	}
}

func payoutOf(amount, perToken uint64) (uint64, uint64, error) {
	if amount == 0 {
		return 0, 0, fmt.Errorf("%w: token amount must be > 0", domain.ErrInvalidRatio)
	}
	payout, err := domain.CheckedMul(amount, perToken)
	if err != nil {
		return 0, 0, err
	}
	return amount, payout, nil
}
