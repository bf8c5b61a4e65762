package domain

import "fmt"

const (
	UndefinedStage Stage = iota
	StageIssue
	StageReissue
	StageSplit
	StageInit
	StageMakerFund
	StageTakerFund
	StageMakerTerminateCollateral
	StageMakerTerminateSettlement
	StageTakerTerminateEarly
	StageMakerSettle
	StageTakerSettle
)

type Stage int

func (s Stage) String() string {
	switch s {
	case StageIssue:
		return "ISSUE"
	case StageReissue:
		return "REISSUE"
	case StageSplit:
		return "SPLIT"
	case StageInit:
		return "INIT"
	case StageMakerFund:
		return "MAKER_FUND"
	case StageTakerFund:
		return "TAKER_FUND"
	case StageMakerTerminateCollateral:
		return "MAKER_TERMINATE_COLLATERAL"
	case StageMakerTerminateSettlement:
		return "MAKER_TERMINATE_SETTLEMENT"
	case StageTakerTerminateEarly:
		return "TAKER_TERMINATE_EARLY"
	case StageMakerSettle:
		return "MAKER_SETTLE"
	case StageTakerSettle:
		return "TAKER_SETTLE"
	default:
		return "UNDEFINED_STAGE"
	}
}

// RequiredUtxos returns how many utxos the stage consumes. The position of
// each utxo in a request determines its role.
func (s Stage) RequiredUtxos() int {
	switch s {
	case StageIssue, StageSplit:
		return 1
	case StageReissue, StageTakerFund:
		return 2
	case StageInit, StageMakerTerminateCollateral, StageMakerTerminateSettlement,
		StageTakerTerminateEarly, StageTakerSettle:
		return 3
	case StageMakerSettle:
		return 4
	case StageMakerFund:
		return 5
	default:
		return 0
	}
}

// CheckUtxoCount fails with ErrInvalidUtxoCount unless exactly the required
// number of utxos is given.
func (s Stage) CheckUtxoCount(n int) error {
	if required := s.RequiredUtxos(); n != required {
		return fmt.Errorf("%w: %s requires %d utxos, got %d", ErrInvalidUtxoCount, s, required, n)
	}
	return nil
}

func (s Stage) isTermination() bool {
	return s == StageMakerTerminateCollateral || s == StageMakerTerminateSettlement ||
		s == StageTakerTerminateEarly
}

func (s Stage) isSettlement() bool {
	return s == StageMakerSettle || s == StageTakerSettle
}

const (
	Uninitialized State = iota
	Initialized
	Funded
	EarlyTerminated
	Settled
)

type State int

func (s State) String() string {
	switch s {
	case Initialized:
		return "INITIALIZED"
	case Funded:
		return "FUNDED"
	case EarlyTerminated:
		return "EARLY_TERMINATED"
	case Settled:
		return "SETTLED"
	default:
		return "UNINITIALIZED"
	}
}

// NextState returns the state a contract reaches by running stage from the
// given state. Partial fills, terminations and settlements may repeat.
func NextState(from State, stage Stage) (State, error) {
	switch {
	case stage == StageIssue || stage == StageReissue || stage == StageSplit:
		return from, nil
	case stage == StageInit && from == Uninitialized:
		return Initialized, nil
	case stage == StageMakerFund && from == Initialized:
		return Funded, nil
	case stage == StageTakerFund && from == Funded:
		return Funded, nil
	case stage.isTermination() && (from == Funded || from == EarlyTerminated):
		return EarlyTerminated, nil
	case stage.isSettlement() && (from == Funded || from == Settled):
		return Settled, nil
	}
	return from, fmt.Errorf("%w: %s from %s", ErrIllegalTransition, stage, from)
}
