package reputation

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"github.com/ainur-network/ainurchain/core/types"
)

const (
	// EventTypeReputationBonded is emitted when collateral is bonded.
	EventTypeReputationBonded = "reputation.bonded"
	// EventTypeReputationUnbonded is emitted when collateral is released.
	EventTypeReputationUnbonded = "reputation.unbonded"
	// EventTypeOutcomeReported is emitted after a task outcome updates score.
	EventTypeOutcomeReported = "reputation.outcomeReported"
	// EventTypeSeveritySlashed is emitted when a governance-adjudicated
	// severe slash is applied.
	EventTypeSeveritySlashed = "reputation.severitySlashed"
)

func stakeAttrs(account []byte, stake *ReputationStake) map[string]string {
	attrs := map[string]string{
		"account": hex.EncodeToString(account),
	}
	if stake == nil {
		return attrs
	}
	if stake.Staked != nil {
		attrs["staked"] = stake.Staked.String()
	}
	attrs["reputation"] = strconv.FormatUint(uint64(stake.Reputation), 10)
	attrs["tier"] = string(ReputationTier(stake.Reputation))
	return attrs
}

// NewBondedEvent returns the canonical event payload for a bond operation.
func NewBondedEvent(account []byte, value *big.Int, stake *ReputationStake) *types.Event {
	attrs := stakeAttrs(account, stake)
	if value != nil {
		attrs["value"] = value.String()
	}
	return &types.Event{Type: EventTypeReputationBonded, Attributes: attrs}
}

// NewUnbondedEvent returns the canonical event payload for an unbond
// operation.
func NewUnbondedEvent(account []byte, value *big.Int, stake *ReputationStake) *types.Event {
	attrs := stakeAttrs(account, stake)
	if value != nil {
		attrs["value"] = value.String()
	}
	return &types.Event{Type: EventTypeReputationUnbonded, Attributes: attrs}
}

// NewOutcomeReportedEvent returns the canonical event payload for a reported
// task outcome.
func NewOutcomeReportedEvent(account []byte, success bool, stake *ReputationStake) *types.Event {
	attrs := stakeAttrs(account, stake)
	attrs["success"] = strconv.FormatBool(success)
	return &types.Event{Type: EventTypeOutcomeReported, Attributes: attrs}
}

// NewSeveritySlashedEvent returns the canonical event payload for a severe
// slash.
func NewSeveritySlashedEvent(account []byte, offenseCode uint8, stake *ReputationStake) *types.Event {
	attrs := stakeAttrs(account, stake)
	attrs["offenseCode"] = strconv.FormatUint(uint64(offenseCode), 10)
	return &types.Event{Type: EventTypeSeveritySlashed, Attributes: attrs}
}
