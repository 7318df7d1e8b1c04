package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/ainur-network/ainurchain/native/reputation"
)

// RegisterReputation wires the reputation engine's operations onto the
// dispatch surface: bondReputation, unbondReputation, reportOutcome
// (restricted origin), slashSevere (restricted origin).
func RegisterReputation(r *Router, engine *reputation.Engine) {
	r.register("reputation", "bondReputation", func(body []byte) (interface{}, error) {
		var req struct {
			Account string `json:"account"`
			Value   string `json:"value"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode bondReputation request: %w", err)
		}
		account, err := decodeAccount(req.Account)
		if err != nil {
			return nil, err
		}
		value, err := decodeAmount(req.Value)
		if err != nil {
			return nil, err
		}
		stake, err := engine.BondReputation(account[:], value)
		if err != nil {
			return nil, err
		}
		return reputationStakeResponse(stake), nil
	})

	r.register("reputation", "unbondReputation", func(body []byte) (interface{}, error) {
		var req struct {
			Account string `json:"account"`
			Value   string `json:"value"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode unbondReputation request: %w", err)
		}
		account, err := decodeAccount(req.Account)
		if err != nil {
			return nil, err
		}
		value, err := decodeAmount(req.Value)
		if err != nil {
			return nil, err
		}
		stake, err := engine.UnbondReputation(account[:], value)
		if err != nil {
			return nil, err
		}
		return reputationStakeResponse(stake), nil
	})

	// reportOutcome is restricted-origin (scope reputation:report); the JWT
	// middleware on its restricted route enforces the scope before this
	// handler runs. The engine's stake record has no per-task
	// dimension, so taskId is accepted on the wire for ABI fidelity with the
	// named operation but is not threaded into the call.
	r.register("reputation", "reportOutcome", func(body []byte) (interface{}, error) {
		var req struct {
			Agent   string `json:"agent"`
			TaskID  string `json:"taskId"`
			Success bool   `json:"success"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode reportOutcome request: %w", err)
		}
		account, err := decodeAccount(req.Agent)
		if err != nil {
			return nil, err
		}
		stake, err := engine.ReportOutcome(account[:], req.Success)
		if err != nil {
			return nil, err
		}
		return reputationStakeResponse(stake), nil
	})

	// slashSevere is restricted-origin (scope reputation:slash).
	r.register("reputation", "slashSevere", func(body []byte) (interface{}, error) {
		var req struct {
			Agent       string `json:"agent"`
			OffenseCode uint8  `json:"offenseCode"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode slashSevere request: %w", err)
		}
		account, err := decodeAccount(req.Agent)
		if err != nil {
			return nil, err
		}
		stake, err := engine.SlashSevere(account[:], req.OffenseCode)
		if err != nil {
			return nil, err
		}
		return reputationStakeResponse(stake), nil
	})
}

type reputationStakeWire struct {
	Staked         string `json:"staked"`
	Reputation     uint32 `json:"reputation"`
	Tier           string `json:"tier"`
	TasksCompleted uint64 `json:"tasksCompleted"`
	TasksFailed    uint64 `json:"tasksFailed"`
	Slashed        string `json:"slashed"`
	ActiveSince    uint64 `json:"activeSince"`
}

func reputationStakeResponse(stake *reputation.ReputationStake) reputationStakeWire {
	if stake == nil {
		return reputationStakeWire{}
	}
	return reputationStakeWire{
		Staked:         amountString(stake.Staked),
		Reputation:     stake.Reputation,
		Tier:           string(reputation.ReputationTier(stake.Reputation)),
		TasksCompleted: stake.TasksCompleted,
		TasksFailed:    stake.TasksFailed,
		Slashed:        amountString(stake.Slashed),
		ActiveSince:    stake.ActiveSince,
	}
}
