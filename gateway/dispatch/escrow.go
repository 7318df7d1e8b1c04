package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/ainur-network/ainurchain/native/escrow"
)

// RegisterEscrow wires the escrow engine's operations onto the dispatch
// surface: every named operation in SPEC_FULL.md §6's escrow list except
// approveParticipant, which the spec does not name as a dispatch operation
// (it remains reachable in-process and from tests).
func RegisterEscrow(r *Router, engine *escrow.Engine) {
	r.register("escrow", "createEscrow", func(body []byte) (interface{}, error) {
		var req struct {
			TaskID       string `json:"taskId"`
			User         string `json:"user"`
			AgentDid     string `json:"agentDid"`
			AgentAccount string `json:"agentAccount"`
			Amount       string `json:"amount"`
			FeePercent   uint8  `json:"feePercent"`
			ExpiresAt    uint64 `json:"expiresAt"`
			TaskHash     string `json:"taskHash"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode createEscrow request: %w", err)
		}
		taskID, err := decodeHash32(req.TaskID)
		if err != nil {
			return nil, err
		}
		user, err := decodeAccount(req.User)
		if err != nil {
			return nil, err
		}
		agentAccount, err := decodeAccount(req.AgentAccount)
		if err != nil {
			return nil, err
		}
		amount, err := decodeAmount(req.Amount)
		if err != nil {
			return nil, err
		}
		taskHash, err := decodeHash32(req.TaskHash)
		if err != nil {
			return nil, err
		}
		result, err := engine.CreateEscrow(taskID, user, req.AgentDid, agentAccount, amount, req.FeePercent, req.ExpiresAt, taskHash)
		if err != nil {
			return nil, err
		}
		return escrowResponse(result), nil
	})

	r.register("escrow", "acceptTask", func(body []byte) (interface{}, error) {
		var req struct {
			TaskID       string `json:"taskId"`
			Did          string `json:"did"`
			AgentAccount string `json:"agentAccount"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode acceptTask request: %w", err)
		}
		taskID, err := decodeHash32(req.TaskID)
		if err != nil {
			return nil, err
		}
		agentAccount, err := decodeAccount(req.AgentAccount)
		if err != nil {
			return nil, err
		}
		result, err := engine.AcceptTask(taskID, req.Did, agentAccount)
		if err != nil {
			return nil, err
		}
		return escrowResponse(result), nil
	})

	r.register("escrow", "releasePayment", taskCallerHandler(engine.ReleasePayment))
	r.register("escrow", "refundEscrow", taskCallerHandler(engine.RefundEscrow))
	r.register("escrow", "disputeEscrow", taskCallerHandler(engine.DisputeEscrow))

	r.register("escrow", "addParticipant", func(body []byte) (interface{}, error) {
		var req struct {
			TaskID      string `json:"taskId"`
			Caller      string `json:"caller"`
			Participant struct {
				Account string `json:"account"`
				Role    uint8  `json:"role"`
				Amount  string `json:"amount"`
			} `json:"participant"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode addParticipant request: %w", err)
		}
		taskID, err := decodeHash32(req.TaskID)
		if err != nil {
			return nil, err
		}
		caller, err := decodeAccount(req.Caller)
		if err != nil {
			return nil, err
		}
		account, err := decodeAccount(req.Participant.Account)
		if err != nil {
			return nil, err
		}
		amount, err := decodeAmount(req.Participant.Amount)
		if err != nil {
			return nil, err
		}
		participant := escrow.Participant{
			Account: account,
			Role:    escrow.ParticipantRole(req.Participant.Role),
			Amount:  amount,
		}
		result, err := engine.AddParticipant(taskID, caller, participant)
		if err != nil {
			return nil, err
		}
		return escrowResponse(result), nil
	})

	r.register("escrow", "removeParticipant", func(body []byte) (interface{}, error) {
		var req struct {
			TaskID  string `json:"taskId"`
			Caller  string `json:"caller"`
			Account string `json:"account"`
			Role    uint8  `json:"role"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode removeParticipant request: %w", err)
		}
		taskID, err := decodeHash32(req.TaskID)
		if err != nil {
			return nil, err
		}
		caller, err := decodeAccount(req.Caller)
		if err != nil {
			return nil, err
		}
		account, err := decodeAccount(req.Account)
		if err != nil {
			return nil, err
		}
		result, err := engine.RemoveParticipant(taskID, caller, account, escrow.ParticipantRole(req.Role))
		if err != nil {
			return nil, err
		}
		return escrowResponse(result), nil
	})

	r.register("escrow", "releaseMultiPartyPayment", taskCallerHandler(engine.ReleaseMultiPartyPayment))

	r.register("escrow", "addMilestone", func(body []byte) (interface{}, error) {
		var req struct {
			TaskID            string `json:"taskId"`
			Caller            string `json:"caller"`
			Description       string `json:"description"`
			Amount            string `json:"amount"`
			RequiredApprovals uint32 `json:"requiredApprovals"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode addMilestone request: %w", err)
		}
		taskID, err := decodeHash32(req.TaskID)
		if err != nil {
			return nil, err
		}
		caller, err := decodeAccount(req.Caller)
		if err != nil {
			return nil, err
		}
		amount, err := decodeAmount(req.Amount)
		if err != nil {
			return nil, err
		}
		result, err := engine.AddMilestone(taskID, caller, req.Description, amount, req.RequiredApprovals)
		if err != nil {
			return nil, err
		}
		return escrowResponse(result), nil
	})

	r.register("escrow", "completeMilestone", milestoneHandler(engine.CompleteMilestone))
	r.register("escrow", "approveMilestone", milestoneHandler(engine.ApproveMilestone))

	r.register("escrow", "batchCreateEscrow", func(body []byte) (interface{}, error) {
		var req struct {
			Caller string `json:"caller"`
			Items  []struct {
				TaskID       string `json:"taskId"`
				User         string `json:"user"`
				AgentDid     string `json:"agentDid"`
				AgentAccount string `json:"agentAccount"`
				Amount       string `json:"amount"`
				FeePercent   uint8  `json:"feePercent"`
				ExpiresAt    uint64 `json:"expiresAt"`
				TaskHash     string `json:"taskHash"`
			} `json:"items"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode batchCreateEscrow request: %w", err)
		}
		caller, err := decodeAccount(req.Caller)
		if err != nil {
			return nil, err
		}
		items := make([]escrow.BatchCreateEscrowItem, len(req.Items))
		for i, it := range req.Items {
			taskID, err := decodeHash32(it.TaskID)
			if err != nil {
				return nil, err
			}
			user, err := decodeAccount(it.User)
			if err != nil {
				return nil, err
			}
			agentAccount, err := decodeAccount(it.AgentAccount)
			if err != nil {
				return nil, err
			}
			amount, err := decodeAmount(it.Amount)
			if err != nil {
				return nil, err
			}
			taskHash, err := decodeHash32(it.TaskHash)
			if err != nil {
				return nil, err
			}
			items[i] = escrow.BatchCreateEscrowItem{
				TaskID:       taskID,
				User:         user,
				AgentDid:     it.AgentDid,
				AgentAccount: agentAccount,
				Amount:       amount,
				FeePercent:   it.FeePercent,
				ExpiresAt:    it.ExpiresAt,
				TaskHash:     taskHash,
			}
		}
		batchID, results, err := engine.BatchCreateEscrows(caller, items)
		if err != nil {
			return nil, err
		}
		return batchResponse(batchID, results), nil
	})

	r.register("escrow", "batchReleasePayment", batchTaskIDsHandler(engine.BatchReleasePayments))
	r.register("escrow", "batchRefundEscrow", batchTaskIDsHandler(engine.BatchRefundEscrows))
	r.register("escrow", "batchDisputeEscrow", batchTaskIDsHandler(engine.BatchDisputeEscrows))

	r.register("escrow", "setRefundPolicy", refundPolicyHandler(engine.SetRefundPolicy))
	r.register("escrow", "updateRefundPolicy", refundPolicyHandler(engine.UpdateRefundPolicy))

	r.register("escrow", "evaluateRefundAmount", func(body []byte) (interface{}, error) {
		var req struct {
			TaskID string `json:"taskId"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode evaluateRefundAmount request: %w", err)
		}
		taskID, err := decodeHash32(req.TaskID)
		if err != nil {
			return nil, err
		}
		amount, err := engine.EvaluateRefundAmount(taskID)
		if err != nil {
			return nil, err
		}
		return struct {
			Amount string `json:"amount"`
		}{Amount: amountString(amount)}, nil
	})

	r.register("escrow", "overrideRefundAmount", func(body []byte) (interface{}, error) {
		var req struct {
			TaskID   string `json:"taskId"`
			Caller   string `json:"caller"`
			Override string `json:"override"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode overrideRefundAmount request: %w", err)
		}
		taskID, err := decodeHash32(req.TaskID)
		if err != nil {
			return nil, err
		}
		caller, err := decodeAccount(req.Caller)
		if err != nil {
			return nil, err
		}
		override, err := decodeAmount(req.Override)
		if err != nil {
			return nil, err
		}
		result, err := engine.OverrideRefundAmount(taskID, caller, override)
		if err != nil {
			return nil, err
		}
		return escrowResponse(result), nil
	})

	r.register("escrow", "createTemplate", func(body []byte) (interface{}, error) {
		var req struct {
			Caller      string            `json:"caller"`
			Name        string            `json:"name"`
			Description string            `json:"description"`
			Params      templateParamsWire `json:"params"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode createTemplate request: %w", err)
		}
		caller, err := decodeAccount(req.Caller)
		if err != nil {
			return nil, err
		}
		params, err := req.Params.toParams()
		if err != nil {
			return nil, err
		}
		result, err := engine.CreateTemplate(caller, req.Name, req.Description, params)
		if err != nil {
			return nil, err
		}
		return templateResponse(result), nil
	})

	r.register("escrow", "createEscrowFromTemplate", func(body []byte) (interface{}, error) {
		var req struct {
			TaskID       string `json:"taskId"`
			User         string `json:"user"`
			TemplateID   uint64 `json:"templateId"`
			Amount       string `json:"amount"`
			AgentDid     string `json:"agentDid"`
			AgentAccount string `json:"agentAccount"`
			TaskHash     string `json:"taskHash"`
			Config       struct {
				FeePercentOverride *uint8 `json:"feePercentOverride"`
				ExpiresAt          uint64 `json:"expiresAt"`
			} `json:"config"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode createEscrowFromTemplate request: %w", err)
		}
		taskID, err := decodeHash32(req.TaskID)
		if err != nil {
			return nil, err
		}
		user, err := decodeAccount(req.User)
		if err != nil {
			return nil, err
		}
		agentAccount, err := decodeAccount(req.AgentAccount)
		if err != nil {
			return nil, err
		}
		amount, err := decodeAmount(req.Amount)
		if err != nil {
			return nil, err
		}
		taskHash, err := decodeHash32(req.TaskHash)
		if err != nil {
			return nil, err
		}
		config := escrow.InstantiationConfig{
			FeePercentOverride: req.Config.FeePercentOverride,
			ExpiresAt:          req.Config.ExpiresAt,
		}
		result, err := engine.CreateEscrowFromTemplate(taskID, user, req.TemplateID, amount, req.AgentDid, agentAccount, taskHash, config)
		if err != nil {
			return nil, err
		}
		return escrowResponse(result), nil
	})

	r.register("escrow", "updateTemplate", func(body []byte) (interface{}, error) {
		var req struct {
			Caller string             `json:"caller"`
			ID     uint64             `json:"id"`
			Params templateParamsWire `json:"params"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode updateTemplate request: %w", err)
		}
		caller, err := decodeAccount(req.Caller)
		if err != nil {
			return nil, err
		}
		params, err := req.Params.toParams()
		if err != nil {
			return nil, err
		}
		result, err := engine.UpdateTemplate(caller, req.ID, params)
		if err != nil {
			return nil, err
		}
		return templateResponse(result), nil
	})

	r.register("escrow", "deactivateTemplate", func(body []byte) (interface{}, error) {
		var req struct {
			Caller string `json:"caller"`
			ID     uint64 `json:"id"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode deactivateTemplate request: %w", err)
		}
		caller, err := decodeAccount(req.Caller)
		if err != nil {
			return nil, err
		}
		result, err := engine.DeactivateTemplate(caller, req.ID)
		if err != nil {
			return nil, err
		}
		return templateResponse(result), nil
	})
}

// taskCallerHandler adapts the common (taskID [32]byte, caller [20]byte)
// (*Escrow, error) method shape shared by releasePayment, refundEscrow,
// disputeEscrow, and releaseMultiPartyPayment.
func taskCallerHandler(fn func(taskID [32]byte, caller [20]byte) (*escrow.Escrow, error)) handlerFunc {
	return func(body []byte) (interface{}, error) {
		var req struct {
			TaskID string `json:"taskId"`
			Caller string `json:"caller"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode request: %w", err)
		}
		taskID, err := decodeHash32(req.TaskID)
		if err != nil {
			return nil, err
		}
		caller, err := decodeAccount(req.Caller)
		if err != nil {
			return nil, err
		}
		result, err := fn(taskID, caller)
		if err != nil {
			return nil, err
		}
		return escrowResponse(result), nil
	}
}

// milestoneHandler adapts the common (taskID, caller, milestoneID) shape
// shared by completeMilestone and approveMilestone.
func milestoneHandler(fn func(taskID [32]byte, caller [20]byte, milestoneID uint32) (*escrow.Escrow, error)) handlerFunc {
	return func(body []byte) (interface{}, error) {
		var req struct {
			TaskID      string `json:"taskId"`
			Caller      string `json:"caller"`
			MilestoneID uint32 `json:"milestoneId"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode request: %w", err)
		}
		taskID, err := decodeHash32(req.TaskID)
		if err != nil {
			return nil, err
		}
		caller, err := decodeAccount(req.Caller)
		if err != nil {
			return nil, err
		}
		result, err := fn(taskID, caller, req.MilestoneID)
		if err != nil {
			return nil, err
		}
		return escrowResponse(result), nil
	}
}

// batchTaskIDsHandler adapts the common (caller, taskIDs) ([32]byte,
// []*Escrow, error) shape shared by the release/refund/dispute batch
// operations.
func batchTaskIDsHandler(fn func(caller [20]byte, taskIDs [][32]byte) ([32]byte, []*escrow.Escrow, error)) handlerFunc {
	return func(body []byte) (interface{}, error) {
		var req struct {
			Caller  string   `json:"caller"`
			TaskIDs []string `json:"taskIds"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode request: %w", err)
		}
		caller, err := decodeAccount(req.Caller)
		if err != nil {
			return nil, err
		}
		taskIDs := make([][32]byte, len(req.TaskIDs))
		for i, s := range req.TaskIDs {
			id, err := decodeHash32(s)
			if err != nil {
				return nil, err
			}
			taskIDs[i] = id
		}
		batchID, results, err := fn(caller, taskIDs)
		if err != nil {
			return nil, err
		}
		return batchResponse(batchID, results), nil
	}
}

type refundPolicyWire struct {
	Kind           uint8  `json:"kind"`
	Deadline       uint64 `json:"deadline"`
	PartialPercent uint8  `json:"partialPercent"`
	Stages         []struct {
		Deadline uint64 `json:"deadline"`
		Percent  uint8  `json:"percent"`
	} `json:"stages"`
	Fee                 string  `json:"fee"`
	WorkStartDeadline   uint64  `json:"workStartDeadline"`
	MilestonesCompleted uint8   `json:"milestonesCompleted"`
	RefundPercentages   []uint8 `json:"refundPercentages"`
	CanOverride         bool    `json:"canOverride"`
	Authority           string  `json:"authority"`
}

func (w refundPolicyWire) toPolicy() (*escrow.RefundPolicy, error) {
	policy := &escrow.RefundPolicy{
		Kind:                escrow.PolicyKind(w.Kind),
		Deadline:            w.Deadline,
		PartialPercent:      w.PartialPercent,
		WorkStartDeadline:   w.WorkStartDeadline,
		MilestonesCompleted: w.MilestonesCompleted,
		RefundPercentages:   w.RefundPercentages,
		CanOverride:         w.CanOverride,
	}
	for _, s := range w.Stages {
		policy.Stages = append(policy.Stages, escrow.GraduatedStage{Deadline: s.Deadline, Percent: s.Percent})
	}
	if w.Fee != "" {
		fee, err := decodeAmount(w.Fee)
		if err != nil {
			return nil, err
		}
		policy.Fee = fee
	}
	if w.Authority != "" {
		authority, err := decodeAccount(w.Authority)
		if err != nil {
			return nil, err
		}
		policy.Authority = authority
	}
	return policy, nil
}

func refundPolicyHandler(fn func(taskID [32]byte, caller [20]byte, policy *escrow.RefundPolicy) error) handlerFunc {
	return func(body []byte) (interface{}, error) {
		var req struct {
			TaskID string           `json:"taskId"`
			Caller string           `json:"caller"`
			Policy refundPolicyWire `json:"policy"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode request: %w", err)
		}
		taskID, err := decodeHash32(req.TaskID)
		if err != nil {
			return nil, err
		}
		caller, err := decodeAccount(req.Caller)
		if err != nil {
			return nil, err
		}
		policy, err := req.Policy.toPolicy()
		if err != nil {
			return nil, err
		}
		if err := fn(taskID, caller, policy); err != nil {
			return nil, err
		}
		return struct {
			TaskID string `json:"taskId"`
		}{TaskID: req.TaskID}, nil
	}
}

type templateParamsWire struct {
	DefaultFeePercent         uint8  `json:"defaultFeePercent"`
	MultiPartyEnabled         bool   `json:"multiPartyEnabled"`
	MilestoneEnabled          bool   `json:"milestoneEnabled"`
	MaxParticipants           uint32 `json:"maxParticipants"`
	MaxMilestones             uint32 `json:"maxMilestones"`
	DefaultMilestoneApprovals uint32 `json:"defaultMilestoneApprovals"`
	MinAmount                 string `json:"minAmount"`
	MaxAmount                 string `json:"maxAmount"`
	DefaultTimeout            uint64 `json:"defaultTimeout"`
	AutoAcceptTimeout         uint64 `json:"autoAcceptTimeout"`
	AutoReleaseTimeout        uint64 `json:"autoReleaseTimeout"`
	DisputesEnabled           bool   `json:"disputesEnabled"`
}

func (w templateParamsWire) toParams() (escrow.TemplateParams, error) {
	params := escrow.TemplateParams{
		DefaultFeePercent:         w.DefaultFeePercent,
		MultiPartyEnabled:         w.MultiPartyEnabled,
		MilestoneEnabled:          w.MilestoneEnabled,
		MaxParticipants:           w.MaxParticipants,
		MaxMilestones:             w.MaxMilestones,
		DefaultMilestoneApprovals: w.DefaultMilestoneApprovals,
		DefaultTimeout:            w.DefaultTimeout,
		AutoAcceptTimeout:         w.AutoAcceptTimeout,
		AutoReleaseTimeout:        w.AutoReleaseTimeout,
		DisputesEnabled:           w.DisputesEnabled,
	}
	var err error
	if w.MinAmount != "" {
		if params.MinAmount, err = decodeAmount(w.MinAmount); err != nil {
			return params, err
		}
	}
	if w.MaxAmount != "" {
		if params.MaxAmount, err = decodeAmount(w.MaxAmount); err != nil {
			return params, err
		}
	}
	return params, nil
}

type participantWire struct {
	Account  string `json:"account"`
	Role     uint8  `json:"role"`
	Amount   string `json:"amount"`
	Approved bool   `json:"approved"`
}

type milestoneWire struct {
	ID                uint32   `json:"id"`
	Description       string   `json:"description"`
	Amount            string   `json:"amount"`
	Completed         bool     `json:"completed"`
	ApprovedBy        []string `json:"approvedBy"`
	RequiredApprovals uint32   `json:"requiredApprovals"`
}

type escrowWire struct {
	TaskID            string            `json:"taskId"`
	User              string            `json:"user"`
	AgentDid          string            `json:"agentDid"`
	AgentAccount      string            `json:"agentAccount"`
	Amount            string            `json:"amount"`
	RemainingReserved string            `json:"remainingReserved"`
	FeePercent        uint8             `json:"feePercent"`
	CreatedAt         uint64            `json:"createdAt"`
	ExpiresAt         uint64            `json:"expiresAt"`
	Status            string            `json:"status"`
	TaskHash          string            `json:"taskHash"`
	Participants      []participantWire `json:"participants,omitempty"`
	IsMultiParty      bool              `json:"isMultiParty"`
	Milestones        []milestoneWire   `json:"milestones,omitempty"`
	IsMilestoneBased  bool              `json:"isMilestoneBased"`
}

func escrowResponse(e *escrow.Escrow) escrowWire {
	if e == nil {
		return escrowWire{}
	}
	wire := escrowWire{
		TaskID:            encodeBytes(e.TaskID[:]),
		User:              encodeBytes(e.User[:]),
		AgentDid:          e.AgentDid,
		AgentAccount:      encodeBytes(e.AgentAccount[:]),
		Amount:            amountString(e.Amount),
		RemainingReserved: amountString(e.RemainingReserved),
		FeePercent:        e.FeePercent,
		CreatedAt:         e.CreatedAt,
		ExpiresAt:         e.ExpiresAt,
		Status:            e.Status.String(),
		TaskHash:          encodeBytes(e.TaskHash[:]),
		IsMultiParty:      e.IsMultiParty,
		IsMilestoneBased:  e.IsMilestoneBased,
	}
	for _, p := range e.Participants {
		wire.Participants = append(wire.Participants, participantWire{
			Account:  encodeBytes(p.Account[:]),
			Role:     uint8(p.Role),
			Amount:   amountString(p.Amount),
			Approved: p.Approved,
		})
	}
	for _, m := range e.Milestones {
		approvedBy := make([]string, len(m.ApprovedBy))
		for i, a := range m.ApprovedBy {
			approvedBy[i] = encodeBytes(a[:])
		}
		wire.Milestones = append(wire.Milestones, milestoneWire{
			ID:                m.ID,
			Description:       m.Description,
			Amount:            amountString(m.Amount),
			Completed:         m.Completed,
			ApprovedBy:        approvedBy,
			RequiredApprovals: m.RequiredApprovals,
		})
	}
	return wire
}

type batchResultWire struct {
	BatchID string       `json:"batchId"`
	Results []escrowWire `json:"results"`
}

func batchResponse(batchID [32]byte, results []*escrow.Escrow) batchResultWire {
	wire := batchResultWire{BatchID: encodeBytes(batchID[:])}
	for _, r := range results {
		wire.Results = append(wire.Results, escrowResponse(r))
	}
	return wire
}

type templateWire struct {
	ID          uint64             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Type        uint8              `json:"type"`
	Params      templateParamsWire `json:"params"`
	IsActive    bool               `json:"isActive"`
	CreatedBy   string             `json:"createdBy"`
	UsageCount  uint64             `json:"usageCount"`
}

func templateResponse(t *escrow.Template) templateWire {
	if t == nil {
		return templateWire{}
	}
	return templateWire{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Type:        uint8(t.Type),
		Params: templateParamsWire{
			DefaultFeePercent:         t.Params.DefaultFeePercent,
			MultiPartyEnabled:         t.Params.MultiPartyEnabled,
			MilestoneEnabled:          t.Params.MilestoneEnabled,
			MaxParticipants:           t.Params.MaxParticipants,
			MaxMilestones:             t.Params.MaxMilestones,
			DefaultMilestoneApprovals: t.Params.DefaultMilestoneApprovals,
			MinAmount:                 amountString(t.Params.MinAmount),
			MaxAmount:                 amountString(t.Params.MaxAmount),
			DefaultTimeout:            t.Params.DefaultTimeout,
			AutoAcceptTimeout:         t.Params.AutoAcceptTimeout,
			AutoReleaseTimeout:        t.Params.AutoReleaseTimeout,
			DisputesEnabled:           t.Params.DisputesEnabled,
		},
		IsActive:   t.IsActive,
		CreatedBy:  encodeBytes(t.CreatedBy[:]),
		UsageCount: t.UsageCount,
	}
}
