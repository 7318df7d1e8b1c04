package escrow

import "math/big"

// AddMilestone appends a milestone to a Pending or Accepted escrow, marking
// it milestone-based. The sum of milestone amounts is not required to equal
// the escrow amount: any remainder is released via releasePayment once every
// milestone is settled.
func (e *Engine) AddMilestone(taskID [32]byte, caller [20]byte, description string, amount *big.Int, requiredApprovals uint32) (*Escrow, error) {
	if err := e.guardNotPaused(); err != nil {
		return nil, err
	}
	escrow, err := e.store.getEscrow(taskID)
	if err != nil {
		return nil, err
	}
	if escrow.Status.terminal() {
		return nil, ErrWrongState
	}
	if caller != escrow.User {
		return nil, ErrNotAuthorized
	}
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if len(escrow.Milestones) >= MaxMilestones {
		return nil, ErrBoundExceeded
	}
	if requiredApprovals == 0 {
		requiredApprovals = 1
	}
	milestone := Milestone{
		ID:                escrow.NextMilestoneID,
		Description:       description,
		Amount:            new(big.Int).Set(amount),
		RequiredApprovals: requiredApprovals,
	}
	escrow.NextMilestoneID++
	escrow.IsMilestoneBased = true
	escrow.Milestones = append(escrow.Milestones, milestone)
	if err := e.store.putEscrow(escrow); err != nil {
		return nil, err
	}
	e.emit(NewMilestoneAddedEvent(escrow, milestone))
	return escrow.Clone(), nil
}

func findMilestone(escrow *Escrow, milestoneID uint32) int {
	for i, m := range escrow.Milestones {
		if m.ID == milestoneID {
			return i
		}
	}
	return -1
}

// CompleteMilestone marks a milestone complete once the agent has delivered
// the corresponding work. Only the bound agent account may call this.
func (e *Engine) CompleteMilestone(taskID [32]byte, caller [20]byte, milestoneID uint32) (*Escrow, error) {
	if err := e.guardNotPaused(); err != nil {
		return nil, err
	}
	escrow, err := e.store.getEscrow(taskID)
	if err != nil {
		return nil, err
	}
	if escrow.Status != StatusAccepted {
		return nil, ErrWrongState
	}
	if caller != escrow.AgentAccount {
		return nil, ErrNotAuthorized
	}
	idx := findMilestone(escrow, milestoneID)
	if idx < 0 {
		return nil, ErrMilestoneNotFound
	}
	if escrow.Milestones[idx].Completed {
		return nil, ErrMilestoneAlreadyCompleted
	}
	escrow.Milestones[idx].Completed = true
	if err := e.store.putEscrow(escrow); err != nil {
		return nil, err
	}
	e.emit(NewMilestoneCompletedEvent(escrow, escrow.Milestones[idx]))
	return escrow.Clone(), nil
}

// ApproveMilestone records an approval by the user or a multi-party
// participant. Once the milestone's approval quorum is reached, its amount
// is released to the agent immediately, drawn from the escrow's
// RemainingReserved, less the protocol fee.
func (e *Engine) ApproveMilestone(taskID [32]byte, caller [20]byte, milestoneID uint32) (*Escrow, error) {
	if err := e.guardNotPaused(); err != nil {
		return nil, err
	}
	escrow, err := e.store.getEscrow(taskID)
	if err != nil {
		return nil, err
	}
	if escrow.Status != StatusAccepted {
		return nil, ErrWrongState
	}
	authorized := caller == escrow.User
	if !authorized {
		for _, p := range escrow.Participants {
			if p.Account == caller {
				authorized = true
				break
			}
		}
	}
	if !authorized {
		return nil, ErrNotAuthorized
	}
	idx := findMilestone(escrow, milestoneID)
	if idx < 0 {
		return nil, ErrMilestoneNotFound
	}
	milestone := &escrow.Milestones[idx]
	if !milestone.Completed {
		return nil, ErrMilestoneNotCompleted
	}
	if milestone.hasApproved(caller) {
		return nil, ErrAlreadyApproved
	}
	milestone.ApprovedBy = append(milestone.ApprovedBy, caller)
	e.emit(NewMilestoneApprovedEvent(escrow, *milestone, caller))
	if uint32(len(milestone.ApprovedBy)) >= milestone.RequiredApprovals {
		payout := minBigInt(milestone.Amount, escrow.RemainingReserved)
		if payout.Sign() > 0 {
			if err := e.settle(escrow, payout); err != nil {
				return nil, err
			}
			escrow.RemainingReserved = new(big.Int).Sub(escrow.RemainingReserved, payout)
		}
		e.emit(NewMilestoneReleasedEvent(escrow, *milestone))
	}
	if err := e.store.putEscrow(escrow); err != nil {
		return nil, err
	}
	return escrow.Clone(), nil
}
