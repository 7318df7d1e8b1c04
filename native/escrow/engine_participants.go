package escrow

import "math/big"

// AddParticipant attaches a participant to a Pending or Accepted escrow,
// marking it multi-party. Payer participants reserve Amount against their
// own balance; Payee and Arbiter participants carry no reservation.
func (e *Engine) AddParticipant(taskID [32]byte, caller [20]byte, participant Participant) (*Escrow, error) {
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
	if len(escrow.Participants) >= MaxParticipants {
		return nil, ErrBoundExceeded
	}
	for _, existing := range escrow.Participants {
		if existing.Account == participant.Account && existing.Role == participant.Role {
			return nil, ErrNotAuthorized
		}
	}
	if participant.Role == RolePayer {
		if err := validateAmount(participant.Amount); err != nil {
			return nil, err
		}
		if err := e.vault.Reserve(participant.Account[:], participant.Amount); err != nil {
			return nil, err
		}
		escrow.RemainingReserved = new(big.Int).Add(escrow.RemainingReserved, participant.Amount)
	}
	escrow.IsMultiParty = true
	escrow.Participants = append(escrow.Participants, participant.Clone())
	if err := e.store.putEscrow(escrow); err != nil {
		return nil, err
	}
	e.emit(NewParticipantAddedEvent(escrow, participant))
	return escrow.Clone(), nil
}

// RemoveParticipant detaches a participant from a Pending or Accepted
// escrow, returning any Payer reservation to its source account.
func (e *Engine) RemoveParticipant(taskID [32]byte, caller [20]byte, account [20]byte, role ParticipantRole) (*Escrow, error) {
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
	idx := -1
	for i, p := range escrow.Participants {
		if p.Account == account && p.Role == role {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrParticipantNotFound
	}
	removed := escrow.Participants[idx]
	if removed.Role == RolePayer && removed.Amount != nil {
		if err := e.vault.Unreserve(removed.Account[:], removed.Amount); err != nil {
			return nil, err
		}
		escrow.RemainingReserved = new(big.Int).Sub(escrow.RemainingReserved, removed.Amount)
	}
	escrow.Participants = append(escrow.Participants[:idx], escrow.Participants[idx+1:]...)
	if len(escrow.Participants) == 0 {
		escrow.IsMultiParty = false
	}
	if err := e.store.putEscrow(escrow); err != nil {
		return nil, err
	}
	e.emit(NewParticipantRemovedEvent(escrow, account))
	return escrow.Clone(), nil
}

// ReleaseMultiPartyPayment settles a multi-party escrow once every
// participant has approved: each Payee participant is paid from the
// matching Payer's reserved funds, proportioned by the Payee's own Amount,
// less the protocol fee.
func (e *Engine) ReleaseMultiPartyPayment(taskID [32]byte, caller [20]byte) (*Escrow, error) {
	if err := e.guardNotPaused(); err != nil {
		return nil, err
	}
	escrow, err := e.store.getEscrow(taskID)
	if err != nil {
		return nil, err
	}
	if !escrow.IsMultiParty {
		return nil, ErrWrongState
	}
	if escrow.Status != StatusAccepted && escrow.Status != StatusPending {
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
	for _, p := range escrow.Participants {
		if !p.Approved {
			return nil, ErrParticipantsNotApproved
		}
	}
	var payers []Participant
	for _, p := range escrow.Participants {
		if p.Role == RolePayer {
			payers = append(payers, p)
		}
	}
	for _, payee := range escrow.Participants {
		if payee.Role != RolePayee {
			continue
		}
		settled := false
		for i, payer := range payers {
			if payer.Amount == nil || payer.Amount.Sign() <= 0 {
				continue
			}
			amount := minBigInt(payer.Amount, payee.Amount)
			if amount.Sign() <= 0 {
				continue
			}
			fee, err := e.fee(amount, escrow.FeePercent)
			if err != nil {
				return nil, err
			}
			net := new(big.Int).Sub(amount, fee)
			if net.Sign() > 0 {
				if err := e.vault.SlashReserved(payer.Account[:], net, payee.Account[:]); err != nil {
					return nil, err
				}
			}
			if fee.Sign() > 0 {
				if err := e.vault.SlashReserved(payer.Account[:], fee, e.feeAccount[:]); err != nil {
					return nil, err
				}
			}
			payers[i].Amount = new(big.Int).Sub(payer.Amount, amount)
			escrow.RemainingReserved = new(big.Int).Sub(escrow.RemainingReserved, amount)
			settled = true
			break
		}
		if !settled {
			return nil, ErrNoMatchingPayer
		}
	}
	escrow.Status = StatusCompleted
	if err := e.store.putEscrow(escrow); err != nil {
		return nil, err
	}
	e.emit(NewMultiPartyReleasedEvent(escrow))
	return escrow.Clone(), nil
}

// ApproveParticipant records approval by one of the escrow's own
// participants, a prerequisite for releaseMultiPartyPayment.
func (e *Engine) ApproveParticipant(taskID [32]byte, caller [20]byte) (*Escrow, error) {
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
	found := false
	for i, p := range escrow.Participants {
		if p.Account == caller {
			escrow.Participants[i].Approved = true
			found = true
		}
	}
	if !found {
		return nil, ErrParticipantNotFound
	}
	if err := e.store.putEscrow(escrow); err != nil {
		return nil, err
	}
	return escrow.Clone(), nil
}

func minBigInt(a, b *big.Int) *big.Int {
	if a == nil {
		return new(big.Int).Set(b)
	}
	if b == nil {
		return new(big.Int).Set(a)
	}
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
