package escrow

import "math/big"

// CreateTemplate registers a new Custom template owned by caller.
func (e *Engine) CreateTemplate(caller [20]byte, name, description string, params TemplateParams) (*Template, error) {
	if err := e.guardNotPaused(); err != nil {
		return nil, err
	}
	id, err := e.store.nextTemplateID()
	if err != nil {
		return nil, err
	}
	tmpl := &Template{
		ID:          id,
		Name:        name,
		Description: description,
		Type:        TemplateCustom,
		Params:      params.Clone(),
		IsActive:    true,
		CreatedBy:   caller,
	}
	if err := e.store.putTemplate(tmpl); err != nil {
		return nil, err
	}
	e.emit(NewTemplateCreatedEvent(tmpl))
	return tmpl.Clone(), nil
}

// UpdateTemplate replaces a Custom template's parameters. Builtin
// (Standard) templates are immutable.
func (e *Engine) UpdateTemplate(caller [20]byte, id uint64, params TemplateParams) (*Template, error) {
	if err := e.guardNotPaused(); err != nil {
		return nil, err
	}
	tmpl, err := e.store.getTemplate(id)
	if err != nil {
		return nil, err
	}
	if tmpl.Type != TemplateCustom {
		return nil, ErrTemplateImmutable
	}
	if tmpl.CreatedBy != caller {
		return nil, ErrNotAuthorized
	}
	tmpl.Params = params.Clone()
	if err := e.store.putTemplate(tmpl); err != nil {
		return nil, err
	}
	e.emit(NewTemplateUpdatedEvent(tmpl))
	return tmpl.Clone(), nil
}

// DeactivateTemplate marks a Custom template inactive, preventing further
// instantiation while preserving history for escrows already created from
// it.
func (e *Engine) DeactivateTemplate(caller [20]byte, id uint64) (*Template, error) {
	if err := e.guardNotPaused(); err != nil {
		return nil, err
	}
	tmpl, err := e.store.getTemplate(id)
	if err != nil {
		return nil, err
	}
	if tmpl.Type != TemplateCustom {
		return nil, ErrTemplateImmutable
	}
	if tmpl.CreatedBy != caller {
		return nil, ErrNotAuthorized
	}
	tmpl.IsActive = false
	if err := e.store.putTemplate(tmpl); err != nil {
		return nil, err
	}
	e.emit(NewTemplateDeactivatedEvent(tmpl))
	return tmpl.Clone(), nil
}

// CreateEscrowFromTemplate instantiates a new escrow from an active
// template, clamping amount into the template's [MinAmount, MaxAmount]
// bound and applying its default fee, participant, and milestone
// configuration unless overridden by config.
func (e *Engine) CreateEscrowFromTemplate(taskID [32]byte, user [20]byte, templateID uint64, amount *big.Int, agentDid string, agentAccount [20]byte, taskHash [32]byte, config InstantiationConfig) (*Escrow, error) {
	if err := e.guardNotPaused(); err != nil {
		return nil, err
	}
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	tmpl, err := e.store.getTemplate(templateID)
	if err != nil {
		return nil, err
	}
	if !tmpl.IsActive {
		return nil, ErrTemplateNotFound
	}
	if exists, err := e.store.escrowExists(taskID); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrEscrowExists
	}
	if !tmpl.Params.MultiPartyEnabled && len(config.Participants) > 0 {
		return nil, ErrNotAuthorized
	}
	if !tmpl.Params.MilestoneEnabled && len(config.Milestones) > 0 {
		return nil, ErrNotAuthorized
	}
	if tmpl.Params.MaxParticipants > 0 && uint32(len(config.Participants)) > tmpl.Params.MaxParticipants {
		return nil, ErrBoundExceeded
	}
	if tmpl.Params.MaxMilestones > 0 && uint32(len(config.Milestones)) > tmpl.Params.MaxMilestones {
		return nil, ErrBoundExceeded
	}
	if agentDid != "" && (e.dids == nil || !e.dids.IsDidActive(agentDid)) {
		return nil, ErrDidNotActive
	}

	clamped := clampAmount(amount, tmpl.Params)
	feePercent := tmpl.Params.DefaultFeePercent
	if config.FeePercentOverride != nil {
		feePercent = *config.FeePercentOverride
	}
	expiresAt := config.ExpiresAt
	if expiresAt == 0 {
		expiresAt = e.now() + tmpl.Params.DefaultTimeout
	}

	if err := e.vault.Reserve(user[:], clamped); err != nil {
		return nil, err
	}

	escrow := &Escrow{
		TaskID:            taskID,
		User:              user,
		AgentDid:          agentDid,
		AgentAccount:      agentAccount,
		Amount:            new(big.Int).Set(clamped),
		RemainingReserved: new(big.Int).Set(clamped),
		FeePercent:        feePercent,
		CreatedAt:         e.now(),
		ExpiresAt:         expiresAt,
		Status:            StatusPending,
		TaskHash:          taskHash,
	}
	for _, p := range config.Participants {
		escrow.Participants = append(escrow.Participants, p.Clone())
	}
	escrow.IsMultiParty = len(escrow.Participants) > 0
	for i, m := range config.Milestones {
		m.ID = uint32(i)
		escrow.Milestones = append(escrow.Milestones, m.Clone())
	}
	escrow.IsMilestoneBased = len(escrow.Milestones) > 0
	escrow.NextMilestoneID = uint32(len(escrow.Milestones))

	if err := e.store.putEscrow(escrow); err != nil {
		return nil, err
	}
	tmpl.UsageCount++
	if err := e.store.putTemplate(tmpl); err != nil {
		return nil, err
	}
	e.emit(NewEscrowFromTemplateEvent(escrow, templateID))
	return escrow.Clone(), nil
}
