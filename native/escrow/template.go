package escrow

import "math/big"

// TemplateType distinguishes builtin templates (immutable) from Custom
// templates created by a caller (mutable by their creator).
type TemplateType uint8

const (
	TemplateStandard TemplateType = iota
	TemplateCustom
)

// TemplateParams enumerates the defaults and bounds a template applies when
// instantiating an escrow.
type TemplateParams struct {
	DefaultFeePercent         uint8
	MultiPartyEnabled         bool
	MilestoneEnabled          bool
	MaxParticipants           uint32
	MaxMilestones             uint32
	DefaultMilestoneApprovals uint32
	MinAmount                 *big.Int
	MaxAmount                 *big.Int
	DefaultTimeout            uint64
	AutoAcceptTimeout         uint64
	AutoReleaseTimeout        uint64
	DisputesEnabled           bool
}

// Clone returns a deep copy.
func (p TemplateParams) Clone() TemplateParams {
	clone := p
	if p.MinAmount != nil {
		clone.MinAmount = new(big.Int).Set(p.MinAmount)
	}
	if p.MaxAmount != nil {
		clone.MaxAmount = new(big.Int).Set(p.MaxAmount)
	}
	return clone
}

// Template is a reusable escrow configuration.
type Template struct {
	ID          uint64
	Name        string
	Description string
	Type        TemplateType
	Params      TemplateParams
	IsActive    bool
	CreatedBy   [20]byte
	UsageCount  uint64
}

// Clone returns a deep copy.
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	clone := *t
	clone.Params = t.Params.Clone()
	return &clone
}

// InstantiationConfig carries the per-call overrides and payload supplied to
// createEscrowFromTemplate.
type InstantiationConfig struct {
	FeePercentOverride *uint8
	ExpiresAt          uint64
	Participants       []Participant
	Milestones         []Milestone
}

// clampAmount clamps amount into [min, max] when either bound is set.
func clampAmount(amount *big.Int, params TemplateParams) *big.Int {
	clamped := new(big.Int).Set(amount)
	if params.MinAmount != nil && clamped.Cmp(params.MinAmount) < 0 {
		clamped = new(big.Int).Set(params.MinAmount)
	}
	if params.MaxAmount != nil && clamped.Cmp(params.MaxAmount) > 0 {
		clamped = new(big.Int).Set(params.MaxAmount)
	}
	return clamped
}
