package escrow

import (
	"fmt"
	"math/big"
)

// PolicyKind discriminates the refund policy union. Each kind computes a
// different refund amount from the escrow's remaining reserved amount given the
// current block number and, for Conditional, the count of completed
// milestones.
type PolicyKind uint8

const (
	PolicyStandard PolicyKind = iota
	PolicyTimeBased
	PolicyGraduated
	PolicyCancellationFee
	PolicyNoRefund
	PolicyConditional
	PolicyDisputeBased
)

// GraduatedStage is one step of a Graduated policy: once now has passed
// Deadline, Percent becomes the refund percentage, superseded by any later
// stage whose deadline has also passed.
type GraduatedStage struct {
	Deadline uint64
	Percent  uint8
}

// RefundPolicy is the declarative rule an escrow uses to compute its refund
// amount. Exactly one set of fields is meaningful, selected by Kind.
type RefundPolicy struct {
	Kind PolicyKind

	// TimeBased
	Deadline       uint64
	PartialPercent uint8

	// Graduated — Stages must be strictly ascending by Deadline.
	Stages []GraduatedStage

	// CancellationFee
	Fee *big.Int

	// NoRefund
	WorkStartDeadline uint64

	// Conditional — MilestonesCompleted is the configured bound; Evaluate
	// indexes RefundPercentages by min(actual completed count, this bound),
	// and returns 0 whenever the bound itself is not less than
	// len(RefundPercentages).
	MilestonesCompleted uint8
	RefundPercentages   []uint8

	CanOverride bool
	Authority   [20]byte
}

// Clone returns a deep copy.
func (p *RefundPolicy) Clone() *RefundPolicy {
	if p == nil {
		return nil
	}
	clone := *p
	if len(p.Stages) > 0 {
		clone.Stages = append([]GraduatedStage(nil), p.Stages...)
	}
	if p.Fee != nil {
		clone.Fee = new(big.Int).Set(p.Fee)
	}
	if len(p.RefundPercentages) > 0 {
		clone.RefundPercentages = append([]uint8(nil), p.RefundPercentages...)
	}
	return &clone
}

// Validate enforces the structural invariants of the policy. Graduated
// stages must be strictly ascending in deadline; percentages must not exceed
// 100.
func (p *RefundPolicy) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil policy", ErrPolicyInvalid)
	}
	switch p.Kind {
	case PolicyTimeBased:
		if p.PartialPercent > 100 {
			return fmt.Errorf("%w: partial percent exceeds 100", ErrPolicyInvalid)
		}
	case PolicyGraduated:
		if len(p.Stages) == 0 {
			return fmt.Errorf("%w: graduated policy requires at least one stage", ErrPolicyInvalid)
		}
		for i, stage := range p.Stages {
			if stage.Percent > 100 {
				return fmt.Errorf("%w: stage percent exceeds 100", ErrPolicyInvalid)
			}
			if i > 0 && stage.Deadline <= p.Stages[i-1].Deadline {
				return fmt.Errorf("%w: stages must be strictly ascending by deadline", ErrPolicyInvalid)
			}
		}
	case PolicyCancellationFee:
		if p.Fee == nil || p.Fee.Sign() < 0 {
			return fmt.Errorf("%w: fee must be non-negative", ErrPolicyInvalid)
		}
	case PolicyConditional:
		for _, pct := range p.RefundPercentages {
			if pct > 100 {
				return fmt.Errorf("%w: refund percentage exceeds 100", ErrPolicyInvalid)
			}
		}
	case PolicyStandard, PolicyNoRefund, PolicyDisputeBased:
	default:
		return fmt.Errorf("%w: unknown policy kind", ErrPolicyInvalid)
	}
	return nil
}

// Evaluate computes the refund amount for amount given the current block
// number now and, for Conditional policies, the number of completed
// milestones.
func (p *RefundPolicy) Evaluate(amount *big.Int, now uint64, milestonesCompleted int) *big.Int {
	if p == nil {
		return new(big.Int).Set(amount)
	}
	switch p.Kind {
	case PolicyTimeBased:
		if now <= p.Deadline {
			return new(big.Int).Set(amount)
		}
		return percentOf(amount, p.PartialPercent)
	case PolicyGraduated:
		pct := uint8(100)
		for _, stage := range p.Stages {
			if now >= stage.Deadline {
				pct = stage.Percent
			}
		}
		return percentOf(amount, pct)
	case PolicyCancellationFee:
		refund := new(big.Int).Sub(amount, p.Fee)
		if refund.Sign() < 0 {
			return big.NewInt(0)
		}
		return refund
	case PolicyNoRefund:
		if now <= p.WorkStartDeadline {
			return new(big.Int).Set(amount)
		}
		return big.NewInt(0)
	case PolicyConditional:
		if int(p.MilestonesCompleted) >= len(p.RefundPercentages) {
			return big.NewInt(0)
		}
		idx := milestonesCompleted
		if idx > int(p.MilestonesCompleted) {
			idx = int(p.MilestonesCompleted)
		}
		return percentOf(amount, p.RefundPercentages[idx])
	case PolicyDisputeBased:
		return new(big.Int).Set(amount)
	default:
		return new(big.Int).Set(amount)
	}
}

func percentOf(amount *big.Int, pct uint8) *big.Int {
	product := new(big.Int).Mul(amount, big.NewInt(int64(pct)))
	return product.Div(product, big.NewInt(100))
}
