// Package escrow implements the multi-party, milestone-gated payment
// settlement engine: a per-taskId state machine mediating release, refund,
// and dispute over funds reserved through the currency collaborator.
package escrow

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ainur-network/ainurchain/native/common"
)

// Status enumerates the escrow lifecycle. Completed, Refunded, and Disputed
// are terminal: no further transitions are accepted.
type Status uint8

const (
	StatusPending Status = iota
	StatusAccepted
	StatusCompleted
	StatusRefunded
	StatusDisputed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAccepted:
		return "accepted"
	case StatusCompleted:
		return "completed"
	case StatusRefunded:
		return "refunded"
	case StatusDisputed:
		return "disputed"
	default:
		return "unknown"
	}
}

func (s Status) terminal() bool {
	switch s {
	case StatusCompleted, StatusRefunded, StatusDisputed:
		return true
	default:
		return false
	}
}

// ParticipantRole distinguishes the three roles a multi-party participant may
// hold. Only Payer participants reserve funds; Payee and Arbiter do not.
type ParticipantRole uint8

const (
	RolePayer ParticipantRole = iota
	RolePayee
	RoleArbiter
)

// Participant is one party to a multi-party escrow.
type Participant struct {
	Account  [20]byte
	Role     ParticipantRole
	Amount   *big.Int
	Approved bool
}

// Clone returns a deep copy.
func (p Participant) Clone() Participant {
	clone := p
	if p.Amount != nil {
		clone.Amount = new(big.Int).Set(p.Amount)
	}
	return clone
}

// Milestone is a sub-unit of an escrow payable independently once completed
// by the agent and approved by a quorum of the user/participants.
type Milestone struct {
	ID                uint32
	Description       string
	Amount            *big.Int
	Completed         bool
	ApprovedBy        [][20]byte
	RequiredApprovals uint32
}

// Clone returns a deep copy.
func (m Milestone) Clone() Milestone {
	clone := m
	if m.Amount != nil {
		clone.Amount = new(big.Int).Set(m.Amount)
	}
	if len(m.ApprovedBy) > 0 {
		clone.ApprovedBy = make([][20]byte, len(m.ApprovedBy))
		copy(clone.ApprovedBy, m.ApprovedBy)
	}
	return clone
}

func (m *Milestone) hasApproved(account [20]byte) bool {
	for _, existing := range m.ApprovedBy {
		if existing == account {
			return true
		}
	}
	return false
}

// Escrow is the per-task fund-locking state machine.
type Escrow struct {
	TaskID            [32]byte
	User              [20]byte
	AgentDid          string
	AgentAccount      [20]byte
	Amount            *big.Int
	RemainingReserved *big.Int
	FeePercent        uint8
	CreatedAt         uint64
	ExpiresAt         uint64
	Status            Status
	TaskHash          [32]byte
	Participants      []Participant
	IsMultiParty      bool
	Milestones        []Milestone
	IsMilestoneBased  bool
	NextMilestoneID   uint32
}

// Clone returns a deep copy so callers can mutate without aliasing state
// retrieved from storage.
func (e *Escrow) Clone() *Escrow {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Amount != nil {
		clone.Amount = new(big.Int).Set(e.Amount)
	}
	if e.RemainingReserved != nil {
		clone.RemainingReserved = new(big.Int).Set(e.RemainingReserved)
	}
	if len(e.Participants) > 0 {
		clone.Participants = make([]Participant, len(e.Participants))
		for i, p := range e.Participants {
			clone.Participants[i] = p.Clone()
		}
	}
	if len(e.Milestones) > 0 {
		clone.Milestones = make([]Milestone, len(e.Milestones))
		for i, m := range e.Milestones {
			clone.Milestones[i] = m.Clone()
		}
	}
	return &clone
}

// Bounds on escrow resource lists, enforced as hard failures with no
// eviction or spill.
const (
	MaxParticipants   = 16
	MaxMilestones     = 32
	MaxBatchSize      = 50
	DefaultFeePercent = 5
)

// MaxEscrowAmount bounds the fundable amount of a single escrow.
var MaxEscrowAmount = new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil)

var (
	// ErrInvalidAmount is returned when amount is zero or exceeds
	// MaxEscrowAmount.
	ErrInvalidAmount = errors.New("escrow: invalid amount")
	// ErrEscrowExists is returned when createEscrow targets an existing
	// taskId.
	ErrEscrowExists = errors.New("escrow: escrow already exists")
	// ErrEscrowNotFound is returned when the referenced escrow does not
	// exist.
	ErrEscrowNotFound = errors.New("escrow: escrow not found")
	// ErrWrongState is returned when an operation's state guard fails.
	ErrWrongState = errors.New("escrow: wrong state for operation")
	// ErrNotAuthorized is returned when the caller does not hold the role an
	// operation requires.
	ErrNotAuthorized = errors.New("escrow: caller not authorized")
	// ErrExpired is returned when an operation requiring a still-open
	// deadline runs after expiresAt.
	ErrExpired = errors.New("escrow: escrow expired")
	// ErrNotExpired is returned when a refund is requested on an accepted
	// escrow before its deadline.
	ErrNotExpired = errors.New("escrow: escrow not yet expired")
	// ErrBoundExceeded is returned when a resource list would exceed its
	// bound.
	ErrBoundExceeded = errors.New("escrow: bound exceeded")
	// ErrDidNotActive is returned when agentDid does not resolve to an
	// active DID.
	ErrDidNotActive = errors.New("escrow: agent did is not active")
	// ErrMilestoneNotFound is returned when a milestone id does not exist on
	// the escrow.
	ErrMilestoneNotFound = errors.New("escrow: milestone not found")
	// ErrMilestoneAlreadyCompleted is returned by completeMilestone on an
	// already-completed milestone.
	ErrMilestoneAlreadyCompleted = errors.New("escrow: milestone already completed")
	// ErrMilestoneNotCompleted is returned by approveMilestone before the
	// agent has completed it.
	ErrMilestoneNotCompleted = errors.New("escrow: milestone not completed")
	// ErrAlreadyApproved is returned when the same account approves a
	// milestone twice.
	ErrAlreadyApproved = errors.New("escrow: milestone already approved by caller")
	// ErrParticipantNotFound is returned when a participant reference does
	// not match any entry.
	ErrParticipantNotFound = errors.New("escrow: participant not found")
	// ErrParticipantsNotApproved is returned by releaseMultiPartyPayment
	// when not every participant has approved.
	ErrParticipantsNotApproved = errors.New("escrow: not all participants approved")
	// ErrNoMatchingPayer is returned when a Payee has no corresponding Payer
	// counterpart during multi-party settlement.
	ErrNoMatchingPayer = errors.New("escrow: no matching payer for payee")
	// ErrPolicyInvalid is returned when a refund policy fails validation.
	ErrPolicyInvalid = errors.New("escrow: invalid refund policy")
	// ErrTemplateNotFound is returned when a referenced template does not
	// exist.
	ErrTemplateNotFound = errors.New("escrow: template not found")
	// ErrTemplateImmutable is returned when a mutation targets a builtin
	// (non-Custom) template.
	ErrTemplateImmutable = errors.New("escrow: builtin templates are immutable")
	// ErrBatchSizeInvalid is returned when a batch is empty or exceeds
	// MaxBatchSize.
	ErrBatchSizeInvalid = errors.New("escrow: batch size invalid")
)

func init() {
	common.RegisterErrors(common.TaxonomyInvalidFormat, ErrInvalidAmount)
	common.RegisterErrors(common.TaxonomyAlreadyExists, ErrEscrowExists)
	common.RegisterErrors(common.TaxonomyNotFound, ErrEscrowNotFound, ErrMilestoneNotFound, ErrParticipantNotFound, ErrTemplateNotFound, ErrNoMatchingPayer)
	common.RegisterErrors(common.TaxonomyWrongState, ErrWrongState, ErrMilestoneAlreadyCompleted, ErrMilestoneNotCompleted, ErrAlreadyApproved, ErrParticipantsNotApproved, ErrTemplateImmutable)
	common.RegisterErrors(common.TaxonomyNotAuthorized, ErrNotAuthorized)
	common.RegisterErrors(common.TaxonomyExpired, ErrExpired, ErrNotExpired)
	common.RegisterErrors(common.TaxonomyBoundExceeded, ErrBoundExceeded, ErrBatchSizeInvalid)
	common.RegisterErrors(common.TaxonomyPolicyInvalid, ErrDidNotActive, ErrPolicyInvalid)
}

func validateAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}
	if amount.Cmp(MaxEscrowAmount) > 0 {
		return fmt.Errorf("%w: exceeds maximum escrow amount", ErrInvalidAmount)
	}
	return nil
}
