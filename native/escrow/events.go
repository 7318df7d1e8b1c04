package escrow

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"github.com/ainur-network/ainurchain/core/types"
)

// Event type strings, namespaced per module convention.
const (
	EventTypeEscrowCreated        = "escrow.created"
	EventTypeEscrowAccepted       = "escrow.accepted"
	EventTypeEscrowCompleted      = "escrow.completed"
	EventTypeEscrowRefunded       = "escrow.refunded"
	EventTypeEscrowDisputed       = "escrow.disputed"
	EventTypeRefundEvaluated      = "escrow.refundEvaluated"
	EventTypeParticipantAdded     = "escrow.participantAdded"
	EventTypeParticipantRemoved   = "escrow.participantRemoved"
	EventTypeMultiPartyReleased   = "escrow.multiPartyReleased"
	EventTypeMilestoneAdded       = "escrow.milestoneAdded"
	EventTypeMilestoneCompleted   = "escrow.milestoneCompleted"
	EventTypeMilestoneApproved    = "escrow.milestoneApproved"
	EventTypeMilestoneReleased    = "escrow.milestoneReleased"
	EventTypeTemplateCreated      = "escrow.templateCreated"
	EventTypeTemplateUpdated      = "escrow.templateUpdated"
	EventTypeTemplateDeactivated  = "escrow.templateDeactivated"
	EventTypeEscrowFromTemplate   = "escrow.createdFromTemplate"
	EventTypeBatchOperationDone   = "escrow.batchOperationCompleted"
	EventTypeBatchOperationFailed = "escrow.batchOperationFailed"
)

func escrowAttrs(escrow *Escrow) map[string]string {
	attrs := map[string]string{
		"taskId": hex.EncodeToString(escrow.TaskID[:]),
		"user":   hex.EncodeToString(escrow.User[:]),
		"status": escrow.Status.String(),
	}
	if escrow.Amount != nil {
		attrs["amount"] = escrow.Amount.String()
	}
	if escrow.RemainingReserved != nil {
		attrs["remainingReserved"] = escrow.RemainingReserved.String()
	}
	if escrow.AgentDid != "" {
		attrs["agentDid"] = escrow.AgentDid
	}
	return attrs
}

// NewEscrowCreatedEvent returns the canonical payload for createEscrow.
func NewEscrowCreatedEvent(escrow *Escrow) *types.Event {
	return &types.Event{Type: EventTypeEscrowCreated, Attributes: escrowAttrs(escrow)}
}

// NewEscrowAcceptedEvent returns the canonical payload for acceptTask.
func NewEscrowAcceptedEvent(escrow *Escrow) *types.Event {
	attrs := escrowAttrs(escrow)
	attrs["agentAccount"] = hex.EncodeToString(escrow.AgentAccount[:])
	return &types.Event{Type: EventTypeEscrowAccepted, Attributes: attrs}
}

// NewEscrowCompletedEvent returns the canonical payload for releasePayment.
func NewEscrowCompletedEvent(escrow *Escrow) *types.Event {
	return &types.Event{Type: EventTypeEscrowCompleted, Attributes: escrowAttrs(escrow)}
}

// NewEscrowRefundedEvent returns the canonical payload for refundEscrow and
// overrideRefundAmount.
func NewEscrowRefundedEvent(escrow *Escrow, refund *big.Int) *types.Event {
	attrs := escrowAttrs(escrow)
	if refund != nil {
		attrs["refund"] = refund.String()
	}
	return &types.Event{Type: EventTypeEscrowRefunded, Attributes: attrs}
}

// NewEscrowDisputedEvent returns the canonical payload for disputeEscrow.
func NewEscrowDisputedEvent(escrow *Escrow) *types.Event {
	return &types.Event{Type: EventTypeEscrowDisputed, Attributes: escrowAttrs(escrow)}
}

// NewRefundEvaluatedEvent returns the canonical payload for
// evaluateRefundAmount, a read-only informational event.
func NewRefundEvaluatedEvent(escrow *Escrow, refund *big.Int) *types.Event {
	attrs := escrowAttrs(escrow)
	if refund != nil {
		attrs["refund"] = refund.String()
	}
	return &types.Event{Type: EventTypeRefundEvaluated, Attributes: attrs}
}

// NewParticipantAddedEvent returns the canonical payload for addParticipant.
func NewParticipantAddedEvent(escrow *Escrow, participant Participant) *types.Event {
	attrs := escrowAttrs(escrow)
	attrs["account"] = hex.EncodeToString(participant.Account[:])
	attrs["role"] = strconv.FormatUint(uint64(participant.Role), 10)
	if participant.Amount != nil {
		attrs["amount"] = participant.Amount.String()
	}
	return &types.Event{Type: EventTypeParticipantAdded, Attributes: attrs}
}

// NewParticipantRemovedEvent returns the canonical payload for
// removeParticipant.
func NewParticipantRemovedEvent(escrow *Escrow, account [20]byte) *types.Event {
	attrs := escrowAttrs(escrow)
	attrs["account"] = hex.EncodeToString(account[:])
	return &types.Event{Type: EventTypeParticipantRemoved, Attributes: attrs}
}

// NewMultiPartyReleasedEvent returns the canonical payload for
// releaseMultiPartyPayment.
func NewMultiPartyReleasedEvent(escrow *Escrow) *types.Event {
	return &types.Event{Type: EventTypeMultiPartyReleased, Attributes: escrowAttrs(escrow)}
}

func milestoneAttrs(escrow *Escrow, milestone Milestone) map[string]string {
	attrs := escrowAttrs(escrow)
	attrs["milestoneId"] = strconv.FormatUint(uint64(milestone.ID), 10)
	if milestone.Amount != nil {
		attrs["milestoneAmount"] = milestone.Amount.String()
	}
	attrs["completed"] = strconv.FormatBool(milestone.Completed)
	attrs["approvals"] = strconv.Itoa(len(milestone.ApprovedBy))
	attrs["requiredApprovals"] = strconv.FormatUint(uint64(milestone.RequiredApprovals), 10)
	return attrs
}

// NewMilestoneAddedEvent returns the canonical payload for addMilestone.
func NewMilestoneAddedEvent(escrow *Escrow, milestone Milestone) *types.Event {
	return &types.Event{Type: EventTypeMilestoneAdded, Attributes: milestoneAttrs(escrow, milestone)}
}

// NewMilestoneCompletedEvent returns the canonical payload for
// completeMilestone.
func NewMilestoneCompletedEvent(escrow *Escrow, milestone Milestone) *types.Event {
	return &types.Event{Type: EventTypeMilestoneCompleted, Attributes: milestoneAttrs(escrow, milestone)}
}

// NewMilestoneApprovedEvent returns the canonical payload for
// approveMilestone.
func NewMilestoneApprovedEvent(escrow *Escrow, milestone Milestone, approver [20]byte) *types.Event {
	attrs := milestoneAttrs(escrow, milestone)
	attrs["approver"] = hex.EncodeToString(approver[:])
	return &types.Event{Type: EventTypeMilestoneApproved, Attributes: attrs}
}

// NewMilestoneReleasedEvent returns the canonical payload for the payout
// auto-triggered once a milestone reaches its required approval quorum.
func NewMilestoneReleasedEvent(escrow *Escrow, milestone Milestone) *types.Event {
	return &types.Event{Type: EventTypeMilestoneReleased, Attributes: milestoneAttrs(escrow, milestone)}
}

func templateAttrs(tmpl *Template) map[string]string {
	return map[string]string{
		"templateId": strconv.FormatUint(tmpl.ID, 10),
		"name":       tmpl.Name,
		"isActive":   strconv.FormatBool(tmpl.IsActive),
		"usageCount": strconv.FormatUint(tmpl.UsageCount, 10),
	}
}

// NewTemplateCreatedEvent returns the canonical payload for createTemplate.
func NewTemplateCreatedEvent(tmpl *Template) *types.Event {
	return &types.Event{Type: EventTypeTemplateCreated, Attributes: templateAttrs(tmpl)}
}

// NewTemplateUpdatedEvent returns the canonical payload for updateTemplate.
func NewTemplateUpdatedEvent(tmpl *Template) *types.Event {
	return &types.Event{Type: EventTypeTemplateUpdated, Attributes: templateAttrs(tmpl)}
}

// NewTemplateDeactivatedEvent returns the canonical payload for
// deactivateTemplate.
func NewTemplateDeactivatedEvent(tmpl *Template) *types.Event {
	return &types.Event{Type: EventTypeTemplateDeactivated, Attributes: templateAttrs(tmpl)}
}

// NewEscrowFromTemplateEvent returns the canonical payload for
// createEscrowFromTemplate.
func NewEscrowFromTemplateEvent(escrow *Escrow, templateID uint64) *types.Event {
	attrs := escrowAttrs(escrow)
	attrs["templateId"] = strconv.FormatUint(templateID, 10)
	return &types.Event{Type: EventTypeEscrowFromTemplate, Attributes: attrs}
}

// NewBatchOperationCompletedEvent returns the canonical payload for a batch
// dispatch that committed in full.
func NewBatchOperationCompletedEvent(batchID [32]byte, opType string, count int) *types.Event {
	return &types.Event{Type: EventTypeBatchOperationDone, Attributes: map[string]string{
		"batchId": hex.EncodeToString(batchID[:]),
		"opType":  opType,
		"count":   strconv.Itoa(count),
	}}
}

// NewBatchOperationFailedEvent returns the canonical payload for a batch
// dispatch that was rejected during pre-validation or stopped by an item
// that failed during execution.
func NewBatchOperationFailedEvent(batchID [32]byte, opType string, reason string) *types.Event {
	return &types.Event{Type: EventTypeBatchOperationFailed, Attributes: map[string]string{
		"batchId": hex.EncodeToString(batchID[:]),
		"opType":  opType,
		"reason":  reason,
	}}
}
