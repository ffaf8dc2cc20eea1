package events

import (
	"time"

	"github.com/spec-kit/lead-dispatch/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLeadOwnerAssigned   EventType = "lead_owner_assigned"
	EventLeadNeedsAttention  EventType = "lead_needs_attention"
	EventLeadRouted          EventType = "lead_routed"
	EventDistributionReset   EventType = "distribution_reset"
	EventEligibilityMismatch EventType = "eligibility_mismatch"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TenantID  string      `json:"tenant_id"`
	LeadID    string      `json:"lead_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// LeadOwnerAssignedPayload payload.
type LeadOwnerAssignedPayload struct {
	OldOwnerID *string                 `json:"old_owner_id,omitempty"`
	NewOwnerID string                  `json:"new_owner_id"`
	QueueID    *string                 `json:"queue_id,omitempty"`
	ChannelID  string                  `json:"channel_id"`
	Source     domain.AssignmentSource `json:"source"`
}

// LeadNeedsAttentionPayload flags a lead left unowned because no candidate
// was eligible. Collaborators surface it for manual handling.
type LeadNeedsAttentionPayload struct {
	ChannelID  string  `json:"channel_id"`
	PipelineID string  `json:"pipeline_id"`
	QueueID    *string `json:"queue_id,omitempty"`
	Reason     string  `json:"reason"`
}

// LeadRoutedPayload payload.
type LeadRoutedPayload struct {
	QueueID    string `json:"queue_id"`
	PipelineID string `json:"pipeline_id"`
	StageID    string `json:"stage_id,omitempty"`
}

// DistributionResetPayload records the destructive administrative reset.
type DistributionResetPayload struct {
	ChannelID   string `json:"channel_id"`
	QueueID     string `json:"queue_id,omitempty"`
	RowsDeleted int64  `json:"rows_deleted"`
	ResetBy     string `json:"reset_by"`
}

// EligibilityMismatchPayload reports users present in exactly one of the two
// eligibility sources for a (pipeline, queue) pair.
type EligibilityMismatchPayload struct {
	PipelineID   string   `json:"pipeline_id"`
	QueueID      string   `json:"queue_id"`
	QueueOnly    []string `json:"queue_only,omitempty"`
	PipelineOnly []string `json:"pipeline_only,omitempty"`
}
