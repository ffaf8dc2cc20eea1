package dto

import (
	"time"
)

// AssignLeadRequest payload.
type AssignLeadRequest struct {
	QueueID *string `json:"queue_id"`
}

// AssignmentResponse reports the owner decided for a lead.
type AssignmentResponse struct {
	LeadID  string  `json:"lead_id"`
	OwnerID string  `json:"owner_id"`
	QueueID *string `json:"queue_id,omitempty"`
	Source  string  `json:"source"`
}

// QueueOwnerResponse is the sticky owner of a lead within one queue.
type QueueOwnerResponse struct {
	LeadID     string    `json:"lead_id"`
	QueueID    string    `json:"queue_id"`
	UserID     string    `json:"user_id"`
	AssignedAt time.Time `json:"assigned_at"`
}

// DistributionStatEntry is one user's fairness state in a scope.
type DistributionStatEntry struct {
	UserID         string    `json:"user_id"`
	UserName       string    `json:"user_name,omitempty"`
	QueueID        string    `json:"queue_id,omitempty"`
	LastAssignedAt time.Time `json:"last_assigned_at"`
}

// ResetDistributionRequest payload for the destructive ledger reset.
type ResetDistributionRequest struct {
	TenantID  string `json:"tenant_id"`
	ChannelID string `json:"channel_id"`
	QueueID   string `json:"queue_id"`
}

// ResetDistributionResponse payload.
type ResetDistributionResponse struct {
	RowsDeleted int64 `json:"rows_deleted"`
}

// AssignmentHistoryEntry is one audit record of an owner change.
type AssignmentHistoryEntry struct {
	ID         string    `json:"id"`
	QueueID    *string   `json:"queue_id,omitempty"`
	OldOwnerID *string   `json:"old_owner_id,omitempty"`
	NewOwnerID string    `json:"new_owner_id"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"created_at"`
}

// QueueMemberWorkload pairs a queue member with its current lead load.
type QueueMemberWorkload struct {
	UserID     string `json:"user_id"`
	UserName   string `json:"user_name,omitempty"`
	IsActive   bool   `json:"is_active"`
	Priority   int    `json:"priority"`
	OwnedLeads int64  `json:"owned_leads"`
}
