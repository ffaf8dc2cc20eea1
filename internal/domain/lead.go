package domain

import "time"

// Lead is an inbound sales conversation. Created by an external
// collaborator; the engine writes owner_id and the routing columns
// (queue_id, pipeline_id, stage_id) only.
type Lead struct {
	ID         string
	TenantID   string
	ContactID  string
	PipelineID string
	StageID    *string
	ChannelID  string
	QueueID    *string
	OwnerID    *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
