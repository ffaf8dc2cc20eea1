package domain

import "time"

// Pipeline scopes lead eligibility at the sales-funnel level.
type Pipeline struct {
	ID           string
	TenantID     string
	Name         string
	IsVisible    bool
	FirstStageID *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PipelinePermission grants a user the right to receive leads in a pipeline.
type PipelinePermission struct {
	PipelineID     string
	UserID         string
	CanManageLeads bool
}
