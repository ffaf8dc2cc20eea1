package domain

import "time"

// AssignmentRecord is an immutable audit trail entry for owner changes.
type AssignmentRecord struct {
	ID         string
	LeadID     string
	QueueID    *string
	OldOwnerID *string
	NewOwnerID string
	Source     AssignmentSource
	CreatedAt  time.Time
}
