package domain

import "time"

// QueueOwner is the sticky handler for a lead within one queue. At most one
// row exists per (lead, queue) and it is never overwritten once created; the
// same lead may have different owners in different queues.
type QueueOwner struct {
	LeadID     string
	QueueID    string
	UserID     string
	AssignedAt time.Time
}
