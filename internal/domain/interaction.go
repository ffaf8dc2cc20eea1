package domain

import "time"

// ContactInteraction is the most recent touchpoint between a contact and the
// organization on a channel. The ingestion collaborator records inbound
// messages; the engine records assignments. The latest row per
// (contact, channel) drives return routing.
type ContactInteraction struct {
	ContactID  string
	ChannelID  string
	LeadID     string
	OwnerID    *string
	QueueID    *string
	OccurredAt time.Time
}
