package domain

import "time"

// LedgerScope identifies one fairness rotation. QueueID is empty for
// channel-wide scopes; unrelated tenants, channels and queues never share a
// scope and never contend with each other.
type LedgerScope struct {
	TenantID  string
	ChannelID string
	QueueID   string
}

// Key returns the canonical scope key used for lock partitioning.
func (s LedgerScope) Key() string {
	return s.TenantID + "/" + s.ChannelID + "/" + s.QueueID
}

// LedgerEntry records when a user last received a lead in a scope. Absence
// of an entry means "never assigned", which sorts ahead of every entry.
type LedgerEntry struct {
	TenantID       string
	UserID         string
	ChannelID      string
	QueueID        string
	LastAssignedAt time.Time
}
