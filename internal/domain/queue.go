package domain

import (
	"fmt"
	"time"
)

// Queue is a department-scoped routing target bound to a channel and a
// pipeline, with its own membership list and menu entry.
type Queue struct {
	ID             string
	TenantID       string
	ChannelID      string
	PipelineID     string
	Name           string
	MenuOption     int
	MenuLabel      string
	WelcomeMessage string
	AutoDistribute bool
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MenuLine renders the queue's line inside the channel menu.
func (q *Queue) MenuLine() string {
	return fmt.Sprintf("%d - %s", q.MenuOption, q.MenuLabel)
}

// QueueMember links a user to a queue. Priority is informational only; the
// selection order is driven by the assignment ledger, not by weight.
type QueueMember struct {
	QueueID   string
	UserID    string
	IsActive  bool
	Priority  int
	CreatedAt time.Time
	UpdatedAt time.Time
}
