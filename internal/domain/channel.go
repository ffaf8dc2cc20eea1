package domain

import "time"

// DefaultReturnTimeoutHours applies when a channel has no explicit window.
const DefaultReturnTimeoutHours = 24

// Channel is an inbound messaging channel (e.g. a WhatsApp number) with its
// return-routing and queue-menu settings.
type Channel struct {
	ID                 string
	TenantID           string
	Name               string
	ReturnTimeoutHours int
	QueueMenuEnabled   bool
	MenuHeaderText     string
	MenuInvalidText    string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ReturnTimeout resolves the channel's return window. A channel without an
// explicit window inherits the given service-wide default; a zero fallback
// means 24 hours.
func (c *Channel) ReturnTimeout(fallback time.Duration) time.Duration {
	if c.ReturnTimeoutHours > 0 {
		return time.Duration(c.ReturnTimeoutHours) * time.Hour
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultReturnTimeoutHours * time.Hour
}
