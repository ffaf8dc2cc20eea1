package dto

// RouteContactRequest payload.
type RouteContactRequest struct {
	ChannelID string `json:"channel_id"`
}

// MenuOptionResponse is one selectable queue in a channel menu.
type MenuOptionResponse struct {
	Option     int    `json:"option"`
	QueueID    string `json:"queue_id"`
	Label      string `json:"label"`
	PipelineID string `json:"pipeline_id"`
}

// MenuResponse is a rendered queue menu.
type MenuResponse struct {
	Text    string               `json:"text"`
	Options []MenuOptionResponse `json:"options"`
}

// RouteDecisionResponse reports how a returning contact re-enters.
type RouteDecisionResponse struct {
	State   string        `json:"state"`
	Kind    string        `json:"decision"`
	OwnerID *string       `json:"owner_id,omitempty"`
	LeadID  *string       `json:"lead_id,omitempty"`
	Menu    *MenuResponse `json:"menu,omitempty"`
}

// MenuReplyRequest carries a contact's raw menu reply.
type MenuReplyRequest struct {
	ChannelID string `json:"channel_id"`
	Response  string `json:"response"`
}

// MenuReplyResponse reports the routing outcome of a menu reply.
type MenuReplyResponse struct {
	QueueID        string  `json:"queue_id"`
	QueueName      string  `json:"queue_name"`
	WelcomeMessage string  `json:"welcome_message,omitempty"`
	OwnerID        *string `json:"owner_id,omitempty"`
}
