package domain

// RouteState classifies an inbound event from an existing contact.
type RouteState string

const (
	RouteStateNewContact     RouteState = "NEW_CONTACT"
	RouteStateWithinTimeout  RouteState = "WITHIN_TIMEOUT"
	RouteStateExpiredTimeout RouteState = "EXPIRED_TIMEOUT"
)

// AssignmentSource records what triggered an ownership write.
type AssignmentSource string

const (
	SourceAutoDistribute AssignmentSource = "AUTO_DISTRIBUTE"
	SourceMenuRoute      AssignmentSource = "MENU_ROUTE"
	SourceReturnRoute    AssignmentSource = "RETURN_ROUTE"
	SourceStickyOwner    AssignmentSource = "STICKY_OWNER"
)
