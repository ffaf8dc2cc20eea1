package domain

// SubjectType differentiates collaborator-service tokens from operator
// tokens issued by the surrounding application.
type SubjectType string

const (
	SubjectTypeService  SubjectType = "SERVICE"
	SubjectTypeOperator SubjectType = "OPERATOR"
)
