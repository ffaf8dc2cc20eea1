package domain

import "time"

// UserRole enumerates handler roles inside a tenant.
type UserRole string

const (
	UserRoleSeller  UserRole = "SELLER"
	UserRoleManager UserRole = "MANAGER"
	UserRoleAdmin   UserRole = "ADMIN"
)

// User is a human handler. The engine never owns these records; they are
// read-only input from the surrounding application.
type User struct {
	ID        string
	TenantID  string
	Name      string
	Email     string
	Role      UserRole
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
