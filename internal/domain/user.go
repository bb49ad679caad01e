package domain

import "time"

// UserRole distinguishes senders from drivers.
type UserRole string

const (
	UserRoleSender UserRole = "SENDER"
	UserRoleDriver UserRole = "DRIVER"
	UserRoleAdmin  UserRole = "ADMIN"
)

// User represents a sender, driver or admin in the system.
type User struct {
	ID        string
	Name      string
	Email     string
	Role      UserRole
	CreatedAt time.Time
}
