package auth

const (
	RoleAdmin    = "admin"
	RoleHR       = "hr"
	RoleManager  = "manager"
	RoleEmployee = "employee"

	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)
