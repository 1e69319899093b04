package domain

// Role identifies which principal a session or verification flow belongs to.
// The string values are part of the stored wire contract: the admin session's
// role key must hold exactly "ADMIN".
type Role string

const (
	RoleMember Role = "MEMBER"
	RoleAdmin  Role = "ADMIN"
)
