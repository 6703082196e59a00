package domain

import "time"

// UserRole enumerates supported roles.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// User represents an authenticated account. Profile fields are owned by the
// identity collaborator; Credits is owned by the ledger and changes only
// through LedgerRepository operations.
type User struct {
	ID        string
	Email     string
	Name      string
	Role      UserRole
	Verified  bool
	Credits   int
	CreatedAt time.Time
	UpdatedAt time.Time
}
