package domain

import "time"

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleManager   Role = "manager"
	RoleKitchen   Role = "kitchen"
	RoleAttendant Role = "attendant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleKitchen, RoleAttendant:
		return true
	}
	return false
}

// Identity is the verified (tenant, user, role) triple attached to every
// authenticated request and real-time connection.
type Identity struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
	Role      Role   `json:"role"`
	Username  string `json:"username"`
}

type User struct {
	ID           string    `json:"id"`
	CompanyID    string    `json:"company_id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}
