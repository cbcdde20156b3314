package mistri

import "time"

// UserRole determines which operations a caller may perform.
type UserRole string

const (
	RoleCustomer UserRole = "CUSTOMER"
	RoleWorker   UserRole = "WORKER"
	RoleAdmin    UserRole = "ADMIN"
)

// User is an authenticated account. Workers additionally have a Worker
// profile keyed by the same id.
type User struct {
	ID     string   `json:"id" db:"id"`
	Name   string   `json:"name" db:"name"`
	Phone  string   `json:"phone" db:"phone"`
	Role   UserRole `json:"role" db:"role"`
	Avatar string   `json:"avatar,omitempty" db:"avatar"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
