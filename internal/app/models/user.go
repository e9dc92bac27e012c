package models

import (
	"time"
)

// User is the identity referenced by activities and notifications. Accounts
// are managed by the identity service; this service only reads them.
type User struct {
	ID        int64     `json:"id" db:"id" example:"1"`
	Username  string    `json:"username" db:"username" example:"ada"`
	Email     string    `json:"email" db:"email" example:"ada@example.org"`
	Name      string    `json:"name" db:"name" example:"Ada Lovelace"`
	IsActive  bool      `json:"isActive" db:"is_active" example:"true"`
	CreatedAt time.Time `json:"createdAt" db:"created_at" example:"2024-01-01T10:00:00Z"`
}
