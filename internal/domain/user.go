package domain

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           string    `json:"id" validate:"required"`
	Username     string    `json:"username" validate:"required,min=3,max=32"`
	Email        string    `json:"email,omitempty" validate:"omitempty,email"`
	PasswordHash string    `json:"passwordHash" validate:"required"`
	Role         Role      `json:"role" validate:"required,oneof=user admin"`
	CreatedAt    time.Time `json:"createdAt"`
	LastLoginAt  time.Time `json:"lastLoginAt,omitzero"`

	// Échecs de connexion consécutifs, remis à zéro au login.
	FailedLogins int `json:"failedLogins"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
