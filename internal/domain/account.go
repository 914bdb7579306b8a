package domain

import "time"

const (
	RoleUser   = "user"
	RoleMentor = "mentor"
)

type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName,omitempty"`
	Role         string    `json:"role"`
	Expertise    []string  `json:"expertise,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
