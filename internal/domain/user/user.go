package user

import (
	"errors"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	ErrNotFound        = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already exists")
	ErrInvalidPassword = errors.New("invalid password")
)

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PublicUser is what leaves the service layer. It has no password field at all.
type PublicUser struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// Identity is the request scoped caller resolved from a verified token.
type Identity struct {
	ID    int64
	Email string
	Role  string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Changes is the partial update applied by a store. nil means "leave as is".
type Changes struct {
	Name  *string
	Email *string
	Role  *string
}

func (c Changes) Empty() bool {
	return c.Name == nil && c.Email == nil && c.Role == nil
}
