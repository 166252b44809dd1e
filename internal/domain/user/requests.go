package user

import "strings"

// NormalizeEmail trims and lowercases an address before it is validated or stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type SignUpRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

func (r *SignUpRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = NormalizeEmail(r.Email)
	if r.Role == "" {
		r.Role = RoleUser
	}
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (r *SignInRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

// CreateUserRequest deliberately asks for a longer password (8) than sign-in / sign-up (6).
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=255"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

func (r *CreateUserRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = NormalizeEmail(r.Email)
	if r.Role == "" {
		r.Role = RoleUser
	}
}

// UpdateUserRequest is a patch: every field is optional, but at least one must be set.
type UpdateUserRequest struct {
	Name  *string `json:"name" validate:"omitnil,min=2,max=255"`
	Email *string `json:"email" validate:"omitnil,email,max=255"`
	Role  *string `json:"role" validate:"omitnil,oneof=user admin"`
}

func (r *UpdateUserRequest) Normalize() {
	if r.Name != nil {
		n := strings.TrimSpace(*r.Name)
		r.Name = &n
	}
	if r.Email != nil {
		e := NormalizeEmail(*r.Email)
		r.Email = &e
	}
}

func (r UpdateUserRequest) Changes() Changes {
	return Changes{Name: r.Name, Email: r.Email, Role: r.Role}
}
