package models

import (
	"time"

	"github.com/google/uuid"
)

// RoleProjectUser is the default role granted to every account at creation.
const RoleProjectUser = "PROJECTUSER"

// Account represents a user account in the system. Every account belongs to
// exactly one project; the project id is assigned at creation time from the
// creator's own project and never from client input.
type Account struct {
	ID           uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" validate:"required"`
	Email        string    `json:"email" gorm:"uniqueIndex" validate:"required,email,max=254"`
	FirstName    string    `json:"first_name" validate:"omitempty,max=50"`
	LastName     string    `json:"last_name" validate:"omitempty,max=50"`
	DisplayName  string    `json:"display_name" validate:"omitempty,max=100"`
	PasswordHash string    `json:"-" gorm:"column:password_hash"`
	ProjectID    string    `json:"project_id" gorm:"index" validate:"required,max=64"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AccountRole links an account to a role. Role assignment is a separate store
// operation so its failure is reportable independently of account creation.
type AccountRole struct {
	AccountID uuid.UUID `json:"account_id" gorm:"primaryKey;type:uuid"`
	Role      string    `json:"role" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
}

// PasswordResetToken is a one-time credential-reset token. Only a SHA-256 hash
// of the token is stored; the plaintext leaves the process exactly once.
type PasswordResetToken struct {
	ID        uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	AccountID uuid.UUID  `json:"account_id" gorm:"type:uuid;index"`
	TokenHash string     `json:"-" gorm:"uniqueIndex"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// AccountView is the wire-facing projection of an account. It never carries
// credential material.
type AccountView struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DisplayName string    `json:"display_name"`
	ProjectID   string    `json:"project_id"`
	Roles       []string  `json:"roles"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateAccountRequest carries the client-supplied fields for account
// creation. There is intentionally no project field here.
type CreateAccountRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	FirstName   string `json:"first_name" binding:"omitempty,max=50"`
	LastName    string `json:"last_name" binding:"omitempty,max=50"`
	DisplayName string `json:"display_name" binding:"omitempty,max=100"`
}

// UpdateAccountRequest is a partial update: nil fields are left unchanged.
type UpdateAccountRequest struct {
	Email       *string `json:"email" binding:"omitempty,email"`
	Password    *string `json:"password"`
	FirstName   *string `json:"first_name" binding:"omitempty,max=50"`
	LastName    *string `json:"last_name" binding:"omitempty,max=50"`
	DisplayName *string `json:"display_name" binding:"omitempty,max=100"`
}

// LoginRequest carries login credentials.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is returned on successful authentication.
type LoginResponse struct {
	Token   string       `json:"token"`
	Account *AccountView `json:"account"`
}

// ForgotPasswordRequest starts the credential-reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest consumes a one-time reset token.
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}
