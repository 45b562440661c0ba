package model

import (
	"time"

	"github.com/google/uuid"
)

// Account is an active (non-retired) user.
type Account struct {
	ID           uuid.UUID `json:"id"`
	RollNumber   string    `json:"roll_number"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Department   string    `json:"department"`
	Section      string    `json:"section,omitempty"`
	Batch        string    `json:"batch,omitempty"`
	IsApproved   bool      `json:"is_approved"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RetiredAccount is the non-secret snapshot kept after an account is deleted.
type RetiredAccount struct {
	ID         uuid.UUID `json:"id"`
	AccountID  uuid.UUID `json:"account_id"`
	RollNumber string    `json:"roll_number"`
	Name       string    `json:"name"`
	Role       Role      `json:"role"`
	Department string    `json:"department"`
	Section    string    `json:"section,omitempty"`
	Batch      string    `json:"batch,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	RetiredAt  time.Time `json:"retired_at"`
}

// AccountFilter narrows account listings. Text fields match case-insensitive substrings;
// Search matches either name or roll number.
type AccountFilter struct {
	Role       Role   `form:"role" binding:"omitempty,oneof=student staff admin"`
	Department string `form:"department" binding:"omitempty,max=255"`
	Section    string `form:"section" binding:"omitempty,max=64"`
	Batch      string `form:"batch" binding:"omitempty,max=64"`
	Search     string `form:"search" binding:"omitempty,max=255"`
}

// RegisterRequest is the self-registration payload.
type RegisterRequest struct {
	Name       string `json:"name" binding:"required,notblank,max=100"`
	RollNumber string `json:"roll_number" binding:"required,notblank,max=64"`
	Password   string `json:"password" binding:"required,min=6,max=128"`
	Role       Role   `json:"role" binding:"omitempty,oneof=student staff admin"`
	Department string `json:"department" binding:"required,notblank,max=255"`
	Section    string `json:"section" binding:"omitempty,max=64"`
	Batch      string `json:"batch" binding:"omitempty,max=64"`
}

// LoginRequest is the credential payload.
type LoginRequest struct {
	RollNumber string `json:"roll_number" binding:"required,max=64"`
	Password   string `json:"password" binding:"required,max=128"`
}

// LoginResponse is returned after successful authentication.
type LoginResponse struct {
	Token   string   `json:"token"`
	Account *Account `json:"user"`
}

// CreateStaffRequest is the admin payload for provisioning a staff account.
type CreateStaffRequest struct {
	Name       string `json:"name" binding:"required,notblank,max=100"`
	RollNumber string `json:"roll_number" binding:"required,notblank,max=64"`
	Password   string `json:"password" binding:"required,min=6,max=128"`
	Department string `json:"department" binding:"required,notblank,max=255"`
}

// AccountIDsRequest carries a batch of account IDs (approve, delete).
type AccountIDsRequest struct {
	UserIDs []uuid.UUID `json:"user_ids" binding:"required,min=1,max=500"`
}

// ResetPasswordRequest is the admin password reset payload.
type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// UpdateProfileRequest is the self-service profile patch. Nil fields are left untouched.
type UpdateProfileRequest struct {
	Name       *string `json:"name" binding:"omitempty,notblank,max=100"`
	RollNumber *string `json:"roll_number" binding:"omitempty,notblank,max=64"`
	Department *string `json:"department" binding:"omitempty,notblank,max=255"`
	Section    *string `json:"section" binding:"omitempty,max=64"`
	Batch      *string `json:"batch" binding:"omitempty,max=64"`
	Password   *string `json:"password" binding:"omitempty,min=6,max=128"`
}

// UpdateProfileResponse returns the updated account and, when claims changed, a new token.
type UpdateProfileResponse struct {
	Account *Account `json:"user"`
	Token   string   `json:"token,omitempty"`
}

// ApproveResponse reports how many accounts were approved.
type ApproveResponse struct {
	Approved int64 `json:"approved"`
}

// DeleteAccountsResponse lists the accounts retired by a batch delete.
type DeleteAccountsResponse struct {
	Deleted []uuid.UUID `json:"deleted"`
}
