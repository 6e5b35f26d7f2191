package domain

import (
	"strings"
	"time"
)

// Account is the persisted account record.
// An account starts disabled and becomes enabled once its email is verified.
type Account struct {
	AccountID    string    `json:"id" dynamodbav:"account_id"`
	Email        string    `json:"email" dynamodbav:"email"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	IsEnabled    bool      `json:"-" dynamodbav:"is_enabled"`
	FirstName    string    `json:"first_name,omitempty" dynamodbav:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty" dynamodbav:"last_name,omitempty"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

// Verified reports whether the account has left the unverified state.
func (a *Account) Verified() bool { return a.IsEnabled }

// Profile returns the caller-facing projection of the account.
func (a *Account) Profile() *Profile {
	return &Profile{
		AccountID: a.AccountID,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
	}
}

// Identity returns the claims handed to the identity issuer after login.
func (a *Account) Identity() *Identity {
	return &Identity{AccountID: a.AccountID, Email: a.Email}
}

// Profile is an account without credentials or state flags.
type Profile struct {
	AccountID string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Identity is what a successful login or registration yields.
type Identity struct {
	AccountID string `json:"id"`
	Email     string `json:"email"`
}

// ProfileUpdate carries the fields to change; nil means "leave as is".
type ProfileUpdate struct {
	Email     *string
	FirstName *string
	LastName  *string
}

// Empty reports whether no field was supplied.
func (u ProfileUpdate) Empty() bool {
	return u.Email == nil && u.FirstName == nil && u.LastName == nil
}

// NormalizeEmail lower-cases and trims an address; emails are compared case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type RegisterRequest struct {
	Email             string `json:"email" validate:"required,email,max=254"`
	Password          string `json:"password" validate:"required,max=72"`
	ConfirmedPassword string `json:"confirmed_password" validate:"required"`
}

type VerifyRequest struct {
	Code string `json:"code" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Email     *string `json:"email" validate:"omitempty,email,max=254"`
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
}

type ChangePasswordRequest struct {
	OldPassword          string `json:"old_password" validate:"required"`
	NewPassword          string `json:"new_password" validate:"required,max=72"`
	ConfirmedNewPassword string `json:"confirmed_new_password" validate:"required"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Code                 string `json:"code" validate:"required"`
	NewPassword          string `json:"new_password" validate:"required,max=72"`
	ConfirmedNewPassword string `json:"confirmed_new_password" validate:"required"`
}
