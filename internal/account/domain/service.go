package domain

import (
	"context"
	"errors"
)

// SignUpUserRequest registers an end user.
type SignUpUserRequest struct {
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	Surname   string  `json:"surname"`
	Password  string  `json:"password"`
	AvatarURL *string `json:"avatar_url"`
	Age       *int    `json:"age"`
	Country   *string `json:"country"`
}

// SignUpCompanyRequest registers a business account.
type SignUpCompanyRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// SignInRequest authenticates either account kind.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries a bearer session token.
type TokenResponse struct {
	Token string `json:"token"`
}

// ProfileResponse is the user-facing profile view.
type ProfileResponse struct {
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	Surname   string  `json:"surname"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Age       *int    `json:"age,omitempty"`
	Country   *string `json:"country,omitempty"`
}

// UpdateProfileRequest patches profile fields; absent fields are untouched.
type UpdateProfileRequest struct {
	Name      *string `json:"name"`
	Surname   *string `json:"surname"`
	Password  *string `json:"password"`
	AvatarURL *string `json:"avatar_url"`
	Age       *int    `json:"age"`
	Country   *string `json:"country"`
}

// Service manages accounts and bearer sessions.
type Service interface {
	SignUpUser(ctx context.Context, req SignUpUserRequest) (*TokenResponse, error)
	SignInUser(ctx context.Context, req SignInRequest) (*TokenResponse, error)
	SignUpCompany(ctx context.Context, req SignUpCompanyRequest) (*TokenResponse, error)
	SignInCompany(ctx context.Context, req SignInRequest) (*TokenResponse, error)

	Profile(ctx context.Context, user *User) *ProfileResponse
	UpdateProfile(ctx context.Context, user *User, req UpdateProfileRequest) (*ProfileResponse, error)

	ResolveUser(ctx context.Context, token string) (*User, error)
	ResolveCompany(ctx context.Context, token string) (*Company, error)

	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

var (
	ErrEmailTaken         = errors.New("email_taken")
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrInvalidName        = errors.New("invalid_name")
	ErrWeakPassword       = errors.New("weak_password")
	ErrInvalidAge         = errors.New("invalid_age")
	ErrInvalidCountry     = errors.New("invalid_country")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUnauthorized       = errors.New("unauthorized")
)
