package domain

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	UserID         string     `json:"id" dynamodbav:"user_id"`
	Nickname       string     `json:"nickname" dynamodbav:"nickname"`
	Email          string     `json:"email" dynamodbav:"email"`
	Phone          *string    `json:"phone" dynamodbav:"phone"`
	PasswordHash   string     `json:"-" dynamodbav:"password_hash"`
	Role           string     `json:"role" dynamodbav:"role"`
	PhoneVerified  bool       `json:"phone_verified" dynamodbav:"phone_verified"`
	Provider       string     `json:"provider,omitempty" dynamodbav:"provider"` // "kakao" | "naver" | "google" | "local"
	ProviderUserID string     `json:"-" dynamodbav:"provider_user_id"`
	ProviderKey    string     `json:"-" dynamodbav:"provider_key"` // provider:providerUserID, provider_key-index GSI
	CI             string     `json:"-" dynamodbav:"ci"` // connecting-information hash from PASS certification
	Enable         bool       `json:"enable" dynamodbav:"enable"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty" dynamodbav:"deleted_at"`
	CreatedAt      time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// SocialKey is the GSI lookup key for a linked social identity.
func (u *User) SocialKey() string {
	return SocialIdentityKey(u.Provider, u.ProviderUserID)
}

// SocialIdentityKey builds the composite provider lookup key stored in the
// provider_key GSI attribute.
func SocialIdentityKey(provider, providerUserID string) string {
	if provider == "" || providerUserID == "" {
		return ""
	}
	return provider + ":" + providerUserID
}

// CreateUserRequest completes the registration subflow after an OAuth
// NEED_REGISTER outcome. Password is optional; when set it enables the
// email+password fallback login.
type CreateUserRequest struct {
	Nickname       string  `json:"nickname" validate:"required"`
	Email          string  `json:"email" validate:"required,email"`
	Password       *string `json:"password" validate:"omitempty,min=8,max=72"`
	Provider       string  `json:"provider" validate:"required"`
	ProviderUserID string  `json:"provider_user_id" validate:"required"`
}
