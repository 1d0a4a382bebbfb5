package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued tokens and user info.
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	User         UserInfo  `json:"user"`
	IssuedAt     time.Time `json:"issued_at"`
}

// RefreshTokenRequest exchanges a refresh token for a new access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// RefreshTokenResponse returns the refreshed tokens.
type RefreshTokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Roles    []string `json:"roles"`
	Org      string   `json:"org,omitempty"`
	Tenant   string   `json:"tenant,omitempty"`
}

// RoleNames accepts either a single role string or a list of roles.
type RoleNames []string

// UnmarshalJSON implements json.Unmarshaler.
func (r *RoleNames) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*r = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "\"") {
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*r = splitRoles(single)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("roles must be a string or list: %w", err)
	}
	*r = list
	return nil
}

func splitRoles(raw string) RoleNames {
	out := RoleNames{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string    `json:"user_id"`
	Role     string    `json:"role,omitempty"`
	Roles    RoleNames `json:"roles,omitempty"`
	Org      string    `json:"org,omitempty"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	jwt.RegisteredClaims
}

// RoleList normalises the single role and role list claims into one
// de-duplicated list, preserving order.
func (c *JWTClaims) RoleList() []string {
	if c == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(c.Roles)+1)
	out := make([]string, 0, len(c.Roles)+1)
	add := func(role string) {
		role = strings.TrimSpace(role)
		if role == "" {
			return
		}
		if _, ok := seen[role]; ok {
			return
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	for _, role := range c.Roles {
		add(role)
	}
	for _, role := range splitRoles(c.Role) {
		add(role)
	}
	return out
}

// HasRole reports whether the caller holds role (case-insensitive).
func (c *JWTClaims) HasRole(role string) bool {
	for _, r := range c.RoleList() {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// RefreshToken is a persisted refresh token session (refresh_tokens table).
type RefreshToken struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Token     string     `db:"token" json:"-"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	Revoked   bool       `db:"revoked" json:"revoked"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	IPAddress string     `db:"ip_address" json:"ip_address"`
	UserAgent string     `db:"user_agent" json:"user_agent"`
}
