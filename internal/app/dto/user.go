package dto

import (
	"time"

	domainuser "campusmarket/internal/domain/user"
)

type Institution struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

type UserProfile struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	Name         string      `json:"name"`
	Username     string      `json:"username,omitempty"`
	Institution  Institution `json:"institution"`
	IsAdmin      bool        `json:"is_admin,omitempty"`
	LastActiveAt *time.Time  `json:"last_active_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// PublicUser is what other students see about a user.
type PublicUser struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Username    string `json:"username,omitempty"`
	Institution string `json:"institution"`
}

type AuthResponse struct {
	User  UserProfile `json:"user"`
	Token string      `json:"token"`
}

type UsernameAvailability struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
}

func MapUserProfile(user *domainuser.User) UserProfile {
	if user == nil {
		return UserProfile{}
	}
	profile := UserProfile{
		ID:          string(user.ID),
		Email:       user.Email,
		Name:        user.Name,
		Username:    user.Username,
		Institution: Institution{Name: user.Institution.Name, Domain: user.Institution.Domain},
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
	if !user.LastActiveAt.IsZero() {
		last := user.LastActiveAt
		profile.LastActiveAt = &last
	}
	return profile
}

func MapPublicUser(user *domainuser.User) PublicUser {
	if user == nil {
		return PublicUser{}
	}
	return PublicUser{
		ID:          string(user.ID),
		Name:        user.Name,
		Username:    user.Username,
		Institution: user.Institution.Name,
	}
}

func NewAuthResponse(user *domainuser.User, token string) AuthResponse {
	return AuthResponse{
		User:  MapUserProfile(user),
		Token: token,
	}
}
