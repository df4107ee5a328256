package authapi

import (
	"time"

	"lms/cmd/internal/menu"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	UserID      string `json:"userId"`
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	Menus     []menu.Entry `json:"menus"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type sessionResponse struct {
	UserID      string    `json:"userId"`
	Role        string    `json:"role"`
	DisplayName string    `json:"displayName"`
	ExpiresAt   time.Time `json:"expiresAt"`
}
