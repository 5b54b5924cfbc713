package handler

import "github.com/99minutos/auth-service/internal/core/domain"

type registerRequest struct {
	Email    string  `json:"email"    validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	Name     *string `json:"name"     validate:"omitempty,max=100"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// envelope is the success body of every auth route.
type envelope struct {
	Status string `json:"status" example:"success"`
	Data   any    `json:"data"`
}

type authData struct {
	User        *domain.UserResponse `json:"user"`
	AccessToken string               `json:"accessToken"`
}

type accessTokenData struct {
	AccessToken string `json:"accessToken"`
}

type profileData struct {
	User *domain.UserResponse `json:"user"`
}

func success(data any) envelope {
	return envelope{Status: "success", Data: data}
}
