package dto

import "encoding/json"

type RegisterRequestDTO struct {
	Email    string `json:"email" validate:"required,email,max=254" example:"user@example.com"`
	Password string `json:"password" validate:"required,min=8,max=72" example:"password123"`
}

type LoginRequestDTO struct {
	Email    string `json:"email" validate:"required,email" example:"user@example.com"`
	Password string `json:"password" validate:"required" example:"password123"`
}

// AuthResponseDTO is returned by register and login. The token is also sent
// in the Authorization header.
type AuthResponseDTO struct {
	Token   string      `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	UserID  int         `json:"userId" example:"1"`
	Email   string      `json:"email" example:"user@example.com"`
	Balance json.Number `json:"balance" swaggertype:"number" example:"0.00"`
}
