package models

import "time"

// Usuario represents a registered user of the application.
type Usuario struct {
	ID            int       `json:"id"`
	Nombre        string    `json:"nombre"`
	Email         string    `json:"email"`
	Password      string    `json:"-"` // bcrypt hash, never serialized
	Avatar        *string   `json:"avatar,omitempty"`
	FechaCreacion time.Time `json:"fecha_creacion"`
}

// Credentials represents the data needed for login.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegistroInput is the payload accepted by the register endpoint.
type RegistroInput struct {
	Nombre   string `json:"nombre" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// PerfilInput holds the mutable profile fields.
type PerfilInput struct {
	Nombre string  `json:"nombre" validate:"required,max=100"`
	Avatar *string `json:"avatar" validate:"omitempty,max=500"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	Token   string  `json:"token"`
	Usuario Usuario `json:"usuario"`
}
