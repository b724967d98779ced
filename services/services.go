// Package services holds the use cases behind the HTTP handlers. Services
// authorize with the policies in politicas.go, talk to a repository.Store
// and return *apperrors.AppError values for every expected outcome.
package services

import (
	"log/slog"
	"strings"

	"github.com/kelydev/apiProyectos/apperrors"
	"github.com/kelydev/apiProyectos/auth"
	"github.com/kelydev/apiProyectos/repository"
	"github.com/kelydev/apiProyectos/storage"
)

// DefaultMaxUploadSize caps a single uploaded file.
const DefaultMaxUploadSize int64 = 10 << 20

// Options tunes the service bundle.
type Options struct {
	MaxUploadSize int64
	Logger        *slog.Logger
}

// Services bundles every use case for injection into the route layer.
type Services struct {
	Auth         *AuthService
	Proyectos    *ProyectoService
	Tareas       *TareaService
	Invitaciones *InvitacionService
	Archivos     *ArchivoService
	Composer     *Composer
	Policies     *Policies
}

// New wires the services around one store, one blob backend and one token
// issuer.
func New(store repository.Store, blobs storage.Blobs, tokens *auth.TokenIssuer, opts Options) *Services {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxSize := opts.MaxUploadSize
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}

	policies := NewPolicies(store)
	composer := NewComposer(store, policies)
	archivos := NewArchivoService(store, blobs, policies, maxSize, logger)
	return &Services{
		Auth:         NewAuthService(store, tokens, logger),
		Proyectos:    NewProyectoService(store, policies, composer, archivos, logger),
		Tareas:       NewTareaService(store, policies, composer, archivos, logger),
		Invitaciones: NewInvitacionService(store, policies, logger),
		Archivos:     archivos,
		Composer:     composer,
		Policies:     policies,
	}
}

// appError converts err to an *AppError, keeping a nil error nil.
func appError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.From(err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
