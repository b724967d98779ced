package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kelydev/apiProyectos/apperrors"
	"github.com/kelydev/apiProyectos/auth"
	"github.com/kelydev/apiProyectos/models"
	"github.com/kelydev/apiProyectos/repository"
)

const minSearchLen = 2

// AuthService registers users, checks credentials and serves profiles.
type AuthService struct {
	store  repository.Store
	tokens *auth.TokenIssuer
	logger *slog.Logger
}

func NewAuthService(store repository.Store, tokens *auth.TokenIssuer, logger *slog.Logger) *AuthService {
	return &AuthService{store: store, tokens: tokens, logger: logger}
}

// Register creates an account and returns a token for it.
func (s *AuthService) Register(ctx context.Context, in models.RegistroInput) (*models.AuthResponse, error) {
	in.Nombre = strings.TrimSpace(in.Nombre)
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	existing, err := s.store.GetUsuarioByEmail(ctx, in.Email)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if existing != nil {
		return nil, apperrors.Conflict("El email ya está registrado")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	u := &models.Usuario{Nombre: in.Nombre, Email: in.Email, Password: hash}
	if err := s.store.CreateUsuario(ctx, u); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("El email ya está registrado")
		}
		return nil, apperrors.Internal(err)
	}
	s.logger.Info("user registered", "usuario_id", u.ID)
	return s.respond(u)
}

// Login checks the credentials and returns a fresh token.
func (s *AuthService) Login(ctx context.Context, creds models.Credentials) (*models.AuthResponse, error) {
	creds.Email = normalizeEmail(creds.Email)
	if err := validateStruct(creds); err != nil {
		return nil, err
	}
	u, err := s.Authenticate(ctx, creds.Email, creds.Password)
	if err != nil {
		return nil, err
	}
	return s.respond(u)
}

// Authenticate verifies an email and password pair. An unknown email and a
// wrong password produce the same error.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.Usuario, error) {
	u, err := s.store.GetUsuarioByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if u == nil || !auth.CheckPasswordHash(password, u.Password) {
		return nil, apperrors.Unauthenticated("Credenciales inválidas")
	}
	return u, nil
}

func (s *AuthService) respond(u *models.Usuario) (*models.AuthResponse, error) {
	token, err := s.tokens.Issue(auth.Payload{ID: u.ID, Email: u.Email, Nombre: u.Nombre})
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &models.AuthResponse{Token: token, Usuario: *u}, nil
}

// Perfil returns the caller's own account.
func (s *AuthService) Perfil(ctx context.Context, userID int) (*models.Usuario, error) {
	u, err := s.store.GetUsuarioByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if u == nil {
		return nil, apperrors.NotFound("Usuario no encontrado")
	}
	return u, nil
}

// UpdatePerfil changes the caller's name and avatar.
func (s *AuthService) UpdatePerfil(ctx context.Context, userID int, in models.PerfilInput) (*models.Usuario, error) {
	in.Nombre = strings.TrimSpace(in.Nombre)
	if in.Avatar != nil {
		avatar := strings.TrimSpace(*in.Avatar)
		in.Avatar = &avatar
		if avatar == "" {
			in.Avatar = nil
		}
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if _, err := s.Perfil(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.store.UpdatePerfil(ctx, userID, in.Nombre, in.Avatar); err != nil {
		return nil, apperrors.Internal(err)
	}
	return s.Perfil(ctx, userID)
}

// SearchUsuarios finds other users by name or email for the invite form.
func (s *AuthService) SearchUsuarios(ctx context.Context, userID int, q string, page, limit int) ([]models.Usuario, int, error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < minSearchLen {
		return nil, 0, apperrors.Validation("La búsqueda debe tener al menos 2 caracteres")
	}
	usuarios, total, err := s.store.SearchUsuarios(ctx, q, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return usuarios, total, nil
}
