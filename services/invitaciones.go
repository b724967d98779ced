package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kelydev/apiProyectos/apperrors"
	"github.com/kelydev/apiProyectos/models"
	"github.com/kelydev/apiProyectos/repository"
)

// InvitacionService runs the invitation lifecycle:
// pendiente -> aceptada | rechazada. Both outcomes are terminal.
type InvitacionService struct {
	store    repository.Store
	policies *Policies
	logger   *slog.Logger
}

func NewInvitacionService(store repository.Store, policies *Policies, logger *slog.Logger) *InvitacionService {
	return &InvitacionService{store: store, policies: policies, logger: logger}
}

// Create invites the owner of email to a project. Only the project creator
// may invite, and the invitee must already have an account.
func (s *InvitacionService) Create(ctx context.Context, inviterID, projectID int, email string) (int, error) {
	email = normalizeEmail(email)
	if err := validateVar("email", email, "required,email"); err != nil {
		return 0, err
	}
	p, err := s.policies.ProjectForModify(ctx, inviterID, projectID)
	if err != nil {
		return 0, err
	}

	invitado, err := s.store.GetUsuarioByEmail(ctx, email)
	if err != nil {
		return 0, apperrors.Internal(err)
	}
	if invitado == nil {
		return 0, apperrors.NotFound("No existe un usuario con ese email")
	}
	if invitado.ID == p.CreadorID {
		return 0, apperrors.Conflict("El usuario ya es miembro del proyecto")
	}
	esMiembro, err := s.store.IsMiembro(ctx, projectID, invitado.ID)
	if err != nil {
		return 0, apperrors.Internal(err)
	}
	if esMiembro {
		return 0, apperrors.Conflict("El usuario ya es miembro del proyecto")
	}
	pendiente, err := s.store.HasPendingInvitacion(ctx, projectID, email)
	if err != nil {
		return 0, apperrors.Internal(err)
	}
	if pendiente {
		return 0, apperrors.Conflict("Ya existe una invitación pendiente para este email")
	}

	inv := &models.Invitacion{
		ProyectoID:  projectID,
		Email:       email,
		RemitenteID: inviterID,
		Estado:      models.EstadoInvitacionPendiente,
	}
	if err := s.store.CreateInvitacion(ctx, inv); err != nil {
		// lost a race with a concurrent invite
		if repository.IsUniqueViolation(err) {
			return 0, apperrors.Conflict("Ya existe una invitación pendiente para este email")
		}
		return 0, apperrors.Internal(err)
	}
	s.logger.Info("invitation created", "invitacion_id", inv.ID, "proyecto_id", projectID)
	return inv.ID, nil
}

// ListPending returns the pending invitations addressed to the caller,
// newest first, each with its project and that project's creator.
func (s *InvitacionService) ListPending(ctx context.Context, userID int) ([]models.InvitacionExtendida, error) {
	u, err := s.store.GetUsuarioByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if u == nil {
		return nil, apperrors.NotFound("Usuario no encontrado")
	}
	invitaciones, err := s.store.ListPendingInvitacionesByEmail(ctx, u.Email)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	out := make([]models.InvitacionExtendida, 0, len(invitaciones))
	if len(invitaciones) == 0 {
		return out, nil
	}

	proyectoIDs := make([]int, 0, len(invitaciones))
	for _, inv := range invitaciones {
		proyectoIDs = append(proyectoIDs, inv.ProyectoID)
	}
	proyectos, err := s.store.GetProyectosByIDs(ctx, proyectoIDs)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	creadorIDs := make([]int, 0, len(proyectos))
	for _, p := range proyectos {
		creadorIDs = append(creadorIDs, p.CreadorID)
	}
	creadores, err := s.store.GetUsuariosByIDs(ctx, creadorIDs)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	for _, inv := range invitaciones {
		p, ok := proyectos[inv.ProyectoID]
		if !ok {
			continue
		}
		remitente, ok := creadores[p.CreadorID]
		if !ok {
			return nil, apperrors.Internal(errMissingUser(p.CreadorID))
		}
		out = append(out, models.InvitacionExtendida{Invitacion: inv, Remitente: remitente, Proyecto: p})
	}
	return out, nil
}

// Respond accepts or rejects an invitation addressed to the caller. The
// membership insert and the status change commit together or not at all.
func (s *InvitacionService) Respond(ctx context.Context, userID, invitationID int, accept bool) (*models.Invitacion, error) {
	u, err := s.store.GetUsuarioByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if u == nil {
		return nil, apperrors.NotFound("Usuario no encontrado")
	}

	var result *models.Invitacion
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		inv, err := tx.GetInvitacionForUpdate(ctx, invitationID)
		if err != nil {
			return apperrors.Internal(err)
		}
		if inv == nil || !strings.EqualFold(inv.Email, u.Email) {
			return apperrors.NotFound("Invitación no encontrada")
		}
		if inv.Estado != models.EstadoInvitacionPendiente {
			return apperrors.Conflict("La invitación ya fue respondida")
		}

		estado := models.EstadoInvitacionRechazada
		if accept {
			estado = models.EstadoInvitacionAceptada
			m := &models.MiembroProyecto{ProyectoID: inv.ProyectoID, UsuarioID: userID, Rol: models.RolColaborador}
			if _, err := tx.AddMiembro(ctx, m); err != nil {
				return apperrors.Internal(err)
			}
		}
		if err := tx.UpdateInvitacionEstado(ctx, inv.ID, estado); err != nil {
			return apperrors.Internal(err)
		}
		inv.Estado = estado
		result = inv
		return nil
	})
	if err != nil {
		return nil, appError(err)
	}
	s.logger.Info("invitation answered", "invitacion_id", invitationID, "estado", result.Estado)
	return result, nil
}

// Cancel deletes an invitation. Only the creator of its project may do so.
// The row stays locked from the lookup until the delete commits.
func (s *InvitacionService) Cancel(ctx context.Context, userID, invitationID int) error {
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		inv, err := tx.GetInvitacionForUpdate(ctx, invitationID)
		if err != nil {
			return apperrors.Internal(err)
		}
		if inv == nil {
			return apperrors.NotFound("Invitación no encontrada")
		}
		if _, err := s.policies.ProjectForModify(ctx, userID, inv.ProyectoID); err != nil {
			return err
		}
		deleted, err := tx.DeleteInvitacion(ctx, invitationID)
		if err != nil {
			return apperrors.Internal(err)
		}
		if !deleted {
			return apperrors.NotFound("Invitación no encontrada")
		}
		return nil
	})
	if err != nil {
		return appError(err)
	}
	s.logger.Info("invitation cancelled", "invitacion_id", invitationID, "usuario_id", userID)
	return nil
}
