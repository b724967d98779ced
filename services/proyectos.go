package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kelydev/apiProyectos/apperrors"
	"github.com/kelydev/apiProyectos/models"
	"github.com/kelydev/apiProyectos/repository"
)

// ProyectoService handles project mutations and delegates reads to the
// Composer.
type ProyectoService struct {
	store    repository.Store
	policies *Policies
	composer *Composer
	archivos *ArchivoService
	logger   *slog.Logger
}

func NewProyectoService(store repository.Store, policies *Policies, composer *Composer, archivos *ArchivoService, logger *slog.Logger) *ProyectoService {
	return &ProyectoService{store: store, policies: policies, composer: composer, archivos: archivos, logger: logger}
}

func (s *ProyectoService) List(ctx context.Context, userID int) ([]models.ProyectoExtendido, error) {
	return s.composer.ListProjectsForUser(ctx, userID)
}

func (s *ProyectoService) Get(ctx context.Context, userID, projectID int) (*models.ProyectoExtendido, error) {
	return s.composer.GetProject(ctx, userID, projectID)
}

func (s *ProyectoService) ListMembers(ctx context.Context, userID, projectID int) ([]models.MiembroExtendido, error) {
	return s.composer.ListMembers(ctx, userID, projectID)
}

// Create inserts the project, the creator's admin membership and the
// attached files in one transaction.
func (s *ProyectoService) Create(ctx context.Context, userID int, in models.ProyectoInput, files []Upload) (*models.ProyectoExtendido, error) {
	in.Nombre = strings.TrimSpace(in.Nombre)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := s.archivos.CheckSizes(files); err != nil {
		return nil, err
	}

	p := &models.Proyecto{
		Nombre:      in.Nombre,
		Descripcion: in.Descripcion,
		FechaLimite: in.FechaLimite,
		Estado:      models.EstadoProyectoActivo,
		CreadorID:   userID,
		Presupuesto: in.Presupuesto,
	}
	var written []string
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.CreateProyecto(ctx, p); err != nil {
			return apperrors.Internal(err)
		}
		admin := &models.MiembroProyecto{ProyectoID: p.ID, UsuarioID: userID, Rol: models.RolAdmin}
		if _, err := tx.AddMiembro(ctx, admin); err != nil {
			return apperrors.Internal(err)
		}
		return s.archivos.saveAll(ctx, tx, models.TipoProyecto, p.ID, userID, files, &written)
	})
	if err != nil {
		s.archivos.removeBlobs(ctx, written, "proyecto no creado")
		return nil, appError(err)
	}
	s.logger.Info("project created", "proyecto_id", p.ID, "usuario_id", userID, "archivos", len(files))
	return s.composer.GetProject(ctx, userID, p.ID)
}

// Update applies the non-nil fields of patch. The creator never changes.
func (s *ProyectoService) Update(ctx context.Context, userID, projectID int, patch models.ProyectoPatch) (*models.Proyecto, error) {
	if patch.Nombre != nil {
		nombre := strings.TrimSpace(*patch.Nombre)
		patch.Nombre = &nombre
	}
	if err := validateStruct(patch); err != nil {
		return nil, err
	}
	p, err := s.policies.ProjectForModify(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if patch.Nombre != nil {
		p.Nombre = *patch.Nombre
	}
	if patch.Descripcion != nil {
		p.Descripcion = *patch.Descripcion
	}
	if patch.FechaLimite != nil {
		p.FechaLimite = patch.FechaLimite
	}
	if patch.Estado != nil {
		p.Estado = *patch.Estado
	}
	if patch.Presupuesto != nil {
		p.Presupuesto = patch.Presupuesto
	}
	if err := s.store.UpdateProyecto(ctx, p); err != nil {
		return nil, apperrors.Internal(err)
	}
	return p, nil
}

// Delete removes the project and everything it owns, then the blobs of
// every file that went with it.
func (s *ProyectoService) Delete(ctx context.Context, userID, projectID int) error {
	if _, err := s.policies.ProjectForModify(ctx, userID, projectID); err != nil {
		return err
	}
	rutas, err := s.store.ListRutasByProyecto(ctx, projectID)
	if err != nil {
		return apperrors.Internal(err)
	}
	deleted, err := s.store.DeleteProyecto(ctx, projectID)
	if err != nil {
		return apperrors.Internal(err)
	}
	if !deleted {
		return apperrors.NotFound("Proyecto no encontrado")
	}
	s.archivos.removeBlobs(ctx, rutas, "proyecto eliminado")
	s.logger.Info("project deleted", "proyecto_id", projectID, "usuario_id", userID, "archivos", len(rutas))
	return nil
}

func (s *ProyectoService) Dashboard(ctx context.Context, userID int) (*models.Dashboard, error) {
	d, err := s.store.GetDashboard(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return d, nil
}
