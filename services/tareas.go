package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kelydev/apiProyectos/apperrors"
	"github.com/kelydev/apiProyectos/models"
	"github.com/kelydev/apiProyectos/repository"
)

// TareaService handles tasks and their comments.
type TareaService struct {
	store    repository.Store
	policies *Policies
	composer *Composer
	archivos *ArchivoService
	logger   *slog.Logger
}

func NewTareaService(store repository.Store, policies *Policies, composer *Composer, archivos *ArchivoService, logger *slog.Logger) *TareaService {
	return &TareaService{store: store, policies: policies, composer: composer, archivos: archivos, logger: logger}
}

func (s *TareaService) Get(ctx context.Context, userID, taskID int) (*models.TareaExtendida, error) {
	return s.composer.GetTask(ctx, userID, taskID)
}

// Create adds a task to a project owned by userID. Every assignee must be
// the creator or a member of the project. The task, its assignments and
// its files commit together.
func (s *TareaService) Create(ctx context.Context, userID, projectID int, in models.TareaInput, files []Upload) (*models.TareaExtendida, error) {
	in.Titulo = strings.TrimSpace(in.Titulo)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Prioridad == "" {
		in.Prioridad = models.PrioridadMedia
	}
	p, err := s.policies.ProjectForModify(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}

	asignados := make([]int, 0, len(in.Asignados))
	seen := map[int]bool{}
	for _, id := range in.Asignados {
		if seen[id] {
			continue
		}
		seen[id] = true
		if id != p.CreadorID {
			esMiembro, err := s.store.IsMiembro(ctx, projectID, id)
			if err != nil {
				return nil, apperrors.Internal(err)
			}
			if !esMiembro {
				return nil, apperrors.Validation(fmt.Sprintf("El usuario %d no es miembro del proyecto", id))
			}
		}
		asignados = append(asignados, id)
	}
	if err := s.archivos.CheckSizes(files); err != nil {
		return nil, err
	}

	t := &models.Tarea{
		Titulo:      in.Titulo,
		Descripcion: in.Descripcion,
		Prioridad:   in.Prioridad,
		Estado:      models.EstadoTareaPendiente,
		FechaLimite: in.FechaLimite,
		ProyectoID:  projectID,
		CreadorID:   userID,
	}
	var written []string
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.CreateTarea(ctx, t); err != nil {
			return apperrors.Internal(err)
		}
		for _, id := range asignados {
			if err := tx.AddAsignacion(ctx, &models.AsignacionTarea{TareaID: t.ID, UsuarioID: id}); err != nil {
				return apperrors.Internal(err)
			}
		}
		return s.archivos.saveAll(ctx, tx, models.TipoTarea, t.ID, userID, files, &written)
	})
	if err != nil {
		s.archivos.removeBlobs(ctx, written, "tarea no creada")
		return nil, appError(err)
	}
	s.logger.Info("task created", "tarea_id", t.ID, "proyecto_id", projectID, "asignados", len(asignados))
	return s.composer.GetTask(ctx, userID, t.ID)
}

// ListForUser returns the caller's tasks across their projects, newest first.
func (s *TareaService) ListForUser(ctx context.Context, userID int) ([]models.Tarea, error) {
	return s.composer.ListTasksForUser(ctx, userID)
}

// Update applies the non-nil fields of patch. The same users who may change
// the state may edit the task.
func (s *TareaService) Update(ctx context.Context, userID, taskID int, patch models.TareaPatch) (*models.Tarea, error) {
	if patch.Titulo != nil {
		titulo := strings.TrimSpace(*patch.Titulo)
		patch.Titulo = &titulo
	}
	if err := validateStruct(patch); err != nil {
		return nil, err
	}
	t, err := s.policies.TaskForStateChange(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if patch.Titulo != nil {
		t.Titulo = *patch.Titulo
	}
	if patch.Descripcion != nil {
		t.Descripcion = *patch.Descripcion
	}
	if patch.Prioridad != nil {
		t.Prioridad = *patch.Prioridad
	}
	if patch.Estado != nil {
		t.Estado = *patch.Estado
	}
	if patch.FechaLimite != nil {
		t.FechaLimite = patch.FechaLimite
	}
	updated, err := s.store.UpdateTarea(ctx, t)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if !updated {
		return nil, apperrors.NotFound("Tarea no encontrada")
	}
	return t, nil
}

// UpdateState moves a task to another state. The project creator and any
// assignee may do so; concurrent updates are last-write-wins.
func (s *TareaService) UpdateState(ctx context.Context, userID, taskID int, estado string) (*models.Tarea, error) {
	if !models.EstadoTareaValido(estado) {
		return nil, apperrors.Validation("Estado de tarea inválido")
	}
	t, err := s.policies.TaskForStateChange(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateTareaEstado(ctx, taskID, estado)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if !updated {
		return nil, apperrors.NotFound("Tarea no encontrada")
	}
	t.Estado = estado
	return t, nil
}

// Delete removes a task with its assignments, comments and files.
func (s *TareaService) Delete(ctx context.Context, userID, taskID int) error {
	if _, err := s.policies.TaskForDelete(ctx, userID, taskID); err != nil {
		return err
	}
	rutas, err := s.store.ListRutasByTarea(ctx, taskID)
	if err != nil {
		return apperrors.Internal(err)
	}
	deleted, err := s.store.DeleteTarea(ctx, taskID)
	if err != nil {
		return apperrors.Internal(err)
	}
	if !deleted {
		return apperrors.NotFound("Tarea no encontrada")
	}
	s.archivos.removeBlobs(ctx, rutas, "tarea eliminada")
	s.logger.Info("task deleted", "tarea_id", taskID, "usuario_id", userID)
	return nil
}

// Comment adds a comment, with optional files, to a task the caller is
// assigned to.
func (s *TareaService) Comment(ctx context.Context, userID, taskID int, contenido string, files []Upload) (*models.ComentarioExtendido, error) {
	contenido = strings.TrimSpace(contenido)
	if contenido == "" {
		return nil, apperrors.Validation("El comentario no puede estar vacío")
	}
	if _, err := s.policies.TaskForComment(ctx, userID, taskID); err != nil {
		return nil, err
	}
	if err := s.archivos.CheckSizes(files); err != nil {
		return nil, err
	}

	c := &models.Comentario{Contenido: contenido, TareaID: taskID, UsuarioID: userID}
	var written []string
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.CreateComentario(ctx, c); err != nil {
			return apperrors.Internal(err)
		}
		return s.archivos.saveAll(ctx, tx, models.TipoComentario, c.ID, userID, files, &written)
	})
	if err != nil {
		s.archivos.removeBlobs(ctx, written, "comentario no creado")
		return nil, appError(err)
	}
	return s.composer.GetComment(ctx, *c)
}
