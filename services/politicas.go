package services

import (
	"context"

	"github.com/kelydev/apiProyectos/apperrors"
	"github.com/kelydev/apiProyectos/models"
	"github.com/kelydev/apiProyectos/repository"
)

// CanAccessProject: creator or member.
func CanAccessProject(userID int, p *models.Proyecto, esMiembro bool) bool {
	return p.CreadorID == userID || esMiembro
}

// CanModifyProject covers edit, delete, task creation, invitations and
// project-level uploads.
func CanModifyProject(userID int, p *models.Proyecto) bool {
	return p.CreadorID == userID
}

// CanAccessTask: creator of the owning project or an assignee.
func CanAccessTask(userID int, p *models.Proyecto, asignado bool) bool {
	return p.CreadorID == userID || asignado
}

func CanModifyTaskState(userID int, p *models.Proyecto, asignado bool) bool {
	return CanAccessTask(userID, p, asignado)
}

func CanDeleteTask(userID int, t *models.Tarea) bool {
	return t.CreadorID == userID
}

// CanCommentOnTask: assignees only. Creating the task does not grant it.
func CanCommentOnTask(asignado bool) bool {
	return asignado
}

// Policies loads the facts the predicates need and turns a denial into
// Forbidden and a missing entity into NotFound.
type Policies struct {
	store repository.Store
}

func NewPolicies(store repository.Store) *Policies {
	return &Policies{store: store}
}

func (p *Policies) proyecto(ctx context.Context, id int) (*models.Proyecto, error) {
	proyecto, err := p.store.GetProyectoByID(ctx, id)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if proyecto == nil {
		return nil, apperrors.NotFound("Proyecto no encontrado")
	}
	return proyecto, nil
}

func (p *Policies) tarea(ctx context.Context, id int) (*models.Tarea, error) {
	tarea, err := p.store.GetTareaByID(ctx, id)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if tarea == nil {
		return nil, apperrors.NotFound("Tarea no encontrada")
	}
	return tarea, nil
}

func (p *Policies) asignado(ctx context.Context, tareaID, userID int) (bool, error) {
	ok, err := p.store.IsAsignado(ctx, tareaID, userID)
	if err != nil {
		return false, apperrors.Internal(err)
	}
	return ok, nil
}

// ProjectForAccess loads a project the user may read.
func (p *Policies) ProjectForAccess(ctx context.Context, userID, projectID int) (*models.Proyecto, error) {
	proyecto, err := p.proyecto(ctx, projectID)
	if err != nil {
		return nil, err
	}
	esMiembro := false
	if proyecto.CreadorID != userID {
		if esMiembro, err = p.store.IsMiembro(ctx, projectID, userID); err != nil {
			return nil, apperrors.Internal(err)
		}
	}
	if !CanAccessProject(userID, proyecto, esMiembro) {
		return nil, apperrors.Forbidden("No tienes acceso a este proyecto")
	}
	return proyecto, nil
}

// ProjectForModify loads a project the user may change.
func (p *Policies) ProjectForModify(ctx context.Context, userID, projectID int) (*models.Proyecto, error) {
	proyecto, err := p.proyecto(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !CanModifyProject(userID, proyecto) {
		return nil, apperrors.Forbidden("Solo el creador puede modificar este proyecto")
	}
	return proyecto, nil
}

// TaskForAccess loads a task the user may read, with its project.
func (p *Policies) TaskForAccess(ctx context.Context, userID, taskID int) (*models.Tarea, *models.Proyecto, error) {
	tarea, err := p.tarea(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	proyecto, err := p.proyecto(ctx, tarea.ProyectoID)
	if err != nil {
		return nil, nil, err
	}
	asignado := false
	if proyecto.CreadorID != userID {
		if asignado, err = p.asignado(ctx, taskID, userID); err != nil {
			return nil, nil, err
		}
	}
	if !CanAccessTask(userID, proyecto, asignado) {
		return nil, nil, apperrors.Forbidden("No tienes acceso a esta tarea")
	}
	return tarea, proyecto, nil
}

// TaskForStateChange loads a task whose state the user may change.
func (p *Policies) TaskForStateChange(ctx context.Context, userID, taskID int) (*models.Tarea, error) {
	tarea, err := p.tarea(ctx, taskID)
	if err != nil {
		return nil, err
	}
	proyecto, err := p.proyecto(ctx, tarea.ProyectoID)
	if err != nil {
		return nil, err
	}
	asignado, err := p.asignado(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	if !CanModifyTaskState(userID, proyecto, asignado) {
		return nil, apperrors.Forbidden("No tienes permiso para actualizar esta tarea")
	}
	return tarea, nil
}

// TaskForDelete loads a task the user may delete.
func (p *Policies) TaskForDelete(ctx context.Context, userID, taskID int) (*models.Tarea, error) {
	tarea, err := p.tarea(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !CanDeleteTask(userID, tarea) {
		return nil, apperrors.Forbidden("Solo el creador puede eliminar esta tarea")
	}
	return tarea, nil
}

// TaskForComment loads a task the user may comment on.
func (p *Policies) TaskForComment(ctx context.Context, userID, taskID int) (*models.Tarea, error) {
	tarea, err := p.tarea(ctx, taskID)
	if err != nil {
		return nil, err
	}
	asignado, err := p.asignado(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	if !CanCommentOnTask(asignado) {
		return nil, apperrors.Forbidden("Solo los usuarios asignados pueden comentar esta tarea")
	}
	return tarea, nil
}
