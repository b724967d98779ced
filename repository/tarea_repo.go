package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kelydev/apiProyectos/models"
	"github.com/lib/pq"
)

const tareaColumns = `id, titulo, descripcion, prioridad, estado, fecha_creacion, fecha_limite, proyecto_id, creador_id`

func scanTarea(rs rowScanner) (models.Tarea, error) {
	var t models.Tarea
	var limite sql.NullTime
	if err := rs.Scan(&t.ID, &t.Titulo, &t.Descripcion, &t.Prioridad, &t.Estado, &t.FechaCreacion, &limite, &t.ProyectoID, &t.CreadorID); err != nil {
		return models.Tarea{}, err
	}
	t.FechaLimite = nullTime(limite)
	return t, nil
}

// CreateTarea inserts a new task.
func (s *SQLStore) CreateTarea(ctx context.Context, t *models.Tarea) error {
	query := `INSERT INTO tareas (titulo, descripcion, prioridad, estado, fecha_limite, proyecto_id, creador_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, fecha_creacion`
	err := s.q.QueryRowContext(ctx, query, t.Titulo, t.Descripcion, t.Prioridad, t.Estado, t.FechaLimite, t.ProyectoID, t.CreadorID).
		Scan(&t.ID, &t.FechaCreacion)
	if err != nil {
		return fmt.Errorf("error inserting task: %w", err)
	}
	return nil
}

// GetTareaByID retrieves a single task by its ID.
func (s *SQLStore) GetTareaByID(ctx context.Context, id int) (*models.Tarea, error) {
	t, err := scanTarea(s.q.QueryRowContext(ctx, `SELECT `+tareaColumns+` FROM tareas WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting task by ID: %w", err)
	}
	return &t, nil
}

// ListTareasByProyectos returns the tasks of every listed project, oldest
// first within each project.
func (s *SQLStore) ListTareasByProyectos(ctx context.Context, proyectoIDs []int) ([]models.Tarea, error) {
	tareas := []models.Tarea{}
	if len(proyectoIDs) == 0 {
		return tareas, nil
	}
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+tareaColumns+` FROM tareas WHERE proyecto_id = ANY($1) ORDER BY proyecto_id, fecha_creacion, id`,
		pq.Array(int64s(proyectoIDs)))
	if err != nil {
		return nil, fmt.Errorf("error querying tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTarea(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning task row: %w", err)
		}
		tareas = append(tareas, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating through task rows: %w", err)
	}
	return tareas, nil
}

// UpdateTareaEstado sets the state of a task. It reports false when the
// task does not exist.
func (s *SQLStore) UpdateTareaEstado(ctx context.Context, id int, estado string) (bool, error) {
	res, err := s.q.ExecContext(ctx, `UPDATE tareas SET estado = $1 WHERE id = $2`, estado, id)
	if err != nil {
		return false, fmt.Errorf("error updating task state: %w", err)
	}
	return rowsAffected(res)
}

// UpdateTarea writes the editable fields of t. It reports false when the
// task does not exist.
func (s *SQLStore) UpdateTarea(ctx context.Context, t *models.Tarea) (bool, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE tareas SET titulo = $1, descripcion = $2, prioridad = $3, estado = $4, fecha_limite = $5 WHERE id = $6`,
		t.Titulo, t.Descripcion, t.Prioridad, t.Estado, t.FechaLimite, t.ID)
	if err != nil {
		return false, fmt.Errorf("error updating task: %w", err)
	}
	return rowsAffected(res)
}

// DeleteTarea deletes a task with its assignments, comments and file rows.
func (s *SQLStore) DeleteTarea(ctx context.Context, id int) (bool, error) {
	res, err := s.q.ExecContext(ctx, `DELETE FROM tareas WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("error deleting task: %w", err)
	}
	return rowsAffected(res)
}

// AddAsignacion assigns a user to a task. Assigning twice is a no-op.
func (s *SQLStore) AddAsignacion(ctx context.Context, a *models.AsignacionTarea) error {
	query := `INSERT INTO tarea_asignaciones (tarea_id, usuario_id) VALUES ($1, $2)
		ON CONFLICT (tarea_id, usuario_id) DO UPDATE SET tarea_id = EXCLUDED.tarea_id
		RETURNING fecha_asignacion`
	if err := s.q.QueryRowContext(ctx, query, a.TareaID, a.UsuarioID).Scan(&a.FechaAsignacion); err != nil {
		return fmt.Errorf("error inserting task assignment: %w", err)
	}
	return nil
}

// IsAsignado reports whether a user is assigned to a task.
func (s *SQLStore) IsAsignado(ctx context.Context, tareaID, usuarioID int) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM tarea_asignaciones WHERE tarea_id = $1 AND usuario_id = $2)`,
		tareaID, usuarioID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking task assignment: %w", err)
	}
	return exists, nil
}

// ListAsignacionesByTareas returns the assignments of every listed task.
func (s *SQLStore) ListAsignacionesByTareas(ctx context.Context, tareaIDs []int) ([]models.AsignacionTarea, error) {
	asignaciones := []models.AsignacionTarea{}
	if len(tareaIDs) == 0 {
		return asignaciones, nil
	}
	rows, err := s.q.QueryContext(ctx,
		`SELECT tarea_id, usuario_id, fecha_asignacion FROM tarea_asignaciones
		WHERE tarea_id = ANY($1) ORDER BY tarea_id, fecha_asignacion, usuario_id`,
		pq.Array(int64s(tareaIDs)))
	if err != nil {
		return nil, fmt.Errorf("error querying task assignments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a models.AsignacionTarea
		if err := rows.Scan(&a.TareaID, &a.UsuarioID, &a.FechaAsignacion); err != nil {
			return nil, fmt.Errorf("error scanning task assignment row: %w", err)
		}
		asignaciones = append(asignaciones, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating through task assignment rows: %w", err)
	}
	return asignaciones, nil
}
