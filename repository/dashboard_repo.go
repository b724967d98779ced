package repository

import (
	"context"
	"fmt"

	"github.com/kelydev/apiProyectos/models"
)

const visibleProyectos = `
	SELECT p.id FROM proyectos p
	WHERE p.creador_id = $1
	   OR EXISTS (SELECT 1 FROM proyecto_miembros pm WHERE pm.proyecto_id = p.id AND pm.usuario_id = $1)`

// GetDashboard computes the summary counters and short lists shown on the
// dashboard of a user.
func (s *SQLStore) GetDashboard(ctx context.Context, usuarioID int) (*models.Dashboard, error) {
	d := &models.Dashboard{TareasProximas: []models.TareaProxima{}}

	statsQuery := `
		SELECT
			(SELECT COUNT(*) FROM proyectos WHERE id IN (` + visibleProyectos + `)),
			(SELECT COUNT(*) FROM proyectos WHERE id IN (` + visibleProyectos + `) AND estado = 'activo'),
			(SELECT COUNT(*) FROM tarea_asignaciones WHERE usuario_id = $1),
			(SELECT COUNT(*) FROM tarea_asignaciones ta JOIN tareas t ON t.id = ta.tarea_id
				WHERE ta.usuario_id = $1 AND t.estado = 'completada')`
	if err := s.q.QueryRowContext(ctx, statsQuery, usuarioID).
		Scan(&d.TotalProyectos, &d.ProyectosActivos, &d.TareasAsignadas, &d.TareasCompletadas); err != nil {
		return nil, fmt.Errorf("error querying dashboard stats: %w", err)
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT t.id, t.titulo, t.fecha_limite, p.id, p.nombre
		FROM tareas t
		JOIN proyectos p ON p.id = t.proyecto_id
		WHERE (t.creador_id = $1 OR EXISTS (
				SELECT 1 FROM tarea_asignaciones ta WHERE ta.tarea_id = t.id AND ta.usuario_id = $1))
		  AND t.estado <> 'completada'
		  AND t.fecha_limite IS NOT NULL
		  AND t.fecha_limite >= NOW()
		ORDER BY t.fecha_limite, t.id
		LIMIT 5`, usuarioID)
	if err != nil {
		return nil, fmt.Errorf("error querying upcoming tasks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tp models.TareaProxima
		if err := rows.Scan(&tp.ID, &tp.Titulo, &tp.FechaLimite, &tp.ProyectoID, &tp.ProyectoNombre); err != nil {
			return nil, fmt.Errorf("error scanning upcoming task row: %w", err)
		}
		d.TareasProximas = append(d.TareasProximas, tp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating through upcoming task rows: %w", err)
	}

	d.ProyectosRecientes, err = s.queryProyectos(ctx, `SELECT `+proyectoColumns+` FROM proyectos p
		WHERE p.id IN (`+visibleProyectos+`)
		ORDER BY p.fecha_creacion DESC, p.id DESC LIMIT 5`, usuarioID)
	if err != nil {
		return nil, err
	}
	return d, nil
}
