package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kelydev/apiProyectos/models"
	"github.com/lib/pq"
)

const proyectoColumns = `p.id, p.nombre, p.descripcion, p.fecha_creacion, p.fecha_limite, p.estado, p.creador_id, p.presupuesto`

func scanProyecto(rs rowScanner) (models.Proyecto, error) {
	var p models.Proyecto
	var limite sql.NullTime
	var presupuesto sql.NullFloat64
	if err := rs.Scan(&p.ID, &p.Nombre, &p.Descripcion, &p.FechaCreacion, &limite, &p.Estado, &p.CreadorID, &presupuesto); err != nil {
		return models.Proyecto{}, err
	}
	p.FechaLimite = nullTime(limite)
	p.Presupuesto = nullFloat(presupuesto)
	return p, nil
}

func (s *SQLStore) queryProyectos(ctx context.Context, query string, args ...interface{}) ([]models.Proyecto, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying projects: %w", err)
	}
	defer rows.Close()

	proyectos := []models.Proyecto{}
	for rows.Next() {
		p, err := scanProyecto(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning project row: %w", err)
		}
		proyectos = append(proyectos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating through project rows: %w", err)
	}
	return proyectos, nil
}

// CreateProyecto inserts a new project.
func (s *SQLStore) CreateProyecto(ctx context.Context, p *models.Proyecto) error {
	query := `INSERT INTO proyectos (nombre, descripcion, fecha_limite, estado, creador_id, presupuesto)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, fecha_creacion`
	err := s.q.QueryRowContext(ctx, query, p.Nombre, p.Descripcion, p.FechaLimite, p.Estado, p.CreadorID, p.Presupuesto).
		Scan(&p.ID, &p.FechaCreacion)
	if err != nil {
		return fmt.Errorf("error inserting project: %w", err)
	}
	return nil
}

// GetProyectoByID retrieves a single project by its ID.
func (s *SQLStore) GetProyectoByID(ctx context.Context, id int) (*models.Proyecto, error) {
	p, err := scanProyecto(s.q.QueryRowContext(ctx, `SELECT `+proyectoColumns+` FROM proyectos p WHERE p.id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting project by ID: %w", err)
	}
	return &p, nil
}

// GetProyectosByIDs loads every listed project in one query.
func (s *SQLStore) GetProyectosByIDs(ctx context.Context, ids []int) (map[int]models.Proyecto, error) {
	out := make(map[int]models.Proyecto, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	proyectos, err := s.queryProyectos(ctx, `SELECT `+proyectoColumns+` FROM proyectos p WHERE p.id = ANY($1)`, pq.Array(int64s(ids)))
	if err != nil {
		return nil, err
	}
	for _, p := range proyectos {
		out[p.ID] = p
	}
	return out, nil
}

// ListProyectosForUsuario returns the projects a user created or belongs
// to, newest first.
func (s *SQLStore) ListProyectosForUsuario(ctx context.Context, usuarioID int) ([]models.Proyecto, error) {
	query := `SELECT ` + proyectoColumns + `
		FROM proyectos p
		WHERE p.creador_id = $1
		   OR EXISTS (SELECT 1 FROM proyecto_miembros pm WHERE pm.proyecto_id = p.id AND pm.usuario_id = $1)
		ORDER BY p.fecha_creacion DESC, p.id DESC`
	return s.queryProyectos(ctx, query, usuarioID)
}

// UpdateProyecto updates the mutable fields of a project. creador_id is
// never written.
func (s *SQLStore) UpdateProyecto(ctx context.Context, p *models.Proyecto) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE proyectos SET nombre = $1, descripcion = $2, fecha_limite = $3, estado = $4, presupuesto = $5 WHERE id = $6`,
		p.Nombre, p.Descripcion, p.FechaLimite, p.Estado, p.Presupuesto, p.ID)
	if err != nil {
		return fmt.Errorf("error updating project: %w", err)
	}
	return nil
}

// DeleteProyecto deletes a project; members, tasks, invitations and file
// rows go with it through ON DELETE CASCADE.
func (s *SQLStore) DeleteProyecto(ctx context.Context, id int) (bool, error) {
	res, err := s.q.ExecContext(ctx, `DELETE FROM proyectos WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("error deleting project: %w", err)
	}
	return rowsAffected(res)
}

// AddMiembro inserts a membership row. It reports false when the user was
// already a member.
func (s *SQLStore) AddMiembro(ctx context.Context, m *models.MiembroProyecto) (bool, error) {
	query := `INSERT INTO proyecto_miembros (proyecto_id, usuario_id, rol) VALUES ($1, $2, $3)
		ON CONFLICT (proyecto_id, usuario_id) DO NOTHING RETURNING fecha_union`
	err := s.q.QueryRowContext(ctx, query, m.ProyectoID, m.UsuarioID, m.Rol).Scan(&m.FechaUnion)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("error inserting project member: %w", err)
	}
	return true, nil
}

// IsMiembro reports whether a membership row exists.
func (s *SQLStore) IsMiembro(ctx context.Context, proyectoID, usuarioID int) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM proyecto_miembros WHERE proyecto_id = $1 AND usuario_id = $2)`,
		proyectoID, usuarioID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking project membership: %w", err)
	}
	return exists, nil
}

// ListMiembrosByProyectos returns the members of every listed project,
// grouped by project and ordered by join date.
func (s *SQLStore) ListMiembrosByProyectos(ctx context.Context, proyectoIDs []int) ([]models.MiembroProyecto, error) {
	miembros := []models.MiembroProyecto{}
	if len(proyectoIDs) == 0 {
		return miembros, nil
	}
	rows, err := s.q.QueryContext(ctx,
		`SELECT proyecto_id, usuario_id, rol, fecha_union FROM proyecto_miembros
		WHERE proyecto_id = ANY($1) ORDER BY proyecto_id, fecha_union, usuario_id`,
		pq.Array(int64s(proyectoIDs)))
	if err != nil {
		return nil, fmt.Errorf("error querying project members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.MiembroProyecto
		if err := rows.Scan(&m.ProyectoID, &m.UsuarioID, &m.Rol, &m.FechaUnion); err != nil {
			return nil, fmt.Errorf("error scanning project member row: %w", err)
		}
		miembros = append(miembros, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating through project member rows: %w", err)
	}
	return miembros, nil
}
