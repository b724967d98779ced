package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kelydev/apiProyectos/models"
	"github.com/lib/pq"
)

// CreateComentario inserts a comment.
func (s *SQLStore) CreateComentario(ctx context.Context, c *models.Comentario) error {
	query := `INSERT INTO comentarios (contenido, tarea_id, usuario_id) VALUES ($1, $2, $3) RETURNING id, fecha_creacion`
	if err := s.q.QueryRowContext(ctx, query, c.Contenido, c.TareaID, c.UsuarioID).Scan(&c.ID, &c.FechaCreacion); err != nil {
		return fmt.Errorf("error inserting comment: %w", err)
	}
	return nil
}

// GetComentarioByID retrieves a single comment.
func (s *SQLStore) GetComentarioByID(ctx context.Context, id int) (*models.Comentario, error) {
	var c models.Comentario
	err := s.q.QueryRowContext(ctx,
		`SELECT id, contenido, fecha_creacion, tarea_id, usuario_id FROM comentarios WHERE id = $1`, id).
		Scan(&c.ID, &c.Contenido, &c.FechaCreacion, &c.TareaID, &c.UsuarioID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting comment by ID: %w", err)
	}
	return &c, nil
}

// ListComentariosByTareas returns the comments of every listed task.
func (s *SQLStore) ListComentariosByTareas(ctx context.Context, tareaIDs []int) ([]models.Comentario, error) {
	comentarios := []models.Comentario{}
	if len(tareaIDs) == 0 {
		return comentarios, nil
	}
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, contenido, fecha_creacion, tarea_id, usuario_id FROM comentarios
		WHERE tarea_id = ANY($1) ORDER BY tarea_id, fecha_creacion, id`,
		pq.Array(int64s(tareaIDs)))
	if err != nil {
		return nil, fmt.Errorf("error querying comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Comentario
		if err := rows.Scan(&c.ID, &c.Contenido, &c.FechaCreacion, &c.TareaID, &c.UsuarioID); err != nil {
			return nil, fmt.Errorf("error scanning comment row: %w", err)
		}
		comentarios = append(comentarios, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating through comment rows: %w", err)
	}
	return comentarios, nil
}
