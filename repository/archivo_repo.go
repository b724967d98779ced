package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kelydev/apiProyectos/models"
	"github.com/lib/pq"
)

const archivoColumns = `id, %s, nombre_archivo, nombre_original, tipo_archivo, tamano, ruta_archivo, subido_por, fecha_subida`

// tablaArchivos maps a parent kind to its attachment table and foreign key.
func tablaArchivos(tipo models.TipoPadre) (tabla, columna string, err error) {
	switch tipo {
	case models.TipoProyecto:
		return "proyecto_archivos", "proyecto_id", nil
	case models.TipoTarea:
		return "tarea_archivos", "tarea_id", nil
	case models.TipoComentario:
		return "comentario_archivos", "comentario_id", nil
	}
	return "", "", fmt.Errorf("unknown attachment parent kind %q", tipo)
}

func scanArchivo(rs rowScanner, tipo models.TipoPadre) (models.Archivo, error) {
	a := models.Archivo{Tipo: tipo}
	err := rs.Scan(&a.ID, &a.PadreID, &a.NombreArchivo, &a.NombreOriginal, &a.TipoArchivo, &a.Tamano, &a.RutaArchivo, &a.SubidoPor, &a.FechaSubida)
	return a, err
}

// CreateArchivo inserts the metadata row of a stored blob.
func (s *SQLStore) CreateArchivo(ctx context.Context, a *models.Archivo) error {
	tabla, columna, err := tablaArchivos(a.Tipo)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s, nombre_archivo, nombre_original, tipo_archivo, tamano, ruta_archivo, subido_por)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, fecha_subida`, tabla, columna)
	err = s.q.QueryRowContext(ctx, query, a.PadreID, a.NombreArchivo, a.NombreOriginal, a.TipoArchivo, a.Tamano, a.RutaArchivo, a.SubidoPor).
		Scan(&a.ID, &a.FechaSubida)
	if err != nil {
		return fmt.Errorf("error inserting file metadata: %w", err)
	}
	return nil
}

// GetArchivo retrieves a file row by kind and id.
func (s *SQLStore) GetArchivo(ctx context.Context, tipo models.TipoPadre, id int) (*models.Archivo, error) {
	tabla, columna, err := tablaArchivos(tipo)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT `+archivoColumns+` FROM %s WHERE id = $1`, columna, tabla)
	a, err := scanArchivo(s.q.QueryRowContext(ctx, query, id), tipo)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting file by ID: %w", err)
	}
	return &a, nil
}

// GetArchivoByNombre finds a file by its storage key across all parent kinds.
func (s *SQLStore) GetArchivoByNombre(ctx context.Context, nombre string) (*models.Archivo, error) {
	for _, tipo := range []models.TipoPadre{models.TipoProyecto, models.TipoTarea, models.TipoComentario} {
		tabla, columna, err := tablaArchivos(tipo)
		if err != nil {
			return nil, err
		}
		query := fmt.Sprintf(`SELECT `+archivoColumns+` FROM %s WHERE nombre_archivo = $1`, columna, tabla)
		a, err := scanArchivo(s.q.QueryRowContext(ctx, query, nombre), tipo)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("error getting file by name: %w", err)
		}
		return &a, nil
	}
	return nil, nil
}

// ListArchivosByPadres returns the files of every listed parent, oldest
// first within each parent.
func (s *SQLStore) ListArchivosByPadres(ctx context.Context, tipo models.TipoPadre, padreIDs []int) ([]models.Archivo, error) {
	archivos := []models.Archivo{}
	if len(padreIDs) == 0 {
		return archivos, nil
	}
	tabla, columna, err := tablaArchivos(tipo)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT `+archivoColumns+` FROM %s WHERE %s = ANY($1) ORDER BY %s, fecha_subida, id`,
		columna, tabla, columna, columna)
	rows, err := s.q.QueryContext(ctx, query, pq.Array(int64s(padreIDs)))
	if err != nil {
		return nil, fmt.Errorf("error querying files: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanArchivo(rows, tipo)
		if err != nil {
			return nil, fmt.Errorf("error scanning file row: %w", err)
		}
		archivos = append(archivos, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating through file rows: %w", err)
	}
	return archivos, nil
}

// ListRutasByProyecto returns the storage paths of every file owned,
// directly or through tasks and comments, by a project.
func (s *SQLStore) ListRutasByProyecto(ctx context.Context, proyectoID int) ([]string, error) {
	return s.queryRutas(ctx, `
		SELECT ruta_archivo FROM proyecto_archivos WHERE proyecto_id = $1
		UNION ALL
		SELECT ta.ruta_archivo FROM tarea_archivos ta
			JOIN tareas t ON t.id = ta.tarea_id WHERE t.proyecto_id = $1
		UNION ALL
		SELECT ca.ruta_archivo FROM comentario_archivos ca
			JOIN comentarios c ON c.id = ca.comentario_id
			JOIN tareas t ON t.id = c.tarea_id WHERE t.proyecto_id = $1`, proyectoID)
}

// ListRutasByTarea returns the storage paths of every file owned by a task
// or its comments.
func (s *SQLStore) ListRutasByTarea(ctx context.Context, tareaID int) ([]string, error) {
	return s.queryRutas(ctx, `
		SELECT ruta_archivo FROM tarea_archivos WHERE tarea_id = $1
		UNION ALL
		SELECT ca.ruta_archivo FROM comentario_archivos ca
			JOIN comentarios c ON c.id = ca.comentario_id WHERE c.tarea_id = $1`, tareaID)
}

func (s *SQLStore) queryRutas(ctx context.Context, query string, id int) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("error querying file paths: %w", err)
	}
	defer rows.Close()

	rutas := []string{}
	for rows.Next() {
		var ruta string
		if err := rows.Scan(&ruta); err != nil {
			return nil, fmt.Errorf("error scanning file path: %w", err)
		}
		rutas = append(rutas, ruta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating through file paths: %w", err)
	}
	return rutas, nil
}

// DeleteArchivo deletes a file metadata row.
func (s *SQLStore) DeleteArchivo(ctx context.Context, tipo models.TipoPadre, id int) (bool, error) {
	tabla, _, err := tablaArchivos(tipo)
	if err != nil {
		return false, err
	}
	res, err := s.q.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, tabla), id)
	if err != nil {
		return false, fmt.Errorf("error deleting file metadata: %w", err)
	}
	return rowsAffected(res)
}

// RecordHuerfano remembers a blob whose removal failed.
func (s *SQLStore) RecordHuerfano(ctx context.Context, ruta, motivo string) error {
	if _, err := s.q.ExecContext(ctx, `INSERT INTO archivos_huerfanos (ruta_archivo, motivo) VALUES ($1, $2)`, ruta, motivo); err != nil {
		return fmt.Errorf("error recording orphaned blob: %w", err)
	}
	return nil
}

// ListHuerfanos returns the oldest recorded orphaned blobs.
func (s *SQLStore) ListHuerfanos(ctx context.Context, limit int) ([]models.ArchivoHuerfano, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, ruta_archivo, motivo, fecha_registro FROM archivos_huerfanos ORDER BY fecha_registro, id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying orphaned blobs: %w", err)
	}
	defer rows.Close()

	huerfanos := []models.ArchivoHuerfano{}
	for rows.Next() {
		var h models.ArchivoHuerfano
		if err := rows.Scan(&h.ID, &h.RutaArchivo, &h.Motivo, &h.FechaRegistro); err != nil {
			return nil, fmt.Errorf("error scanning orphaned blob row: %w", err)
		}
		huerfanos = append(huerfanos, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating through orphaned blob rows: %w", err)
	}
	return huerfanos, nil
}

// DeleteHuerfano forgets a reconciled orphaned blob.
func (s *SQLStore) DeleteHuerfano(ctx context.Context, id int) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM archivos_huerfanos WHERE id = $1`, id); err != nil {
		return fmt.Errorf("error deleting orphaned blob record: %w", err)
	}
	return nil
}
