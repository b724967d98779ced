package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kelydev/apiProyectos/models"
)

const invitacionColumns = `id, proyecto_id, email, remitente_id, estado, fecha_creacion`

func scanInvitacion(rs rowScanner) (models.Invitacion, error) {
	var inv models.Invitacion
	err := rs.Scan(&inv.ID, &inv.ProyectoID, &inv.Email, &inv.RemitenteID, &inv.Estado, &inv.FechaCreacion)
	return inv, err
}

// CreateInvitacion inserts an invitation. A second pending invitation for
// the same project and email violates uq_invitaciones_pendientes.
func (s *SQLStore) CreateInvitacion(ctx context.Context, inv *models.Invitacion) error {
	query := `INSERT INTO invitaciones (proyecto_id, email, remitente_id, estado) VALUES ($1, $2, $3, $4) RETURNING id, fecha_creacion`
	if err := s.q.QueryRowContext(ctx, query, inv.ProyectoID, inv.Email, inv.RemitenteID, inv.Estado).Scan(&inv.ID, &inv.FechaCreacion); err != nil {
		return fmt.Errorf("error inserting invitation: %w", err)
	}
	return nil
}

// GetInvitacionForUpdate loads an invitation and, inside a transaction,
// locks its row until commit.
func (s *SQLStore) GetInvitacionForUpdate(ctx context.Context, id int) (*models.Invitacion, error) {
	inv, err := scanInvitacion(s.q.QueryRowContext(ctx, `SELECT `+invitacionColumns+` FROM invitaciones WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting invitation by ID: %w", err)
	}
	return &inv, nil
}

// HasPendingInvitacion reports whether a pending invitation exists for the
// project and email.
func (s *SQLStore) HasPendingInvitacion(ctx context.Context, proyectoID int, email string) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM invitaciones WHERE proyecto_id = $1 AND lower(email) = lower($2) AND estado = 'pendiente')`,
		proyectoID, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking pending invitation: %w", err)
	}
	return exists, nil
}

// ListPendingInvitacionesByEmail returns the pending invitations addressed
// to an email, newest first.
func (s *SQLStore) ListPendingInvitacionesByEmail(ctx context.Context, email string) ([]models.Invitacion, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+invitacionColumns+` FROM invitaciones
		WHERE lower(email) = lower($1) AND estado = 'pendiente'
		ORDER BY fecha_creacion DESC, id DESC`, email)
	if err != nil {
		return nil, fmt.Errorf("error querying invitations: %w", err)
	}
	defer rows.Close()

	invitaciones := []models.Invitacion{}
	for rows.Next() {
		inv, err := scanInvitacion(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning invitation row: %w", err)
		}
		invitaciones = append(invitaciones, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating through invitation rows: %w", err)
	}
	return invitaciones, nil
}

// UpdateInvitacionEstado sets the state of an invitation.
func (s *SQLStore) UpdateInvitacionEstado(ctx context.Context, id int, estado string) error {
	if _, err := s.q.ExecContext(ctx, `UPDATE invitaciones SET estado = $1 WHERE id = $2`, estado, id); err != nil {
		return fmt.Errorf("error updating invitation state: %w", err)
	}
	return nil
}

// DeleteInvitacion deletes an invitation row.
func (s *SQLStore) DeleteInvitacion(ctx context.Context, id int) (bool, error) {
	res, err := s.q.ExecContext(ctx, `DELETE FROM invitaciones WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("error deleting invitation: %w", err)
	}
	return rowsAffected(res)
}
