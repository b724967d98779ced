package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kelydev/apiProyectos/models"
	"github.com/lib/pq"
)

const usuarioColumns = `id, nombre, email, password_hash, avatar, fecha_creacion`

func scanUsuario(rs rowScanner) (models.Usuario, error) {
	var u models.Usuario
	var avatar sql.NullString
	if err := rs.Scan(&u.ID, &u.Nombre, &u.Email, &u.Password, &avatar, &u.FechaCreacion); err != nil {
		return models.Usuario{}, err
	}
	u.Avatar = nullString(avatar)
	return u, nil
}

// CreateUsuario inserts a user. u.Password must already hold the hash.
func (s *SQLStore) CreateUsuario(ctx context.Context, u *models.Usuario) error {
	query := `INSERT INTO usuarios (nombre, email, password_hash, avatar) VALUES ($1, $2, $3, $4) RETURNING id, fecha_creacion`
	if err := s.q.QueryRowContext(ctx, query, u.Nombre, u.Email, u.Password, u.Avatar).Scan(&u.ID, &u.FechaCreacion); err != nil {
		return fmt.Errorf("error inserting user: %w", err)
	}
	return nil
}

// GetUsuarioByID retrieves a user by id.
func (s *SQLStore) GetUsuarioByID(ctx context.Context, id int) (*models.Usuario, error) {
	u, err := scanUsuario(s.q.QueryRowContext(ctx, `SELECT `+usuarioColumns+` FROM usuarios WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting user by ID: %w", err)
	}
	return &u, nil
}

// GetUsuarioByEmail retrieves a user by their email address.
func (s *SQLStore) GetUsuarioByEmail(ctx context.Context, email string) (*models.Usuario, error) {
	u, err := scanUsuario(s.q.QueryRowContext(ctx, `SELECT `+usuarioColumns+` FROM usuarios WHERE email = $1`, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting user by email: %w", err)
	}
	return &u, nil
}

// GetUsuariosByIDs loads every listed user in one query.
func (s *SQLStore) GetUsuariosByIDs(ctx context.Context, ids []int) (map[int]models.Usuario, error) {
	usuarios := make(map[int]models.Usuario, len(ids))
	if len(ids) == 0 {
		return usuarios, nil
	}
	rows, err := s.q.QueryContext(ctx, `SELECT `+usuarioColumns+` FROM usuarios WHERE id = ANY($1)`, pq.Array(int64s(ids)))
	if err != nil {
		return nil, fmt.Errorf("error querying users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUsuario(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning user row: %w", err)
		}
		usuarios[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating through user rows: %w", err)
	}
	return usuarios, nil
}

// UpdatePerfil updates the mutable profile fields of a user.
func (s *SQLStore) UpdatePerfil(ctx context.Context, id int, nombre string, avatar *string) error {
	if _, err := s.q.ExecContext(ctx, `UPDATE usuarios SET nombre = $1, avatar = $2 WHERE id = $3`, nombre, avatar, id); err != nil {
		return fmt.Errorf("error updating profile: %w", err)
	}
	return nil
}

// SearchUsuarios finds users by name or email, excluding the caller.
func (s *SQLStore) SearchUsuarios(ctx context.Context, q string, excludeID, limit, offset int) ([]models.Usuario, int, error) {
	pattern := "%" + q + "%"
	where := `(nombre ILIKE $1 OR email ILIKE $1) AND id <> $2`

	var total int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM usuarios WHERE `+where, pattern, excludeID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting users: %w", err)
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT `+usuarioColumns+` FROM usuarios WHERE `+where+` ORDER BY nombre, id LIMIT $3 OFFSET $4`,
		pattern, excludeID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("error searching users: %w", err)
	}
	defer rows.Close()

	usuarios := []models.Usuario{}
	for rows.Next() {
		u, err := scanUsuario(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning user row: %w", err)
		}
		usuarios = append(usuarios, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error after iterating through user rows: %w", err)
	}
	return usuarios, total, nil
}
