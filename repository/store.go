package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kelydev/apiProyectos/models"
	"github.com/lib/pq"
)

// Store is the data-access surface used by the services. Single-row
// lookups return (nil, nil) when the row does not exist. Batched list
// methods accept parent ids and return rows ordered by parent, then by
// creation time ascending.
type Store interface {
	// Usuarios
	CreateUsuario(ctx context.Context, u *models.Usuario) error
	GetUsuarioByID(ctx context.Context, id int) (*models.Usuario, error)
	GetUsuarioByEmail(ctx context.Context, email string) (*models.Usuario, error)
	GetUsuariosByIDs(ctx context.Context, ids []int) (map[int]models.Usuario, error)
	UpdatePerfil(ctx context.Context, id int, nombre string, avatar *string) error
	SearchUsuarios(ctx context.Context, q string, excludeID, limit, offset int) ([]models.Usuario, int, error)

	// Proyectos y miembros
	CreateProyecto(ctx context.Context, p *models.Proyecto) error
	GetProyectoByID(ctx context.Context, id int) (*models.Proyecto, error)
	GetProyectosByIDs(ctx context.Context, ids []int) (map[int]models.Proyecto, error)
	ListProyectosForUsuario(ctx context.Context, usuarioID int) ([]models.Proyecto, error)
	UpdateProyecto(ctx context.Context, p *models.Proyecto) error
	DeleteProyecto(ctx context.Context, id int) (bool, error)
	AddMiembro(ctx context.Context, m *models.MiembroProyecto) (bool, error)
	IsMiembro(ctx context.Context, proyectoID, usuarioID int) (bool, error)
	ListMiembrosByProyectos(ctx context.Context, proyectoIDs []int) ([]models.MiembroProyecto, error)

	// Tareas y asignaciones
	CreateTarea(ctx context.Context, t *models.Tarea) error
	GetTareaByID(ctx context.Context, id int) (*models.Tarea, error)
	ListTareasByProyectos(ctx context.Context, proyectoIDs []int) ([]models.Tarea, error)
	UpdateTareaEstado(ctx context.Context, id int, estado string) (bool, error)
	UpdateTarea(ctx context.Context, t *models.Tarea) (bool, error)
	DeleteTarea(ctx context.Context, id int) (bool, error)
	AddAsignacion(ctx context.Context, a *models.AsignacionTarea) error
	IsAsignado(ctx context.Context, tareaID, usuarioID int) (bool, error)
	ListAsignacionesByTareas(ctx context.Context, tareaIDs []int) ([]models.AsignacionTarea, error)

	// Comentarios
	CreateComentario(ctx context.Context, c *models.Comentario) error
	GetComentarioByID(ctx context.Context, id int) (*models.Comentario, error)
	ListComentariosByTareas(ctx context.Context, tareaIDs []int) ([]models.Comentario, error)

	// Invitaciones
	CreateInvitacion(ctx context.Context, inv *models.Invitacion) error
	GetInvitacionForUpdate(ctx context.Context, id int) (*models.Invitacion, error)
	HasPendingInvitacion(ctx context.Context, proyectoID int, email string) (bool, error)
	ListPendingInvitacionesByEmail(ctx context.Context, email string) ([]models.Invitacion, error)
	UpdateInvitacionEstado(ctx context.Context, id int, estado string) error
	DeleteInvitacion(ctx context.Context, id int) (bool, error)

	// Archivos
	CreateArchivo(ctx context.Context, a *models.Archivo) error
	GetArchivo(ctx context.Context, tipo models.TipoPadre, id int) (*models.Archivo, error)
	GetArchivoByNombre(ctx context.Context, nombre string) (*models.Archivo, error)
	ListArchivosByPadres(ctx context.Context, tipo models.TipoPadre, padreIDs []int) ([]models.Archivo, error)
	ListRutasByProyecto(ctx context.Context, proyectoID int) ([]string, error)
	ListRutasByTarea(ctx context.Context, tareaID int) ([]string, error)
	DeleteArchivo(ctx context.Context, tipo models.TipoPadre, id int) (bool, error)
	RecordHuerfano(ctx context.Context, ruta, motivo string) error
	ListHuerfanos(ctx context.Context, limit int) ([]models.ArchivoHuerfano, error)
	DeleteHuerfano(ctx context.Context, id int) error

	GetDashboard(ctx context.Context, usuarioID int) (*models.Dashboard, error)

	// WithTx runs fn inside one transaction. The Store passed to fn is bound
	// to that transaction; returning an error rolls every write back.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// SQLStore implements Store on PostgreSQL.
type SQLStore struct {
	db *sql.DB
	q  DBTX
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps an open connection pool.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, q: db}
}

// WithTx implements Store. Calls nested inside a transaction reuse it.
func (s *SQLStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if _, inTx := s.q.(*sql.Tx); inTx {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&SQLStore{db: s.db, q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err comes from a unique constraint.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func int64s(ids []int) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullFloat(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func rowsAffected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
