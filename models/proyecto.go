package models

import "time"

// Project states.
const (
	EstadoProyectoActivo     = "activo"
	EstadoProyectoCompletado = "completado"
	EstadoProyectoPausado    = "pausado"
)

// Member roles. The creator joins as admin, invitees as colaborador.
const (
	RolAdmin       = "admin"
	RolColaborador = "colaborador"
)

// Proyecto represents a project owned by exactly one creator.
type Proyecto struct {
	ID            int        `json:"id"`
	Nombre        string     `json:"nombre"`
	Descripcion   string     `json:"descripcion"`
	FechaCreacion time.Time  `json:"fecha_creacion"`
	FechaLimite   *time.Time `json:"fecha_limite,omitempty"`
	Estado        string     `json:"estado"`
	CreadorID     int        `json:"creador_id"`
	Presupuesto   *float64   `json:"presupuesto,omitempty"`
}

// MiembroProyecto is the membership join row between a project and a user.
type MiembroProyecto struct {
	ProyectoID int       `json:"proyecto_id"`
	UsuarioID  int       `json:"usuario_id"`
	Rol        string    `json:"rol"`
	FechaUnion time.Time `json:"fecha_union"`
}

// MiembroExtendido is a membership row with its user resolved.
type MiembroExtendido struct {
	MiembroProyecto
	Usuario Usuario `json:"usuario"`
}

// ProyectoExtendido is the nested read model of a project.
type ProyectoExtendido struct {
	Proyecto
	Creador  Usuario            `json:"creador"`
	Miembros []MiembroExtendido `json:"miembros"`
	Tareas   []TareaExtendida   `json:"tareas"`
	Archivos []ArchivoExtendido `json:"archivos"`
}

// ProyectoInput holds the fields accepted when creating a project.
type ProyectoInput struct {
	Nombre      string     `json:"nombre" validate:"required,max=200"`
	Descripcion string     `json:"descripcion" validate:"max=5000"`
	FechaLimite *time.Time `json:"fecha_limite"`
	Presupuesto *float64   `json:"presupuesto" validate:"omitempty,gte=0"`
}

// ProyectoPatch holds the optional fields of a project update. Nil fields
// are left untouched.
type ProyectoPatch struct {
	Nombre      *string    `json:"nombre" validate:"omitnil,min=1,max=200"`
	Descripcion *string    `json:"descripcion" validate:"omitempty,max=5000"`
	FechaLimite *time.Time `json:"fecha_limite"`
	Estado      *string    `json:"estado" validate:"omitempty,oneof=activo completado pausado"`
	Presupuesto *float64   `json:"presupuesto" validate:"omitempty,gte=0"`
}
