package models

import "time"

// Task priorities.
const (
	PrioridadBaja  = "baja"
	PrioridadMedia = "media"
	PrioridadAlta  = "alta"
)

// Task states.
const (
	EstadoTareaPendiente  = "pendiente"
	EstadoTareaEnProgreso = "en_progreso"
	EstadoTareaCompletada = "completada"
)

// EstadoTareaValido reports whether s is a known task state.
func EstadoTareaValido(s string) bool {
	switch s {
	case EstadoTareaPendiente, EstadoTareaEnProgreso, EstadoTareaCompletada:
		return true
	}
	return false
}

// Tarea represents a task inside a project.
type Tarea struct {
	ID            int        `json:"id"`
	Titulo        string     `json:"titulo"`
	Descripcion   string     `json:"descripcion"`
	Prioridad     string     `json:"prioridad"`
	Estado        string     `json:"estado"`
	FechaCreacion time.Time  `json:"fecha_creacion"`
	FechaLimite   *time.Time `json:"fecha_limite,omitempty"`
	ProyectoID    int        `json:"proyecto_id"`
	CreadorID     int        `json:"creador_id"`
}

// AsignacionTarea links a task with an assigned user.
type AsignacionTarea struct {
	TareaID         int       `json:"tarea_id"`
	UsuarioID       int       `json:"usuario_id"`
	FechaAsignacion time.Time `json:"fecha_asignacion"`
}

// AsignacionExtendida is an assignment with its user resolved.
type AsignacionExtendida struct {
	AsignacionTarea
	Usuario Usuario `json:"usuario"`
}

// TareaExtendida is the nested read model of a task.
type TareaExtendida struct {
	Tarea
	Creador     Usuario               `json:"creador"`
	Asignados   []AsignacionExtendida `json:"asignados"`
	Comentarios []ComentarioExtendido `json:"comentarios"`
	Archivos    []ArchivoExtendido    `json:"archivos"`
}

// TareaInput holds the fields accepted when creating a task.
type TareaInput struct {
	Titulo      string     `json:"titulo" validate:"required,max=200"`
	Descripcion string     `json:"descripcion" validate:"max=5000"`
	Prioridad   string     `json:"prioridad" validate:"omitempty,oneof=baja media alta"`
	FechaLimite *time.Time `json:"fecha_limite"`
	Asignados   []int      `json:"asignados" validate:"dive,gt=0"`
}

// TareaPatch holds the optional fields of a task edit. Nil fields are left
// untouched; the project and creator never change.
type TareaPatch struct {
	Titulo      *string    `json:"titulo" validate:"omitnil,min=1,max=200"`
	Descripcion *string    `json:"descripcion" validate:"omitempty,max=5000"`
	Prioridad   *string    `json:"prioridad" validate:"omitempty,oneof=baja media alta"`
	Estado      *string    `json:"estado" validate:"omitempty,oneof=pendiente en_progreso completada"`
	FechaLimite *time.Time `json:"fecha_limite"`
}
