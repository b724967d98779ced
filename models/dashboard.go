package models

import "time"

// Dashboard summarizes the projects and tasks visible to a user.
type Dashboard struct {
	TotalProyectos     int            `json:"totalProyectos"`
	ProyectosActivos   int            `json:"proyectosActivos"`
	TareasAsignadas    int            `json:"tareasAsignadas"`
	TareasCompletadas  int            `json:"tareasCompletadas"`
	TareasProximas     []TareaProxima `json:"tareasProximas"`
	ProyectosRecientes []Proyecto     `json:"proyectosRecientes"`
}

// TareaProxima is a task with an upcoming deadline.
type TareaProxima struct {
	ID             int       `json:"id"`
	Titulo         string    `json:"titulo"`
	FechaLimite    time.Time `json:"fecha_limite"`
	ProyectoID     int       `json:"proyecto_id"`
	ProyectoNombre string    `json:"proyecto_nombre"`
}
