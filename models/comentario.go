package models

import "time"

// Comentario is a comment left by an assigned user on a task.
type Comentario struct {
	ID            int       `json:"id"`
	Contenido     string    `json:"contenido"`
	FechaCreacion time.Time `json:"fecha_creacion"`
	TareaID       int       `json:"tarea_id"`
	UsuarioID     int       `json:"usuario_id"`
}

// ComentarioExtendido is a comment with its author and attachments.
type ComentarioExtendido struct {
	Comentario
	Usuario  Usuario            `json:"usuario"`
	Archivos []ArchivoExtendido `json:"archivos"`
}
