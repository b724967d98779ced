package models

import "time"

// Invitation states. aceptada and rechazada are terminal.
const (
	EstadoInvitacionPendiente = "pendiente"
	EstadoInvitacionAceptada  = "aceptada"
	EstadoInvitacionRechazada = "rechazada"
)

// Invitacion is a pending or resolved invitation to join a project.
type Invitacion struct {
	ID            int       `json:"id"`
	ProyectoID    int       `json:"proyecto_id"`
	Email         string    `json:"email"`
	RemitenteID   int       `json:"remitente_id"`
	Estado        string    `json:"estado"`
	FechaCreacion time.Time `json:"fecha_creacion"`
}

// InvitacionExtendida carries the inviting project and its creator.
type InvitacionExtendida struct {
	Invitacion
	Remitente Usuario  `json:"remitente"`
	Proyecto  Proyecto `json:"proyecto"`
}

// InvitacionInput is the body of the invite endpoint.
type InvitacionInput struct {
	Email string `json:"email"`
}

// RespuestaInvitacion is the body of the respond endpoint. Accept is
// required; a missing value is not read as a rejection.
type RespuestaInvitacion struct {
	Aceptar *bool `json:"accept"`
}
