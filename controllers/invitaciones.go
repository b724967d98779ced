package controllers

import (
	"net/http"

	"github.com/kelydev/apiProyectos/apperrors"
	"github.com/kelydev/apiProyectos/middleware"
	"github.com/kelydev/apiProyectos/models"
	"github.com/kelydev/apiProyectos/services"
	"github.com/kelydev/apiProyectos/utils"
)

// CreateInvitacionHandler invites a user by email to the project {id}.
func CreateInvitacionHandler(svc *services.InvitacionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := pathID(r, "id")
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		var in models.InvitacionInput
		if err := decodeJSON(r, &in); err != nil {
			utils.WriteError(w, r, err)
			return
		}

		id, err := svc.Create(r.Context(), middleware.UserID(r.Context()), projectID, in.Email)
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		utils.WriteOK(w, http.StatusCreated, map[string]int{"id": id})
	}
}

// GetInvitacionesHandler lists the caller's pending invitations.
func GetInvitacionesHandler(svc *services.InvitacionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invitaciones, err := svc.ListPending(r.Context(), middleware.UserID(r.Context()))
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		utils.WriteOK(w, http.StatusOK, invitaciones)
	}
}

// ResponderInvitacionHandler accepts or rejects the invitation {id}.
func ResponderInvitacionHandler(svc *services.InvitacionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		var in models.RespuestaInvitacion
		if err := decodeJSON(r, &in); err != nil {
			utils.WriteError(w, r, err)
			return
		}
		if in.Aceptar == nil {
			utils.WriteError(w, r, apperrors.Validation("El campo accept es requerido"))
			return
		}

		inv, err := svc.Respond(r.Context(), middleware.UserID(r.Context()), id, *in.Aceptar)
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		utils.WriteOK(w, http.StatusOK, inv)
	}
}

// CancelInvitacionHandler deletes the invitation {id}.
func CancelInvitacionHandler(svc *services.InvitacionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}

		if err := svc.Cancel(r.Context(), middleware.UserID(r.Context()), id); err != nil {
			utils.WriteError(w, r, err)
			return
		}
		utils.WriteOK(w, http.StatusOK, map[string]int{"id": id})
	}
}
