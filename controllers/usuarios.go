package controllers

import (
	"net/http"

	"github.com/kelydev/apiProyectos/middleware"
	"github.com/kelydev/apiProyectos/models"
	"github.com/kelydev/apiProyectos/services"
	"github.com/kelydev/apiProyectos/utils"
)

// GetPerfilHandler returns the caller's profile.
func GetPerfilHandler(svc *services.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := svc.Perfil(r.Context(), middleware.UserID(r.Context()))
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		utils.WriteOK(w, http.StatusOK, u)
	}
}

// UpdatePerfilHandler changes the caller's name and avatar.
func UpdatePerfilHandler(svc *services.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in models.PerfilInput
		if err := decodeJSON(r, &in); err != nil {
			utils.WriteError(w, r, err)
			return
		}

		u, err := svc.UpdatePerfil(r.Context(), middleware.UserID(r.Context()), in)
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		utils.WriteOK(w, http.StatusOK, u)
	}
}

// SearchUsuariosHandler finds other users by name or email, paginated.
func SearchUsuariosHandler(svc *services.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit := utils.GetPaginationParams(r)
		q := r.URL.Query().Get("q")

		usuarios, total, err := svc.SearchUsuarios(r.Context(), middleware.UserID(r.Context()), q, page, limit)
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		utils.WriteOK(w, http.StatusOK, utils.Paginate(usuarios, total, page, limit))
	}
}
