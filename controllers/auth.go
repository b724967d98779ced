package controllers

import (
	"net/http"

	"github.com/kelydev/apiProyectos/models"
	"github.com/kelydev/apiProyectos/services"
	"github.com/kelydev/apiProyectos/utils"
)

// RegisterHandler handles user registration.
func RegisterHandler(svc *services.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in models.RegistroInput
		if err := decodeJSON(r, &in); err != nil {
			utils.WriteError(w, r, err)
			return
		}

		res, err := svc.Register(r.Context(), in)
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		utils.WriteOK(w, http.StatusCreated, res)
	}
}

// LoginHandler checks the credentials and returns a token.
func LoginHandler(svc *services.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds models.Credentials
		if err := decodeJSON(r, &creds); err != nil {
			utils.WriteError(w, r, err)
			return
		}

		res, err := svc.Login(r.Context(), creds)
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		utils.WriteOK(w, http.StatusOK, res)
	}
}
