package controllers

import (
	"net/http"

	"github.com/kelydev/apiProyectos/middleware"
	"github.com/kelydev/apiProyectos/services"
	"github.com/kelydev/apiProyectos/utils"
)

// DashboardHandler returns the caller's summary counters.
func DashboardHandler(svc *services.ProyectoService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := svc.Dashboard(r.Context(), middleware.UserID(r.Context()))
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		utils.WriteOK(w, http.StatusOK, d)
	}
}
