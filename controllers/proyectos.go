package controllers

import (
	"net/http"
	"strconv"

	"github.com/kelydev/apiProyectos/apperrors"
	"github.com/kelydev/apiProyectos/middleware"
	"github.com/kelydev/apiProyectos/models"
	"github.com/kelydev/apiProyectos/services"
	"github.com/kelydev/apiProyectos/utils"
)

// GetProyectosHandler lists the projects the caller created or joined.
func GetProyectosHandler(svc *services.ProyectoService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		proyectos, err := svc.List(r.Context(), middleware.UserID(r.Context()))
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		utils.WriteOK(w, http.StatusOK, proyectos)
	}
}

// GetProyectoHandler handles fetching a single project by ID.
func GetProyectoHandler(svc *services.ProyectoService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}

		p, err := svc.Get(r.Context(), middleware.UserID(r.Context()), id)
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		utils.WriteOK(w, http.StatusOK, p)
	}
}

// CreateProyectoHandler creates a project. Accepts multipart/form-data with
// optional attachments under "archivos", or a JSON body.
func CreateProyectoHandler(svc *services.ProyectoService, maxSize int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			in    models.ProyectoInput
			files []services.Upload
		)
		if isMultipart(r) {
			f, err := parseForm(w, r, maxSize)
			if err != nil {
				utils.WriteError(w, r, err)
				return
			}
			defer f.close()
			if in, err = proyectoFromForm(f); err != nil {
				utils.WriteError(w, r, err)
				return
			}
			files = f.uploads
		} else if err := decodeJSON(r, &in); err != nil {
			utils.WriteError(w, r, err)
			return
		}

		p, err := svc.Create(r.Context(), middleware.UserID(r.Context()), in, files)
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		utils.WriteOK(w, http.StatusCreated, p)
	}
}

func proyectoFromForm(f *form) (models.ProyectoInput, error) {
	in := models.ProyectoInput{
		Nombre:      f.value("nombre"),
		Descripcion: f.value("descripcion"),
	}
	fecha, err := utils.ParseFecha(f.value("fecha_limite"))
	if err != nil {
		return in, apperrors.Validation("Formato inválido para fecha_limite, usa " + utils.DateFormat)
	}
	in.FechaLimite = fecha
	if v := f.optional("presupuesto"); v != nil {
		presupuesto, err := strconv.ParseFloat(*v, 64)
		if err != nil {
			return in, apperrors.Validation("El campo presupuesto debe ser numérico")
		}
		in.Presupuesto = &presupuesto
	}
	return in, nil
}

// UpdateProyectoHandler applies a partial update to a project.
func UpdateProyectoHandler(svc *services.ProyectoService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		var patch models.ProyectoPatch
		if err := decodeJSON(r, &patch); err != nil {
			utils.WriteError(w, r, err)
			return
		}

		p, err := svc.Update(r.Context(), middleware.UserID(r.Context()), id, patch)
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		utils.WriteOK(w, http.StatusOK, p)
	}
}

// DeleteProyectoHandler handles deleting a project by ID.
func DeleteProyectoHandler(svc *services.ProyectoService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}

		if err := svc.Delete(r.Context(), middleware.UserID(r.Context()), id); err != nil {
			utils.WriteError(w, r, err)
			return
		}
		utils.WriteOK(w, http.StatusOK, map[string]int{"id": id})
	}
}

// GetMiembrosHandler lists the members of a project.
func GetMiembrosHandler(svc *services.ProyectoService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}

		miembros, err := svc.ListMembers(r.Context(), middleware.UserID(r.Context()), id)
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		utils.WriteOK(w, http.StatusOK, miembros)
	}
}
