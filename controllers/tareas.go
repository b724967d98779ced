package controllers

import (
	"net/http"

	"github.com/kelydev/apiProyectos/apperrors"
	"github.com/kelydev/apiProyectos/middleware"
	"github.com/kelydev/apiProyectos/models"
	"github.com/kelydev/apiProyectos/services"
	"github.com/kelydev/apiProyectos/utils"
)

// CreateTareaHandler creates a task in the project {id}. Accepts
// multipart/form-data with repeated "asignados" and optional "archivos",
// or a JSON body.
func CreateTareaHandler(svc *services.TareaService, maxSize int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := pathID(r, "id")
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}

		var (
			in    models.TareaInput
			files []services.Upload
		)
		if isMultipart(r) {
			f, err := parseForm(w, r, maxSize)
			if err != nil {
				utils.WriteError(w, r, err)
				return
			}
			defer f.close()
			if in, err = tareaFromForm(f); err != nil {
				utils.WriteError(w, r, err)
				return
			}
			files = f.uploads
		} else if err := decodeJSON(r, &in); err != nil {
			utils.WriteError(w, r, err)
			return
		}

		t, err := svc.Create(r.Context(), middleware.UserID(r.Context()), projectID, in, files)
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		utils.WriteOK(w, http.StatusCreated, t)
	}
}

func tareaFromForm(f *form) (models.TareaInput, error) {
	in := models.TareaInput{
		Titulo:      f.value("titulo"),
		Descripcion: f.value("descripcion"),
		Prioridad:   f.value("prioridad"),
	}
	fecha, err := utils.ParseFecha(f.value("fecha_limite"))
	if err != nil {
		return in, apperrors.Validation("Formato inválido para fecha_limite, usa " + utils.DateFormat)
	}
	in.FechaLimite = fecha
	if in.Asignados, err = f.ints("asignados"); err != nil {
		return in, err
	}
	return in, nil
}

// GetTareaHandler returns a task with its assignees, comments and files.
func GetTareaHandler(svc *services.TareaService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}

		t, err := svc.Get(r.Context(), middleware.UserID(r.Context()), id)
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		utils.WriteOK(w, http.StatusOK, t)
	}
}

// GetTareasHandler lists the caller's tasks across their projects.
func GetTareasHandler(svc *services.TareaService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tareas, err := svc.ListForUser(r.Context(), middleware.UserID(r.Context()))
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		utils.WriteOK(w, http.StatusOK, tareas)
	}
}

// UpdateTareaHandler edits the fields of a task present in the JSON body.
func UpdateTareaHandler(svc *services.TareaService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		var patch models.TareaPatch
		if err := decodeJSON(r, &patch); err != nil {
			utils.WriteError(w, r, err)
			return
		}

		t, err := svc.Update(r.Context(), middleware.UserID(r.Context()), id, patch)
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		utils.WriteOK(w, http.StatusOK, t)
	}
}

type estadoInput struct {
	Estado string `json:"estado"`
}

// UpdateEstadoTareaHandler moves a task to another state.
func UpdateEstadoTareaHandler(svc *services.TareaService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		var in estadoInput
		if err := decodeJSON(r, &in); err != nil {
			utils.WriteError(w, r, err)
			return
		}

		t, err := svc.UpdateState(r.Context(), middleware.UserID(r.Context()), id, in.Estado)
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		utils.WriteOK(w, http.StatusOK, t)
	}
}

// DeleteTareaHandler handles deleting a task by ID.
func DeleteTareaHandler(svc *services.TareaService) http.HandlerFunc {
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
