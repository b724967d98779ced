package controllers

import (
	"net/http"

	"github.com/kelydev/apiProyectos/middleware"
	"github.com/kelydev/apiProyectos/services"
	"github.com/kelydev/apiProyectos/utils"
)

type comentarioInput struct {
	Contenido string `json:"contenido"`
}

// CreateComentarioHandler adds a comment to the task {id}. Accepts
// multipart/form-data with optional "archivos", or a JSON body.
func CreateComentarioHandler(svc *services.TareaService, maxSize int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taskID, err := pathID(r, "id")
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}

		var (
			in    comentarioInput
			files []services.Upload
		)
		if isMultipart(r) {
			f, err := parseForm(w, r, maxSize)
			if err != nil {
				utils.WriteError(w, r, err)
				return
			}
			defer f.close()
			in.Contenido = f.value("contenido")
			files = f.uploads
		} else if err := decodeJSON(r, &in); err != nil {
			utils.WriteError(w, r, err)
			return
		}

		c, err := svc.Comment(r.Context(), middleware.UserID(r.Context()), taskID, in.Contenido, files)
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		utils.WriteOK(w, http.StatusCreated, c)
	}
}
