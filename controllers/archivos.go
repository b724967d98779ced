package controllers

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/kelydev/apiProyectos/apperrors"
	"github.com/kelydev/apiProyectos/middleware"
	"github.com/kelydev/apiProyectos/models"
	"github.com/kelydev/apiProyectos/services"
	"github.com/kelydev/apiProyectos/utils"
)

func tipoParam(r *http.Request) (models.TipoPadre, error) {
	tipo, ok := models.ParseTipoPadre(mux.Vars(r)["tipo"])
	if !ok {
		return "", apperrors.BadRequest("Tipo inválido, usa proyectos, tareas o comentarios")
	}
	return tipo, nil
}

// UploadArchivosHandler attaches the files of a multipart request to an
// existing project, task or comment.
func UploadArchivosHandler(svc *services.ArchivoService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tipo, err := tipoParam(r)
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		padreID, err := pathID(r, "id")
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		if !isMultipart(r) {
			utils.WriteError(w, r, apperrors.BadRequest("Se esperaba multipart/form-data"))
			return
		}
		f, err := parseForm(w, r, svc.MaxSize())
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		defer f.close()
		if len(f.uploads) == 0 {
			utils.WriteError(w, r, apperrors.Validation("No se recibió ningún archivo"))
			return
		}
		if err := svc.CheckSizes(f.uploads); err != nil {
			utils.WriteError(w, r, err)
			return
		}

		userID := middleware.UserID(r.Context())
		archivos := make([]*models.Archivo, 0, len(f.uploads))
		for _, up := range f.uploads {
			a, err := svc.Upload(r.Context(), userID, tipo, padreID, up)
			if err != nil {
				utils.WriteError(w, r, err)
				return
			}
			archivos = append(archivos, a)
		}
		utils.WriteOK(w, http.StatusCreated, archivos)
	}
}

// GetArchivoHandler streams a stored file by its storage name.
func GetArchivoHandler(svc *services.ArchivoService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := svc.Retrieve(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["nombre"])
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		defer d.Body.Close()

		w.Header().Set("Content-Type", d.ContentType)
		w.Header().Set("Content-Length", strconv.FormatInt(d.Archivo.Tamano, 10))
		w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": d.Archivo.NombreOriginal}))
		w.Header().Set("X-Content-Type-Options", "nosniff")
		if _, err := io.Copy(w, d.Body); err != nil {
			slog.WarnContext(r.Context(), "error streaming file", "archivo", d.Archivo.NombreArchivo, "err", err)
		}
	}
}

// DeleteArchivoHandler removes a file by kind and id.
func DeleteArchivoHandler(svc *services.ArchivoService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tipo, err := tipoParam(r)
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		id, err := pathID(r, "id")
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}

		if err := svc.Delete(r.Context(), middleware.UserID(r.Context()), tipo, id); err != nil {
			utils.WriteError(w, r, err)
			return
		}
		utils.WriteOK(w, http.StatusOK, map[string]int{"id": id})
	}
}
