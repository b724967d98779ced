package controllers

import (
	"encoding/json"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/kelydev/apiProyectos/apperrors"
	"github.com/kelydev/apiProyectos/services"
)

const (
	// maxFilesPerRequest bounds how many attachments one form may carry.
	maxFilesPerRequest = 10
	formMemory         = 8 << 20
	formOverhead       = 1 << 20
	filesField         = "archivos"
	fileField          = "archivo"
)

// pathID reads a numeric route variable.
func pathID(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id <= 0 {
		return 0, apperrors.BadRequest("ID inválido")
	}
	return id, nil
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.PayloadTooLarge("La solicitud supera el tamaño máximo permitido")
		}
		return apperrors.BadRequest("Cuerpo de la solicitud inválido")
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// form is a parsed multipart request. close releases the open attachments.
type form struct {
	r       *http.Request
	uploads []services.Upload
	files   []multipart.File
}

// parseForm parses a multipart body capped at maxFilesPerRequest files of
// maxSize bytes each and opens the files sent under the archivos or archivo
// fields.
func parseForm(w http.ResponseWriter, r *http.Request, maxSize int64) (*form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFilesPerRequest*maxSize+formOverhead)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperrors.PayloadTooLarge("La solicitud supera el tamaño máximo permitido")
		}
		return nil, apperrors.BadRequest("Formulario inválido")
	}

	f := &form{r: r}
	var headers []*multipart.FileHeader
	for _, key := range []string{filesField, filesField + "[]", fileField} {
		headers = append(headers, r.MultipartForm.File[key]...)
	}
	if len(headers) > maxFilesPerRequest {
		f.close()
		return nil, apperrors.Validation("Se permiten como máximo " + strconv.Itoa(maxFilesPerRequest) + " archivos por solicitud")
	}
	for _, fh := range headers {
		file, err := fh.Open()
		if err != nil {
			f.close()
			return nil, apperrors.Internal(err)
		}
		f.files = append(f.files, file)
		f.uploads = append(f.uploads, services.Upload{
			Reader:   file,
			Size:     fh.Size,
			Nombre:   fh.Filename,
			TipoMime: fh.Header.Get("Content-Type"),
		})
	}
	return f, nil
}

func (f *form) value(key string) string {
	return strings.TrimSpace(f.r.FormValue(key))
}

// optional returns nil for a missing or blank field.
func (f *form) optional(key string) *string {
	v := f.value(key)
	if v == "" {
		return nil
	}
	return &v
}

// ints reads repeated integer fields. A value may also be a JSON array or a
// comma separated list.
func (f *form) ints(key string) ([]int, error) {
	var out []int
	for _, raw := range append(f.r.MultipartForm.Value[key], f.r.MultipartForm.Value[key+"[]"]...) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.HasPrefix(raw, "[") {
			var ids []int
			if err := json.Unmarshal([]byte(raw), &ids); err != nil {
				return nil, apperrors.Validation("El campo " + key + " debe contener IDs numéricos")
			}
			out = append(out, ids...)
			continue
		}
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return nil, apperrors.Validation("El campo " + key + " debe contener IDs numéricos")
			}
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *form) close() {
	for _, file := range f.files {
		file.Close()
	}
	if f.r.MultipartForm != nil {
		f.r.MultipartForm.RemoveAll()
	}
}
