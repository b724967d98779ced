package services

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/kelydev/apiProyectos/apperrors"
	"github.com/kelydev/apiProyectos/models"
	"github.com/kelydev/apiProyectos/repository"
	"github.com/kelydev/apiProyectos/storage"
)

const (
	octetStream = "application/octet-stream"
	sniffLen    = 512
	sweepBatch  = 100
)

var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".txt":  "text/plain",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// ContentTypeFor maps a file name to the content type used when serving
// it. Unknown extensions are served as application/octet-stream.
func ContentTypeFor(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return octetStream
}

// Upload is one file received from a client. Size is the declared length.
type Upload struct {
	Reader   io.Reader
	Size     int64
	Nombre   string
	TipoMime string
}

// Download is a stored file opened for streaming. The caller closes Body.
type Download struct {
	Archivo     models.Archivo
	ContentType string
	Body        io.ReadCloser
}

// ArchivoService stores, serves and removes file attachments.
type ArchivoService struct {
	store    repository.Store
	blobs    storage.Blobs
	policies *Policies
	maxSize  int64
	logger   *slog.Logger
}

func NewArchivoService(store repository.Store, blobs storage.Blobs, policies *Policies, maxSize int64, logger *slog.Logger) *ArchivoService {
	return &ArchivoService{store: store, blobs: blobs, policies: policies, maxSize: maxSize, logger: logger}
}

// MaxSize is the per-file upload cap in bytes.
func (s *ArchivoService) MaxSize() int64 {
	return s.maxSize
}

// CheckSizes rejects a batch before anything is written when one of the
// declared sizes is over the cap.
func (s *ArchivoService) CheckSizes(files []Upload) error {
	for _, f := range files {
		if f.Size > s.maxSize {
			return apperrors.PayloadTooLarge("El archivo " + filepath.Base(f.Nombre) + " supera el tamaño máximo permitido")
		}
	}
	return nil
}

// Upload attaches a single file to an existing project, task or comment.
func (s *ArchivoService) Upload(ctx context.Context, userID int, tipo models.TipoPadre, padreID int, f Upload) (*models.Archivo, error) {
	if err := s.authorizeUpload(ctx, userID, tipo, padreID); err != nil {
		return nil, err
	}
	a, err := s.save(ctx, s.store, tipo, padreID, userID, f)
	if err != nil {
		return nil, err
	}
	s.logger.Info("file uploaded", "tipo", tipo, "padre_id", padreID, "archivo", a.NombreArchivo, "bytes", a.Tamano)
	return a, nil
}

func (s *ArchivoService) authorizeUpload(ctx context.Context, userID int, tipo models.TipoPadre, padreID int) error {
	switch tipo {
	case models.TipoProyecto:
		_, err := s.policies.ProjectForModify(ctx, userID, padreID)
		return err
	case models.TipoTarea:
		_, _, err := s.policies.TaskForAccess(ctx, userID, padreID)
		return err
	case models.TipoComentario:
		c, err := s.store.GetComentarioByID(ctx, padreID)
		if err != nil {
			return apperrors.Internal(err)
		}
		if c == nil {
			return apperrors.NotFound("Comentario no encontrado")
		}
		if c.UsuarioID != userID {
			return apperrors.Forbidden("Solo el autor puede adjuntar archivos a este comentario")
		}
		return nil
	}
	return apperrors.BadRequest("Tipo de archivo inválido")
}

// save writes the blob and inserts its metadata row through tx. When the
// insert fails the blob is removed again. A caller whose transaction rolls
// back later must remove the returned RutaArchivo itself.
func (s *ArchivoService) save(ctx context.Context, tx repository.Store, tipo models.TipoPadre, padreID, userID int, f Upload) (*models.Archivo, error) {
	if f.Size > s.maxSize {
		return nil, apperrors.PayloadTooLarge("El archivo " + filepath.Base(f.Nombre) + " supera el tamaño máximo permitido")
	}
	if f.Reader == nil {
		return nil, apperrors.BadRequest("Archivo vacío")
	}

	original := filepath.Base(strings.ReplaceAll(f.Nombre, "\\", "/"))
	nombre := uuid.NewString() + extension(original)
	ruta := path.Join(tipo.Dir(), strconv.Itoa(padreID), nombre)

	br := bufio.NewReaderSize(io.LimitReader(f.Reader, s.maxSize+1), sniffLen)
	contentType := strings.TrimSpace(f.TipoMime)
	if contentType == "" || contentType == octetStream {
		head, _ := br.Peek(sniffLen)
		contentType = mimetype.Detect(head).String()
	}

	cr := &countingReader{r: br}
	if err := s.blobs.Put(ctx, ruta, cr, f.Size, contentType); err != nil {
		return nil, apperrors.Internal(err)
	}
	if cr.n > s.maxSize {
		s.discard(ctx, ruta)
		return nil, apperrors.PayloadTooLarge("El archivo " + original + " supera el tamaño máximo permitido")
	}

	a := &models.Archivo{
		Tipo:           tipo,
		PadreID:        padreID,
		NombreArchivo:  nombre,
		NombreOriginal: original,
		TipoArchivo:    contentType,
		Tamano:         cr.n,
		RutaArchivo:    ruta,
		SubidoPor:      userID,
	}
	if err := tx.CreateArchivo(ctx, a); err != nil {
		s.discard(ctx, ruta)
		return nil, apperrors.Internal(err)
	}
	return a, nil
}

// saveAll stores files for one parent inside tx. Each stored blob path is
// appended to written so the caller can remove them on rollback.
func (s *ArchivoService) saveAll(ctx context.Context, tx repository.Store, tipo models.TipoPadre, padreID, userID int, files []Upload, written *[]string) error {
	for _, f := range files {
		a, err := s.save(ctx, tx, tipo, padreID, userID, f)
		if err != nil {
			return err
		}
		*written = append(*written, a.RutaArchivo)
	}
	return nil
}

// extension keeps a short alphanumeric extension of the client file name.
func extension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Retrieve opens a stored file by its storage key after checking that the
// user can read its parent.
func (s *ArchivoService) Retrieve(ctx context.Context, userID int, nombre string) (*Download, error) {
	if nombre == "" || strings.Contains(nombre, "..") || strings.ContainsAny(nombre, `/\`) {
		return nil, apperrors.BadRequest("Nombre de archivo inválido")
	}
	a, err := s.store.GetArchivoByNombre(ctx, nombre)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if a == nil {
		return nil, apperrors.NotFound("Archivo no encontrado")
	}
	if err := s.authorizeRead(ctx, userID, a); err != nil {
		return nil, err
	}

	body, err := s.blobs.Get(ctx, a.RutaArchivo)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			s.logger.Warn("file metadata without blob", "archivo", a.NombreArchivo, "ruta", a.RutaArchivo)
			return nil, apperrors.NotFound("Archivo no encontrado")
		}
		return nil, apperrors.Internal(err)
	}
	return &Download{Archivo: *a, ContentType: ContentTypeFor(a.NombreArchivo), Body: body}, nil
}

func (s *ArchivoService) authorizeRead(ctx context.Context, userID int, a *models.Archivo) error {
	switch a.Tipo {
	case models.TipoProyecto:
		_, err := s.policies.ProjectForAccess(ctx, userID, a.PadreID)
		return err
	case models.TipoTarea:
		_, _, err := s.policies.TaskForAccess(ctx, userID, a.PadreID)
		return err
	case models.TipoComentario:
		c, err := s.store.GetComentarioByID(ctx, a.PadreID)
		if err != nil {
			return apperrors.Internal(err)
		}
		if c == nil {
			return apperrors.NotFound("Archivo no encontrado")
		}
		_, _, err = s.policies.TaskForAccess(ctx, userID, c.TareaID)
		return err
	}
	return apperrors.NotFound("Archivo no encontrado")
}

// Delete removes a file. The blob goes first on a best-effort basis; a
// failure is logged and recorded as an orphan, and the metadata row is
// deleted regardless.
func (s *ArchivoService) Delete(ctx context.Context, userID int, tipo models.TipoPadre, id int) error {
	a, err := s.store.GetArchivo(ctx, tipo, id)
	if err != nil {
		return apperrors.Internal(err)
	}
	if a == nil {
		return apperrors.NotFound("Archivo no encontrado")
	}
	if err := s.authorizeDelete(ctx, userID, a); err != nil {
		return err
	}

	s.removeBlobs(ctx, []string{a.RutaArchivo}, "archivo eliminado")

	deleted, err := s.store.DeleteArchivo(ctx, tipo, id)
	if err != nil {
		return apperrors.Internal(err)
	}
	if !deleted {
		return apperrors.NotFound("Archivo no encontrado")
	}
	s.logger.Info("file deleted", "tipo", tipo, "id", id, "usuario_id", userID)
	return nil
}

// authorizeDelete: the project creator may delete any file of the project;
// task assignees may delete task files and comment authors their comment
// files.
func (s *ArchivoService) authorizeDelete(ctx context.Context, userID int, a *models.Archivo) error {
	denied := apperrors.Forbidden("No tienes permiso para eliminar este archivo")
	switch a.Tipo {
	case models.TipoProyecto:
		_, err := s.policies.ProjectForModify(ctx, userID, a.PadreID)
		return err
	case models.TipoTarea:
		// project creator or assignee, the same rule as reading the task
		_, _, err := s.policies.TaskForAccess(ctx, userID, a.PadreID)
		return err
	case models.TipoComentario:
		c, err := s.store.GetComentarioByID(ctx, a.PadreID)
		if err != nil {
			return apperrors.Internal(err)
		}
		if c == nil {
			return apperrors.NotFound("Archivo no encontrado")
		}
		if c.UsuarioID == userID {
			return nil
		}
		t, err := s.policies.tarea(ctx, c.TareaID)
		if err != nil {
			return err
		}
		p, err := s.policies.proyecto(ctx, t.ProyectoID)
		if err != nil {
			return err
		}
		if !CanModifyProject(userID, p) {
			return denied
		}
		return nil
	}
	return denied
}

// removeBlobs deletes blobs whose metadata is gone or was never committed.
// Failures are recorded for SweepOrphans.
func (s *ArchivoService) removeBlobs(ctx context.Context, rutas []string, motivo string) {
	for _, ruta := range rutas {
		if err := s.blobs.Delete(ctx, ruta); err != nil {
			s.logger.Warn("error removing blob, recording orphan", "ruta", ruta, "err", err)
			if recErr := s.store.RecordHuerfano(ctx, ruta, motivo+": "+err.Error()); recErr != nil {
				s.logger.Error("error recording orphaned blob", "ruta", ruta, "err", recErr)
			}
		}
	}
}

func (s *ArchivoService) discard(ctx context.Context, ruta string) {
	s.removeBlobs(ctx, []string{ruta}, "subida fallida")
}

// SweepOrphans retries the removal of every recorded orphaned blob and
// returns how many were reconciled.
func (s *ArchivoService) SweepOrphans(ctx context.Context) (int, error) {
	removed := 0
	for {
		huerfanos, err := s.store.ListHuerfanos(ctx, sweepBatch)
		if err != nil {
			return removed, apperrors.Internal(err)
		}
		progress := false
		for _, h := range huerfanos {
			if err := s.blobs.Delete(ctx, h.RutaArchivo); err != nil {
				s.logger.Warn("orphaned blob still not removable", "ruta", h.RutaArchivo, "err", err)
				continue
			}
			if err := s.store.DeleteHuerfano(ctx, h.ID); err != nil {
				return removed, apperrors.Internal(err)
			}
			removed++
			progress = true
		}
		if len(huerfanos) < sweepBatch || !progress {
			break
		}
	}
	s.logger.Info("orphan sweep finished", "removed", removed)
	return removed, nil
}
