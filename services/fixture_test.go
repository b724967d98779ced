package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/kelydev/apiProyectos/apperrors"
	"github.com/kelydev/apiProyectos/auth"
	"github.com/kelydev/apiProyectos/models"
	"github.com/kelydev/apiProyectos/repository/memstore"
	"github.com/kelydev/apiProyectos/storage"
)

const testMaxUpload = 1 << 10

type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  *memstore.Store
	disk   *storage.Disk
	blobs  *flakyBlobs
	tokens *auth.TokenIssuer
	svc    *Services
}

// flakyBlobs wraps a backend and can be told to fail deletions or the
// n-th write.
type flakyBlobs struct {
	storage.Blobs
	failDelete error
	failPutAt  int
	puts       int
}

func (f *flakyBlobs) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	f.puts++
	if f.puts == f.failPutAt {
		return errors.New("disk full")
	}
	return f.Blobs.Put(ctx, key, r, size, contentType)
}

func (f *flakyBlobs) Delete(ctx context.Context, key string) error {
	if f.failDelete != nil {
		return f.failDelete
	}
	return f.Blobs.Delete(ctx, key)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	disk, err := storage.NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	store := memstore.New()
	blobs := &flakyBlobs{Blobs: disk}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		t:      t,
		ctx:    context.Background(),
		store:  store,
		disk:   disk,
		blobs:  blobs,
		tokens: tokens,
		svc:    New(store, blobs, tokens, Options{MaxUploadSize: testMaxUpload, Logger: logger}),
	}
}

func (f *fixture) register(nombre, email string) models.Usuario {
	f.t.Helper()
	res, err := f.svc.Auth.Register(f.ctx, models.RegistroInput{Nombre: nombre, Email: email, Password: "secret1"})
	if err != nil {
		f.t.Fatalf("Register(%s): %v", email, err)
	}
	return res.Usuario
}

func (f *fixture) proyecto(creadorID int, nombre string, files ...Upload) *models.ProyectoExtendido {
	f.t.Helper()
	p, err := f.svc.Proyectos.Create(f.ctx, creadorID, models.ProyectoInput{Nombre: nombre}, files)
	if err != nil {
		f.t.Fatalf("Create project %s: %v", nombre, err)
	}
	return p
}

// join makes u a collaborator of the project through an accepted invitation.
func (f *fixture) join(proyectoID, creadorID int, u models.Usuario) {
	f.t.Helper()
	id, err := f.svc.Invitaciones.Create(f.ctx, creadorID, proyectoID, u.Email)
	if err != nil {
		f.t.Fatalf("invite %s: %v", u.Email, err)
	}
	if _, err := f.svc.Invitaciones.Respond(f.ctx, u.ID, id, true); err != nil {
		f.t.Fatalf("accept invitation %d: %v", id, err)
	}
}

func (f *fixture) tarea(creadorID, proyectoID int, titulo string, asignados ...int) *models.TareaExtendida {
	f.t.Helper()
	t, err := f.svc.Tareas.Create(f.ctx, creadorID, proyectoID, models.TareaInput{Titulo: titulo, Asignados: asignados}, nil)
	if err != nil {
		f.t.Fatalf("Create task %s: %v", titulo, err)
	}
	return t
}

// blobCount counts the files stored on disk.
func (f *fixture) blobCount() int {
	f.t.Helper()
	n := 0
	err := filepath.WalkDir(f.disk.Root(), func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	if err != nil {
		f.t.Fatalf("walk upload dir: %v", err)
	}
	return n
}

func upload(nombre string, content []byte, mime string) Upload {
	return Upload{Reader: bytes.NewReader(content), Size: int64(len(content)), Nombre: nombre, TipoMime: mime}
}

func expectKind(t *testing.T, err error, kind apperrors.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected %s error, got nil", kind)
	}
	if !apperrors.Is(err, kind) {
		t.Fatalf("Expected %s error, got %v", kind, err)
	}
}

func tituloSet(tareas []models.TareaExtendida) map[string]bool {
	out := map[string]bool{}
	for _, t := range tareas {
		out[t.Titulo] = true
	}
	return out
}
