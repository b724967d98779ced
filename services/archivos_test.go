package services

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/kelydev/apiProyectos/apperrors"
	"github.com/kelydev/apiProyectos/models"
)

func TestUploadAndRetrieve(t *testing.T) {
	f := newFixture(t)
	ana := f.register("Ana", "ana@uni.edu")
	beto := f.register("Beto", "beto@uni.edu")
	p := f.proyecto(ana.ID, "Tesis")

	a, err := f.svc.Archivos.Upload(f.ctx, ana.ID, models.TipoProyecto, p.ID, upload("Informe Final.PDF", []byte("%PDF-1.4 hola"), "application/pdf"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if a.NombreOriginal != "Informe Final.PDF" || !strings.HasSuffix(a.NombreArchivo, ".pdf") {
		t.Errorf("Unexpected names %q / %q", a.NombreOriginal, a.NombreArchivo)
	}
	if want := "projects/" + strconv.Itoa(p.ID) + "/" + a.NombreArchivo; a.RutaArchivo != want {
		t.Errorf("ruta = %q, want %q", a.RutaArchivo, want)
	}

	d, err := f.svc.Archivos.Retrieve(f.ctx, ana.ID, a.NombreArchivo)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	defer d.Body.Close()
	body, _ := io.ReadAll(d.Body)
	if string(body) != "%PDF-1.4 hola" {
		t.Errorf("body = %q", body)
	}
	if d.ContentType != "application/pdf" {
		t.Errorf("content type = %q, want application/pdf", d.ContentType)
	}

	_, err = f.svc.Archivos.Retrieve(f.ctx, beto.ID, a.NombreArchivo)
	expectKind(t, err, apperrors.KindForbidden)
}

func TestOversizedUploadLeavesNothingBehind(t *testing.T) {
	f := newFixture(t)
	ana := f.register("Ana", "ana@uni.edu")
	big := bytes.Repeat([]byte("x"), testMaxUpload+1)

	_, err := f.svc.Proyectos.Create(f.ctx, ana.ID, models.ProyectoInput{Nombre: "Tesis"}, []Upload{upload("big.txt", big, "text/plain")})
	expectKind(t, err, apperrors.KindPayloadTooLarge)

	if n := f.blobCount(); n != 0 {
		t.Errorf("Expected no blobs, got %d", n)
	}
	proyectos, _ := f.svc.Proyectos.List(f.ctx, ana.ID)
	if len(proyectos) != 0 {
		t.Errorf("Expected no project rows, got %d", len(proyectos))
	}
}

func TestUnderstatedSizeIsCaughtWhileStreaming(t *testing.T) {
	f := newFixture(t)
	ana := f.register("Ana", "ana@uni.edu")
	p := f.proyecto(ana.ID, "Tesis")

	big := bytes.Repeat([]byte("x"), 2*testMaxUpload)
	up := Upload{Reader: bytes.NewReader(big), Size: 10, Nombre: "big.txt", TipoMime: "text/plain"}
	_, err := f.svc.Archivos.Upload(f.ctx, ana.ID, models.TipoProyecto, p.ID, up)
	expectKind(t, err, apperrors.KindPayloadTooLarge)

	if n := f.blobCount(); n != 0 {
		t.Errorf("Expected the partial blob to be removed, got %d files", n)
	}
	got, _ := f.svc.Proyectos.Get(f.ctx, ana.ID, p.ID)
	if len(got.Archivos) != 0 {
		t.Errorf("Expected no file rows, got %d", len(got.Archivos))
	}
}

func TestRetrieveRejectsTraversal(t *testing.T) {
	f := newFixture(t)
	ana := f.register("Ana", "ana@uni.edu")

	for _, nombre := range []string{"", "../secret.txt", "projects/1/a.txt", `..\a.txt`} {
		_, err := f.svc.Archivos.Retrieve(f.ctx, ana.ID, nombre)
		expectKind(t, err, apperrors.KindBadRequest)
	}
	_, err := f.svc.Archivos.Retrieve(f.ctx, ana.ID, "desconocido.pdf")
	expectKind(t, err, apperrors.KindNotFound)
}

func TestDeleteFileTwice(t *testing.T) {
	f := newFixture(t)
	ana := f.register("Ana", "ana@uni.edu")
	beto := f.register("Beto", "beto@uni.edu")
	p := f.proyecto(ana.ID, "Tesis", upload("notas.txt", []byte("hola"), "text/plain"))
	if len(p.Archivos) != 1 {
		t.Fatalf("Expected 1 project file, got %d", len(p.Archivos))
	}
	id := p.Archivos[0].ID

	expectKind(t, f.svc.Archivos.Delete(f.ctx, beto.ID, models.TipoProyecto, id), apperrors.KindForbidden)
	if err := f.svc.Archivos.Delete(f.ctx, ana.ID, models.TipoProyecto, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n := f.blobCount(); n != 0 {
		t.Errorf("Expected blob to be removed, got %d files", n)
	}
	expectKind(t, f.svc.Archivos.Delete(f.ctx, ana.ID, models.TipoProyecto, id), apperrors.KindNotFound)
}

func TestFailedBlobRemovalIsSwept(t *testing.T) {
	f := newFixture(t)
	ana := f.register("Ana", "ana@uni.edu")
	p := f.proyecto(ana.ID, "Tesis", upload("notas.txt", []byte("hola"), "text/plain"))
	id := p.Archivos[0].ID

	f.blobs.failDelete = errors.New("device busy")
	if err := f.svc.Archivos.Delete(f.ctx, ana.ID, models.TipoProyecto, id); err != nil {
		t.Fatalf("Delete should succeed despite the blob error, got %v", err)
	}
	huerfanos, _ := f.store.ListHuerfanos(f.ctx, 10)
	if len(huerfanos) != 1 || huerfanos[0].RutaArchivo != p.Archivos[0].RutaArchivo {
		t.Fatalf("Expected one recorded orphan, got %+v", huerfanos)
	}
	if n := f.blobCount(); n != 1 {
		t.Errorf("Expected the blob to survive, got %d files", n)
	}

	f.blobs.failDelete = nil
	removed, err := f.svc.Archivos.SweepOrphans(f.ctx)
	if err != nil {
		t.Fatalf("SweepOrphans: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if n := f.blobCount(); n != 0 {
		t.Errorf("Expected the orphan blob to be gone, got %d files", n)
	}
	if huerfanos, _ := f.store.ListHuerfanos(f.ctx, 10); len(huerfanos) != 0 {
		t.Errorf("Expected no orphans left, got %d", len(huerfanos))
	}
}

func TestUploadSniffsMissingContentType(t *testing.T) {
	f := newFixture(t)
	ana := f.register("Ana", "ana@uni.edu")
	p := f.proyecto(ana.ID, "Tesis")
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

	a, err := f.svc.Archivos.Upload(f.ctx, ana.ID, models.TipoProyecto, p.ID, upload("captura", png, ""))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if a.TipoArchivo != "image/png" {
		t.Errorf("tipo_archivo = %q, want image/png", a.TipoArchivo)
	}
	if a.Tamano != int64(len(png)) {
		t.Errorf("tamaño = %d, want %d", a.Tamano, len(png))
	}
}

func TestCommentFilesBelongToTheAuthor(t *testing.T) {
	f := newFixture(t)
	ana := f.register("Ana", "ana@uni.edu")
	beto := f.register("Beto", "beto@uni.edu")
	p := f.proyecto(ana.ID, "Tesis")
	f.join(p.ID, ana.ID, beto)
	task := f.tarea(ana.ID, p.ID, "Encuestas", beto.ID)
	c, err := f.svc.Tareas.Comment(f.ctx, beto.ID, task.ID, "Adjunto avance", []Upload{upload("avance.txt", []byte("v1"), "text/plain")})
	if err != nil {
		t.Fatalf("Comment: %v", err)
	}
	if len(c.Archivos) != 1 || c.Archivos[0].Usuario.ID != beto.ID {
		t.Fatalf("Unexpected comment files: %+v", c.Archivos)
	}

	_, err = f.svc.Archivos.Upload(f.ctx, ana.ID, models.TipoComentario, c.ID, upload("otro.txt", []byte("x"), "text/plain"))
	expectKind(t, err, apperrors.KindForbidden)

	// the project creator can still remove it
	if err := f.svc.Archivos.Delete(f.ctx, ana.ID, models.TipoComentario, c.Archivos[0].ID); err != nil {
		t.Errorf("Delete as project creator: %v", err)
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := map[string]string{
		"a.pdf":  "application/pdf",
		"a.JPG":  "image/jpeg",
		"a.jpeg": "image/jpeg",
		"a.png":  "image/png",
		"a.txt":  "text/plain",
		"a.docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"a.exe":  "application/octet-stream",
		"a":      "application/octet-stream",
	}
	for name, want := range tests {
		if got := ContentTypeFor(name); got != want {
			t.Errorf("ContentTypeFor(%q) = %q, want %q", name, got, want)
		}
	}
}
