package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/kelydev/apiProyectos/models"
	"github.com/kelydev/apiProyectos/repository"
)

func TestWithTxRestoresStateOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := &models.Usuario{Nombre: "Ana", Email: "ana@uni.edu", Password: "x"}
	if err := s.CreateUsuario(ctx, u); err != nil {
		t.Fatalf("CreateUsuario: %v", err)
	}

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx repository.Store) error {
		p := &models.Proyecto{Nombre: "Tesis", Estado: models.EstadoProyectoActivo, CreadorID: u.ID}
		if err := tx.CreateProyecto(ctx, p); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}

	proyectos, _ := s.ListProyectosForUsuario(ctx, u.ID)
	if len(proyectos) != 0 {
		t.Errorf("Expected rollback to drop the project, got %d", len(proyectos))
	}
}

func TestUniqueEmailAndPendingInvitation(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := &models.Usuario{Nombre: "Ana", Email: "ana@uni.edu"}
	if err := s.CreateUsuario(ctx, u); err != nil {
		t.Fatalf("CreateUsuario: %v", err)
	}
	if err := s.CreateUsuario(ctx, &models.Usuario{Nombre: "Otra", Email: "ana@uni.edu"}); !repository.IsUniqueViolation(err) {
		t.Errorf("Expected unique violation for duplicate email, got %v", err)
	}

	p := &models.Proyecto{Nombre: "Tesis", Estado: models.EstadoProyectoActivo, CreadorID: u.ID}
	if err := s.CreateProyecto(ctx, p); err != nil {
		t.Fatalf("CreateProyecto: %v", err)
	}
	inv := &models.Invitacion{ProyectoID: p.ID, Email: "y@uni.edu", RemitenteID: u.ID, Estado: models.EstadoInvitacionPendiente}
	if err := s.CreateInvitacion(ctx, inv); err != nil {
		t.Fatalf("CreateInvitacion: %v", err)
	}
	dup := &models.Invitacion{ProyectoID: p.ID, Email: "Y@uni.edu", RemitenteID: u.ID, Estado: models.EstadoInvitacionPendiente}
	if err := s.CreateInvitacion(ctx, dup); !repository.IsUniqueViolation(err) {
		t.Errorf("Expected unique violation for second pending invitation, got %v", err)
	}
}

func TestDeleteProyectoCascades(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := &models.Usuario{Nombre: "Ana", Email: "ana@uni.edu"}
	_ = s.CreateUsuario(ctx, u)
	p := &models.Proyecto{Nombre: "Tesis", Estado: models.EstadoProyectoActivo, CreadorID: u.ID}
	_ = s.CreateProyecto(ctx, p)
	task := &models.Tarea{Titulo: "T", Prioridad: models.PrioridadMedia, Estado: models.EstadoTareaPendiente, ProyectoID: p.ID, CreadorID: u.ID}
	_ = s.CreateTarea(ctx, task)
	c := &models.Comentario{Contenido: "hola", TareaID: task.ID, UsuarioID: u.ID}
	_ = s.CreateComentario(ctx, c)
	a := &models.Archivo{Tipo: models.TipoComentario, PadreID: c.ID, NombreArchivo: "k.txt", RutaArchivo: "comments/1/k.txt", SubidoPor: u.ID}
	if err := s.CreateArchivo(ctx, a); err != nil {
		t.Fatalf("CreateArchivo: %v", err)
	}

	rutas, _ := s.ListRutasByProyecto(ctx, p.ID)
	if len(rutas) != 1 || rutas[0] != "comments/1/k.txt" {
		t.Errorf("Unexpected paths before delete: %v", rutas)
	}

	deleted, err := s.DeleteProyecto(ctx, p.ID)
	if err != nil || !deleted {
		t.Fatalf("DeleteProyecto = %v, %v", deleted, err)
	}
	if got, _ := s.GetTareaByID(ctx, task.ID); got != nil {
		t.Error("Expected task to be cascaded")
	}
	if got, _ := s.GetArchivoByNombre(ctx, "k.txt"); got != nil {
		t.Error("Expected comment file to be cascaded")
	}
	if deleted, _ := s.DeleteProyecto(ctx, p.ID); deleted {
		t.Error("Expected second delete to report false")
	}
}

func TestInvitationRowLockNeedsTransaction(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.GetInvitacionForUpdate(ctx, 1); err == nil {
		t.Fatal("Expected an error outside WithTx")
	}
	err := s.WithTx(ctx, func(tx repository.Store) error {
		inv, err := tx.GetInvitacionForUpdate(ctx, 1)
		if err != nil {
			return err
		}
		if inv != nil {
			t.Errorf("Expected no invitation, got %+v", inv)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}
}
