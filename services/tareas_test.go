package services

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/kelydev/apiProyectos/apperrors"
	"github.com/kelydev/apiProyectos/models"
)

func TestCreateTaskRequiresMemberAssignees(t *testing.T) {
	f := newFixture(t)
	ana := f.register("Ana", "ana@uni.edu")
	beto := f.register("Beto", "beto@uni.edu")
	p := f.proyecto(ana.ID, "Tesis")

	_, err := f.svc.Tareas.Create(f.ctx, ana.ID, p.ID, models.TareaInput{Titulo: "Encuestas", Asignados: []int{beto.ID}}, nil)
	expectKind(t, err, apperrors.KindValidation)

	_, err = f.svc.Tareas.Create(f.ctx, beto.ID, p.ID, models.TareaInput{Titulo: "Encuestas"}, nil)
	expectKind(t, err, apperrors.KindForbidden)

	_, err = f.svc.Tareas.Create(f.ctx, ana.ID, p.ID, models.TareaInput{Titulo: "Encuestas", Prioridad: "urgente"}, nil)
	expectKind(t, err, apperrors.KindValidation)

	task, err := f.svc.Tareas.Create(f.ctx, ana.ID, p.ID, models.TareaInput{Titulo: "Encuestas", Asignados: []int{ana.ID, ana.ID}}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.Prioridad != models.PrioridadMedia || task.Estado != models.EstadoTareaPendiente {
		t.Errorf("Unexpected defaults: prioridad %q estado %q", task.Prioridad, task.Estado)
	}
	if len(task.Asignados) != 1 {
		t.Errorf("Expected duplicate assignees to collapse, got %d", len(task.Asignados))
	}
}

func TestCreateTaskRollsBack(t *testing.T) {
	f := newFixture(t)
	ana := f.register("Ana", "ana@uni.edu")
	p := f.proyecto(ana.ID, "Tesis")

	f.store.Fail("AddAsignacion", errors.New("connection reset"))
	_, err := f.svc.Tareas.Create(f.ctx, ana.ID, p.ID, models.TareaInput{Titulo: "Encuestas", Asignados: []int{ana.ID}}, nil)
	expectKind(t, err, apperrors.KindInternal)
	f.store.Fail("AddAsignacion", nil)

	got, _ := f.svc.Proyectos.Get(f.ctx, ana.ID, p.ID)
	if len(got.Tareas) != 0 {
		t.Errorf("Expected the task insert to be rolled back, got %d tasks", len(got.Tareas))
	}
}

func TestCreateTaskRemovesBlobsOnRollback(t *testing.T) {
	f := newFixture(t)
	ana := f.register("Ana", "ana@uni.edu")
	p := f.proyecto(ana.ID, "Tesis")

	files := []Upload{
		upload("uno.txt", []byte("1"), "text/plain"),
		upload("dos.txt", []byte("2"), "text/plain"),
	}
	// the first file commits into the transaction, the second one fails
	f.blobs.failPutAt = 2
	_, err := f.svc.Tareas.Create(f.ctx, ana.ID, p.ID, models.TareaInput{Titulo: "Encuestas"}, files)
	expectKind(t, err, apperrors.KindInternal)

	if n := f.blobCount(); n != 0 {
		t.Errorf("Expected every written blob to be removed, got %d files", n)
	}
	got, _ := f.svc.Proyectos.Get(f.ctx, ana.ID, p.ID)
	if len(got.Tareas) != 0 {
		t.Errorf("Expected no tasks after rollback, got %d", len(got.Tareas))
	}
}

func TestUpdateTaskState(t *testing.T) {
	f := newFixture(t)
	ana := f.register("Ana", "ana@uni.edu")
	beto := f.register("Beto", "beto@uni.edu")
	caro := f.register("Caro", "caro@uni.edu")
	p := f.proyecto(ana.ID, "Tesis")
	f.join(p.ID, ana.ID, beto)
	f.join(p.ID, ana.ID, caro)
	task := f.tarea(ana.ID, p.ID, "Encuestas", beto.ID)

	got, err := f.svc.Tareas.UpdateState(f.ctx, beto.ID, task.ID, models.EstadoTareaEnProgreso)
	if err != nil {
		t.Fatalf("UpdateState as assignee: %v", err)
	}
	if got.Estado != models.EstadoTareaEnProgreso {
		t.Errorf("estado = %q, want en_progreso", got.Estado)
	}
	if _, err := f.svc.Tareas.UpdateState(f.ctx, ana.ID, task.ID, models.EstadoTareaCompletada); err != nil {
		t.Errorf("UpdateState as project creator: %v", err)
	}

	_, err = f.svc.Tareas.UpdateState(f.ctx, caro.ID, task.ID, models.EstadoTareaPendiente)
	expectKind(t, err, apperrors.KindForbidden)
	_, err = f.svc.Tareas.UpdateState(f.ctx, beto.ID, task.ID, "archivada")
	expectKind(t, err, apperrors.KindValidation)
	_, err = f.svc.Tareas.UpdateState(f.ctx, beto.ID, task.ID+100, models.EstadoTareaPendiente)
	expectKind(t, err, apperrors.KindNotFound)
}

func TestDeleteTask(t *testing.T) {
	f := newFixture(t)
	ana := f.register("Ana", "ana@uni.edu")
	beto := f.register("Beto", "beto@uni.edu")
	p := f.proyecto(ana.ID, "Tesis")
	f.join(p.ID, ana.ID, beto)
	task, err := f.svc.Tareas.Create(f.ctx, ana.ID, p.ID, models.TareaInput{Titulo: "Encuestas", Asignados: []int{beto.ID}},
		[]Upload{upload("guia.txt", []byte("guia"), "text/plain")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.Tareas.Comment(f.ctx, beto.ID, task.ID, "Avance", []Upload{upload("avance.txt", []byte("v1"), "text/plain")}); err != nil {
		t.Fatalf("Comment: %v", err)
	}
	if n := f.blobCount(); n != 2 {
		t.Fatalf("Expected 2 blobs, got %d", n)
	}

	expectKind(t, f.svc.Tareas.Delete(f.ctx, beto.ID, task.ID), apperrors.KindForbidden)
	if err := f.svc.Tareas.Delete(f.ctx, ana.ID, task.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n := f.blobCount(); n != 0 {
		t.Errorf("Expected task and comment blobs to be removed, got %d", n)
	}
	expectKind(t, f.svc.Tareas.Delete(f.ctx, ana.ID, task.ID), apperrors.KindNotFound)
}

func TestCommentRequiresAssignment(t *testing.T) {
	f := newFixture(t)
	ana := f.register("Ana", "ana@uni.edu")
	beto := f.register("Beto", "beto@uni.edu")
	p := f.proyecto(ana.ID, "Tesis")
	f.join(p.ID, ana.ID, beto)
	task := f.tarea(ana.ID, p.ID, "Encuestas", beto.ID)

	_, err := f.svc.Tareas.Comment(f.ctx, ana.ID, task.ID, "Revisar", nil)
	expectKind(t, err, apperrors.KindForbidden)

	_, err = f.svc.Tareas.Comment(f.ctx, beto.ID, task.ID, "   ", nil)
	expectKind(t, err, apperrors.KindValidation)

	c, err := f.svc.Tareas.Comment(f.ctx, beto.ID, task.ID, " Revisado ", nil)
	if err != nil {
		t.Fatalf("Comment: %v", err)
	}
	if c.Contenido != "Revisado" || c.Usuario.ID != beto.ID || c.TareaID != task.ID {
		t.Errorf("Unexpected comment %+v", c)
	}
}

func TestUpdateTask(t *testing.T) {
	f := newFixture(t)
	ana := f.register("Ana", "ana@uni.edu")
	beto := f.register("Beto", "beto@uni.edu")
	caro := f.register("Caro", "caro@uni.edu")
	p := f.proyecto(ana.ID, "Tesis")
	f.join(p.ID, ana.ID, beto)
	f.join(p.ID, ana.ID, caro)
	task := f.tarea(ana.ID, p.ID, "Encuestas", beto.ID)

	titulo := "  Encuestas finales "
	prioridad := models.PrioridadAlta
	fecha := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	got, err := f.svc.Tareas.Update(f.ctx, beto.ID, task.ID, models.TareaPatch{Titulo: &titulo, Prioridad: &prioridad, FechaLimite: &fecha})
	if err != nil {
		t.Fatalf("Update as assignee: %v", err)
	}
	if got.Titulo != "Encuestas finales" || got.Prioridad != models.PrioridadAlta || got.Estado != models.EstadoTareaPendiente {
		t.Errorf("Unexpected task after update: %+v", got)
	}

	reread, err := f.svc.Tareas.Get(f.ctx, ana.ID, task.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if reread.Titulo != "Encuestas finales" || reread.FechaLimite == nil || !reread.FechaLimite.Equal(fecha) {
		t.Errorf("Update was not persisted: %+v", reread.Tarea)
	}
	if reread.CreadorID != ana.ID || reread.ProyectoID != p.ID {
		t.Errorf("Update changed ownership: %+v", reread.Tarea)
	}

	estado := models.EstadoTareaCompletada
	if _, err := f.svc.Tareas.Update(f.ctx, ana.ID, task.ID, models.TareaPatch{Estado: &estado}); err != nil {
		t.Errorf("Update as project creator: %v", err)
	}

	blanco := "   "
	invalida := "urgente"
	tests := []struct {
		name   string
		userID int
		taskID int
		patch  models.TareaPatch
		kind   apperrors.Kind
	}{
		{"blank title", beto.ID, task.ID, models.TareaPatch{Titulo: &blanco}, apperrors.KindValidation},
		{"unknown priority", beto.ID, task.ID, models.TareaPatch{Prioridad: &invalida}, apperrors.KindValidation},
		{"unknown state", beto.ID, task.ID, models.TareaPatch{Estado: &invalida}, apperrors.KindValidation},
		{"member not assigned", caro.ID, task.ID, models.TareaPatch{Titulo: &titulo}, apperrors.KindForbidden},
		{"missing task", beto.ID, task.ID + 100, models.TareaPatch{Titulo: &titulo}, apperrors.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Tareas.Update(f.ctx, tt.userID, tt.taskID, tt.patch)
			expectKind(t, err, tt.kind)
		})
	}
}

func TestListTasksForUser(t *testing.T) {
	f := newFixture(t)
	ana := f.register("Ana", "ana@uni.edu")
	beto := f.register("Beto", "beto@uni.edu")
	caro := f.register("Caro", "caro@uni.edu")
	dana := f.register("Dana", "dana@uni.edu")
	p := f.proyecto(ana.ID, "Tesis")
	f.join(p.ID, ana.ID, beto)
	f.join(p.ID, ana.ID, caro)
	f.tarea(ana.ID, p.ID, "Marco teórico", beto.ID)
	f.tarea(ana.ID, p.ID, "Encuestas", caro.ID)
	f.tarea(ana.ID, p.ID, "Análisis", beto.ID)
	propio := f.proyecto(beto.ID, "Seminario")
	f.tarea(beto.ID, propio.ID, "Lecturas")

	titulos := func(t *testing.T, userID int) []string {
		t.Helper()
		tareas, err := f.svc.Tareas.ListForUser(f.ctx, userID)
		if err != nil {
			t.Fatalf("ListForUser(%d): %v", userID, err)
		}
		if tareas == nil {
			t.Fatalf("ListForUser(%d) returned nil", userID)
		}
		out := make([]string, len(tareas))
		for i, task := range tareas {
			out[i] = task.Titulo
		}
		return out
	}

	tests := []struct {
		name   string
		userID int
		want   []string
	}{
		{"assignee across projects", beto.ID, []string{"Lecturas", "Análisis", "Marco teórico"}},
		{"creator sees own tasks", ana.ID, []string{"Análisis", "Encuestas", "Marco teórico"}},
		{"single assignment", caro.ID, []string{"Encuestas"}},
		{"no projects", dana.ID, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := titulos(t, tt.userID); !slices.Equal(got, tt.want) {
				t.Errorf("titles = %q, want %q", got, tt.want)
			}
		})
	}
}
