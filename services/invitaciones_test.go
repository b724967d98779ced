package services

import (
	"errors"
	"testing"

	"github.com/kelydev/apiProyectos/apperrors"
	"github.com/kelydev/apiProyectos/models"
)

func TestInvitationAcceptFlow(t *testing.T) {
	f := newFixture(t)
	x := f.register("Xavier", "x@uni.edu")
	y := f.register("Yolanda", "y@uni.edu")
	p := f.proyecto(x.ID, "Tesis")

	id, err := f.svc.Invitaciones.Create(f.ctx, x.ID, p.ID, "y@uni.edu")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	pendientes, err := f.svc.Invitaciones.ListPending(f.ctx, y.ID)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pendientes) != 1 {
		t.Fatalf("Expected 1 pending invitation, got %d", len(pendientes))
	}
	inv := pendientes[0]
	if inv.ID != id || inv.Proyecto.ID != p.ID || inv.Remitente.ID != x.ID {
		t.Errorf("Unexpected invitation %+v", inv)
	}

	res, err := f.svc.Invitaciones.Respond(f.ctx, y.ID, id, true)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if res.Estado != models.EstadoInvitacionAceptada {
		t.Errorf("estado = %q, want aceptada", res.Estado)
	}
	if ok, _ := f.store.IsMiembro(f.ctx, p.ID, y.ID); !ok {
		t.Error("Expected Yolanda to be a member after accepting")
	}
	pendientes, _ = f.svc.Invitaciones.ListPending(f.ctx, y.ID)
	if len(pendientes) != 0 {
		t.Errorf("Expected no pending invitations, got %d", len(pendientes))
	}

	_, err = f.svc.Invitaciones.Respond(f.ctx, y.ID, id, true)
	expectKind(t, err, apperrors.KindConflict)
	miembros, _ := f.svc.Proyectos.ListMembers(f.ctx, x.ID, p.ID)
	if len(miembros) != 2 {
		t.Errorf("Expected a single membership for Yolanda, got %d members", len(miembros))
	}
}

func TestInvitationReject(t *testing.T) {
	f := newFixture(t)
	x := f.register("Xavier", "x@uni.edu")
	y := f.register("Yolanda", "y@uni.edu")
	p := f.proyecto(x.ID, "Tesis")
	id, err := f.svc.Invitaciones.Create(f.ctx, x.ID, p.ID, "Y@UNI.edu")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	res, err := f.svc.Invitaciones.Respond(f.ctx, y.ID, id, false)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if res.Estado != models.EstadoInvitacionRechazada {
		t.Errorf("estado = %q, want rechazada", res.Estado)
	}
	if ok, _ := f.store.IsMiembro(f.ctx, p.ID, y.ID); ok {
		t.Error("Expected no membership after rejecting")
	}

	// a rejected invitation no longer blocks a new one
	if _, err := f.svc.Invitaciones.Create(f.ctx, x.ID, p.ID, "y@uni.edu"); err != nil {
		t.Errorf("Expected re-invite to succeed, got %v", err)
	}
}

func TestCreateInvitationErrors(t *testing.T) {
	f := newFixture(t)
	x := f.register("Xavier", "x@uni.edu")
	y := f.register("Yolanda", "y@uni.edu")
	z := f.register("Zoe", "z@uni.edu")
	f.register("Walter", "w@uni.edu")
	p := f.proyecto(x.ID, "Tesis")
	f.join(p.ID, x.ID, z)
	if _, err := f.svc.Invitaciones.Create(f.ctx, x.ID, p.ID, "w@uni.edu"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	tests := []struct {
		name    string
		inviter int
		project int
		email   string
		kind    apperrors.Kind
	}{
		{"invalid email", x.ID, p.ID, "no-es-email", apperrors.KindValidation},
		{"unknown email", x.ID, p.ID, "nadie@uni.edu", apperrors.KindNotFound},
		{"already member", x.ID, p.ID, "z@uni.edu", apperrors.KindConflict},
		{"creator", x.ID, p.ID, "x@uni.edu", apperrors.KindConflict},
		{"pending exists", x.ID, p.ID, "W@uni.edu", apperrors.KindConflict},
		{"not the creator", z.ID, p.ID, y.Email, apperrors.KindForbidden},
		{"missing project", x.ID, p.ID + 100, y.Email, apperrors.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Invitaciones.Create(f.ctx, tt.inviter, tt.project, tt.email)
			expectKind(t, err, tt.kind)
		})
	}
}

func TestRespondIsAtomic(t *testing.T) {
	f := newFixture(t)
	x := f.register("Xavier", "x@uni.edu")
	y := f.register("Yolanda", "y@uni.edu")
	p := f.proyecto(x.ID, "Tesis")
	id, err := f.svc.Invitaciones.Create(f.ctx, x.ID, p.ID, y.Email)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	f.store.Fail("UpdateInvitacionEstado", errors.New("connection reset"))
	_, err = f.svc.Invitaciones.Respond(f.ctx, y.ID, id, true)
	expectKind(t, err, apperrors.KindInternal)
	f.store.Fail("UpdateInvitacionEstado", nil)

	if ok, _ := f.store.IsMiembro(f.ctx, p.ID, y.ID); ok {
		t.Error("Expected the membership insert to be rolled back")
	}
	pendientes, _ := f.svc.Invitaciones.ListPending(f.ctx, y.ID)
	if len(pendientes) != 1 {
		t.Errorf("Expected the invitation to stay pending, got %d pending", len(pendientes))
	}
}

func TestRespondByOtherUserIsNotFound(t *testing.T) {
	f := newFixture(t)
	x := f.register("Xavier", "x@uni.edu")
	y := f.register("Yolanda", "y@uni.edu")
	z := f.register("Zoe", "z@uni.edu")
	p := f.proyecto(x.ID, "Tesis")
	id, err := f.svc.Invitaciones.Create(f.ctx, x.ID, p.ID, y.Email)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = f.svc.Invitaciones.Respond(f.ctx, z.ID, id, true)
	expectKind(t, err, apperrors.KindNotFound)
	_, err = f.svc.Invitaciones.Respond(f.ctx, y.ID, id+100, true)
	expectKind(t, err, apperrors.KindNotFound)
}

func TestCancelInvitation(t *testing.T) {
	f := newFixture(t)
	x := f.register("Xavier", "x@uni.edu")
	y := f.register("Yolanda", "y@uni.edu")
	p := f.proyecto(x.ID, "Tesis")
	id, err := f.svc.Invitaciones.Create(f.ctx, x.ID, p.ID, y.Email)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	expectKind(t, f.svc.Invitaciones.Cancel(f.ctx, y.ID, id), apperrors.KindForbidden)
	if err := f.svc.Invitaciones.Cancel(f.ctx, x.ID, id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	expectKind(t, f.svc.Invitaciones.Cancel(f.ctx, x.ID, id), apperrors.KindNotFound)

	pendientes, _ := f.svc.Invitaciones.ListPending(f.ctx, y.ID)
	if len(pendientes) != 0 {
		t.Errorf("Expected cancelled invitation to disappear, got %d", len(pendientes))
	}
}

func TestCancelInvitationRollsBackOnDeleteFailure(t *testing.T) {
	f := newFixture(t)
	x := f.register("Xavier", "x@uni.edu")
	y := f.register("Yolanda", "y@uni.edu")
	p := f.proyecto(x.ID, "Tesis")
	id, err := f.svc.Invitaciones.Create(f.ctx, x.ID, p.ID, y.Email)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	f.store.Fail("DeleteInvitacion", errors.New("connection reset"))
	expectKind(t, f.svc.Invitaciones.Cancel(f.ctx, x.ID, id), apperrors.KindInternal)
	f.store.Fail("DeleteInvitacion", nil)

	pendientes, _ := f.svc.Invitaciones.ListPending(f.ctx, y.ID)
	if len(pendientes) != 1 || pendientes[0].ID != id {
		t.Fatalf("Expected invitation %d to stay pending, got %+v", id, pendientes)
	}
	if err := f.svc.Invitaciones.Cancel(f.ctx, x.ID, id); err != nil {
		t.Fatalf("Cancel after recovery: %v", err)
	}
}
