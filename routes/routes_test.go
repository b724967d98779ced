package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/kelydev/apiProyectos/auth"
	"github.com/kelydev/apiProyectos/repository/memstore"
	"github.com/kelydev/apiProyectos/services"
	"github.com/kelydev/apiProyectos/storage"
)

const testMaxUpload = 1 << 10

type envelope struct {
	Success bool            `json:"success"`
	Error   *string         `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func newRouter(t *testing.T) *mux.Router {
	t.Helper()
	disk, err := storage.NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	svc := services.New(memstore.New(), disk, tokens, services.Options{
		MaxUploadSize: testMaxUpload,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return SetupRoutes(svc, tokens)
}

func do(t *testing.T, h http.Handler, method, path, token string, body io.Reader, contentType string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	r := httptest.NewRequest(method, path, body)
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: decode envelope: %v (%s)", method, path, err, w.Body.String())
		}
	}
	return w, env
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, v interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var body io.Reader
	if v != nil {
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(b)
	}
	return do(t, h, method, path, token, body, "application/json")
}

type session struct {
	Token   string `json:"token"`
	Usuario struct {
		ID int `json:"id"`
	} `json:"usuario"`
}

func register(t *testing.T, h http.Handler, nombre, email string) session {
	t.Helper()
	w, env := doJSON(t, h, "POST", "/auth/register", "", map[string]string{"nombre": nombre, "email": email, "password": "secret1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d: %s", email, w.Code, w.Body.String())
	}
	var s session
	if err := json.Unmarshal(env.Data, &s); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return s
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile("archivos", name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		fw.Write(content)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("multipart close: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	h := newRouter(t)
	w, env := do(t, h, "GET", "/healthz", "", nil, "")
	if w.Code != http.StatusOK || !env.Success {
		t.Errorf("Expected healthy, got %d %s", w.Code, w.Body.String())
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newRouter(t)
	for _, path := range []string{"/proyectos", "/dashboard", "/invitaciones", "/usuarios/perfil"} {
		w, env := do(t, h, "GET", path, "", nil, "")
		if w.Code != http.StatusUnauthorized || env.Success || env.Error == nil {
			t.Errorf("GET %s: expected 401 envelope, got %d %s", path, w.Code, w.Body.String())
		}
	}
}

func TestLoginFlow(t *testing.T) {
	h := newRouter(t)
	s := register(t, h, "Ana", "ana@uni.edu")

	w, env := doJSON(t, h, "POST", "/auth/login", "", map[string]string{"email": "ana@uni.edu", "password": "secret1"})
	if w.Code != http.StatusOK {
		t.Fatalf("login: status %d", w.Code)
	}
	var logged session
	json.Unmarshal(env.Data, &logged)
	if logged.Usuario.ID != s.Usuario.ID || logged.Token == "" {
		t.Errorf("Unexpected login response %s", env.Data)
	}

	w, _ = doJSON(t, h, "POST", "/auth/login", "", map[string]string{"email": "ana@uni.edu", "password": "nope-nope"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for wrong password, got %d", w.Code)
	}
	w, _ = doJSON(t, h, "POST", "/auth/register", "", map[string]string{"nombre": "Ana", "email": "ANA@uni.edu", "password": "secret1"})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate email, got %d", w.Code)
	}
	w, _ = do(t, h, "POST", "/auth/login", "", strings.NewReader("{"), "application/json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed body, got %d", w.Code)
	}
}

func TestProjectWithFilesOverHTTP(t *testing.T) {
	h := newRouter(t)
	ana := register(t, h, "Ana", "ana@uni.edu")
	beto := register(t, h, "Beto", "beto@uni.edu")

	body, ct := multipartBody(t,
		map[string]string{"nombre": "Tesis", "presupuesto": "500", "fecha_limite": "2030-06-30"},
		map[string][]byte{"plan.txt": []byte("plan de trabajo")})
	w, env := do(t, h, "POST", "/proyectos", ana.Token, body, ct)
	if w.Code != http.StatusCreated {
		t.Fatalf("create project: status %d: %s", w.Code, w.Body.String())
	}
	var p struct {
		ID       int `json:"id"`
		Archivos []struct {
			NombreArchivo string `json:"nombre_archivo"`
		} `json:"archivos"`
		Miembros []json.RawMessage `json:"miembros"`
	}
	json.Unmarshal(env.Data, &p)
	if len(p.Archivos) != 1 || len(p.Miembros) != 0 {
		t.Fatalf("Unexpected project %s", env.Data)
	}

	w = httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/archivos/"+p.Archivos[0].NombreArchivo, nil)
	r.Header.Set("Authorization", "Bearer "+ana.Token)
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK || w.Body.String() != "plan de trabajo" {
		t.Errorf("download: %d %q", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/plain" {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}

	w, _ = do(t, h, "GET", "/archivos/"+p.Archivos[0].NombreArchivo, beto.Token, nil, "")
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for a non-member download, got %d", w.Code)
	}
	w, _ = do(t, h, "GET", "/archivos/..secreto.txt", ana.Token, nil, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a name with '..', got %d", w.Code)
	}

	big, bigCT := multipartBody(t, map[string]string{"nombre": "Grande"},
		map[string][]byte{"big.bin": bytes.Repeat([]byte("x"), testMaxUpload+1)})
	w, env = do(t, h, "POST", "/proyectos", ana.Token, big, bigCT)
	if w.Code != http.StatusRequestEntityTooLarge || env.Success {
		t.Errorf("Expected 413 for an oversized file, got %d %s", w.Code, w.Body.String())
	}

	w, _ = do(t, h, "DELETE", "/proyectos/"+strconv.Itoa(p.ID), beto.Token, nil, "")
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 deleting someone else's project, got %d", w.Code)
	}
	w, _ = do(t, h, "DELETE", "/proyectos/"+strconv.Itoa(p.ID), ana.Token, nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("delete: status %d", w.Code)
	}
	w, _ = do(t, h, "DELETE", "/proyectos/"+strconv.Itoa(p.ID), ana.Token, nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 on second delete, got %d", w.Code)
	}
}

func TestInvitationTaskAndCommentOverHTTP(t *testing.T) {
	h := newRouter(t)
	ana := register(t, h, "Ana", "ana@uni.edu")
	beto := register(t, h, "Beto", "beto@uni.edu")

	w, env := doJSON(t, h, "POST", "/proyectos", ana.Token, map[string]interface{}{"nombre": "Tesis"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create project: %d %s", w.Code, w.Body.String())
	}
	var p struct {
		ID int `json:"id"`
	}
	json.Unmarshal(env.Data, &p)
	pid := strconv.Itoa(p.ID)

	w, env = doJSON(t, h, "POST", "/proyectos/"+pid+"/invitaciones", ana.Token, map[string]string{"email": "beto@uni.edu"})
	if w.Code != http.StatusCreated {
		t.Fatalf("invite: %d %s", w.Code, w.Body.String())
	}
	var inv struct {
		ID int `json:"id"`
	}
	json.Unmarshal(env.Data, &inv)

	w, env = do(t, h, "GET", "/invitaciones", beto.Token, nil, "")
	var pendientes []json.RawMessage
	json.Unmarshal(env.Data, &pendientes)
	if w.Code != http.StatusOK || len(pendientes) != 1 {
		t.Fatalf("Expected 1 pending invitation, got %d %s", w.Code, w.Body.String())
	}

	w, _ = doJSON(t, h, "POST", "/invitaciones/"+strconv.Itoa(inv.ID)+"/responder", beto.Token, map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without accept, got %d", w.Code)
	}
	w, _ = doJSON(t, h, "POST", "/invitaciones/"+strconv.Itoa(inv.ID)+"/responder", beto.Token, map[string]bool{"accept": true})
	if w.Code != http.StatusOK {
		t.Fatalf("accept: %d %s", w.Code, w.Body.String())
	}
	w, _ = doJSON(t, h, "POST", "/invitaciones/"+strconv.Itoa(inv.ID)+"/responder", beto.Token, map[string]bool{"accept": true})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 answering twice, got %d", w.Code)
	}

	body, ct := multipartBody(t, map[string]string{"titulo": "Encuestas", "prioridad": "alta", "asignados": strconv.Itoa(beto.Usuario.ID)}, nil)
	w, env = do(t, h, "POST", "/proyectos/"+pid+"/tareas", ana.Token, body, ct)
	if w.Code != http.StatusCreated {
		t.Fatalf("create task: %d %s", w.Code, w.Body.String())
	}
	var task struct {
		ID        int               `json:"id"`
		Asignados []json.RawMessage `json:"asignados"`
	}
	json.Unmarshal(env.Data, &task)
	if len(task.Asignados) != 1 {
		t.Errorf("Expected 1 assignee, got %s", env.Data)
	}
	tid := strconv.Itoa(task.ID)

	w, _ = doJSON(t, h, "POST", "/tareas/"+tid+"/comentarios", ana.Token, map[string]string{"contenido": "Revisar"})
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for an unassigned commenter, got %d", w.Code)
	}
	w, _ = doJSON(t, h, "POST", "/tareas/"+tid+"/comentarios", beto.Token, map[string]string{"contenido": "Listo"})
	if w.Code != http.StatusCreated {
		t.Errorf("comment: %d %s", w.Code, w.Body.String())
	}
	w, _ = doJSON(t, h, "PUT", "/tareas/"+tid+"/estado", beto.Token, map[string]string{"estado": "completada"})
	if w.Code != http.StatusOK {
		t.Errorf("update state: %d %s", w.Code, w.Body.String())
	}
	w, _ = doJSON(t, h, "PUT", "/tareas/"+tid+"/estado", beto.Token, map[string]string{"estado": "archivada"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an unknown state, got %d", w.Code)
	}

	w, env = do(t, h, "GET", "/proyectos/"+pid+"/miembros", beto.Token, nil, "")
	var miembros []json.RawMessage
	json.Unmarshal(env.Data, &miembros)
	if w.Code != http.StatusOK || len(miembros) != 2 {
		t.Errorf("Expected 2 members, got %d %s", w.Code, w.Body.String())
	}

	w, _ = do(t, h, "GET", "/proyectos/abc", ana.Token, nil, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a non-numeric id, got %d", w.Code)
	}
}

func TestTaskEditAndListOverHTTP(t *testing.T) {
	h := newRouter(t)
	ana := register(t, h, "Ana", "ana@uni.edu")
	beto := register(t, h, "Beto", "beto@uni.edu")

	w, env := doJSON(t, h, "POST", "/proyectos", ana.Token, map[string]interface{}{"nombre": "Tesis"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create project: %d %s", w.Code, w.Body.String())
	}
	var p struct {
		ID int `json:"id"`
	}
	json.Unmarshal(env.Data, &p)
	pid := strconv.Itoa(p.ID)

	for _, titulo := range []string{"Marco teórico", "Encuestas"} {
		w, _ = doJSON(t, h, "POST", "/proyectos/"+pid+"/tareas", ana.Token, map[string]string{"titulo": titulo})
		if w.Code != http.StatusCreated {
			t.Fatalf("create task %s: %d %s", titulo, w.Code, w.Body.String())
		}
	}

	w, env = do(t, h, "GET", "/tareas", ana.Token, nil, "")
	var tareas []struct {
		ID     int    `json:"id"`
		Titulo string `json:"titulo"`
	}
	json.Unmarshal(env.Data, &tareas)
	if w.Code != http.StatusOK || len(tareas) != 2 || tareas[0].Titulo != "Encuestas" {
		t.Fatalf("Expected 2 tasks newest first, got %d %s", w.Code, w.Body.String())
	}
	tid := strconv.Itoa(tareas[0].ID)

	w, env = doJSON(t, h, "PUT", "/tareas/"+tid, ana.Token, map[string]string{"titulo": "Encuestas piloto", "prioridad": "alta"})
	var edited struct {
		Titulo    string `json:"titulo"`
		Prioridad string `json:"prioridad"`
		Estado    string `json:"estado"`
	}
	json.Unmarshal(env.Data, &edited)
	if w.Code != http.StatusOK || edited.Titulo != "Encuestas piloto" || edited.Prioridad != "alta" || edited.Estado != "pendiente" {
		t.Errorf("edit task: %d %s", w.Code, w.Body.String())
	}

	w, _ = doJSON(t, h, "PUT", "/tareas/"+tid, ana.Token, map[string]string{"prioridad": "urgente"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an unknown priority, got %d", w.Code)
	}
	w, _ = doJSON(t, h, "PUT", "/tareas/"+tid, beto.Token, map[string]string{"titulo": "Otro"})
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for a stranger, got %d", w.Code)
	}

	w, env = do(t, h, "GET", "/tareas", beto.Token, nil, "")
	if w.Code != http.StatusOK || string(env.Data) != "[]" {
		t.Errorf("Expected an empty list for a user without tasks, got %d %s", w.Code, w.Body.String())
	}
}
