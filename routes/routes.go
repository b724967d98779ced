package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/kelydev/apiProyectos/auth"
	"github.com/kelydev/apiProyectos/controllers"
	"github.com/kelydev/apiProyectos/middleware"
	"github.com/kelydev/apiProyectos/services"
	"github.com/kelydev/apiProyectos/utils"
)

// SetupRoutes configures the application routes.
func SetupRoutes(svc *services.Services, tokens *auth.TokenIssuer) *mux.Router {
	r := mux.NewRouter()
	maxSize := svc.Archivos.MaxSize()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.WriteOK(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	// --- Authentication Routes (Public, rate limited) ---
	authLimiter := middleware.AuthRateLimit()
	publicRouter := r.PathPrefix("/auth").Subrouter()
	publicRouter.Use(authLimiter.Middleware)
	publicRouter.HandleFunc("/register", controllers.RegisterHandler(svc.Auth)).Methods("POST")
	publicRouter.HandleFunc("/login", controllers.LoginHandler(svc.Auth)).Methods("POST")

	// --- Protected Routes (Auth Required) ---
	authRouter := r.PathPrefix("").Subrouter()
	authRouter.Use(middleware.JWTMiddleware(tokens))

	// Usuarios
	authRouter.HandleFunc("/usuarios/perfil", controllers.GetPerfilHandler(svc.Auth)).Methods("GET")
	authRouter.HandleFunc("/usuarios/perfil", controllers.UpdatePerfilHandler(svc.Auth)).Methods("PUT")
	authRouter.HandleFunc("/usuarios/buscar", controllers.SearchUsuariosHandler(svc.Auth)).Methods("GET")
	authRouter.HandleFunc("/dashboard", controllers.DashboardHandler(svc.Proyectos)).Methods("GET")

	// Proyectos
	authRouter.HandleFunc("/proyectos", controllers.GetProyectosHandler(svc.Proyectos)).Methods("GET")
	authRouter.HandleFunc("/proyectos", controllers.CreateProyectoHandler(svc.Proyectos, maxSize)).Methods("POST")
	authRouter.HandleFunc("/proyectos/{id}", controllers.GetProyectoHandler(svc.Proyectos)).Methods("GET")
	authRouter.HandleFunc("/proyectos/{id}", controllers.UpdateProyectoHandler(svc.Proyectos)).Methods("PUT")
	authRouter.HandleFunc("/proyectos/{id}", controllers.DeleteProyectoHandler(svc.Proyectos)).Methods("DELETE")
	authRouter.HandleFunc("/proyectos/{id}/miembros", controllers.GetMiembrosHandler(svc.Proyectos)).Methods("GET")
	authRouter.HandleFunc("/proyectos/{id}/invitaciones", controllers.CreateInvitacionHandler(svc.Invitaciones)).Methods("POST")
	authRouter.HandleFunc("/proyectos/{id}/tareas", controllers.CreateTareaHandler(svc.Tareas, maxSize)).Methods("POST")

	// Invitaciones
	authRouter.HandleFunc("/invitaciones", controllers.GetInvitacionesHandler(svc.Invitaciones)).Methods("GET")
	authRouter.HandleFunc("/invitaciones/{id}/responder", controllers.ResponderInvitacionHandler(svc.Invitaciones)).Methods("POST")
	authRouter.HandleFunc("/invitaciones/{id}", controllers.CancelInvitacionHandler(svc.Invitaciones)).Methods("DELETE")

	// Tareas y comentarios
	authRouter.HandleFunc("/tareas", controllers.GetTareasHandler(svc.Tareas)).Methods("GET")
	authRouter.HandleFunc("/tareas/{id}", controllers.GetTareaHandler(svc.Tareas)).Methods("GET")
	authRouter.HandleFunc("/tareas/{id}", controllers.UpdateTareaHandler(svc.Tareas)).Methods("PUT")
	authRouter.HandleFunc("/tareas/{id}/estado", controllers.UpdateEstadoTareaHandler(svc.Tareas)).Methods("PUT")
	authRouter.HandleFunc("/tareas/{id}", controllers.DeleteTareaHandler(svc.Tareas)).Methods("DELETE")
	authRouter.HandleFunc("/tareas/{id}/comentarios", controllers.CreateComentarioHandler(svc.Tareas, maxSize)).Methods("POST")

	// Archivos
	authRouter.HandleFunc("/archivos/{tipo}/{id}", controllers.UploadArchivosHandler(svc.Archivos)).Methods("POST")
	authRouter.HandleFunc("/archivos/{tipo}/{id}", controllers.DeleteArchivoHandler(svc.Archivos)).Methods("DELETE")
	authRouter.HandleFunc("/archivos/{nombre}", controllers.GetArchivoHandler(svc.Archivos)).Methods("GET")

	return r
}
