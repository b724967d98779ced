package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/kelydev/apiProyectos/apperrors"
	"github.com/kelydev/apiProyectos/models"
	"github.com/kelydev/apiProyectos/repository"
	"golang.org/x/sync/errgroup"
)

// composerConcurrency bounds the sibling queries issued at one level.
const composerConcurrency = 4

// Composer assembles the nested read models. Every relation is loaded
// with one batched query per nesting level; rows come back ordered by
// parent and timestamp, so grouping them keeps the final order stable.
type Composer struct {
	store    repository.Store
	policies *Policies
}

func NewComposer(store repository.Store, policies *Policies) *Composer {
	return &Composer{store: store, policies: policies}
}

// taskFilter decides whether a task is included in a composed project.
type taskFilter func(p *models.Proyecto, t *models.Tarea, asignados []models.AsignacionTarea) bool

// grafo holds the rows loaded for one composition, grouped by parent id.
type grafo struct {
	miembros           map[int][]models.MiembroProyecto
	tareas             map[int][]models.Tarea
	archivosProyecto   map[int][]models.Archivo
	asignaciones       map[int][]models.AsignacionTarea
	comentarios        map[int][]models.Comentario
	archivosTarea      map[int][]models.Archivo
	archivosComentario map[int][]models.Archivo
	creadores          []int
	usuarios           map[int]models.Usuario
}

func newGrafo() *grafo {
	return &grafo{
		miembros:           map[int][]models.MiembroProyecto{},
		tareas:             map[int][]models.Tarea{},
		archivosProyecto:   map[int][]models.Archivo{},
		asignaciones:       map[int][]models.AsignacionTarea{},
		comentarios:        map[int][]models.Comentario{},
		archivosTarea:      map[int][]models.Archivo{},
		archivosComentario: map[int][]models.Archivo{},
	}
}

func agrupar[T any](rows []T, key func(T) int) map[int][]T {
	out := make(map[int][]T)
	for _, row := range rows {
		k := key(row)
		out[k] = append(out[k], row)
	}
	return out
}

func asignadoA(asignados []models.AsignacionTarea, userID int) bool {
	for _, a := range asignados {
		if a.UsuarioID == userID {
			return true
		}
	}
	return false
}

// ListProjectsForUser returns every project the user created or joined,
// newest first. Each project only carries the tasks the user created or
// is assigned to.
func (c *Composer) ListProjectsForUser(ctx context.Context, userID int) ([]models.ProyectoExtendido, error) {
	proyectos, err := c.store.ListProyectosForUsuario(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return c.componerProyectos(ctx, proyectos, func(_ *models.Proyecto, t *models.Tarea, asignados []models.AsignacionTarea) bool {
		return t.CreadorID == userID || asignadoA(asignados, userID)
	})
}

// GetProject returns one project after an access check. The creator sees
// every task; anyone else only the tasks assigned to them.
func (c *Composer) GetProject(ctx context.Context, userID, projectID int) (*models.ProyectoExtendido, error) {
	p, err := c.policies.ProjectForAccess(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	out, err := c.componerProyectos(ctx, []models.Proyecto{*p}, func(p *models.Proyecto, _ *models.Tarea, asignados []models.AsignacionTarea) bool {
		return p.CreadorID == userID || asignadoA(asignados, userID)
	})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// ListTasksForUser returns the tasks the user created or is assigned to,
// across every project they belong to, newest first.
func (c *Composer) ListTasksForUser(ctx context.Context, userID int) ([]models.Tarea, error) {
	out := []models.Tarea{}
	proyectos, err := c.store.ListProyectosForUsuario(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if len(proyectos) == 0 {
		return out, nil
	}
	ids := make([]int, len(proyectos))
	for i, p := range proyectos {
		ids[i] = p.ID
	}
	tareas, err := c.store.ListTareasByProyectos(ctx, ids)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	tareaIDs := make([]int, len(tareas))
	for i, t := range tareas {
		tareaIDs[i] = t.ID
	}
	asignaciones, err := c.store.ListAsignacionesByTareas(ctx, tareaIDs)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	porTarea := agrupar(asignaciones, func(a models.AsignacionTarea) int { return a.TareaID })

	for _, t := range tareas {
		if t.CreadorID == userID || asignadoA(porTarea[t.ID], userID) {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b models.Tarea) int {
		if d := b.FechaCreacion.Compare(a.FechaCreacion); d != 0 {
			return d
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

// GetTask returns one task with assignees, comments and files.
func (c *Composer) GetTask(ctx context.Context, userID, taskID int) (*models.TareaExtendida, error) {
	t, _, err := c.policies.TaskForAccess(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	g := newGrafo()
	g.tareas[t.ProyectoID] = []models.Tarea{*t}
	asignaciones, err := c.store.ListAsignacionesByTareas(ctx, []int{t.ID})
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	g.asignaciones = agrupar(asignaciones, func(a models.AsignacionTarea) int { return a.TareaID })
	if err := c.cargarTareas(ctx, g, []models.Tarea{*t}); err != nil {
		return nil, err
	}
	if err := c.cargarUsuarios(ctx, g); err != nil {
		return nil, err
	}
	te, err := g.tarea(*t)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &te, nil
}

// ListMembers returns every membership row of a project, the creator's
// admin row included, ordered by join date.
func (c *Composer) ListMembers(ctx context.Context, userID, projectID int) ([]models.MiembroExtendido, error) {
	if _, err := c.policies.ProjectForAccess(ctx, userID, projectID); err != nil {
		return nil, err
	}
	miembros, err := c.store.ListMiembrosByProyectos(ctx, []int{projectID})
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	g := newGrafo()
	g.miembros[projectID] = miembros
	if err := c.cargarUsuarios(ctx, g); err != nil {
		return nil, err
	}
	out := make([]models.MiembroExtendido, 0, len(miembros))
	for _, m := range miembros {
		u, err := g.usuario(m.UsuarioID)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		out = append(out, models.MiembroExtendido{MiembroProyecto: m, Usuario: u})
	}
	return out, nil
}

// GetComment composes a single comment with its author and files.
func (c *Composer) GetComment(ctx context.Context, comentario models.Comentario) (*models.ComentarioExtendido, error) {
	g := newGrafo()
	g.comentarios[comentario.TareaID] = []models.Comentario{comentario}
	archivos, err := c.store.ListArchivosByPadres(ctx, models.TipoComentario, []int{comentario.ID})
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	g.archivosComentario = agrupar(archivos, func(a models.Archivo) int { return a.PadreID })
	if err := c.cargarUsuarios(ctx, g); err != nil {
		return nil, err
	}
	ce, err := g.comentario(comentario)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &ce, nil
}

func (c *Composer) componerProyectos(ctx context.Context, proyectos []models.Proyecto, visible taskFilter) ([]models.ProyectoExtendido, error) {
	out := make([]models.ProyectoExtendido, 0, len(proyectos))
	if len(proyectos) == 0 {
		return out, nil
	}
	ids := make([]int, len(proyectos))
	for i, p := range proyectos {
		ids[i] = p.ID
	}

	var (
		miembros []models.MiembroProyecto
		tareas   []models.Tarea
		archivos []models.Archivo
	)
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(composerConcurrency)
	eg.Go(func() (err error) {
		miembros, err = c.store.ListMiembrosByProyectos(egctx, ids)
		return err
	})
	eg.Go(func() (err error) {
		tareas, err = c.store.ListTareasByProyectos(egctx, ids)
		return err
	})
	eg.Go(func() (err error) {
		archivos, err = c.store.ListArchivosByPadres(egctx, models.TipoProyecto, ids)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, apperrors.Internal(err)
	}

	g := newGrafo()
	for _, p := range proyectos {
		g.creadores = append(g.creadores, p.CreadorID)
	}
	g.miembros = agrupar(miembros, func(m models.MiembroProyecto) int { return m.ProyectoID })
	g.archivosProyecto = agrupar(archivos, func(a models.Archivo) int { return a.PadreID })

	tareaIDs := make([]int, len(tareas))
	for i, t := range tareas {
		tareaIDs[i] = t.ID
	}
	asignaciones, err := c.store.ListAsignacionesByTareas(ctx, tareaIDs)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	g.asignaciones = agrupar(asignaciones, func(a models.AsignacionTarea) int { return a.TareaID })

	porID := make(map[int]*models.Proyecto, len(proyectos))
	for i := range proyectos {
		porID[proyectos[i].ID] = &proyectos[i]
	}
	visibles := make([]models.Tarea, 0, len(tareas))
	for i := range tareas {
		t := &tareas[i]
		if visible(porID[t.ProyectoID], t, g.asignaciones[t.ID]) {
			visibles = append(visibles, *t)
		}
	}
	g.tareas = agrupar(visibles, func(t models.Tarea) int { return t.ProyectoID })

	if err := c.cargarTareas(ctx, g, visibles); err != nil {
		return nil, err
	}
	if err := c.cargarUsuarios(ctx, g); err != nil {
		return nil, err
	}

	for _, p := range proyectos {
		pe, err := g.proyecto(p)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		out = append(out, pe)
	}
	return out, nil
}

// cargarTareas loads comments and files of the given tasks, then the
// files of those comments.
func (c *Composer) cargarTareas(ctx context.Context, g *grafo, tareas []models.Tarea) error {
	if len(tareas) == 0 {
		return nil
	}
	ids := make([]int, len(tareas))
	for i, t := range tareas {
		ids[i] = t.ID
	}

	var (
		comentarios []models.Comentario
		archivos    []models.Archivo
	)
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(composerConcurrency)
	eg.Go(func() (err error) {
		comentarios, err = c.store.ListComentariosByTareas(egctx, ids)
		return err
	})
	eg.Go(func() (err error) {
		archivos, err = c.store.ListArchivosByPadres(egctx, models.TipoTarea, ids)
		return err
	})
	if err := eg.Wait(); err != nil {
		return apperrors.Internal(err)
	}
	g.comentarios = agrupar(comentarios, func(c models.Comentario) int { return c.TareaID })
	g.archivosTarea = agrupar(archivos, func(a models.Archivo) int { return a.PadreID })

	if len(comentarios) == 0 {
		return nil
	}
	comentarioIDs := make([]int, len(comentarios))
	for i, cm := range comentarios {
		comentarioIDs[i] = cm.ID
	}
	archivosComentario, err := c.store.ListArchivosByPadres(ctx, models.TipoComentario, comentarioIDs)
	if err != nil {
		return apperrors.Internal(err)
	}
	g.archivosComentario = agrupar(archivosComentario, func(a models.Archivo) int { return a.PadreID })
	return nil
}

// cargarUsuarios resolves every user referenced by the graph in one query.
func (c *Composer) cargarUsuarios(ctx context.Context, g *grafo) error {
	seen := map[int]bool{}
	var ids []int
	add := func(id int) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	addArchivos := func(m map[int][]models.Archivo) {
		for _, as := range m {
			for _, a := range as {
				add(a.SubidoPor)
			}
		}
	}
	for _, ms := range g.miembros {
		for _, m := range ms {
			add(m.UsuarioID)
		}
	}
	for _, ts := range g.tareas {
		for _, t := range ts {
			add(t.CreadorID)
		}
	}
	for _, as := range g.asignaciones {
		for _, a := range as {
			add(a.UsuarioID)
		}
	}
	for _, cs := range g.comentarios {
		for _, cm := range cs {
			add(cm.UsuarioID)
		}
	}
	addArchivos(g.archivosProyecto)
	addArchivos(g.archivosTarea)
	addArchivos(g.archivosComentario)
	for _, id := range g.creadores {
		add(id)
	}

	usuarios, err := c.store.GetUsuariosByIDs(ctx, ids)
	if err != nil {
		return apperrors.Internal(err)
	}
	g.usuarios = usuarios
	return nil
}

func (g *grafo) usuario(id int) (models.Usuario, error) {
	u, ok := g.usuarios[id]
	if !ok {
		return models.Usuario{}, errMissingUser(id)
	}
	return u, nil
}

func (g *grafo) archivos(rows []models.Archivo) ([]models.ArchivoExtendido, error) {
	out := make([]models.ArchivoExtendido, 0, len(rows))
	for _, a := range rows {
		u, err := g.usuario(a.SubidoPor)
		if err != nil {
			return nil, err
		}
		out = append(out, models.ArchivoExtendido{Archivo: a, Usuario: u})
	}
	return out, nil
}

func (g *grafo) comentario(c models.Comentario) (models.ComentarioExtendido, error) {
	u, err := g.usuario(c.UsuarioID)
	if err != nil {
		return models.ComentarioExtendido{}, err
	}
	archivos, err := g.archivos(g.archivosComentario[c.ID])
	if err != nil {
		return models.ComentarioExtendido{}, err
	}
	return models.ComentarioExtendido{Comentario: c, Usuario: u, Archivos: archivos}, nil
}

func (g *grafo) tarea(t models.Tarea) (models.TareaExtendida, error) {
	creador, err := g.usuario(t.CreadorID)
	if err != nil {
		return models.TareaExtendida{}, err
	}
	te := models.TareaExtendida{
		Tarea:       t,
		Creador:     creador,
		Asignados:   make([]models.AsignacionExtendida, 0, len(g.asignaciones[t.ID])),
		Comentarios: make([]models.ComentarioExtendido, 0, len(g.comentarios[t.ID])),
	}
	for _, a := range g.asignaciones[t.ID] {
		u, err := g.usuario(a.UsuarioID)
		if err != nil {
			return models.TareaExtendida{}, err
		}
		te.Asignados = append(te.Asignados, models.AsignacionExtendida{AsignacionTarea: a, Usuario: u})
	}
	for _, c := range g.comentarios[t.ID] {
		ce, err := g.comentario(c)
		if err != nil {
			return models.TareaExtendida{}, err
		}
		te.Comentarios = append(te.Comentarios, ce)
	}
	if te.Archivos, err = g.archivos(g.archivosTarea[t.ID]); err != nil {
		return models.TareaExtendida{}, err
	}
	return te, nil
}

// proyecto builds the nested view of p. The creator's admin row is left
// out of Miembros.
func (g *grafo) proyecto(p models.Proyecto) (models.ProyectoExtendido, error) {
	creador, err := g.usuario(p.CreadorID)
	if err != nil {
		return models.ProyectoExtendido{}, err
	}
	pe := models.ProyectoExtendido{
		Proyecto: p,
		Creador:  creador,
		Miembros: []models.MiembroExtendido{},
		Tareas:   make([]models.TareaExtendida, 0, len(g.tareas[p.ID])),
	}
	for _, m := range g.miembros[p.ID] {
		if m.Rol == models.RolAdmin {
			continue
		}
		u, err := g.usuario(m.UsuarioID)
		if err != nil {
			return models.ProyectoExtendido{}, err
		}
		pe.Miembros = append(pe.Miembros, models.MiembroExtendido{MiembroProyecto: m, Usuario: u})
	}
	for _, t := range g.tareas[p.ID] {
		te, err := g.tarea(t)
		if err != nil {
			return models.ProyectoExtendido{}, err
		}
		pe.Tareas = append(pe.Tareas, te)
	}
	if pe.Archivos, err = g.archivos(g.archivosProyecto[p.ID]); err != nil {
		return models.ProyectoExtendido{}, err
	}
	return pe, nil
}

func errMissingUser(id int) error {
	return fmt.Errorf("user %d referenced but not loaded", id)
}
