// Package memstore is an in-memory repository.Store used by tests. It
// mirrors the ordering, uniqueness and cascade rules of the PostgreSQL
// schema closely enough for service and handler tests to run without a
// database.
package memstore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kelydev/apiProyectos/models"
	"github.com/kelydev/apiProyectos/repository"
	"github.com/lib/pq"
)

type state struct {
	seq          map[string]int
	usuarios     map[int]models.Usuario
	proyectos    map[int]models.Proyecto
	miembros     []models.MiembroProyecto
	tareas       map[int]models.Tarea
	asignaciones []models.AsignacionTarea
	comentarios  map[int]models.Comentario
	invitaciones map[int]models.Invitacion
	archivos     map[models.TipoPadre]map[int]models.Archivo
	huerfanos    map[int]models.ArchivoHuerfano
}

func newState() *state {
	return &state{
		seq:          map[string]int{},
		usuarios:     map[int]models.Usuario{},
		proyectos:    map[int]models.Proyecto{},
		tareas:       map[int]models.Tarea{},
		comentarios:  map[int]models.Comentario{},
		invitaciones: map[int]models.Invitacion{},
		archivos: map[models.TipoPadre]map[int]models.Archivo{
			models.TipoProyecto:   {},
			models.TipoTarea:      {},
			models.TipoComentario: {},
		},
		huerfanos: map[int]models.ArchivoHuerfano{},
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.seq {
		c.seq[k] = v
	}
	for k, v := range st.usuarios {
		c.usuarios[k] = v
	}
	for k, v := range st.proyectos {
		c.proyectos[k] = v
	}
	c.miembros = append([]models.MiembroProyecto(nil), st.miembros...)
	for k, v := range st.tareas {
		c.tareas[k] = v
	}
	c.asignaciones = append([]models.AsignacionTarea(nil), st.asignaciones...)
	for k, v := range st.comentarios {
		c.comentarios[k] = v
	}
	for k, v := range st.invitaciones {
		c.invitaciones[k] = v
	}
	for tipo, m := range st.archivos {
		for k, v := range m {
			c.archivos[tipo][k] = v
		}
	}
	for k, v := range st.huerfanos {
		c.huerfanos[k] = v
	}
	return c
}

func (st *state) next(table string) int {
	st.seq[table]++
	return st.seq[table]
}

// Store is a mutex-guarded in-memory implementation of repository.Store.
type Store struct {
	mu    sync.Mutex
	txMu  sync.Mutex
	st    *state
	clock time.Time
	fails map[string]error
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store whose clock starts at a fixed instant and
// advances one second per insert.
func New() *Store {
	return &Store{
		st:    newState(),
		clock: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		fails: map[string]error{},
	}
}

// Fail makes every later call to method return err. A nil err clears it.
func (s *Store) Fail(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fails, method)
		return
	}
	s.fails[method] = err
}

func (s *Store) fail(method string) error {
	return s.fails[method]
}

func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func uniqueViolation(constraint string) error {
	return &pq.Error{Code: "23505", Constraint: constraint, Message: "duplicate key value violates unique constraint"}
}

func foreignKeyViolation(constraint string) error {
	return &pq.Error{Code: "23503", Constraint: constraint, Message: "insert or update violates foreign key constraint"}
}

func checkViolation(constraint string) error {
	return &pq.Error{Code: "23514", Constraint: constraint, Message: "new row violates check constraint"}
}

func containsID(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// WithTx runs fn with the store locked against other transactions and
// restores the previous state when fn fails.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	if err := fn(txStore{s}); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

var errNoTx = errors.New("memstore: row lock requested outside a transaction")

type txStore struct {
	*Store
}

func (t txStore) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return fn(t)
}

// Usuarios

func (s *Store) CreateUsuario(ctx context.Context, u *models.Usuario) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateUsuario"); err != nil {
		return err
	}
	for _, other := range s.st.usuarios {
		if other.Email == u.Email {
			return uniqueViolation("usuarios_email_key")
		}
	}
	u.ID = s.st.next("usuarios")
	u.FechaCreacion = s.tick()
	s.st.usuarios[u.ID] = *u
	return nil
}

func (s *Store) GetUsuarioByID(ctx context.Context, id int) (*models.Usuario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetUsuarioByID"); err != nil {
		return nil, err
	}
	u, ok := s.st.usuarios[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *Store) GetUsuarioByEmail(ctx context.Context, email string) (*models.Usuario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetUsuarioByEmail"); err != nil {
		return nil, err
	}
	for _, u := range s.st.usuarios {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (s *Store) GetUsuariosByIDs(ctx context.Context, ids []int) (map[int]models.Usuario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetUsuariosByIDs"); err != nil {
		return nil, err
	}
	out := make(map[int]models.Usuario, len(ids))
	for _, id := range ids {
		if u, ok := s.st.usuarios[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (s *Store) UpdatePerfil(ctx context.Context, id int, nombre string, avatar *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdatePerfil"); err != nil {
		return err
	}
	u, ok := s.st.usuarios[id]
	if !ok {
		return nil
	}
	u.Nombre = nombre
	u.Avatar = avatar
	s.st.usuarios[id] = u
	return nil
}

func (s *Store) SearchUsuarios(ctx context.Context, q string, excludeID, limit, offset int) ([]models.Usuario, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SearchUsuarios"); err != nil {
		return nil, 0, err
	}
	needle := strings.ToLower(q)
	matches := []models.Usuario{}
	for _, u := range s.st.usuarios {
		if u.ID == excludeID {
			continue
		}
		if strings.Contains(strings.ToLower(u.Nombre), needle) || strings.Contains(strings.ToLower(u.Email), needle) {
			matches = append(matches, u)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Nombre != matches[j].Nombre {
			return matches[i].Nombre < matches[j].Nombre
		}
		return matches[i].ID < matches[j].ID
	})
	total := len(matches)
	if offset >= total {
		return []models.Usuario{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matches[offset:end], total, nil
}

// Proyectos y miembros

func (s *Store) CreateProyecto(ctx context.Context, p *models.Proyecto) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateProyecto"); err != nil {
		return err
	}
	if _, ok := s.st.usuarios[p.CreadorID]; !ok {
		return foreignKeyViolation("proyectos_creador_id_fkey")
	}
	p.ID = s.st.next("proyectos")
	p.FechaCreacion = s.tick()
	s.st.proyectos[p.ID] = *p
	return nil
}

func (s *Store) GetProyectoByID(ctx context.Context, id int) (*models.Proyecto, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetProyectoByID"); err != nil {
		return nil, err
	}
	p, ok := s.st.proyectos[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *Store) GetProyectosByIDs(ctx context.Context, ids []int) (map[int]models.Proyecto, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetProyectosByIDs"); err != nil {
		return nil, err
	}
	out := make(map[int]models.Proyecto, len(ids))
	for _, id := range ids {
		if p, ok := s.st.proyectos[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s *Store) visibleProyectos(usuarioID int) []models.Proyecto {
	out := []models.Proyecto{}
	for _, p := range s.st.proyectos {
		if p.CreadorID == usuarioID || s.isMiembro(p.ID, usuarioID) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FechaCreacion.Equal(out[j].FechaCreacion) {
			return out[i].FechaCreacion.After(out[j].FechaCreacion)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) ListProyectosForUsuario(ctx context.Context, usuarioID int) ([]models.Proyecto, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListProyectosForUsuario"); err != nil {
		return nil, err
	}
	return s.visibleProyectos(usuarioID), nil
}

func (s *Store) UpdateProyecto(ctx context.Context, p *models.Proyecto) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateProyecto"); err != nil {
		return err
	}
	cur, ok := s.st.proyectos[p.ID]
	if !ok {
		return nil
	}
	cur.Nombre = p.Nombre
	cur.Descripcion = p.Descripcion
	cur.FechaLimite = p.FechaLimite
	cur.Estado = p.Estado
	cur.Presupuesto = p.Presupuesto
	s.st.proyectos[p.ID] = cur
	return nil
}

func (s *Store) DeleteProyecto(ctx context.Context, id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteProyecto"); err != nil {
		return false, err
	}
	if _, ok := s.st.proyectos[id]; !ok {
		return false, nil
	}
	delete(s.st.proyectos, id)

	miembros := s.st.miembros[:0]
	for _, m := range s.st.miembros {
		if m.ProyectoID != id {
			miembros = append(miembros, m)
		}
	}
	s.st.miembros = miembros
	for invID, inv := range s.st.invitaciones {
		if inv.ProyectoID == id {
			delete(s.st.invitaciones, invID)
		}
	}
	for aid, a := range s.st.archivos[models.TipoProyecto] {
		if a.PadreID == id {
			delete(s.st.archivos[models.TipoProyecto], aid)
		}
	}
	for tid, t := range s.st.tareas {
		if t.ProyectoID == id {
			s.deleteTarea(tid)
		}
	}
	return true, nil
}

func (s *Store) AddMiembro(ctx context.Context, m *models.MiembroProyecto) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("AddMiembro"); err != nil {
		return false, err
	}
	if _, ok := s.st.proyectos[m.ProyectoID]; !ok {
		return false, foreignKeyViolation("proyecto_miembros_proyecto_id_fkey")
	}
	if _, ok := s.st.usuarios[m.UsuarioID]; !ok {
		return false, foreignKeyViolation("proyecto_miembros_usuario_id_fkey")
	}
	if s.isMiembro(m.ProyectoID, m.UsuarioID) {
		return false, nil
	}
	m.FechaUnion = s.tick()
	s.st.miembros = append(s.st.miembros, *m)
	return true, nil
}

func (s *Store) isMiembro(proyectoID, usuarioID int) bool {
	for _, m := range s.st.miembros {
		if m.ProyectoID == proyectoID && m.UsuarioID == usuarioID {
			return true
		}
	}
	return false
}

func (s *Store) IsMiembro(ctx context.Context, proyectoID, usuarioID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("IsMiembro"); err != nil {
		return false, err
	}
	return s.isMiembro(proyectoID, usuarioID), nil
}

func (s *Store) ListMiembrosByProyectos(ctx context.Context, proyectoIDs []int) ([]models.MiembroProyecto, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListMiembrosByProyectos"); err != nil {
		return nil, err
	}
	out := []models.MiembroProyecto{}
	for _, m := range s.st.miembros {
		if containsID(proyectoIDs, m.ProyectoID) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ProyectoID != out[j].ProyectoID {
			return out[i].ProyectoID < out[j].ProyectoID
		}
		if !out[i].FechaUnion.Equal(out[j].FechaUnion) {
			return out[i].FechaUnion.Before(out[j].FechaUnion)
		}
		return out[i].UsuarioID < out[j].UsuarioID
	})
	return out, nil
}

// Tareas y asignaciones

func (s *Store) CreateTarea(ctx context.Context, t *models.Tarea) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateTarea"); err != nil {
		return err
	}
	if _, ok := s.st.proyectos[t.ProyectoID]; !ok {
		return foreignKeyViolation("tareas_proyecto_id_fkey")
	}
	t.ID = s.st.next("tareas")
	t.FechaCreacion = s.tick()
	s.st.tareas[t.ID] = *t
	return nil
}

func (s *Store) GetTareaByID(ctx context.Context, id int) (*models.Tarea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetTareaByID"); err != nil {
		return nil, err
	}
	t, ok := s.st.tareas[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *Store) ListTareasByProyectos(ctx context.Context, proyectoIDs []int) ([]models.Tarea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListTareasByProyectos"); err != nil {
		return nil, err
	}
	out := []models.Tarea{}
	for _, t := range s.st.tareas {
		if containsID(proyectoIDs, t.ProyectoID) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProyectoID != out[j].ProyectoID {
			return out[i].ProyectoID < out[j].ProyectoID
		}
		if !out[i].FechaCreacion.Equal(out[j].FechaCreacion) {
			return out[i].FechaCreacion.Before(out[j].FechaCreacion)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateTareaEstado(ctx context.Context, id int, estado string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateTareaEstado"); err != nil {
		return false, err
	}
	t, ok := s.st.tareas[id]
	if !ok {
		return false, nil
	}
	if !models.EstadoTareaValido(estado) {
		return false, checkViolation("tareas_estado_check")
	}
	t.Estado = estado
	s.st.tareas[id] = t
	return true, nil
}

func (s *Store) UpdateTarea(ctx context.Context, t *models.Tarea) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateTarea"); err != nil {
		return false, err
	}
	cur, ok := s.st.tareas[t.ID]
	if !ok {
		return false, nil
	}
	if !models.EstadoTareaValido(t.Estado) {
		return false, checkViolation("tareas_estado_check")
	}
	cur.Titulo = t.Titulo
	cur.Descripcion = t.Descripcion
	cur.Prioridad = t.Prioridad
	cur.Estado = t.Estado
	cur.FechaLimite = t.FechaLimite
	s.st.tareas[t.ID] = cur
	return true, nil
}

func (s *Store) deleteTarea(id int) {
	delete(s.st.tareas, id)
	asignaciones := s.st.asignaciones[:0]
	for _, a := range s.st.asignaciones {
		if a.TareaID != id {
			asignaciones = append(asignaciones, a)
		}
	}
	s.st.asignaciones = asignaciones
	for aid, a := range s.st.archivos[models.TipoTarea] {
		if a.PadreID == id {
			delete(s.st.archivos[models.TipoTarea], aid)
		}
	}
	for cid, c := range s.st.comentarios {
		if c.TareaID != id {
			continue
		}
		delete(s.st.comentarios, cid)
		for aid, a := range s.st.archivos[models.TipoComentario] {
			if a.PadreID == cid {
				delete(s.st.archivos[models.TipoComentario], aid)
			}
		}
	}
}

func (s *Store) DeleteTarea(ctx context.Context, id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteTarea"); err != nil {
		return false, err
	}
	if _, ok := s.st.tareas[id]; !ok {
		return false, nil
	}
	s.deleteTarea(id)
	return true, nil
}

func (s *Store) AddAsignacion(ctx context.Context, a *models.AsignacionTarea) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("AddAsignacion"); err != nil {
		return err
	}
	if _, ok := s.st.tareas[a.TareaID]; !ok {
		return foreignKeyViolation("tarea_asignaciones_tarea_id_fkey")
	}
	if _, ok := s.st.usuarios[a.UsuarioID]; !ok {
		return foreignKeyViolation("tarea_asignaciones_usuario_id_fkey")
	}
	for _, existing := range s.st.asignaciones {
		if existing.TareaID == a.TareaID && existing.UsuarioID == a.UsuarioID {
			a.FechaAsignacion = existing.FechaAsignacion
			return nil
		}
	}
	a.FechaAsignacion = s.tick()
	s.st.asignaciones = append(s.st.asignaciones, *a)
	return nil
}

func (s *Store) IsAsignado(ctx context.Context, tareaID, usuarioID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("IsAsignado"); err != nil {
		return false, err
	}
	for _, a := range s.st.asignaciones {
		if a.TareaID == tareaID && a.UsuarioID == usuarioID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListAsignacionesByTareas(ctx context.Context, tareaIDs []int) ([]models.AsignacionTarea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListAsignacionesByTareas"); err != nil {
		return nil, err
	}
	out := []models.AsignacionTarea{}
	for _, a := range s.st.asignaciones {
		if containsID(tareaIDs, a.TareaID) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TareaID != out[j].TareaID {
			return out[i].TareaID < out[j].TareaID
		}
		if !out[i].FechaAsignacion.Equal(out[j].FechaAsignacion) {
			return out[i].FechaAsignacion.Before(out[j].FechaAsignacion)
		}
		return out[i].UsuarioID < out[j].UsuarioID
	})
	return out, nil
}

// Comentarios

func (s *Store) CreateComentario(ctx context.Context, c *models.Comentario) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateComentario"); err != nil {
		return err
	}
	if strings.TrimSpace(c.Contenido) == "" {
		return checkViolation("comentarios_contenido_check")
	}
	if _, ok := s.st.tareas[c.TareaID]; !ok {
		return foreignKeyViolation("comentarios_tarea_id_fkey")
	}
	c.ID = s.st.next("comentarios")
	c.FechaCreacion = s.tick()
	s.st.comentarios[c.ID] = *c
	return nil
}

func (s *Store) GetComentarioByID(ctx context.Context, id int) (*models.Comentario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetComentarioByID"); err != nil {
		return nil, err
	}
	c, ok := s.st.comentarios[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *Store) ListComentariosByTareas(ctx context.Context, tareaIDs []int) ([]models.Comentario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListComentariosByTareas"); err != nil {
		return nil, err
	}
	out := []models.Comentario{}
	for _, c := range s.st.comentarios {
		if containsID(tareaIDs, c.TareaID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TareaID != out[j].TareaID {
			return out[i].TareaID < out[j].TareaID
		}
		if !out[i].FechaCreacion.Equal(out[j].FechaCreacion) {
			return out[i].FechaCreacion.Before(out[j].FechaCreacion)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Invitaciones

func (s *Store) CreateInvitacion(ctx context.Context, inv *models.Invitacion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateInvitacion"); err != nil {
		return err
	}
	if _, ok := s.st.proyectos[inv.ProyectoID]; !ok {
		return foreignKeyViolation("invitaciones_proyecto_id_fkey")
	}
	if inv.Estado == models.EstadoInvitacionPendiente && s.hasPending(inv.ProyectoID, inv.Email) {
		return uniqueViolation("uq_invitaciones_pendientes")
	}
	inv.ID = s.st.next("invitaciones")
	inv.FechaCreacion = s.tick()
	s.st.invitaciones[inv.ID] = *inv
	return nil
}

// GetInvitacionForUpdate mirrors SELECT ... FOR UPDATE, which only holds
// its lock inside a transaction. Outside WithTx it fails.
func (s *Store) GetInvitacionForUpdate(ctx context.Context, id int) (*models.Invitacion, error) {
	return nil, errNoTx
}

func (t txStore) GetInvitacionForUpdate(ctx context.Context, id int) (*models.Invitacion, error) {
	return t.getInvitacion(id)
}

func (s *Store) getInvitacion(id int) (*models.Invitacion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetInvitacionForUpdate"); err != nil {
		return nil, err
	}
	inv, ok := s.st.invitaciones[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (s *Store) hasPending(proyectoID int, email string) bool {
	for _, inv := range s.st.invitaciones {
		if inv.ProyectoID == proyectoID && inv.Estado == models.EstadoInvitacionPendiente && strings.EqualFold(inv.Email, email) {
			return true
		}
	}
	return false
}

func (s *Store) HasPendingInvitacion(ctx context.Context, proyectoID int, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("HasPendingInvitacion"); err != nil {
		return false, err
	}
	return s.hasPending(proyectoID, email), nil
}

func (s *Store) ListPendingInvitacionesByEmail(ctx context.Context, email string) ([]models.Invitacion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListPendingInvitacionesByEmail"); err != nil {
		return nil, err
	}
	out := []models.Invitacion{}
	for _, inv := range s.st.invitaciones {
		if inv.Estado == models.EstadoInvitacionPendiente && strings.EqualFold(inv.Email, email) {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FechaCreacion.Equal(out[j].FechaCreacion) {
			return out[i].FechaCreacion.After(out[j].FechaCreacion)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateInvitacionEstado(ctx context.Context, id int, estado string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateInvitacionEstado"); err != nil {
		return err
	}
	inv, ok := s.st.invitaciones[id]
	if !ok {
		return nil
	}
	inv.Estado = estado
	s.st.invitaciones[id] = inv
	return nil
}

func (s *Store) DeleteInvitacion(ctx context.Context, id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteInvitacion"); err != nil {
		return false, err
	}
	if _, ok := s.st.invitaciones[id]; !ok {
		return false, nil
	}
	delete(s.st.invitaciones, id)
	return true, nil
}

// Archivos

func (s *Store) parentExists(tipo models.TipoPadre, id int) bool {
	switch tipo {
	case models.TipoProyecto:
		_, ok := s.st.proyectos[id]
		return ok
	case models.TipoTarea:
		_, ok := s.st.tareas[id]
		return ok
	case models.TipoComentario:
		_, ok := s.st.comentarios[id]
		return ok
	}
	return false
}

func (s *Store) CreateArchivo(ctx context.Context, a *models.Archivo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateArchivo"); err != nil {
		return err
	}
	if !s.parentExists(a.Tipo, a.PadreID) {
		return foreignKeyViolation(string(a.Tipo) + "_padre_fkey")
	}
	for _, m := range s.st.archivos {
		for _, other := range m {
			if other.NombreArchivo == a.NombreArchivo {
				return uniqueViolation("nombre_archivo_key")
			}
		}
	}
	a.ID = s.st.next(string(a.Tipo))
	a.FechaSubida = s.tick()
	s.st.archivos[a.Tipo][a.ID] = *a
	return nil
}

func (s *Store) GetArchivo(ctx context.Context, tipo models.TipoPadre, id int) (*models.Archivo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetArchivo"); err != nil {
		return nil, err
	}
	a, ok := s.st.archivos[tipo][id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *Store) GetArchivoByNombre(ctx context.Context, nombre string) (*models.Archivo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetArchivoByNombre"); err != nil {
		return nil, err
	}
	for _, m := range s.st.archivos {
		for _, a := range m {
			if a.NombreArchivo == nombre {
				return &a, nil
			}
		}
	}
	return nil, nil
}

func (s *Store) ListArchivosByPadres(ctx context.Context, tipo models.TipoPadre, padreIDs []int) ([]models.Archivo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListArchivosByPadres"); err != nil {
		return nil, err
	}
	out := []models.Archivo{}
	for _, a := range s.st.archivos[tipo] {
		if containsID(padreIDs, a.PadreID) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PadreID != out[j].PadreID {
			return out[i].PadreID < out[j].PadreID
		}
		if !out[i].FechaSubida.Equal(out[j].FechaSubida) {
			return out[i].FechaSubida.Before(out[j].FechaSubida)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) rutasByTarea(tareaID int) []string {
	rutas := []string{}
	for _, a := range s.st.archivos[models.TipoTarea] {
		if a.PadreID == tareaID {
			rutas = append(rutas, a.RutaArchivo)
		}
	}
	for _, a := range s.st.archivos[models.TipoComentario] {
		if c, ok := s.st.comentarios[a.PadreID]; ok && c.TareaID == tareaID {
			rutas = append(rutas, a.RutaArchivo)
		}
	}
	return rutas
}

func (s *Store) ListRutasByProyecto(ctx context.Context, proyectoID int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListRutasByProyecto"); err != nil {
		return nil, err
	}
	rutas := []string{}
	for _, a := range s.st.archivos[models.TipoProyecto] {
		if a.PadreID == proyectoID {
			rutas = append(rutas, a.RutaArchivo)
		}
	}
	for _, t := range s.st.tareas {
		if t.ProyectoID == proyectoID {
			rutas = append(rutas, s.rutasByTarea(t.ID)...)
		}
	}
	sort.Strings(rutas)
	return rutas, nil
}

func (s *Store) ListRutasByTarea(ctx context.Context, tareaID int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListRutasByTarea"); err != nil {
		return nil, err
	}
	rutas := s.rutasByTarea(tareaID)
	sort.Strings(rutas)
	return rutas, nil
}

func (s *Store) DeleteArchivo(ctx context.Context, tipo models.TipoPadre, id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteArchivo"); err != nil {
		return false, err
	}
	if _, ok := s.st.archivos[tipo][id]; !ok {
		return false, nil
	}
	delete(s.st.archivos[tipo], id)
	return true, nil
}

func (s *Store) RecordHuerfano(ctx context.Context, ruta, motivo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("RecordHuerfano"); err != nil {
		return err
	}
	id := s.st.next("archivos_huerfanos")
	s.st.huerfanos[id] = models.ArchivoHuerfano{ID: id, RutaArchivo: ruta, Motivo: motivo, FechaRegistro: s.tick()}
	return nil
}

func (s *Store) ListHuerfanos(ctx context.Context, limit int) ([]models.ArchivoHuerfano, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListHuerfanos"); err != nil {
		return nil, err
	}
	out := []models.ArchivoHuerfano{}
	for _, h := range s.st.huerfanos {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) DeleteHuerfano(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteHuerfano"); err != nil {
		return err
	}
	delete(s.st.huerfanos, id)
	return nil
}

// GetDashboard evaluates deadlines against the wall clock, like NOW() in
// the SQL version.
func (s *Store) GetDashboard(ctx context.Context, usuarioID int) (*models.Dashboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetDashboard"); err != nil {
		return nil, err
	}
	d := &models.Dashboard{TareasProximas: []models.TareaProxima{}}
	visibles := s.visibleProyectos(usuarioID)
	d.TotalProyectos = len(visibles)
	for _, p := range visibles {
		if p.Estado == models.EstadoProyectoActivo {
			d.ProyectosActivos++
		}
	}
	asignado := map[int]bool{}
	for _, a := range s.st.asignaciones {
		if a.UsuarioID != usuarioID {
			continue
		}
		asignado[a.TareaID] = true
		d.TareasAsignadas++
		if t, ok := s.st.tareas[a.TareaID]; ok && t.Estado == models.EstadoTareaCompletada {
			d.TareasCompletadas++
		}
	}

	now := time.Now()
	proximas := []models.Tarea{}
	for _, t := range s.st.tareas {
		if t.CreadorID != usuarioID && !asignado[t.ID] {
			continue
		}
		if t.Estado == models.EstadoTareaCompletada || t.FechaLimite == nil || t.FechaLimite.Before(now) {
			continue
		}
		proximas = append(proximas, t)
	}
	sort.Slice(proximas, func(i, j int) bool {
		if !proximas[i].FechaLimite.Equal(*proximas[j].FechaLimite) {
			return proximas[i].FechaLimite.Before(*proximas[j].FechaLimite)
		}
		return proximas[i].ID < proximas[j].ID
	})
	for i, t := range proximas {
		if i == 5 {
			break
		}
		d.TareasProximas = append(d.TareasProximas, models.TareaProxima{
			ID:             t.ID,
			Titulo:         t.Titulo,
			FechaLimite:    *t.FechaLimite,
			ProyectoID:     t.ProyectoID,
			ProyectoNombre: s.st.proyectos[t.ProyectoID].Nombre,
		})
	}

	if len(visibles) > 5 {
		visibles = visibles[:5]
	}
	d.ProyectosRecientes = visibles
	return d, nil
}
