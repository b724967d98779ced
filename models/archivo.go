package models

import "time"

// TipoPadre identifies which kind of entity owns a file attachment.
type TipoPadre string

const (
	TipoProyecto   TipoPadre = "proyectos"
	TipoTarea      TipoPadre = "tareas"
	TipoComentario TipoPadre = "comentarios"
)

// ParseTipoPadre maps a route segment to a TipoPadre.
func ParseTipoPadre(s string) (TipoPadre, bool) {
	switch TipoPadre(s) {
	case TipoProyecto, TipoTarea, TipoComentario:
		return TipoPadre(s), true
	}
	return "", false
}

// Dir returns the storage directory used for blobs of this kind.
func (t TipoPadre) Dir() string {
	switch t {
	case TipoProyecto:
		return "projects"
	case TipoTarea:
		return "tasks"
	case TipoComentario:
		return "comments"
	}
	return "misc"
}

// Archivo is the metadata row of an uploaded file. Project, task and
// comment attachments share this shape and differ only in their parent.
type Archivo struct {
	ID             int       `json:"id"`
	Tipo           TipoPadre `json:"tipo"`
	PadreID        int       `json:"padre_id"`
	NombreArchivo  string    `json:"nombre_archivo"`
	NombreOriginal string    `json:"nombre_original"`
	TipoArchivo    string    `json:"tipo_archivo"`
	Tamano         int64     `json:"tamaño"`
	RutaArchivo    string    `json:"ruta_archivo"`
	SubidoPor      int       `json:"subido_por"`
	FechaSubida    time.Time `json:"fecha_subida"`
}

// ArchivoExtendido is a file with its uploader resolved.
type ArchivoExtendido struct {
	Archivo
	Usuario Usuario `json:"usuario"`
}

// ArchivoHuerfano records a blob whose removal failed after its metadata
// row was deleted.
type ArchivoHuerfano struct {
	ID            int       `json:"id"`
	RutaArchivo   string    `json:"ruta_archivo"`
	Motivo        string    `json:"motivo"`
	FechaRegistro time.Time `json:"fecha_registro"`
}
