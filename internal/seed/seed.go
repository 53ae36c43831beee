// Package seed loads a YAML dataset mirroring the base tables behind the
// reporting view. It feeds the memory backend and the sqlite seeding command.
package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"reportes/internal/core"
)

//go:embed sample.yaml
var sample []byte

type Categoria struct {
	ID    int64  `yaml:"id"`
	Valor string `yaml:"valor"`
}

type Institucion struct {
	ID    int64  `yaml:"id"`
	Valor string `yaml:"valor"`
}

type Sede struct {
	ID            int64   `yaml:"id"`
	Valor         string  `yaml:"valor"`
	Direccion     *string `yaml:"direccion"`
	InstitucionID int64   `yaml:"institucion_id"`
}

type Actividad struct {
	ID          int64  `yaml:"id"`
	Valor       string `yaml:"valor"`
	CategoriaID int64  `yaml:"categoria_id"`
	Vigente     int    `yaml:"vigente"`
}

type Adolescente struct {
	ID              int64  `yaml:"id"`
	Nombre          string `yaml:"nombre"`
	Apellido        string `yaml:"apellido"`
	DNI             string `yaml:"dni"`
	FechaNacimiento string `yaml:"fecha_nacimiento"`
	Genero          string `yaml:"genero"`
}

type Inscripcion struct {
	AdolescenteID int64  `yaml:"adolescente_id"`
	ActividadID   int64  `yaml:"actividad_id"`
	SedeID        int64  `yaml:"sede_id"`
	Dia           string `yaml:"dia"`
	Horario       string `yaml:"horario"`
	Confirmada    bool   `yaml:"confirmada"`
}

// Dataset is the full content of a seed file.
type Dataset struct {
	Instituciones []Institucion `yaml:"instituciones"`
	Sedes         []Sede        `yaml:"sedes"`
	Categorias    []Categoria   `yaml:"categorias"`
	Actividades   []Actividad   `yaml:"actividades"`
	Adolescentes  []Adolescente `yaml:"adolescentes"`
	Inscripciones []Inscripcion `yaml:"inscripciones"`
}

// Load reads and validates a dataset file. An empty path yields the bundled sample.
func Load(path string) (*Dataset, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Default returns the bundled sample dataset.
func Default() (*Dataset, error) {
	return Parse(sample)
}

// Parse decodes and validates a YAML dataset.
func Parse(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("decode seed yaml: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

// Validate checks that every reference points to an existing row.
func (d *Dataset) Validate() error {
	var errs []error
	inst := ids(d.Instituciones, func(i Institucion) int64 { return i.ID })
	cats := ids(d.Categorias, func(c Categoria) int64 { return c.ID })
	sedes := ids(d.Sedes, func(s Sede) int64 { return s.ID })
	acts := ids(d.Actividades, func(a Actividad) int64 { return a.ID })
	adols := ids(d.Adolescentes, func(a Adolescente) int64 { return a.ID })

	for _, s := range d.Sedes {
		if _, ok := inst[s.InstitucionID]; !ok {
			errs = append(errs, fmt.Errorf("sede %d: unknown institucion %d", s.ID, s.InstitucionID))
		}
	}
	for _, a := range d.Actividades {
		if _, ok := cats[a.CategoriaID]; !ok {
			errs = append(errs, fmt.Errorf("actividad %d: unknown categoria %d", a.ID, a.CategoriaID))
		}
	}
	for i, in := range d.Inscripciones {
		if _, ok := adols[in.AdolescenteID]; !ok {
			errs = append(errs, fmt.Errorf("inscripcion %d: unknown adolescente %d", i, in.AdolescenteID))
		}
		if _, ok := acts[in.ActividadID]; !ok {
			errs = append(errs, fmt.Errorf("inscripcion %d: unknown actividad %d", i, in.ActividadID))
		}
		if _, ok := sedes[in.SedeID]; !ok {
			errs = append(errs, fmt.Errorf("inscripcion %d: unknown sede %d", i, in.SedeID))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid seed dataset: %w", errors.Join(errs...))
	}
	return nil
}

func ids[T any](rows []T, id func(T) int64) map[int64]struct{} {
	out := make(map[int64]struct{}, len(rows))
	for _, r := range rows {
		out[id(r)] = struct{}{}
	}
	return out
}

// Records materializes the reporting view: one record per confirmed
// enrollment, with age and bracket computed at asOf.
func (d *Dataset) Records(asOf time.Time) []core.ParticipantRecord {
	inst := make(map[int64]string, len(d.Instituciones))
	for _, i := range d.Instituciones {
		inst[i.ID] = i.Valor
	}
	cats := make(map[int64]string, len(d.Categorias))
	for _, c := range d.Categorias {
		cats[c.ID] = c.Valor
	}
	sedes := make(map[int64]Sede, len(d.Sedes))
	for _, s := range d.Sedes {
		sedes[s.ID] = s
	}
	acts := make(map[int64]Actividad, len(d.Actividades))
	for _, a := range d.Actividades {
		acts[a.ID] = a
	}
	adols := make(map[int64]Adolescente, len(d.Adolescentes))
	for _, a := range d.Adolescentes {
		adols[a.ID] = a
	}

	out := make([]core.ParticipantRecord, 0, len(d.Inscripciones))
	for _, in := range d.Inscripciones {
		if !in.Confirmada {
			continue
		}
		adol := adols[in.AdolescenteID]
		act := acts[in.ActividadID]
		sede := sedes[in.SedeID]
		rec := core.ParticipantRecord{
			ID:              adol.ID,
			Nombre:          adol.Nombre,
			Apellido:        adol.Apellido,
			DNI:             adol.DNI,
			Institucion:     inst[sede.InstitucionID],
			Sede:            sede.Valor,
			Actividad:       act.Valor,
			CategoriaID:     act.CategoriaID,
			Categoria:       cats[act.CategoriaID],
			Dia:             in.Dia,
			Horario:         in.Horario,
			FechaNacimiento: adol.FechaNacimiento,
			Genero:          adol.Genero,
		}
		if birth, ok := core.ParseBirthDate(adol.FechaNacimiento); ok {
			age := core.AgeAt(birth, asOf)
			rec.Edad = &age
			rec.TramoEdad = core.AgeBracket(age)
		}
		out = append(out, rec)
	}
	return out
}

// Catalog returns the base tables in id order.
func (d *Dataset) Catalog() ([]core.Institucion, []core.Sede, []core.Actividad) {
	insts := make([]core.Institucion, 0, len(d.Instituciones))
	for _, i := range d.Instituciones {
		insts = append(insts, core.Institucion{ID: i.ID, Valor: i.Valor})
	}
	sedes := make([]core.Sede, 0, len(d.Sedes))
	for _, s := range d.Sedes {
		sedes = append(sedes, core.Sede{ID: s.ID, Valor: s.Valor, Direccion: s.Direccion, InstitucionID: s.InstitucionID})
	}
	acts := make([]core.Actividad, 0, len(d.Actividades))
	for _, a := range d.Actividades {
		acts = append(acts, core.Actividad{ID: a.ID, Valor: a.Valor, Vigente: a.Vigente})
	}
	sort.Slice(insts, func(i, j int) bool { return insts[i].ID < insts[j].ID })
	sort.Slice(sedes, func(i, j int) bool { return sedes[i].ID < sedes[j].ID })
	sort.Slice(acts, func(i, j int) bool { return acts[i].ID < acts[j].ID })
	return insts, sedes, acts
}
