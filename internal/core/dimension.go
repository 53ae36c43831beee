package core

import (
	"fmt"
	"strings"
)

// Dimension is one of the fixed grouping keys of the reporting view.
type Dimension int

const (
	DimensionCategory Dimension = iota + 1
	DimensionInstitution
	DimensionActivity
	DimensionAgeBracket
	DimensionGender
)

type dimensionInfo struct {
	slug     string // JSON key
	route    string // URL segment for JSON endpoints
	column   string // reporting view column
	label    string // sheet header
	sheet    string // sheet name in the combined workbook
	title    string // PDF table title
	filename string // single-sheet export
	value    func(ParticipantRecord) string
}

var dimensions = map[Dimension]dimensionInfo{
	DimensionCategory: {
		slug: "categoria", route: "categoria", column: "categoria",
		label: "Categoría", sheet: "Categoría", title: "Adolescentes por Categoría",
		filename: "categorias.xlsx",
		value:    func(p ParticipantRecord) string { return p.Categoria },
	},
	DimensionInstitution: {
		slug: "institucion", route: "institucion", column: "institucion",
		label: "Institución", sheet: "Institución", title: "Adolescentes por Institución",
		filename: "instituciones.xlsx",
		value:    func(p ParticipantRecord) string { return p.Institucion },
	},
	DimensionActivity: {
		slug: "actividad", route: "actividad", column: "actividad",
		label: "Actividad", sheet: "Actividad", title: "Adolescentes por Actividad",
		filename: "actividades.xlsx",
		value:    func(p ParticipantRecord) string { return p.Actividad },
	},
	DimensionAgeBracket: {
		slug: "tramo_edad", route: "tramo-edad", column: "tramo_edad",
		label: "Tramo Edad", sheet: "Edad", title: "Adolescentes por Tramo de Edad",
		filename: "tramo_edad.xlsx",
		value:    func(p ParticipantRecord) string { return p.TramoEdad },
	},
	DimensionGender: {
		slug: "genero", route: "genero", column: "genero",
		label: "Género", sheet: "Género", title: "Adolescentes por Género",
		filename: "genero.xlsx",
		value:    func(p ParticipantRecord) string { return p.Genero },
	},
}

// ReportDimensions lists the dimensions in report order.
func ReportDimensions() []Dimension {
	return []Dimension{
		DimensionCategory,
		DimensionInstitution,
		DimensionActivity,
		DimensionAgeBracket,
		DimensionGender,
	}
}

// ParseDimension resolves a slug ("categoria") or route segment ("tramo-edad").
func ParseDimension(s string) (Dimension, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d, info := range dimensions {
		if s == info.slug || s == info.route {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDimension, s)
}

func (d Dimension) info() dimensionInfo {
	info, ok := dimensions[d]
	if !ok {
		panic(fmt.Sprintf("core: invalid dimension %d", int(d)))
	}
	return info
}

// IsValid reports whether d is one of the enumerated dimensions.
func (d Dimension) IsValid() bool {
	_, ok := dimensions[d]
	return ok
}

func (d Dimension) String() string {
	if !d.IsValid() {
		return fmt.Sprintf("Dimension(%d)", int(d))
	}
	return d.info().slug
}

func (d Dimension) Slug() string { return d.info().slug }
func (d Dimension) Route() string { return d.info().route }
func (d Dimension) Column() string { return d.info().column }
func (d Dimension) Label() string { return d.info().label }
func (d Dimension) Sheet() string { return d.info().sheet }
func (d Dimension) Title() string { return d.info().title }
func (d Dimension) Filename() string { return d.info().filename }

// Value returns the record's value for this dimension.
func (d Dimension) Value(p ParticipantRecord) string {
	return d.info().value(p)
}
