package core

import "errors"

type (
	// ParticipantRecord is one row of the reporting view: a confirmed
	// adolescent enrolled in one activity. Empty strings stand for NULL.
	ParticipantRecord struct {
		ID              int64
		Nombre          string
		Apellido        string
		DNI             string
		Institucion     string
		Sede            string
		Actividad       string
		CategoriaID     int64
		Categoria       string
		Dia             string
		Horario         string
		FechaNacimiento string
		Edad            *int
		Genero          string
		TramoEdad       string
	}

	// AggregateRow is a grouped count for one dimension value.
	AggregateRow struct {
		Value string
		Count int
	}

	// ActivityLink is one participant-activity link without aggregation.
	ActivityLink struct {
		Actividad   string `json:"actividad"`
		Institucion string `json:"institucion"`
	}

	Institucion struct {
		ID    int64  `json:"id"`
		Valor string `json:"valor"`
	}

	Sede struct {
		ID            int64   `json:"id"`
		Valor         string  `json:"valor"`
		Direccion     *string `json:"direccion"`
		InstitucionID int64   `json:"institucion_id"`
	}

	Actividad struct {
		ID      int64  `json:"id"`
		Valor   string `json:"valor"`
		Vigente int    `json:"vigente"`
	}
)

var (
	ErrUnknownDimension = errors.New("unknown dimension")
	ErrNegativeCount    = errors.New("negative count")
)

// Validate checks the AggregateRow invariant.
func (r AggregateRow) Validate() error {
	if r.Count < 0 {
		return ErrNegativeCount
	}
	return nil
}

// Labels returns the dimension values of rows in order.
func Labels(rows []AggregateRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Value
	}
	return out
}

// Counts returns the counts of rows as float64, ready for charting.
func Counts(rows []AggregateRow) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = float64(r.Count)
	}
	return out
}
