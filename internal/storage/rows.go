package storage

import (
	"database/sql"
	"fmt"

	"reportes/internal/core"
)

// recordColumns is the projection scanned by scanRecord.
const recordColumns = "id_adolescente, nombre, apellido, dni, institucion, sede, actividad, " +
	"categoria_id, categoria, dia, horario, fecha_nacimiento, edad, genero, tramo_edad"

type scanner interface {
	Scan(dest ...any) error
}

// scanRecord converts one view row into a ParticipantRecord. NULL text
// becomes the empty string and a NULL age becomes nil.
func scanRecord(row scanner) (core.ParticipantRecord, error) {
	var (
		rec                                 core.ParticipantRecord
		nombre, apellido, dni               sql.NullString
		institucion, sede, actividad        sql.NullString
		categoria, dia, horario, nacimiento sql.NullString
		genero, tramo                       sql.NullString
		categoriaID, edad                   sql.NullInt64
	)
	err := row.Scan(&rec.ID, &nombre, &apellido, &dni, &institucion, &sede, &actividad,
		&categoriaID, &categoria, &dia, &horario, &nacimiento, &edad, &genero, &tramo)
	if err != nil {
		return core.ParticipantRecord{}, fmt.Errorf("scan record: %w", err)
	}
	rec.Nombre = nombre.String
	rec.Apellido = apellido.String
	rec.DNI = dni.String
	rec.Institucion = institucion.String
	rec.Sede = sede.String
	rec.Actividad = actividad.String
	rec.CategoriaID = categoriaID.Int64
	rec.Categoria = categoria.String
	rec.Dia = dia.String
	rec.Horario = horario.String
	rec.FechaNacimiento = nacimiento.String
	rec.Genero = genero.String
	rec.TramoEdad = tramo.String
	if edad.Valid {
		age := int(edad.Int64)
		rec.Edad = &age
	}
	return rec, nil
}

func scanAggregate(row scanner) (core.AggregateRow, error) {
	var (
		value sql.NullString
		count int64
	)
	if err := row.Scan(&value, &count); err != nil {
		return core.AggregateRow{}, fmt.Errorf("scan aggregate: %w", err)
	}
	return core.AggregateRow{Value: value.String, Count: int(count)}, nil
}

func scanLink(row scanner) (core.ActivityLink, error) {
	var actividad, institucion sql.NullString
	if err := row.Scan(&actividad, &institucion); err != nil {
		return core.ActivityLink{}, fmt.Errorf("scan detail: %w", err)
	}
	return core.ActivityLink{Actividad: actividad.String, Institucion: institucion.String}, nil
}

// collect drains rows through scan, closing them on every path.
func collect[T any](rows *sql.Rows, scan func(scanner) (T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
