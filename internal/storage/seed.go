package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"reportes/internal/core"
	"reportes/internal/seed"
)

// Seed replaces the base tables with ds in a single transaction.
// Birth dates are normalized to YYYY-MM-DD; unparseable ones become NULL.
func (r *Repository) Seed(ctx context.Context, ds *seed.Dataset) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"inscripciones", "adolescentes", "actividades", "categorias", "sedes", "instituciones"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	exec := func(query string, args ...any) error {
		_, err := tx.ExecContext(ctx, r.dialect.rebind(query), args...)
		return err
	}
	for _, i := range ds.Instituciones {
		if err := exec("INSERT INTO instituciones (id, valor) VALUES (?, ?)", i.ID, i.Valor); err != nil {
			return fmt.Errorf("insert institucion %d: %w", i.ID, err)
		}
	}
	for _, s := range ds.Sedes {
		if err := exec("INSERT INTO sedes (id, valor, direccion, institucion_id) VALUES (?, ?, ?, ?)",
			s.ID, s.Valor, nullableString(s.Direccion), s.InstitucionID); err != nil {
			return fmt.Errorf("insert sede %d: %w", s.ID, err)
		}
	}
	for _, c := range ds.Categorias {
		if err := exec("INSERT INTO categorias (id, valor) VALUES (?, ?)", c.ID, c.Valor); err != nil {
			return fmt.Errorf("insert categoria %d: %w", c.ID, err)
		}
	}
	for _, a := range ds.Actividades {
		if err := exec("INSERT INTO actividades (id, valor, categoria_id, vigente) VALUES (?, ?, ?, ?)",
			a.ID, a.Valor, a.CategoriaID, a.Vigente); err != nil {
			return fmt.Errorf("insert actividad %d: %w", a.ID, err)
		}
	}
	for _, a := range ds.Adolescentes {
		var birth sql.NullString
		if t, ok := core.ParseBirthDate(a.FechaNacimiento); ok {
			birth = sql.NullString{String: t.Format("2006-01-02"), Valid: true}
		}
		if err := exec("INSERT INTO adolescentes (id, nombre, apellido, dni, fecha_nacimiento, genero) VALUES (?, ?, ?, ?, ?, ?)",
			a.ID, a.Nombre, a.Apellido, emptyAsNull(a.DNI), birth, emptyAsNull(a.Genero)); err != nil {
			return fmt.Errorf("insert adolescente %d: %w", a.ID, err)
		}
	}
	for i, in := range ds.Inscripciones {
		confirmada := 0
		if in.Confirmada {
			confirmada = 1
		}
		if err := exec("INSERT INTO inscripciones (adolescente_id, actividad_id, sede_id, dia, horario, confirmada) VALUES (?, ?, ?, ?, ?, ?)",
			in.AdolescenteID, in.ActividadID, in.SedeID, emptyAsNull(in.Dia), emptyAsNull(in.Horario), confirmada); err != nil {
			return fmt.Errorf("insert inscripcion %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}

	slog.InfoContext(ctx, "Seed dataset loaded",
		"instituciones", len(ds.Instituciones),
		"adolescentes", len(ds.Adolescentes),
		"inscripciones", len(ds.Inscripciones))
	return nil
}

func emptyAsNull(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
