package memory

import (
	"context"
	"testing"

	"reportes/internal/core"
)

func TestStoreSessionAggregates(t *testing.T) {
	s := New([]core.ParticipantRecord{
		{ID: 1, Categoria: "A", Institucion: "X", Actividad: "P1", Genero: "Mujer"},
		{ID: 2, Categoria: "A", Institucion: "Y", Actividad: "P2", Genero: "Varon"},
		{ID: 3, Categoria: "B", Institucion: "X", Actividad: "P1", Genero: "f"},
	})
	ctx := context.Background()
	sess, err := s.Open(ctx)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer sess.Close()

	total, err := sess.Total(ctx)
	if err != nil || total != 3 {
		t.Fatalf("Total = %d, %v", total, err)
	}
	rows, err := sess.Aggregate(ctx, core.DimensionCategory)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(rows) != 2 || rows[0] != (core.AggregateRow{Value: "A", Count: 2}) {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	top, err := sess.AggregateTop(ctx, core.DimensionInstitution, 1)
	if err != nil || len(top) != 1 || top[0].Value != "X" {
		t.Fatalf("AggregateTop = %+v, %v", top, err)
	}
	if _, err := sess.Aggregate(ctx, core.Dimension(0)); err == nil {
		t.Fatal("expected error for invalid dimension")
	}
}

func TestOpenKeepsSnapshot(t *testing.T) {
	s := New([]core.ParticipantRecord{{ID: 1}})
	ctx := context.Background()
	sess, _ := s.Open(ctx)
	s.Replace([]core.ParticipantRecord{{ID: 1}, {ID: 2}})

	if n, _ := sess.Total(ctx); n != 1 {
		t.Errorf("old session total = %d, want 1", n)
	}
	fresh, _ := s.Open(ctx)
	if n, _ := fresh.Total(ctx); n != 2 {
		t.Errorf("new session total = %d, want 2", n)
	}
}

func TestNewFromFileDefaultsToSample(t *testing.T) {
	s, err := NewFromFile("")
	if err != nil {
		t.Fatalf("NewFromFile: %v", err)
	}
	ctx := context.Background()
	sess, _ := s.Open(ctx)
	insts, err := sess.ListInstituciones(ctx)
	if err != nil || len(insts) == 0 {
		t.Fatalf("expected sample instituciones, got %v %v", insts, err)
	}
	sedes, _ := sess.ListSedes(ctx)
	if len(sedes) == 0 {
		t.Fatal("expected sample sedes")
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	s := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	sess, _ := s.Open(ctx)
	cancel()
	if _, err := sess.Total(ctx); err == nil {
		t.Fatal("expected context error")
	}
}
