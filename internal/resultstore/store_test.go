package resultstore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/redoxflux/internal/apperr"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	f, err := os.CreateTemp("", "redoxflux-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	s, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSchemaCreation(t *testing.T) {
	s := testStore(t)
	var count int
	if err := s.conn.QueryRow(`SELECT count(*) FROM runs`).Scan(&count); err != nil {
		t.Fatalf("runs table missing: %v", err)
	}
}

func TestSaveAndGetRun(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	saved, err := s.SaveRun(ctx, Run{
		Kind:            "optimize",
		Label:           "octanoic_acid/cell_free",
		Status:          "optimal",
		ObjectiveValue:  5,
		NetworkChecksum: "abc",
		Payload:         json.RawMessage(`{"objective_value":5}`),
	})
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if saved.ID == "" || saved.CreatedAt.IsZero() {
		t.Fatalf("saved = %+v", saved)
	}

	got, err := s.GetRun(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Label != saved.Label || got.ObjectiveValue != 5 || string(got.Payload) != `{"objective_value":5}` {
		t.Errorf("got = %+v", got)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	s := testStore(t)
	if _, err := s.GetRun(context.Background(), "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveRun_RequiresKind(t *testing.T) {
	s := testStore(t)
	if _, err := s.SaveRun(context.Background(), Run{}); !errors.Is(err, apperr.ErrInvalidRequest) {
		t.Errorf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestListRuns_FilterAndOrder(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, kind := range []string{"optimize", "sweep", "optimize"} {
		if _, err := s.SaveRun(ctx, Run{Kind: kind, Label: kind, CreatedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatal(err)
		}
	}

	runs, total, err := s.ListRuns(ctx, ListFilter{Kind: "optimize"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(runs) != 2 {
		t.Fatalf("total = %d, runs = %d", total, len(runs))
	}
	if !runs[0].CreatedAt.After(runs[1].CreatedAt) {
		t.Error("runs not newest first")
	}
	if runs[0].Payload != nil {
		t.Error("list should not carry payloads")
	}

	page, total, err := s.ListRuns(ctx, ListFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(page) != 1 || page[0].Kind != "sweep" {
		t.Errorf("page = %+v total = %d", page, total)
	}
}
