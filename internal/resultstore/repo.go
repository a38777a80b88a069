package resultstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/redoxflux/internal/apperr"
)

// Run is one recorded service operation.
type Run struct {
	ID              string          `json:"id"`
	Kind            string          `json:"kind"`
	Label           string          `json:"label"`
	Status          string          `json:"status"`
	ObjectiveValue  float64         `json:"objective_value"`
	NetworkChecksum string          `json:"network_checksum"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ListFilter narrows ListRuns. Zero values mean no filter.
type ListFilter struct {
	Kind   string
	Limit  int
	Offset int
}

// RunStore is the persistence contract the service depends on.
type RunStore interface {
	SaveRun(ctx context.Context, r Run) (Run, error)
	GetRun(ctx context.Context, id string) (Run, error)
	ListRuns(ctx context.Context, f ListFilter) ([]Run, int, error)
	Close() error
}

var _ RunStore = (*Store)(nil)

// SaveRun inserts r, assigning an id and timestamp when they are empty.
func (s *Store) SaveRun(ctx context.Context, r Run) (Run, error) {
	if r.Kind == "" {
		return Run{}, fmt.Errorf("resultstore: %w: run kind is required", apperr.ErrInvalidRequest)
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if len(r.Payload) == 0 {
		r.Payload = json.RawMessage("{}")
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO runs (id, kind, label, status, objective_value, network_checksum, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Kind, r.Label, r.Status, r.ObjectiveValue, r.NetworkChecksum, string(r.Payload), r.CreatedAt)
	if err != nil {
		return Run{}, fmt.Errorf("resultstore: insert run: %w", err)
	}
	return r, nil
}

// GetRun returns the run with id, or apperr.ErrNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, kind, label, status, objective_value, network_checksum, payload, created_at
		FROM runs WHERE id = ?
	`, id)
	r, err := scanRun(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("resultstore: run %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("resultstore: get run: %w", err)
	}
	return r, nil
}

// ListRuns returns runs newest first, without payloads, plus the total
// count matching the filter.
func (s *Store) ListRuns(ctx context.Context, f ListFilter) ([]Run, int, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	where, args := "", []any{}
	if f.Kind != "" {
		where = "WHERE kind = ?"
		args = append(args, f.Kind)
	}

	var total int
	if err := s.conn.QueryRowContext(ctx, `SELECT count(*) FROM runs `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("resultstore: count runs: %w", err)
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, kind, label, status, objective_value, network_checksum, '', created_at
		FROM runs `+where+`
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("resultstore: list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("resultstore: scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

func scanRun(scan func(dest ...any) error) (Run, error) {
	var r Run
	var payload string
	if err := scan(&r.ID, &r.Kind, &r.Label, &r.Status, &r.ObjectiveValue, &r.NetworkChecksum, &payload, &r.CreatedAt); err != nil {
		return Run{}, err
	}
	if payload != "" {
		r.Payload = json.RawMessage(payload)
	}
	return r, nil
}
