package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/gplan/internal/plan"
)

// ErrPlanNotFound is returned by ReadPlan for an unknown id.
var ErrPlanNotFound = errors.New("store: plan not found")

// PlanRecord is one row of the plan log.
type PlanRecord struct {
	ID        string // plan fingerprint
	Name      string
	Traversal string
	Plan      string // JSON
	Explain   string
	Vertices  int
	Seq       int64
}

// WritePlan records a compiled plan under name and returns the stored row.
// Plans are content-addressed: writing a plan whose fingerprint is
// already logged returns the existing row unchanged.
func (s *Store) WritePlan(ctx context.Context, name, traversalText string, lp *plan.LogicalPlan) (PlanRecord, error) {
	id, err := lp.Fingerprint()
	if err != nil {
		return PlanRecord{}, fmt.Errorf("write plan: %w", err)
	}
	planJSON, err := marshalPlan(lp)
	if err != nil {
		return PlanRecord{}, fmt.Errorf("write plan: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO plans
		(id, name, traversal, plan, explain, vertices, seq)
		VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM plans))
		ON CONFLICT(id) DO NOTHING
	`,
		id,
		name,
		traversalText,
		planJSON,
		lp.Explain(),
		lp.CountVertices(),
	)
	if err != nil {
		return PlanRecord{}, fmt.Errorf("write plan: %w", err)
	}

	return s.ReadPlan(ctx, id)
}

// ReadPlan returns the plan with the given fingerprint.
func (s *Store) ReadPlan(ctx context.Context, id string) (PlanRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, traversal, plan, explain, vertices, seq
		FROM plans
		WHERE id = ?
	`, id)
	rec, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return PlanRecord{}, fmt.Errorf("read plan %s: %w", id, ErrPlanNotFound)
	}
	if err != nil {
		return PlanRecord{}, fmt.Errorf("read plan %s: %w", id, err)
	}
	return rec, nil
}

// ReadPlans returns the whole log in write order.
func (s *Store) ReadPlans(ctx context.Context) ([]PlanRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, traversal, plan, explain, vertices, seq
		FROM plans
		ORDER BY seq ASC, id ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("read plans: %w", err)
	}
	return collectPlans(rows)
}

// ReadPlansByName returns the plans logged under name in write order.
func (s *Store) ReadPlansByName(ctx context.Context, name string) ([]PlanRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, traversal, plan, explain, vertices, seq
		FROM plans
		WHERE name = ?
		ORDER BY seq ASC, id ASC COLLATE BINARY
	`, name)
	if err != nil {
		return nil, fmt.Errorf("read plans %q: %w", name, err)
	}
	return collectPlans(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(row scanner) (PlanRecord, error) {
	var rec PlanRecord
	err := row.Scan(&rec.ID, &rec.Name, &rec.Traversal, &rec.Plan, &rec.Explain, &rec.Vertices, &rec.Seq)
	return rec, err
}

func collectPlans(rows *sql.Rows) ([]PlanRecord, error) {
	defer rows.Close()

	var out []PlanRecord
	for rows.Next() {
		rec, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}
	return out, nil
}
