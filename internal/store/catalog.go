package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/gplan/internal/schema"
	"github.com/roach88/gplan/internal/valuetype"
)

var _ schema.Schema = (*Store)(nil)

// ImportSchema writes every label and property of sc into the catalog in
// one transaction. Existing names are overwritten; an id already taken by
// another name is an error and nothing is written.
func (s *Store) ImportSchema(ctx context.Context, sc *schema.Static) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("import schema: %w", err)
	}
	defer tx.Rollback()

	for _, name := range sc.Labels() {
		id, err := sc.ElementLabelID(name)
		if err != nil {
			return fmt.Errorf("import schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO element_labels (name, id) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET id = excluded.id
		`, name, id); err != nil {
			return fmt.Errorf("import label %q: %w", name, err)
		}
	}

	for _, name := range sc.Properties() {
		id, err := sc.PropertyID(name)
		if err != nil {
			return fmt.Errorf("import schema: %w", err)
		}
		types, err := sc.PropertyDataTypes(name)
		if err != nil {
			return fmt.Errorf("import schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO properties (name, id) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET id = excluded.id
		`, name, id); err != nil {
			return fmt.Errorf("import property %q: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM property_types WHERE property = ?`, name); err != nil {
			return fmt.Errorf("import property %q: %w", name, err)
		}
		for i, dt := range types {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO property_types (property, position, data_type) VALUES (?, ?, ?)
			`, name, i, dt.String()); err != nil {
				return fmt.Errorf("import property %q: %w", name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("import schema: %w", err)
	}
	return nil
}

// ElementLabelID implements schema.Schema.
func (s *Store) ElementLabelID(name string) (int32, error) {
	var id int32
	err := s.db.QueryRow(`SELECT id FROM element_labels WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, schema.NotFound("label", name)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup label %q: %w", name, err)
	}
	return id, nil
}

// PropertyID implements schema.Schema.
func (s *Store) PropertyID(name string) (int32, error) {
	var id int32
	err := s.db.QueryRow(`SELECT id FROM properties WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, schema.NotFound("property", name)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup property %q: %w", name, err)
	}
	return id, nil
}

// PropertyDataTypes implements schema.Schema. Types come back in the order
// they were imported.
func (s *Store) PropertyDataTypes(name string) ([]valuetype.DataType, error) {
	if _, err := s.PropertyID(name); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT data_type FROM property_types
		WHERE property = ?
		ORDER BY position ASC
	`, name)
	if err != nil {
		return nil, fmt.Errorf("lookup property %q types: %w", name, err)
	}
	defer rows.Close()

	var types []valuetype.DataType
	for rows.Next() {
		var tn string
		if err := rows.Scan(&tn); err != nil {
			return nil, fmt.Errorf("scan property %q types: %w", name, err)
		}
		dt, ok := valuetype.ParseDataType(tn)
		if !ok {
			return nil, fmt.Errorf("property %q: unknown data type %q in catalog", name, tn)
		}
		types = append(types, dt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate property %q types: %w", name, err)
	}
	return types, nil
}

// Static loads the whole catalog into memory.
func (s *Store) Static(ctx context.Context) (*schema.Static, error) {
	sc := schema.NewStatic()

	rows, err := s.db.QueryContext(ctx, `SELECT name, id FROM element_labels ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	for rows.Next() {
		var name string
		var id int32
		if err := rows.Scan(&name, &id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan label: %w", err)
		}
		sc.AddLabel(name, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT name FROM properties ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("read properties: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan property: %w", err)
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read properties: %w", err)
	}

	// The pool holds one connection, so the rows above must be closed
	// before these lookups run.
	for _, name := range names {
		id, err := s.PropertyID(name)
		if err != nil {
			return nil, err
		}
		types, err := s.PropertyDataTypes(name)
		if err != nil {
			return nil, err
		}
		sc.AddProperty(name, id, types...)
	}
	return sc, nil
}
