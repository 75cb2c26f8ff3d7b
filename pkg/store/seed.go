package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/MaastrichtU-BISS/linkextractor/pkg/law"
)

// Fixture is a YAML description of statutes, their aliases and elements,
// and the cases citing them. It is used to seed development and test
// databases.
type Fixture struct {
	Statutes []FixtureStatute `yaml:"statutes"`
	Cases    []FixtureCase    `yaml:"cases"`
}

// FixtureStatute describes one statute.
type FixtureStatute struct {
	ID       string           `yaml:"id"`
	Title    string           `yaml:"title"`
	Aliases  []string         `yaml:"aliases"`
	Elements []FixtureElement `yaml:"elements"`
}

// FixtureElement describes one law element of a statute.
type FixtureElement struct {
	Type   law.ElementType `yaml:"type"`
	Number string          `yaml:"number"`
	Label  int64           `yaml:"label"`
	Title  string          `yaml:"title"`
	LidoID string          `yaml:"lido_id"`
}

// FixtureCase describes a court decision.
type FixtureCase struct {
	ECLI  string            `yaml:"ecli"`
	Title string            `yaml:"title"`
	Date  string            `yaml:"date"`
	Links []FixtureCaseLink `yaml:"links"`
}

// FixtureCaseLink points a case at a law element by statute and label.
type FixtureCaseLink struct {
	Statute   string `yaml:"statute"`
	Label     int64  `yaml:"label"`
	Source    string `yaml:"source"`
	Opschrift string `yaml:"opschrift"`
}

// ParseFixture decodes and validates fixture YAML.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFixture reads a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	f, err := ParseFixture(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Validate checks references and enumerated values.
func (f *Fixture) Validate() error {
	labels := make(map[ElementKey]bool)
	for i, s := range f.Statutes {
		if s.ID == "" {
			return fmt.Errorf("statute %d: id is required", i)
		}
		for _, e := range s.Elements {
			if e.Type == law.ElementStatute {
				return fmt.Errorf("statute %s: statute elements are implicit", s.ID)
			}
			if e.Label != 0 {
				labels[ElementKey{StatuteID: s.ID, ElementID: e.Label}] = true
			}
		}
	}
	for _, c := range f.Cases {
		if c.ECLI == "" {
			return fmt.Errorf("case: ecli is required")
		}
		for _, l := range c.Links {
			if !labels[ElementKey{StatuteID: l.Statute, ElementID: l.Label}] {
				return fmt.Errorf("case %s: unknown element %s/%d", c.ECLI, l.Statute, l.Label)
			}
			if l.Source != "" && !slices.Contains(caseLinkSources, l.Source) {
				return fmt.Errorf("case %s: invalid source %q", c.ECLI, l.Source)
			}
		}
	}
	return nil
}

func elementTitle(s FixtureStatute, e FixtureElement) string {
	if e.Title != "" {
		return e.Title
	}
	return fmt.Sprintf("%s, %s %s", s.Title, e.Type.Label(), e.Number)
}

// Seed inserts the fixture. Statutes already present are skipped.
func (s *sqlStore) Seed(ctx context.Context, f *Fixture) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: seed: begin: %w", s.d.name, err)
	}
	defer tx.Rollback() //nolint:errcheck

	ids := make(map[ElementKey]int64)
	for _, st := range f.Statutes {
		if err := s.seedStatute(ctx, tx, st, ids); err != nil {
			return err
		}
	}
	for _, c := range f.Cases {
		if err := s.seedCase(ctx, tx, c, ids); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: seed: commit: %w", s.d.name, err)
	}
	return nil
}

func (s *sqlStore) seedStatute(ctx context.Context, tx *sql.Tx, st FixtureStatute, ids map[ElementKey]int64) error {
	var existing int
	err := tx.QueryRowContext(ctx, s.d.rebind(`SELECT COUNT(*) FROM law_element WHERE bwb_id = ? AND type = ?`),
		st.ID, law.ElementStatute.DBValue()).Scan(&existing)
	if err != nil {
		return fmt.Errorf("%s: seed %s: %w", s.d.name, st.ID, err)
	}

	if existing == 0 {
		_, err = tx.ExecContext(ctx, s.d.rebind(`INSERT INTO law_element (type, bwb_id, title) VALUES (?, ?, ?)`),
			law.ElementStatute.DBValue(), st.ID, st.Title)
		if err != nil {
			return fmt.Errorf("%s: seed %s: insert statute: %w", s.d.name, st.ID, err)
		}
		for _, e := range st.Elements {
			var label any
			if e.Label != 0 {
				label = e.Label
			}
			var id int64
			err := tx.QueryRowContext(ctx, s.d.rebind(`INSERT INTO law_element (type, bwb_id, bwb_label_id, lido_id, number, title)
VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
				e.Type.DBValue(), st.ID, label, e.LidoID, e.Number, elementTitle(st, e)).Scan(&id)
			if err != nil {
				return fmt.Errorf("%s: seed %s: insert %s %s: %w", s.d.name, st.ID, e.Type, e.Number, err)
			}
			if e.Label != 0 {
				ids[ElementKey{StatuteID: st.ID, ElementID: e.Label}] = id
			}
		}
	} else {
		if err := s.loadElementIDs(ctx, tx, st.ID, ids); err != nil {
			return err
		}
	}

	for _, a := range st.Aliases {
		_, err := tx.ExecContext(ctx, s.d.rebind(`INSERT INTO law_alias (alias, bwb_id, source) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`),
			a, st.ID, "bwbidlist")
		if err != nil {
			return fmt.Errorf("%s: seed %s: insert alias %q: %w", s.d.name, st.ID, a, err)
		}
	}
	return nil
}

func (s *sqlStore) loadElementIDs(ctx context.Context, tx *sql.Tx, statuteID string, ids map[ElementKey]int64) error {
	rows, err := tx.QueryContext(ctx, s.d.rebind(`SELECT id, bwb_label_id FROM law_element WHERE bwb_id = ? AND bwb_label_id IS NOT NULL`), statuteID)
	if err != nil {
		return fmt.Errorf("%s: seed %s: load elements: %w", s.d.name, statuteID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, label int64
		if err := rows.Scan(&id, &label); err != nil {
			return fmt.Errorf("%s: seed %s: scan element: %w", s.d.name, statuteID, err)
		}
		ids[ElementKey{StatuteID: statuteID, ElementID: label}] = id
	}
	return rows.Err()
}

func (s *sqlStore) seedCase(ctx context.Context, tx *sql.Tx, c FixtureCase, ids map[ElementKey]int64) error {
	var date any
	if c.Date != "" {
		date = c.Date
	}
	var caseID int64
	err := tx.QueryRowContext(ctx, s.d.rebind(`INSERT INTO legal_case (ecli_id, title, uitspraakdatum) VALUES (?, ?, ?)
ON CONFLICT (ecli_id) DO UPDATE SET title = excluded.title
RETURNING id`), c.ECLI, c.Title, date).Scan(&caseID)
	if err != nil {
		return fmt.Errorf("%s: seed case %s: %w", s.d.name, c.ECLI, err)
	}

	for _, l := range c.Links {
		lawID, ok := ids[ElementKey{StatuteID: l.Statute, ElementID: l.Label}]
		if !ok {
			return fmt.Errorf("%s: seed case %s: unknown element %s/%d", s.d.name, c.ECLI, l.Statute, l.Label)
		}
		source := l.Source
		if source == "" {
			source = "custom"
		}
		_, err := tx.ExecContext(ctx, s.d.rebind(`INSERT INTO case_law (case_id, law_id, source, opschrift) VALUES (?, ?, ?, ?)`),
			caseID, lawID, source, l.Opschrift)
		if err != nil {
			return fmt.Errorf("%s: seed case %s: link %s/%d: %w", s.d.name, c.ECLI, l.Statute, l.Label, err)
		}
	}
	return nil
}
