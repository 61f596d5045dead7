package symbols

import (
	"database/sql"
	"fmt"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	ts "github.com/funvibe/tynorm/internal/typesystem"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS definitions (
	seq     INTEGER PRIMARY KEY,
	id      TEXT NOT NULL UNIQUE,
	kind    INTEGER NOT NULL,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS definitions_kind ON definitions(kind);
`

// SQLiteStore persists a SymbolTable in a SQLite database. Terms are stored
// as YAML-encoded trees.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema in %s: %w", path, err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type predicateRecord struct {
	Predicate *ts.Node `yaml:"predicate"`
	Span      ts.Span  `yaml:"span"`
}

type defRecord struct {
	ID         ts.DefID             `yaml:"id"`
	Kind       ts.DefKind           `yaml:"kind"`
	Parent     ts.DefID             `yaml:"parent,omitempty"`
	Generics   []ts.GenericParam    `yaml:"generics,omitempty"`
	Span       ts.Span              `yaml:"span"`
	Body       *ts.Node             `yaml:"body,omitempty"`
	Predicates []predicateRecord    `yaml:"predicates,omitempty"`
	Trait      ts.DefID             `yaml:"trait,omitempty"`
	TraitArgs  []*ts.Node           `yaml:"trait_args,omitempty"`
	SelfTy     *ts.Node             `yaml:"self,omitempty"`
	Items      map[string]ts.DefID `yaml:"items,omitempty"`
}

func toRecord(d *Def) defRecord {
	rec := defRecord{
		ID:       d.ID,
		Kind:     d.Kind,
		Parent:   d.Parent,
		Generics: d.Generics,
		Span:     d.Span,
		Body:     ts.Encode(d.Body),
		Trait:    d.Trait,
		SelfTy:   ts.Encode(d.SelfTy),
		Items:    d.Items,
	}
	for _, p := range d.Predicates {
		rec.Predicates = append(rec.Predicates, predicateRecord{Predicate: ts.Encode(p.Predicate), Span: p.Span})
	}
	for _, a := range d.TraitArgs {
		rec.TraitArgs = append(rec.TraitArgs, ts.Encode(a))
	}
	return rec
}

func fromRecord(rec defRecord) (*Def, error) {
	d := &Def{
		ID:       rec.ID,
		Kind:     rec.Kind,
		Parent:   rec.Parent,
		Generics: rec.Generics,
		Span:     rec.Span,
		Trait:    rec.Trait,
		Items:    rec.Items,
	}
	var err error
	if d.Body, err = ts.Decode(rec.Body); err != nil {
		return nil, fmt.Errorf("%s body: %w", rec.ID, err)
	}
	if d.SelfTy, err = ts.Decode(rec.SelfTy); err != nil {
		return nil, fmt.Errorf("%s self type: %w", rec.ID, err)
	}
	for _, p := range rec.Predicates {
		pred, err := ts.Decode(p.Predicate)
		if err != nil {
			return nil, fmt.Errorf("%s predicate: %w", rec.ID, err)
		}
		d.Predicates = append(d.Predicates, ts.SpannedPredicate{Predicate: pred, Span: p.Span})
	}
	for _, a := range rec.TraitArgs {
		arg, err := ts.Decode(a)
		if err != nil {
			return nil, fmt.Errorf("%s trait argument: %w", rec.ID, err)
		}
		d.TraitArgs = append(d.TraitArgs, arg)
	}
	if (d.Kind == ts.DefTrait || d.Kind == ts.DefImpl || d.Kind == ts.DefInherentImpl) && d.Items == nil {
		d.Items = make(map[string]ts.DefID)
	}
	return d, nil
}

// Save replaces the stored definitions with the contents of table.
func (s *SQLiteStore) Save(table *SymbolTable) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM definitions`); err != nil {
		return fmt.Errorf("clear definitions: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO definitions (seq, id, kind, payload) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, d := range table.Defs() {
		payload, err := yaml.Marshal(toRecord(d))
		if err != nil {
			return fmt.Errorf("encode %s: %w", d.ID, err)
		}
		if _, err := stmt.Exec(i, string(d.ID), int(d.Kind), string(payload)); err != nil {
			return fmt.Errorf("insert %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

// Load rebuilds a SymbolTable from the stored definitions. The data was
// validated when it was saved, so definitions are inserted without re-running
// the registration checks.
func (s *SQLiteStore) Load() (*SymbolTable, error) {
	rows, err := s.db.Query(`SELECT id, payload FROM definitions ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query definitions: %w", err)
	}
	defer rows.Close()

	table := NewEmptySymbolTable()
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		var rec defRecord
		if err := yaml.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", id, err)
		}
		d, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		table.insert(d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	table.InitBuiltins()
	return table, nil
}

// Count returns the number of stored definitions.
func (s *SQLiteStore) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM definitions`).Scan(&n)
	return n, err
}
