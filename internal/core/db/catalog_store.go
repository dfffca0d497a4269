package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/solatis/rulebuilder/internal/catalog"
	"github.com/solatis/rulebuilder/internal/types"
)

/*
 * Catalog persistence.
 *
 * The catalog is stored in its document form: named operator sets and choice
 * lists, and fields referencing them by name. Import normalizes a document
 * first so inline lists become named rows too; an operator's own choices are
 * stored as a list named "operator:<set>:<operator>".
 *
 * Import replaces the whole stored catalog in one transaction. Load reads it
 * back and resolves it.
 */

// CatalogStore reads and writes the field catalog.
type CatalogStore struct {
	q *Queries
}

// NewCatalogStore returns a store over q.
func NewCatalogStore(q *Queries) *CatalogStore {
	return &CatalogStore{q: q}
}

type choiceRow struct {
	ListName string `db:"list_name"`
	Position int    `db:"position"`
	Name     string `db:"name"`
	Label    string `db:"label"`
}

type operatorRow struct {
	SetName    string         `db:"set_name"`
	Position   int            `db:"position"`
	Name       string         `db:"name"`
	Label      string         `db:"label"`
	FieldType  string         `db:"field_type"`
	ChoiceList sql.NullString `db:"choice_list"`
}

type fieldRow struct {
	Position    int            `db:"position"`
	Name        string         `db:"name"`
	Label       string         `db:"label"`
	OperatorSet sql.NullString `db:"operator_set"`
	ChoiceList  sql.NullString `db:"choice_list"`
}

// Document reads the stored catalog document.
func (s *CatalogStore) Document(ctx context.Context) (*catalog.Document, error) {
	doc := &catalog.Document{
		OperatorSets: map[string][]types.OperatorDef{},
		ChoiceLists:  map[string][]types.Choice{},
	}

	var setNames, listNames []string
	if err := s.q.SelectContext(ctx, "list-operator-sets", &setNames); err != nil {
		return nil, fmt.Errorf("failed to list operator sets: %w", err)
	}
	if err := s.q.SelectContext(ctx, "list-choice-lists", &listNames); err != nil {
		return nil, fmt.Errorf("failed to list choice lists: %w", err)
	}
	for _, name := range setNames {
		doc.OperatorSets[name] = []types.OperatorDef{}
	}
	for _, name := range listNames {
		doc.ChoiceLists[name] = []types.Choice{}
	}

	var choices []choiceRow
	if err := s.q.SelectContext(ctx, "list-choices", &choices); err != nil {
		return nil, fmt.Errorf("failed to list choices: %w", err)
	}
	for _, c := range choices {
		doc.ChoiceLists[c.ListName] = append(doc.ChoiceLists[c.ListName], types.Choice{Name: c.Name, Label: c.Label})
	}

	var operators []operatorRow
	if err := s.q.SelectContext(ctx, "list-operators", &operators); err != nil {
		return nil, fmt.Errorf("failed to list operators: %w", err)
	}
	for _, o := range operators {
		op := types.OperatorDef{Name: o.Name, Label: o.Label, FieldType: types.FieldType(o.FieldType)}
		if o.ChoiceList.Valid {
			op.Choices = doc.ChoiceLists[o.ChoiceList.String]
		}
		doc.OperatorSets[o.SetName] = append(doc.OperatorSets[o.SetName], op)
	}

	var fields []fieldRow
	if err := s.q.SelectContext(ctx, "list-fields", &fields); err != nil {
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}
	for _, f := range fields {
		doc.Fields = append(doc.Fields, catalog.FieldSpec{
			Name:        f.Name,
			Label:       f.Label,
			OperatorSet: f.OperatorSet.String,
			ChoiceList:  f.ChoiceList.String,
		})
	}

	return doc, nil
}

// Load reads and resolves the stored catalog. An empty store yields an empty catalog.
func (s *CatalogStore) Load(ctx context.Context) (*catalog.Catalog, error) {
	doc, err := s.Document(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Resolve()
}

// Import replaces the stored catalog with doc. doc is validated before anything
// is written and is normalized in place.
func (s *CatalogStore) Import(ctx context.Context, doc *catalog.Document) error {
	if _, err := doc.Resolve(); err != nil {
		return err
	}
	doc.Normalize()

	return s.q.InTx(ctx, func(tx *Tx) error {
		for _, name := range []string{
			"delete-fields", "delete-operators", "delete-choices",
			"delete-operator-sets", "delete-choice-lists",
		} {
			if _, err := tx.Exec(ctx, name); err != nil {
				return fmt.Errorf("failed to clear catalog (%s): %w", name, err)
			}
		}

		lists := make(map[string][]types.Choice, len(doc.ChoiceLists))
		for name, list := range doc.ChoiceLists {
			lists[name] = list
		}
		opLists := map[string]string{}
		for setName, ops := range doc.OperatorSets {
			for _, op := range ops {
				if len(op.Choices) > 0 {
					name := "operator:" + setName + ":" + op.Name
					lists[name] = op.Choices
					opLists[setName+"\x00"+op.Name] = name
				}
			}
		}

		for name, list := range lists {
			if _, err := tx.Exec(ctx, "insert-choice-list", name); err != nil {
				return fmt.Errorf("failed to insert choice list %q: %w", name, err)
			}
			for i, c := range list {
				if _, err := tx.Exec(ctx, "insert-choice", name, i, c.Name, c.Label); err != nil {
					return fmt.Errorf("failed to insert choice %q of %q: %w", c.Name, name, err)
				}
			}
		}

		for setName, ops := range doc.OperatorSets {
			if _, err := tx.Exec(ctx, "insert-operator-set", setName); err != nil {
				return fmt.Errorf("failed to insert operator set %q: %w", setName, err)
			}
			for i, op := range ops {
				ft, _ := types.ParseFieldType(string(op.FieldType))
				list := nullString(opLists[setName+"\x00"+op.Name])
				if _, err := tx.Exec(ctx, "insert-operator", setName, i, op.Name, op.Label, string(ft), list); err != nil {
					return fmt.Errorf("failed to insert operator %q of %q: %w", op.Name, setName, err)
				}
			}
		}

		seen := map[string]bool{}
		position := 0
		for _, f := range doc.Fields {
			// Resolve keeps the first of duplicate names; so does the store
			if seen[f.Name] {
				continue
			}
			seen[f.Name] = true
			if _, err := tx.Exec(ctx, "insert-field", position, f.Name, f.Label,
				nullString(f.OperatorSet), nullString(f.ChoiceList)); err != nil {
				return fmt.Errorf("failed to insert field %q: %w", f.Name, err)
			}
			position++
		}
		return nil
	})
}

// FieldCount returns the number of stored fields.
func (s *CatalogStore) FieldCount() (int, error) {
	var n int
	if err := s.q.Get("count-fields", &n); err != nil {
		return 0, fmt.Errorf("failed to count fields: %w", err)
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
