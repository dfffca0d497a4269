package builder

import (
	"encoding/json"
	"testing"

	"github.com/solatis/rulebuilder/internal/catalog"
	"github.com/solatis/rulebuilder/internal/types"
)

// testCatalog covers every value shape.
func testCatalog() *catalog.Catalog {
	return catalog.New([]types.Field{
		{
			Name:  "age",
			Label: "Age",
			Operators: []types.OperatorDef{
				{Name: "equals", Label: "equals", FieldType: types.FieldTypeText},
				{Name: "between", Label: "between", FieldType: types.FieldTypeRange},
				{Name: "is_empty", Label: "is empty", FieldType: types.FieldTypeNone},
			},
		},
		{
			Name: "birth",
			Operators: []types.OperatorDef{
				{Name: "on", FieldType: types.FieldTypeDate},
				{Name: "between", FieldType: types.FieldTypeDateRange},
			},
		},
		{
			Name: "active",
			Operators: []types.OperatorDef{
				{Name: "is", FieldType: types.FieldTypeBoolean},
			},
		},
		{
			Name: "status",
			Operators: []types.OperatorDef{
				{Name: "in", FieldType: types.FieldTypeSelect},
				{Name: "is", FieldType: types.FieldTypeBoolean},
				{Name: "between", FieldType: types.FieldTypeRange},
			},
			Choices: []types.Choice{
				{Name: "open", Label: "Open"},
				{Name: "closed", Label: "Closed"},
			},
		},
	})
}

// ageCatalog is the two-operator catalog of the age example.
func ageCatalog() *catalog.Catalog {
	return catalog.New([]types.Field{{
		Name: "age",
		Operators: []types.OperatorDef{
			{Name: "equals", FieldType: types.FieldTypeText},
			{Name: "between", FieldType: types.FieldTypeRange},
		},
	}})
}

func ptr[T any](v T) *T {
	return &v
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	return string(b)
}

func jsonString(v any) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}

// rootKinds lists the kinds of the root's children in order.
func rootKinds(tree *Tree) []Kind {
	var kinds []Kind
	for _, id := range tree.Children(tree.Root()) {
		e, _ := tree.Element(id)
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func firstOfKind(t *testing.T, tree *Tree, k Kind) *Element {
	t.Helper()
	ids := tree.Find(k)
	if len(ids) == 0 {
		t.Fatalf("no %s element in tree", k)
	}
	e, _ := tree.Element(ids[0])
	return e
}
