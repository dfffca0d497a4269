// Package catalog resolves field, operator and choice-list lookups for the builder.
//
// A Catalog is host-supplied configuration: it is built once, passed explicitly
// into every builder operation and never mutated afterwards. Lookups are total:
// an unknown field or operator resolves to the first catalog entry so that
// materialization never fails on stale data.
package catalog

import (
	"github.com/solatis/rulebuilder/internal/types"
)

// Catalog is an ordered, indexed set of field definitions.
type Catalog struct {
	fields []types.Field
	index  map[string]int
}

// New builds a catalog over fields, keeping their order.
// Later duplicates of a field name are ignored.
func New(fields []types.Field) *Catalog {
	c := &Catalog{
		fields: make([]types.Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if _, dup := c.index[f.Name]; dup {
			continue
		}
		c.index[f.Name] = len(c.fields)
		c.fields = append(c.fields, f)
	}
	return c
}

// Fields returns the fields in catalog order.
func (c *Catalog) Fields() []types.Field {
	if c == nil {
		return nil
	}
	return c.fields
}

// Len returns the number of fields.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.fields)
}

// Field returns the field named name.
func (c *Catalog) Field(name string) (types.Field, bool) {
	if c == nil {
		return types.Field{}, false
	}
	i, ok := c.index[name]
	if !ok {
		return types.Field{}, false
	}
	return c.fields[i], true
}

// ResolveField returns the field named name, or the first field when the name
// is unknown. The boolean is false only for an empty catalog.
func (c *Catalog) ResolveField(name string) (types.Field, bool) {
	if f, ok := c.Field(name); ok {
		return f, true
	}
	if c.Len() == 0 {
		return types.Field{}, false
	}
	return c.fields[0], true
}

// Operators returns the ordered operator list of the named field.
func (c *Catalog) Operators(field string) []types.OperatorDef {
	f, ok := c.Field(field)
	if !ok {
		return nil
	}
	return f.Operators
}

// ResolveOperator returns the operator named name on field f, or f's first
// operator. The boolean is false only when f declares no operators.
func ResolveOperator(f types.Field, name string) (types.OperatorDef, bool) {
	if op, ok := f.Operator(name); ok {
		return op, true
	}
	if len(f.Operators) == 0 {
		return types.OperatorDef{}, false
	}
	return f.Operators[0], true
}

// Choices returns the choice-list a SELECT operator of field f offers.
// The field's list wins; the operator's own list is the fallback.
func Choices(f types.Field, op types.OperatorDef) []types.Choice {
	if len(f.Choices) > 0 {
		return f.Choices
	}
	return op.Choices
}

// Default returns the field and operator a freshly added rule starts with.
// Both are empty for an empty catalog.
func (c *Catalog) Default() (field string, operator string) {
	if c.Len() == 0 {
		return "", ""
	}
	f := c.fields[0]
	if len(f.Operators) == 0 {
		return f.Name, ""
	}
	return f.Name, f.Operators[0].Name
}

// DefaultRule returns the rule node a freshly added rule starts from.
func (c *Catalog) DefaultRule() types.Node {
	field, op := c.Default()
	return types.NewRule(field, op, types.Value{})
}
